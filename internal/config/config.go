// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration values for the checkpoint logger.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP status server listens on. Defaults to "8080".
	Port string

	// DatabaseURL is the Postgres connection string. Required.
	DatabaseURL string

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// CORSOrigins is the list of allowed cross-origin request origins.
	CORSOrigins []string

	// UDPAddr is the host:port the listener binds. Defaults to "0.0.0.0:12345".
	UDPAddr string

	// UDPBufferSize is the largest datagram read, in bytes. Defaults to 1024.
	UDPBufferSize int

	// ReceiveTimeout bounds each socket read so a stop request is noticed
	// without traffic. Defaults to 2s.
	ReceiveTimeout time.Duration

	// AutoSave finalizes all open journeys when the listener stops. Defaults to true.
	AutoSave bool

	// LogDir is the directory text logs are written to. Defaults to "./data".
	LogDir string

	// LogFiles are text log file name patterns inside LogDir. "{session}" is
	// replaced by the session date as MM.DD.YY.
	LogFiles []string

	// SessionRolloverGuard is the quiet period required before a message on a
	// new day starts a new session. Defaults to 1h.
	SessionRolloverGuard time.Duration

	// MaxBodyBytes limits POST request bodies. Defaults to 4096.
	MaxBodyBytes int64
}

// Load reads configuration from environment variables and returns a Config.
// Returns an error listing every required variable that is not set and every
// variable that could not be parsed.
func Load() (Config, error) {
	cfg := Config{
		Port:        getEnv("PORT", "8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSOrigins: splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		UDPAddr:     getEnv("UDP_ADDR", "0.0.0.0:12345"),
		LogDir:      getEnv("LOG_DIR", "./data"),
		LogFiles:    splitCSV(getEnv("LOG_FILES", "udp_log_ALL.txt,udp_log_{session}.txt")),
	}

	var missing, invalid []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	parse := func(key, fallback string, fn func(string) error) {
		if err := fn(getEnv(key, fallback)); err != nil {
			invalid = append(invalid, fmt.Sprintf("%s (%v)", key, err))
		}
	}
	parse("UDP_BUFFER_SIZE", "1024", func(v string) (err error) {
		cfg.UDPBufferSize, err = positiveInt(v)
		return err
	})
	parse("RECEIVE_TIMEOUT", "2s", func(v string) (err error) {
		cfg.ReceiveTimeout, err = positiveDuration(v)
		return err
	})
	parse("AUTO_SAVE", "true", func(v string) (err error) {
		cfg.AutoSave, err = strconv.ParseBool(v)
		return err
	})
	parse("SESSION_ROLLOVER_GUARD", "1h", func(v string) (err error) {
		cfg.SessionRolloverGuard, err = time.ParseDuration(v)
		if err == nil && cfg.SessionRolloverGuard < 0 {
			err = fmt.Errorf("must not be negative")
		}
		return err
	})
	parse("MAX_BODY_BYTES", "4096", func(v string) error {
		n, err := positiveInt(v)
		cfg.MaxBodyBytes = int64(n)
		return err
	})

	if len(cfg.LogFiles) == 0 {
		invalid = append(invalid, "LOG_FILES (no file names)")
	}

	var problems []string
	if len(missing) > 0 {
		problems = append(problems, "required environment variables not set: "+strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		problems = append(problems, "invalid environment variables: "+strings.Join(invalid, ", "))
	}
	if len(problems) > 0 {
		return Config{}, fmt.Errorf("%s", strings.Join(problems, "; "))
	}

	return cfg, nil
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func positiveInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be positive")
	}
	return n, nil
}

func positiveDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive")
	}
	return d, nil
}
