// Package textlog writes the plain-text audit logs: one line per received
// message, "YYYY-MM-DD HH:MM:SS - <message>", appended to every configured
// file. File names may contain the {session} placeholder, which resolves to
// the current session's "MM.DD.YY" tag and is re-resolved on Rotate.
package textlog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jbelval/wait-time-logger/internal/domain"
)

// SessionPlaceholder is replaced by the session tag in file name patterns.
const SessionPlaceholder = "{session}"

// DefaultPatterns is one file for all sessions and one per session.
var DefaultPatterns = []string{"udp_log_ALL.txt", "udp_log_" + SessionPlaceholder + ".txt"}

// Writer appends message lines to a set of files in one directory.
// It is not safe for concurrent use; the engine serialises calls.
type Writer struct {
	dir      string
	patterns []string
	paths    []string
}

// New creates dir if needed and returns a Writer resolving patterns for session.
func New(dir string, patterns []string, session domain.Session) (*Writer, error) {
	if len(patterns) == 0 {
		return nil, fmt.Errorf("textlog.New: no file patterns")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("textlog.New: %w", err)
	}
	w := &Writer{dir: dir, patterns: patterns}
	w.resolve(session)
	return w, nil
}

// Paths returns the files lines are currently appended to.
func (w *Writer) Paths() []string {
	return append([]string(nil), w.paths...)
}

// Rotate re-resolves file names for session. Files of the previous session
// are left as they are.
func (w *Writer) Rotate(session domain.Session) error {
	w.resolve(session)
	return nil
}

func (w *Writer) resolve(session domain.Session) {
	w.paths = w.paths[:0]
	for _, p := range w.patterns {
		name := strings.ReplaceAll(p, SessionPlaceholder, session.FileTag())
		w.paths = append(w.paths, filepath.Join(w.dir, name))
	}
}

// Append writes one line for message to every file. Files are opened per
// call so a rotated or externally moved file never holds a stale handle.
func (w *Writer) Append(at time.Time, message string) error {
	line := FormatLine(at, message)
	for _, path := range w.paths {
		if err := appendLine(path, line); err != nil {
			return fmt.Errorf("textlog.Writer.Append: %w", err)
		}
	}
	return nil
}

func appendLine(path, line string) (err error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	_, err = f.WriteString(line)
	return err
}

var (
	lineEscaper   = strings.NewReplacer(`\`, `\\`, "\n", `\n`, "\r", `\r`)
	lineUnescaper = strings.NewReplacer(`\\`, `\`, `\n`, "\n", `\r`, "\r")
)

// FormatLine renders one log line, newline included. Backslashes and line
// breaks in message are escaped so every message stays on one line.
func FormatLine(at time.Time, message string) string {
	return at.Format(domain.LogTimeLayout) + domain.LogLineSeparator + lineEscaper.Replace(message) + "\n"
}

// ParseLine splits a log line into its timestamp and message, undoing the
// escaping of FormatLine. ok is false when the line has no valid timestamp
// prefix; message is then the whole line, unchanged. Timestamps are read in loc.
func ParseLine(line string, loc *time.Location) (at time.Time, message string, ok bool) {
	line = strings.TrimRight(line, "\r\n")
	prefixLen := len(domain.LogTimeLayout) + len(domain.LogLineSeparator)
	if len(line) < prefixLen || line[len(domain.LogTimeLayout):prefixLen] != domain.LogLineSeparator {
		return time.Time{}, line, false
	}
	at, err := time.ParseInLocation(domain.LogTimeLayout, line[:len(domain.LogTimeLayout)], loc)
	if err != nil {
		return time.Time{}, line, false
	}
	return at, lineUnescaper.Replace(line[prefixLen:]), true
}
