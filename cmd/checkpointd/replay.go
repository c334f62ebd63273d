package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/jbelval/wait-time-logger/internal/repo"
	"github.com/jbelval/wait-time-logger/internal/service"
	"github.com/jbelval/wait-time-logger/internal/textlog"
)

// logLine is one message read back from a text log.
type logLine struct {
	at      time.Time
	message string
}

// lineIngester is the part of the engine replay feeds.
type lineIngester interface {
	IngestAt(ctx context.Context, at time.Time, message string) error
	Drain(ctx context.Context) error
}

func replayCommand() *cli.Command {
	return &cli.Command{
		Name:      "replay",
		Usage:     "rebuild journeys from a text log file",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "tz",
				Usage: "time zone the log timestamps were written in",
				Value: "Local",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("replay needs exactly one FILE argument", 2)
			}
			loc, err := time.LoadLocation(c.String("tz"))
			if err != nil {
				return fmt.Errorf("load time zone: %w", err)
			}

			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}

			f, err := os.Open(c.Args().First())
			if err != nil {
				return err
			}
			defer f.Close()

			lines, err := readLogLines(f, loc, time.Now)
			if err != nil {
				return err
			}
			if len(lines) == 0 {
				log.Info("nothing to replay", "file", f.Name())
				return nil
			}

			pool, err := openPool(c.Context, cfg.DatabaseURL, log)
			if err != nil {
				return err
			}
			defer pool.Close()

			// Replayed events go to the database only; the text logs already
			// hold them. The first session is the date of the first line.
			first := lines[0].at
			sink := service.NewRecordSink(nil, repo.NewEventRepo(pool), repo.NewJourneyRepo(pool))
			engine := service.NewEngine(sink,
				service.WithLogger(log),
				service.WithClock(func() time.Time { return first }),
				service.WithRolloverGuard(cfg.SessionRolloverGuard),
			)

			if err := replay(c.Context, engine, lines, cfg.AutoSave); err != nil {
				return err
			}
			stats := engine.Stats()
			log.Info("replay complete",
				"file", f.Name(),
				"received", stats.Received,
				"matched", stats.Matched,
				"finalized", stats.Finalized,
				"open_journeys", engine.OpenJourneys(),
			)
			return nil
		},
	}
}

// readLogLines reads every line of r. Lines carrying a timestamp prefix keep
// that time, read in loc; the rest are stamped with now().
func readLogLines(r io.Reader, loc *time.Location, now func() time.Time) ([]logLine, error) {
	var lines []logLine
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		at, message, ok := textlog.ParseLine(sc.Text(), loc)
		if !ok {
			at = now()
		}
		lines = append(lines, logLine{at: at, message: message})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	return lines, nil
}

// replay feeds lines to proc in file order and stops at the first failure.
// With autoSave, journeys still open at the end are finalized, including
// after a failure.
func replay(ctx context.Context, proc lineIngester, lines []logLine, autoSave bool) error {
	var errs []error
	for i, l := range lines {
		if err := proc.IngestAt(ctx, l.at, l.message); err != nil {
			errs = append(errs, fmt.Errorf("line %d: %w", i+1, err))
			break
		}
	}
	if autoSave {
		if err := proc.Drain(context.WithoutCancel(ctx)); err != nil {
			errs = append(errs, fmt.Errorf("drain: %w", err))
		}
	}
	return errors.Join(errs...)
}
