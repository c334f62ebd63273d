package main

import (
	"github.com/urfave/cli/v2"

	"github.com/jbelval/wait-time-logger/migrations"
)

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "apply pending database migrations",
		Action: func(c *cli.Context) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}

			db, err := openSQLDB(c.Context, cfg.DatabaseURL, log)
			if err != nil {
				return err
			}
			defer db.Close()

			results, err := migrations.Up(c.Context, db)
			if err != nil {
				return err
			}
			for _, r := range results {
				log.Info("migration applied",
					"version", r.Source.Version,
					"path", r.Source.Path,
					"duration", r.Duration.String(),
				)
			}
			log.Info("database is up to date", "applied", len(results))
			return nil
		},
	}
}
