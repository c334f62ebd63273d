package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/sourcegraph/conc"
	"github.com/urfave/cli/v2"

	"github.com/jbelval/wait-time-logger/internal/config"
	"github.com/jbelval/wait-time-logger/internal/domain"
	"github.com/jbelval/wait-time-logger/internal/handler"
	"github.com/jbelval/wait-time-logger/internal/ingest"
	"github.com/jbelval/wait-time-logger/internal/middleware"
	"github.com/jbelval/wait-time-logger/internal/repo"
	"github.com/jbelval/wait-time-logger/internal/service"
	"github.com/jbelval/wait-time-logger/internal/textlog"
)

const shutdownTimeout = 15 * time.Second

func listenCommand() *cli.Command {
	return &cli.Command{
		Name:  "listen",
		Usage: "receive scanner messages over UDP and serve the status API",
		Action: func(c *cli.Context) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			return listen(c.Context, cfg, log)
		},
	}
}

func listen(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	pool, err := openPool(ctx, cfg.DatabaseURL, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	// --- Engine -----------------------------------------------------------
	logs, err := textlog.New(cfg.LogDir, cfg.LogFiles, domain.SessionOf(time.Now()))
	if err != nil {
		return err
	}
	log.Info("writing text logs", "paths", logs.Paths())

	sink := service.NewRecordSink(logs, repo.NewEventRepo(pool), repo.NewJourneyRepo(pool))
	engine := service.NewEngine(sink,
		service.WithLogger(log),
		service.WithRolloverGuard(cfg.SessionRolloverGuard),
	)

	listener := ingest.New(ingest.Config{
		Addr:           cfg.UDPAddr,
		BufferSize:     cfg.UDPBufferSize,
		ReceiveTimeout: cfg.ReceiveTimeout,
		AutoSave:       cfg.AutoSave,
	}, engine, ingest.WithLogger(log))

	// --- Router -----------------------------------------------------------
	// Middleware order: RequestID → RealIP → Logger → CORS → Recoverer.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(log))
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(chimiddleware.Recoverer)
	r.Mount("/", handler.NewServer(engine, listener, cfg.MaxBodyBytes, log).Routes())

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Run --------------------------------------------------------------
	if err := listener.Start(ctx); err != nil {
		return err
	}

	serveErr := make(chan error, 1)
	var wg conc.WaitGroup
	wg.Go(func() {
		log.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	})

	var errs []error
	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case <-listener.Done():
		log.Error("listener stopped unexpectedly", "error", listener.Err())
	case err := <-serveErr:
		log.Error("server error", "error", err)
		errs = append(errs, err)
	}

	// The listener may already be winding down after a cancelled ctx or a
	// fatal receive error; Stop only applies to a running loop.
	if listener.State() == ingest.StateListening {
		listener.Stop()
	}
	<-listener.Done()
	if err := listener.Err(); err != nil {
		errs = append(errs, err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	wg.Wait()
	select {
	case err := <-serveErr:
		errs = append(errs, err)
	default:
	}

	stats := engine.Stats()
	log.Info("checkpointd stopped",
		"received", stats.Received,
		"finalized", stats.Finalized,
		"open_journeys", engine.OpenJourneys(),
	)
	return errors.Join(errs...)
}

var (
	_ handler.ListenerStatus = (*ingest.Listener)(nil)
	_ handler.Ingester       = (*service.Engine)(nil)
	_ ingest.Processor       = (*service.Engine)(nil)
)
