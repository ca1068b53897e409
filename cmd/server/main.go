package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/willemschots/newsletter/assets"
	"github.com/willemschots/newsletter/internal"
	"github.com/willemschots/newsletter/internal/db"
	"github.com/willemschots/newsletter/internal/db/migrate"
	"github.com/willemschots/newsletter/internal/email"
	"github.com/willemschots/newsletter/internal/email/sendgrid"
	"github.com/willemschots/newsletter/internal/email/view"
	"github.com/willemschots/newsletter/internal/subscription"
	subdb "github.com/willemschots/newsletter/internal/subscription/db"
	"github.com/willemschots/newsletter/internal/web"
	"github.com/willemschots/newsletter/migrations"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Stderr))
}

func run(ctx context.Context, w io.Writer) int {
	logger := slog.New(slog.NewTextHandler(w, nil))

	cfg, err := configFromEnv()
	if err != nil {
		logger.Error("failed to get config from environment", "error", err)
		return 1
	}

	sqlDB, err := db.OpenSQLite(cfg.db.file, true)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return 1
	}

	defer func() {
		if err := sqlDB.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	if cfg.db.migrate {
		logger.Info("attempting to migrate database", "filename", cfg.db.file)

		meta := migrate.Metadata{
			AppVersion: internal.BuildRevision,
			Timestamp:  internal.BuildRevisionTime,
		}

		ran, err := migrate.RunFS(ctx, sqlDB, migrations.FS, meta)
		if err != nil {
			logger.Error("failed to migrate database", "error", err)
			return 1
		}

		for _, m := range ran {
			logger.Info("migration ran", "sequence", m.Sequence, "filename", m.Filename)
		}
	}

	sender, err := emailSender(logger, cfg)
	if err != nil {
		logger.Error("failed to setup email sender", "error", err)
		return 1
	}

	emailSvc := email.NewService(view.NewFSRenderer(assets.EmailFS), sender, cfg.email.from)

	subSvc := subscription.NewService(subdb.New(sqlDB), emailSvc, subscription.ServiceConfig{
		BaseURL: cfg.baseURL,
	})

	srv := &http.Server{
		Addr:         cfg.http.addr,
		ReadTimeout:  cfg.http.readTimeout,
		WriteTimeout: cfg.http.writeTimeout,
		IdleTimeout:  cfg.http.idleTimeout,
		Handler: web.NewServer(&web.ServerDeps{
			Logger:              logger,
			SubscriptionService: subSvc,
		}),
	}

	// We need to run two tasks concurrently:
	// - Listen and serving of the HTTP server.
	// - Waiting for a signal to stop the server.

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server",
			"addr", cfg.http.addr,
			"baseURL", cfg.baseURL,
			"emailDriver", cfg.email.driver,
			"buildRevision", internal.BuildRevision,
			"buildRevisionTime", internal.BuildRevisionTime,
			"buildLocalModified", internal.BuildLocalModified,
		)
		// ListenAndServe always returns a non-nil error,
		// g will cancel gCtx when an error is returned, so
		// this will also stop the other goroutine.
		return srv.ListenAndServe()
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("stopping http server")

		shutCtx, cancel := context.WithTimeout(context.Background(), cfg.http.shutdownTimeout)
		defer cancel()

		return srv.Shutdown(shutCtx)
	})

	err = g.Wait()
	if err != nil && err != http.ErrServerClosed {
		logger.Error("http server stopped with error", "error", err)
		return 1
	}

	logger.Info("http server stopped successfully")

	return 0
}

func emailSender(logger *slog.Logger, cfg config) (email.Sender, error) {
	switch cfg.email.driver {
	case "log":
		return email.NewLogSender(logger), nil
	case "sendgrid":
		if len(cfg.email.sendgrid.APIToken.SecretValue()) == 0 {
			return nil, fmt.Errorf("sendgrid driver requires SENDGRID_API_TOKEN")
		}

		client := &http.Client{
			Timeout: cfg.email.timeout,
		}

		return sendgrid.NewSender(client, cfg.email.sendgrid), nil
	default:
		return nil, fmt.Errorf("unknown email driver %q", cfg.email.driver)
	}
}
