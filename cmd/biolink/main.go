package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/platinummonkey/biolink/pkg/app"
	"github.com/platinummonkey/biolink/pkg/config"
	"github.com/platinummonkey/biolink/pkg/observability"
	"go.uber.org/fx"
)

func main() {
	envFile := flag.String("env-file", ".env", "Optional dotenv file loaded before configuration")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("Failed to load %s: %v", *envFile, err)
	}

	var (
		cfg     *config.Config
		logger  *observability.Logger
		servers app.Servers
		closers []app.Closer
	)
	fxApp := fx.New(
		fx.NopLogger,
		app.Web,
		app.CollectClosers(&closers),
		fx.Populate(&cfg, &logger, &servers),
	)
	if err := fxApp.Err(); err != nil {
		log.Fatalf("Failed to start biolink: %v", err)
	}

	shutdown := observability.NewShutdownManager(logger, servers.API, cfg.Server.ShutdownTimeout)
	shutdown.Register("health server", servers.Health.Shutdown)
	for _, c := range closers {
		shutdown.Register(c.Name, c.Fn)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serve := func(name string, srv *http.Server) {
		defer observability.RecoverPanic(logger, name)
		logger.WithField("addr", srv.Addr).Infof("%s listening", name)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Errorf("%s failed", name)
			stop()
		}
	}
	go serve("health server", servers.Health)
	go serve("api server", servers.API)

	if err := shutdown.Run(ctx); err != nil {
		logger.WithError(err).Error("shutdown incomplete")
		os.Exit(1)
	}
}
