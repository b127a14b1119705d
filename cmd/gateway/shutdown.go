package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/listboard/gateway/internal/observability"
)

// shutdownTimeout bounds the graceful drain on exit.
const shutdownTimeout = 30 * time.Second

// run starts the background loops and the HTTP server, then blocks
// until a shutdown signal arrives or the server fails.
func run(app *application, logger observability.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app.supervisor.Start(ctx)
	app.reaper.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", observability.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", observability.Error(err))
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := app.server.Stop(shutdownCtx); err != nil {
		logger.Error("failed to stop server gracefully", observability.Error(err))
	}

	app.supervisor.Stop()
	app.reaper.Stop()

	// One last write so restarts resume from the freshest view.
	app.registry.Flush()

	logger.Info("gateway stopped")
}
