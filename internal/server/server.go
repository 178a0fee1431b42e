// Package server wires the datastore, ingestor, external service clients
// and HTTP API together and manages the server lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/haritpath/pestwatch/internal/advisory"
	"github.com/haritpath/pestwatch/internal/api"
	"github.com/haritpath/pestwatch/internal/classifier"
	"github.com/haritpath/pestwatch/internal/conf"
	"github.com/haritpath/pestwatch/internal/datastore"
	"github.com/haritpath/pestwatch/internal/detection"
	"github.com/haritpath/pestwatch/internal/ingest"
	"github.com/haritpath/pestwatch/internal/logging"
	"github.com/haritpath/pestwatch/internal/observability"
)

const shutdownTimeout = 10 * time.Second

// Run starts the PestWatch server and blocks until the context is
// cancelled or a termination signal is received.
func Run(ctx context.Context, settings *conf.Settings) error {
	log := logging.ForService("server")

	if settings.Main.Log.Enabled {
		fileLog, closeLog, err := logging.NewFileLogger(settings.Main.Log.Path, "server", slog.LevelInfo)
		if err != nil {
			return fmt.Errorf("initializing file logger: %w", err)
		}
		defer func() { _ = closeLog() }()
		log = fileLog
	}

	metrics, err := observability.NewMetrics()
	if err != nil {
		return fmt.Errorf("initializing metrics: %w", err)
	}

	store := datastore.New(settings)
	if store == nil {
		return fmt.Errorf("no database output enabled")
	}
	if err := store.Open(); err != nil {
		return fmt.Errorf("opening datastore: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil && log != nil {
			log.Error("Failed to close datastore", "error", err)
		}
	}()

	ingestor, err := ingest.New(settings)
	if err != nil {
		return fmt.Errorf("initializing ingestor: %w", err)
	}

	cls := classifier.NewHTTP(settings)
	adv := advisory.NewGemini(settings)
	if settings.Advisory.APIKey == "" && log != nil {
		// Startup continues; every advisory call will degrade to the
		// fallback text until a key is configured.
		log.Warn("Advisory API key not configured, advisories will use the fallback text")
	}

	processor := detection.New(settings, store, ingestor, cls, adv, metrics)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	api.New(e, settings, store, processor, metrics, ingestor.BaseDir())

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Retention sweeper runs for the lifetime of the server.
	if sweeper := ingest.NewSweeper(settings, ingestor); sweeper != nil {
		go sweeper.Start(ctx)
	}

	errChan := make(chan error, 1)
	go func() {
		addr := ":" + settings.WebServer.Port
		if log != nil {
			log.Info("Starting server", "addr", addr)
		}
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	if log != nil {
		log.Info("Shutting down server")
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
