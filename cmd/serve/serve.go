// Package serve implements the HTTP server command.
package serve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"

	"github.com/dalanapp/dalan-go/internal/api"
	"github.com/dalanapp/dalan-go/internal/auth"
	"github.com/dalanapp/dalan-go/internal/conf"
	"github.com/dalanapp/dalan-go/internal/datastore"
	"github.com/dalanapp/dalan-go/internal/detector"
	"github.com/dalanapp/dalan-go/internal/entries"
	"github.com/dalanapp/dalan-go/internal/imagestore"
	"github.com/dalanapp/dalan-go/internal/jobqueue"
	"github.com/dalanapp/dalan-go/internal/logging"
	"github.com/dalanapp/dalan-go/internal/observability"
)

// Command creates the serve command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the API server and the detection queue consumer",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), settings)
		},
	}

	cmd.Flags().StringVarP(&settings.WebServer.Port, "port", "p", settings.WebServer.Port, "Port to listen on")
	return cmd
}

func run(ctx context.Context, settings *conf.Settings) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ds := datastore.New(settings)
	if err := ds.Open(); err != nil {
		return fmt.Errorf("failed to open datastore: %w", err)
	}
	defer func() {
		if err := ds.Close(); err != nil {
			logging.Error("failed to close datastore", "error", err)
		}
	}()

	store, err := imagestore.New(ctx, settings)
	if err != nil {
		return fmt.Errorf("failed to initialize image store: %w", err)
	}

	det, err := detector.New(settings)
	if err != nil {
		return fmt.Errorf("failed to initialize detector: %w", err)
	}

	metrics, err := observability.NewMetrics()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}

	queue := jobqueue.NewQueue(settings.JobQueue.Size, metrics.JobQueue)
	service := entries.New(ds, store, det, queue, settings, metrics)

	consumer := jobqueue.NewConsumer(queue, service, settings.JobQueue.Workers, metrics.JobQueue)
	consumer.Start(ctx)

	opts := []api.Option{api.WithMetrics(metrics)}
	if settings.Auth.Enabled {
		provider, err := auth.NewClient(settings)
		if err != nil {
			return fmt.Errorf("failed to initialize auth client: %w", err)
		}
		opts = append(opts, api.WithAuthProvider(provider))
	}

	e := echo.New()
	e.HideBanner = true
	controller := api.New(e, settings, service, opts...)
	defer controller.Shutdown()

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%s", settings.WebServer.Port)
		logging.Info("starting API server", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logging.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logging.Error("server shutdown failed", "error", err)
	}
	consumer.Wait()
	return nil
}
