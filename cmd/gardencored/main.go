// Command gardencored serves the garden registry over HTTP.
package main

import (
	"context"
	"errors"
	"expvar"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gardencore/internal/adapters/archive"
	"gardencore/internal/adapters/httpapi"
	"gardencore/internal/core"
	"gardencore/internal/infra/blob"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	if err := run(); err != nil {
		slog.Error("gardencored exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine := core.NewDefaultRulesEngine()
	store, err := core.OpenPersistentStore(engine)
	if err != nil {
		return err
	}
	defer func() {
		if closer, ok := store.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				logger.Warn("closing store", "error", err)
			}
		}
	}()

	registry := prometheus.NewRegistry()
	metrics := core.NewPrometheusMetricsRecorder(registry)

	service := core.NewService(store,
		core.WithLogger(logger),
		core.WithMetricsRecorder(metrics),
	)

	blobs, err := blob.Open(ctx)
	if err != nil {
		return err
	}
	logger.Info("blob store ready", "driver", string(blobs.Driver()))

	archives := archive.NewWorker(store, blobs, archive.SlogAuditLogger{Logger: logger})
	archives.Start()
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := archives.Stop(stopCtx); err != nil {
			logger.Warn("stopping archive worker", "error", err)
		}
	}()

	api := httpapi.NewHandler(service)
	api.Archives = archives

	mux := http.NewServeMux()
	mux.Handle("/api/v1/", api)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.Handle("/debug/vars", expvar.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	addr := os.Getenv("GARDENCORE_HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

func logLevel() slog.Level {
	switch os.Getenv("GARDENCORE_LOG_LEVEL") {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
