// Command app is the demo microservice deployed into the local cluster.
// It serves a greeting on / and exports request-count metrics on /metrics.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	hhttp "monitoring-app/internal/handler/http"
	"monitoring-app/internal/observability/logging"
	"monitoring-app/internal/observability/tracing"
	"monitoring-app/pkg/config"
)

// serverConfig holds the runtime settings read from the environment.
type serverConfig struct {
	Port            int
	ShutdownTimeout time.Duration
	Version         string
}

func main() {
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	cfg := loadServerConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, cfg); err != nil {
		logger.Error("server failed", slog.Any("error", err))
		os.Exit(1)
	}
}

// loadServerConfig reads APP_PORT, APP_SHUTDOWN_TIMEOUT and VERSION.
func loadServerConfig() serverConfig {
	return serverConfig{
		Port:            config.GetEnvInt("APP_PORT", 5000, config.ValidatePort),
		ShutdownTimeout: config.GetEnvDuration("APP_SHUTDOWN_TIMEOUT", 5*time.Second, validateShutdownTimeout),
		Version:         config.GetEnvString("VERSION", "dev"),
	}
}

func validateShutdownTimeout(d time.Duration) error {
	return config.ValidateDurationRange(d, time.Second, time.Minute)
}

// newReadiness builds the readiness flag served on /ready. Tests replace it
// to observe the flag across shutdown.
var newReadiness = func() *hhttp.Readiness { return &hhttp.Readiness{} }

// run serves until ctx is cancelled, then drains within cfg.ShutdownTimeout.
func run(ctx context.Context, logger *slog.Logger, cfg serverConfig) error {
	shutdownTracing := tracing.Init()
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("tracer provider shutdown failed", slog.Any("error", err))
		}
	}()

	readiness := newReadiness()
	srv := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Port),
		Handler: hhttp.NewRouter(hhttp.RouterConfig{
			Logger:    logger,
			Readiness: readiness,
			Version:   cfg.Version,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return logging.WithLogger(context.Background(), logger)
		},
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", srv.Addr, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server starting",
			slog.String("addr", srv.Addr),
			slog.String("version", cfg.Version))
		readiness.SetReady(true)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server...")
		readiness.SetReady(false)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		logger.Info("server stopped")
		return nil
	})

	return g.Wait()
}
