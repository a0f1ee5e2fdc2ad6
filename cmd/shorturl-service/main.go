package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go-shorturl/internal/config"
	"go-shorturl/internal/eventlog"
	httpdelivery "go-shorturl/internal/urlservice/delivery/http"
	"go-shorturl/internal/urlservice/enrichment"
	"go-shorturl/internal/urlservice/shortcode"
	"go-shorturl/internal/urlservice/sweeper"
	"go-shorturl/internal/urlservice/usecase"

	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", os.Getenv("SHORTURL_CONFIG"), "path to a YAML config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, *configPath)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "shorturl-service:", err)
		os.Exit(1)
	}
}

// run serves until ctx is cancelled. Whatever was opened before a failure is
// closed again, the event log last.
func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	sink, err := eventlog.Open(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer sink.Close()

	logger := sink.For("main")

	if _, err := maxprocs.Set(maxprocs.Logger(logger.Sugar().Infof)); err != nil {
		logger.Warn("failed to set GOMAXPROCS", zap.Error(err))
	}

	store, err := openStore(cfg.Storage, cfg.Sweep.Retention, sink.For("store"))
	if err != nil {
		logger.Error("failed to open store", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close store", zap.Error(err))
		}
	}()

	service := usecase.NewResolutionService(store, shortcode.NewGenerator(), enrichment.NewEnricher(), sink.Logger(), usecase.Config{
		DefaultTTL:      cfg.Entry.DefaultTTL,
		CollisionPolicy: usecase.CollisionPolicy(cfg.ShortCode.CollisionPolicy),
		MaxAttempts:     cfg.ShortCode.MaxAttempts,
	})

	if cfg.Sweep.Enabled {
		sweep, err := sweeper.New(store, cfg.Sweep.Schedule, cfg.Sweep.Retention, sink.For("sweeper"))
		if err != nil {
			logger.Error("failed to schedule expiry sweep", zap.Error(err))
			return err
		}
		sweep.Start()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := sweep.Stop(stopCtx); err != nil {
				logger.Error("expiry sweep did not stop in time", zap.Error(err))
			}
		}()
	}

	ln, port, err := listen(cfg.Server.Port, cfg.Server.PortFallbackAttempts, logger)
	if err != nil {
		logger.Error("failed to bind a port", zap.Error(err))
		return err
	}

	baseURL := cfg.Server.BaseURL
	if port != cfg.Server.Port {
		baseURL = rebaseURL(baseURL, cfg.Server.Port, port)
	}

	handler := httpdelivery.NewHandler(service, baseURL, store, sink.For("handler"))
	router := httpdelivery.NewRouter(handler, sink.For("middleware"), cfg.Server.CORSAllowedOrigins)

	srv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.Int("port", port),
			zap.String("base_url", baseURL),
			zap.String("storage", cfg.Storage.Driver),
		)
		serveErr <- srv.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", zap.Error(err))
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
	return nil
}
