package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"finance/internal/cache"
	"finance/internal/cli"
	"finance/internal/config"
	apphttp "finance/internal/http"
	"finance/internal/log"
	"finance/internal/services"

	"golang.org/x/sync/errgroup"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig()

	if err := run(cfg, logger); err != nil {
		logger.Error("Server exited with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	backendResult, err := cli.OpenBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}

	var publisher services.EventPublisher
	if client := cli.ConnectAMQP(cfg, logger); client != nil {
		publisher = client
	} else {
		logger.Warn("AMQP client not available, ledger events will not be published")
	}

	svc := services.NewLedgerService(backendResult.Store, publisher, logger, services.Options{
		UndoDepth: cfg.UndoDepth,
		CacheSize: cfg.ReportCacheSize,
		CacheTTL:  cfg.ReportCacheTTL,
	})
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Error("Failed to close ledger service", log.FieldError, err)
		}
	}()

	if err := svc.Load(ctx); err != nil {
		return err
	}

	caches := cache.NewManager(logger)
	caches.Register(svc.ReportCache())
	cleanupEvery := cfg.ReportCacheTTL
	if cleanupEvery <= 0 {
		cleanupEvery = 10 * time.Minute
	}
	caches.StartCleanup(cleanupEvery)
	defer caches.Stop()

	srv := apphttp.NewServer(":"+cfg.Port, svc, logger)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting finance server", "port", cfg.Port, log.FieldBackend, cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
			return err
		}
		return nil
	})
	return g.Wait()
}
