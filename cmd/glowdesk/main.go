package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/glowdesk/glowdesk/internal/app"
	"github.com/glowdesk/glowdesk/internal/banking"
	"github.com/glowdesk/glowdesk/internal/catalog/locations"
	"github.com/glowdesk/glowdesk/internal/catalog/products"
	"github.com/glowdesk/glowdesk/internal/inventory"
	"github.com/glowdesk/glowdesk/internal/ledger/accounts"
	"github.com/glowdesk/glowdesk/internal/ledger/journals"
	"github.com/glowdesk/glowdesk/internal/ledger/mappings"
	"github.com/glowdesk/glowdesk/internal/ledger/reports"
	"github.com/glowdesk/glowdesk/internal/posting"
	"github.com/glowdesk/glowdesk/internal/platform/cache"
	"github.com/glowdesk/glowdesk/internal/platform/db"
	"github.com/glowdesk/glowdesk/internal/shared"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	// Reports stay available without Redis; they just skip the cache.
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, report caching disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}
	}()

	idempotencyStore := shared.NewIdempotencyStore(pool)

	accountsSvc := accounts.NewService(accounts.NewRepository(pool))
	journalsSvc := journals.NewService(journals.NewRepository(pool))

	reportCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)
	journalsSvc.WithCache(reportCache)
	reportsSvc := reports.NewService(reports.NewRepository(pool), reportCache)

	productsRepo := products.NewRepository(pool)
	locationsRepo := locations.NewRepository(pool)

	postingSvc := posting.NewService(
		logger,
		posting.NewRepository(pool),
		mappings.NewRepository(pool),
		productsRepo,
		idempotencyStore,
		reportCache,
	)
	bankingSvc := banking.NewService(banking.NewRepository(pool))
	inventorySvc := inventory.NewService(inventory.NewRepository(pool))

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		AccountsHandler:  accounts.NewHandler(logger, accountsSvc),
		JournalsHandler:  journals.NewHandler(logger, journalsSvc),
		ReportsHandler:   reports.NewHandler(logger, reportsSvc),
		PostingHandler:   posting.NewHandler(logger, postingSvc),
		BankingHandler:   banking.NewHandler(logger, bankingSvc),
		InventoryHandler: inventory.NewHandler(logger, inventorySvc),
		ProductsHandler:  products.NewHandler(logger, productsRepo),
		LocationsHandler: locations.NewHandler(logger, locationsRepo),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	// Expired idempotency keys are swept in the background so the table does
	// not grow without bound.
	group.Go(func() error {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-groupCtx.Done():
				return nil
			case <-ticker.C:
				if err := idempotencyStore.Cleanup(groupCtx, cfg.IdempotencyRetention); err != nil {
					logger.Warn("idempotency cleanup", slog.Any("error", err))
				}
			}
		}
	})

	if err := group.Wait(); err != nil {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}
