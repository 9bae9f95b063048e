package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tradewell-erp/tradewell/internal/app"
	"github.com/tradewell-erp/tradewell/internal/documents"
	"github.com/tradewell-erp/tradewell/internal/ledger"
	"github.com/tradewell-erp/tradewell/internal/platform/cache"
	"github.com/tradewell-erp/tradewell/internal/platform/db"
	"github.com/tradewell-erp/tradewell/internal/sequence"
	"github.com/tradewell-erp/tradewell/internal/shared"
	"github.com/tradewell-erp/tradewell/internal/stock"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, statement cache disabled", slog.Any("error", err))
		redisClient = nil
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}
	snapshots := cache.NewSnapshot(redisClient, cfg.StatementTTL)

	auditLogger := shared.NewAuditLogger(pool)
	minter := ledger.NewMinter(nil)

	ledgerRepo := ledger.NewRepository(pool)
	ledgerCoord := ledger.NewCoordinator[ledger.Batch](ledgerRepo, logger)
	ledgerService := ledger.NewService(ledgerCoord, ledgerRepo, minter, snapshots, auditLogger, logger)
	ledgerHandler := ledger.NewHandler(logger, ledgerService)

	stockRepo := stock.NewRepository(pool)
	stockCoord := ledger.NewCoordinator[stock.Batch](stockRepo, logger)
	stockService := stock.NewService(stockCoord, stockRepo, auditLogger, logger)
	stockHandler := stock.NewHandler(logger, stockService)

	seqRepo := sequence.NewRepository(pool)
	docsRepo := documents.NewRepository(pool)
	docsCoord := ledger.NewCoordinator[documents.Batch](docsRepo, logger)
	docsService := documents.NewService(docsCoord, docsRepo, minter, auditLogger, logger)
	docsHandler := documents.NewHandler(logger, docsService, seqRepo)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		LedgerHandler:    ledgerHandler,
		StockHandler:     stockHandler,
		DocumentsHandler: docsHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
