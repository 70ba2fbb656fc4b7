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

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"bookkeeper/internal/config"
	apphttp "bookkeeper/internal/http"
	"bookkeeper/internal/importer"
	applog "bookkeeper/internal/log"
	"bookkeeper/internal/notify"
	"bookkeeper/internal/services"
	"bookkeeper/internal/staging"
	"bookkeeper/internal/storage"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		slog.Error("Failed to open database", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// Change notifications are optional: without a broker the ledger still
	// works, it just stays quiet.
	var notifier notify.Publisher
	if cfg.AMQPURL != "" {
		client, err := notify.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			slog.Warn("AMQP unavailable, change notifications disabled", "error", err)
		} else {
			defer client.Close()
			notifier = client
			slog.Info("Connected to AMQP broker", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	stage := staging.NewStore(cfg.StagingMaxSize, cfg.StagingTTL)

	categorySvc := services.NewCategoryService(repo, notifier)
	ledgerSvc := services.NewLedgerService(repo, categorySvc, notifier)
	transferSvc := services.NewTransferService(repo, notifier)
	reportSvc := services.NewReportService(repo)
	importSvc := services.NewImportService(repo, ledgerSvc, transferSvc, stage, importer.Limits{
		MaxRows:  cfg.ImportMaxRows,
		MaxBytes: cfg.ImportMaxBytes,
	}, notifier)

	srv := apphttp.NewServer(":"+cfg.Port, ledgerSvc, categorySvc, transferSvc, importSvc, reportSvc)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Starting bookkeeper server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Expired staging batches are swept in the background so an abandoned
	// import does not pin memory for the store's whole lifetime.
	g.Go(func() error {
		ticker := time.NewTicker(cfg.StagingTTL / 2)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := stage.CleanExpired(); n > 0 {
					slog.Debug("Staging cleanup completed", "batches_removed", n)
				}
			case <-gctx.Done():
				return nil
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped gracefully")
}
