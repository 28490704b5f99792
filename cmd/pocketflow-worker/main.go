package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"pocketflow/internal/amqp"
	"pocketflow/internal/cache"
	"pocketflow/internal/cli"
	"pocketflow/internal/config"
	"pocketflow/internal/log"
	"pocketflow/internal/sheets"
	gsheet "pocketflow/internal/sheets/google"
	memsheet "pocketflow/internal/sheets/memory"
	"pocketflow/internal/worker"
)

const rowCacheSweep = 5 * time.Minute

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg).WithComponent(log.ComponentWorker)
	os.Exit(run(cfg, logger))
}

// run returns the process exit code. Deferred cleanup always happens
// before main exits.
func run(cfg *config.Config, logger *log.Logger) int {
	logger.Info("Starting pocketflow-worker", log.FieldOperation, log.OpStartup)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		return 1
	}

	caches := cache.NewManager(func(removed int) {
		logger.Debug("Row cache sweep", log.FieldCount, removed)
	})
	mirror, err := newMirror(context.Background(), cfg, caches, logger)
	if err != nil {
		logger.Error("Failed to initialize record mirror", log.FieldError, err)
		return 1
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		return 1
	}
	defer amqpClient.Close()

	caches.StartCleanup(rowCacheSweep)
	defer caches.Stop()

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, nil)

	mw := worker.NewMirrorWorker(mirror)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return amqpClient.RunConsumer(gctx, mw.HandleEvent)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Consumer failed", log.FieldError, err)
		return 1
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped", log.FieldOperation, log.OpShutdown)
	return 0
}

// newMirror returns the Google Sheets mirror when a spreadsheet is
// configured and an in-process mirror otherwise.
func newMirror(ctx context.Context, cfg *config.Config, caches *cache.Manager, logger *log.Logger) (sheets.RecordMirror, error) {
	if !cfg.MirrorEnabled() {
		logger.Info("Google Sheets disabled, mirroring in memory")
		return memsheet.New(), nil
	}
	client, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, err
	}
	if err := client.EnsureHeader(ctx); err != nil {
		return nil, err
	}
	caches.Register(client.RowCache())
	logger.Info("Google Sheets mirror ready", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)
	return client, nil
}
