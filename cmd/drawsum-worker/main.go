package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"drawsum/internal/amqp"
	"drawsum/internal/cli"
	"drawsum/internal/log"
	"drawsum/internal/report"
	"drawsum/internal/services"
	"drawsum/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting drawsum-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	sqliteRepo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer sqliteRepo.Close()

	backend, err := report.NewBackend(context.Background(), report.Config{
		Type:      report.BackendType(cfg.RenderBackend),
		OutputDir: cfg.OutputDir,
	}, log.New(log.DefaultConfig()))
	if err != nil {
		logger.Error("Failed to initialize report backend", "error", err, "backend", cfg.RenderBackend)
		os.Exit(1)
	}
	if backend.Cleanup != nil {
		defer func() { _ = backend.Cleanup() }()
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	// The worker never publishes, it only consumes.
	svc := services.NewReportService(sqliteRepo, backend, nil, cfg.RulesPath, cfg.UploadDir, nil)

	reportWorker := worker.NewReportWorker(sqliteRepo, svc, cfg.WorkerBatchSize, cfg.StaleAfter)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Drain jobs queued while the worker was down before consuming new ones.
	if err := reportWorker.StartupRecovery(ctx); err != nil {
		logger.Error("Startup recovery failed", "error", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return amqpClient.ConsumeJobs(ctx, func(msg *amqp.JobMessage) error {
			return reportWorker.HandleJobMessage(ctx, msg)
		})
	})

	g.Go(func() error {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if err := reportWorker.ProcessPendingJobs(ctx); err != nil {
					logger.Error("Periodic sweep failed", "error", err)
				}
			}
		}
	})

	logger.Info("Worker running",
		"queue", cfg.AMQPQueue,
		"sweep_interval", cfg.SweepInterval.String(),
		"batch_size", cfg.WorkerBatchSize)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
