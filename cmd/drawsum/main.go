package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"drawsum/internal/amqp"
	"drawsum/internal/cli"
	apphttp "drawsum/internal/http"
	"drawsum/internal/log"
	"drawsum/internal/report"
	"drawsum/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	cfg := cli.LoadAndValidateConfig(logger)

	sqliteRepo := cli.InitSQLite(logger, cfg.SQLiteDBPath)

	// The API survives a broker outage: publish failures are logged and the
	// worker sweep picks queued jobs up from the store.
	var publisher services.JobPublisher
	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("AMQP unavailable, relying on worker sweep", "error", err)
	} else {
		publisher = amqpClient
		defer amqpClient.Close()
	}

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

	svc := services.NewReportService(sqliteRepo, backend, publisher, cfg.RulesPath, cfg.UploadDir, nil)
	defer svc.Close()

	srv := apphttp.NewServer(":"+cfg.Port, svc, cfg.MaxUploadBytes)

	srv.ReadTimeout = 30 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	logger.Info("Starting drawsum API",
		"port", cfg.Port,
		"backend", cfg.RenderBackend,
		"rules_path", cfg.RulesPath)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
