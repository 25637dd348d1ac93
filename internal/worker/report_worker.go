// Package worker consumes report jobs from the queue and sweeps the job
// store for work that missed a queue delivery.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"drawsum/internal/amqp"
	"drawsum/internal/storage"
)

// JobProcessor runs the report pipeline for one job id.
type JobProcessor interface {
	ProcessJob(ctx context.Context, jobID string) error
}

// ReportWorker drives job processing from two directions: AMQP deliveries
// for low latency, and a periodic job-store sweep as the backstop when
// messages are lost or the broker was down.
type ReportWorker struct {
	storage    *storage.SQLiteRepository
	processor  JobProcessor
	batchSize  int
	staleAfter time.Duration
}

func NewReportWorker(store *storage.SQLiteRepository, processor JobProcessor, batchSize int, staleAfter time.Duration) *ReportWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	return &ReportWorker{
		storage:    store,
		processor:  processor,
		batchSize:  batchSize,
		staleAfter: staleAfter,
	}
}

// HandleJobMessage processes a single job delivery from AMQP.
func (w *ReportWorker) HandleJobMessage(ctx context.Context, msg *amqp.JobMessage) error {
	slog.InfoContext(ctx, "Processing job message",
		"job_id", msg.JobID,
		"attempt", msg.Attempt)

	if err := w.processor.ProcessJob(ctx, msg.JobID); err != nil {
		return fmt.Errorf("process job %s: %w", msg.JobID, err)
	}
	return nil
}

// ProcessPendingJobs picks up queued jobs and running jobs stuck longer than
// the stale window. Per-job failures are logged and do not stop the sweep.
func (w *ReportWorker) ProcessPendingJobs(ctx context.Context) error {
	return w.sweep(ctx, w.batchSize)
}

// StartupRecovery drains the backlog accumulated while the worker was down.
// It uses a larger batch than the periodic sweep.
func (w *ReportWorker) StartupRecovery(ctx context.Context) error {
	pending, err := w.storage.ListPendingJobs(ctx, w.batchSize*5, w.staleAfter)
	if err != nil {
		return fmt.Errorf("list pending jobs for startup recovery: %w", err)
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending jobs found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending jobs on startup, processing...",
		"count", len(pending))

	processed := 0
	failed := 0
	for _, job := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.processor.ProcessJob(ctx, job.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to process job during startup recovery",
				"job_id", job.ID, "error", err)
			failed++
			continue
		}
		processed++
	}

	slog.InfoContext(ctx, "Startup recovery completed",
		"total", len(pending),
		"processed", processed,
		"errors", failed)
	return nil
}

func (w *ReportWorker) sweep(ctx context.Context, limit int) error {
	pending, err := w.storage.ListPendingJobs(ctx, limit, w.staleAfter)
	if err != nil {
		return fmt.Errorf("list pending jobs: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.DebugContext(ctx, "Sweeping pending jobs", "count", len(pending))

	for _, job := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.processor.ProcessJob(ctx, job.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to process pending job",
				"job_id", job.ID, "error", err)
		}
	}
	return nil
}
