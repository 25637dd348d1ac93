package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"drawsum/internal/core"
	"drawsum/internal/log"
	"drawsum/internal/report"
	"drawsum/internal/rules"
	"drawsum/internal/storage"
)

// JobPublisher enqueues a job id for asynchronous processing.
type JobPublisher interface {
	PublishJob(ctx context.Context, jobID string) error
}

// ReportService orchestrates the upload-to-summary pipeline: it accepts
// uploads, tracks jobs in SQLite, and runs the parse/classify/render stages.
type ReportService struct {
	storage   *storage.SQLiteRepository
	backend   *report.Backend
	publisher JobPublisher
	rulesPath string
	uploadDir string
	logger    *log.Logger
}

func NewReportService(
	store *storage.SQLiteRepository,
	backend *report.Backend,
	publisher JobPublisher,
	rulesPath string,
	uploadDir string,
	logger *log.Logger,
) *ReportService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &ReportService{
		storage:   store,
		backend:   backend,
		publisher: publisher,
		rulesPath: rulesPath,
		uploadDir: uploadDir,
		logger:    logger.WithComponent(log.ComponentReport),
	}
}

// CreateJob persists an uploaded export and enqueues it for processing.
// When content is nil the job carries no input file and the source reads its
// configured default (the Sheets backend reads its input sheet).
//
// The job row is the source of truth. A failed publish is logged, not
// returned: the periodic worker sweep picks queued jobs up regardless.
func (s *ReportService) CreateJob(ctx context.Context, originalFilename string, content io.Reader) (*storage.Job, error) {
	jobID := uuid.NewString()

	inputPath := ""
	if content != nil {
		path, err := s.saveUpload(jobID, originalFilename, content)
		if err != nil {
			return nil, fmt.Errorf("save upload: %w", err)
		}
		inputPath = path
	}

	job := storage.Job{
		ID:               jobID,
		InputPath:        inputPath,
		OriginalFilename: originalFilename,
	}
	if err := s.storage.CreateJob(ctx, job); err != nil {
		if inputPath != "" {
			os.Remove(inputPath)
		}
		return nil, fmt.Errorf("create job: %w", err)
	}

	if s.publisher == nil {
		s.logger.WarnContext(ctx, "No publisher configured, job waits for worker sweep",
			log.FieldJobID, jobID)
	} else if err := s.publisher.PublishJob(ctx, jobID); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish job",
			log.FieldJobID, jobID,
			log.FieldError, err)
	}

	s.logger.InfoContext(ctx, "Created report job",
		log.FieldJobID, jobID,
		log.FieldFilename, originalFilename)

	created, err := s.storage.GetJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("load created job: %w", err)
	}
	return created, nil
}

// GetJob loads one job by id.
func (s *ReportService) GetJob(ctx context.Context, id string) (*storage.Job, error) {
	return s.storage.GetJob(ctx, id)
}

// ProcessJob runs the full pipeline for one queued job. Pipeline failures are
// recorded on the job row and return nil so queue deliveries are not requeued
// forever; only infrastructure errors (job store unreachable) return non-nil.
func (s *ReportService) ProcessJob(ctx context.Context, jobID string) error {
	job, err := s.storage.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, storage.ErrJobNotFound) {
			s.logger.WarnContext(ctx, "Dropping delivery for unknown job", log.FieldJobID, jobID)
			return nil
		}
		return fmt.Errorf("load job %s: %w", jobID, err)
	}
	if job.Terminal() {
		s.logger.InfoContext(ctx, "Skipping finished job",
			log.FieldJobID, jobID,
			log.FieldJobStatus, job.Status)
		return nil
	}

	if err := s.storage.MarkRunning(ctx, jobID); err != nil {
		return fmt.Errorf("mark running %s: %w", jobID, err)
	}

	ruleSet, opts, err := rules.Load(s.rulesPath)
	if err != nil {
		return s.failJob(ctx, jobID, fmt.Errorf("load rules: %w", err))
	}
	engine, err := core.NewEngine(ruleSet, opts)
	if err != nil {
		return s.failJob(ctx, jobID, fmt.Errorf("build engine: %w", err))
	}

	s.progress(ctx, jobID, 0.1, "parsing input")
	records, meta, err := s.backend.Source.Parse(ctx, job.InputPath)
	if err != nil {
		return s.failJob(ctx, jobID, fmt.Errorf("parse input: %w", err))
	}

	s.progress(ctx, jobID, 0.5, "classifying and aggregating")
	res := engine.Run(records, meta)

	s.progress(ctx, jobID, 0.8, "rendering summary")
	outputRef, err := s.backend.Renderer.Render(ctx, jobID, res)
	if err != nil {
		return s.failJob(ctx, jobID, fmt.Errorf("render summary: %w", err))
	}

	qaJSON, err := json.Marshal(res.QA)
	if err != nil {
		return s.failJob(ctx, jobID, fmt.Errorf("encode qa report: %w", err))
	}

	if err := s.storage.MarkSucceeded(ctx, jobID, outputRef, qaJSON); err != nil {
		return fmt.Errorf("mark succeeded %s: %w", jobID, err)
	}

	s.logger.InfoContext(ctx, "Processed report job",
		log.FieldJobID, jobID,
		log.FieldRows, len(res.Rows),
		log.FieldColumns, len(res.Columns),
		log.FieldTotal, res.TotalCents)
	return nil
}

func (s *ReportService) failJob(ctx context.Context, jobID string, cause error) error {
	s.logger.ErrorContext(ctx, "Report job failed",
		log.FieldJobID, jobID,
		log.FieldError, cause)
	if err := s.storage.MarkFailed(ctx, jobID, cause.Error()); err != nil {
		return fmt.Errorf("mark failed %s: %w", jobID, err)
	}
	return nil
}

func (s *ReportService) progress(ctx context.Context, jobID string, value float64, message string) {
	if err := s.storage.UpdateProgress(ctx, jobID, value, message); err != nil {
		s.logger.WarnContext(ctx, "Failed to record progress",
			log.FieldJobID, jobID,
			log.FieldError, err)
	}
}

// saveUpload writes the upload under the upload directory, keyed by job id so
// concurrent uploads of the same filename never collide.
func (s *ReportService) saveUpload(jobID, originalFilename string, content io.Reader) (string, error) {
	dir := s.uploadDir
	if dir == "" {
		dir = "uploads"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create upload directory: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(originalFilename))
	if ext == "" {
		ext = ".csv"
	}
	path := filepath.Join(dir, jobID+ext)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	if _, err := io.Copy(f, content); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write upload file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close upload file: %w", err)
	}
	return path, nil
}

// Close closes the job store.
func (s *ReportService) Close() error {
	if s.storage != nil {
		return s.storage.Close()
	}
	return nil
}
