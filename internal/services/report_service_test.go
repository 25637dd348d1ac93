package services

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"drawsum/internal/core"
	"drawsum/internal/report"
	"drawsum/internal/report/csvfile"
	"drawsum/internal/storage"
)

type stubPublisher struct {
	published []string
	err       error
}

func (p *stubPublisher) PublishJob(_ context.Context, jobID string) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, jobID)
	return nil
}

func newTestService(t *testing.T, publisher JobPublisher) (*ReportService, *storage.SQLiteRepository, string) {
	t.Helper()
	dir := t.TempDir()

	repo, err := storage.NewSQLiteRepository(filepath.Join(dir, "jobs.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	outputDir := filepath.Join(dir, "output")
	renderer, err := csvfile.NewRenderer(outputDir)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	backend := &report.Backend{Source: csvfile.NewSource(), Renderer: renderer}

	svc := NewReportService(repo, backend, publisher, "", filepath.Join(dir, "uploads"), nil)
	return svc, repo, outputDir
}

const testCSV = `Lot,Plan,Elevation,Draw,Task,Amount
12/3,A,,Draw 1,(EXT) PRIME ALL SURFACES,100.00
12/3,A,,Draw 1,TOUCH UP KITCHEN,20.00
`

func TestCreateJobSavesUploadAndPublishes(t *testing.T) {
	pub := &stubPublisher{}
	svc, _, _ := newTestService(t, pub)
	ctx := context.Background()

	job, err := svc.CreateJob(ctx, "export.csv", strings.NewReader(testCSV))
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if job.Status != storage.StatusQueued {
		t.Fatalf("status = %q, want %q", job.Status, storage.StatusQueued)
	}
	if job.OriginalFilename != "export.csv" {
		t.Fatalf("original filename = %q", job.OriginalFilename)
	}
	if _, err := os.Stat(job.InputPath); err != nil {
		t.Fatalf("upload file missing: %v", err)
	}
	if len(pub.published) != 1 || pub.published[0] != job.ID {
		t.Fatalf("published = %v, want [%s]", pub.published, job.ID)
	}
}

func TestCreateJobSurvivesPublishFailure(t *testing.T) {
	pub := &stubPublisher{err: errors.New("broker down")}
	svc, repo, _ := newTestService(t, pub)
	ctx := context.Background()

	job, err := svc.CreateJob(ctx, "export.csv", strings.NewReader(testCSV))
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	stored, err := repo.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if stored.Status != storage.StatusQueued {
		t.Fatalf("status = %q, want queued despite publish failure", stored.Status)
	}
}

func TestCreateJobWithoutContent(t *testing.T) {
	svc, _, _ := newTestService(t, nil)

	job, err := svc.CreateJob(context.Background(), "", nil)
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if job.InputPath != "" {
		t.Fatalf("input path = %q, want empty", job.InputPath)
	}
}

func TestProcessJobSucceeds(t *testing.T) {
	svc, repo, outputDir := newTestService(t, &stubPublisher{})
	ctx := context.Background()

	job, err := svc.CreateJob(ctx, "export.csv", strings.NewReader(testCSV))
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	if err := svc.ProcessJob(ctx, job.ID); err != nil {
		t.Fatalf("ProcessJob: %v", err)
	}

	done, err := repo.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if done.Status != storage.StatusSucceeded {
		t.Fatalf("status = %q message = %q, want succeeded", done.Status, done.Message)
	}
	if done.Progress != 1 {
		t.Fatalf("progress = %v, want 1", done.Progress)
	}
	wantOutput := filepath.Join(outputDir, job.ID+".csv")
	if done.OutputPath != wantOutput {
		t.Fatalf("output path = %q, want %q", done.OutputPath, wantOutput)
	}
	if _, err := os.Stat(done.OutputPath); err != nil {
		t.Fatalf("output file missing: %v", err)
	}

	var qa core.QAReport
	if err := json.Unmarshal(done.QAReport, &qa); err != nil {
		t.Fatalf("decode qa report: %v", err)
	}
	if qa.Parse.RowsParsed != 2 {
		t.Fatalf("rows parsed = %d, want 2", qa.Parse.RowsParsed)
	}
}

func TestProcessJobRecordsParseFailure(t *testing.T) {
	svc, repo, _ := newTestService(t, nil)
	ctx := context.Background()

	// No content: the CSV source cannot open an empty input path.
	job, err := svc.CreateJob(ctx, "", nil)
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	if err := svc.ProcessJob(ctx, job.ID); err != nil {
		t.Fatalf("ProcessJob should record the failure, got %v", err)
	}

	failed, err := repo.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if failed.Status != storage.StatusFailed {
		t.Fatalf("status = %q, want failed", failed.Status)
	}
	if !strings.Contains(failed.Message, "parse input") {
		t.Fatalf("message = %q, want parse failure", failed.Message)
	}
}

func TestProcessJobSkipsFinishedJob(t *testing.T) {
	svc, repo, _ := newTestService(t, nil)
	ctx := context.Background()

	job, err := svc.CreateJob(ctx, "export.csv", strings.NewReader(testCSV))
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if err := repo.MarkRunning(ctx, job.ID); err != nil {
		t.Fatalf("MarkRunning: %v", err)
	}
	if err := repo.MarkFailed(ctx, job.ID, "boom"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	if err := svc.ProcessJob(ctx, job.ID); err != nil {
		t.Fatalf("ProcessJob: %v", err)
	}

	still, err := repo.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if still.Status != storage.StatusFailed || still.Message != "boom" {
		t.Fatalf("finished job was touched: %+v", still)
	}
}

func TestProcessJobDropsUnknownJob(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	if err := svc.ProcessJob(context.Background(), "no-such-job"); err != nil {
		t.Fatalf("unknown job should be dropped, got %v", err)
	}
}
