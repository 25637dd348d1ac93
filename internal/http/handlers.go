package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"drawsum/internal/log"
	"drawsum/internal/storage"
)

// jobResponse is the API view of one job.
type jobResponse struct {
	ID               string          `json:"id"`
	Status           string          `json:"status"`
	Progress         float64         `json:"progress"`
	Message          string          `json:"message,omitempty"`
	OriginalFilename string          `json:"original_filename,omitempty"`
	OutputRef        string          `json:"output_ref,omitempty"`
	QA               json.RawMessage `json:"qa,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func toJobResponse(job *storage.Job) jobResponse {
	resp := jobResponse{
		ID:               job.ID,
		Status:           job.Status,
		Progress:         job.Progress,
		Message:          job.Message,
		OriginalFilename: job.OriginalFilename,
		OutputRef:        job.OutputPath,
		CreatedAt:        job.CreatedAt,
		UpdatedAt:        job.UpdatedAt,
	}
	if len(job.QAReport) > 0 {
		resp.QA = json.RawMessage(job.QAReport)
	}
	return resp
}

var allowedUploadExtensions = map[string]bool{
	".csv": true,
	".txt": true,
}

// handleUpload accepts a multipart CSV export and queues a report job.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > s.maxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("upload exceeds %d bytes", s.maxUploadBytes))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds %d bytes", s.maxUploadBytes))
			return
		}
		writeError(w, http.StatusBadRequest, "multipart form field 'file' is required")
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedUploadExtensions[ext] {
		writeError(w, http.StatusUnsupportedMediaType,
			fmt.Sprintf("unsupported file extension %q, expected .csv", ext))
		return
	}

	job, err := s.jobs.CreateJob(r.Context(), filename, file)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Upload failed",
			log.FieldFilename, filename, log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "failed to accept upload")
		return
	}

	atomic.AddInt64(&s.appMetrics.uploadsTotal, 1)
	writeJSON(w, http.StatusAccepted, toJobResponse(job))
}

// handleJobStatus returns the current state of one job. Finished jobs are
// served from the status cache.
func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "job id is required")
		return
	}

	if resp, ok := s.statusCache.Get(id); ok {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	job, err := s.jobs.GetJob(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Job lookup failed", log.FieldJobID, id, log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "failed to load job")
		return
	}

	resp := toJobResponse(job)
	if job.Terminal() {
		s.statusCache.Set(id, resp)
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleJobDownload serves the rendered summary file for a succeeded job.
// Backends that render somewhere other than the local filesystem report the
// output reference instead.
func (s *Server) handleJobDownload(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "job id is required")
		return
	}

	job, err := s.jobs.GetJob(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Job lookup failed", log.FieldJobID, id, log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "failed to load job")
		return
	}

	switch job.Status {
	case storage.StatusSucceeded:
	case storage.StatusFailed:
		writeError(w, http.StatusConflict, "job failed: "+job.Message)
		return
	default:
		writeError(w, http.StatusConflict, "job is not finished yet")
		return
	}

	info, statErr := os.Stat(job.OutputPath)
	if statErr != nil || info.IsDir() {
		writeJSON(w, http.StatusOK, map[string]string{
			"output_ref": job.OutputPath,
		})
		return
	}

	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", filepath.Base(job.OutputPath)))
	w.Header().Set("Content-Type", "text/csv")
	http.ServeFile(w, r, job.OutputPath)
}

// handleMetrics provides application and security metrics in plain text.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	uploads := atomic.LoadInt64(&s.appMetrics.uploadsTotal)
	rateLimitHits := atomic.LoadInt64(&s.secMetrics.rateLimitHits)
	suspicious := atomic.LoadInt64(&s.secMetrics.suspiciousRequests)
	uptime := time.Since(s.appMetrics.startedAt)

	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "# HELP uploads_total Total number of uploads accepted\n")
	fmt.Fprintf(w, "# TYPE uploads_total counter\n")
	fmt.Fprintf(w, "uploads_total %d\n\n", uploads)

	fmt.Fprintf(w, "# HELP rate_limit_hits_total Total rate limit hits\n")
	fmt.Fprintf(w, "# TYPE rate_limit_hits_total counter\n")
	fmt.Fprintf(w, "rate_limit_hits_total %d\n\n", rateLimitHits)

	fmt.Fprintf(w, "# HELP suspicious_requests_total Total suspicious requests detected\n")
	fmt.Fprintf(w, "# TYPE suspicious_requests_total counter\n")
	fmt.Fprintf(w, "suspicious_requests_total %d\n\n", suspicious)

	fmt.Fprintf(w, "# HELP job_status_cache_entries Current status cache entries\n")
	fmt.Fprintf(w, "# TYPE job_status_cache_entries gauge\n")
	fmt.Fprintf(w, "job_status_cache_entries %d\n\n", s.statusCache.Size())

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %d\n", int64(uptime.Seconds()))
}
