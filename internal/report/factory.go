package report

import (
	"context"
	"fmt"

	"drawsum/internal/log"
	"drawsum/internal/report/csvfile"
	gsheet "drawsum/internal/report/google"
	"drawsum/internal/report/memory"
)

// BackendType selects the record-source / renderer pair.
type BackendType string

const (
	CSVBackend    BackendType = "csv"
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case CSVBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// CSV specific
	OutputDir string
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Backend bundles the source and renderer for one configured backend.
type Backend struct {
	Source   RecordSource
	Renderer SummaryRenderer
	Cleanup  CleanupFunc
}

// NewBackend creates the configured source/renderer pair.
func NewBackend(ctx context.Context, config Config, logger *log.Logger) (*Backend, error) {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if !config.Type.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", config.Type)
	}

	switch config.Type {
	case CSVBackend:
		src := csvfile.NewSource()
		renderer, err := csvfile.NewRenderer(config.OutputDir)
		if err != nil {
			return nil, fmt.Errorf("initialize csv renderer: %w", err)
		}
		logger.Info("Initialized CSV backend", log.FieldBackend, config.Type.String(), "output_dir", config.OutputDir)
		return &Backend{Source: src, Renderer: renderer}, nil

	case SheetsBackend:
		cli, err := gsheet.NewFromEnv(ctx)
		if err != nil {
			return nil, fmt.Errorf("initialize Google Sheets client: %w", err)
		}
		logger.Info("Initialized Google Sheets backend", log.FieldBackend, config.Type.String())
		return &Backend{Source: cli, Renderer: cli}, nil

	case MemoryBackend:
		store := memory.New()
		logger.Info("Initialized memory backend", log.FieldBackend, config.Type.String())
		return &Backend{Source: store, Renderer: store}, nil

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}
