// Package report defines the collaborator ports around the aggregation
// engine: a source that parses uploads into task records and a renderer that
// writes results out, with a factory selecting the configured backend.
package report

import (
	"context"

	"drawsum/internal/core"
)

// Ports for outbound adapters.
type (
	// RecordSource parses an uploaded export into task records plus the
	// parse-stage counters merged into the QA report.
	RecordSource interface {
		Parse(ctx context.Context, ref string) ([]core.TaskRecord, core.ParseMeta, error)
	}

	// SummaryRenderer writes an aggregation result to an output artifact and
	// returns a reference to it: a file path or a spreadsheet range.
	SummaryRenderer interface {
		Render(ctx context.Context, name string, res *core.Result) (string, error)
	}
)
