package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"drawsum/internal/core"
)

// Renderer writes one summary CSV per job: the per-house table, the run
// totals, and a QA appendix.
type Renderer struct {
	outputDir string
}

func NewRenderer(outputDir string) (*Renderer, error) {
	if outputDir == "" {
		outputDir = "output"
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	return &Renderer{outputDir: outputDir}, nil
}

// Render writes the result to <outputDir>/<name>.csv and returns the path.
func (r *Renderer) Render(ctx context.Context, name string, res *core.Result) (string, error) {
	path := filepath.Join(r.outputDir, name+".csv")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := writeSummary(w, res); err != nil {
		return "", err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("write output file: %w", err)
	}
	return path, nil
}

func writeSummary(w *csv.Writer, res *core.Result) error {
	header := append([]string{"Lot/Block", "Plan"}, res.Columns...)
	header = append(header, "Total")
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, row := range res.Rows {
		out := make([]string, 0, len(header))
		out = append(out, row.LotBlock, row.Plan)
		for _, col := range res.Columns {
			if cents, ok := row.Cells[col]; ok {
				out = append(out, core.FormatCents(cents))
			} else {
				out = append(out, "")
			}
		}
		out = append(out, core.FormatCents(row.TotalCents))
		if err := w.Write(out); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	rows := [][]string{
		{},
		{"Grand Total", core.FormatCents(res.TotalCents)},
		{"Labor (43%)", core.FormatCents(res.LaborCents)},
		{"Material (28%)", core.FormatCents(res.MaterialCents)},
	}
	rows = append(rows, qaRows(res.QA)...)
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write summary row: %w", err)
		}
	}
	return nil
}

func qaRows(qa core.QAReport) [][]string {
	rows := [][]string{
		{},
		{"QA Report"},
		{"Rows seen", strconv.Itoa(qa.Parse.RowsSeen)},
		{"Rows parsed", strconv.Itoa(qa.Parse.RowsParsed)},
		{"Rows skipped (parse)", strconv.Itoa(qa.Parse.RowsSkipped)},
		{"Rows skipped (aggregation)", strconv.Itoa(qa.RowsSkippedAggregation)},
	}
	reasons := make([]string, 0, len(qa.Parse.SkipReasons))
	for reason := range qa.Parse.SkipReasons {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		rows = append(rows, []string{"Skip reason: " + reason, strconv.Itoa(qa.Parse.SkipReasons[reason])})
	}
	if len(qa.CreatedCategories) > 0 {
		rows = append(rows, []string{}, []string{"Auto-created categories"})
		for _, cc := range qa.CreatedCategories {
			row := append([]string{cc.Name}, cc.Examples...)
			rows = append(rows, row)
		}
	}
	if len(qa.UnmappedExamples) > 0 {
		rows = append(rows, []string{}, []string{"Top unmapped task texts"})
		for _, u := range qa.UnmappedExamples {
			rows = append(rows, []string{u.Text, strconv.Itoa(u.Count)})
		}
	}
	if len(qa.SuspiciousRows) > 0 {
		rows = append(rows, []string{}, []string{"Suspicious rows"})
		for _, s := range qa.SuspiciousRows {
			rows = append(rows, []string{s.LotBlock, s.Plan, core.FormatCents(s.TotalCents), s.Reason})
		}
	}
	return rows
}
