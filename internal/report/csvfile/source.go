// Package csvfile reads builder CSV exports and writes summary CSV files.
// Its column detection is shared with the Google Sheets source, which sees
// the same export layouts.
package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"drawsum/internal/core"
)

// How many leading rows may precede the header (title banners, blank lines).
const headerSearchLimit = 10

// Source parses CSV exports. Column positions are discovered from the header
// row by name, not assumed.
type Source struct{}

func NewSource() *Source {
	return &Source{}
}

// ColumnMap holds the detected column index per field, -1 when absent.
type ColumnMap struct {
	Lot       int
	Plan      int
	Elevation int
	Draw      int
	Task      int
	Amount    int
	Date      int
}

var headerSynonyms = map[string][]string{
	"lot":       {"lot", "lot/block", "lot-block", "lot block", "lot #", "lot number", "block"},
	"plan":      {"plan", "plan #", "plan number"},
	"elevation": {"elevation", "elev"},
	"draw":      {"draw", "draw name", "bucket"},
	"task":      {"task", "task name", "task text", "description", "scope of work"},
	"amount":    {"amount", "total", "cost", "price"},
	"date":      {"task start date", "start date", "date"},
}

func matchHeader(cell string, kind string) bool {
	cell = strings.ToLower(strings.TrimSpace(cell))
	for _, syn := range headerSynonyms[kind] {
		if cell == syn {
			return true
		}
	}
	return false
}

// DetectColumns inspects one row as a candidate header. It succeeds when the
// lot, plan, task and amount columns are all present.
func DetectColumns(row []string) (ColumnMap, bool) {
	m := ColumnMap{Lot: -1, Plan: -1, Elevation: -1, Draw: -1, Task: -1, Amount: -1, Date: -1}
	for i, c := range row {
		switch {
		case m.Lot < 0 && matchHeader(c, "lot"):
			m.Lot = i
		case m.Plan < 0 && matchHeader(c, "plan"):
			m.Plan = i
		case m.Elevation < 0 && matchHeader(c, "elevation"):
			m.Elevation = i
		case m.Draw < 0 && matchHeader(c, "draw"):
			m.Draw = i
		case m.Task < 0 && matchHeader(c, "task"):
			m.Task = i
		case m.Amount < 0 && matchHeader(c, "amount"):
			m.Amount = i
		case m.Date < 0 && matchHeader(c, "date"):
			m.Date = i
		}
	}
	ok := m.Lot >= 0 && m.Plan >= 0 && m.Task >= 0 && m.Amount >= 0
	return m, ok
}

// RecordFromRow builds a task record from one data row. The second return is
// false for rows to skip; the skip is already counted in meta.
func RecordFromRow(row []string, cols ColumnMap, meta *core.ParseMeta) (core.TaskRecord, bool) {
	meta.RowsSeen++
	if blankRow(row) {
		meta.Skip("blank row")
		return core.TaskRecord{}, false
	}

	cents, err := core.ParseAmountToCents(Cell(row, cols.Amount))
	if err != nil {
		meta.Skip("invalid amount")
		return core.TaskRecord{}, false
	}

	rec := core.TaskRecord{
		LotBlock:    Cell(row, cols.Lot),
		Plan:        Cell(row, cols.Plan),
		Elevation:   Cell(row, cols.Elevation),
		DrawName:    Cell(row, cols.Draw),
		TaskText:    Cell(row, cols.Task),
		AmountCents: cents,
		StartDate:   ParseDate(Cell(row, cols.Date)),
	}
	meta.RowsParsed++
	return rec, true
}

// Parse reads the CSV file at ref into task records. Rows that cannot carry
// an aggregatable record are skipped and counted, never fatal.
func (s *Source) Parse(ctx context.Context, ref string) ([]core.TaskRecord, core.ParseMeta, error) {
	f, err := os.Open(ref)
	if err != nil {
		return nil, core.ParseMeta{}, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	return s.parse(ctx, f)
}

func (s *Source) parse(ctx context.Context, r io.Reader) ([]core.TaskRecord, core.ParseMeta, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var cols ColumnMap
	found := false
	for i := 0; i < headerSearchLimit; i++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, core.ParseMeta{}, fmt.Errorf("read header: %w", err)
		}
		if cols, found = DetectColumns(row); found {
			break
		}
	}
	if !found {
		return nil, core.ParseMeta{}, fmt.Errorf("no header row with lot, plan, task and amount columns")
	}

	var (
		records []core.TaskRecord
		meta    core.ParseMeta
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, meta, err
		}
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			meta.RowsSeen++
			meta.Skip("malformed row")
			continue
		}
		if rec, ok := RecordFromRow(row, cols, &meta); ok {
			records = append(records, rec)
		}
	}
	return records, meta, nil
}

// Cell returns the trimmed value at idx, or "" when the row is short or the
// column is absent.
func Cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

var dateLayouts = []string{"2006-01-02", "01/02/2006", "1/2/2006", "2006/01/02"}

// ParseDate tries the export date layouts, returning the zero time when none
// fit. A missing date never fails a row.
func ParseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
