package csvfile

import (
	"context"
	"encoding/csv"
	"os"
	"reflect"
	"testing"

	"drawsum/internal/core"
)

func sampleResult() *core.Result {
	return &core.Result{
		Columns: []string{"EXT PRIME", "TOUCH UP", "TOUCH UP (2)"},
		Rows: []core.SummaryRow{
			{
				LotBlock: "12/3", Plan: "A",
				Cells:      map[string]int64{"EXT PRIME": 10000, "TOUCH UP": 2000, "TOUCH UP (2)": 1500},
				TotalCents: 13500,
			},
			{
				LotBlock: "4", Plan: "B",
				Cells:      map[string]int64{"TOUCH UP": 500},
				TotalCents: 500,
			},
		},
		TotalCents:    14000,
		LaborCents:    6020,
		MaterialCents: 3920,
		QA: core.QAReport{
			Parse:             core.ParseMeta{RowsSeen: 5, RowsParsed: 4, RowsSkipped: 1, SkipReasons: map[string]int{"blank row": 1}},
			CountsPerCategory: map[string]int{"EXT PRIME": 1, "TOUCH UP": 2, "TOUCH UP (2)": 1},
			CreatedCategories: []core.CreatedCategory{{Name: "TOUCH UP", Examples: []string{"TOUCH UP"}}},
			UnmappedExamples:  []core.UnmappedExample{{Text: "TOUCH UP", Count: 3}},
		},
	}
}

func TestRender(t *testing.T) {
	dir := t.TempDir()
	renderer, err := NewRenderer(dir)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	path, err := renderer.Render(context.Background(), "job-1", sampleResult())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("read output: %v", err)
	}

	wantHeader := []string{"Lot/Block", "Plan", "EXT PRIME", "TOUCH UP", "TOUCH UP (2)", "Total"}
	if !reflect.DeepEqual(rows[0], wantHeader) {
		t.Fatalf("header = %v, want %v", rows[0], wantHeader)
	}
	wantRow := []string{"12/3", "A", "100.00", "20.00", "15.00", "135.00"}
	if !reflect.DeepEqual(rows[1], wantRow) {
		t.Fatalf("row = %v, want %v", rows[1], wantRow)
	}
	// Columns the house never funded stay empty, not zero.
	wantRow = []string{"4", "B", "", "5.00", "", "5.00"}
	if !reflect.DeepEqual(rows[2], wantRow) {
		t.Fatalf("row = %v, want %v", rows[2], wantRow)
	}

	flat := map[string]bool{}
	for _, row := range rows {
		if len(row) > 0 {
			flat[row[0]] = true
		}
	}
	for _, want := range []string{"Grand Total", "Labor (43%)", "Material (28%)", "QA Report", "Auto-created categories", "Top unmapped task texts"} {
		if !flat[want] {
			t.Fatalf("output missing %q section", want)
		}
	}
}

func TestRenderDeterministic(t *testing.T) {
	dir := t.TempDir()
	renderer, err := NewRenderer(dir)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	p1, err := renderer.Render(context.Background(), "a", sampleResult())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	p2, err := renderer.Render(context.Background(), "b", sampleResult())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	b1, _ := os.ReadFile(p1)
	b2, _ := os.ReadFile(p2)
	if string(b1) != string(b2) {
		t.Fatalf("same result rendered differently")
	}
}
