package core

import (
	"reflect"
	"testing"
)

func testEngine(t *testing.T, rules []CategoryRule, opts Options) *Engine {
	t.Helper()
	rs := mustRuleSet(t, rules)
	e, err := NewEngine(rs, opts)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func extPrimeRules() []CategoryRule {
	return []CategoryRule{
		{Bucket: "EXT PRIME", AllContains: []string{"exterior", "prime"}},
	}
}

func TestRunExampleScenario(t *testing.T) {
	e := testEngine(t, extPrimeRules(), Options{})
	records := []TaskRecord{
		{LotBlock: "12/3", Plan: "A", DrawName: "D1", TaskText: "EXTERIOR PRIME WALLS", AmountCents: 10000},
		{LotBlock: "12/3", Plan: "A", DrawName: "D2", TaskText: "TOUCH UP", AmountCents: 2000},
		{LotBlock: "12/3", Plan: "A", DrawName: "D3", TaskText: "TOUCH UP", AmountCents: 1500},
	}

	res := e.Run(records, ParseMeta{RowsSeen: 3, RowsParsed: 3})

	if len(res.Rows) != 1 {
		t.Fatalf("expected one row, got %d", len(res.Rows))
	}
	row := res.Rows[0]
	if row.LotBlock != "12/3" || row.Plan != "A" {
		t.Fatalf("unexpected key %q/%q", row.LotBlock, row.Plan)
	}
	wantCells := map[string]int64{
		"EXT PRIME":    10000,
		"TOUCH UP":     2000,
		"TOUCH UP (2)": 1500,
	}
	if !reflect.DeepEqual(row.Cells, wantCells) {
		t.Fatalf("cells = %v, want %v", row.Cells, wantCells)
	}
	if row.TotalCents != 13500 || res.TotalCents != 13500 {
		t.Fatalf("total = %d / %d, want 13500", row.TotalCents, res.TotalCents)
	}

	wantCols := []string{"EXT PRIME", "TOUCH UP", "TOUCH UP (2)"}
	if !reflect.DeepEqual(res.Columns, wantCols) {
		t.Fatalf("columns = %v, want %v", res.Columns, wantCols)
	}

	if res.LaborCents != 5805 || res.MaterialCents != 3780 {
		t.Fatalf("labor/material = %d/%d, want 5805/3780", res.LaborCents, res.MaterialCents)
	}
}

func TestRunNegativeTotalSuspicious(t *testing.T) {
	e := testEngine(t, extPrimeRules(), Options{})
	records := []TaskRecord{
		{LotBlock: "7", Plan: "B", DrawName: "D1", TaskText: "Q4 REVERSAL", AmountCents: -5000},
	}

	res := e.Run(records, ParseMeta{RowsSeen: 1, RowsParsed: 1})

	if res.TotalCents != -5000 || res.Rows[0].TotalCents != -5000 {
		t.Fatalf("negative amount must stay in the sums, got %d", res.TotalCents)
	}
	if len(res.QA.SuspiciousRows) != 1 {
		t.Fatalf("expected one suspicious row, got %v", res.QA.SuspiciousRows)
	}
	s := res.QA.SuspiciousRows[0]
	if s.Reason != "negative total" || s.TotalCents != -5000 {
		t.Fatalf("unexpected flag %+v", s)
	}
}

func TestRunSuspiciousCeiling(t *testing.T) {
	e := testEngine(t, extPrimeRules(), Options{SuspiciousCeilingCents: 100_000})
	records := []TaskRecord{
		{LotBlock: "1", Plan: "A", DrawName: "D1", TaskText: "EXTERIOR PRIME", AmountCents: 100_001},
	}
	res := e.Run(records, ParseMeta{})
	if len(res.QA.SuspiciousRows) != 1 || res.QA.SuspiciousRows[0].Reason != "total above ceiling" {
		t.Fatalf("expected ceiling flag, got %v", res.QA.SuspiciousRows)
	}
}

func TestRunNoDollarsLost(t *testing.T) {
	e := testEngine(t, extPrimeRules(), Options{})
	records := []TaskRecord{
		{LotBlock: "1", Plan: "A", DrawName: "D1", TaskText: "EXTERIOR PRIME", AmountCents: 100},
		{LotBlock: "1", Plan: "A", DrawName: "D2", TaskText: "ODD JOB ONE", AmountCents: 250},
		{LotBlock: "2", Plan: "B", DrawName: "D1", TaskText: "ODD JOB TWO", AmountCents: -75},
		{LotBlock: "2", Plan: "B", DrawName: "D2", TaskText: "", AmountCents: 33},
		{LotBlock: "", Plan: "", DrawName: "D1", TaskText: "SKIPPED", AmountCents: 999999},
	}

	res := e.Run(records, ParseMeta{})

	var input, rows int64
	for _, rec := range records[:4] {
		input += rec.AmountCents
	}
	for _, r := range res.Rows {
		rows += r.TotalCents
	}
	if rows != input || res.TotalCents != input {
		t.Fatalf("dollars lost: rows=%d total=%d input=%d", rows, res.TotalCents, input)
	}
	if res.QA.RowsSkippedAggregation != 1 {
		t.Fatalf("expected one aggregation skip, got %d", res.QA.RowsSkippedAggregation)
	}
}

func TestRunDeterminism(t *testing.T) {
	e := testEngine(t, extPrimeRules(), Options{})
	records := []TaskRecord{
		{LotBlock: "3", Plan: "C", DrawName: "D1", TaskText: "EXTERIOR PRIME", AmountCents: 10},
		{LotBlock: "1", Plan: "A", DrawName: "D1", TaskText: "STUCCO WALLS", AmountCents: 20},
		{LotBlock: "2", Plan: "B", DrawName: "D2", TaskText: "STUCCO WALLS", AmountCents: 30},
		{LotBlock: "1", Plan: "A", DrawName: "D2", TaskText: "STUCCO WALLS", AmountCents: 40},
	}

	a := e.Run(records, ParseMeta{})
	b := e.Run(records, ParseMeta{})
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("two runs over identical input differ")
	}

	// Row and column order follow first appearance, not key order.
	if a.Rows[0].LotBlock != "3" || a.Rows[1].LotBlock != "1" || a.Rows[2].LotBlock != "2" {
		t.Fatalf("row order not first-appearance: %v", a.Rows)
	}
}

func TestRunGroupingUniqueness(t *testing.T) {
	e := testEngine(t, extPrimeRules(), Options{})
	records := []TaskRecord{
		{LotBlock: "0044/", Plan: "1509", Elevation: "C", DrawName: "D1", TaskText: "EXTERIOR PRIME", AmountCents: 10},
		{LotBlock: "44", Plan: "1509C", DrawName: "D1", TaskText: "EXTERIOR PRIME", AmountCents: 20},
	}
	res := e.Run(records, ParseMeta{})
	if len(res.Rows) != 1 {
		t.Fatalf("cleaned keys must collapse to one row, got %d", len(res.Rows))
	}
	if res.Rows[0].Cells["EXT PRIME"] != 30 {
		t.Fatalf("amounts under one key and draw must merge, got %v", res.Rows[0].Cells)
	}
}

func TestRunDuplicateDrawSplitting(t *testing.T) {
	e := testEngine(t, extPrimeRules(), Options{})
	records := []TaskRecord{
		// Same draw: merge. New draw, same category: sibling column.
		{LotBlock: "9", Plan: "D", DrawName: "DRAW 1", TaskText: "STUCCO WALLS", AmountCents: 100},
		{LotBlock: "9", Plan: "D", DrawName: "DRAW 1", TaskText: "STUCCO WALLS", AmountCents: 50},
		{LotBlock: "9", Plan: "D", DrawName: "DRAW 2", TaskText: "STUCCO WALLS", AmountCents: 25},
		{LotBlock: "9", Plan: "D", DrawName: "DRAW 3", TaskText: "STUCCO WALLS", AmountCents: 10},
		// A different house counts its draws independently.
		{LotBlock: "10", Plan: "D", DrawName: "DRAW 2", TaskText: "STUCCO WALLS", AmountCents: 7},
	}

	res := e.Run(records, ParseMeta{})

	first := res.Rows[0].Cells
	want := map[string]int64{
		"STUCCO WALLS":     150,
		"STUCCO WALLS (2)": 25,
		"STUCCO WALLS (3)": 10,
	}
	if !reflect.DeepEqual(first, want) {
		t.Fatalf("cells = %v, want %v", first, want)
	}
	second := res.Rows[1].Cells
	if second["STUCCO WALLS"] != 7 || len(second) != 1 {
		t.Fatalf("second house should start at the base column, got %v", second)
	}
}

func TestRunDrawEquality(t *testing.T) {
	records := []TaskRecord{
		{LotBlock: "9", Plan: "D", DrawName: "DRAW 1", TaskText: "STUCCO WALLS", AmountCents: 100},
		{LotBlock: "9", Plan: "D", DrawName: " draw  1 ", TaskText: "STUCCO WALLS", AmountCents: 50},
	}

	// Whitespace and case variants of one draw name merge by default.
	e := testEngine(t, extPrimeRules(), Options{DrawEquality: DrawEqualityNormalized})
	res := e.Run(records, ParseMeta{})
	if res.Rows[0].Cells["STUCCO WALLS"] != 150 {
		t.Fatalf("normalized equality should merge, got %v", res.Rows[0].Cells)
	}

	// Strict equality keeps them apart. Documented edge case: the source
	// format does not pin this down, so it stays configurable.
	e = testEngine(t, extPrimeRules(), Options{DrawEquality: DrawEqualityStrict})
	res = e.Run(records, ParseMeta{})
	cells := res.Rows[0].Cells
	if cells["STUCCO WALLS"] != 100 || cells["STUCCO WALLS (2)"] != 50 {
		t.Fatalf("strict equality should split, got %v", cells)
	}
}

func TestRunEmptyDrawMergesIntoBase(t *testing.T) {
	e := testEngine(t, extPrimeRules(), Options{})
	records := []TaskRecord{
		{LotBlock: "9", Plan: "D", DrawName: "DRAW 1", TaskText: "STUCCO WALLS", AmountCents: 100},
		{LotBlock: "9", Plan: "D", DrawName: "", TaskText: "STUCCO WALLS", AmountCents: 11},
	}
	res := e.Run(records, ParseMeta{})
	if res.Rows[0].Cells["STUCCO WALLS"] != 111 {
		t.Fatalf("unlabeled draws merge into the base column, got %v", res.Rows[0].Cells)
	}
}

func TestRunQAReport(t *testing.T) {
	e := testEngine(t, extPrimeRules(), Options{TopUnmapped: 2})
	records := []TaskRecord{
		{LotBlock: "1", Plan: "A", DrawName: "D1", TaskText: "EXTERIOR PRIME", AmountCents: 10},
		{LotBlock: "1", Plan: "A", DrawName: "D2", TaskText: "ODD JOB ONE", AmountCents: 10},
		{LotBlock: "2", Plan: "A", DrawName: "D1", TaskText: "ODD JOB ONE", AmountCents: 10},
		{LotBlock: "2", Plan: "A", DrawName: "D2", TaskText: "ODD JOB TWO", AmountCents: 10},
		{LotBlock: "3", Plan: "A", DrawName: "D1", TaskText: "ODD JOB THREE", AmountCents: 10},
	}
	meta := ParseMeta{RowsSeen: 6, RowsParsed: 5, RowsSkipped: 1, SkipReasons: map[string]int{"blank row": 1}}

	res := e.Run(records, meta)
	qa := res.QA

	if qa.Parse.RowsSeen != 6 || qa.Parse.SkipReasons["blank row"] != 1 {
		t.Fatalf("parse meta not merged: %+v", qa.Parse)
	}
	if qa.CountsPerCategory["EXT PRIME"] != 1 || qa.CountsPerCategory["ODD JOB ONE"] != 2 {
		t.Fatalf("unexpected counts %v", qa.CountsPerCategory)
	}
	if len(qa.CreatedCategories) != 3 {
		t.Fatalf("expected three created categories, got %v", qa.CreatedCategories)
	}
	// Top-N capped at 2, most frequent first.
	if len(qa.UnmappedExamples) != 2 {
		t.Fatalf("expected two unmapped examples, got %v", qa.UnmappedExamples)
	}
	if qa.UnmappedExamples[0].Text != "ODD JOB ONE" || qa.UnmappedExamples[0].Count != 2 {
		t.Fatalf("unexpected top unmapped %+v", qa.UnmappedExamples[0])
	}
	if qa.UnmappedExamples[1].Text != "ODD JOB TWO" {
		t.Fatalf("frequency ties break by first appearance, got %+v", qa.UnmappedExamples[1])
	}
}
