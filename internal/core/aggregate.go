package core

import (
	"fmt"
	"sort"
	"strings"
)

// DrawEquality decides when two draw labels name the same draw occurrence.
type DrawEquality int

const (
	// DrawEqualityNormalized folds case and whitespace before comparing.
	DrawEqualityNormalized DrawEquality = iota
	// DrawEqualityStrict compares the raw labels byte for byte.
	DrawEqualityStrict
)

// String names the mode for logs and tooling.
func (d DrawEquality) String() string {
	if d == DrawEqualityStrict {
		return "strict"
	}
	return "normalized"
}

func (d DrawEquality) key(drawName string) string {
	if d == DrawEqualityStrict {
		return drawName
	}
	return NormalizeTaskText(drawName)
}

// Default engine thresholds.
const (
	DefaultSuspiciousCeilingCents int64 = 10_000_000 // $100,000
	DefaultTopUnmapped                  = 30

	laborPercent    = 43
	materialPercent = 28
)

// Options tune a summary run. The zero value is usable: normalized draw
// equality and the default QA thresholds.
type Options struct {
	DrawEquality           DrawEquality
	SuspiciousCeilingCents int64
	TopUnmapped            int
}

func (o Options) withDefaults() Options {
	if o.SuspiciousCeilingCents == 0 {
		o.SuspiciousCeilingCents = DefaultSuspiciousCeilingCents
	}
	if o.TopUnmapped == 0 {
		o.TopUnmapped = DefaultTopUnmapped
	}
	return o
}

// SummaryRow is one house: its grouping key, the cents per column, and the
// row total. Cells holds only columns that received money.
type SummaryRow struct {
	LotBlock   string           `json:"lot_block"`
	Plan       string           `json:"plan"`
	Cells      map[string]int64 `json:"cells"`
	TotalCents int64            `json:"total_cents"`
}

// Result is the complete outcome of one run: the column order, the rows in
// first-appearance order, the run totals, and the QA report.
type Result struct {
	Columns       []string     `json:"columns"`
	Rows          []SummaryRow `json:"rows"`
	TotalCents    int64        `json:"total_cents"`
	LaborCents    int64        `json:"labor_cents"`
	MaterialCents int64        `json:"material_cents"`
	QA            QAReport     `json:"qa"`
}

// Engine runs the full classification and aggregation pipeline over a batch
// of records. It holds no per-run state; each Run is independent and
// deterministic for the same inputs.
type Engine struct {
	rules *RuleSet
	opts  Options
}

// NewEngine builds an engine over a validated rule set.
func NewEngine(rules *RuleSet, opts Options) (*Engine, error) {
	if rules == nil || len(rules.rules) == 0 {
		return nil, ErrEmptyRuleSet
	}
	return &Engine{rules: rules, opts: opts.withDefaults()}, nil
}

type rowState struct {
	key      GroupKey
	cells    map[string]int64
	total    int64
	drawCols map[string]map[string]string // category -> draw key -> column
	drawSeen map[string]int               // category -> draw occurrences opened
}

type unmappedCount struct {
	text  string
	count int
	seq   int
}

// Run classifies and aggregates the records. Every input dollar lands in
// exactly one cell of exactly one row; records without a usable grouping key
// are skipped and counted, never fatal.
func (e *Engine) Run(records []TaskRecord, meta ParseMeta) *Result {
	registry := NewCategoryRegistry(e.rules.TemplateBuckets())

	rows := make(map[GroupKey]*rowState)
	var rowOrder []GroupKey

	// Column order: templates first, then every new column at first use.
	colSeen := make(map[string]bool)
	var columns []string
	for _, c := range registry.Columns() {
		colSeen[c] = true
		columns = append(columns, c)
	}
	touch := func(col string) {
		if !colSeen[col] {
			colSeen[col] = true
			columns = append(columns, col)
		}
	}

	counts := make(map[string]int)
	unmapped := make(map[string]*unmappedCount)
	skipped := 0

	for _, rec := range records {
		if err := rec.Validate(); err != nil {
			skipped++
			continue
		}
		key := rec.Key()
		row, ok := rows[key]
		if !ok {
			row = &rowState{
				key:      key,
				cells:    make(map[string]int64),
				drawCols: make(map[string]map[string]string),
				drawSeen: make(map[string]int),
			}
			rows[key] = row
			rowOrder = append(rowOrder, key)
		}

		sig := ExtractSignals(rec.TaskText)
		cls := e.rules.Classify(rec, sig)
		var category string
		if cls.Matched {
			category = cls.Bucket
		} else {
			category = registry.Resolve(rec, sig)
			text := NormalizeTaskText(rec.TaskText)
			if text == "" {
				text = strings.TrimSpace(rec.DrawName)
			}
			if u, ok := unmapped[text]; ok {
				u.count++
			} else {
				unmapped[text] = &unmappedCount{text: text, count: 1, seq: len(unmapped)}
			}
		}

		col := e.columnFor(row, category, rec.DrawName)
		touch(col)
		row.cells[col] += rec.AmountCents
		row.total += rec.AmountCents
		counts[col]++
	}

	result := &Result{Columns: columns}
	for _, key := range rowOrder {
		row := rows[key]
		result.Rows = append(result.Rows, SummaryRow{
			LotBlock:   key.LotBlock,
			Plan:       key.Plan,
			Cells:      row.cells,
			TotalCents: row.total,
		})
		result.TotalCents += row.total
	}
	result.LaborCents = percentCents(result.TotalCents, laborPercent)
	result.MaterialCents = percentCents(result.TotalCents, materialPercent)

	result.QA = QAReport{
		Parse:                  meta,
		RowsSkippedAggregation: skipped,
		CountsPerCategory:      counts,
		CreatedCategories:      registry.Created(),
		UnmappedExamples:       topUnmapped(unmapped, e.opts.TopUnmapped),
		SuspiciousRows:         e.suspiciousRows(result.Rows),
	}
	return result
}

// columnFor applies the duplicate-draw rule: within one house, the first
// draw that feeds a category lands in the base column and each later
// distinct draw opens the next numbered sibling. Records sharing a draw
// merge; records without a draw label always merge into the base column.
func (e *Engine) columnFor(row *rowState, category, drawName string) string {
	drawKey := e.opts.DrawEquality.key(drawName)
	if drawKey == "" {
		return category
	}
	canonical := CanonicalName(category)
	byDraw, ok := row.drawCols[canonical]
	if !ok {
		byDraw = make(map[string]string)
		row.drawCols[canonical] = byDraw
	}
	if col, ok := byDraw[drawKey]; ok {
		return col
	}
	row.drawSeen[canonical]++
	n := row.drawSeen[canonical]
	col := category
	if n > 1 {
		col = fmt.Sprintf("%s (%d)", category, n)
	}
	byDraw[drawKey] = col
	return col
}

func (e *Engine) suspiciousRows(rows []SummaryRow) []SuspiciousRow {
	var out []SuspiciousRow
	for _, r := range rows {
		switch {
		case r.TotalCents < 0:
			out = append(out, SuspiciousRow{
				LotBlock: r.LotBlock, Plan: r.Plan,
				TotalCents: r.TotalCents, Reason: "negative total",
			})
		case r.TotalCents > e.opts.SuspiciousCeilingCents:
			out = append(out, SuspiciousRow{
				LotBlock: r.LotBlock, Plan: r.Plan,
				TotalCents: r.TotalCents, Reason: "total above ceiling",
			})
		}
	}
	return out
}

func topUnmapped(m map[string]*unmappedCount, limit int) []UnmappedExample {
	entries := make([]*unmappedCount, 0, len(m))
	for _, u := range m {
		entries = append(entries, u)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].seq < entries[j].seq
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]UnmappedExample, len(entries))
	for i, u := range entries {
		out[i] = UnmappedExample{Text: u.text, Count: u.count}
	}
	return out
}
