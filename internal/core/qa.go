package core

// ParseMeta summarizes what the record source saw while parsing an upload.
// It is produced outside the engine and merged into the QA report untouched.
type ParseMeta struct {
	RowsSeen    int            `json:"rows_seen"`
	RowsParsed  int            `json:"rows_parsed"`
	RowsSkipped int            `json:"rows_skipped"`
	SkipReasons map[string]int `json:"skip_reasons,omitempty"`
}

// Skip records one skipped source row under the given reason.
func (m *ParseMeta) Skip(reason string) {
	m.RowsSkipped++
	if m.SkipReasons == nil {
		m.SkipReasons = make(map[string]int)
	}
	m.SkipReasons[reason]++
}

// UnmappedExample is one distinct unmatched task text and how often it
// appeared, ordered most frequent first in the report.
type UnmappedExample struct {
	Text  string `json:"text"`
	Count int    `json:"count"`
}

// SuspiciousRow flags a house total that warrants a human look. Flagging
// never alters the summary itself.
type SuspiciousRow struct {
	LotBlock   string `json:"lot_block"`
	Plan       string `json:"plan"`
	TotalCents int64  `json:"total_cents"`
	Reason     string `json:"reason"`
}

// QAReport is the diagnostic companion of a summary run.
type QAReport struct {
	Parse                  ParseMeta         `json:"parse"`
	RowsSkippedAggregation int               `json:"rows_skipped_aggregation"`
	CountsPerCategory      map[string]int    `json:"counts_per_category"`
	CreatedCategories      []CreatedCategory `json:"created_categories,omitempty"`
	UnmappedExamples       []UnmappedExample `json:"unmapped_examples,omitempty"`
	SuspiciousRows         []SuspiciousRow   `json:"suspicious_rows,omitempty"`
}
