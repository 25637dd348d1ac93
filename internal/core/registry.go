package core

import "strings"

// CreatedCategory is an auto-created bucket with up to three of the task
// texts that produced it, kept for the QA report.
type CreatedCategory struct {
	Name     string   `json:"name"`
	Examples []string `json:"examples,omitempty"`
}

const (
	maxCategoryNameLen = 35
	maxCreatedExamples = 3
	fallbackAutoLabel  = "UNMAPPED"
	uaSuffix           = " UA"
)

// CategoryRegistry tracks the summary columns of one run: the template
// buckets are always present, auto-created buckets are appended in first
// appearance order. Lookup is by canonical name, so differently formatted
// labels that normalize identically converge on one category.
type CategoryRegistry struct {
	columns      []string
	byCanonical  map[string]string
	created      map[string]*CreatedCategory
	createdOrder []string
}

// NewCategoryRegistry seeds the registry with the template buckets in the
// given order.
func NewCategoryRegistry(templates []string) *CategoryRegistry {
	cr := &CategoryRegistry{
		byCanonical: make(map[string]string, len(templates)),
		created:     make(map[string]*CreatedCategory),
	}
	for _, t := range templates {
		c := CanonicalName(t)
		if c == "" {
			continue
		}
		if _, ok := cr.byCanonical[c]; ok {
			continue
		}
		cr.byCanonical[c] = strings.TrimSpace(t)
		cr.columns = append(cr.columns, strings.TrimSpace(t))
	}
	return cr
}

// Resolve returns the category for an unmatched record, creating it on first
// sight. The name derives from the record's own text, so the same unmapped
// work converges on the same column across records and across runs.
func (cr *CategoryRegistry) Resolve(rec TaskRecord, sig Signals) string {
	name := AutoCategoryName(rec, sig)
	canonical := CanonicalName(name)
	if existing, ok := cr.byCanonical[canonical]; ok {
		if cc, ok := cr.created[canonical]; ok && len(cc.Examples) < maxCreatedExamples {
			cc.Examples = append(cc.Examples, rec.TaskText)
		}
		return existing
	}
	cr.byCanonical[canonical] = name
	cr.columns = append(cr.columns, name)
	cr.created[canonical] = &CreatedCategory{Name: name, Examples: []string{rec.TaskText}}
	cr.createdOrder = append(cr.createdOrder, canonical)
	return name
}

// Columns returns every known column in order: templates first, then
// auto-created buckets by first appearance.
func (cr *CategoryRegistry) Columns() []string {
	out := make([]string, len(cr.columns))
	copy(out, cr.columns)
	return out
}

// Created returns the auto-created categories in creation order.
func (cr *CategoryRegistry) Created() []CreatedCategory {
	out := make([]CreatedCategory, 0, len(cr.createdOrder))
	for _, c := range cr.createdOrder {
		out = append(out, *cr.created[c])
	}
	return out
}

// AutoCategoryName derives a deterministic column name for a record no rule
// matched: the scope fragment of its task text (draw label as fallback),
// EXT/INT prefixed from the signals, truncated to 35 characters with a UA
// suffix preserved across truncation.
func AutoCategoryName(rec TaskRecord, sig Signals) string {
	base := ExtractScopeFragment(rec.TaskText)
	if base == "" {
		base = strings.TrimSpace(rec.DrawName)
	}
	if base == "" {
		return fallbackAutoLabel
	}
	name := NormalizeTaskText(base)

	if sig.IsUA && !strings.HasSuffix(name, uaSuffix) && name != "UA" {
		name += uaSuffix
	}
	switch {
	case sig.IsExterior && !strings.HasPrefix(name, "EXT"):
		name = "EXT " + name
	case sig.IsInterior && !strings.HasPrefix(name, "INT"):
		name = "INT " + name
	}

	if len(name) > maxCategoryNameLen {
		if strings.HasSuffix(name, uaSuffix) {
			name = strings.TrimSpace(name[:maxCategoryNameLen-len(uaSuffix)]) + uaSuffix
		} else {
			name = strings.TrimSpace(name[:maxCategoryNameLen])
		}
	}
	return name
}
