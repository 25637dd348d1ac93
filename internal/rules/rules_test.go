package rules

import (
	"os"
	"path/filepath"
	"testing"

	"drawsum/internal/core"
)

func TestDefaultRulesValid(t *testing.T) {
	rs, opts := Default()
	buckets := rs.TemplateBuckets()
	if len(buckets) == 0 {
		t.Fatalf("expected template buckets")
	}
	if opts.SuspiciousCeilingCents != 10_000_000 || opts.TopUnmapped != 30 {
		t.Fatalf("unexpected default options %+v", opts)
	}
	if opts.DrawEquality != core.DrawEqualityNormalized {
		t.Fatalf("expected normalized draw equality")
	}
}

func TestDefaultRulesClassification(t *testing.T) {
	rs, _ := Default()
	cases := []struct {
		text   string
		bucket string
	}{
		{"Q4 REVERSAL", "Q4 REVERSAL"},
		{"INSTALL BASE SHOE", "BASE SHOE"},
		{"UNDERCOAT SPRAY", "UNDERCOAT"},
		{"TOUCH UP AFTER CARPET", "TOUCH UP"},
		{"ROLL ALL WALLS FINAL", "ROLL WALLS FINAL"},
		{"(EXT) PRIME WALLS", "EXT PRIME"},
		{"EXTERIOR PAINT [UA]", "EXTERIOR UA"},
		{"EXTERIOR STUCCO", "EXTERIOR"},
		{"(INT) CABINETS", "INTERIOR"},
	}
	for _, tc := range cases {
		rec := core.TaskRecord{TaskText: tc.text}
		cls := rs.Classify(rec, core.ExtractSignals(tc.text))
		if !cls.Matched || cls.Bucket != tc.bucket {
			t.Fatalf("%q: got %+v, want %q", tc.text, cls, tc.bucket)
		}
	}
}

func TestLoadFromFile(t *testing.T) {
	doc := `
buckets:
  - bucket: FENCES
    any_contains: ["fence"]
options:
  draw_equality: strict
  top_unmapped: 5
`
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	rs, opts, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := rs.TemplateBuckets(); len(got) != 1 || got[0] != "FENCES" {
		t.Fatalf("buckets %v", got)
	}
	if opts.DrawEquality != core.DrawEqualityStrict || opts.TopUnmapped != 5 {
		t.Fatalf("options %+v", opts)
	}
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	rs, _, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(rs.TemplateBuckets()) == 0 {
		t.Fatalf("expected embedded defaults")
	}
}

func TestLoadRejectsBadConfig(t *testing.T) {
	cases := []string{
		"buckets: []",
		"buckets:\n  - bucket: X\n", // no predicates
		"buckets:\n  - bucket: X\n    any_contains: [\"a\"]\noptions:\n  draw_equality: fuzzy\n",
		"not yaml: [",
	}
	for i, doc := range cases {
		if _, _, err := Parse([]byte(doc)); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, _, err := Load("/nonexistent/rules.yaml"); err == nil {
		t.Fatalf("expected error")
	}
}
