// Package rules loads category rule configuration from YAML and falls back
// to an embedded default rule file mirroring the builder draw template.
package rules

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"drawsum/internal/core"
)

//go:embed default_rules.yaml
var defaultRules []byte

// File is the on-disk rule configuration shape.
type File struct {
	Buckets []Bucket    `yaml:"buckets"`
	Options FileOptions `yaml:"options"`
}

// Bucket is one ordered category rule.
type Bucket struct {
	Bucket       string   `yaml:"bucket"`
	AllContains  []string `yaml:"all_contains"`
	AnyContains  []string `yaml:"any_contains"`
	NoneContains []string `yaml:"none_contains"`
}

// FileOptions carries the engine tuning knobs a rule file may override.
type FileOptions struct {
	DrawEquality           string `yaml:"draw_equality"` // normalized | strict
	SuspiciousCeilingCents int64  `yaml:"suspicious_ceiling_cents"`
	TopUnmapped            int    `yaml:"top_unmapped"`
}

// Load reads and validates a rule file. An empty path selects the embedded
// defaults. Validation failures surface before any record is processed.
func Load(path string) (*core.RuleSet, core.Options, error) {
	if path == "" {
		return Parse(defaultRules)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, core.Options{}, fmt.Errorf("read rules file: %w", err)
	}
	rs, opts, err := Parse(data)
	if err != nil {
		return nil, core.Options{}, fmt.Errorf("rules file %s: %w", path, err)
	}
	return rs, opts, nil
}

// Parse decodes a YAML rule document into a validated rule set and options.
func Parse(data []byte) (*core.RuleSet, core.Options, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, core.Options{}, fmt.Errorf("parse rules yaml: %w", err)
	}

	ruleList := make([]core.CategoryRule, 0, len(f.Buckets))
	for _, b := range f.Buckets {
		ruleList = append(ruleList, core.CategoryRule{
			Bucket:       b.Bucket,
			AllContains:  b.AllContains,
			AnyContains:  b.AnyContains,
			NoneContains: b.NoneContains,
		})
	}
	rs, err := core.NewRuleSet(ruleList)
	if err != nil {
		return nil, core.Options{}, err
	}

	opts := core.Options{
		SuspiciousCeilingCents: f.Options.SuspiciousCeilingCents,
		TopUnmapped:            f.Options.TopUnmapped,
	}
	switch f.Options.DrawEquality {
	case "", "normalized":
		opts.DrawEquality = core.DrawEqualityNormalized
	case "strict":
		opts.DrawEquality = core.DrawEqualityStrict
	default:
		return nil, core.Options{}, fmt.Errorf("unknown draw_equality %q", f.Options.DrawEquality)
	}
	return rs, opts, nil
}

// Default returns the embedded rule set. It panics only if the embedded file
// is itself invalid, which a test pins down.
func Default() (*core.RuleSet, core.Options) {
	rs, opts, err := Parse(defaultRules)
	if err != nil {
		panic(fmt.Sprintf("embedded default rules invalid: %v", err))
	}
	return rs, opts
}
