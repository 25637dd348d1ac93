package core

import (
	"fmt"
	"strings"
)

// CategoryRule maps task text to one template bucket. A predicate token
// matches when the corresponding signal fired or the token appears as a
// whole word in the normalized text.
type CategoryRule struct {
	Bucket       string
	AllContains  []string
	AnyContains  []string
	NoneContains []string
}

func (r CategoryRule) hasPredicate() bool {
	return len(r.AllContains) > 0 || len(r.AnyContains) > 0 || len(r.NoneContains) > 0
}

func (r CategoryRule) predicateKey() string {
	return fmt.Sprintf("all=%v any=%v none=%v", r.AllContains, r.AnyContains, r.NoneContains)
}

// RuleSet is an ordered list of rules. Order is priority: the first rule
// whose predicates all hold wins.
type RuleSet struct {
	rules []CategoryRule
}

// NewRuleSet validates and freezes an ordered rule list. Rules without any
// predicate and duplicate buckets with different predicates are configuration
// errors surfaced at load time, before any record is processed.
func NewRuleSet(rules []CategoryRule) (*RuleSet, error) {
	if len(rules) == 0 {
		return nil, ErrEmptyRuleSet
	}
	seen := make(map[string]string, len(rules))
	for i, r := range rules {
		bucket := CanonicalName(r.Bucket)
		if bucket == "" {
			return nil, fmt.Errorf("rule %d: empty bucket name: %w", i, ErrRuleNoPredicate)
		}
		if !r.hasPredicate() {
			return nil, fmt.Errorf("rule %d (%s): %w", i, r.Bucket, ErrRuleNoPredicate)
		}
		key := r.predicateKey()
		if prev, ok := seen[bucket]; ok && prev != key {
			return nil, fmt.Errorf("rule %d (%s): %w", i, r.Bucket, ErrConflictingRule)
		}
		seen[bucket] = key
	}
	out := make([]CategoryRule, len(rules))
	copy(out, rules)
	return &RuleSet{rules: out}, nil
}

// Rules returns the rule list in priority order.
func (rs *RuleSet) Rules() []CategoryRule {
	out := make([]CategoryRule, len(rs.rules))
	copy(out, rs.rules)
	return out
}

// Classification is the outcome of matching one record against the rule set.
// When no rule matches the record flows to auto-category creation; matching
// itself never fails.
type Classification struct {
	Matched   bool
	Bucket    string
	RuleIndex int
}

// Classify runs the ordered rules against the record's normalized text and
// extracted signals. First match wins.
func (rs *RuleSet) Classify(rec TaskRecord, sig Signals) Classification {
	normalized := NormalizeTaskText(rec.TaskText)
	for i, r := range rs.rules {
		if ruleMatches(r, normalized, sig) {
			return Classification{Matched: true, Bucket: strings.TrimSpace(r.Bucket), RuleIndex: i}
		}
	}
	return Classification{Matched: false, RuleIndex: -1}
}

func ruleMatches(r CategoryRule, normalized string, sig Signals) bool {
	for _, tok := range r.AllContains {
		if !tokenMatches(tok, normalized, sig) {
			return false
		}
	}
	if len(r.AnyContains) > 0 {
		any := false
		for _, tok := range r.AnyContains {
			if tokenMatches(tok, normalized, sig) {
				any = true
				break
			}
		}
		if !any {
			return false
		}
	}
	for _, tok := range r.NoneContains {
		if tokenMatches(tok, normalized, sig) {
			return false
		}
	}
	return true
}

// tokenMatches checks one predicate token against the signal bundle first,
// then falls back to a whole-word search in the normalized text. Tokens are
// themselves normalized so rule files can use any casing or separator.
func tokenMatches(token, normalized string, sig Signals) bool {
	tok := NormalizeTaskText(token)
	if tok == "" {
		return false
	}
	if signalToken(tok, sig) {
		return true
	}
	return hasWord(normalized, tok)
}

func signalToken(tok string, sig Signals) bool {
	switch tok {
	case "EXT", "EXTERIOR":
		return sig.IsExterior
	case "INT", "INTERIOR":
		return sig.IsInterior
	case "UA":
		return sig.IsUA
	case "OP":
		return sig.IsOP
	case "LS":
		return sig.IsLS
	case "PRIME":
		return sig.KeywordPrime
	case "TOUCH UP", "TOUCHUP":
		return sig.KeywordTouchUp
	case "ROLL WALLS":
		return sig.KeywordRollWalls
	case "UNDERCOAT":
		return sig.KeywordUndercoat
	case "BASE SHOE":
		return sig.KeywordBaseShoe
	}
	return false
}

// TemplateBuckets returns the distinct bucket names in rule order. These are
// the always-present summary columns.
func (rs *RuleSet) TemplateBuckets() []string {
	seen := make(map[string]bool, len(rs.rules))
	out := make([]string, 0, len(rs.rules))
	for _, r := range rs.rules {
		c := CanonicalName(r.Bucket)
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, strings.TrimSpace(r.Bucket))
	}
	return out
}
