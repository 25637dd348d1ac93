package core

import (
	"regexp"
	"strings"
)

// Signals is the bundle of normalized facts extracted from one task text.
// Extraction is pure text analysis: the same text always yields the same
// signals, and unrecognized text yields the zero value, which is a valid
// mapper input rather than an error.
type Signals struct {
	// Location markers
	IsExterior bool
	IsInterior bool

	// Designation markers
	IsUA bool
	IsOP bool
	IsLS bool

	// Keyword markers
	KeywordPrime     bool
	KeywordTouchUp   bool
	KeywordRollWalls bool
	KeywordUndercoat bool
	KeywordBaseShoe  bool

	// Pattern markers
	HasJobCode bool
	JobCode    string

	// Audit trail of what fired, in extraction order.
	Matched []string
}

var (
	sepRe        = regexp.MustCompile(`[-_—/]`)
	spaceRe      = regexp.MustCompile(`\s+`)
	edgePunctRe  = regexp.MustCompile(`^[^\w]+|[^\w]+$`)
	jobCodeRe    = regexp.MustCompile(`\((\d{5,})\)`)
	rollWallRe   = regexp.MustCompile(`ROLL\w*\s+(?:\w+\s+){0,10}(?:WALL|WALLS|CEILING)`)
	leadingISORe = regexp.MustCompile(`^\d{4}[-/]\d{2}[-/]\d{2}\s*`)
	leadingUSRe  = regexp.MustCompile(`^\d{2}[-/]\d{2}[-/]\d{4}\s*`)
	paintPrefRe  = regexp.MustCompile(`(?i)^PAINTING\s*[-–—]?\s*`)
	bracketRe    = regexp.MustCompile(`\[[\w\s\-]+\]`)
	parenMarkRe  = regexp.MustCompile(`(?i)\((?:INT|EXT)\)`)
	trailDashRe  = regexp.MustCompile(`\s*[-–—]\s*$`)
)

// NormalizeTaskText uppercases the text, folds separators (-, /, _, em dash)
// to spaces and collapses whitespace. Parentheses and brackets are kept so
// marker extraction still sees (EXT) and [UA].
func NormalizeTaskText(text string) string {
	if text == "" {
		return ""
	}
	s := strings.ToUpper(text)
	s = sepRe.ReplaceAllString(s, " ")
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// CanonicalName converts a category name to its canonical matching form:
// uppercase, edge punctuation stripped, whitespace collapsed. Category
// identity is the canonical name.
func CanonicalName(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToUpper(strings.TrimSpace(s))
	s = edgePunctRe.ReplaceAllString(s, "")
	return spaceRe.ReplaceAllString(s, " ")
}

// ExtractScopeFragment reduces a task text to the human-readable scope used
// for auto-created column names: leading dates, a PAINTING prefix, bracket
// codes, numeric job codes and (INT)/(EXT) markers are stripped.
func ExtractScopeFragment(taskText string) string {
	if taskText == "" {
		return ""
	}
	s := strings.TrimSpace(taskText)
	s = leadingISORe.ReplaceAllString(s, "")
	s = leadingUSRe.ReplaceAllString(s, "")
	s = paintPrefRe.ReplaceAllString(s, "")
	s = bracketRe.ReplaceAllString(s, "")
	s = jobCodeRe.ReplaceAllString(s, "")
	s = parenMarkRe.ReplaceAllString(s, "")
	s = trailDashRe.ReplaceAllString(s, "")
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func hasWord(normalized, word string) bool {
	idx := 0
	for {
		i := strings.Index(normalized[idx:], word)
		if i < 0 {
			return false
		}
		i += idx
		before := i == 0 || !isWordByte(normalized[i-1])
		after := i+len(word) == len(normalized) || !isWordByte(normalized[i+len(word)])
		if before && after {
			return true
		}
		idx = i + 1
	}
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= '0' && b <= '9') || (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}

// ExtractSignals derives the signal bundle from raw task text. Parenthesized
// location markers are the most reliable form, then bare tokens, then the
// spelled-out words.
func ExtractSignals(taskText string) Signals {
	var sig Signals
	normalized := NormalizeTaskText(taskText)
	if normalized == "" {
		return sig
	}

	switch {
	case strings.Contains(normalized, "(EXT)"):
		sig.IsExterior = true
		sig.Matched = append(sig.Matched, "(EXT) marker")
	case hasWord(normalized, "EXT") && !strings.Contains(normalized, "EXTERIOR"):
		sig.IsExterior = true
		sig.Matched = append(sig.Matched, "EXT token")
	case strings.Contains(normalized, "EXTERIOR"):
		sig.IsExterior = true
		sig.Matched = append(sig.Matched, "EXTERIOR keyword")
	}

	switch {
	case strings.Contains(normalized, "(INT)"):
		sig.IsInterior = true
		sig.Matched = append(sig.Matched, "(INT) marker")
	case hasWord(normalized, "INT") && !strings.Contains(normalized, "INTERIOR"):
		sig.IsInterior = true
		sig.Matched = append(sig.Matched, "INT token")
	case strings.Contains(normalized, "INTERIOR"):
		sig.IsInterior = true
		sig.Matched = append(sig.Matched, "INTERIOR keyword")
	}

	if strings.Contains(normalized, "[UA]") || hasWord(normalized, "UA") {
		sig.IsUA = true
		sig.Matched = append(sig.Matched, "UA")
	}
	if strings.Contains(normalized, "[OP]") {
		sig.IsOP = true
		sig.Matched = append(sig.Matched, "[OP]")
	}
	if strings.Contains(normalized, "[LS]") {
		sig.IsLS = true
		sig.Matched = append(sig.Matched, "[LS]")
	}

	if m := jobCodeRe.FindStringSubmatch(normalized); m != nil {
		sig.HasJobCode = true
		sig.JobCode = m[1]
		sig.Matched = append(sig.Matched, "job_code:"+m[1])
	}

	for _, kw := range undercoatKeywords {
		if strings.Contains(normalized, kw) {
			sig.KeywordUndercoat = true
			sig.Matched = append(sig.Matched, "undercoat:"+kw)
			break
		}
	}
	for _, kw := range primeKeywords {
		if hasWord(normalized, kw) {
			sig.KeywordPrime = true
			sig.Matched = append(sig.Matched, "prime:"+kw)
			break
		}
	}
	for _, kw := range touchUpKeywords {
		if strings.Contains(normalized, kw) {
			sig.KeywordTouchUp = true
			sig.Matched = append(sig.Matched, "touchup:"+kw)
			break
		}
	}
	if rollWallRe.MatchString(normalized) {
		sig.KeywordRollWalls = true
		sig.Matched = append(sig.Matched, "rollwalls:ROLL near WALL/CEILING")
	}
	for _, kw := range baseShoeKeywords {
		if strings.Contains(normalized, kw) {
			sig.KeywordBaseShoe = true
			sig.Matched = append(sig.Matched, "baseshoe:"+kw)
			break
		}
	}

	return sig
}

// Fixed token vocabulary. Keyword lists carry the naming variants seen in
// real painter exports; rule predicates reference the signal tags instead
// of repeating these.
var (
	undercoatKeywords = []string{"UNDERCOAT", "FIRST COAT"}
	primeKeywords     = []string{
		"PRIME", "PRIMER", "PRIMING", "SEAL", "SEALER",
		"SAND", "BLOCK", "BLOCKOUT", "PREP", "CAULK", "PATCH", "FASCIA",
	}
	touchUpKeywords  = []string{"TOUCH UP", "TOUCHUP", "PUNCH", "AFTER CARPET"}
	baseShoeKeywords = []string{"BASE SHOE", "BASEBOARD", "SHOE MOLD", "SHOE MOULD"}
)
