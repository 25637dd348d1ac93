package core

import "testing"

func TestNormalizeTaskText(t *testing.T) {
	cases := []struct {
		in  string
		out string
	}{
		{"exterior-prime/walls", "EXTERIOR PRIME WALLS"},
		{"  roll   walls  ", "ROLL WALLS"},
		{"touch_up", "TOUCH UP"},
		{"(EXT) Prime", "(EXT) PRIME"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizeTaskText(tc.in); got != tc.out {
			t.Fatalf("NormalizeTaskText(%q) = %q, want %q", tc.in, got, tc.out)
		}
	}
}

func TestCanonicalName(t *testing.T) {
	cases := []struct {
		in  string
		out string
	}{
		{" ext prime ", "EXT PRIME"},
		{"EXT  PRIME", "EXT PRIME"},
		{"- Touch Up -", "TOUCH UP"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := CanonicalName(tc.in); got != tc.out {
			t.Fatalf("CanonicalName(%q) = %q, want %q", tc.in, got, tc.out)
		}
	}
}

func TestExtractScopeFragment(t *testing.T) {
	cases := []struct {
		in  string
		out string
	}{
		{"2024-03-15 PAINTING - STUCCO WALLS", "STUCCO WALLS"},
		{"03/15/2024 TOUCH UP", "TOUCH UP"},
		{"PAINTING - GARAGE (12345)", "GARAGE"},
		{"[AB-1] FENCE STAIN (EXT)", "FENCE STAIN"},
		{"SHUTTERS (INT) -", "SHUTTERS"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := ExtractScopeFragment(tc.in); got != tc.out {
			t.Fatalf("ExtractScopeFragment(%q) = %q, want %q", tc.in, got, tc.out)
		}
	}
}

func TestExtractSignalsLocation(t *testing.T) {
	cases := []struct {
		in       string
		ext, int bool
	}{
		{"(EXT) PRIME WALLS", true, false},
		{"EXTERIOR PRIME WALLS", true, false},
		{"EXT PRIME", true, false},
		{"TEXTURE WALLS", false, false}, // EXT inside a word must not fire
		{"(INT) ROLL WALLS", false, true},
		{"INTERIOR TOUCH UP", false, true},
		{"(EXT) (INT) MIXED", true, true},
		{"", false, false},
	}
	for _, tc := range cases {
		sig := ExtractSignals(tc.in)
		if sig.IsExterior != tc.ext || sig.IsInterior != tc.int {
			t.Fatalf("%q: ext=%v int=%v, want ext=%v int=%v",
				tc.in, sig.IsExterior, sig.IsInterior, tc.ext, tc.int)
		}
	}
}

func TestExtractSignalsDesignations(t *testing.T) {
	sig := ExtractSignals("[UA] EXTERIOR PAINT [OP] [LS]")
	if !sig.IsUA || !sig.IsOP || !sig.IsLS {
		t.Fatalf("expected UA/OP/LS, got %+v", sig)
	}
	sig = ExtractSignals("EXTERIOR UA PAINT")
	if !sig.IsUA {
		t.Fatalf("bare UA token should fire, got %+v", sig)
	}
	sig = ExtractSignals("QUALITY PAINT")
	if sig.IsUA || sig.IsOP || sig.IsLS {
		t.Fatalf("expected no designations, got %+v", sig)
	}
}

func TestExtractSignalsKeywords(t *testing.T) {
	cases := []struct {
		in    string
		check func(Signals) bool
	}{
		{"EXTERIOR PRIME WALLS", func(s Signals) bool { return s.KeywordPrime }},
		{"PRIMER COAT", func(s Signals) bool { return s.KeywordPrime }},
		{"TOUCH UP AFTER CARPET", func(s Signals) bool { return s.KeywordTouchUp }},
		{"TOUCHUP PUNCH", func(s Signals) bool { return s.KeywordTouchUp }},
		{"ROLL ALL WALLS", func(s Signals) bool { return s.KeywordRollWalls }},
		{"ROLL FINAL COAT ON CEILING", func(s Signals) bool { return s.KeywordRollWalls }},
		{"UNDERCOAT SPRAY", func(s Signals) bool { return s.KeywordUndercoat }},
		{"INSTALL BASE SHOE", func(s Signals) bool { return s.KeywordBaseShoe }},
		{"PAINT DOORS", func(s Signals) bool {
			return !s.KeywordPrime && !s.KeywordTouchUp && !s.KeywordRollWalls &&
				!s.KeywordUndercoat && !s.KeywordBaseShoe
		}},
	}
	for _, tc := range cases {
		if sig := ExtractSignals(tc.in); !tc.check(sig) {
			t.Fatalf("%q: unexpected signals %+v", tc.in, sig)
		}
	}
}

func TestExtractSignalsJobCode(t *testing.T) {
	sig := ExtractSignals("PAINTING (123456) GARAGE")
	if !sig.HasJobCode || sig.JobCode != "123456" {
		t.Fatalf("expected job code 123456, got %+v", sig)
	}
	sig = ExtractSignals("PAINTING (1234) GARAGE") // too short
	if sig.HasJobCode {
		t.Fatalf("four digits should not count as a job code")
	}
}

func TestExtractSignalsDeterministic(t *testing.T) {
	a := ExtractSignals("(EXT) PRIME WALLS (12345)")
	b := ExtractSignals("(EXT) PRIME WALLS (12345)")
	if a.IsExterior != b.IsExterior || a.JobCode != b.JobCode || len(a.Matched) != len(b.Matched) {
		t.Fatalf("same text produced different signals: %+v vs %+v", a, b)
	}
	if len(a.Matched) == 0 {
		t.Fatalf("expected a matched-token audit trail")
	}
}
