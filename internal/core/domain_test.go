package core

import "testing"

func TestCleanLotNumber(t *testing.T) {
	cases := []struct {
		in  string
		out string
	}{
		{"0044/", "44"},
		{"0044", "44"},
		{"44", "44"},
		{"000", "0"},
		{" 07 / ", "7"},
		{"", ""},
		{"12A", "12A"},
	}
	for _, tc := range cases {
		if got := CleanLotNumber(tc.in); got != tc.out {
			t.Fatalf("CleanLotNumber(%q) = %q, want %q", tc.in, got, tc.out)
		}
	}
}

func TestCombinePlanElevation(t *testing.T) {
	cases := []struct {
		plan, elev string
		out        string
	}{
		{"2", "B", "2B"},
		{"2B", "B", "2B"}, // already suffixed
		{"2", "", "2"},
		{" 1509 ", " C ", "1509C"},
	}
	for _, tc := range cases {
		if got := CombinePlanElevation(tc.plan, tc.elev); got != tc.out {
			t.Fatalf("CombinePlanElevation(%q, %q) = %q, want %q", tc.plan, tc.elev, got, tc.out)
		}
	}
}

func TestTaskRecordKey(t *testing.T) {
	rec := TaskRecord{LotBlock: "0044/", Plan: "1509", Elevation: "C"}
	key := rec.Key()
	if key.LotBlock != "44" || key.Plan != "1509C" {
		t.Fatalf("unexpected key %+v", key)
	}
}

func TestTaskRecordValidate(t *testing.T) {
	good := TaskRecord{LotBlock: "44", Plan: "1509", TaskText: "PAINTING", AmountCents: 100}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []TaskRecord{
		{LotBlock: "", Plan: "1509"},
		{LotBlock: "44", Plan: ""},
		{LotBlock: "  ", Plan: "  "},
	}
	for i, rec := range bads {
		if err := rec.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}
