package extractor

import (
	"testing"

	"github.com/overwatch/retrace/internal/record"
)

func completeRaw(name string) record.Raw {
	return record.Raw{
		"name":                name,
		"age":                 float64(30),
		"gender":              "male",
		"last_seen_date":      "12/03/2024",
		"last_known_location": "Pune",
	}
}

func TestValidateRecords_PartialFailure(t *testing.T) {
	incomplete := completeRaw("B")
	delete(incomplete, "age")

	valid, discards := ValidateRecords([]record.Raw{
		completeRaw("A"),
		incomplete,
		completeRaw("C"),
	})

	if len(valid) != 2 {
		t.Fatalf("expected 2 valid records, got %d", len(valid))
	}
	if valid[0].Name != "A" || valid[1].Name != "C" {
		t.Errorf("expected order-preserving output, got %q, %q", valid[0].Name, valid[1].Name)
	}

	if len(discards) != 1 {
		t.Fatalf("expected 1 discard, got %d", len(discards))
	}
	if discards[0].Index != 1 {
		t.Errorf("expected discard at index 1, got %d", discards[0].Index)
	}
	if discards[0].Reason == "" {
		t.Error("expected a discard reason")
	}
}

func TestValidateRecords_AllInvalid(t *testing.T) {
	valid, discards := ValidateRecords([]record.Raw{
		{"name": "only a name"},
		{},
	})

	if len(valid) != 0 {
		t.Errorf("expected 0 valid records, got %d", len(valid))
	}
	if len(discards) != 2 {
		t.Errorf("expected 2 discards, got %d", len(discards))
	}
}

func TestValidateRecords_Empty(t *testing.T) {
	valid, discards := ValidateRecords(nil)
	if len(valid) != 0 || len(discards) != 0 {
		t.Errorf("expected empty outcome, got %d valid, %d discards", len(valid), len(discards))
	}
}

func TestValidateRecords_GenderCoercedNotDiscarded(t *testing.T) {
	raw := completeRaw("A")
	raw["gender"] = "nonbinary"

	valid, discards := ValidateRecords([]record.Raw{raw})
	if len(discards) != 0 {
		t.Fatalf("gender mismatch must not discard, got %v", discards)
	}
	if len(valid) != 1 || valid[0].Gender != record.GenderOther {
		t.Errorf("expected gender coerced to other, got %+v", valid)
	}
}
