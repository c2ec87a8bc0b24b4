package extractor

import (
	"errors"
	"testing"
)

func TestParseResponse_BareArray(t *testing.T) {
	records, err := ParseResponse(`[{"name": "John Doe"}]`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0]["name"] != "John Doe" {
		t.Errorf("expected name 'John Doe', got %v", records[0]["name"])
	}
}

func TestParseResponse_EmptyArray(t *testing.T) {
	records, err := ParseResponse("[]")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected 0 records, got %d", len(records))
	}
}

func TestParseResponse_FencedEqualsBare(t *testing.T) {
	fenced, err := ParseResponse("```json\n[]\n```")
	if err != nil {
		t.Fatalf("fenced parse failed: %v", err)
	}
	bare, err := ParseResponse("[]")
	if err != nil {
		t.Fatalf("bare parse failed: %v", err)
	}
	if len(fenced) != len(bare) {
		t.Errorf("fenced and bare inputs should parse identically")
	}
}

func TestParseResponse_FenceWithoutTag(t *testing.T) {
	records, err := ParseResponse("```\n[{\"name\": \"x\"}]\n```")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("expected 1 record, got %d", len(records))
	}
}

func TestParseResponse_SurroundingWhitespace(t *testing.T) {
	if _, err := ParseResponse("  \n\n[]\n  "); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestParseResponse_WrapperObject(t *testing.T) {
	records, err := ParseResponse(`{"records": [{"name": "a"}, {"name": "b"}]}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("expected 2 records, got %d", len(records))
	}
}

func TestParseResponse_Malformed(t *testing.T) {
	cases := []string{
		"",
		"I could not find any records on this page.",
		"[{broken json",
		"null",
		`{"data": []}`,
	}

	for _, in := range cases {
		_, err := ParseResponse(in)
		if !errors.Is(err, ErrMalformedOutput) {
			t.Errorf("input %q: expected ErrMalformedOutput, got %v", in, err)
		}
	}
}
