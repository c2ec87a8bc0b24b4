// Package record defines the missing-person wire schema and the
// normalization rules that turn loosely-typed model output into
// schema-conformant records.
package record

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/go-playground/validator/v10"
)

// Gender is the normalized gender value.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// Status is the case status of a record.
type Status string

const (
	StatusMissing Status = "missing"
	StatusFound   Status = "found"
)

// Raw is an unvalidated record decoded from model output. Fields may be
// missing, mistyped, or extraneous.
type Raw map[string]any

// MissingPerson is a fully validated missing-person record. Every instance
// produced by FromRaw satisfies all field constraints; the struct tags are
// the wire contract for downstream consumers.
type MissingPerson struct {
	Name              string    `json:"name" validate:"required,max=255"`
	Age               int       `json:"age" validate:"min=0,max=150"`
	Gender            Gender    `json:"gender" validate:"required,oneof=male female other"`
	LastSeenDate      time.Time `json:"last_seen_date" validate:"required"`
	LastKnownLocation string    `json:"last_known_location" validate:"required"`
	Status            Status    `json:"status" validate:"required,oneof=missing found"`
	Description       string    `json:"description,omitempty" validate:"max=1000"`
	PhotoURL          string    `json:"photo_url,omitempty"`
	ContactName       string    `json:"contact_name,omitempty" validate:"max=255"`
	ContactPhone      string    `json:"contact_phone,omitempty"`
}

var validate = validator.New()

// requiredFields are the fields a raw record must carry to be considered.
var requiredFields = []string{"name", "age", "gender", "last_seen_date", "last_known_location"}

// FromRaw normalizes and validates a single raw record. Gender values
// outside the enum are coerced to "other"; an absent status defaults to
// "missing". Everything else that violates the schema is an error, and the
// caller discards the record.
func FromRaw(raw Raw) (MissingPerson, error) {
	for _, f := range requiredFields {
		if _, ok := raw[f]; !ok {
			return MissingPerson{}, fmt.Errorf("missing required field %q", f)
		}
	}

	name, ok := asString(raw["name"])
	if !ok || strings.TrimSpace(name) == "" {
		return MissingPerson{}, fmt.Errorf("field \"name\" must be a non-empty string")
	}

	age, err := asAge(raw["age"])
	if err != nil {
		return MissingPerson{}, err
	}

	gender := normalizeGender(raw["gender"])

	dateStr, ok := asString(raw["last_seen_date"])
	if !ok {
		return MissingPerson{}, fmt.Errorf("field \"last_seen_date\" must be a string")
	}
	lastSeen, err := ParseDate(dateStr)
	if err != nil {
		return MissingPerson{}, fmt.Errorf("field \"last_seen_date\": %w", err)
	}

	location, ok := asString(raw["last_known_location"])
	if !ok || strings.TrimSpace(location) == "" {
		return MissingPerson{}, fmt.Errorf("field \"last_known_location\" must be a non-empty string")
	}

	status, err := normalizeStatus(raw["status"])
	if err != nil {
		return MissingPerson{}, err
	}

	p := MissingPerson{
		Name:              strings.TrimSpace(name),
		Age:               age,
		Gender:            gender,
		LastSeenDate:      lastSeen,
		LastKnownLocation: strings.TrimSpace(location),
		Status:            status,
		Description:       optString(raw["description"]),
		PhotoURL:          optString(raw["photo_url"]),
		ContactName:       optString(raw["contact_name"]),
		ContactPhone:      optString(raw["contact_phone"]),
	}

	if err := validate.Struct(p); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			e := verrs[0]
			return MissingPerson{}, fmt.Errorf("field %q failed validation %q", e.Field(), e.Tag())
		}
		return MissingPerson{}, err
	}

	return p, nil
}

// dayFirstLayouts are tried in order. ISO forms go first so a leading
// 4-digit year is never misread as a day.
var dayFirstLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"02-01-2006",
	"2-1-2006",
	"02/01/2006",
	"2/1/2006",
	"02 Jan 2006",
	"2 Jan 2006",
	"02 January 2006",
	"2 January 2006",
}

// ParseDate parses a date string honoring day-first conventions
// (DD-MM-YYYY, DD/MM/YYYY, DD MMM YYYY) in addition to ISO 8601.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	for _, layout := range dayFirstLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}

	// Last resort for formats the layout list misses (e.g. "15th Jan 2024").
	t, err := dateparse.ParseIn(s, time.UTC, dateparse.PreferMonthFirst(false))
	if err != nil {
		return time.Time{}, fmt.Errorf("unparseable date %q", s)
	}
	return t.UTC(), nil
}

// JSONSchema returns a JSON Schema describing the structured-output wrapper
// object: {"records": [MissingPerson, ...]}. Providers with native JSON
// modes constrain their output with it.
func JSONSchema() map[string]any {
	item := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":                map[string]any{"type": "string", "description": "Full name of the missing person"},
			"age":                 map[string]any{"type": "integer", "description": "Age in years"},
			"gender":              map[string]any{"type": "string", "enum": []string{"male", "female", "other"}},
			"last_seen_date":      map[string]any{"type": "string", "description": "ISO 8601 datetime"},
			"last_known_location": map[string]any{"type": "string"},
			"status":              map[string]any{"type": "string", "enum": []string{"missing", "found"}},
			"description":         map[string]any{"type": "string"},
			"photo_url":           map[string]any{"type": "string"},
			"contact_name":        map[string]any{"type": "string"},
			"contact_phone":       map[string]any{"type": "string"},
		},
		"required":             []string{"name", "age", "gender", "last_seen_date", "last_known_location"},
		"additionalProperties": false,
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"records": map[string]any{
				"type":  "array",
				"items": item,
			},
		},
		"required":             []string{"records"},
		"additionalProperties": false,
	}
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// optString returns the value for an optional field, treating nil and
// non-string values as absent.
func optString(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// asAge accepts JSON numbers (float64) and native ints, rejecting
// non-integral values.
func asAge(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("field \"age\" must be an integer, got %v", n)
		}
		return int(n), nil
	default:
		return 0, fmt.Errorf("field \"age\" must be an integer, got %T", v)
	}
}

// normalizeGender coerces anything outside the enum to "other". A gender
// mismatch is not a fatal data-quality signal.
func normalizeGender(v any) Gender {
	s, _ := v.(string)
	switch Gender(strings.ToLower(strings.TrimSpace(s))) {
	case GenderMale:
		return GenderMale
	case GenderFemale:
		return GenderFemale
	default:
		return GenderOther
	}
}

// normalizeStatus defaults an absent status to "missing" and rejects
// unknown values.
func normalizeStatus(v any) (Status, error) {
	if v == nil {
		return StatusMissing, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field \"status\" must be a string, got %T", v)
	}
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return StatusMissing, nil
	}
	switch Status(s) {
	case StatusMissing, StatusFound:
		return Status(s), nil
	default:
		return "", fmt.Errorf("field \"status\" must be one of missing, found; got %q", s)
	}
}
