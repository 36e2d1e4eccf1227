package entities

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalid is wrapped by every error returned from entity validation and create hooks.
var ErrInvalid = errors.New("invalid entity")

// SpeciesList is an ordered list of species labels stored as a JSON array.
type SpeciesList []string

// Value implements driver.Valuer.
func (l SpeciesList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *SpeciesList) Scan(value any) error {
	b, err := jsonBytes(value)
	if err != nil || b == nil {
		*l = nil
		return err
	}
	var out []string
	if err := json.Unmarshal(b, &out); err != nil {
		return fmt.Errorf("scan species list: %w", err)
	}
	*l = out
	return nil
}

// SpeciesCounts maps a species label to its maximum count in a single frame.
type SpeciesCounts map[string]int

// Value implements driver.Valuer.
func (c SpeciesCounts) Value() (driver.Value, error) {
	if c == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]int(c))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (c *SpeciesCounts) Scan(value any) error {
	b, err := jsonBytes(value)
	if err != nil || b == nil {
		*c = nil
		return err
	}
	var out map[string]int
	if err := json.Unmarshal(b, &out); err != nil {
		return fmt.Errorf("scan species counts: %w", err)
	}
	*c = out
	return nil
}

// RawDocument is the raw detection payload, kept verbatim as JSON text.
type RawDocument json.RawMessage

// DetectionSummary is the typed part of a detection payload.
type DetectionSummary struct {
	EventSummary struct {
		MaxConfidence *float64 `json:"max_confidence"`
	} `json:"event_summary"`
}

// Summary decodes the typed fields of the payload. An empty payload has an empty summary.
func (d RawDocument) Summary() (DetectionSummary, error) {
	var s DetectionSummary
	if len(d) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(d, &s); err != nil {
		return s, fmt.Errorf("%w: detection payload: %w", ErrInvalid, err)
	}
	return s, nil
}

// MarshalJSON emits the payload as-is, or null when empty.
func (d RawDocument) MarshalJSON() ([]byte, error) {
	if len(d) == 0 {
		return []byte("null"), nil
	}
	return d, nil
}

// UnmarshalJSON stores a copy of the payload.
func (d *RawDocument) UnmarshalJSON(b []byte) error {
	*d = append((*d)[:0], b...)
	return nil
}

// Value implements driver.Valuer.
func (d RawDocument) Value() (driver.Value, error) {
	if len(d) == 0 {
		return "{}", nil
	}
	if !json.Valid(d) {
		return nil, fmt.Errorf("%w: detection payload is not valid JSON", ErrInvalid)
	}
	return string(d), nil
}

// Scan implements sql.Scanner.
func (d *RawDocument) Scan(value any) error {
	b, err := jsonBytes(value)
	if err != nil {
		return err
	}
	*d = append(RawDocument(nil), b...)
	return nil
}

// jsonBytes converts a driver value holding JSON text into bytes.
func jsonBytes(value any) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported JSON column type %T", value)
	}
}
