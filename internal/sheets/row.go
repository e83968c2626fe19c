package sheets

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// AttendanceRow is one subject's attendance state as published by the
// sheet endpoint. The wire form is a 7-element tuple:
//
//	[subject, kind, conducted, present, ratio, status, bunk advice]
//
// Numeric fields are coerced tolerantly: the sheet sometimes exports
// numbers as strings.
type AttendanceRow struct {
	Subject    string
	Kind       string
	Conducted  int
	Present    int
	Ratio      float64
	Status     string
	BunkAdvice string
}

func (r *AttendanceRow) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if len(raw) < 7 {
		return fmt.Errorf("attendance row: got %d fields, want 7", len(raw))
	}

	var err error
	if r.Subject, err = asString(raw[0]); err != nil {
		return fmt.Errorf("attendance row subject: %w", err)
	}
	if r.Kind, err = asString(raw[1]); err != nil {
		return fmt.Errorf("attendance row kind: %w", err)
	}
	conducted, err := asFloat(raw[2])
	if err != nil {
		return fmt.Errorf("attendance row conducted: %w", err)
	}
	present, err := asFloat(raw[3])
	if err != nil {
		return fmt.Errorf("attendance row present: %w", err)
	}
	if r.Ratio, err = asFloat(raw[4]); err != nil {
		return fmt.Errorf("attendance row ratio: %w", err)
	}
	if r.Status, err = asString(raw[5]); err != nil {
		return fmt.Errorf("attendance row status: %w", err)
	}
	if r.BunkAdvice, err = asString(raw[6]); err != nil {
		return fmt.Errorf("attendance row advice: %w", err)
	}
	r.Conducted = int(conducted)
	r.Present = int(present)
	return nil
}

func asString(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	// Non-string scalar: keep its literal text.
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", err
	}
	return fmt.Sprint(v), nil
}

func asFloat(raw json.RawMessage) (float64, error) {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	return f, nil
}

// Pct renders a 0..1 ratio as "87.5%".
func Pct(ratio float64) string {
	return fmt.Sprintf("%.1f%%", ratio*100)
}
