package digest

import (
	"strings"
	"testing"

	"bunkbot/internal/sheets"
)

func rowsFixture() []sheets.AttendanceRow {
	return []sheets.AttendanceRow{
		{Subject: "Economics", Ratio: 0.80},
		{Subject: "Maths", Ratio: 0.92},
		{Subject: "Physics", Ratio: 0.85},
		{Subject: "Chemistry", Ratio: 0.60},
	}
}

func TestCompute(t *testing.T) {
	t.Parallel()
	d := Compute(rowsFixture())

	if len(d.Below) != 2 || d.Below[0].Subject != "Economics" || d.Below[1].Subject != "Chemistry" {
		t.Fatalf("Below = %+v", d.Below)
	}
	if len(d.Safe) != 1 || d.Safe[0].Subject != "Maths" {
		t.Fatalf("Safe = %+v", d.Safe)
	}
	want := []string{"Chemistry", "Economics", "Physics"}
	if len(d.Priority) != 3 {
		t.Fatalf("Priority = %+v", d.Priority)
	}
	for i, w := range want {
		if d.Priority[i].Subject != w {
			t.Fatalf("Priority[%d] = %s, want %s", i, d.Priority[i].Subject, w)
		}
	}
}

func TestComputeBoundary(t *testing.T) {
	t.Parallel()
	// 0.85 is neither below nor safe; 0.90 is safe.
	d := Compute([]sheets.AttendanceRow{
		{Subject: "Edge", Ratio: 0.85},
		{Subject: "Safe", Ratio: 0.90},
	})
	if len(d.Below) != 0 {
		t.Fatalf("0.85 must not count as below threshold: %+v", d.Below)
	}
	if len(d.Safe) != 1 || d.Safe[0].Subject != "Safe" {
		t.Fatalf("0.90 must count as safe: %+v", d.Safe)
	}
}

func TestComputeFewRows(t *testing.T) {
	t.Parallel()
	d := Compute([]sheets.AttendanceRow{{Subject: "Only", Ratio: 0.5}})
	if len(d.Priority) != 1 || d.Priority[0].Subject != "Only" {
		t.Fatalf("Priority = %+v", d.Priority)
	}
}

func TestRender(t *testing.T) {
	t.Parallel()
	text := Render(Compute(rowsFixture()))

	for _, want := range []string{
		"Daily Attendance Summary",
		"Below 85%",
		"• Economics (80.0%)",
		"• Chemistry (60.0%)",
		"Safe (≥90%)",
		"• Maths (92.0%)",
		"Priority Today",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("digest missing %q:\n%s", want, text)
		}
	}
}

func TestRenderAllClear(t *testing.T) {
	t.Parallel()
	text := Render(Compute([]sheets.AttendanceRow{{Subject: "Maths", Ratio: 0.95}}))
	if !strings.Contains(text, "All subjects above 85%") {
		t.Fatalf("missing all-clear notice:\n%s", text)
	}

	empty := Render(Compute([]sheets.AttendanceRow{{Subject: "Low", Ratio: 0.5}}))
	if !strings.Contains(empty, "• None") {
		t.Fatalf("missing explicit None for safe list:\n%s", empty)
	}
}

func TestCronSpec(t *testing.T) {
	t.Parallel()
	tests := []struct {
		at      string
		want    string
		wantErr bool
	}{
		{at: "09:00", want: "0 9 * * *"},
		{at: "23:15", want: "15 23 * * *"},
		{at: " 7:30 ", want: "30 7 * * *"},
		{at: "24:00", wantErr: true},
		{at: "12:60", wantErr: true},
		{at: "noon", wantErr: true},
		{at: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := cronSpec(tt.at)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("cronSpec(%q) expected error", tt.at)
			}
			continue
		}
		if err != nil {
			t.Fatalf("cronSpec(%q): %v", tt.at, err)
		}
		if got != tt.want {
			t.Fatalf("cronSpec(%q) = %q, want %q", tt.at, got, tt.want)
		}
	}
}
