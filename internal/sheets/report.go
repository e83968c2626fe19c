package sheets

import (
	"fmt"
	"strings"
)

// Report texts are Telegram Markdown; callers send them with
// ParseMode "Markdown".

// SummaryText lists every subject with its attendance percentage.
func SummaryText(rows []AttendanceRow) string {
	var b strings.Builder
	b.WriteString("📊 *Attendance Summary*\n\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "%s (%s): %s\n", r.Subject, r.Kind, Pct(r.Ratio))
	}
	return b.String()
}

// BelowThresholdText lists subjects under 85%, or an all-clear notice.
func BelowThresholdText(rows []AttendanceRow) string {
	var bad []AttendanceRow
	for _, r := range rows {
		if r.Ratio < 0.85 {
			bad = append(bad, r)
		}
	}
	if len(bad) == 0 {
		return "✅ All subjects above 85%"
	}

	var b strings.Builder
	b.WriteString("⚠️ *Below 85%*\n\n")
	for _, r := range bad {
		fmt.Fprintf(&b, "%s (%s): %s\n", r.Subject, r.Kind, Pct(r.Ratio))
	}
	return b.String()
}

// DetailText renders the full per-subject breakdown for matched rows.
func DetailText(rows []AttendanceRow) string {
	var b strings.Builder
	for _, r := range rows {
		fmt.Fprintf(&b, "%s (%s)\nConducted: %d\nPresent: %d\nAttendance: %s\nStatus: %s\n\n",
			r.Subject, r.Kind, r.Conducted, r.Present, Pct(r.Ratio), r.Status)
	}
	return b.String()
}

// BunkText renders the bunk advice for matched rows.
func BunkText(rows []AttendanceRow) string {
	var b strings.Builder
	for _, r := range rows {
		fmt.Fprintf(&b, "%s (%s)\n%s\n\n", r.Subject, r.Kind, r.BunkAdvice)
	}
	return b.String()
}
