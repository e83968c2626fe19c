// Package digest computes and broadcasts the daily attendance summary.
package digest

import (
	"fmt"
	"sort"
	"strings"

	"bunkbot/internal/sheets"
)

const (
	belowThreshold = 0.85
	safeThreshold  = 0.90
	priorityCount  = 3
)

// Digest is the computed daily summary.
type Digest struct {
	Below    []sheets.AttendanceRow // ratio < 0.85
	Safe     []sheets.AttendanceRow // ratio >= 0.90
	Priority []sheets.AttendanceRow // 3 lowest ratios, ascending
}

// Compute partitions rows by the attendance thresholds and picks the
// priority subjects for today. Input order is preserved within the
// partitions; the priority sort is stable for equal ratios.
func Compute(rows []sheets.AttendanceRow) Digest {
	var d Digest
	for _, r := range rows {
		if r.Ratio < belowThreshold {
			d.Below = append(d.Below, r)
		}
		if r.Ratio >= safeThreshold {
			d.Safe = append(d.Safe, r)
		}
	}

	byRatio := make([]sheets.AttendanceRow, len(rows))
	copy(byRatio, rows)
	sort.SliceStable(byRatio, func(i, j int) bool { return byRatio[i].Ratio < byRatio[j].Ratio })
	if len(byRatio) > priorityCount {
		byRatio = byRatio[:priorityCount]
	}
	d.Priority = byRatio
	return d
}

// Render produces the Telegram Markdown digest message.
func Render(d Digest) string {
	var b strings.Builder
	b.WriteString("📅 *Daily Attendance Summary*\n\n")

	if len(d.Below) > 0 {
		b.WriteString("⚠️ *Below 85%*\n")
		for _, r := range d.Below {
			fmt.Fprintf(&b, "• %s (%s)\n", r.Subject, sheets.Pct(r.Ratio))
		}
	} else {
		b.WriteString("✅ All subjects above 85%\n")
	}

	b.WriteString("\n🟢 *Safe (≥90%)*\n")
	if len(d.Safe) > 0 {
		for _, r := range d.Safe {
			fmt.Fprintf(&b, "• %s (%s)\n", r.Subject, sheets.Pct(r.Ratio))
		}
	} else {
		b.WriteString("• None\n")
	}

	b.WriteString("\n🎯 *Priority Today*\n")
	for _, r := range d.Priority {
		fmt.Fprintf(&b, "• %s (%s)\n", r.Subject, sheets.Pct(r.Ratio))
	}

	return b.String()
}
