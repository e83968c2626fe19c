package sheets

import "strings"

// Initials abbreviates a subject name: "Business Economics" -> "BE".
func Initials(name string) string {
	var b strings.Builder
	for _, part := range strings.Fields(name) {
		r := []rune(part)
		b.WriteString(strings.ToUpper(string(r[0])))
	}
	return b.String()
}

// Match filters rows whose subject matches the query, by case-insensitive
// substring first, then by exact initials ("BE" matches "Business Economics").
func Match(query string, rows []AttendanceRow) []AttendanceRow {
	query = strings.ToUpper(strings.TrimSpace(query))
	if query == "" {
		return nil
	}

	var matches []AttendanceRow
	for _, r := range rows {
		if strings.Contains(strings.ToUpper(r.Subject), query) {
			matches = append(matches, r)
			continue
		}
		if query == Initials(r.Subject) {
			matches = append(matches, r)
		}
	}
	return matches
}
