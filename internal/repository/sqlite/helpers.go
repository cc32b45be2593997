package sqlite

import "time"

// timeLayout is fixed width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ============================================================================
// Time Helpers
// ============================================================================

// formatTime renders t in the sortable form stored in created_at
func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime reads a created_at value, returning the zero time if malformed
func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
