package store

import (
	"testing"
	"time"
)

func reportsAged(now time.Time, days ...int) []Report {
	reports := make([]Report, len(days))
	for i, d := range days {
		reports[i] = Report{ID: string(rune('a' + i)), Timestamp: now.AddDate(0, 0, -d)}
	}
	return reports
}

func ids(reports []Report) string {
	s := ""
	for _, r := range reports {
		s += r.ID
	}
	return s
}

func TestSelectForDeletion(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	// a is newest, e oldest, given out of order
	reports := reportsAged(now, 0, 10, 3, 40, 20)

	tests := []struct {
		name          string
		keepLast      int
		olderThanDays int
		want          string
	}{
		{"keep all", 5, 0, ""},
		{"keep more than exist", 10, 0, ""},
		{"keep two", 2, 0, "bed"},
		{"keep none", 0, 0, "acbed"},
		{"negative keep", -1, 0, "acbed"},
		{"older than 15 days", 0, 15, "ed"},
		{"keep three and older than 15", 3, 15, "ed"},
		{"keep four and older than 15", 4, 15, "d"},
		{"older than 100 days", 0, 100, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(SelectForDeletion(reports, tt.keepLast, tt.olderThanDays, now))
			if got != tt.want {
				t.Errorf("SelectForDeletion(keep=%d, older=%d) = %q, want %q",
					tt.keepLast, tt.olderThanDays, got, tt.want)
			}
		})
	}
}

func TestSelectForDeletion_DoesNotReorderInput(t *testing.T) {
	now := time.Now()
	reports := reportsAged(now, 5, 1, 9)

	SelectForDeletion(reports, 1, 0, now)

	if ids(reports) != "abc" {
		t.Errorf("Input should be unchanged, got %q", ids(reports))
	}
}
