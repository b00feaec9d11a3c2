package store

import (
	"sort"
	"time"
)

// SelectForDeletion picks the reports a cleanup should remove.
// The keepLast newest reports are always kept. With olderThanDays > 0 only
// reports older than that many days are selected; otherwise every report
// beyond keepLast is.
func SelectForDeletion(reports []Report, keepLast, olderThanDays int, now time.Time) []Report {
	sorted := make([]Report, len(reports))
	copy(sorted, reports)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})

	if keepLast < 0 {
		keepLast = 0
	}
	if keepLast >= len(sorted) {
		return nil
	}

	var cutoff time.Time
	if olderThanDays > 0 {
		cutoff = now.AddDate(0, 0, -olderThanDays)
	}

	var toDelete []Report
	for _, r := range sorted[keepLast:] {
		if olderThanDays > 0 && !r.Timestamp.Before(cutoff) {
			continue
		}
		toDelete = append(toDelete, r)
	}
	return toDelete
}
