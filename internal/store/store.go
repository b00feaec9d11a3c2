package store

// Store defines the interface for comparison report persistence.
// Implementations must be safe for concurrent use.
//
// Error handling conventions:
//   - Return ErrNotFound if a report doesn't exist (for Load/Delete)
//   - Wrap underlying errors with context using fmt.Errorf("context: %w", err)
type Store interface {
	// SaveReport atomically saves a report under its ID, overwriting any
	// existing report with the same ID.
	SaveReport(report *Report) error

	// LoadReport retrieves the report with the given ID.
	LoadReport(id string) (*Report, error)

	// ListReports returns all stored reports. The slice may be empty.
	ListReports() ([]Report, error)

	// DeleteReport removes the report and its window trace.
	DeleteReport(id string) error

	// WindowWriter opens the per-window score trace of a report for writing.
	WindowWriter(id string) (*WindowWriter, error)

	// ReadWindows returns the per-window scores recorded for a report.
	ReadWindows(id string) ([]WindowEntry, error)
}

// ErrNotFound is returned when a requested report does not exist.
// Use errors.Is(err, ErrNotFound) to check for this error.
var ErrNotFound = &NotFoundError{}

// NotFoundError represents a missing report error.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return "report not found: " + e.ID
	}
	return "report not found"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}
