package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// FSStore implements Store on the filesystem.
// Reports are stored in a directory structure: <baseDir>/reports/<id>/
//
// Thread-safety: writes go through a temp file and rename, so no locks
// are needed.
type FSStore struct {
	baseDir string
}

// NewFSStore creates a filesystem store, creating baseDir if needed.
func NewFSStore(baseDir string) (*FSStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FSStore{baseDir: baseDir}, nil
}

// BaseDir returns the root directory of the store.
func (fs *FSStore) BaseDir() string {
	return fs.baseDir
}

func (fs *FSStore) reportDir(id string) string {
	return filepath.Join(fs.baseDir, "reports", id)
}

func (fs *FSStore) reportPath(id string) string {
	return filepath.Join(fs.reportDir(id), "report.json")
}

// SaveReport validates and atomically writes report.json.
func (fs *FSStore) SaveReport(report *Report) error {
	if report == nil {
		return fmt.Errorf("report cannot be nil")
	}
	if err := report.Validate(); err != nil {
		return err
	}

	dir := fs.reportDir(report.ID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}

	finalPath := fs.reportPath(report.ID)
	tempPath := finalPath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp report file: %w", err)
	}

	if err := os.Rename(tempPath, finalPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename report file: %w", err)
	}

	slog.Debug("Report saved", "id", report.ID, "path", finalPath)
	return nil
}

// LoadReport reads the report with the given ID.
func (fs *FSStore) LoadReport(id string) (*Report, error) {
	if id == "" {
		return nil, fmt.Errorf("report id cannot be empty")
	}

	path := fs.reportPath(id)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, &NotFoundError{ID: id}
	} else if err != nil {
		return nil, fmt.Errorf("failed to read report file: %w", err)
	}

	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to deserialize report: %w", err)
	}

	return &report, nil
}

// ListReports returns every readable report. Corrupt entries are skipped.
func (fs *FSStore) ListReports() ([]Report, error) {
	reportsDir := filepath.Join(fs.baseDir, "reports")

	entries, err := os.ReadDir(reportsDir)
	if os.IsNotExist(err) {
		return []Report{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to read reports directory: %w", err)
	}

	reports := []Report{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		id := entry.Name()
		if _, err := os.Stat(fs.reportPath(id)); os.IsNotExist(err) {
			continue
		}

		report, err := fs.LoadReport(id)
		if err != nil {
			slog.Warn("Failed to load report for listing", "id", id, "error", err)
			continue
		}
		reports = append(reports, *report)
	}

	slog.Debug("Listed reports", "count", len(reports))
	return reports, nil
}

// DeleteReport removes the report directory and everything in it.
func (fs *FSStore) DeleteReport(id string) error {
	if id == "" {
		return fmt.Errorf("report id cannot be empty")
	}

	dir := fs.reportDir(id)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return &NotFoundError{ID: id}
	} else if err != nil {
		return fmt.Errorf("failed to stat report directory: %w", err)
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove report directory: %w", err)
	}

	slog.Debug("Report deleted", "id", id, "path", dir)
	return nil
}

// WindowWriter opens <baseDir>/reports/<id>/windows.jsonl.zst for writing.
func (fs *FSStore) WindowWriter(id string) (*WindowWriter, error) {
	if id == "" {
		return nil, fmt.Errorf("report id cannot be empty")
	}
	return NewWindowWriter(fs.reportDir(id))
}

// ReadWindows reads the window trace of a report.
func (fs *FSStore) ReadWindows(id string) ([]WindowEntry, error) {
	if id == "" {
		return nil, fmt.Errorf("report id cannot be empty")
	}

	entries, err := ReadWindowFile(filepath.Join(fs.reportDir(id), windowFileName))
	if os.IsNotExist(err) {
		return nil, &NotFoundError{ID: id}
	}
	return entries, err
}
