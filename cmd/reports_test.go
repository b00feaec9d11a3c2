package main

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cwbudde/ssimcompare/internal/store"
)

func saveTestReport(t *testing.T, st *store.FSStore, age time.Duration) *store.Report {
	t.Helper()

	r := store.NewReport("x.png", "y.png", "local", 4, 16, 16, 0.93, 2.5, 44.1)
	r.Timestamp = time.Now().Add(-age)
	if err := st.SaveReport(r); err != nil {
		t.Fatalf("Failed to save report: %v", err)
	}
	return r
}

func withDataDir(t *testing.T, dir string) {
	t.Helper()

	original := reportsDataDir
	reportsDataDir = dir
	t.Cleanup(func() { reportsDataDir = original })
}

func TestGetDirSize(t *testing.T) {
	tmpDir := t.TempDir()

	content := []byte("Hello, World!")
	if err := os.WriteFile(filepath.Join(tmpDir, "test.txt"), content, 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	size, err := getDirSize(tmpDir)
	if err != nil {
		t.Fatalf("getDirSize failed: %v", err)
	}
	if size < int64(len(content)) {
		t.Errorf("Expected size >= %d, got %d", len(content), size)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes    int64
		expected string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
		{1073741824, "1.0 GB"},
	}

	for _, tt := range tests {
		result := formatBytes(tt.bytes)
		if result != tt.expected {
			t.Errorf("formatBytes(%d) = %s, expected %s", tt.bytes, result, tt.expected)
		}
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("abc"); got != "abc" {
		t.Errorf("shortID(abc) = %s", got)
	}
	if got := shortID("0123456789abcdef"); got != "0123456789ab..." {
		t.Errorf("shortID truncation = %s", got)
	}
}

func TestScoreRange(t *testing.T) {
	entries := []store.WindowEntry{
		{X: 0, Y: 0, Score: math.NaN()},
		{X: 0, Y: 1, Score: 0.9},
		{X: 1, Y: 0, Score: 0.2},
		{X: 1, Y: 1, Score: 0.95},
	}

	lo, hi, ok := scoreRange(entries)
	if !ok {
		t.Fatal("Expected a range")
	}
	if lo.X != 1 || lo.Y != 0 || hi.X != 1 || hi.Y != 1 {
		t.Errorf("Unexpected range lo=%+v hi=%+v", lo, hi)
	}

	if _, _, ok := scoreRange([]store.WindowEntry{{Score: math.NaN()}}); ok {
		t.Error("Expected no range for all-NaN entries")
	}
}

func TestReportsListCommand_NoReports(t *testing.T) {
	withDataDir(t, t.TempDir())

	if err := runListReports(nil, nil); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}

func TestReportsListCommand_WithReports(t *testing.T) {
	tmpDir := t.TempDir()
	st, err := store.NewFSStore(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	saveTestReport(t, st, time.Hour)
	saveTestReport(t, st, 2*time.Hour)

	withDataDir(t, tmpDir)

	if err := runListReports(nil, nil); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}

func TestReportsShowCommand(t *testing.T) {
	tmpDir := t.TempDir()
	st, err := store.NewFSStore(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	r := saveTestReport(t, st, time.Minute)

	ww, err := st.WindowWriter(r.ID)
	if err != nil {
		t.Fatalf("WindowWriter failed: %v", err)
	}
	ww.Write(store.WindowEntry{X: 0, Y: 0, Score: 0.8})
	ww.Write(store.WindowEntry{X: 0, Y: 1, Score: 0.99})
	if err := ww.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	withDataDir(t, tmpDir)

	if err := runShowReport(nil, []string{r.ID}); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if err := runShowReport(nil, []string{"missing"}); err == nil {
		t.Error("Expected error for missing report")
	}
}

func TestReportsCleanCommand_NoFlags(t *testing.T) {
	withDataDir(t, t.TempDir())

	keepLast = 0
	olderThanDays = 0

	if err := runCleanReports(nil, nil); err == nil {
		t.Error("Expected error when no flags specified")
	}
}

func TestReportsCleanCommand_WithForce(t *testing.T) {
	tmpDir := t.TempDir()
	st, err := store.NewFSStore(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	old := saveTestReport(t, st, 30*24*time.Hour)
	recent := saveTestReport(t, st, time.Hour)

	withDataDir(t, tmpDir)

	keepLast = 0
	olderThanDays = 7
	forceClean = true
	t.Cleanup(func() {
		olderThanDays = 0
		forceClean = false
	})

	if err := runCleanReports(nil, nil); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	if _, err := st.LoadReport(old.ID); err == nil {
		t.Error("Expected old report to be deleted")
	}
	if _, err := st.LoadReport(recent.ID); err != nil {
		t.Errorf("Expected recent report to be kept, got %v", err)
	}
}

func TestReportsCleanCommand_KeepLast(t *testing.T) {
	tmpDir := t.TempDir()
	st, err := store.NewFSStore(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	for i := 1; i <= 4; i++ {
		saveTestReport(t, st, time.Duration(i)*time.Hour)
	}

	withDataDir(t, tmpDir)

	keepLast = 1
	olderThanDays = 0
	forceClean = true
	t.Cleanup(func() {
		keepLast = 0
		forceClean = false
	})

	if err := runCleanReports(nil, nil); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	reports, err := st.ListReports()
	if err != nil {
		t.Fatalf("ListReports failed: %v", err)
	}
	if len(reports) != 1 {
		t.Errorf("Expected 1 report left, got %d", len(reports))
	}
}
