package main

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/cwbudde/ssimcompare/internal/store"
)

func writeTestImage(t *testing.T, path string, offset int) {
	t.Helper()

	img := image.NewGray(image.Rect(0, 0, 6, 5))
	for y := 0; y < 5; y++ {
		for x := 0; x < 6; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8((x*41 + y*13 + offset) % 256)})
		}
	}

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create image: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("Failed to encode image: %v", err)
	}
}

// resetCompareFlags restores compare flag defaults after a test.
func resetCompareFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		xPath, yPath = "", ""
		compareMode = modeValue("global")
		windowSize = 8
		targetWidth, targetHeight = 0, 0
		filterName = "gaussian"
		workers = 0
		saveReport = false
		compareDataDir = "./data"
		mapPath = ""
	})
}

func TestCompareCommand_LocalSaveAndMap(t *testing.T) {
	resetCompareFlags(t)
	tmpDir := t.TempDir()

	xPath = filepath.Join(tmpDir, "x.png")
	yPath = filepath.Join(tmpDir, "y.png")
	writeTestImage(t, xPath, 0)
	writeTestImage(t, yPath, 3)

	compareMode = modeValue("local")
	windowSize = 3
	filterName = "gaussian"
	saveReport = true
	compareDataDir = filepath.Join(tmpDir, "data")
	mapPath = filepath.Join(tmpDir, "map.png")

	if err := runCompare(nil, nil); err != nil {
		t.Fatalf("runCompare failed: %v", err)
	}

	st, err := store.NewFSStore(compareDataDir)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	reports, err := st.ListReports()
	if err != nil {
		t.Fatalf("ListReports failed: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("Expected 1 saved report, got %d", len(reports))
	}
	r := reports[0]
	if r.Mode != "local" || r.WindowSize != 3 || r.Width != 6 || r.Height != 5 {
		t.Errorf("Unexpected report %+v", r)
	}
	// (6-3+1) * (5-3+1)
	if r.Windows != 12 {
		t.Errorf("Expected 12 windows, got %d", r.Windows)
	}

	f, err := os.Open(mapPath)
	if err != nil {
		t.Fatalf("Map not written: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("Failed to decode map: %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, 4, 3) {
		t.Errorf("Expected 4x3 map, got %v", img.Bounds())
	}
}

func TestCompareCommand_GlobalMapRejected(t *testing.T) {
	resetCompareFlags(t)
	tmpDir := t.TempDir()

	xPath = filepath.Join(tmpDir, "x.png")
	yPath = xPath
	writeTestImage(t, xPath, 0)
	mapPath = filepath.Join(tmpDir, "map.png")
	saveReport = true
	compareDataDir = filepath.Join(tmpDir, "data")

	if err := runCompare(nil, nil); err == nil {
		t.Error("Expected error when mapping a global comparison")
	}

	// Rejected before anything is written
	if _, err := os.Stat(compareDataDir); !os.IsNotExist(err) {
		t.Errorf("Expected no report directory, got %v", err)
	}
	if _, err := os.Stat(mapPath); !os.IsNotExist(err) {
		t.Errorf("Expected no map file, got %v", err)
	}
}

func TestCompareCommand_MissingImage(t *testing.T) {
	resetCompareFlags(t)

	xPath = filepath.Join(t.TempDir(), "missing.png")
	yPath = xPath

	if err := runCompare(nil, nil); err == nil {
		t.Error("Expected error for missing image")
	}
}

func TestModeValue(t *testing.T) {
	var m modeValue
	if err := m.Set("LOCAL"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if m.String() != "local" {
		t.Errorf("Expected local, got %s", m.String())
	}
	if err := m.Set("tiled"); err == nil {
		t.Error("Expected error for unknown mode")
	}
	if m.String() != "local" {
		t.Errorf("Failed Set should not change value, got %s", m.String())
	}
	if m.Type() != "mode" {
		t.Errorf("Unexpected type %s", m.Type())
	}
}

func TestFormatPSNR(t *testing.T) {
	if got := formatPSNR(-1); got != "inf" {
		t.Errorf("formatPSNR(-1) = %s", got)
	}
	if got := formatPSNR(31.234); got != "31.23 dB" {
		t.Errorf("formatPSNR(31.234) = %s", got)
	}
}
