package store

import (
	"bytes"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestWindowWriter_RoundTrip(t *testing.T) {
	store, _ := setupTestStore(t)

	ww, err := store.WindowWriter("trace")
	if err != nil {
		t.Fatalf("WindowWriter failed: %v", err)
	}

	want := []WindowEntry{
		{X: 0, Y: 0, Score: 1},
		{X: 0, Y: 1, Score: 0.5},
		{X: 1, Y: 0, Score: -0.25},
	}
	for _, e := range want {
		if err := ww.Write(e); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	if ww.Count() != len(want) {
		t.Errorf("Expected count %d, got %d", len(want), ww.Count())
	}
	if err := ww.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	got, err := store.ReadWindows("trace")
	if err != nil {
		t.Fatalf("ReadWindows failed: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("Expected %d entries, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Entry %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestWindowWriter_Compressed(t *testing.T) {
	dir := t.TempDir()

	ww, err := NewWindowWriter(dir)
	if err != nil {
		t.Fatalf("NewWindowWriter failed: %v", err)
	}
	for i := 0; i < 1000; i++ {
		if err := ww.Write(WindowEntry{X: i / 40, Y: i % 40, Score: 0.875}); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	if err := ww.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if ww.Path() != filepath.Join(dir, "windows.jsonl.zst") {
		t.Errorf("Unexpected path %s", ww.Path())
	}

	data, err := os.ReadFile(ww.Path())
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	// zstd frame magic number
	if !bytes.HasPrefix(data, []byte{0x28, 0xb5, 0x2f, 0xfd}) {
		t.Errorf("Expected zstd magic, got % x", data[:4])
	}
	if bytes.Contains(data, []byte(`"score"`)) {
		t.Error("Window file should not contain plain JSON")
	}
}

func TestWindowWriter_Concurrent(t *testing.T) {
	ww, err := NewWindowWriter(t.TempDir())
	if err != nil {
		t.Fatalf("NewWindowWriter failed: %v", err)
	}

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				if err := ww.Write(WindowEntry{X: g, Y: i, Score: 1}); err != nil {
					t.Errorf("Write failed: %v", err)
				}
			}
		}(g)
	}
	wg.Wait()

	if err := ww.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	entries, err := ReadWindowFile(ww.Path())
	if err != nil {
		t.Fatalf("ReadWindowFile failed: %v", err)
	}
	if len(entries) != 400 {
		t.Errorf("Expected 400 entries, got %d", len(entries))
	}
}

func TestWindowReader_Incremental(t *testing.T) {
	ww, err := NewWindowWriter(t.TempDir())
	if err != nil {
		t.Fatalf("NewWindowWriter failed: %v", err)
	}
	if err := ww.Write(WindowEntry{X: 2, Y: 3, Score: 0.5}); err != nil {
		t.Fatal(err)
	}
	if err := ww.Close(); err != nil {
		t.Fatal(err)
	}

	wr, err := NewWindowReader(ww.Path())
	if err != nil {
		t.Fatalf("NewWindowReader failed: %v", err)
	}
	defer wr.Close()

	entry, err := wr.Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if entry.X != 2 || entry.Y != 3 || entry.Score != 0.5 {
		t.Errorf("Unexpected entry %+v", entry)
	}
	if _, err := wr.Read(); err != io.EOF {
		t.Errorf("Expected io.EOF, got %v", err)
	}
}

func TestWindowWriter_EmptyTrace(t *testing.T) {
	ww, err := NewWindowWriter(t.TempDir())
	if err != nil {
		t.Fatalf("NewWindowWriter failed: %v", err)
	}
	if err := ww.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	entries, err := ReadWindowFile(ww.Path())
	if err != nil {
		t.Fatalf("ReadWindowFile failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected no entries, got %d", len(entries))
	}
}

func TestReadWindowFile_Missing(t *testing.T) {
	_, err := ReadWindowFile(filepath.Join(t.TempDir(), "nope.zst"))
	if !os.IsNotExist(err) {
		t.Errorf("Expected not-exist error, got %v", err)
	}
}

func TestWindowEntry_NaNScore(t *testing.T) {
	ww, err := NewWindowWriter(t.TempDir())
	if err != nil {
		t.Fatalf("NewWindowWriter failed: %v", err)
	}
	if err := ww.Write(WindowEntry{X: 1, Y: 2, Score: math.NaN()}); err != nil {
		t.Fatalf("Write of NaN score failed: %v", err)
	}
	if err := ww.Close(); err != nil {
		t.Fatal(err)
	}

	entries, err := ReadWindowFile(ww.Path())
	if err != nil {
		t.Fatalf("ReadWindowFile failed: %v", err)
	}
	if len(entries) != 1 || entries[0].X != 1 || entries[0].Y != 2 || !math.IsNaN(entries[0].Score) {
		t.Errorf("Expected NaN entry at (1,2), got %+v", entries)
	}
}
