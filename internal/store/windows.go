package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"
)

const windowFileName = "windows.jsonl.zst"

// WindowEntry is the score of one local comparison window.
// Each entry is serialized as a JSON line in windows.jsonl.zst.
type WindowEntry struct {
	// X and Y are the window origin in the source image
	X int `json:"x"`
	Y int `json:"y"`

	Score float64 `json:"score"`
}

// windowLine is the on-disk form of a WindowEntry. JSON has no NaN, so an
// undefined score is written as null.
type windowLine struct {
	X     int      `json:"x"`
	Y     int      `json:"y"`
	Score *float64 `json:"score"`
}

func (e WindowEntry) MarshalJSON() ([]byte, error) {
	line := windowLine{X: e.X, Y: e.Y}
	if !math.IsNaN(e.Score) {
		line.Score = &e.Score
	}
	return json.Marshal(line)
}

func (e *WindowEntry) UnmarshalJSON(data []byte) error {
	var line windowLine
	if err := json.Unmarshal(data, &line); err != nil {
		return err
	}
	e.X, e.Y, e.Score = line.X, line.Y, math.NaN()
	if line.Score != nil {
		e.Score = *line.Score
	}
	return nil
}

// WindowWriter writes window entries as zstd-compressed JSON lines.
// It is safe for concurrent use.
type WindowWriter struct {
	mu     sync.Mutex
	file   *os.File
	enc    *zstd.Encoder
	writer *bufio.Writer
	path   string
	count  int
}

// NewWindowWriter creates <dir>/windows.jsonl.zst, truncating any
// existing trace.
func NewWindowWriter(dir string) (*WindowWriter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}

	path := filepath.Join(dir, windowFileName)
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open window file: %w", err)
	}

	enc, err := zstd.NewWriter(file, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}

	return &WindowWriter{
		file:   file,
		enc:    enc,
		writer: bufio.NewWriterSize(enc, 64*1024),
		path:   path,
	}, nil
}

// Write appends a window entry. Entries are buffered until Close.
func (ww *WindowWriter) Write(entry WindowEntry) error {
	ww.mu.Lock()
	defer ww.mu.Unlock()

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal window entry: %w", err)
	}
	if _, err := ww.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write window entry: %w", err)
	}
	if err := ww.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	ww.count++
	return nil
}

// Count returns the number of entries written so far.
func (ww *WindowWriter) Count() int {
	ww.mu.Lock()
	defer ww.mu.Unlock()
	return ww.count
}

// Close flushes buffered data, finishes the zstd frame and closes the file.
func (ww *WindowWriter) Close() error {
	ww.mu.Lock()
	defer ww.mu.Unlock()

	if err := ww.writer.Flush(); err != nil {
		ww.enc.Close()
		ww.file.Close()
		return fmt.Errorf("failed to flush on close: %w", err)
	}
	if err := ww.enc.Close(); err != nil {
		ww.file.Close()
		return fmt.Errorf("failed to finish zstd stream: %w", err)
	}
	if err := ww.file.Close(); err != nil {
		return fmt.Errorf("failed to close window file: %w", err)
	}

	return nil
}

// Path returns the filesystem path to the window file.
func (ww *WindowWriter) Path() string {
	return ww.path
}

// WindowReader reads window entries from a zstd-compressed JSONL file.
type WindowReader struct {
	file    *os.File
	dec     *zstd.Decoder
	scanner *bufio.Scanner
}

// NewWindowReader opens the window file at path. The returned error
// satisfies os.IsNotExist when the file is missing.
func NewWindowReader(path string) (*WindowReader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	dec, err := zstd.NewReader(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	scanner := bufio.NewScanner(dec)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	return &WindowReader{file: file, dec: dec, scanner: scanner}, nil
}

// Read returns the next entry, or io.EOF when no more are available.
func (wr *WindowReader) Read() (*WindowEntry, error) {
	if !wr.scanner.Scan() {
		if err := wr.scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to scan window line: %w", err)
		}
		return nil, io.EOF
	}

	var entry WindowEntry
	if err := json.Unmarshal(wr.scanner.Bytes(), &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal window entry: %w", err)
	}
	return &entry, nil
}

// ReadAll reads all remaining entries.
func (wr *WindowReader) ReadAll() ([]WindowEntry, error) {
	entries := []WindowEntry{}
	for {
		entry, err := wr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}

// Close releases the decoder and closes the file.
func (wr *WindowReader) Close() error {
	wr.dec.Close()
	if err := wr.file.Close(); err != nil {
		return fmt.Errorf("failed to close window file: %w", err)
	}
	return nil
}

// ReadWindowFile reads every entry of the window file at path.
func ReadWindowFile(path string) ([]WindowEntry, error) {
	wr, err := NewWindowReader(path)
	if err != nil {
		return nil, err
	}
	defer wr.Close()

	return wr.ReadAll()
}
