package store

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Report records the inputs and outcome of one comparison.
type Report struct {
	ID         string    `json:"id"`
	XPath      string    `json:"xPath"`
	YPath      string    `json:"yPath"`
	Mode       string    `json:"mode"` // global, local
	WindowSize int       `json:"windowSize,omitempty"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	Filter     string    `json:"filter,omitempty"`
	Score      float64   `json:"score"`
	MSE        float64   `json:"mse"`
	PSNR       float64   `json:"psnr"` // -1 when the images are identical
	Windows    int       `json:"windows,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewReport creates a report with a fresh ID and the current time.
// An infinite PSNR is stored as -1, since JSON has no infinity.
func NewReport(xPath, yPath, mode string, windowSize, width, height int, score, mse, psnr float64) *Report {
	if math.IsInf(psnr, 1) {
		psnr = -1
	}
	return &Report{
		ID:         uuid.New().String(),
		XPath:      xPath,
		YPath:      yPath,
		Mode:       mode,
		WindowSize: windowSize,
		Width:      width,
		Height:     height,
		Score:      score,
		MSE:        mse,
		PSNR:       psnr,
		Timestamp:  time.Now(),
	}
}

// Validate checks that the report has the fields needed to be persisted.
func (r *Report) Validate() error {
	if r.ID == "" {
		return &ValidationError{Field: "ID", Reason: "cannot be empty"}
	}
	if r.XPath == "" {
		return &ValidationError{Field: "XPath", Reason: "cannot be empty"}
	}
	if r.YPath == "" {
		return &ValidationError{Field: "YPath", Reason: "cannot be empty"}
	}
	switch r.Mode {
	case "global":
	case "local":
		if r.WindowSize <= 0 {
			return &ValidationError{Field: "WindowSize", Reason: "must be positive in local mode"}
		}
	default:
		return &ValidationError{Field: "Mode", Reason: "must be global or local"}
	}
	if r.Width <= 0 || r.Height <= 0 {
		return &ValidationError{Field: "Width/Height", Reason: "must be positive"}
	}
	if math.IsNaN(r.Score) || math.IsInf(r.Score, 0) {
		return &ValidationError{Field: "Score", Reason: "must be finite"}
	}
	if r.MSE < 0 {
		return &ValidationError{Field: "MSE", Reason: "cannot be negative"}
	}
	if r.Timestamp.IsZero() {
		return &ValidationError{Field: "Timestamp", Reason: "cannot be zero"}
	}
	return nil
}

// ValidationError represents a report validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}
