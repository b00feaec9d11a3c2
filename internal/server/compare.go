package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/cwbudde/ssimcompare/internal/codec"
	"github.com/cwbudde/ssimcompare/internal/pixel"
	"github.com/cwbudde/ssimcompare/internal/ssim"
	"github.com/cwbudde/ssimcompare/internal/store"
)

// ErrUndefinedScore is returned when a comparison yields NaN, which happens
// when an image or window holds a single pixel.
var ErrUndefinedScore = errors.New("score is undefined for single-pixel images or windows")

// Request limits. maxLocalWork bounds the samples visited in local mode,
// (width-s+1)*(height-s+1)*s*s.
const (
	MaxWindowSize = 256
	MaxDimension  = 8192
	maxLocalWork  = 1 << 30
)

// CompareRequest describes one comparison of two image files.
type CompareRequest struct {
	XPath      string `json:"xPath"`
	YPath      string `json:"yPath"`
	Mode       string `json:"mode"` // global, local
	WindowSize int    `json:"windowSize,omitempty"`
	Width      int    `json:"width,omitempty"`  // defaults to x's native width
	Height     int    `json:"height,omitempty"` // defaults to x's native height
	Filter     string `json:"filter,omitempty"`
}

// RequestError reports an invalid comparison request.
type RequestError struct {
	Field  string
	Reason string
}

func (e *RequestError) Error() string {
	return "invalid request: " + e.Field + " " + e.Reason
}

// Validate checks the request and fills in the default mode.
func (r *CompareRequest) Validate() error {
	if r.XPath == "" {
		return &RequestError{Field: "xPath", Reason: "is required"}
	}
	if r.YPath == "" {
		return &RequestError{Field: "yPath", Reason: "is required"}
	}
	if r.Mode == "" {
		r.Mode = "global"
	}
	if _, err := ssim.ParseMode(r.Mode, r.WindowSize); err != nil {
		return &RequestError{Field: "mode", Reason: "must be global or local"}
	}
	if r.WindowSize < 0 || r.WindowSize > MaxWindowSize {
		return &RequestError{Field: "windowSize", Reason: fmt.Sprintf("must be between 0 and %d", MaxWindowSize)}
	}
	if r.Width < 0 || r.Height < 0 {
		return &RequestError{Field: "width/height", Reason: "cannot be negative"}
	}
	if r.Width > MaxDimension || r.Height > MaxDimension {
		return &RequestError{Field: "width/height", Reason: fmt.Sprintf("cannot exceed %d", MaxDimension)}
	}
	if (r.Width == 0) != (r.Height == 0) {
		return &RequestError{Field: "width/height", Reason: "must be given together"}
	}
	if _, err := codec.ParseFilter(r.Filter); err != nil {
		return &RequestError{Field: "filter", Reason: err.Error()}
	}
	return nil
}

// Outcome is the result of RunComparison.
type Outcome struct {
	Report  *store.Report
	Windows []ssim.WindowScore
}

// RunComparison decodes both images at a common size and compares them.
// Decode failures match pixel.ErrDecode; comparison failures carry the
// ssim error kinds.
func RunComparison(ctx context.Context, req CompareRequest, comparator *ssim.Comparator) (*Outcome, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	mode, _ := ssim.ParseMode(req.Mode, req.WindowSize)

	dec, err := codec.New(codec.Options{Filter: codec.Filter(req.Filter)})
	if err != nil {
		return nil, err
	}

	width, height := req.Width, req.Height
	if width == 0 {
		width, height, err = codec.FileDimensions(req.XPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", req.XPath, err)
		}
	}

	if err := checkWorkload(mode, width, height); err != nil {
		return nil, err
	}

	x, err := dec.LoadGrid(req.XPath, width, height)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", req.XPath, err)
	}
	y, err := dec.LoadGrid(req.YPath, width, height)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", req.YPath, err)
	}

	start := time.Now()
	result, err := comparator.CompareDetailed(ctx, x, y, mode)
	if err != nil {
		return nil, fmt.Errorf("comparison failed: %w", err)
	}

	if math.IsNaN(result.Score) {
		return nil, ErrUndefinedScore
	}

	mse, err := ssim.MSE(x, y)
	if err != nil {
		return nil, fmt.Errorf("mse failed: %w", err)
	}
	psnr, err := ssim.PSNR(x, y)
	if err != nil {
		return nil, fmt.Errorf("psnr failed: %w", err)
	}

	slog.Info("Comparison complete",
		"x", req.XPath, "y", req.YPath, "mode", mode.String(),
		"width", width, "height", height, "score", result.Score,
		"windows", len(result.Windows), "duration", time.Since(start))

	report := store.NewReport(req.XPath, req.YPath, mode.Kind.String(), mode.WindowSize,
		width, height, result.Score, mse, psnr)
	report.Filter = string(dec.Filter())
	report.Windows = len(result.Windows)

	return &Outcome{Report: report, Windows: result.Windows}, nil
}

// checkWorkload rejects target sizes and windows too large to score.
func checkWorkload(mode ssim.Mode, width, height int) error {
	if width > MaxDimension || height > MaxDimension {
		return &RequestError{Field: "width/height", Reason: fmt.Sprintf("%dx%d exceeds %d", width, height, MaxDimension)}
	}
	s := mode.WindowSize
	if mode.Kind != ssim.ModeLocal || s <= 0 || s > width || s > height {
		return nil
	}
	work := uint64(width-s+1) * uint64(height-s+1) * uint64(s) * uint64(s)
	if work > maxLocalWork {
		return &RequestError{Field: "windowSize", Reason: fmt.Sprintf("%d over %dx%d is too expensive", s, width, height)}
	}
	return nil
}

// SaveOutcome persists the report and, in local mode, its window trace.
func SaveOutcome(st store.Store, outcome *Outcome) error {
	if err := st.SaveReport(outcome.Report); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	if len(outcome.Windows) == 0 {
		return nil
	}

	ww, err := st.WindowWriter(outcome.Report.ID)
	if err != nil {
		return fmt.Errorf("failed to open window trace: %w", err)
	}
	for _, w := range outcome.Windows {
		if err := ww.Write(store.WindowEntry{X: w.X, Y: w.Y, Score: w.Score}); err != nil {
			ww.Close()
			return err
		}
	}
	return ww.Close()
}

// isInputError reports whether err was caused by the request rather than
// by the server.
func isInputError(err error) bool {
	return errors.Is(err, pixel.ErrDecode) ||
		errors.Is(err, ErrUndefinedScore) ||
		errors.Is(err, ssim.ErrSizeMismatch) ||
		errors.Is(err, ssim.ErrEmptyImage) ||
		errors.Is(err, ssim.ErrMissingWindowSize) ||
		errors.Is(err, ssim.ErrInvalidWindowSize) ||
		errors.Is(err, ssim.ErrEmptyWindowSet)
}
