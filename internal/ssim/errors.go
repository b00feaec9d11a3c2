package ssim

import (
	"errors"
	"fmt"

	"github.com/cwbudde/ssimcompare/internal/pixel"
)

var (
	// ErrEmptyImage is returned when either image has zero pixels.
	ErrEmptyImage = pixel.ErrEmptyImage

	// ErrInvalidWindowSize is returned when the window size exceeds the image width.
	ErrInvalidWindowSize = pixel.ErrInvalidWindowSize

	// ErrMissingWindowSize is returned when local mode is requested without a window size.
	ErrMissingWindowSize = errors.New("missing window size")

	// ErrEmptyWindowSet is returned when windowing produced no window pairs.
	ErrEmptyWindowSet = errors.New("empty window set")

	// ErrSizeMismatch matches any *SizeMismatchError.
	// Use errors.Is(err, ErrSizeMismatch) to check for this error.
	ErrSizeMismatch = &SizeMismatchError{}
)

// SizeMismatchError reports two images with different (or zero) pixel counts.
type SizeMismatchError struct {
	X, Y int
}

func (e *SizeMismatchError) Error() string {
	if e.X == 0 && e.Y == 0 {
		return "size mismatch"
	}
	return fmt.Sprintf("size mismatch: %d pixels vs %d pixels", e.X, e.Y)
}

func (e *SizeMismatchError) Is(target error) bool {
	_, ok := target.(*SizeMismatchError)
	return ok
}
