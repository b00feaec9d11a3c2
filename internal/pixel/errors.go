package pixel

import "errors"

var (
	// ErrShapeMismatch is returned when a buffer length does not equal width*height
	// or nested rows are ragged.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrEmptyImage is returned when a grid would have zero pixels.
	ErrEmptyImage = errors.New("empty image")

	// ErrInvalidWindowSize is returned when a window size exceeds the grid width
	// or is not positive.
	ErrInvalidWindowSize = errors.New("invalid window size")

	// ErrDecode matches any *DecodeError.
	// Use errors.Is(err, ErrDecode) to check for this error.
	ErrDecode = &DecodeError{}
)

// DecodeError wraps a failure of the external decode step.
type DecodeError struct {
	Cause error
}

func (e *DecodeError) Error() string {
	if e.Cause != nil {
		return "decode error: " + e.Cause.Error()
	}
	return "decode error"
}

func (e *DecodeError) Unwrap() error { return e.Cause }

func (e *DecodeError) Is(target error) bool {
	_, ok := target.(*DecodeError)
	return ok
}
