package ssim

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/cwbudde/ssimcompare/internal/pixel"
	"golang.org/x/sync/errgroup"
)

// ModeKind selects how a comparison aggregates.
type ModeKind int

const (
	// ModeGlobal scores the whole image once.
	ModeGlobal ModeKind = iota
	// ModeLocal averages the scores of square windows.
	ModeLocal
)

func (k ModeKind) String() string {
	switch k {
	case ModeGlobal:
		return "global"
	case ModeLocal:
		return "local"
	default:
		return "unknown"
	}
}

// Mode is a comparison mode. WindowSize is only meaningful for ModeLocal,
// where zero means no size was given.
type Mode struct {
	Kind       ModeKind
	WindowSize int
}

// Global returns the whole-image mode.
func Global() Mode { return Mode{Kind: ModeGlobal} }

// Local returns the windowed-average mode with the given window size.
func Local(windowSize int) Mode { return Mode{Kind: ModeLocal, WindowSize: windowSize} }

// ParseMode parses "global" or "local". windowSize is attached to local modes.
func ParseMode(name string, windowSize int) (Mode, error) {
	switch strings.ToLower(name) {
	case "global":
		return Global(), nil
	case "local":
		return Local(windowSize), nil
	default:
		return Mode{}, fmt.Errorf("unknown mode: %s", name)
	}
}

func (m Mode) String() string {
	if m.Kind == ModeLocal {
		return fmt.Sprintf("local(%d)", m.WindowSize)
	}
	return m.Kind.String()
}

// WindowScore is the score of one window pair, keyed by the window origin.
type WindowScore struct {
	X     int     `json:"x"`
	Y     int     `json:"y"`
	Score float64 `json:"score"`
}

// Result is the outcome of a detailed comparison.
type Result struct {
	Score   float64
	Mode    Mode
	Windows []WindowScore // nil in global mode
}

// Options configures a Comparator.
type Options struct {
	// Workers bounds the goroutines scoring window pairs in local mode.
	// Zero or less uses GOMAXPROCS.
	Workers int
}

// Comparator compares pixel grids in global or local mode.
// It holds no per-comparison state and is safe for concurrent use.
type Comparator struct {
	workers int
}

// NewComparator creates a comparator with the given options.
func NewComparator(opts Options) *Comparator {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Comparator{workers: workers}
}

// Workers returns the number of goroutines used in local mode.
func (c *Comparator) Workers() int { return c.workers }

// Compare scores x against y with a default comparator.
func Compare(x, y *pixel.Grid, mode Mode) (float64, error) {
	return NewComparator(Options{}).Compare(x, y, mode)
}

// Compare scores x against y.
func (c *Comparator) Compare(x, y *pixel.Grid, mode Mode) (float64, error) {
	res, err := c.CompareDetailed(context.Background(), x, y, mode)
	if err != nil {
		return 0, err
	}
	return res.Score, nil
}

// CompareDetailed scores x against y and, in local mode, reports every
// window score in emission order.
func (c *Comparator) CompareDetailed(ctx context.Context, x, y *pixel.Grid, mode Mode) (*Result, error) {
	nx, ny := x.PixelCount(), y.PixelCount()
	if nx == 0 || ny == 0 {
		return nil, ErrEmptyImage
	}
	if nx != ny {
		return nil, &SizeMismatchError{X: nx, Y: ny}
	}

	switch mode.Kind {
	case ModeGlobal:
		score, err := Score(x, y)
		if err != nil {
			return nil, err
		}
		return &Result{Score: score, Mode: mode}, nil

	case ModeLocal:
		return c.compareLocal(ctx, x, y, mode)

	default:
		return nil, fmt.Errorf("unknown mode kind: %d", mode.Kind)
	}
}

func (c *Comparator) compareLocal(ctx context.Context, x, y *pixel.Grid, mode Mode) (*Result, error) {
	if mode.WindowSize == 0 {
		return nil, ErrMissingWindowSize
	}

	countX, err := x.WindowCount(mode.WindowSize)
	if err != nil {
		return nil, err
	}
	countY, err := y.WindowCount(mode.WindowSize)
	if err != nil {
		return nil, err
	}

	// Pairing is positional and stops at the shorter sequence.
	n := min(countX, countY)
	if n == 0 {
		return nil, ErrEmptyWindowSet
	}

	size := mode.WindowSize
	scores := make([]WindowScore, n)
	workers := min(c.workers, n)
	chunk := (n + workers - 1) / workers

	// Windows are flattened one at a time into per-chunk buffers, so memory
	// stays proportional to the image rather than to the window count.
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		start := start
		g.Go(func() error {
			bufX := make([]uint8, 0, size*size)
			bufY := make([]uint8, 0, size*size)
			for i := start; i < end; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				ox, oy := x.WindowOrigin(i, size)
				bufX = x.FlatWindow(ox, oy, size, bufX)
				px, py := y.WindowOrigin(i, size)
				bufY = y.FlatWindow(px, py, size, bufY)
				scores[i] = WindowScore{X: ox, Y: oy, Score: scoreFlat(bufX, bufY)}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Summed in emission order so the mean does not depend on scheduling.
	var sum float64
	for _, ws := range scores {
		sum += ws.Score
	}

	return &Result{
		Score:   sum / float64(n),
		Mode:    mode,
		Windows: scores,
	}, nil
}
