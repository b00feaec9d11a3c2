package ssim

import (
	"math"

	"github.com/cwbudde/ssimcompare/internal/pixel"
)

// SSIM constants. They are float64 variables rather than untyped constants
// so that C1..C3 are rounded exactly as a float64 computation rounds them.
var (
	dynamicRange float64 = 255
	k1           float64 = 0.01
	k2           float64 = 0.03

	c1 = (k1 * dynamicRange) * (k1 * dynamicRange)
	c2 = (k2 * dynamicRange) * (k2 * dynamicRange)
	c3 = c2 / 2

	// Exponents of the luminance, contrast and structure terms.
	alpha float64 = 1
	beta  float64 = 1
	delta float64 = 1
)

// Stats are the per-image statistics the score is built from.
type Stats struct {
	Count    int
	Sum      float64
	Mean     float64
	Variance float64 // sample variance, divided by Count-1
}

// StatsOf computes the statistics of g over its flattened samples.
func StatsOf(g *pixel.Grid) Stats {
	return statsOf(g.Flatten())
}

func statsOf(flat []uint8) Stats {
	n := float64(len(flat))

	var sum float64
	for _, p := range flat {
		sum += float64(p)
	}
	mean := sum / n

	var sq float64
	for _, p := range flat {
		d := float64(p) - mean
		sq += float64(d * d)
	}

	return Stats{
		Count:    len(flat),
		Sum:      sum,
		Mean:     mean,
		Variance: sq / (n - 1),
	}
}

// covariance of two index-aligned sample sequences of equal length.
func covariance(x, y []uint8, meanX, meanY float64) float64 {
	var sum float64
	for i := range x {
		lhs := float64(x[i]) - meanX
		rhs := float64(y[i]) - meanY
		sum += float64(lhs * rhs)
	}
	return sum / (float64(len(x)) - 1)
}

// Reference holds one image and its statistics so it can be scored against
// any number of candidates of the same pixel count.
type Reference struct {
	flat  []uint8
	stats Stats
}

// NewReference computes the statistics of x.
func NewReference(x *pixel.Grid) (*Reference, error) {
	if x.PixelCount() == 0 {
		return nil, ErrEmptyImage
	}

	flat := x.Flatten()
	return &Reference{flat: flat, stats: statsOf(flat)}, nil
}

// Stats returns the reference image statistics.
func (r *Reference) Stats() Stats { return r.stats }

// Against scores y against the reference.
func (r *Reference) Against(y *pixel.Grid) (float64, error) {
	if y.PixelCount() != r.stats.Count {
		return 0, &SizeMismatchError{X: r.stats.Count, Y: y.PixelCount()}
	}

	flatY := y.Flatten()
	sy := statsOf(flatY)
	cov := covariance(r.flat, flatY, r.stats.Mean, sy.Mean)
	return combine(r.stats, sy, cov), nil
}

// scoreFlat scores two index-aligned sample sequences of equal, non-zero
// length.
func scoreFlat(x, y []uint8) float64 {
	sx, sy := statsOf(x), statsOf(y)
	return combine(sx, sy, covariance(x, y, sx.Mean, sy.Mean))
}

// combine builds the score from both images' statistics and their
// covariance.
func combine(sx, sy Stats, cov float64) float64 {
	// Products are converted explicitly so they are never fused into
	// multiply-adds; identical inputs must score exactly 1.
	luminance := (float64(2*sx.Mean*sy.Mean) + c1) /
		(float64(sx.Mean*sx.Mean) + float64(sy.Mean*sy.Mean) + c1)

	// Contrast and structure combine the raw sums with the variance and
	// covariance terms. This is not the textbook SSIM; scores depend on it.
	contrast := (float64(2*sx.Sum*sy.Sum) + c2) / (sx.Variance + sy.Variance + c2)
	structure := (cov + c3) / (float64(sx.Sum*sy.Sum) + c3)

	return math.Pow(luminance, alpha) * math.Pow(contrast, beta) * math.Pow(structure, delta)
}

// Score computes the SSIM of x and y. Both must have the same, non-zero
// pixel count.
func Score(x, y *pixel.Grid) (float64, error) {
	nx, ny := x.PixelCount(), y.PixelCount()
	if nx != ny || nx == 0 {
		return 0, &SizeMismatchError{X: nx, Y: ny}
	}

	ref, err := NewReference(x)
	if err != nil {
		return 0, err
	}
	return ref.Against(y)
}
