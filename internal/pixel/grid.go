package pixel

import "fmt"

// Grid is an immutable grayscale pixel buffer indexed [x][y].
//
// Flattening visits x in the outer loop and y in the inner loop, so the
// sample at (x, y) lives at flat index x*height + y. Two grids being
// compared must share this convention for flattened positions to line up.
type Grid struct {
	samples [][]uint8 // samples[x][y]
	width   int
	height  int
}

// Decoder turns an encoded image into a flat grayscale buffer of exactly
// width*height samples ordered x*height + y.
type Decoder interface {
	DecodeGray(raw []byte, width, height int) ([]uint8, error)
}

// DecoderFunc adapts a plain function to the Decoder interface.
type DecoderFunc func(raw []byte, width, height int) ([]uint8, error)

// DecodeGray calls f.
func (f DecoderFunc) DecodeGray(raw []byte, width, height int) ([]uint8, error) {
	return f(raw, width, height)
}

// FromDecoded runs dec over raw and reshapes the result into a width x height grid.
func FromDecoded(raw []byte, width, height int, dec Decoder) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrEmptyImage
	}

	buf, err := dec.DecodeGray(raw, width, height)
	if err != nil {
		return nil, &DecodeError{Cause: err}
	}

	return FromFlat(buf, width, height)
}

// FromFlat reshapes a flat buffer of width*height samples into a grid.
// The buffer is copied.
func FromFlat(buf []uint8, width, height int) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrEmptyImage
	}
	if len(buf) != width*height {
		return nil, fmt.Errorf("%w: buffer has %d samples, %dx%d needs %d",
			ErrShapeMismatch, len(buf), width, height, width*height)
	}

	samples := make([][]uint8, width)
	for x := 0; x < width; x++ {
		row := make([]uint8, height)
		copy(row, buf[x*height:(x+1)*height])
		samples[x] = row
	}

	return &Grid{samples: samples, width: width, height: height}, nil
}

// FromRows builds a grid from an already nested [x][y] array.
// Every row must have the same non-zero length. The rows are copied.
func FromRows(rows [][]uint8) (*Grid, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, ErrEmptyImage
	}

	height := len(rows[0])
	samples := make([][]uint8, len(rows))
	for x, row := range rows {
		if len(row) != height {
			return nil, fmt.Errorf("%w: row %d has %d samples, want %d",
				ErrShapeMismatch, x, len(row), height)
		}
		samples[x] = append([]uint8(nil), row...)
	}

	return &Grid{samples: samples, width: len(rows), height: height}, nil
}

// Width returns the size of the x dimension.
func (g *Grid) Width() int { return g.width }

// Height returns the size of the y dimension.
func (g *Grid) Height() int { return g.height }

// At returns the sample at (x, y).
func (g *Grid) At(x, y int) uint8 { return g.samples[x][y] }

// PixelCount returns width*height.
func (g *Grid) PixelCount() int {
	if g == nil {
		return 0
	}
	return g.width * g.height
}

// Flatten returns the samples in x-major order, the inverse of FromFlat.
func (g *Grid) Flatten() []uint8 {
	flat := make([]uint8, 0, g.width*g.height)
	for _, row := range g.samples {
		flat = append(flat, row...)
	}
	return flat
}

// Sum returns the total of all samples.
func (g *Grid) Sum() float64 {
	var sum float64
	for _, row := range g.samples {
		for _, p := range row {
			sum += float64(p)
		}
	}
	return sum
}

// Equal reports whether both grids have the same shape and samples.
func (g *Grid) Equal(other *Grid) bool {
	if g == nil || other == nil {
		return g == other
	}
	if g.width != other.width || g.height != other.height {
		return false
	}
	for x := range g.samples {
		for y := range g.samples[x] {
			if g.samples[x][y] != other.samples[x][y] {
				return false
			}
		}
	}
	return true
}
