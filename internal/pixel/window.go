package pixel

import "fmt"

// Window is a square sub-grid together with its origin in the parent grid.
type Window struct {
	X, Y int
	Grid *Grid
}

// Windows returns every size x size sub-grid whose origin (g, h) satisfies
// g+size <= width and h+size <= height, ordered g-major then h.
//
// Origins advance by one pixel in each dimension, so neighbouring windows
// overlap. Only the width is validated against size: a size larger than
// the height but not the width yields zero windows rather than an error.
func (g *Grid) Windows(size int) ([]Window, error) {
	n, err := g.WindowCount(size)
	if err != nil {
		return nil, err
	}

	windows := make([]Window, 0, n)
	for gx := 0; gx+size <= g.width; gx++ {
		for hy := 0; hy+size <= g.height; hy++ {
			windows = append(windows, Window{X: gx, Y: hy, Grid: g.sub(gx, hy, size)})
		}
	}

	return windows, nil
}

// WindowCount returns how many windows Windows(size) yields, without
// building them. It fails the same way Windows does.
func (g *Grid) WindowCount(size int) (int, error) {
	if size <= 0 || size > g.width {
		return 0, fmt.Errorf("%w: size %d, width %d", ErrInvalidWindowSize, size, g.width)
	}

	ny := g.height - size + 1
	if ny <= 0 {
		return 0, nil
	}
	return (g.width - size + 1) * ny, nil
}

// WindowOrigin returns the origin of the i-th window in Windows order.
// size must be valid for g and i below WindowCount(size).
func (g *Grid) WindowOrigin(i, size int) (x, y int) {
	ny := g.height - size + 1
	return i / ny, i % ny
}

// FlatWindow appends the size x size block at (x0, y0) to dst[:0] in
// x-major order and returns it. The result equals the flattened grid of
// the matching window, with no allocation once dst has capacity size*size.
func (g *Grid) FlatWindow(x0, y0, size int, dst []uint8) []uint8 {
	dst = dst[:0]
	for i := 0; i < size; i++ {
		dst = append(dst, g.samples[x0+i][y0:y0+size]...)
	}
	return dst
}

// sub copies the size x size block starting at (x0, y0).
func (g *Grid) sub(x0, y0, size int) *Grid {
	samples := make([][]uint8, size)
	for i := 0; i < size; i++ {
		row := make([]uint8, size)
		copy(row, g.samples[x0+i][y0:y0+size])
		samples[i] = row
	}
	return &Grid{samples: samples, width: size, height: size}
}
