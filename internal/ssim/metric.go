package ssim

import (
	"math"

	"github.com/cwbudde/ssimcompare/internal/pixel"
)

// MSE computes the mean squared error over index-aligned samples.
func MSE(x, y *pixel.Grid) (float64, error) {
	nx, ny := x.PixelCount(), y.PixelCount()
	if nx != ny || nx == 0 {
		return 0, &SizeMismatchError{X: nx, Y: ny}
	}

	flatX, flatY := x.Flatten(), y.Flatten()

	var sum float64
	for i := range flatX {
		d := float64(flatX[i]) - float64(flatY[i])
		sum += d * d
	}

	return sum / float64(nx), nil
}

// PSNR computes the peak signal-to-noise ratio in dB.
// Identical grids yield +Inf.
func PSNR(x, y *pixel.Grid) (float64, error) {
	mse, err := MSE(x, y)
	if err != nil {
		return 0, err
	}
	if mse == 0 {
		return math.Inf(1), nil
	}
	return 10 * math.Log10(dynamicRange*dynamicRange/mse), nil
}
