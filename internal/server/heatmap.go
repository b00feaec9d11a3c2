package server

import (
	"image"
	"image/color"
	"math"

	"github.com/cwbudde/ssimcompare/internal/store"
)

// ScoreMap renders per-window scores as a false-color image with one pixel
// per window origin: black means identical, red means dissimilar.
// It returns nil when there are no entries.
func ScoreMap(entries []store.WindowEntry) *image.NRGBA {
	if len(entries) == 0 {
		return nil
	}

	var w, h int
	for _, e := range entries {
		w = max(w, e.X+1)
		h = max(h, e.Y+1)
	}

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		if i%4 == 3 {
			img.Pix[i] = 255
		}
	}

	for _, e := range entries {
		img.SetNRGBA(e.X, e.Y, color.NRGBA{R: dissimilarity(e.Score), A: 255})
	}
	return img
}

// dissimilarity maps a score in [-1, 1] to 0 (score 1) .. 255 (score <= 0).
func dissimilarity(score float64) uint8 {
	if math.IsNaN(score) {
		return 255
	}
	d := (1 - score) * 255
	return uint8(math.Max(0, math.Min(255, math.Round(d))))
}
