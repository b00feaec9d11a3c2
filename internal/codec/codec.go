package codec

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"math"
	"os"
	"strings"

	"github.com/cwbudde/ssimcompare/internal/pixel"

	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Filter names a resampling filter used when resizing to the target size.
type Filter string

const (
	FilterGaussian   Filter = "gaussian"
	FilterCatmullRom Filter = "catmullrom"
	FilterBiLinear   Filter = "bilinear"
	FilterNearest    Filter = "nearest"
)

// Filters lists the supported filter names.
var Filters = []Filter{FilterGaussian, FilterCatmullRom, FilterBiLinear, FilterNearest}

// gaussianSigma and gaussianSupport define the default resampling kernel.
const (
	gaussianSigma   = 0.5
	gaussianSupport = 3.0
)

// Gaussian is a Gaussian resampling kernel with sigma 0.5 and support 3.
var Gaussian = &xdraw.Kernel{
	Support: gaussianSupport,
	At: func(t float64) float64 {
		return math.Exp(-t*t/(2*gaussianSigma*gaussianSigma)) / (math.Sqrt(2*math.Pi) * gaussianSigma)
	},
}

// ParseFilter maps a filter name to its interpolator.
func ParseFilter(name string) (xdraw.Interpolator, error) {
	switch Filter(strings.ToLower(name)) {
	case FilterGaussian, "":
		return Gaussian, nil
	case FilterCatmullRom:
		return xdraw.CatmullRom, nil
	case FilterBiLinear:
		return xdraw.BiLinear, nil
	case FilterNearest:
		return xdraw.NearestNeighbor, nil
	default:
		return nil, fmt.Errorf("unsupported filter: %s", name)
	}
}

// Options configures a Decoder.
type Options struct {
	Filter Filter
}

// Decoder decodes encoded images into grayscale buffers of a fixed size.
// It is stateless and safe for concurrent use.
type Decoder struct {
	filter Filter
	interp xdraw.Interpolator
}

// New creates a decoder using the given resampling filter.
func New(opts Options) (*Decoder, error) {
	interp, err := ParseFilter(string(opts.Filter))
	if err != nil {
		return nil, err
	}

	filter := Filter(strings.ToLower(string(opts.Filter)))
	if filter == "" {
		filter = FilterGaussian
	}
	return &Decoder{filter: filter, interp: interp}, nil
}

// Filter returns the decoder's resampling filter name.
func (d *Decoder) Filter() Filter { return d.filter }

// DecodeGray decodes raw, resizes it to fill width x height and returns the
// luma samples in x*height + y order.
func (d *Decoder) DecodeGray(raw []byte, width, height int) ([]uint8, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid target size %dx%d", width, height)
	}

	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	b := img.Bounds()
	slog.Debug("Decoded image", "format", format, "width", b.Dx(), "height", b.Dy(),
		"target_width", width, "target_height", height, "filter", d.filter)

	filled := ResizeToFill(img, width, height, d.interp)
	return Luma(filled), nil
}

// Dimensions reports the native size of an encoded image without decoding
// its pixels.
func Dimensions(raw []byte) (width, height int, err error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read image config: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// FileDimensions reports the native size of the image file at path.
func FileDimensions(path string) (width, height int, err error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, &pixel.DecodeError{Cause: err}
	}
	width, height, err = Dimensions(raw)
	if err != nil {
		return 0, 0, &pixel.DecodeError{Cause: err}
	}
	return width, height, nil
}

// LoadGrid reads the image file at path and decodes it into a
// width x height grid. Read and decode failures match pixel.ErrDecode.
func (d *Decoder) LoadGrid(path string, width, height int) (*pixel.Grid, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &pixel.DecodeError{Cause: err}
	}
	return pixel.FromDecoded(raw, width, height, d)
}

// fillDimensions scales w x h, preserving aspect ratio, so the result
// covers nw x nh.
func fillDimensions(w, h, nw, nh int) (int, int) {
	wratio := float64(nw) / float64(w)
	hratio := float64(nh) / float64(h)
	ratio := math.Max(wratio, hratio)

	rw := max(int(math.Round(float64(w)*ratio)), 1)
	rh := max(int(math.Round(float64(h)*ratio)), 1)
	return rw, rh
}

// ResizeToFill scales src so it covers width x height and crops the
// overflow evenly from both sides of the longer axis. The returned image
// has bounds (0, 0, width, height). Sources already of that size are only
// re-based, not resampled.
func ResizeToFill(src image.Image, width, height int, interp xdraw.Interpolator) image.Image {
	sb := src.Bounds()
	if sb.Dx() == width && sb.Dy() == height {
		if sb.Min == (image.Point{}) {
			return src
		}
		dst := image.NewNRGBA(image.Rect(0, 0, width, height))
		xdraw.Copy(dst, image.Point{}, src, sb, xdraw.Src, nil)
		return dst
	}

	iw, ih := fillDimensions(sb.Dx(), sb.Dy(), width, height)
	scaled := image.NewNRGBA(image.Rect(0, 0, iw, ih))
	interp.Scale(scaled, scaled.Bounds(), src, sb, xdraw.Src, nil)

	var x0, y0 int
	if width*ih > iw*height {
		y0 = max((ih-height)/2, 0)
	} else {
		x0 = max((iw-width)/2, 0)
	}

	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	xdraw.Copy(dst, image.Point{}, scaled, image.Rect(x0, y0, x0+width, y0+height), xdraw.Src, nil)
	return dst
}

// Luma converts img to Rec. 709 luma, ignoring alpha, and returns the
// samples in x*height + y order.
func Luma(img image.Image) []uint8 {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	buf := make([]uint8, width*height)

	if gray, ok := img.(*image.Gray); ok {
		for x := 0; x < width; x++ {
			for y := 0; y < height; y++ {
				buf[x*height+y] = gray.GrayAt(b.Min.X+x, b.Min.Y+y).Y
			}
		}
		return buf
	}

	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			buf[x*height+y] = rec709(c.R, c.G, c.B)
		}
	}
	return buf
}

func rec709(r, g, b uint8) uint8 {
	return uint8((2126*uint32(r) + 7152*uint32(g) + 722*uint32(b)) / 10000)
}
