// internal/raster/raster.go
package raster

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"printer-bridge/internal/escpos"
)

// luminanceThreshold splits dark from light on a 0..255 scale
const luminanceThreshold = 128.0

// DefaultMaxPixels bounds both decoded sources and resize targets
const DefaultMaxPixels = 24 << 20

// maxRasterRows is the largest height the raster header can carry
const maxRasterRows = 0xFFFF

// ErrTooLarge is returned before allocating an image beyond the pixel budget
var ErrTooLarge = errors.New("image too large")

// CheckSize rejects a w x h image that exceeds maxPixels or the raster
// header limits. A non-positive maxPixels means DefaultMaxPixels.
func CheckSize(w, h, maxPixels int) error {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	if h > maxRasterRows || (w+7)/8 > maxRasterRows || int64(w)*int64(h) > int64(maxPixels) {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrTooLarge, w, h, maxPixels)
	}
	return nil
}

// DotWidth returns the printable raster width for a paper width class
func DotWidth(widthClass int) int {
	switch {
	case widthClass >= 80:
		return 576
	case widthClass >= 58:
		return 384
	default:
		return 288
	}
}

// Bitmap is a 1-bit image packed 8 pixels per byte, MSB leftmost
type Bitmap struct {
	Width      int
	Height     int
	WidthBytes int
	Data       []byte
}

// Encode frames the bitmap as a raster image command
func (b *Bitmap) Encode() []byte {
	out := escpos.RasterHeader(b.WidthBytes, b.Height)
	return append(out, b.Data...)
}

// Dark reports whether pixel (x, y) is printed
func (b *Bitmap) Dark(x, y int) bool {
	return b.Data[y*b.WidthBytes+x/8]&(0x80>>(x%8)) != 0
}

// Decode reads PNG, JPEG, GIF, BMP or TIFF data, honouring EXIF orientation.
// The header is checked against maxPixels before any pixel is decoded.
func Decode(data []byte, maxPixels int) (image.Image, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if err := CheckSize(cfg.Width, cfg.Height, maxPixels); err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// TargetSize computes the output size for a source image.
// Explicit dimensions win and a missing one keeps the aspect ratio.
// Without them wide images shrink to maxDotWidth and narrow ones are kept.
func TargetSize(srcW, srcH, maxDotWidth, explicitWidth, explicitHeight int) (int, int) {
	if srcW <= 0 || srcH <= 0 {
		return 0, 0
	}

	switch {
	case explicitWidth > 0 && explicitHeight > 0:
		return explicitWidth, explicitHeight
	case explicitWidth > 0:
		return explicitWidth, scaled(srcH, explicitWidth, srcW)
	case explicitHeight > 0:
		return scaled(srcW, explicitHeight, srcH), explicitHeight
	case maxDotWidth > 0 && srcW > maxDotWidth:
		return maxDotWidth, scaled(srcH, maxDotWidth, srcW)
	default:
		return srcW, srcH
	}
}

// scaled returns round(v * num / den), at least 1
func scaled(v, num, den int) int {
	n := int(math.Round(float64(v) * float64(num) / float64(den)))
	if n < 1 {
		return 1
	}
	return n
}

// Rasterize resizes img and thresholds it into a packed bitmap.
// Transparent areas are flattened onto white paper first. Targets over
// maxPixels fail with ErrTooLarge.
func Rasterize(img image.Image, maxDotWidth, explicitWidth, explicitHeight, maxPixels int) (*Bitmap, error) {
	bounds := img.Bounds()
	w, h := TargetSize(bounds.Dx(), bounds.Dy(), maxDotWidth, explicitWidth, explicitHeight)
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("image has no pixels")
	}
	if err := CheckSize(w, h, maxPixels); err != nil {
		return nil, err
	}

	var resized *image.NRGBA
	if w == bounds.Dx() && h == bounds.Dy() {
		resized = imaging.Clone(img)
	} else {
		resized = imaging.Resize(img, w, h, imaging.Linear)
	}
	paper := imaging.Overlay(imaging.New(w, h, color.White), resized, image.Pt(0, 0), 1.0)

	return Pack(paper), nil
}

// Pack thresholds every pixel on luminance with no dithering
func Pack(img *image.NRGBA) *Bitmap {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	bm := &Bitmap{
		Width:      w,
		Height:     h,
		WidthBytes: (w + 7) / 8,
	}
	bm.Data = make([]byte, bm.WidthBytes*h)

	for y := 0; y < h; y++ {
		row := bm.Data[y*bm.WidthBytes : (y+1)*bm.WidthBytes]
		for x := 0; x < w; x++ {
			c := img.NRGBAAt(bounds.Min.X+x, bounds.Min.Y+y)
			if isDark(c) {
				row[x/8] |= 0x80 >> (x % 8)
			}
		}
	}
	return bm
}

func isDark(c color.NRGBA) bool {
	lum := 0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)
	return lum < luminanceThreshold
}
