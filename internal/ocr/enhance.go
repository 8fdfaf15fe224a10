package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"time"

	"github.com/disintegration/imaging"
)

// Enhancer applies greyscale, histogram stretch and sharpening, in that
// order, and re-encodes as PNG.
type Enhancer struct {
	// ClipFraction of pixels ignored at each end of the histogram.
	ClipFraction float64
	SharpenSigma float64
	logger       *slog.Logger
}

func NewEnhancer(logger *slog.Logger) *Enhancer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Enhancer{ClipFraction: 0.01, SharpenSigma: 1.0, logger: logger}
}

func (e *Enhancer) Enhance(ctx context.Context, img []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	src, err := imaging.Decode(bytes.NewReader(img), imaging.AutoOrientation(true))
	if err != nil {
		return nil, &Error{Op: "enhance", Err: fmt.Errorf("decode: %w", err)}
	}

	grey := imaging.Grayscale(src)
	norm := stretchContrast(grey, e.ClipFraction)
	sharp := imaging.Sharpen(norm, e.SharpenSigma)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, sharp, imaging.PNG); err != nil {
		return nil, &Error{Op: "enhance", Err: fmt.Errorf("encode: %w", err)}
	}

	b := sharp.Bounds()
	e.logger.Debug("ocr.enhance.ok",
		"width", b.Dx(),
		"height", b.Dy(),
		"in_bytes", len(img),
		"out_bytes", buf.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// stretchContrast maps the [lo,hi] luminance window (after clipping) onto
// the full 0..255 range. img must already be greyscale.
func stretchContrast(img *image.NRGBA, clip float64) *image.NRGBA {
	total := len(img.Pix) / 4
	if total == 0 {
		return img
	}
	var hist [256]int
	for i := 0; i < len(img.Pix); i += 4 {
		hist[img.Pix[i]]++
	}
	cut := int(float64(total) * clip)

	lo, acc := 0, 0
	for ; lo < 255; lo++ {
		acc += hist[lo]
		if acc > cut {
			break
		}
	}
	hi := 255
	acc = 0
	for ; hi > 0; hi-- {
		acc += hist[hi]
		if acc > cut {
			break
		}
	}
	if hi <= lo {
		return img
	}

	scale := 255.0 / float64(hi-lo)
	stretch := func(v uint8) uint8 {
		x := (float64(v) - float64(lo)) * scale
		switch {
		case x <= 0:
			return 0
		case x >= 255:
			return 255
		default:
			return uint8(x + 0.5)
		}
	}
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		v := stretch(c.R)
		return color.NRGBA{R: v, G: v, B: v, A: c.A}
	})
}
