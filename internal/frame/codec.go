package frame

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
)

const (
	defaultJPEGQuality  = 85
	defaultPNGCompLevel = 3
)

// EncodeJPEG encodes f as baseline JPEG. quality is clamped to [0,100];
// an out-of-range value is silently replaced by defaultJPEGQuality, never
// rejected, matching spec.md's "out-of-range silently replaced by
// defaults" precondition.
func EncodeJPEG(f Frame, quality int) ([]byte, error) {
	if !f.IsValid() {
		return nil, errInvalidFrame
	}
	if quality < 0 || quality > 100 {
		quality = defaultJPEGQuality
	}

	img, err := toImage(f)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("frame: jpeg encode failed: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodePNG encodes f as PNG. level maps to image/png's CompressionLevel
// in [0,9] the way the spec's pngCompression knob does; 0 means "default
// filter/strategy" per spec.md §6, everything else picks the closest
// stdlib compression level.
func EncodePNG(f Frame, level int) ([]byte, error) {
	if !f.IsValid() {
		return nil, errInvalidFrame
	}
	if level < 0 || level > 9 {
		level = defaultPNGCompLevel
	}

	img, err := toImage(f)
	if err != nil {
		return nil, err
	}

	enc := &png.Encoder{CompressionLevel: pngLevel(level)}
	var buf bytes.Buffer
	if err := enc.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("frame: png encode failed: %w", err)
	}
	return buf.Bytes(), nil
}

func pngLevel(level int) png.CompressionLevel {
	switch {
	case level == 0:
		return png.DefaultCompression
	case level <= 2:
		return png.BestSpeed
	case level >= 7:
		return png.BestCompression
	default:
		return png.DefaultCompression
	}
}

// toImage converts f into the nearest stdlib image.Image, since
// image/jpeg and image/png only accept that interface.
func toImage(f Frame) (image.Image, error) {
	rect := image.Rect(0, 0, f.Width, f.Height)

	switch f.Format {
	case Gray8:
		img := image.NewGray(rect)
		for y := 0; y < f.Height; y++ {
			copy(img.Pix[y*img.Stride:y*img.Stride+f.Width], f.Row(y))
		}
		return img, nil
	default:
		rgba, err := Convert(f, RGBA32)
		if err != nil {
			return nil, err
		}
		img := image.NewRGBA(rect)
		for y := 0; y < f.Height; y++ {
			copy(img.Pix[y*img.Stride:y*img.Stride+f.Width*4], rgba.Row(y))
		}
		return img, nil
	}
}
