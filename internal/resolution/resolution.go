// Package resolution implements the resize/crop/adaptive-sizing policy
// shared by the capture facade's output shaping and the triage engine's
// input downsampling, following the resize helpers borg/solder's
// screencapture.go used (draw.ApproxBiLinear over image.RGBA) generalized
// to the full interpolation enum the spec calls for.
package resolution

import (
	"fmt"
	"image"
	"math"

	"golang.org/x/image/draw"

	"github.com/corvid-labs/deskwatch/internal/frame"
)

// Interp selects the resampling kernel used by every resize operation.
type Interp int

const (
	Linear Interp = iota
	Cubic
	Lanczos
	Nearest
)

// LayerType selects the per-consumer adaptive-resolution ceiling.
type LayerType int

const (
	Layer0 LayerType = iota // cheapest triage gate
	Layer1                  // object detection
	Layer2                  // heavy CV
	Layer3                  // vision-language model
)

// ceiling returns the (maxW, maxH) published for layer.
func (l LayerType) ceiling() (int, int) {
	switch l {
	case Layer0:
		return 640, 480
	case Layer1:
		return 1280, 720
	case Layer2:
		return 1920, 1080
	case Layer3:
		return 1024, 768
	default:
		return 1920, 1080
	}
}

// Options bundles the resolution shaping choice for a single capture
// call. Zero value means "no shaping".
type Options struct {
	MaxWidth, MaxHeight       int
	TargetWidth, TargetHeight int
	KeepAspectRatio           bool
	AdaptiveResolution        bool
	LayerType                 LayerType
	JPEGQuality               int // not read by this package, which does no encoding
	PNGCompression            int // not read by this package, which does no encoding
	PNGEnabled                bool
}

// kernelFor maps the spec's Interp enum onto a draw.Interpolator. x/image
// /draw ships NearestNeighbor, ApproxBiLinear ("linear") and CatmullRom
// ("cubic") directly; it has no Lanczos kernel, so Lanczos is hand-rolled
// below as a draw.Kernel (the one interpolation mode the ecosystem
// dependency doesn't cover — see DESIGN.md).
func kernelFor(i Interp) draw.Interpolator {
	switch i {
	case Nearest:
		return draw.NearestNeighbor
	case Cubic:
		return draw.CatmullRom
	case Lanczos:
		return &lanczosKernel
	default:
		return draw.ApproxBiLinear
	}
}

// lanczosKernel is a 3-lobe Lanczos resampling kernel expressed the way
// draw.Kernel wants it: an At function over [-Support, Support].
var lanczosKernel = draw.Kernel{
	Support: 3,
	At: func(x float64) float64 {
		if x == 0 {
			return 1
		}
		if x < -3 || x > 3 {
			return 0
		}
		px := math.Pi * x
		return 3 * math.Sin(px) * math.Sin(px/3) / (px * px)
	},
}

// roundHalfAwayFromZero matches the spec's "rounded half-away-from-zero"
// rule for turning a scaled float extent into an integer one.
func roundHalfAwayFromZero(v float64) int {
	if v >= 0 {
		return int(math.Floor(v + 0.5))
	}
	return int(math.Ceil(v - 0.5))
}

// Resize scales f to exactly (w, h). Zero dimensions fail.
func Resize(f frame.Frame, w, h int, interp Interp) (frame.Frame, error) {
	if w <= 0 || h <= 0 {
		return frame.Frame{}, fmt.Errorf("resolution: zero target dimension")
	}
	if !f.IsValid() {
		return frame.Frame{}, fmt.Errorf("resolution: invalid input frame")
	}
	return scale(f, w, h, interp)
}

// ResizeKeepAspect implements fit-inside semantics: if exactly one of
// (w, h) is 0, the other is computed from the frame's aspect ratio; if
// both are given, the smaller scale factor wins (the whole image fits
// inside w x h, possibly with one dimension smaller than requested).
func ResizeKeepAspect(f frame.Frame, w, h int, interp Interp) (frame.Frame, error) {
	if !f.IsValid() {
		return frame.Frame{}, fmt.Errorf("resolution: invalid input frame")
	}
	if w <= 0 && h <= 0 {
		return frame.Frame{}, fmt.Errorf("resolution: at least one target dimension required")
	}

	srcW, srcH := float64(f.Width), float64(f.Height)

	switch {
	case w > 0 && h == 0:
		h = roundHalfAwayFromZero(srcH * float64(w) / srcW)
	case h > 0 && w == 0:
		w = roundHalfAwayFromZero(srcW * float64(h) / srcH)
	default:
		scaleW := float64(w) / srcW
		scaleH := float64(h) / srcH
		s := math.Min(scaleW, scaleH)
		w = roundHalfAwayFromZero(srcW * s)
		h = roundHalfAwayFromZero(srcH * s)
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return scale(f, w, h, interp)
}

// ResizeAndCrop implements cover semantics: scale by the larger factor so
// the target rect is fully covered, then center-crop to exactly (w, h).
func ResizeAndCrop(f frame.Frame, w, h int, interp Interp) (frame.Frame, error) {
	if w <= 0 || h <= 0 {
		return frame.Frame{}, fmt.Errorf("resolution: zero target dimension")
	}
	if !f.IsValid() {
		return frame.Frame{}, fmt.Errorf("resolution: invalid input frame")
	}

	srcW, srcH := float64(f.Width), float64(f.Height)
	scaleW := float64(w) / srcW
	scaleH := float64(h) / srcH
	s := math.Max(scaleW, scaleH)

	coverW := roundHalfAwayFromZero(srcW * s)
	coverH := roundHalfAwayFromZero(srcH * s)
	if coverW < w {
		coverW = w
	}
	if coverH < h {
		coverH = h
	}

	covered, err := scale(f, coverW, coverH, interp)
	if err != nil {
		return frame.Frame{}, err
	}
	return centerCrop(covered, w, h)
}

// centerCrop extracts a (w, h) rect centered in f, assuming f is at least
// that large on both axes.
func centerCrop(f frame.Frame, w, h int) (frame.Frame, error) {
	if f.Width < w || f.Height < h {
		return frame.Frame{}, fmt.Errorf("resolution: crop target larger than source")
	}
	x0 := (f.Width - w) / 2
	y0 := (f.Height - h) / 2

	out := frame.New(w, h, f.Format)
	bpp := f.Format.BytesPerPixel()
	for y := 0; y < h; y++ {
		srcRow := f.Row(y0 + y)
		dstRow := out.Row(y)
		copy(dstRow, srcRow[x0*bpp:(x0+w)*bpp])
	}
	return out, nil
}

// OptimalResolution applies max constraints first (scaling down preserving
// aspect when KeepAspectRatio is set), then overrides with the explicit
// target if one was given.
func OptimalResolution(curW, curH int, cfg Options) (int, int) {
	w, h := curW, curH

	if cfg.MaxWidth > 0 && cfg.MaxHeight > 0 && (w > cfg.MaxWidth || h > cfg.MaxHeight) {
		if cfg.KeepAspectRatio {
			scaleW := float64(cfg.MaxWidth) / float64(w)
			scaleH := float64(cfg.MaxHeight) / float64(h)
			s := math.Min(scaleW, scaleH)
			w = roundHalfAwayFromZero(float64(w) * s)
			h = roundHalfAwayFromZero(float64(h) * s)
		} else {
			w, h = cfg.MaxWidth, cfg.MaxHeight
		}
	}

	if cfg.TargetWidth > 0 || cfg.TargetHeight > 0 {
		tw, th := cfg.TargetWidth, cfg.TargetHeight
		if tw > 0 && th > 0 {
			w, h = tw, th
		} else if tw > 0 {
			h = roundHalfAwayFromZero(float64(curH) * float64(tw) / float64(curW))
			w = tw
		} else {
			w = roundHalfAwayFromZero(float64(curW) * float64(th) / float64(curH))
			h = th
		}
	}

	return w, h
}

// AdaptiveResolution clamps (curW, curH) to layer's published ceiling,
// preserving aspect, if it exceeds it; otherwise it passes through
// unchanged.
func AdaptiveResolution(curW, curH int, layer LayerType) (int, int) {
	maxW, maxH := layer.ceiling()
	if curW <= maxW && curH <= maxH {
		return curW, curH
	}
	scaleW := float64(maxW) / float64(curW)
	scaleH := float64(maxH) / float64(curH)
	s := math.Min(scaleW, scaleH)
	w := roundHalfAwayFromZero(float64(curW) * s)
	h := roundHalfAwayFromZero(float64(curH) * s)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

// ApplyResolutionControl composes OptimalResolution/AdaptiveResolution and
// the actual resize. It returns f unchanged if no change is needed.
func ApplyResolutionControl(f frame.Frame, cfg Options, interp Interp) (frame.Frame, error) {
	if !f.IsValid() {
		return frame.Frame{}, fmt.Errorf("resolution: invalid input frame")
	}

	w, h := f.Width, f.Height
	if cfg.AdaptiveResolution {
		w, h = AdaptiveResolution(w, h, cfg.LayerType)
	}
	w, h = OptimalResolution(w, h, Options{
		MaxWidth: max(cfg.MaxWidth, 0), MaxHeight: max(cfg.MaxHeight, 0),
		TargetWidth: cfg.TargetWidth, TargetHeight: cfg.TargetHeight,
		KeepAspectRatio: cfg.KeepAspectRatio,
	})

	if w == f.Width && h == f.Height {
		return f, nil
	}
	return Resize(f, w, h, interp)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// scale is the common resize kernel: convert to image.RGBA, run the
// draw.Interpolator, convert back, preserving the source pixel format.
func scale(f frame.Frame, w, h int, interp Interp) (frame.Frame, error) {
	if f.Width == w && f.Height == h {
		out := frame.New(w, h, f.Format)
		copy(out.Pix, f.Pix[:out.RequiredSize()])
		return out, nil
	}

	rgba, err := frame.Convert(f, frame.RGBA32)
	if err != nil {
		return frame.Frame{}, err
	}
	src := &image.RGBA{
		Pix:    rgba.Pix,
		Stride: rgba.EffectiveStride(),
		Rect:   image.Rect(0, 0, rgba.Width, rgba.Height),
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	kernelFor(interp).Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	out := frame.Frame{Width: w, Height: h, Format: frame.RGBA32, Pix: dst.Pix}
	if f.Format != frame.RGBA32 {
		return frame.Convert(out, f.Format)
	}
	return out, nil
}
