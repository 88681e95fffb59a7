// Package capture implements the platform-abstract screen acquisition
// facade: a Backend per operating system (Windows three-tier fallback,
// Linux X11/Wayland, macOS core-graphics), selected at build time and
// wrapped by a single Facade entry point, following the CaptureService
// shape borg/solder's screencapture package used but split along the
// tier/backend lines the original C++ ScreenCapture class family draws.
package capture

import (
	"fmt"

	"github.com/corvid-labs/deskwatch/internal/frame"
	"github.com/corvid-labs/deskwatch/internal/resolution"
)

// Rect is a signed-origin, unsigned-extent pixel rectangle.
type Rect struct {
	X, Y int
	W, H int
}

// Valid reports whether r has positive extent.
func (r Rect) Valid() bool {
	return r.W > 0 && r.H > 0
}

// WindowHandle is an opaque, platform-specific window identifier (HWND on
// Windows, an X11 Window id on Linux, a CGWindowID on macOS).
type WindowHandle uint64

// DisplayInfo describes one physical or virtual display.
type DisplayInfo struct {
	ID          int
	Name        string
	Bounds      Rect // virtual-desktop coordinates; primary need not be (0,0)
	Primary     bool
	RefreshHz   float64
	WidthMM     int // 0 if unknown
	HeightMM    int // 0 if unknown
}

// Options bundles resolution shaping and encode choice for a single
// capture call; the zero value means "no shaping, raw BGR24 frame".
type Options struct {
	MaxWidth, MaxHeight       int
	TargetWidth, TargetHeight int
	KeepAspectRatio           bool
	AdaptiveResolution        bool
	LayerType                 resolution.LayerType
	JPEGQuality               int
	JPEGEnabled               bool
	PNGCompression            int
	PNGEnabled                bool
}

// toResolutionOptions maps a capture Options onto the resolution package's
// shaping options; the encode fields are not carried over since
// resolution does no encoding.
func (o Options) toResolutionOptions() resolution.Options {
	return resolution.Options{
		MaxWidth: o.MaxWidth, MaxHeight: o.MaxHeight,
		TargetWidth: o.TargetWidth, TargetHeight: o.TargetHeight,
		KeepAspectRatio:    o.KeepAspectRatio,
		AdaptiveResolution: o.AdaptiveResolution,
		LayerType:          o.LayerType,
	}
}

func (o Options) hasShaping() bool {
	return o.MaxWidth > 0 || o.MaxHeight > 0 || o.TargetWidth > 0 || o.TargetHeight > 0 || o.AdaptiveResolution
}

// Result is what a capture call returns: the (possibly shaped) frame,
// plus encoded bytes when Options requested JPEG/PNG.
type Result struct {
	Frame   frame.Frame
	Encoded []byte // non-nil when Options requested an encoding
}

// Backend is the contract every platform implementation satisfies. All
// failures are non-exceptional: a Backend returns an error and records it
// for LastError, it never panics.
type Backend interface {
	CaptureFullScreen(displayID int, opts Options) (Result, error)
	CaptureWindow(handle WindowHandle, opts Options) (Result, error)
	CaptureRegion(region Rect, displayID int, opts Options) (Result, error)
	GetDisplays() ([]DisplayInfo, error)
	SupportsWindowCapture() bool
	SupportsRegionCapture() bool
	LastError() string
}

// shapeAndEncode applies resolution shaping (if requested) and then
// encoding (if requested) to a raw backend frame. Called by the Facade
// for every backend's frame so the shaping/encoding contract (component
// A/B) is applied uniformly regardless of platform, matching spec 4.D's
// "facade performs no capture itself" delegation.
func shapeAndEncode(f frame.Frame, opts Options) (Result, error) {
	out := f
	if opts.hasShaping() {
		shaped, err := resolution.ApplyResolutionControl(f, opts.toResolutionOptions(), resolution.Linear)
		if err != nil {
			return Result{}, fmt.Errorf("capture: resolution shaping failed: %w", err)
		}
		out = shaped
	}

	switch {
	case opts.JPEGEnabled:
		data, err := frame.EncodeJPEG(out, opts.JPEGQuality)
		if err != nil {
			return Result{}, fmt.Errorf("capture: jpeg encode failed: %w", err)
		}
		return Result{Frame: out, Encoded: data}, nil
	case opts.PNGEnabled:
		data, err := frame.EncodePNG(out, opts.PNGCompression)
		if err != nil {
			return Result{}, fmt.Errorf("capture: png encode failed: %w", err)
		}
		return Result{Frame: out, Encoded: data}, nil
	default:
		return Result{Frame: out}, nil
	}
}
