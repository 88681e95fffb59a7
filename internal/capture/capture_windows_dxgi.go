//go:build windows

package capture

import (
	"image"
	"sync"

	"github.com/kirides/go-d3d/d3d11"
	"github.com/kirides/go-d3d/outputduplication"

	"github.com/corvid-labs/deskwatch/internal/frame"
)

// dxgiState is the Tier 1 latching state machine from spec 4.C.1.
type dxgiState int

const (
	dxgiUninitialized dxgiState = iota
	dxgiReady
	dxgiUnavailable
)

// dxgiTier wraps github.com/kirides/go-d3d's OutputDuplicator, a real
// DXGI Desktop Duplication binding grounded on the outputduplication
// package found in the retrieved examples.
type dxgiTier struct {
	mu        sync.Mutex
	state     dxgiState
	device    *d3d11.ID3D11Device
	deviceCtx *d3d11.ID3D11DeviceContext
	dup       *outputduplication.OutputDuplicator
	img       *image.RGBA
}

func newDXGITier() *dxgiTier {
	return &dxgiTier{state: dxgiUninitialized}
}

func (t *dxgiTier) init(displayID int) error {
	device, deviceCtx, err := d3d11.NewD3D11Device()
	if err != nil {
		t.state = dxgiUnavailable
		return newErr(KindUnavailable, "dxgi", "feature level 11->10 device creation failed", err)
	}

	dup, err := outputduplication.NewIDXGIOutputDuplication(device, deviceCtx, uint(displayID))
	if err != nil {
		t.state = dxgiUnavailable
		return newErr(KindUnavailable, "dxgi", "DuplicateOutput failed", err)
	}

	t.device = device
	t.deviceCtx = deviceCtx
	t.dup = dup
	t.state = dxgiReady
	return nil
}

func (t *dxgiTier) release() {
	if t.dup != nil {
		t.dup.Release()
		t.dup = nil
	}
	t.device = nil
	t.deviceCtx = nil
}

// captureFullScreen implements the AcquireNextFrame(timeout=0) ->
// CopyResource -> Map -> BGRA->BGR -> Unmap -> ReleaseFrame sequence.
// timeout 0 means "never block waiting for a frame" per the concurrency
// model.
func (t *dxgiTier) captureFullScreen(displayID int) (frame.Frame, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == dxgiUnavailable {
		return frame.Frame{}, newErr(KindUnavailable, "dxgi", "tier marked unavailable, process restart required", nil)
	}
	if t.state == dxgiUninitialized {
		if err := t.init(displayID); err != nil {
			return frame.Frame{}, err
		}
	}

	bounds, err := displayBounds(displayID)
	if err != nil {
		return frame.Frame{}, newErr(KindInvalidInput, "dxgi", "unknown display id", err)
	}
	if t.img == nil || t.img.Bounds().Dx() != bounds.W || t.img.Bounds().Dy() != bounds.H {
		t.img = image.NewRGBA(image.Rect(0, 0, bounds.W, bounds.H))
	}

	if err := t.dup.GetImage(t.img, 0); err != nil {
		if err == outputduplication.ErrNoImageYet {
			return frame.Frame{}, newErr(KindTransient, "dxgi", "WAIT_TIMEOUT, no new frame", nil)
		}
		if isAccessLost(err) {
			t.release()
			t.state = dxgiUninitialized
			return frame.Frame{}, newErr(KindTransient, "dxgi", "ACCESS_LOST, will reinit next call", err)
		}
		if isAccessDenied(err) {
			t.state = dxgiUnavailable
			return frame.Frame{}, newErr(KindUnavailable, "dxgi", "access denied, likely occupied by another capture tool", err)
		}
		return frame.Frame{}, newErr(KindResource, "dxgi", "AcquireNextFrame/CopyResource failed", err)
	}

	return rgbaImageToBGRFrame(t.img), nil
}

func (t *dxgiTier) captureRegion(region Rect, displayID int) (frame.Frame, error) {
	full, err := t.captureFullScreen(displayID)
	if err != nil {
		return frame.Frame{}, err
	}
	return cropFrame(full, region)
}

func isAccessLost(err error) bool {
	hr, ok := err.(interface{ HRESULT() int32 })
	return ok && hr.HRESULT() == dxgiErrorAccessLost
}

func isAccessDenied(err error) bool {
	hr, ok := err.(interface{ HRESULT() int32 })
	return ok && hr.HRESULT() == dxgiErrorAccessDenied
}

// DXGI HRESULT values not re-exported by the duplication wrapper, per the
// public DXGI error code table.
const (
	dxgiErrorAccessLost   int32 = -2005270490 // 0x887A0026
	dxgiErrorAccessDenied int32 = -2005270485 // 0x887A002B
)

// rgbaImageToBGRFrame converts a captured RGBA image (already swizzled
// from BGRA by the duplication layer) into the canonical tightly packed
// BGR24 frame every backend delivers.
func rgbaImageToBGRFrame(img *image.RGBA) frame.Frame {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	rgba := frame.Frame{Width: w, Height: h, Format: frame.RGBA32, Pix: img.Pix, Stride: img.Stride}
	bgr, err := frame.Convert(rgba, frame.BGR24)
	if err != nil {
		return frame.Frame{}
	}
	return bgr
}

func cropFrame(f frame.Frame, region Rect) (frame.Frame, error) {
	if !region.Valid() {
		return frame.Frame{}, newErr(KindInvalidInput, "dxgi", "empty region", nil)
	}
	out := frame.New(region.W, region.H, f.Format)
	bpp := f.Format.BytesPerPixel()
	for y := 0; y < region.H; y++ {
		srcY := region.Y + y
		if srcY < 0 || srcY >= f.Height {
			continue
		}
		srcRow := f.Row(srcY)
		x0 := region.X
		if x0 < 0 {
			x0 = 0
		}
		x1 := region.X + region.W
		if x1 > f.Width {
			x1 = f.Width
		}
		if x1 <= x0 {
			continue
		}
		copy(out.Row(y)[(x0-region.X)*bpp:(x1-region.X)*bpp], srcRow[x0*bpp:x1*bpp])
	}
	return out, nil
}
