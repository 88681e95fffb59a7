//go:build windows

package capture

import (
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/corvid-labs/deskwatch/internal/frame"
)

var (
	gdi32                      = windows.NewLazySystemDLL("gdi32.dll")
	procCreateCompatibleDC     = gdi32.NewProc("CreateCompatibleDC")
	procCreateCompatibleBitmap = gdi32.NewProc("CreateCompatibleBitmap")
	procSelectObject           = gdi32.NewProc("SelectObject")
	procBitBlt                 = gdi32.NewProc("BitBlt")
	procGetDIBits              = gdi32.NewProc("GetDIBits")
	procDeleteDC               = gdi32.NewProc("DeleteDC")
	procDeleteObject           = gdi32.NewProc("DeleteObject")

	procGetDC         = user32.NewProc("GetDC")
	procReleaseDC     = user32.NewProc("ReleaseDC")
	procIsWindow      = user32.NewProc("IsWindow")
	procIsWindowVisible = user32.NewProc("IsWindowVisible")
	procIsIconic      = user32.NewProc("IsIconic")
	procGetWindowRect = user32.NewProc("GetWindowRect")
	procPrintWindow   = user32.NewProc("PrintWindow")
)

const srcCopy = 0x00CC0020
const biRGB = 0
const dibRGBColors = 0
const pwRenderFullContent = 0x00000002

type bitmapInfoHeader struct {
	Size          uint32
	Width         int32
	Height        int32
	Planes        uint16
	BitCount      uint16
	Compression   uint32
	SizeImage     uint32
	XPelsPerMeter int32
	YPelsPerMeter int32
	ClrUsed       uint32
	ClrImportant  uint32
}

type bitmapInfo struct {
	Header bitmapInfoHeader
	Colors [1]uint32
}

// gdiTier implements Tier 3: the universal software-blit fallback. It
// validates window state (exists/visible/not minimized/bounded extent)
// before every window capture, and cleans up every GDI handle on every
// exit path, matching spec 4.C.1's Tier 3 contract.
type gdiTier struct{}

func newGDITier() *gdiTier { return &gdiTier{} }

func (t *gdiTier) captureFullScreen(displayID int) (frame.Frame, error) {
	bounds, err := displayBounds(displayID)
	if err != nil {
		return frame.Frame{}, newErr(KindInvalidInput, "gdi", "unknown display id", err)
	}
	return t.blit(0, bounds)
}

func (t *gdiTier) captureRegion(region Rect, displayID int) (frame.Frame, error) {
	if !region.Valid() {
		return frame.Frame{}, newErr(KindInvalidInput, "gdi", "empty region", nil)
	}
	return t.blit(0, region)
}

func (t *gdiTier) captureWindow(handle WindowHandle) (frame.Frame, error) {
	hwnd := uintptr(handle)

	if ok, _, _ := procIsWindow.Call(hwnd); ok == 0 {
		return frame.Frame{}, newErr(KindInvalidInput, "gdi", "window handle no longer valid", nil)
	}
	if ok, _, _ := procIsWindowVisible.Call(hwnd); ok == 0 {
		return frame.Frame{}, newErr(KindInvalidInput, "gdi", "window is not visible", nil)
	}
	if iconic, _, _ := procIsIconic.Call(hwnd); iconic != 0 {
		return frame.Frame{}, newErr(KindInvalidInput, "gdi", "window is minimized", nil)
	}

	var r rect
	if ret, _, _ := procGetWindowRect.Call(hwnd, uintptr(unsafe.Pointer(&r))); ret == 0 {
		return frame.Frame{}, newErr(KindResource, "gdi", "GetWindowRect failed", nil)
	}
	w, h := int(r.Right-r.Left), int(r.Bottom-r.Top)
	if w <= 0 || h <= 0 || w >= 10000 || h >= 10000 {
		return frame.Frame{}, newErr(KindInvalidInput, "gdi", "window extent out of bounds", nil)
	}

	srcDC, _, _ := procGetDC.Call(hwnd)
	if srcDC == 0 {
		return frame.Frame{}, newErr(KindResource, "gdi", "GetDC failed", nil)
	}
	defer procReleaseDC.Call(hwnd, srcDC)

	memDC, _, _ := procCreateCompatibleDC.Call(srcDC)
	if memDC == 0 {
		return frame.Frame{}, newErr(KindResource, "gdi", "CreateCompatibleDC failed", nil)
	}
	defer procDeleteDC.Call(memDC)

	bmp, _, _ := procCreateCompatibleBitmap.Call(srcDC, uintptr(w), uintptr(h))
	if bmp == 0 {
		return frame.Frame{}, newErr(KindResource, "gdi", "CreateCompatibleBitmap failed", nil)
	}
	defer procDeleteObject.Call(bmp)

	old, _, _ := procSelectObject.Call(memDC, bmp)
	defer procSelectObject.Call(memDC, old)

	ret, _, _ := procPrintWindow.Call(hwnd, memDC, uintptr(pwRenderFullContent))
	if ret == 0 {
		if bret, _, _ := procBitBlt.Call(memDC, 0, 0, uintptr(w), uintptr(h), srcDC, 0, 0, srcCopy); bret == 0 {
			return frame.Frame{}, newErr(KindResource, "gdi", "PrintWindow and BitBlt fallback both failed", nil)
		}
	}

	return readBitmapBGR(memDC, bmp, w, h)
}

// blit performs the screen-to-memory BitBlt used by full-screen and
// region capture: a screen DC, a compatible memory DC, a compatible
// bitmap.
func (t *gdiTier) blit(hwnd uintptr, region Rect) (frame.Frame, error) {
	srcDC, _, _ := procGetDC.Call(hwnd)
	if srcDC == 0 {
		return frame.Frame{}, newErr(KindResource, "gdi", "GetDC(desktop) failed", nil)
	}
	defer procReleaseDC.Call(hwnd, srcDC)

	memDC, _, _ := procCreateCompatibleDC.Call(srcDC)
	if memDC == 0 {
		return frame.Frame{}, newErr(KindResource, "gdi", "CreateCompatibleDC failed", nil)
	}
	defer procDeleteDC.Call(memDC)

	bmp, _, _ := procCreateCompatibleBitmap.Call(srcDC, uintptr(region.W), uintptr(region.H))
	if bmp == 0 {
		return frame.Frame{}, newErr(KindResource, "gdi", "CreateCompatibleBitmap failed", nil)
	}
	defer procDeleteObject.Call(bmp)

	old, _, _ := procSelectObject.Call(memDC, bmp)
	defer procSelectObject.Call(memDC, old)

	ret, _, _ := procBitBlt.Call(memDC, 0, 0, uintptr(region.W), uintptr(region.H),
		srcDC, uintptr(region.X), uintptr(region.Y), srcCopy)
	if ret == 0 {
		return frame.Frame{}, newErr(KindResource, "gdi", "BitBlt failed", nil)
	}

	return readBitmapBGR(memDC, bmp, region.W, region.H)
}

// readBitmapBGR reads pixels via GetDIBits using a negative-height
// (top-down) bitmap info header, yielding BGR24 directly with no row
// flip needed.
func readBitmapBGR(memDC, bmp uintptr, w, h int) (frame.Frame, error) {
	f := frame.New(w, h, frame.BGR24)
	// GetDIBits wants rows padded to 4-byte boundaries.
	rowSize := ((w*3 + 3) / 4) * 4
	buf := make([]byte, rowSize*h)

	bi := bitmapInfo{Header: bitmapInfoHeader{
		Size:        uint32(unsafe.Sizeof(bitmapInfoHeader{})),
		Width:       int32(w),
		Height:      -int32(h), // negative = top-down
		Planes:      1,
		BitCount:    24,
		Compression: biRGB,
	}}

	ret, _, _ := procGetDIBits.Call(memDC, bmp, 0, uintptr(h),
		uintptr(unsafe.Pointer(&buf[0])), uintptr(unsafe.Pointer(&bi)), dibRGBColors)
	if ret == 0 {
		return frame.Frame{}, newErr(KindResource, "gdi", "GetDIBits failed", nil)
	}

	for y := 0; y < h; y++ {
		copy(f.Row(y), buf[y*rowSize:y*rowSize+w*3])
	}
	return f, nil
}
