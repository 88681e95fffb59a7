//go:build windows

package capture

import (
	"fmt"
	"sync"
)

func platformSupported() bool { return true }
func platformName() string    { return "windows" }

func newPlatformBackend() (Backend, error) {
	return newWindowsBackend()
}

// tier names the three fallback levels spec 4.C.1 describes, in
// descending preference order.
type tier int

const (
	tierDXGI tier = iota
	tierWGC
	tierGDI
)

func (t tier) String() string {
	switch t {
	case tierDXGI:
		return "dxgi"
	case tierWGC:
		return "wgc"
	case tierGDI:
		return "gdi"
	default:
		return "unknown"
	}
}

// windowsBackend implements the three-tier fallback: DXGI Desktop
// Duplication, then Windows.Graphics.Capture shared-surface, then GDI
// BitBlt. tier1Unavailable latches once Tier 1 is marked permanently
// unavailable (access-denied), per spec's "skip straight to Tier 2 on
// subsequent calls" rule.
type windowsBackend struct {
	mu sync.Mutex

	dxgi *dxgiTier
	wgc  *wgcTier
	gdi  *gdiTier

	tier1Unavailable bool
	currentTier      tier
	lastError        string
}

func newWindowsBackend() (*windowsBackend, error) {
	b := &windowsBackend{
		dxgi: newDXGITier(),
		wgc:  newWGCTier(),
		gdi:  newGDITier(),
	}
	return b, nil
}

func (b *windowsBackend) CaptureFullScreen(displayID int, opts Options) (Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var errs []string

	if !b.tier1Unavailable {
		f, err := b.dxgi.captureFullScreen(displayID)
		if err == nil {
			b.currentTier = tierDXGI
			return Result{Frame: f}, nil
		}
		if ce, ok := err.(*Error); ok && ce.Kind == KindUnavailable {
			b.tier1Unavailable = true
		}
		errs = append(errs, fmt.Sprintf("tier1(dxgi): %v", err))
	}

	if f, err := b.wgc.captureFullScreen(displayID); err == nil {
		b.currentTier = tierWGC
		return Result{Frame: f}, nil
	} else {
		errs = append(errs, fmt.Sprintf("tier2(wgc): %v", err))
	}

	f, err := b.gdi.captureFullScreen(displayID)
	if err == nil {
		b.currentTier = tierGDI
		return Result{Frame: f}, nil
	}
	errs = append(errs, fmt.Sprintf("tier3(gdi): %v", err))

	b.lastError = joinErrs(errs)
	return Result{}, newErr(KindUnavailable, "windows", b.lastError, nil)
}

func (b *windowsBackend) CaptureWindow(handle WindowHandle, opts Options) (Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	f, err := b.gdi.captureWindow(handle)
	if err != nil {
		b.lastError = err.Error()
		return Result{}, err
	}
	return Result{Frame: f}, nil
}

// CaptureRegion reads region differently per tier. The DXGI path captures
// display displayID and crops region relative to that display's top-left.
// The GDI fallback ignores displayID and reads region in virtual-desktop
// coordinates, so on a display whose origin is not (0,0) the two paths
// return different pixels for the same region.
func (b *windowsBackend) CaptureRegion(region Rect, displayID int, opts Options) (Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.tier1Unavailable {
		if f, err := b.dxgi.captureRegion(region, displayID); err == nil {
			return Result{Frame: f}, nil
		}
	}
	f, err := b.gdi.captureRegion(region, displayID)
	if err != nil {
		b.lastError = err.Error()
		return Result{}, err
	}
	return Result{Frame: f}, nil
}

func (b *windowsBackend) GetDisplays() ([]DisplayInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return enumerateWindowsDisplays()
}

func (b *windowsBackend) SupportsWindowCapture() bool { return true }
func (b *windowsBackend) SupportsRegionCapture() bool { return true }

func (b *windowsBackend) LastError() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastError
}

func (b *windowsBackend) diagnose() Diagnostics {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Diagnostics{
		Platform:           "windows",
		CurrentTier:        b.currentTier.String(),
		Tier1Available:     !b.tier1Unavailable,
		OccupyingProcesses: knownCaptureOccupants(),
	}
}

func joinErrs(errs []string) string {
	out := ""
	for i, e := range errs {
		if i > 0 {
			out += "; "
		}
		out += e
	}
	return out
}
