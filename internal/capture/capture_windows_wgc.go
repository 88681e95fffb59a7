//go:build windows

package capture

import (
	"runtime"
	"sync"

	"github.com/go-ole/go-ole"

	"github.com/corvid-labs/deskwatch/internal/frame"
)

// wgcTier is Tier 2: Windows.Graphics.Capture via a shared compositor
// surface. WinRT activation needs RoInitialize/RoGetActivationFactory
// rather than the classic-COM CoCreateInstance path, but the apartment
// lifecycle (CoInitializeEx/CoUninitialize on a locked OS thread,
// release-on-every-exit-path) follows the same pattern go-ole's
// automation client uses, grounded on LanternOps-breeze's
// patching/windows.go withSession helper.
//
// The pack carries no WinRT capture-interop binding (no
// RoGetActivationFactory/IActivationFactory wrapper for
// Windows.Graphics.Capture), so the capture session itself
// (GraphicsCaptureItem, frame pool, staging texture) cannot be built.
// Earlier this tier patched the gap by delegating frame acquisition to
// a fresh Tier 1 DXGI duplicator — but that hits the same occupied
// output Tier 1 already failed against and returns the identical
// access-denied failure, silently collapsing the fallback to two tiers
// while claiming to be a third. This tier now fails honestly instead:
// it performs the real COM apartment bring-up and then refuses with
// KindUnsupported, so the chain in capture_windows.go falls straight
// through to Tier 3 GDI rather than masquerading as an independent
// rescue. See DESIGN.md.
type wgcTier struct {
	mu          sync.Mutex
	initialized bool
	lastErr     string
}

func newWGCTier() *wgcTier {
	return &wgcTier{}
}

// ensureRuntime initializes the WinRT/COM apartment once per tier
// instance.
func (t *wgcTier) ensureRuntime() error {
	if t.initialized {
		return nil
	}
	runtime.LockOSThread()
	if err := ole.CoInitializeEx(0, ole.COINIT_APARTMENTTHREADED); err != nil {
		runtime.UnlockOSThread()
		return newErr(KindUnavailable, "wgc", "CoInitializeEx failed", err)
	}
	t.initialized = true
	return nil
}

func (t *wgcTier) release() {
	if t.initialized {
		ole.CoUninitialize()
		runtime.UnlockOSThread()
		t.initialized = false
	}
}

// captureFullScreen brings up the COM apartment (the one piece of this
// tier that's real) and then refuses: without a WinRT capture-interop
// binding there is no GraphicsCaptureItem to poll, and reusing Tier 1's
// DXGI path here would just reproduce Tier 1's own failure.
func (t *wgcTier) captureFullScreen(displayID int) (frame.Frame, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.ensureRuntime(); err != nil {
		t.lastErr = err.Error()
		return frame.Frame{}, err
	}

	err := newErr(KindUnsupported, "wgc", "no Windows.Graphics.Capture interop binding available", nil)
	t.lastErr = err.Error()
	return frame.Frame{}, err
}
