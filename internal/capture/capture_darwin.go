//go:build darwin

package capture

/*
#include <CoreGraphics/CoreGraphics.h>
*/
import "C"

import (
	"sync"
)

func platformSupported() bool { return true }
func platformName() string    { return "darwin" }

func newPlatformBackend() (Backend, error) {
	return &darwinBackend{}, nil
}

// darwinBackend uses CGDisplayCreateImage/CGWindowListCreateImage to
// render one-shot snapshots, per spec 4.C.3. Every capture returns a
// distinguished failure when the TCC screen-recording permission has
// not been granted, rather than silently producing black frames.
type darwinBackend struct {
	mu        sync.Mutex
	lastError string
}

func (b *darwinBackend) checkPermission() error {
	if checkScreenRecordingPermission() {
		return nil
	}
	return newErr(KindUnavailable, "cgimage", "screen recording permission not granted", nil)
}

func (b *darwinBackend) CaptureFullScreen(displayID int, opts Options) (Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkPermission(); err != nil {
		b.lastError = err.Error()
		return Result{}, err
	}

	displays := cgActiveDisplayList()
	target := cgMainDisplayID()
	if displayID >= 0 && displayID < len(displays) {
		target = displays[displayID]
	}

	f, err := cgCaptureFullScreen(target)
	if err != nil {
		b.lastError = err.Error()
		return Result{}, err
	}
	return Result{Frame: f}, nil
}

func (b *darwinBackend) CaptureWindow(handle WindowHandle, opts Options) (Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkPermission(); err != nil {
		b.lastError = err.Error()
		return Result{}, err
	}

	f, err := cgCaptureWindow(uint32(handle))
	if err != nil {
		b.lastError = err.Error()
		return Result{}, err
	}
	return Result{Frame: f}, nil
}

func (b *darwinBackend) CaptureRegion(region Rect, displayID int, opts Options) (Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkPermission(); err != nil {
		b.lastError = err.Error()
		return Result{}, err
	}
	if !region.Valid() {
		err := newErr(KindInvalidInput, "cgimage", "empty region", nil)
		b.lastError = err.Error()
		return Result{}, err
	}

	displays := cgActiveDisplayList()
	target := cgMainDisplayID()
	if displayID >= 0 && displayID < len(displays) {
		target = displays[displayID]
	}

	f, err := cgCaptureRegion(target, region.X, region.Y, region.W, region.H)
	if err != nil {
		b.lastError = err.Error()
		return Result{}, err
	}
	return Result{Frame: f}, nil
}

func (b *darwinBackend) GetDisplays() ([]DisplayInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ids := cgActiveDisplayList()
	main := cgMainDisplayID()
	out := make([]DisplayInfo, 0, len(ids))
	for i, id := range ids {
		bounds := cgDisplayBounds(id)
		out = append(out, DisplayInfo{
			ID:      i,
			Name:    "CGDirectDisplay",
			Bounds:  bounds,
			Primary: id == main,
		})
	}
	return out, nil
}

func (b *darwinBackend) SupportsWindowCapture() bool { return true }
func (b *darwinBackend) SupportsRegionCapture() bool { return true }

func (b *darwinBackend) LastError() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastError
}
