package capture

import (
	"testing"

	"github.com/corvid-labs/deskwatch/internal/frame"
)

// fakeBackend lets the facade's selection/delegation/shaping behavior be
// tested without touching real platform resources.
type fakeBackend struct {
	frame         frame.Frame
	err           error
	lastErr       string
	displays      []DisplayInfo
	supportsWin   bool
	supportsRegion bool
	calls         []string
}

func (f *fakeBackend) CaptureFullScreen(displayID int, opts Options) (Result, error) {
	f.calls = append(f.calls, "CaptureFullScreen")
	if f.err != nil {
		return Result{}, f.err
	}
	return Result{Frame: f.frame}, nil
}

func (f *fakeBackend) CaptureWindow(handle WindowHandle, opts Options) (Result, error) {
	f.calls = append(f.calls, "CaptureWindow")
	if f.err != nil {
		return Result{}, f.err
	}
	return Result{Frame: f.frame}, nil
}

func (f *fakeBackend) CaptureRegion(region Rect, displayID int, opts Options) (Result, error) {
	f.calls = append(f.calls, "CaptureRegion")
	if f.err != nil {
		return Result{}, f.err
	}
	return Result{Frame: f.frame}, nil
}

func (f *fakeBackend) GetDisplays() ([]DisplayInfo, error) { return f.displays, nil }
func (f *fakeBackend) SupportsWindowCapture() bool         { return f.supportsWin }
func (f *fakeBackend) SupportsRegionCapture() bool         { return f.supportsRegion }
func (f *fakeBackend) LastError() string                  { return f.lastErr }

func solidBGR(w, h int) frame.Frame {
	return frame.New(w, h, frame.BGR24)
}

func TestFacadeDelegatesToBackend(t *testing.T) {
	fb := &fakeBackend{frame: solidBGR(100, 100)}
	facade := &Facade{backend: fb}

	if _, err := facade.CaptureFullScreen(0, Options{}); err != nil {
		t.Fatalf("CaptureFullScreen: %v", err)
	}
	if _, err := facade.CaptureWindow(WindowHandle(1), Options{}); err != nil {
		t.Fatalf("CaptureWindow: %v", err)
	}
	if _, err := facade.CaptureRegion(Rect{W: 10, H: 10}, 0, Options{}); err != nil {
		t.Fatalf("CaptureRegion: %v", err)
	}

	want := []string{"CaptureFullScreen", "CaptureWindow", "CaptureRegion"}
	if len(fb.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", fb.calls, want)
	}
	for i := range want {
		if fb.calls[i] != want[i] {
			t.Errorf("call %d = %s, want %s", i, fb.calls[i], want[i])
		}
	}
}

func TestFacadeAppliesResolutionShaping(t *testing.T) {
	fb := &fakeBackend{frame: solidBGR(1920, 1080)}
	facade := &Facade{backend: fb}

	res, err := facade.CaptureFullScreen(0, Options{MaxWidth: 640, MaxHeight: 480, KeepAspectRatio: true})
	if err != nil {
		t.Fatalf("CaptureFullScreen: %v", err)
	}
	if res.Frame.Width > 640 || res.Frame.Height > 480 {
		t.Errorf("shaped frame %dx%d exceeds max 640x480", res.Frame.Width, res.Frame.Height)
	}
}

func TestFacadeEncodesWhenRequested(t *testing.T) {
	fb := &fakeBackend{frame: solidBGR(64, 48)}
	facade := &Facade{backend: fb}

	res, err := facade.CaptureFullScreen(0, Options{JPEGEnabled: true, JPEGQuality: 80})
	if err != nil {
		t.Fatalf("CaptureFullScreen: %v", err)
	}
	if len(res.Encoded) == 0 {
		t.Error("expected non-empty encoded bytes")
	}
}

func TestFacadePassesThroughBackendFailure(t *testing.T) {
	fb := &fakeBackend{err: newErr(KindUnavailable, "fake", "no backend available", nil)}
	facade := &Facade{backend: fb}

	_, err := facade.CaptureFullScreen(0, Options{})
	if err == nil {
		t.Fatal("expected error")
	}
	var ce *Error
	if !asError(err, &ce) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if ce.Kind != KindUnavailable {
		t.Errorf("Kind = %v, want KindUnavailable", ce.Kind)
	}
}

func TestFacadeLastErrorAndCapabilities(t *testing.T) {
	fb := &fakeBackend{lastErr: "boom", supportsWin: true, supportsRegion: false}
	facade := &Facade{backend: fb}

	if facade.LastError() != "boom" {
		t.Errorf("LastError() = %q, want %q", facade.LastError(), "boom")
	}
	if !facade.SupportsWindowCapture() {
		t.Error("expected SupportsWindowCapture true")
	}
	if facade.SupportsRegionCapture() {
		t.Error("expected SupportsRegionCapture false")
	}
}

// asError is a direct *Error type assertion standing in for errors.As,
// kept local to the test file to avoid importing errors just for one
// assertion helper; it does not unwrap.
func asError(err error, target **Error) bool {
	e, ok := err.(*Error)
	if !ok {
		return false
	}
	*target = e
	return true
}
