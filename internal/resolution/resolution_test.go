package resolution

import (
	"testing"

	"github.com/corvid-labs/deskwatch/internal/frame"
)

func solidFrame(w, h int) frame.Frame {
	return frame.New(w, h, frame.BGR24)
}

func TestResizeKeepAspectFromWidth(t *testing.T) {
	f := solidFrame(1920, 1080)
	out, err := ResizeKeepAspect(f, 1280, 0, Linear)
	if err != nil {
		t.Fatalf("ResizeKeepAspect: %v", err)
	}
	if out.Width != 1280 || out.Height != 720 {
		t.Errorf("got %dx%d, want 1280x720", out.Width, out.Height)
	}
}

func TestResizeKeepAspectFromHeight(t *testing.T) {
	f := solidFrame(1920, 1080)
	out, err := ResizeKeepAspect(f, 0, 720, Linear)
	if err != nil {
		t.Fatalf("ResizeKeepAspect: %v", err)
	}
	if out.Width != 1280 || out.Height != 720 {
		t.Errorf("got %dx%d, want 1280x720", out.Width, out.Height)
	}
}

func TestResizeAndCropExactExtent(t *testing.T) {
	f := solidFrame(1920, 1080)
	out, err := ResizeAndCrop(f, 800, 800, Linear)
	if err != nil {
		t.Fatalf("ResizeAndCrop: %v", err)
	}
	if out.Width != 800 || out.Height != 800 {
		t.Errorf("got %dx%d, want 800x800", out.Width, out.Height)
	}
}

func TestResizeZeroDimsFails(t *testing.T) {
	f := solidFrame(100, 100)
	if _, err := Resize(f, 0, 10, Linear); err == nil {
		t.Error("expected error for zero width")
	}
	if _, err := Resize(f, 10, 0, Linear); err == nil {
		t.Error("expected error for zero height")
	}
}

func TestResizeIdentityForNearest(t *testing.T) {
	f := solidFrame(64, 48)
	for i := range f.Pix {
		f.Pix[i] = byte(i % 256)
	}
	out, err := Resize(f, 64, 48, Nearest)
	if err != nil {
		t.Fatalf("Resize: %v", err)
	}
	for i := range f.Pix {
		if out.Pix[i] != f.Pix[i] {
			t.Fatalf("resize(f,f.w,f.h) not identity at byte %d: got %d want %d", i, out.Pix[i], f.Pix[i])
		}
	}
}

func TestOptimalResolutionNeverExceedsMax(t *testing.T) {
	w, h := OptimalResolution(3840, 2160, Options{MaxWidth: 1280, MaxHeight: 720, KeepAspectRatio: true})
	if w > 1280 || h > 720 {
		t.Errorf("got %dx%d, exceeds max 1280x720", w, h)
	}
	// Aspect should be preserved within rounding.
	gotAspect := float64(w) / float64(h)
	wantAspect := 3840.0 / 2160.0
	if diff := gotAspect - wantAspect; diff > 0.02 || diff < -0.02 {
		t.Errorf("aspect %f too far from %f", gotAspect, wantAspect)
	}
}

func TestOptimalResolutionTargetOverridesMax(t *testing.T) {
	w, h := OptimalResolution(1920, 1080, Options{MaxWidth: 1280, MaxHeight: 720, TargetWidth: 1920, TargetHeight: 1080})
	if w != 1920 || h != 1080 {
		t.Errorf("target should override max, got %dx%d", w, h)
	}
}

func TestAdaptiveResolutionLayerCeilings(t *testing.T) {
	cases := []struct {
		w, h     int
		layer    LayerType
		wantW    int
		wantH    int
	}{
		{1920, 1080, Layer0, 640, 360},
		{3840, 2160, Layer2, 1920, 1080},
		{640, 480, Layer0, 640, 480},
	}
	for _, c := range cases {
		w, h := AdaptiveResolution(c.w, c.h, c.layer)
		if w != c.wantW || h != c.wantH {
			t.Errorf("AdaptiveResolution(%d,%d,layer %d) = %dx%d, want %dx%d", c.w, c.h, c.layer, w, h, c.wantW, c.wantH)
		}
	}
}

func TestAdaptiveResolutionNeverExceedsCeiling(t *testing.T) {
	for _, layer := range []LayerType{Layer0, Layer1, Layer2, Layer3} {
		maxW, maxH := layer.ceiling()
		w, h := AdaptiveResolution(7680, 4320, layer)
		if w > maxW || h > maxH {
			t.Errorf("layer %d: got %dx%d, exceeds ceiling %dx%d", layer, w, h, maxW, maxH)
		}
	}
}

func TestApplyResolutionControlNoopReturnsInput(t *testing.T) {
	f := solidFrame(640, 480)
	out, err := ApplyResolutionControl(f, Options{}, Linear)
	if err != nil {
		t.Fatalf("ApplyResolutionControl: %v", err)
	}
	if out.Width != f.Width || out.Height != f.Height {
		t.Errorf("expected passthrough, got %dx%d", out.Width, out.Height)
	}
}
