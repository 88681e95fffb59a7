package triage

import (
	"image"
	"testing"

	"github.com/corvid-labs/deskwatch/internal/frame"
)

func solidFrame(w, h int, b, g, r byte) frame.Frame {
	f := frame.New(w, h, frame.BGR24)
	for i := 0; i < len(f.Pix); i += 3 {
		f.Pix[i], f.Pix[i+1], f.Pix[i+2] = b, g, r
	}
	return f
}

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.ProcessingWidth = 64
	cfg.ProcessingHeight = 64
	return cfg
}

func TestFirstFrameYieldsZeroScores(t *testing.T) {
	l := NewLayer0(smallConfig())
	defer l.Close()

	res, err := l.ProcessFrame(solidFrame(64, 64, 128, 128, 128))
	if err != nil {
		t.Fatalf("ProcessFrame: %v", err)
	}
	if res.FrameDiffScore != 0 || res.ColorChangeScore != 0 || res.MotionScore != 0 || res.OverallChangeScore != 0 {
		t.Errorf("expected all-zero scores on first frame, got %+v", res)
	}
	if res.ShouldTriggerLayer1 {
		t.Error("expected shouldTriggerLayer1 == false on first frame")
	}
}

func TestResetReturnsToFirstFrameBehavior(t *testing.T) {
	l := NewLayer0(smallConfig())
	defer l.Close()

	if _, err := l.ProcessFrame(solidFrame(64, 64, 128, 128, 128)); err != nil {
		t.Fatalf("ProcessFrame: %v", err)
	}
	if _, err := l.ProcessFrame(solidFrame(64, 64, 10, 10, 10)); err != nil {
		t.Fatalf("ProcessFrame: %v", err)
	}

	l.Reset()

	res, err := l.ProcessFrame(solidFrame(64, 64, 200, 200, 200))
	if err != nil {
		t.Fatalf("ProcessFrame after reset: %v", err)
	}
	if res.FrameDiffScore != 0 || res.ColorChangeScore != 0 || res.MotionScore != 0 {
		t.Errorf("expected zero scores after reset, got %+v", res)
	}
	if res.ShouldTriggerLayer1 {
		t.Error("expected shouldTriggerLayer1 == false after reset")
	}
}

func TestIdenticalFramesYieldLowScores(t *testing.T) {
	l := NewLayer0(smallConfig())
	defer l.Close()

	for i := 0; i < 10; i++ {
		res, err := l.ProcessFrame(solidFrame(64, 64, 128, 128, 128))
		if err != nil {
			t.Fatalf("ProcessFrame %d: %v", i, err)
		}
		if i == 0 {
			continue
		}
		if res.FrameDiffScore >= 0.1 {
			t.Errorf("frame %d: frameDiffScore = %v, want < 0.1", i, res.FrameDiffScore)
		}
		if res.ColorChangeScore >= 0.1 {
			t.Errorf("frame %d: colorChangeScore = %v, want < 0.1", i, res.ColorChangeScore)
		}
		if res.ShouldTriggerLayer1 {
			t.Errorf("frame %d: expected shouldTriggerLayer1 == false for a static stream", i)
		}
	}
}

func TestColorFlipIncreasesScoreOverStaticStream(t *testing.T) {
	staticCfg := smallConfig()
	lStatic := NewLayer0(staticCfg)
	defer lStatic.Close()
	if _, err := lStatic.ProcessFrame(solidFrame(64, 64, 0, 0, 255)); err != nil {
		t.Fatalf("ProcessFrame: %v", err)
	}
	staticRes, err := lStatic.ProcessFrame(solidFrame(64, 64, 0, 0, 255))
	if err != nil {
		t.Fatalf("ProcessFrame: %v", err)
	}

	lFlip := NewLayer0(smallConfig())
	defer lFlip.Close()
	if _, err := lFlip.ProcessFrame(solidFrame(64, 64, 0, 0, 255)); err != nil {
		t.Fatalf("ProcessFrame: %v", err)
	}
	flipRes, err := lFlip.ProcessFrame(solidFrame(64, 64, 255, 0, 0))
	if err != nil {
		t.Fatalf("ProcessFrame: %v", err)
	}

	if flipRes.ColorChangeScore <= 0 {
		t.Errorf("colorChangeScore = %v, want > 0 after a red->blue flip", flipRes.ColorChangeScore)
	}
	if flipRes.OverallChangeScore <= staticRes.OverallChangeScore {
		t.Errorf("overall score after flip (%v) should exceed a static stream's (%v)", flipRes.OverallChangeScore, staticRes.OverallChangeScore)
	}
}

func TestLocalChangeDetectsRegion(t *testing.T) {
	l := NewLayer0(smallConfig())
	defer l.Close()

	base := solidFrame(64, 64, 50, 50, 50)
	if _, err := l.ProcessFrame(base); err != nil {
		t.Fatalf("ProcessFrame: %v", err)
	}

	patched := solidFrame(64, 64, 50, 50, 50)
	patchRect := image.Rect(10, 10, 30, 30)
	for y := patchRect.Min.Y; y < patchRect.Max.Y; y++ {
		row := patched.Row(y)
		for x := patchRect.Min.X; x < patchRect.Max.X; x++ {
			row[x*3], row[x*3+1], row[x*3+2] = 255, 255, 255
		}
	}

	res, err := l.ProcessFrame(patched)
	if err != nil {
		t.Fatalf("ProcessFrame: %v", err)
	}
	if len(res.ChangedRegions) == 0 {
		t.Fatal("expected non-empty changedRegions for a local patch")
	}

	found := false
	for _, r := range res.ChangedRegions {
		if r.Min.X <= patchRect.Min.X+10 && r.Max.X >= patchRect.Min.X+10 &&
			r.Min.Y <= patchRect.Min.Y+10 && r.Max.Y >= patchRect.Min.Y+10 {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("no changed region contains the patch center, got %v", res.ChangedRegions)
	}
}

func TestAdaptiveThresholdStaysWithinBounds(t *testing.T) {
	l := NewLayer0(smallConfig())
	defer l.Close()

	colors := []struct{ b, g, r byte }{{0, 0, 0}, {255, 255, 255}, {0, 255, 0}, {255, 0, 255}}
	for i := 0; i < 40; i++ {
		c := colors[i%len(colors)]
		if _, err := l.ProcessFrame(solidFrame(64, 64, c.b, c.g, c.r)); err != nil {
			t.Fatalf("ProcessFrame %d: %v", i, err)
		}
		if l.state.adaptiveThreshold < 0.05 || l.state.adaptiveThreshold > 0.5 {
			t.Fatalf("frame %d: adaptiveThreshold = %v, out of [0.05, 0.5]", i, l.state.adaptiveThreshold)
		}
	}
}

func TestUpdateConfigDisablingAdaptiveSnapsThreshold(t *testing.T) {
	cfg := smallConfig()
	cfg.OverallThreshold = 0.25
	l := NewLayer0(cfg)
	defer l.Close()

	if _, err := l.ProcessFrame(solidFrame(64, 64, 10, 10, 10)); err != nil {
		t.Fatalf("ProcessFrame: %v", err)
	}
	if _, err := l.ProcessFrame(solidFrame(64, 64, 250, 250, 250)); err != nil {
		t.Fatalf("ProcessFrame: %v", err)
	}

	newCfg := cfg
	newCfg.EnableAdaptiveThreshold = false
	l.UpdateConfig(newCfg)

	if l.state.adaptiveThreshold != 0.25 {
		t.Errorf("adaptiveThreshold = %v, want snapped back to overallThreshold 0.25", l.state.adaptiveThreshold)
	}
}

func TestInvalidFrameYieldsZeroResult(t *testing.T) {
	l := NewLayer0(smallConfig())
	defer l.Close()

	res, err := l.ProcessFrame(frame.Frame{})
	if err != nil {
		t.Fatalf("ProcessFrame: %v", err)
	}
	if res.FrameDiffScore != 0 || res.ColorChangeScore != 0 || res.MotionScore != 0 ||
		res.OverallChangeScore != 0 || res.ShouldTriggerLayer1 ||
		res.ChangedRegions != nil || res.MotionRegions != nil || res.DominantColors != nil {
		t.Errorf("expected zero Result for an invalid frame, got %+v", res)
	}
}

func TestMotionDisabledLeavesMotionScoreZero(t *testing.T) {
	cfg := smallConfig()
	cfg.EnableMotionDetection = false
	l := NewLayer0(cfg)
	defer l.Close()

	if _, err := l.ProcessFrame(solidFrame(64, 64, 10, 10, 10)); err != nil {
		t.Fatalf("ProcessFrame: %v", err)
	}
	res, err := l.ProcessFrame(solidFrame(64, 64, 200, 10, 10))
	if err != nil {
		t.Fatalf("ProcessFrame: %v", err)
	}
	if res.MotionScore != 0 {
		t.Errorf("motionScore = %v, want 0 when motion detection is disabled", res.MotionScore)
	}
}
