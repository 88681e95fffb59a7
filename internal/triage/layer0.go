// Package triage implements the cheapest, highest-frequency stage of the
// capture pipeline: a per-frame change gate fusing frame-diff,
// color-histogram, and sparse optical-flow signals into a single trigger
// decision for the next (more expensive) processing layer.
//
// The CV primitives are ported from VisionLayer0.cpp onto gocv.io/x/gocv;
// the downsample and format-normalization steps reuse internal/frame and
// internal/resolution, the same utility layer the capture facade applies
// to its own output, per the shared-utility requirement.
package triage

import (
	"fmt"
	"image"
	"math"

	"gocv.io/x/gocv"

	"github.com/corvid-labs/deskwatch/internal/frame"
	"github.com/corvid-labs/deskwatch/internal/resolution"
)

// Config mirrors VisionLayer0Config's tunables.
type Config struct {
	FrameDiffThreshold      float64
	MorphKernelSize         int
	HistogramBins           int
	ColorChangeThreshold    float64
	EnableDominantColor     bool
	EnableMotionDetection   bool
	OpticalFlowPoints       int
	MotionThreshold         float64
	FrameDiffWeight         float64
	ColorChangeWeight       float64
	MotionWeight            float64
	OverallThreshold        float64
	ProcessingWidth         int
	ProcessingHeight        int
	EnableAdaptiveThreshold bool
}

// DefaultConfig matches the constructor defaults of VisionLayer0Config.
func DefaultConfig() Config {
	return Config{
		FrameDiffThreshold:      0.1,
		MorphKernelSize:         3,
		HistogramBins:           32,
		ColorChangeThreshold:    0.15,
		EnableDominantColor:     false,
		EnableMotionDetection:   true,
		OpticalFlowPoints:       100,
		MotionThreshold:         0.1,
		FrameDiffWeight:         0.4,
		ColorChangeWeight:       0.3,
		MotionWeight:            0.3,
		OverallThreshold:        0.2,
		ProcessingWidth:         640,
		ProcessingHeight:        480,
		EnableAdaptiveThreshold: true,
	}
}

// Result mirrors VisionLayer0Result. Regions are in downsampled
// (ProcessingWidth x ProcessingHeight) coordinates.
type Result struct {
	FrameDiffScore      float64
	ChangedRegions      []image.Rectangle
	ColorChangeScore    float64
	DominantColors      []float32
	MotionScore         float64
	MotionRegions       []image.Rectangle
	OverallChangeScore  float64
	ShouldTriggerLayer1 bool
}

// layer0State is the opaque previous-frame/adaptive-threshold state the
// original hid behind a pImpl. gocv.Mat owns C memory, so unlike the
// original's RAII cv::Mat members it must be released explicitly via
// Close.
type layer0State struct {
	previousGray      gocv.Mat
	previousColor     gocv.Mat
	adaptiveThreshold float64
}

// Layer0 is a single-threaded, per-session change-triage engine. Concurrent
// calls into one instance are not supported; run one Layer0 per capture
// session, as the facade does for backends.
type Layer0 struct {
	config Config
	state  layer0State
}

// NewLayer0 constructs a Layer0 with the given config (zero value is not
// usable; pass DefaultConfig() or a fully populated Config).
func NewLayer0(cfg Config) *Layer0 {
	return &Layer0{
		config: cfg,
		state: layer0State{
			previousGray:      gocv.NewMat(),
			previousColor:     gocv.NewMat(),
			adaptiveThreshold: cfg.OverallThreshold,
		},
	}
}

// Close releases the Mats held by the engine's internal state. Call when
// the engine is no longer needed.
func (l *Layer0) Close() error {
	l.state.previousGray.Close()
	l.state.previousColor.Close()
	return nil
}

// GetConfig returns the engine's current configuration.
func (l *Layer0) GetConfig() Config {
	return l.config
}

// UpdateConfig replaces the configuration. If adaptive thresholding was
// just disabled, the adaptive threshold snaps back to the configured
// overall threshold.
func (l *Layer0) UpdateConfig(cfg Config) {
	l.config = cfg
	if !cfg.EnableAdaptiveThreshold {
		l.state.adaptiveThreshold = cfg.OverallThreshold
	}
}

// Reset drops the held previous frames and restores the adaptive
// threshold to the configured overall threshold.
func (l *Layer0) Reset() {
	l.state.previousGray.Close()
	l.state.previousColor.Close()
	l.state.previousGray = gocv.NewMat()
	l.state.previousColor = gocv.NewMat()
	l.state.adaptiveThreshold = l.config.OverallThreshold
}

// ProcessFrame runs the full triage pipeline on f and returns the fused
// result. An invalid frame yields a zero Result and a nil error, matching
// the original's "invalid input -> default-constructed result" behavior.
func (l *Layer0) ProcessFrame(f frame.Frame) (Result, error) {
	if !f.IsValid() {
		return Result{}, nil
	}

	bgr, err := frame.ToBGR24(f)
	if err != nil {
		return Result{}, err
	}

	processed, err := resolution.Resize(bgr, l.config.ProcessingWidth, l.config.ProcessingHeight, resolution.Linear)
	if err != nil {
		return Result{}, err
	}

	gray, err := frame.ToGray8(processed)
	if err != nil {
		return Result{}, err
	}

	colorMat, err := frameToMat(processed)
	if err != nil {
		return Result{}, err
	}
	defer colorMat.Close()

	grayMat, err := frameToMat(gray)
	if err != nil {
		return Result{}, err
	}
	defer grayMat.Close()

	var result Result

	if !l.state.previousGray.Empty() && sameSize(l.state.previousGray, grayMat) {
		result.FrameDiffScore, result.ChangedRegions = l.detectFrameDifference(grayMat, l.state.previousGray)
		result.ColorChangeScore, result.DominantColors = l.analyzeColor(colorMat, l.state.previousColor)
		if l.config.EnableMotionDetection {
			result.MotionScore, result.MotionRegions = l.detectMotion(grayMat, l.state.previousGray)
		}
	}

	result.OverallChangeScore = l.config.FrameDiffWeight*result.FrameDiffScore +
		l.config.ColorChangeWeight*result.ColorChangeScore +
		l.config.MotionWeight*result.MotionScore

	threshold := l.config.OverallThreshold
	if l.config.EnableAdaptiveThreshold {
		threshold = l.state.adaptiveThreshold
	}
	result.ShouldTriggerLayer1 = result.OverallChangeScore >= threshold

	if l.config.EnableAdaptiveThreshold {
		l.updateAdaptiveThreshold(result.OverallChangeScore)
	}

	newGray := grayMat.Clone()
	newColor := colorMat.Clone()
	l.state.previousGray.Close()
	l.state.previousColor.Close()
	l.state.previousGray = newGray
	l.state.previousColor = newColor

	return result, nil
}

// detectFrameDifference computes the frame-diff score and changed-region
// rects for current vs previous (both single-channel gray Mats).
func (l *Layer0) detectFrameDifference(current, previous gocv.Mat) (float64, []image.Rectangle) {
	if current.Empty() || previous.Empty() || !sameSize(current, previous) {
		return 0, nil
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(current, previous, &diff)

	binary := gocv.NewMat()
	defer binary.Close()
	gocv.Threshold(diff, &binary, float32(l.config.FrameDiffThreshold*255.0), 255, gocv.ThresholdBinary)

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(l.config.MorphKernelSize, l.config.MorphKernelSize))
	defer kernel.Close()

	morphed := gocv.NewMat()
	defer morphed.Close()
	gocv.MorphologyEx(binary, &morphed, gocv.MorphOpen, kernel)
	gocv.MorphologyEx(morphed, &morphed, gocv.MorphClose, kernel)

	contours := gocv.FindContours(morphed, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	var regions []image.Rectangle
	changedPixels := 0
	totalPixels := morphed.Rows() * morphed.Cols()

	for i := 0; i < contours.Size(); i++ {
		c := contours.At(i)
		if c.Size() < 3 {
			continue
		}
		rect := gocv.BoundingRect(c)
		regions = append(regions, rect)

		roi := morphed.Region(rect)
		changedPixels += gocv.CountNonZero(roi)
		roi.Close()
	}

	if totalPixels == 0 {
		return 0, regions
	}
	score := float64(changedPixels) / float64(totalPixels)
	if score > 1 {
		score = 1
	}
	return score, regions
}

// analyzeColor computes the color-change score (and, if enabled, dominant
// colors) for current vs previous (both 3-channel BGR Mats at processing
// resolution).
func (l *Layer0) analyzeColor(current, previous gocv.Mat) (float64, []float32) {
	if current.Empty() || previous.Empty() || !sameSize(current, previous) {
		return 0, nil
	}

	const sampleFactor = 4
	w := current.Cols() / sampleFactor
	h := current.Rows() / sampleFactor
	if w < 1 || h < 1 {
		return 0, nil
	}

	// cv::INTER_AREA has no equivalent in the shared resolution package's
	// Interp enum (linear/cubic/Lanczos/nearest), so this one downsample
	// goes straight through gocv rather than component B.
	currentSampled := gocv.NewMat()
	defer currentSampled.Close()
	previousSampled := gocv.NewMat()
	defer previousSampled.Close()
	gocv.Resize(current, &currentSampled, image.Pt(w, h), 0, 0, gocv.InterpolationArea)
	gocv.Resize(previous, &previousSampled, image.Pt(w, h), 0, 0, gocv.InterpolationArea)

	currentHSV := gocv.NewMat()
	defer currentHSV.Close()
	previousHSV := gocv.NewMat()
	defer previousHSV.Close()
	gocv.CvtColor(currentSampled, &currentHSV, gocv.ColorBGRToHSV)
	gocv.CvtColor(previousSampled, &previousHSV, gocv.ColorBGRToHSV)

	currentChannels := gocv.Split(currentHSV)
	defer closeAll(currentChannels)
	previousChannels := gocv.Split(previousHSV)
	defer closeAll(previousChannels)

	mask := gocv.NewMat()
	defer mask.Close()

	bins := l.config.HistogramBins
	currentHist := gocv.NewMat()
	defer currentHist.Close()
	previousHist := gocv.NewMat()
	defer previousHist.Close()

	gocv.CalcHist([]gocv.Mat{currentChannels[0]}, []int{0}, mask, &currentHist, []int{bins}, []float64{0, 256}, false)
	gocv.CalcHist([]gocv.Mat{previousChannels[0]}, []int{0}, mask, &previousHist, []int{bins}, []float64{0, 256}, false)

	gocv.Normalize(currentHist, &currentHist, 0, 1, gocv.NormMinMax)
	gocv.Normalize(previousHist, &previousHist, 0, 1, gocv.NormMinMax)

	correlation := gocv.CompareHistogram(currentHist, previousHist, gocv.HistCmpCorrel)
	score := 1.0 - float64(correlation)
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}

	var colors []float32
	if l.config.EnableDominantColor {
		colors = extractDominantColors(currentSampled)
	}

	return score, colors
}

// extractDominantColors runs k=3 k-means clustering over currentSampled's
// BGR pixels and returns the cluster centers as RGB floats in [0,1].
func extractDominantColors(img gocv.Mat) []float32 {
	if img.Empty() || img.Channels() != 3 {
		return nil
	}

	samples := img.Reshape(1, img.Rows()*img.Cols())
	defer samples.Close()

	samplesF := gocv.NewMat()
	defer samplesF.Close()
	samples.ConvertTo(&samplesF, gocv.MatTypeCV32F)

	labels := gocv.NewMat()
	defer labels.Close()
	centers := gocv.NewMat()
	defer centers.Close()

	criteria := gocv.NewTermCriteria(gocv.Count+gocv.EPS, 10, 1.0)
	const k = 3
	gocv.KMeans(samplesF, k, &labels, criteria, 3, gocv.KMeansPPCenters, &centers)

	colors := make([]float32, 0, centers.Rows()*3)
	for i := 0; i < centers.Rows(); i++ {
		b := centers.GetFloatAt(i, 0)
		g := centers.GetFloatAt(i, 1)
		r := centers.GetFloatAt(i, 2)
		colors = append(colors, r/255.0, g/255.0, b/255.0)
	}
	return colors
}

// detectMotion tracks Shi-Tomasi corners from previous into current via
// pyramidal Lucas-Kanade optical flow and returns the average-magnitude
// motion score plus (at most one) bounding rect over the high-motion
// point set's convex hull.
//
// gocv's CalcOpticalFlowPyrLK wrapper does not expose the window size,
// pyramid level count, or termination criteria the spec calls out
// (15x15, 2 levels, count=10/eps=0.03) — those are fixed inside the
// binding rather than parameterized, the same kind of library ceiling
// the Lanczos kernel hits in the resolution package.
func (l *Layer0) detectMotion(current, previous gocv.Mat) (float64, []image.Rectangle) {
	if current.Empty() || previous.Empty() || !sameSize(current, previous) {
		return 0, nil
	}

	corners := gocv.NewMat()
	defer corners.Close()
	gocv.GoodFeaturesToTrack(previous, &corners, l.config.OpticalFlowPoints, 0.01, 10)

	if corners.Rows() == 0 {
		return 0, nil
	}

	nextPts := gocv.NewMat()
	defer nextPts.Close()
	status := gocv.NewMat()
	defer status.Close()
	flowErr := gocv.NewMat()
	defer flowErr.Close()

	gocv.CalcOpticalFlowPyrLK(previous, current, corners, &nextPts, &status, &flowErr)

	var totalMotion float64
	validPoints := 0
	var motionPoints []image.Point

	for i := 0; i < corners.Rows(); i++ {
		if status.GetUCharAt(i, 0) == 0 {
			continue
		}
		cp := corners.GetVecfAt(i, 0)
		np := nextPts.GetVecfAt(i, 0)
		dx := float64(np[0] - cp[0])
		dy := float64(np[1] - cp[1])
		magnitude := math.Sqrt(dx*dx + dy*dy)
		totalMotion += magnitude
		validPoints++

		if magnitude > l.config.MotionThreshold*10.0 {
			motionPoints = append(motionPoints, image.Pt(int(cp[0]), int(cp[1])))
		}
	}

	var avgMotion float64
	if validPoints > 0 {
		avgMotion = totalMotion / float64(validPoints)
	}
	motionScore := math.Min(1.0, avgMotion/50.0)

	var regions []image.Rectangle
	if len(motionPoints) > 5 {
		if rect, ok := convexHullBoundingRect(motionPoints); ok {
			regions = append(regions, rect)
		}
	}

	return motionScore, regions
}

// convexHullBoundingRect computes the convex hull of points and returns
// its bounding rect, mirroring cv::convexHull + cv::boundingRect.
func convexHullBoundingRect(points []image.Point) (image.Rectangle, bool) {
	pv := gocv.NewPointVectorFromPoints(points)
	defer pv.Close()

	hull := gocv.NewMat()
	defer hull.Close()
	gocv.ConvexHull(pv, &hull, false, true)

	if hull.Rows() < 3 {
		return image.Rectangle{}, false
	}

	minX, minY := math.MaxInt32, math.MaxInt32
	maxX, maxY := math.MinInt32, math.MinInt32
	for i := 0; i < hull.Rows(); i++ {
		pt := hull.GetVeciAt(i, 0)
		x, y := int(pt[0]), int(pt[1])
		if x < minX {
			minX = x
		}
		if y < minY {
			minY = y
		}
		if x > maxX {
			maxX = x
		}
		if y > maxY {
			maxY = y
		}
	}
	return image.Rect(minX, minY, maxX+1, maxY+1), true
}

// updateAdaptiveThreshold nudges the adaptive threshold toward a 0.3
// target score at a 0.1 learning rate, clamped to [0.05, 0.5]. Called
// unconditionally on every frame when adaptive thresholding is enabled,
// including the first frame of a session (overall == 0 pulls the
// threshold down, same as the original).
func (l *Layer0) updateAdaptiveThreshold(overall float64) {
	const alpha = 0.1
	const target = 0.3

	if overall > target {
		l.state.adaptiveThreshold *= 1 + alpha
	} else {
		l.state.adaptiveThreshold *= 1 - alpha
	}

	if l.state.adaptiveThreshold < 0.05 {
		l.state.adaptiveThreshold = 0.05
	}
	if l.state.adaptiveThreshold > 0.5 {
		l.state.adaptiveThreshold = 0.5
	}
}

// frameToMat wraps f's pixel buffer as a gocv.Mat without copying.
func frameToMat(f frame.Frame) (gocv.Mat, error) {
	var mt gocv.MatType
	switch f.Format {
	case frame.BGR24, frame.RGB24:
		mt = gocv.MatTypeCV8UC3
	case frame.BGRA32, frame.RGBA32:
		mt = gocv.MatTypeCV8UC4
	case frame.Gray8:
		mt = gocv.MatTypeCV8UC1
	default:
		return gocv.Mat{}, fmt.Errorf("triage: unsupported pixel format %v", f.Format)
	}

	mat, err := gocv.NewMatFromBytes(f.Height, f.Width, mt, f.Pix)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("triage: frame to mat: %w", err)
	}
	return mat, nil
}

func sameSize(a, b gocv.Mat) bool {
	return a.Rows() == b.Rows() && a.Cols() == b.Cols()
}

func closeAll(mats []gocv.Mat) {
	for _, m := range mats {
		m.Close()
	}
}
