package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/corvid-labs/deskwatch/internal/capture"
	"github.com/corvid-labs/deskwatch/internal/config"
	"github.com/corvid-labs/deskwatch/internal/logging"
	"github.com/corvid-labs/deskwatch/internal/triage"
)

var (
	logLevel  string
	logFormat string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Capture the desktop and gate frames through the triage engine",
	Run: func(cmd *cobra.Command, args []string) {
		runLoop()
	},
}

func init() {
	runCmd.Flags().StringVar(&logLevel, "log-level", "info", "debug, info, warn, or error")
	runCmd.Flags().StringVar(&logFormat, "log-format", "text", "text or json")
}

var log = logging.L("main")

func runLoop() {
	logging.Init(logFormat, logLevel)
	log = logging.L("main")

	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if !capture.IsSupported() {
		fmt.Fprintln(os.Stderr, "no capture backend is available on this platform")
		os.Exit(1)
	}

	facade, err := capture.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to construct capture facade: %v\n", err)
		os.Exit(1)
	}

	opts := captureOptions(cfg.Capture)
	engine := triage.NewLayer0(triageConfig(cfg.Triage))
	defer engine.Close()

	interval := time.Duration(cfg.Capture.IntervalMillis) * time.Millisecond
	if interval <= 0 {
		interval = 33 * time.Millisecond
	}

	if cfg.Capture.OutputDir != "" {
		if err := os.MkdirAll(cfg.Capture.OutputDir, 0o755); err != nil {
			log.Error("failed to create output dir", "dir", cfg.Capture.OutputDir, "error", err)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info("deskwatch run loop starting", "displayIndex", cfg.Display.Index, "interval", interval)

	var frameNum int64
	for {
		select {
		case <-sigCh:
			log.Info("shutting down", "framesProcessed", frameNum)
			return
		case <-ticker.C:
			frameNum++
			res, err := facade.CaptureFullScreen(cfg.Display.Index, opts)
			if err != nil {
				log.Warn("capture failed", "error", err, "lastError", facade.LastError())
				continue
			}

			result, err := engine.ProcessFrame(res.Frame)
			if err != nil {
				log.Warn("triage failed", "error", err)
				continue
			}

			if result.ShouldTriggerLayer1 {
				log.Info("layer1 triggered",
					"frame", frameNum,
					"overall", result.OverallChangeScore,
					"frameDiff", result.FrameDiffScore,
					"colorChange", result.ColorChangeScore,
					"motion", result.MotionScore,
					"changedRegions", len(result.ChangedRegions),
				)
			}

			if cfg.Capture.OutputDir != "" && len(res.Encoded) > 0 {
				ext := "jpg"
				path := filepath.Join(cfg.Capture.OutputDir, fmt.Sprintf("frame_%08d.%s", frameNum, ext))
				if err := os.WriteFile(path, res.Encoded, 0o644); err != nil {
					log.Warn("failed to write encoded frame", "path", path, "error", err)
				}
			}
		}
	}
}

func captureOptions(cfg config.CaptureConfig) capture.Options {
	return capture.Options{
		MaxWidth:        cfg.MaxWidth,
		MaxHeight:       cfg.MaxHeight,
		KeepAspectRatio: cfg.KeepAspectRatio,
		JPEGEnabled:     cfg.JPEGQuality > 0,
		JPEGQuality:     cfg.JPEGQuality,
	}
}

func triageConfig(cfg config.TriageConfig) triage.Config {
	return triage.Config{
		FrameDiffThreshold:      cfg.FrameDiffThreshold,
		MorphKernelSize:         cfg.MorphKernelSize,
		HistogramBins:           cfg.HistogramBins,
		ColorChangeThreshold:    cfg.ColorThreshold,
		EnableDominantColor:     cfg.EnableDominantColor,
		EnableMotionDetection:   cfg.EnableMotion,
		OpticalFlowPoints:       cfg.OpticalFlowPoints,
		MotionThreshold:         cfg.MotionThreshold,
		FrameDiffWeight:         0.4,
		ColorChangeWeight:       0.3,
		MotionWeight:            0.3,
		OverallThreshold:        cfg.OverallThreshold,
		ProcessingWidth:         640,
		ProcessingHeight:        480,
		EnableAdaptiveThreshold: cfg.EnableAdaptive,
	}
}
