package capture

import "sync"

// Facade is the single public construction point: it inspects the
// runtime platform (via build tags, resolved at compile time per
// capture_<os>.go) and forwards every call to the selected Backend
// verbatim, then applies resolution shaping/encoding itself so every
// platform gets identical post-processing (spec 4.D).
type Facade struct {
	mu      sync.Mutex
	backend Backend
}

// New constructs a Facade wrapping the platform's backend. Returns the
// backend's construction error (an *Error whose Kind says why) if no
// backend could be initialized for this platform.
func New() (*Facade, error) {
	b, err := newPlatformBackend()
	if err != nil {
		return nil, err
	}
	return &Facade{backend: b}, nil
}

// IsSupported reports whether this platform has a usable backend,
// without constructing one that holds live resources.
func IsSupported() bool {
	return platformSupported()
}

// CaptureFullScreen forwards to the platform backend for the raw frame,
// then applies resolution shaping and encoding itself (spec 4.D): the
// backend is handed opts but does no shaping or encoding with them, so
// there's a single place that can't be skipped by a new capture path.
func (f *Facade) CaptureFullScreen(displayID int, opts Options) (Result, error) {
	f.mu.Lock()
	res, err := f.backend.CaptureFullScreen(displayID, opts)
	f.mu.Unlock()
	if err != nil {
		return Result{}, err
	}
	return shapeAndEncode(res.Frame, opts)
}

func (f *Facade) CaptureWindow(handle WindowHandle, opts Options) (Result, error) {
	f.mu.Lock()
	res, err := f.backend.CaptureWindow(handle, opts)
	f.mu.Unlock()
	if err != nil {
		return Result{}, err
	}
	return shapeAndEncode(res.Frame, opts)
}

func (f *Facade) CaptureRegion(region Rect, displayID int, opts Options) (Result, error) {
	f.mu.Lock()
	res, err := f.backend.CaptureRegion(region, displayID, opts)
	f.mu.Unlock()
	if err != nil {
		return Result{}, err
	}
	return shapeAndEncode(res.Frame, opts)
}

func (f *Facade) GetDisplays() ([]DisplayInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.backend.GetDisplays()
}

func (f *Facade) SupportsWindowCapture() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.backend.SupportsWindowCapture()
}

func (f *Facade) SupportsRegionCapture() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.backend.SupportsRegionCapture()
}

func (f *Facade) LastError() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.backend.LastError()
}

// Diagnose returns platform-specific diagnostic info. Non-Windows
// backends return a minimal report; capture_windows.go supplies the
// Tier-1 details via the diagnosable interface.
type Diagnostics struct {
	Platform          string
	CurrentTier       string // Windows only; empty elsewhere
	Tier1Available    bool   // Windows only
	OccupyingProcesses []string
}

func (f *Facade) Diagnose() Diagnostics {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := f.backend.(diagnosable); ok {
		return d.diagnose()
	}
	return Diagnostics{Platform: platformName()}
}

// diagnosable is implemented by backends that expose richer diagnostics
// (currently only the Windows tiered backend).
type diagnosable interface {
	diagnose() Diagnostics
}
