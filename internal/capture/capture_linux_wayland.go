//go:build linux

package capture

import (
	"fmt"
	"image"
	_ "image/png"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/corvid-labs/deskwatch/internal/frame"
)

const (
	portalBusName      = "org.freedesktop.portal.Desktop"
	portalObjectPath   = "/org/freedesktop/portal/desktop"
	portalScreenshotIf = "org.freedesktop.portal.Screenshot"
	portalRequestIf    = "org.freedesktop.portal.Request"
)

// waylandBackend captures via the org.freedesktop.portal.Screenshot
// interface over the session bus: a synchronous request/response that
// hands back a URI to a PNG file, per spec 4.C.2.
type waylandBackend struct {
	linuxLastError

	mu   sync.Mutex
	conn *dbus.Conn
}

func newWaylandBackend() (*waylandBackend, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, newErr(KindUnavailable, "wayland", "failed to connect to session bus", err)
	}
	return &waylandBackend{conn: conn}, nil
}

func (b *waylandBackend) CaptureFullScreen(displayID int, opts Options) (Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	f, err := b.requestScreenshot()
	if err != nil {
		b.set(err.Error())
		return Result{}, err
	}
	return Result{Frame: f}, nil
}

// CaptureWindow is unsupported: the portal only exposes whole-screen (or
// interactive) screenshots, never a specific window handle.
func (b *waylandBackend) CaptureWindow(handle WindowHandle, opts Options) (Result, error) {
	err := newErr(KindUnsupported, "wayland", "window capture not available via portal", nil)
	b.set(err.Error())
	return Result{}, err
}

// CaptureRegion crops the portal's full screenshot, since the portal API
// has no region parameter.
func (b *waylandBackend) CaptureRegion(region Rect, displayID int, opts Options) (Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	full, err := b.requestScreenshot()
	if err != nil {
		b.set(err.Error())
		return Result{}, err
	}
	cropped, err := cropFrame(full, region)
	if err != nil {
		b.set(err.Error())
		return Result{}, err
	}
	return Result{Frame: cropped}, nil
}

func (b *waylandBackend) GetDisplays() ([]DisplayInfo, error) {
	// The portal API does not expose per-output geometry; report a single
	// synthetic primary display with zero bounds.
	return []DisplayInfo{{ID: 0, Name: "wayland compositor output", Primary: true}}, nil
}

func (b *waylandBackend) SupportsWindowCapture() bool { return false }
func (b *waylandBackend) SupportsRegionCapture() bool { return true }

func (b *waylandBackend) LastError() string { return b.get() }

// requestScreenshot drives the portal's async Request/Response handshake
// synchronously: call Screenshot, subscribe to the returned request
// object's Response signal, block until it fires (giving up with a
// transient error after 30 seconds), then load the PNG it wrote to disk.
func (b *waylandBackend) requestScreenshot() (frame.Frame, error) {
	obj := b.conn.Object(portalBusName, dbus.ObjectPath(portalObjectPath))

	options := map[string]dbus.Variant{
		"handle_token": dbus.MakeVariant(fmt.Sprintf("deskwatch%d", time.Now().UnixNano())),
		"interactive":  dbus.MakeVariant(false),
	}

	var requestPath dbus.ObjectPath
	call := obj.Call(portalScreenshotIf+".Screenshot", 0, "", options)
	if call.Err != nil {
		return frame.Frame{}, newErr(KindResource, "wayland", "Screenshot call failed", call.Err)
	}
	if err := call.Store(&requestPath); err != nil {
		return frame.Frame{}, newErr(KindResource, "wayland", "Screenshot reply decode failed", err)
	}

	sigCh := make(chan *dbus.Signal, 1)
	b.conn.Signal(sigCh)
	defer b.conn.RemoveSignal(sigCh)

	matchRule := fmt.Sprintf("type='signal',interface='%s',path='%s'", portalRequestIf, requestPath)
	b.conn.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, matchRule)
	defer b.conn.BusObject().Call("org.freedesktop.DBus.RemoveMatch", 0, matchRule)

	select {
	case sig := <-sigCh:
		if len(sig.Body) < 2 {
			return frame.Frame{}, newErr(KindResource, "wayland", "malformed portal Response signal", nil)
		}
		code, _ := sig.Body[0].(uint32)
		if code != 0 {
			return frame.Frame{}, newErr(KindUnavailable, "wayland", "portal denied or cancelled screenshot request", nil)
		}
		results, _ := sig.Body[1].(map[string]dbus.Variant)
		uriVar, ok := results["uri"]
		if !ok {
			return frame.Frame{}, newErr(KindResource, "wayland", "portal response missing uri", nil)
		}
		uri, _ := uriVar.Value().(string)
		return loadScreenshotFile(uri)
	case <-time.After(30 * time.Second):
		return frame.Frame{}, newErr(KindTransient, "wayland", "portal response timed out", nil)
	}
}

func loadScreenshotFile(uri string) (frame.Frame, error) {
	path := strings.TrimPrefix(uri, "file://")
	f, err := os.Open(path)
	if err != nil {
		return frame.Frame{}, newErr(KindResource, "wayland", "failed to open portal screenshot file", err)
	}
	defer f.Close()
	defer os.Remove(path)

	img, _, err := image.Decode(f)
	if err != nil {
		return frame.Frame{}, newErr(KindResource, "wayland", "failed to decode portal screenshot PNG", err)
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			rgba.Set(x, y, img.At(x, y))
		}
	}
	canonical := frame.Frame{Width: bounds.Dx(), Height: bounds.Dy(), Format: frame.RGBA32, Pix: rgba.Pix, Stride: rgba.Stride}
	return frame.Convert(canonical, frame.BGR24)
}
