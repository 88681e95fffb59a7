//go:build linux

package capture

import (
	"fmt"
	"sync"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/shm"
	"github.com/jezek/xgb/xproto"

	"github.com/corvid-labs/deskwatch/internal/frame"
)

// x11Backend captures via XShmGetImage when the MIT-SHM extension is
// present, falling back to XGetImage otherwise, per spec 4.C.2.
type x11Backend struct {
	linuxLastError

	mu       sync.Mutex
	conn     *xgb.Conn
	screen   *xproto.ScreenInfo
	hasShm   bool
}

func newX11Backend() (*x11Backend, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, newErr(KindUnavailable, "x11", "failed to connect to X server", err)
	}

	if err := shm.Init(conn); err != nil {
		// MIT-SHM unavailable; XGetImage fallback still works.
		conn2 := conn
		setup := xproto.Setup(conn2)
		screen := setup.DefaultScreen(conn2)
		return &x11Backend{conn: conn, screen: screen, hasShm: false}, nil
	}

	setup := xproto.Setup(conn)
	screen := setup.DefaultScreen(conn)
	return &x11Backend{conn: conn, screen: screen, hasShm: true}, nil
}

func (b *x11Backend) CaptureFullScreen(displayID int, opts Options) (Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	root := b.screen.Root
	f, err := b.getImage(root, 0, 0, int(b.screen.WidthInPixels), int(b.screen.HeightInPixels))
	if err != nil {
		b.set(err.Error())
		return Result{}, err
	}
	return Result{Frame: f}, nil
}

func (b *x11Backend) CaptureWindow(handle WindowHandle, opts Options) (Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	win := xproto.Window(handle)
	geom, err := xproto.GetGeometry(b.conn, xproto.Drawable(win)).Reply()
	if err != nil {
		e := newErr(KindInvalidInput, "x11", "GetGeometry failed for window handle", err)
		b.set(e.Error())
		return Result{}, e
	}

	f, err := b.getImage(win, 0, 0, int(geom.Width), int(geom.Height))
	if err != nil {
		b.set(err.Error())
		return Result{}, err
	}
	return Result{Frame: f}, nil
}

func (b *x11Backend) CaptureRegion(region Rect, displayID int, opts Options) (Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !region.Valid() {
		e := newErr(KindInvalidInput, "x11", "empty region", nil)
		b.set(e.Error())
		return Result{}, e
	}

	f, err := b.getImage(b.screen.Root, region.X, region.Y, region.W, region.H)
	if err != nil {
		b.set(err.Error())
		return Result{}, err
	}
	return Result{Frame: f}, nil
}

// getImage pulls a rect of drawable d via XShmGetImage when the SHM
// extension was successfully initialized, else falls back to the
// ordinary XGetImage request. Both return ZPixmap-format 24/32-bit data
// that gets normalized to BGR24.
func (b *x11Backend) getImage(d xproto.Drawable, x, y, w, h int) (frame.Frame, error) {
	if b.hasShm {
		if f, err := b.getImageShm(d, x, y, w, h); err == nil {
			return f, nil
		}
		// Fall through to the non-shared-memory path on any SHM failure.
	}

	reply, err := xproto.GetImage(b.conn, xproto.ImageFormatZPixmap, d,
		int16(x), int16(y), uint16(w), uint16(h), 0xffffffff).Reply()
	if err != nil {
		return frame.Frame{}, newErr(KindResource, "x11", "XGetImage failed", err)
	}
	return x11DataToBGR(reply.Data, w, h, int(b.screen.RootDepth))
}

func (b *x11Backend) getImageShm(d xproto.Drawable, x, y, w, h int) (frame.Frame, error) {
	depth := b.screen.RootDepth
	bpp := 4
	size := uint32(w * h * bpp)

	segID, err := shm.NewSegId(b.conn)
	if err != nil {
		return frame.Frame{}, newErr(KindResource, "x11", "shm.NewSegId failed", err)
	}
	seg, err := newSharedMemorySegment(int(size))
	if err != nil {
		return frame.Frame{}, newErr(KindResource, "x11", "shmget/shmat failed", err)
	}
	defer seg.release()

	if err := shm.AttachChecked(b.conn, segID, uint32(seg.id), false).Check(); err != nil {
		return frame.Frame{}, newErr(KindResource, "x11", "shm.Attach failed", err)
	}
	defer shm.Detach(b.conn, segID)

	_, err = shm.GetImage(b.conn, d, int16(x), int16(y), uint16(w), uint16(h),
		0xffffffff, byte(xproto.ImageFormatZPixmap), segID, 0).Reply()
	if err != nil {
		return frame.Frame{}, newErr(KindResource, "x11", "shm.GetImage failed", err)
	}

	return x11DataToBGR(seg.data[:size], w, h, int(depth))
}

func x11DataToBGR(data []byte, w, h, depth int) (frame.Frame, error) {
	bpp := 4
	if depth == 24 || depth == 32 {
		bpp = 4
	} else if depth == 16 {
		return frame.Frame{}, fmt.Errorf("x11: unsupported depth %d", depth)
	}
	in := frame.Frame{Width: w, Height: h, Format: frame.BGRA32, Pix: data, Stride: w * bpp}
	return frame.Convert(in, frame.BGR24)
}
