//go:build linux

package capture

import (
	"golang.org/x/sys/unix"
)

// sharedMemorySegment wraps a System V shared memory segment used to back
// XShmGetImage transfers, avoiding a socket round-trip for the pixel
// payload.
type sharedMemorySegment struct {
	id   int
	data []byte
}

func newSharedMemorySegment(size int) (*sharedMemorySegment, error) {
	id, err := unix.SysvShmGet(unix.IPC_PRIVATE, size, unix.IPC_CREAT|0600)
	if err != nil {
		return nil, err
	}
	data, err := unix.SysvShmAttach(id, 0, 0)
	if err != nil {
		return nil, err
	}
	return &sharedMemorySegment{id: id, data: data}, nil
}

func (s *sharedMemorySegment) release() {
	if s.data != nil {
		unix.SysvShmDetach(s.data)
	}
	unix.SysvShmCtl(s.id, unix.IPC_RMID, nil)
}

func (b *x11Backend) GetDisplays() ([]DisplayInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return []DisplayInfo{{
		ID:      0,
		Name:    "X11 root",
		Bounds:  Rect{W: int(b.screen.WidthInPixels), H: int(b.screen.HeightInPixels)},
		Primary: true,
	}}, nil
}

func (b *x11Backend) SupportsWindowCapture() bool { return true }
func (b *x11Backend) SupportsRegionCapture() bool { return true }

func (b *x11Backend) LastError() string { return b.get() }
