//go:build windows

package capture

import (
	"fmt"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/shirou/gopsutil/v3/process"
)

var (
	user32                     = windows.NewLazySystemDLL("user32.dll")
	procEnumDisplayMonitors    = user32.NewProc("EnumDisplayMonitors")
	procGetMonitorInfoW        = user32.NewProc("GetMonitorInfoW")
	procEnumDisplaySettingsW   = user32.NewProc("EnumDisplaySettingsW")
)

type rect struct{ Left, Top, Right, Bottom int32 }

type monitorInfoEx struct {
	CbSize    uint32
	Monitor   rect
	WorkArea  rect
	Flags     uint32
	Device    [32]uint16
}

const monitorInfoFPrimary = 0x1
const enumCurrentSettings = ^uint32(0) // -1

type devMode struct {
	DeviceName       [32]uint16
	SpecVersion      uint16
	DriverVersion    uint16
	Size             uint16
	DriverExtra      uint16
	Fields           uint32
	OrientationPt    [16]byte // union region large enough for POINTL/Orientation fields we don't use
	Color            int16
	Duplex           int16
	YResolution      int16
	TTOption         int16
	Collate          int16
	FormName         [32]uint16
	LogPixels        uint16
	BitsPerPel       uint32
	PelsWidth        uint32
	PelsHeight       uint32
	DisplayFlags     uint32
	DisplayFrequency uint32
	_                [32]byte // remainder of DEVMODEW not consulted here
}

// enumerateWindowsDisplays walks active monitors via EnumDisplayMonitors,
// resolving virtual-desktop bounds, primary flag and refresh rate for
// each, matching DisplayInfo's contract in the data model.
func enumerateWindowsDisplays() ([]DisplayInfo, error) {
	var displays []DisplayInfo
	cb := syscall.NewCallback(func(hMonitor, _hdc, _lprc, _lparam uintptr) uintptr {
		var mi monitorInfoEx
		mi.CbSize = uint32(unsafe.Sizeof(mi))
		ret, _, _ := procGetMonitorInfoW.Call(hMonitor, uintptr(unsafe.Pointer(&mi)))
		if ret == 0 {
			return 1 // continue enumeration
		}

		name := syscall.UTF16ToString(mi.Device[:])
		refresh := displayRefreshHz(mi.Device[:])

		displays = append(displays, DisplayInfo{
			ID:   len(displays),
			Name: name,
			Bounds: Rect{
				X: int(mi.Monitor.Left), Y: int(mi.Monitor.Top),
				W: int(mi.Monitor.Right - mi.Monitor.Left),
				H: int(mi.Monitor.Bottom - mi.Monitor.Top),
			},
			Primary:   mi.Flags&monitorInfoFPrimary != 0,
			RefreshHz: refresh,
		})
		return 1
	})

	ret, _, errno := procEnumDisplayMonitors.Call(0, 0, cb, 0)
	if ret == 0 {
		return nil, fmt.Errorf("EnumDisplayMonitors failed: %v", errno)
	}
	return displays, nil
}

func displayRefreshHz(deviceName []uint16) float64 {
	var dm devMode
	dm.Size = uint16(unsafe.Sizeof(dm))
	ret, _, _ := procEnumDisplaySettingsW.Call(
		uintptr(unsafe.Pointer(&deviceName[0])),
		uintptr(enumCurrentSettings),
		uintptr(unsafe.Pointer(&dm)),
	)
	if ret == 0 {
		return 0
	}
	return float64(dm.DisplayFrequency)
}

// displayBounds resolves the virtual-desktop rect for displayID, used by
// the DXGI tier to size its staging image before a frame is acquired.
func displayBounds(displayID int) (Rect, error) {
	displays, err := enumerateWindowsDisplays()
	if err != nil {
		return Rect{}, err
	}
	if displayID < 0 || displayID >= len(displays) {
		return Rect{}, fmt.Errorf("display id %d out of range (%d displays)", displayID, len(displays))
	}
	return displays[displayID].Bounds, nil
}

// knownCaptureOccupants enumerates running processes and reports which
// known screen-capture/remote-desktop tools are active, used by the
// DXGI tier's access-denied diagnostics without ever blocking capture.
func knownCaptureOccupants() []string {
	knownNames := map[string]bool{
		"teamviewer.exe":    true,
		"anydesk.exe":       true,
		"zoom.exe":          true,
		"msteams.exe":       true,
		"obs64.exe":         true,
		"discord.exe":       true,
		"rustdesk.exe":      true,
		"mstsc.exe":         true,
	}

	procs, err := process.Processes()
	if err != nil {
		return nil
	}

	var found []string
	for _, p := range procs {
		name, err := p.Name()
		if err != nil {
			continue
		}
		if knownNames[lowerASCII(name)] {
			found = append(found, name)
		}
	}
	return found
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 32
		}
	}
	return string(b)
}
