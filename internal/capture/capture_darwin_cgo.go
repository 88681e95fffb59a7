//go:build darwin

package capture

/*
#cgo darwin LDFLAGS: -framework CoreGraphics -framework CoreFoundation
#include <CoreGraphics/CoreGraphics.h>
#include <stdlib.h>

// copyImagePixelsBGRA renders a CGImage into a CPU-addressable BGRA
// context and hands back the raw pixel buffer plus its dimensions. The
// caller owns the returned buffer and must free() it.
static unsigned char* copyImagePixelsBGRA(CGImageRef image, size_t* outWidth, size_t* outHeight) {
    if (image == NULL) {
        return NULL;
    }
    size_t width = CGImageGetWidth(image);
    size_t height = CGImageGetHeight(image);
    if (width == 0 || height == 0) {
        return NULL;
    }

    size_t bytesPerRow = width * 4;
    unsigned char* buf = (unsigned char*)calloc(height, bytesPerRow);
    if (buf == NULL) {
        return NULL;
    }

    CGColorSpaceRef colorSpace = CGColorSpaceCreateDeviceRGB();
    CGContextRef ctx = CGBitmapContextCreate(buf, width, height, 8, bytesPerRow,
        colorSpace, kCGImageAlphaPremultipliedFirst | kCGBitmapByteOrder32Little);
    CGColorSpaceRelease(colorSpace);
    if (ctx == NULL) {
        free(buf);
        return NULL;
    }

    CGContextDrawImage(ctx, CGRectMake(0, 0, width, height), image);
    CGContextRelease(ctx);

    *outWidth = width;
    *outHeight = height;
    return buf;
}

static CGImageRef captureFullScreenImage(CGDirectDisplayID displayID) {
    return CGDisplayCreateImage(displayID);
}

static CGImageRef captureRegionImage(CGDirectDisplayID displayID, int x, int y, int w, int h) {
    CGRect rect = CGRectMake((CGFloat)x, (CGFloat)y, (CGFloat)w, (CGFloat)h);
    return CGDisplayCreateImageForRect(displayID, rect);
}

static CGImageRef captureWindowImage(unsigned int windowID) {
    return CGWindowListCreateImage(CGRectNull, kCGWindowListOptionIncludingWindow,
        (CGWindowID)windowID, kCGWindowImageBoundsIgnoreFraming);
}
*/
import "C"

import (
	"unsafe"

	"github.com/corvid-labs/deskwatch/internal/frame"
)

// checkScreenRecordingPermission reports the current TCC authorization
// state without prompting the user.
func checkScreenRecordingPermission() bool {
	return C.CGPreflightScreenCaptureAccess() != 0
}

// requestScreenRecordingPermission triggers the system permission dialog
// if not already granted/denied.
func requestScreenRecordingPermission() bool {
	return C.CGRequestScreenCaptureAccess() != 0
}

func cgImageToBGRFrame(img C.CGImageRef) (frame.Frame, error) {
	if img == 0 {
		return frame.Frame{}, newErr(KindResource, "cgimage", "CGImage capture returned nil", nil)
	}
	defer C.CGImageRelease(img)

	var w, h C.size_t
	buf := C.copyImagePixelsBGRA(img, &w, &h)
	if buf == nil {
		return frame.Frame{}, newErr(KindResource, "cgimage", "failed to render CGImage into BGRA context", nil)
	}
	defer C.free(unsafe.Pointer(buf))

	width, height := int(w), int(h)
	size := width * height * 4
	pix := C.GoBytes(unsafe.Pointer(buf), C.int(size))

	bgra := frame.Frame{Width: width, Height: height, Format: frame.BGRA32, Pix: pix}
	return frame.Convert(bgra, frame.BGR24)
}

func cgCaptureFullScreen(displayID C.CGDirectDisplayID) (frame.Frame, error) {
	img := C.captureFullScreenImage(displayID)
	return cgImageToBGRFrame(img)
}

func cgCaptureRegion(displayID C.CGDirectDisplayID, x, y, w, h int) (frame.Frame, error) {
	img := C.captureRegionImage(displayID, C.int(x), C.int(y), C.int(w), C.int(h))
	return cgImageToBGRFrame(img)
}

func cgCaptureWindow(windowID uint32) (frame.Frame, error) {
	img := C.captureWindowImage(C.uint(windowID))
	return cgImageToBGRFrame(img)
}

func cgActiveDisplayList() []C.CGDirectDisplayID {
	var count C.uint32_t
	C.CGGetActiveDisplayList(0, nil, &count)
	if count == 0 {
		return nil
	}
	ids := make([]C.CGDirectDisplayID, int(count))
	C.CGGetActiveDisplayList(count, (*C.CGDirectDisplayID)(unsafe.Pointer(&ids[0])), &count)
	return ids[:count]
}

func cgDisplayBounds(displayID C.CGDirectDisplayID) Rect {
	r := C.CGDisplayBounds(displayID)
	return Rect{X: int(r.origin.x), Y: int(r.origin.y), W: int(r.size.width), H: int(r.size.height)}
}

func cgMainDisplayID() C.CGDirectDisplayID {
	return C.CGMainDisplayID()
}
