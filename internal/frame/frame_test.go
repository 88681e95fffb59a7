package frame

import (
	"bytes"
	"image/jpeg"
	"testing"
)

func solidFrame(w, h int, format PixelFormat, fill byte) Frame {
	f := New(w, h, format)
	for i := range f.Pix {
		f.Pix[i] = fill
	}
	return f
}

func TestIsValid(t *testing.T) {
	cases := []struct {
		name  string
		frame Frame
		want  bool
	}{
		{"zero value", Frame{}, false},
		{"valid tight", New(4, 4, BGR24), true},
		{"negative width", Frame{Width: -1, Height: 4, Pix: make([]byte, 100)}, false},
		{"buffer too small", Frame{Width: 4, Height: 4, Format: BGR24, Pix: make([]byte, 2)}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.frame.IsValid(); got != c.want {
				t.Errorf("IsValid() = %v, want %v", got, c.want)
			}
		})
	}
}

func TestConvertBGRRoundTrip(t *testing.T) {
	src := New(2, 2, BGR24)
	for i := 0; i < len(src.Pix); i += 3 {
		src.Pix[i], src.Pix[i+1], src.Pix[i+2] = 10, 20, 30
	}

	rgb, err := Convert(src, RGB24)
	if err != nil {
		t.Fatalf("BGR->RGB: %v", err)
	}
	back, err := Convert(rgb, BGR24)
	if err != nil {
		t.Fatalf("RGB->BGR: %v", err)
	}
	if !bytes.Equal(src.Pix, back.Pix) {
		t.Errorf("BGR->RGB->BGR not identity: got %v, want %v", back.Pix, src.Pix)
	}
}

func TestConvertInvalidFrame(t *testing.T) {
	if _, err := Convert(Frame{}, BGR24); err == nil {
		t.Error("expected error converting an invalid frame")
	}
}

func TestEncodeJPEGRoundTripDimensions(t *testing.T) {
	f := solidFrame(16, 12, BGR24, 128)
	data, err := EncodeJPEG(f, 85)
	if err != nil {
		t.Fatalf("EncodeJPEG: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != f.Width || bounds.Dy() != f.Height {
		t.Errorf("decoded dims = %dx%d, want %dx%d", bounds.Dx(), bounds.Dy(), f.Width, f.Height)
	}
}

func TestEncodeJPEGClampsOutOfRangeQuality(t *testing.T) {
	f := solidFrame(4, 4, BGR24, 50)
	if _, err := EncodeJPEG(f, -5); err != nil {
		t.Errorf("negative quality should be clamped, not rejected: %v", err)
	}
	if _, err := EncodeJPEG(f, 500); err != nil {
		t.Errorf("over-range quality should be clamped, not rejected: %v", err)
	}
}

func TestEncodeJPEGInvalidFrame(t *testing.T) {
	if _, err := EncodeJPEG(Frame{}, 85); err == nil {
		t.Error("expected error encoding an invalid frame")
	}
}

func TestEncodePNGInvalidFrame(t *testing.T) {
	if _, err := EncodePNG(Frame{}, 3); err == nil {
		t.Error("expected error encoding an invalid frame")
	}
}

func TestEncodePNGClampsOutOfRangeLevel(t *testing.T) {
	f := solidFrame(4, 4, BGR24, 50)
	if _, err := EncodePNG(f, -1); err != nil {
		t.Errorf("negative level should be clamped: %v", err)
	}
	if _, err := EncodePNG(f, 42); err != nil {
		t.Errorf("over-range level should be clamped: %v", err)
	}
}

func TestStridePadding(t *testing.T) {
	// 2x2 BGR24 with stride padded to 8 bytes per row (2 bytes of padding).
	f := Frame{
		Width: 2, Height: 2, Format: BGR24, Stride: 8,
		Pix: make([]byte, 16),
	}
	f.Pix[0], f.Pix[1], f.Pix[2] = 1, 2, 3
	f.Pix[3], f.Pix[4], f.Pix[5] = 4, 5, 6
	f.Pix[8], f.Pix[9], f.Pix[10] = 7, 8, 9

	out, err := Convert(f, RGB24)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if out.Stride != 0 {
		t.Errorf("converted frame should be tightly packed, got stride %d", out.Stride)
	}
	if out.Pix[0] != 3 || out.Pix[1] != 2 || out.Pix[2] != 1 {
		t.Errorf("row 0 pixel 0 = %v, want [3 2 1]", out.Pix[0:3])
	}
}
