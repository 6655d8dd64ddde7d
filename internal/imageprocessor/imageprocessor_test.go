package imageprocessor

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func TestDecodePNG(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 12, 9))
	src.Set(3, 4, color.RGBA{R: 200, A: 255})

	img, mimeType, err := Decode(encodePNG(t, src))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mimeType != "image/png" {
		t.Fatalf("expected image/png, got %s", mimeType)
	}
	if img.Bounds().Dx() != 12 || img.Bounds().Dy() != 9 {
		t.Fatalf("unexpected bounds %v", img.Bounds())
	}
}

func TestDecodeJPEG(t *testing.T) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, 16, 16)), nil); err != nil {
		t.Fatalf("failed to encode jpeg: %v", err)
	}
	_, mimeType, err := Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mimeType != "image/jpeg" {
		t.Fatalf("expected image/jpeg, got %s", mimeType)
	}
}

func TestDecodeRejectsEmptyPayload(t *testing.T) {
	if _, _, err := Decode(nil); !errors.Is(err, ErrEmptyPayload) {
		t.Fatalf("expected ErrEmptyPayload, got %v", err)
	}
}

func TestDecodeRejectsNonImage(t *testing.T) {
	if _, _, err := Decode([]byte("definitely not an image")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestDecodeRejectsTruncatedImage(t *testing.T) {
	data := encodePNG(t, image.NewRGBA(image.Rect(0, 0, 32, 32)))
	_, _, err := Decode(data[:len(data)/2])
	if err == nil {
		t.Fatal("expected error for truncated png")
	}
	if errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("truncated png should still sniff as png, got %v", err)
	}
}

func TestResizeIgnoresAspectRatio(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 640, 120))
	dst := Resize(src, 300, 300)
	if dst.Rect.Dx() != 300 || dst.Rect.Dy() != 300 {
		t.Fatalf("expected 300x300, got %v", dst.Rect.Size())
	}
}

func TestResizeKeepsSolidColour(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 50, 20))
	fill := color.RGBA{R: 10, G: 120, B: 240, A: 255}
	for y := 0; y < 20; y++ {
		for x := 0; x < 50; x++ {
			src.SetRGBA(x, y, fill)
		}
	}
	dst := Resize(src, 30, 30)
	if got := dst.RGBAAt(15, 15); got != fill {
		t.Fatalf("expected %v, got %v", fill, got)
	}
}

// headerOnlyPNG builds a PNG whose IHDR declares w x h RGBA pixels but whose
// IDAT chunk is empty.
func headerOnlyPNG(w, h uint32) []byte {
	var buf bytes.Buffer
	buf.Write([]byte("\x89PNG\r\n\x1a\n"))
	chunk := func(kind string, data []byte) {
		_ = binary.Write(&buf, binary.BigEndian, uint32(len(data)))
		buf.WriteString(kind)
		buf.Write(data)
		crc := crc32.NewIEEE()
		crc.Write([]byte(kind))
		crc.Write(data)
		_ = binary.Write(&buf, binary.BigEndian, crc.Sum32())
	}
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:], w)
	binary.BigEndian.PutUint32(ihdr[4:], h)
	ihdr[8] = 8 // bit depth
	ihdr[9] = 6 // RGBA
	chunk("IHDR", ihdr)
	chunk("IDAT", nil)
	chunk("IEND", nil)
	return buf.Bytes()
}

func TestDecodeRejectsHugeDeclaredDimensions(t *testing.T) {
	_, mimeType, err := Decode(headerOnlyPNG(50000, 50000))
	if !errors.Is(err, ErrTooManyPixels) {
		t.Fatalf("expected ErrTooManyPixels, got %v", err)
	}
	if mimeType != "image/png" {
		t.Fatalf("expected image/png, got %s", mimeType)
	}
}

func TestResizeDropsAlphaAndKeepsStraightColour(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 20, 20))
	fill := color.NRGBA{R: 200, G: 40, B: 90, A: 0}
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			src.SetNRGBA(x, y, fill)
		}
	}
	dst := Resize(src, 10, 10)
	want := color.RGBA{R: 200, G: 40, B: 90, A: 255}
	if got := dst.RGBAAt(5, 5); got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestResizeKeepsColourOfTransparentPaletteEntries(t *testing.T) {
	palette := color.Palette{color.NRGBA{R: 10, G: 220, B: 30, A: 0}}
	src := image.NewPaletted(image.Rect(0, 0, 8, 8), palette)
	dst := Resize(src, 4, 4)
	want := color.RGBA{R: 10, G: 220, B: 30, A: 255}
	if got := dst.RGBAAt(2, 2); got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
