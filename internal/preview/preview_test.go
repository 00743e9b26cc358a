package preview

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"golang.org/x/image/tiff"
)

func encodeTIFF(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := tiff.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode tiff: %v", err)
	}
	return buf.Bytes()
}

func decodeDataURI(t *testing.T, uri string) image.Image {
	t.Helper()
	const prefix = "data:image/png;base64,"
	if !strings.HasPrefix(uri, prefix) {
		t.Fatalf("preview is not a PNG data URI: %.40s", uri)
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, prefix))
	if err != nil {
		t.Fatalf("decode base64: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("decode preview png: %v", err)
	}
	return img
}

func TestGenerateProducesBoundedDataURI(t *testing.T) {
	t.Parallel()

	uri, err := Generate(encodeTIFF(t, 2000, 2000))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	thumb := decodeDataURI(t, uri)
	if w := thumb.Bounds().Dx(); w > MaxDimension {
		t.Fatalf("width %d exceeds %d", w, MaxDimension)
	}
	if h := thumb.Bounds().Dy(); h > MaxDimension {
		t.Fatalf("height %d exceeds %d", h, MaxDimension)
	}
}

func TestGeneratePreservesAspectRatio(t *testing.T) {
	t.Parallel()

	uri, err := Generate(encodeTIFF(t, 1000, 500))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	thumb := decodeDataURI(t, uri)
	if thumb.Bounds().Dx() != 400 || thumb.Bounds().Dy() != 200 {
		t.Fatalf("want 400x200, got %dx%d", thumb.Bounds().Dx(), thumb.Bounds().Dy())
	}
}

func TestGenerateKeepsSmallImagesUnscaled(t *testing.T) {
	t.Parallel()

	uri, err := Generate(encodeTIFF(t, 120, 80))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	thumb := decodeDataURI(t, uri)
	if thumb.Bounds().Dx() != 120 || thumb.Bounds().Dy() != 80 {
		t.Fatalf("small image should not be resized, got %dx%d", thumb.Bounds().Dx(), thumb.Bounds().Dy())
	}
}

func TestGenerateNormalizesGrayscale(t *testing.T) {
	t.Parallel()

	gray := image.NewGray(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			gray.SetGray(x, y, color.Gray{Y: uint8(x * 4)})
		}
	}
	var buf bytes.Buffer
	if err := tiff.Encode(&buf, gray, nil); err != nil {
		t.Fatalf("encode tiff: %v", err)
	}

	uri, err := Generate(buf.Bytes())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	decodeDataURI(t, uri)
}

func TestGenerateRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := Generate([]byte("definitely not an image"))
	if err == nil {
		t.Fatal("Generate should fail on non-image bytes")
	}
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("want DecodeError, got %T: %v", err, err)
	}
}

func TestDecodeReadsPNG(t *testing.T) {
	t.Parallel()

	src := image.NewRGBA(image.Rect(0, 0, 10, 10))
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	img, err := Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if img.Bounds().Dx() != 10 {
		t.Fatalf("decoded wrong image: %v", img.Bounds())
	}
}
