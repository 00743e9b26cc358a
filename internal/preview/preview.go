package preview

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/draw"
	"image/png"

	xdraw "golang.org/x/image/draw"

	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// MaxDimension bounds both sides of a generated preview.
const MaxDimension = 400

// DecodeError wraps any failure to decode uploaded bytes as an image.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode image: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decode parses raw upload bytes into a single raster frame. TIFF, PNG, JPEG,
// GIF and BMP are registered.
func Decode(raw []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	return img, nil
}

// Generate produces an embeddable preview for raw image bytes: decode,
// normalize to RGB, downsample so neither side exceeds MaxDimension, encode
// as PNG and wrap in a data URI. Nothing touches disk.
func Generate(raw []byte) (string, error) {
	img, err := Decode(raw)
	if err != nil {
		return "", err
	}
	return FromImage(img)
}

// FromImage is Generate for an already-decoded frame, so callers that decode
// once for inference can reuse the same pixels here.
func FromImage(img image.Image) (string, error) {
	thumb := downsample(normalizeRGB(img))

	var buf bytes.Buffer
	if err := png.Encode(&buf, thumb); err != nil {
		return "", fmt.Errorf("encode preview: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// normalizeRGB flattens any color model (gray, paletted, CMYK, 16-bit TIFF)
// onto an opaque RGBA canvas.
func normalizeRGB(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

func downsample(img *image.RGBA) *image.RGBA {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	if w <= MaxDimension && h <= MaxDimension {
		return img
	}

	scale := float64(MaxDimension) / float64(w)
	if h > w {
		scale = float64(MaxDimension) / float64(h)
	}
	nw := int(float64(w) * scale)
	nh := int(float64(h) * scale)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	return dst
}
