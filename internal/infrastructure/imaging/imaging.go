package imaging

import (
	"bytes"
	"fmt"
	"image"

	imglib "github.com/disintegration/imaging"

	"file-upload-api/internal/domain/format"
)

const defaultQuality = 90

// Factories are the image formatter kinds, ready for format.NewRegistry.
func Factories() map[format.Kind]format.Factory {
	return map[format.Kind]format.Factory{
		format.KindResize:    NewResize,
		format.KindWatermark: NewWatermark,
	}
}

type resize struct {
	spec format.Spec
}

func NewResize(spec format.Spec) (format.Formatter, error) {
	return &resize{spec: spec}, nil
}

func (r *resize) Apply(content []byte) ([]byte, error) {
	if r.spec.Width == 0 && r.spec.Height == 0 {
		return content, nil
	}

	src, f, err := decode(content)
	if err != nil {
		return nil, err
	}

	return encode(scale(src, r.spec), f, r.spec.Quality)
}

type watermark struct {
	spec    format.Spec
	overlay image.Image
}

// NewWatermark loads the overlay once, every Apply reuses it.
func NewWatermark(spec format.Spec) (format.Formatter, error) {
	overlay, err := imglib.Open(spec.Watermark)
	if err != nil {
		return nil, fmt.Errorf("open watermark %s: %w", spec.Watermark, err)
	}
	return &watermark{spec: spec, overlay: overlay}, nil
}

func (w *watermark) Apply(content []byte) ([]byte, error) {
	src, f, err := decode(content)
	if err != nil {
		return nil, err
	}

	base := src
	if w.spec.Width > 0 || w.spec.Height > 0 {
		base = scale(src, w.spec)
	}

	opacity := w.spec.Opacity
	if opacity <= 0 || opacity > 1 {
		opacity = 1
	}

	b, o := base.Bounds(), w.overlay.Bounds()
	pos := image.Pt(b.Max.X-o.Dx(), b.Max.Y-o.Dy())
	if pos.X < b.Min.X {
		pos.X = b.Min.X
	}
	if pos.Y < b.Min.Y {
		pos.Y = b.Min.Y
	}

	return encode(imglib.Overlay(base, w.overlay, pos, opacity), f, w.spec.Quality)
}

func scale(src image.Image, s format.Spec) image.Image {
	if s.Width == 0 || s.Height == 0 {
		return imglib.Resize(src, s.Width, s.Height, imglib.Lanczos)
	}

	switch s.Mode {
	case format.ModeInbound:
		return imglib.Fit(src, s.Width, s.Height, imglib.Lanczos)
	case format.ModeExact:
		return imglib.Resize(src, s.Width, s.Height, imglib.Lanczos)
	default:
		return imglib.Fill(src, s.Width, s.Height, imglib.Center, imglib.Lanczos)
	}
}

// decode keeps the source encoding so the derived asset has the same type as the original.
func decode(content []byte) (image.Image, imglib.Format, error) {
	_, name, err := image.DecodeConfig(bytes.NewReader(content))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", format.ErrUnsupportedContent, err)
	}
	f, err := imglib.FormatFromExtension(name)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", format.ErrUnsupportedContent, err)
	}

	img, err := imglib.Decode(bytes.NewReader(content), imglib.AutoOrientation(true))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", format.ErrUnsupportedContent, err)
	}

	return img, f, nil
}

func encode(img image.Image, f imglib.Format, quality int) ([]byte, error) {
	if quality <= 0 {
		quality = defaultQuality
	}

	var buf bytes.Buffer
	if err := imglib.Encode(&buf, img, f, imglib.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("encode %s: %w", f, err)
	}
	return buf.Bytes(), nil
}
