package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"file-upload-api/internal/domain/format"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestResize(t *testing.T) {
	src := pngBytes(t, 200, 100)

	tests := []struct {
		name         string
		spec         format.Spec
		wantW, wantH int
	}{
		{name: "outbound crops", spec: format.Spec{Width: 50, Height: 50, Mode: format.ModeOutbound}, wantW: 50, wantH: 50},
		{name: "default mode is outbound", spec: format.Spec{Width: 40, Height: 40}, wantW: 40, wantH: 40},
		{name: "inbound fits", spec: format.Spec{Width: 50, Height: 50, Mode: format.ModeInbound}, wantW: 50, wantH: 25},
		{name: "exact stretches", spec: format.Spec{Width: 30, Height: 60, Mode: format.ModeExact}, wantW: 30, wantH: 60},
		{name: "height keeps ratio", spec: format.Spec{Width: 100}, wantW: 100, wantH: 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fm, err := NewResize(tt.spec)
			require.NoError(t, err)

			out, err := fm.Apply(src)
			require.NoError(t, err)

			cfg, name, err := image.DecodeConfig(bytes.NewReader(out))
			require.NoError(t, err)
			assert.Equal(t, "png", name)
			assert.Equal(t, tt.wantW, cfg.Width)
			assert.Equal(t, tt.wantH, cfg.Height)
		})
	}
}

func TestResize_NoSizeReturnsOriginal(t *testing.T) {
	src := pngBytes(t, 10, 10)
	fm, err := NewResize(format.Spec{})
	require.NoError(t, err)

	out, err := fm.Apply(src)
	require.NoError(t, err)
	assert.Equal(t, src, out)
}

func TestResize_KeepsJPEG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 64, 64)), nil))

	fm, err := NewResize(format.Spec{Width: 16, Height: 16, Quality: 70})
	require.NoError(t, err)
	out, err := fm.Apply(buf.Bytes())
	require.NoError(t, err)

	_, name, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", name)
}

func TestResize_NotAnImage(t *testing.T) {
	fm, err := NewResize(format.Spec{Width: 10, Height: 10})
	require.NoError(t, err)

	_, err = fm.Apply([]byte("plain text"))
	assert.ErrorIs(t, err, format.ErrUnsupportedContent)
}

func TestWatermark(t *testing.T) {
	mark := filepath.Join(t.TempDir(), "mark.png")
	require.NoError(t, os.WriteFile(mark, pngBytes(t, 8, 8), 0o600))

	fm, err := NewWatermark(format.Spec{Kind: format.KindWatermark, Watermark: mark, Opacity: 0.5, Width: 32, Height: 32})
	require.NoError(t, err)

	out, err := fm.Apply(pngBytes(t, 64, 64))
	require.NoError(t, err)

	cfg, _, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.Width)
	assert.Equal(t, 32, cfg.Height)

	_, err = fm.Apply([]byte("nope"))
	assert.ErrorIs(t, err, format.ErrUnsupportedContent)
}

func TestWatermark_MissingOverlay(t *testing.T) {
	_, err := NewWatermark(format.Spec{Watermark: filepath.Join(t.TempDir(), "missing.png")})
	assert.Error(t, err)
}

func TestFactories(t *testing.T) {
	f := Factories()
	assert.Contains(t, f, format.KindResize)
	assert.Contains(t, f, format.KindWatermark)
}
