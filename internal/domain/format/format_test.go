package format

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"file-upload-api/internal/domain/file"
)

func upper(Spec) (Formatter, error) {
	return FormatterFunc(func(b []byte) ([]byte, error) {
		out := make([]byte, len(b))
		for i, c := range b {
			if c >= 'a' && c <= 'z' {
				c -= 'a' - 'A'
			}
			out[i] = c
		}
		return out, nil
	}), nil
}

func TestParseToken(t *testing.T) {
	known := func(name string) bool { return name == "thumb" || name == NameImage || name == NameFile }

	tests := []struct {
		raw        string
		wantFormat string
		wantParams *Params
	}{
		{"file", NameFile, nil},
		{"image", NameImage, nil},
		{"image_100", NameImage, &Params{Width: 100, Height: 100}},
		{"image_100_50", NameImage, &Params{Width: 100, Height: 50}},
		{"image_abc", NameFile, nil},
		{"image_0", NameFile, nil},
		{"image_10_20_30", NameFile, nil},
		{"image_", NameFile, nil},
		{"thumb", "thumb", nil},
		{"unknown", NameFile, nil},
		{"", NameFile, nil},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.raw, func(t *testing.T) {
			got := ParseToken(tt.raw, known)
			assert.Equal(t, tt.raw, got.Raw)
			assert.Equal(t, tt.wantFormat, got.Format)
			assert.Equal(t, tt.wantParams, got.Params)
		})
	}
}

func TestSpec_Fingerprint(t *testing.T) {
	base := Spec{Name: "thumb", Kind: KindResize, Target: file.TypeImage, Width: 100, Height: 100, Mode: ModeOutbound}

	assert.Len(t, base.Fingerprint(), 8)
	assert.Equal(t, base.Fingerprint(), base.Fingerprint())

	wider := base.With(&Params{Width: 200})
	assert.NotEqual(t, base.Fingerprint(), wider.Fingerprint())

	bumped := base
	bumped.Version = "v2"
	assert.NotEqual(t, base.Fingerprint(), bumped.Fingerprint())

	assert.Equal(t, base, base.With(nil))
	assert.Equal(t, base, base.With(&Params{}))
}

func TestSpec_Validate(t *testing.T) {
	tests := []struct {
		name    string
		spec    Spec
		wantErr bool
	}{
		{"ok", Spec{Name: "a", Kind: KindResize, Width: 10, Mode: ModeInbound}, false},
		{"no name", Spec{Kind: KindResize}, true},
		{"no kind", Spec{Name: "a"}, true},
		{"negative", Spec{Name: "a", Kind: KindResize, Width: -1}, true},
		{"bad mode", Spec{Name: "a", Kind: KindResize, Mode: "stretch"}, true},
		{"bad quality", Spec{Name: "a", Kind: KindResize, Quality: 101}, true},
		{"watermark without image", Spec{Name: "a", Kind: KindWatermark}, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNewRegistry(t *testing.T) {
	t.Run("builtin formats are always present", func(t *testing.T) {
		r, err := NewRegistry(nil, map[Kind]Factory{KindResize: upper})
		require.NoError(t, err)
		assert.True(t, r.Has(NameFile))
		assert.True(t, r.Has(NameImage))
	})

	t.Run("duplicate names are rejected", func(t *testing.T) {
		_, err := NewRegistry([]Spec{
			{Name: "x", Kind: KindOriginal},
			{Name: "x", Kind: KindOriginal},
		}, map[Kind]Factory{KindResize: upper})
		require.Error(t, err)
	})

	t.Run("kind without factory is rejected", func(t *testing.T) {
		_, err := NewRegistry(nil, nil)
		require.Error(t, err)
	})
}

func TestRegistry_Build(t *testing.T) {
	r, err := NewRegistry(
		[]Spec{{Name: "shout", Kind: "upper", Target: file.TypeFile, Version: "1"}},
		map[Kind]Factory{KindResize: upper, "upper": upper},
	)
	require.NoError(t, err)

	doc := &file.File{ID: 1, Type: file.TypeFile}
	img := &file.File{ID: 2, Type: file.TypeImage}

	fm, spec, err := r.Build("shout", doc, nil)
	require.NoError(t, err)
	assert.Equal(t, "1", spec.Version)
	out, err := fm.Apply([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, []byte("ABC"), out)

	fm, _, err = r.Build(NameFile, doc, nil)
	require.NoError(t, err)
	out, err = fm.Apply([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), out)

	_, spec, err = r.Build(NameImage, img, &Params{Width: 100, Height: 50})
	require.NoError(t, err)
	assert.Equal(t, 100, spec.Width)
	assert.Equal(t, 50, spec.Height)
	assert.Equal(t, ModeOutbound, spec.Mode)

	_, _, err = r.Build(NameImage, doc, nil)
	assert.True(t, errors.Is(err, ErrUnsupportedContent))

	_, _, err = r.Build("missing", doc, nil)
	assert.True(t, errors.Is(err, ErrUnknownFormat))
}
