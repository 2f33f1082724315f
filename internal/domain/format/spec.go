package format

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"

	"file-upload-api/internal/domain/file"
)

var (
	ErrUnknownFormat      = errors.New("unknown format")
	ErrUnsupportedContent = errors.New("unsupported content")
)

const (
	NameFile  = "file"
	NameImage = "image"
)

type (
	Kind string
	Mode string

	Spec struct {
		Name   string
		Kind   Kind
		Target file.Type

		Width   int
		Height  int
		Mode    Mode
		Quality int

		Watermark string
		Opacity   float64

		// Version is folded into the cache key, bump it to drop old derived assets.
		Version string
	}

	// Params override the size parameters of a Spec for one request.
	Params struct {
		Width  int
		Height int
		Mode   Mode
	}

	Formatter interface {
		Apply(content []byte) ([]byte, error)
	}
	FormatterFunc func(content []byte) ([]byte, error)

	Factory func(spec Spec) (Formatter, error)
)

const (
	KindOriginal  Kind = "original"
	KindResize    Kind = "resize"
	KindWatermark Kind = "watermark"

	ModeOutbound Mode = "outbound"
	ModeInbound  Mode = "inbound"
	ModeExact    Mode = "exact"
)

func (fn FormatterFunc) Apply(content []byte) ([]byte, error) { return fn(content) }

// With returns a copy of the spec with non-zero override values applied.
func (s Spec) With(p *Params) Spec {
	if p == nil {
		return s
	}
	if p.Width > 0 {
		s.Width = p.Width
	}
	if p.Height > 0 {
		s.Height = p.Height
	}
	if p.Mode != "" {
		s.Mode = p.Mode
	}
	return s
}

// Fingerprint identifies the effective parameter set of a spec.
func (s Spec) Fingerprint() string {
	sum := md5.Sum([]byte(fmt.Sprintf(
		"%s|%s|%d|%d|%d|%s|%d|%s|%g|%s",
		s.Name, s.Kind, s.Target, s.Width, s.Height, s.Mode, s.Quality, s.Watermark, s.Opacity, s.Version,
	)))
	return hex.EncodeToString(sum[:])[:8]
}

func (s Spec) Validate() error {
	if s.Name == "" {
		return errors.New("format name is required")
	}
	if s.Kind == "" {
		return fmt.Errorf("format %q: kind is required", s.Name)
	}
	if s.Width < 0 || s.Height < 0 {
		return fmt.Errorf("format %q: negative size", s.Name)
	}
	switch s.Mode {
	case "", ModeOutbound, ModeInbound, ModeExact:
	default:
		return fmt.Errorf("format %q: unknown mode %q", s.Name, s.Mode)
	}
	if s.Quality < 0 || s.Quality > 100 {
		return fmt.Errorf("format %q: quality must be within 0..100", s.Name)
	}
	if s.Kind == KindWatermark && s.Watermark == "" {
		return fmt.Errorf("format %q: watermark image is required", s.Name)
	}
	return nil
}

// Original passes the content through untouched.
func Original(Spec) (Formatter, error) {
	return FormatterFunc(func(content []byte) ([]byte, error) { return content, nil }), nil
}
