package format

import (
	"fmt"

	"file-upload-api/internal/domain/file"
)

// Registry maps format names to specs and spec kinds to formatter factories.
// It is read-only after construction.
type Registry struct {
	specs     map[string]Spec
	factories map[Kind]Factory
}

// Builtin returns the formats every alias can use: the untouched original and a
// generic image resize driven by request parameters.
func Builtin() []Spec {
	return []Spec{
		{Name: NameFile, Kind: KindOriginal, Target: file.TypeFile},
		{Name: NameImage, Kind: KindResize, Target: file.TypeImage, Mode: ModeOutbound},
	}
}

func NewRegistry(specs []Spec, factories map[Kind]Factory) (*Registry, error) {
	r := &Registry{
		specs:     make(map[string]Spec, len(specs)+2),
		factories: map[Kind]Factory{KindOriginal: Original},
	}
	for k, f := range factories {
		r.factories[k] = f
	}

	for _, s := range Builtin() {
		r.specs[s.Name] = s
	}

	seen := make(map[string]struct{}, len(specs))
	for _, s := range specs {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[s.Name]; dup {
			return nil, fmt.Errorf("format %q is defined twice", s.Name)
		}
		seen[s.Name] = struct{}{}
		r.specs[s.Name] = s
	}

	for _, s := range r.specs {
		if _, ok := r.factories[s.Kind]; !ok {
			return nil, fmt.Errorf("format %q: no formatter for kind %q", s.Name, s.Kind)
		}
	}

	return r, nil
}

func (r *Registry) Spec(name string) (Spec, bool) {
	s, ok := r.specs[name]
	return s, ok
}

func (r *Registry) Has(name string) bool {
	_, ok := r.specs[name]
	return ok
}

// Build creates the formatter for name with params applied. The record decides
// whether an image-only format can be used at all.
func (r *Registry) Build(name string, f *file.File, params *Params) (Formatter, Spec, error) {
	s, ok := r.specs[name]
	if !ok {
		return nil, Spec{}, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
	s = s.With(params)

	if s.Target == file.TypeImage && f != nil && !f.IsImage() {
		return nil, s, fmt.Errorf("%w: format %q needs an image, file %d is %s", ErrUnsupportedContent, name, f.ID, f.Type)
	}

	fm, err := r.factories[s.Kind](s)
	if err != nil {
		return nil, s, fmt.Errorf("build format %q: %w", name, err)
	}

	return fm, s, nil
}
