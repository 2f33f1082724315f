package alias

import (
	"errors"
	"fmt"
	"sort"

	"file-upload-api/internal/domain/format"
)

var ErrUnknownAlias = errors.New("unknown alias")

// Registry holds alias policies. It is built once at startup and never mutated.
type Registry struct {
	policies map[string]Policy
}

// NewRegistry validates every policy against the known formats. Empty path
// templates get the defaults.
func NewRegistry(policies []Policy, formats *format.Registry) (*Registry, error) {
	r := &Registry{policies: make(map[string]Policy, len(policies))}

	for _, p := range policies {
		if p.ContentPath == "" {
			p.ContentPath = DefaultContentPath
		}
		if p.CachePath == "" {
			p.CachePath = DefaultCachePath
		}
		if err := p.validate(); err != nil {
			return nil, err
		}
		if _, dup := r.policies[p.Name]; dup {
			return nil, fmt.Errorf("alias %q is defined twice", p.Name)
		}
		for _, name := range p.Formatters {
			if formats == nil || !formats.Has(name) {
				return nil, fmt.Errorf("alias %q: %w %q", p.Name, format.ErrUnknownFormat, name)
			}
		}
		p.Formatters = append([]string(nil), p.Formatters...)
		r.policies[p.Name] = p
	}

	return r, nil
}

func (r *Registry) Resolve(name string) (Policy, error) {
	p, ok := r.policies[name]
	if !ok {
		return Policy{}, fmt.Errorf("%w: %q", ErrUnknownAlias, name)
	}
	return p, nil
}

// FormattersFor lists the format names usable with the alias, builtin ones included.
func (r *Registry) FormattersFor(name string) ([]string, error) {
	p, err := r.Resolve(name)
	if err != nil {
		return nil, err
	}

	set := map[string]struct{}{format.NameFile: {}, format.NameImage: {}}
	for _, f := range p.Formatters {
		set[f] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	sort.Strings(out)

	return out, nil
}

func (r *Registry) Permits(aliasName, formatName string) bool {
	if formatName == format.NameFile || formatName == format.NameImage {
		_, ok := r.policies[aliasName]
		return ok
	}
	p, ok := r.policies[aliasName]
	if !ok {
		return false
	}
	for _, f := range p.Formatters {
		if f == formatName {
			return true
		}
	}
	return false
}

func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.policies))
	for n := range r.policies {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
