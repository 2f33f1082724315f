package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"file-upload-api/internal/domain/alias"
	"file-upload-api/internal/domain/file"
	"file-upload-api/internal/domain/format"
)

type (
	// Policy is the alias and format table read from FILES_POLICY_FILE.
	Policy struct {
		Formats []FormatPolicy `yaml:"formats"`
		Aliases []AliasPolicy  `yaml:"aliases"`
	}
	FormatPolicy struct {
		Name      string  `yaml:"name"`
		Kind      string  `yaml:"kind"`
		Target    string  `yaml:"target"`
		Width     int     `yaml:"width"`
		Height    int     `yaml:"height"`
		Mode      string  `yaml:"mode"`
		Quality   int     `yaml:"quality"`
		Watermark string  `yaml:"watermark"`
		Opacity   float64 `yaml:"opacity"`
		Version   string  `yaml:"version"`
	}
	AliasPolicy struct {
		Name        string   `yaml:"name"`
		Owner       string   `yaml:"owner"`
		MaxCount    *int     `yaml:"max_count"`
		Formatters  []string `yaml:"formatters"`
		ContentPath string   `yaml:"content_path"`
		CachePath   string   `yaml:"cache_path"`
	}
)

func LoadPolicy(path string) (Policy, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read policy file: %w", err)
	}
	return ParsePolicy(b)
}

// ParsePolicy rejects unknown keys so that a typo in the table fails at startup.
func ParsePolicy(b []byte) (Policy, error) {
	var p Policy
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return Policy{}, fmt.Errorf("parse policy: %w", err)
	}
	if len(p.Aliases) == 0 {
		return Policy{}, fmt.Errorf("parse policy: no aliases defined")
	}
	return p, nil
}

// Registries validates the table and builds the format and alias registries.
func (p Policy) Registries(factories map[format.Kind]format.Factory) (*format.Registry, *alias.Registry, error) {
	specs := make([]format.Spec, 0, len(p.Formats))
	for _, f := range p.Formats {
		specs = append(specs, format.Spec{
			Name:      f.Name,
			Kind:      format.Kind(f.Kind),
			Target:    file.ParseType(f.Target),
			Width:     f.Width,
			Height:    f.Height,
			Mode:      format.Mode(f.Mode),
			Quality:   f.Quality,
			Watermark: f.Watermark,
			Opacity:   f.Opacity,
			Version:   f.Version,
		})
	}
	formats, err := format.NewRegistry(specs, factories)
	if err != nil {
		return nil, nil, fmt.Errorf("formats: %w", err)
	}

	policies := make([]alias.Policy, 0, len(p.Aliases))
	for _, a := range p.Aliases {
		policies = append(policies, alias.Policy{
			Name:        a.Name,
			Owner:       a.Owner,
			MaxCount:    a.MaxCount,
			Formatters:  a.Formatters,
			ContentPath: a.ContentPath,
			CachePath:   a.CachePath,
		})
	}
	aliases, err := alias.NewRegistry(policies, formats)
	if err != nil {
		return nil, nil, fmt.Errorf("aliases: %w", err)
	}

	return formats, aliases, nil
}
