package alias

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"file-upload-api/internal/domain/file"
)

const (
	DefaultContentPath = "{alias}/{hash2}/{hash}{ext}"
	DefaultCachePath   = "{alias}/{id}/{format}-{version}{ext}"
)

var placeholderRe = regexp.MustCompile(`\{[^{}]*\}`)

var (
	contentPlaceholders = map[string]struct{}{
		"{alias}": {}, "{id}": {}, "{hash}": {}, "{hash2}": {}, "{ext}": {},
	}
	cachePlaceholders = map[string]struct{}{
		"{alias}": {}, "{id}": {}, "{hash}": {}, "{hash2}": {}, "{ext}": {}, "{format}": {}, "{version}": {},
	}
)

// Policy is the storage and format policy of one alias.
type Policy struct {
	Name string
	// Owner names the entity the files are attached to, resolved by the owner lookup.
	Owner string
	// MaxCount is nil for unlimited attachments.
	MaxCount   *int
	Formatters []string

	ContentPath string
	CachePath   string
}

// ContentKey resolves the key of the original bytes of f.
func (p Policy) ContentKey(f *file.File) string {
	return expand(p.ContentPath, p.Name, f, "", "")
}

// CacheKey resolves the key of the derived asset of f for a format and its fingerprint.
func (p Policy) CacheKey(f *file.File, format, version string) string {
	return expand(p.CachePath, p.Name, f, format, version)
}

func (p Policy) validate() error {
	if p.Name == "" {
		return fmt.Errorf("alias name is required")
	}
	if strings.ContainsAny(p.Name, "/\\?# ") {
		return fmt.Errorf("alias %q: name must be a single url segment", p.Name)
	}
	if err := checkTemplate(p.ContentPath, contentPlaceholders); err != nil {
		return fmt.Errorf("alias %q content path: %w", p.Name, err)
	}
	if err := checkTemplate(p.CachePath, cachePlaceholders); err != nil {
		return fmt.Errorf("alias %q cache path: %w", p.Name, err)
	}
	if !strings.Contains(p.CachePath, "{id}") && !strings.Contains(p.CachePath, "{hash}") {
		return fmt.Errorf("alias %q cache path must contain {id} or {hash}", p.Name)
	}
	if !strings.Contains(p.CachePath, "{format}") {
		return fmt.Errorf("alias %q cache path must contain {format}", p.Name)
	}
	if !strings.Contains(p.ContentPath, "{id}") && !strings.Contains(p.ContentPath, "{hash}") {
		return fmt.Errorf("alias %q content path must contain {id} or {hash}", p.Name)
	}
	if p.MaxCount != nil && *p.MaxCount < 0 {
		return fmt.Errorf("alias %q: negative max count", p.Name)
	}
	return nil
}

func checkTemplate(tpl string, allowed map[string]struct{}) error {
	if tpl == "" {
		return fmt.Errorf("template is empty")
	}
	if strings.HasPrefix(tpl, "/") || strings.Contains(tpl, "..") {
		return fmt.Errorf("template %q must be a relative path", tpl)
	}
	for _, ph := range placeholderRe.FindAllString(tpl, -1) {
		if _, ok := allowed[ph]; !ok {
			return fmt.Errorf("unknown placeholder %s", ph)
		}
	}
	return nil
}

func expand(tpl, aliasName string, f *file.File, format, version string) string {
	hash2 := f.Hash
	if len(hash2) > 2 {
		hash2 = hash2[:2]
	}

	r := strings.NewReplacer(
		"{alias}", aliasName,
		"{id}", strconv.FormatInt(f.ID, 10),
		"{hash}", f.Hash,
		"{hash2}", hash2,
		"{ext}", f.Ext(),
		"{format}", format,
		"{version}", version,
	)

	return r.Replace(tpl)
}
