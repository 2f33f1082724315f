package file

import (
	"path"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

var (
	nameWrongCharsRe = regexp.MustCompile(`[^A-Za-z0-9\p{L}\s]+`)
	nameDashesRe     = regexp.MustCompile(`-+`)
	nameSpacesRe     = regexp.MustCompile(`\s+`)
	extensionRe      = regexp.MustCompile(`^[\p{L}0-9]+$`)
)

// SanitizeName cleans a display name: runs of unsupported characters become a single
// hyphen, whitespace collapses to one space, the result is trimmed and cut to
// MaxNameLength runes. An empty result falls back to DefaultName.
func SanitizeName(name string) string {
	s := norm.NFC.String(name)
	s = nameWrongCharsRe.ReplaceAllString(s, "-")
	s = nameDashesRe.ReplaceAllString(s, "-")
	s = nameSpacesRe.ReplaceAllString(s, " ")
	s = strings.Trim(s, " -")

	if utf8.RuneCountInString(s) > MaxNameLength {
		s = string([]rune(s)[:MaxNameLength])
	}
	if s == "" {
		return DefaultName
	}

	return s
}

// SplitName splits an uploaded file name into a sanitized base name and a lower-case
// extension without the dot. Directory parts are dropped.
func SplitName(original string) (string, *string) {
	s := strings.TrimSpace(strings.ReplaceAll(original, "\\", "/"))
	s = path.Base(s)
	if s == "." || s == "/" {
		s = ""
	}

	ext := path.Ext(s)
	base := strings.TrimSuffix(s, ext)
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if base == "" && ext != "" {
		// ".htaccess" style names have no extension
		base, ext = "."+ext, ""
	}

	if ext != "" && (!extensionRe.MatchString(ext) || utf8.RuneCountInString(ext) > MaxExtensionLength) {
		base, ext = base+"."+ext, ""
	}

	var extPtr *string
	if ext != "" {
		extPtr = &ext
	}

	return SanitizeName(base), extPtr
}
