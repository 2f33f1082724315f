package format

import (
	"strconv"
	"strings"
)

const imageTokenPrefix = NameImage + "_"

// Token is a parsed fileType request value.
type Token struct {
	Raw    string
	Format string
	Params *Params
}

// IsOriginal reports whether the token asks for the unmodified file.
func (t Token) IsOriginal() bool { return t.Format == NameFile }

// ParseToken reads `file`, `image`, `image_<w>`, `image_<w>_<h>` or a registered
// format name. Anything else is the original file.
func ParseToken(raw string, known func(name string) bool) Token {
	t := Token{Raw: raw, Format: NameFile}

	if strings.HasPrefix(raw, imageTokenPrefix) {
		if p, ok := parseSize(strings.TrimPrefix(raw, imageTokenPrefix)); ok {
			t.Format = NameImage
			t.Params = p
		}
		return t
	}

	if raw != "" && known != nil && known(raw) {
		t.Format = raw
	}

	return t
}

func parseSize(s string) (*Params, bool) {
	parts := strings.Split(s, "_")
	if len(parts) > 2 {
		return nil, false
	}

	w, err := strconv.Atoi(parts[0])
	if err != nil || w <= 0 {
		return nil, false
	}
	h := w
	if len(parts) == 2 {
		h, err = strconv.Atoi(parts[1])
		if err != nil || h <= 0 {
			return nil, false
		}
	}

	return &Params{Width: w, Height: h}, true
}
