package util

import (
	"errors"
	"strings"
	"unicode"
)

const maxFileNameRunes = 200

// ErrInvalidFileName is returned when nothing usable remains of a file name.
var ErrInvalidFileName = errors.New("invalid file name")

// SanitizeFileName reduces a client-supplied name to a single safe path
// segment: directories are dropped, separators and control characters are
// replaced, and the "." and ".." segments are rejected.
func SanitizeFileName(name string) (string, error) {
	s := strings.TrimSpace(name)
	if i := strings.LastIndexAny(s, `/\`); i >= 0 {
		s = s[i+1:]
	}
	if s == "" || s == "." || s == ".." {
		return "", ErrInvalidFileName
	}

	var b strings.Builder
	n := 0
	for _, r := range s {
		if n >= maxFileNameRunes {
			break
		}
		switch {
		case unicode.IsControl(r):
			b.WriteRune('_')
		case r == ':' || r == '*' || r == '?' || r == '"' || r == '<' || r == '>' || r == '|':
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
		n++
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", ErrInvalidFileName
	}
	return out, nil
}

// HasExtension reports whether name ends in ext, ignoring case.
func HasExtension(name, ext string) bool {
	return strings.HasSuffix(strings.ToLower(name), strings.ToLower(ext))
}
