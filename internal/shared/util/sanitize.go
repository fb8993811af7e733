package util

import (
	"errors"
	"path"
	"strings"
	"unicode"
)

const maxFileNameRunes = 128

// ErrInvalidFileName rejects names that are empty after cleaning.
var ErrInvalidFileName = errors.New("invalid file name")

// SanitizeFileName keeps only the base name of an uploaded file, drops
// control characters and caps its length. The extension survives truncation.
func SanitizeFileName(name string) (string, error) {
	s := strings.ReplaceAll(strings.TrimSpace(name), "\\", "/")
	s = path.Base(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	s = strings.TrimSpace(s)
	if s == "" || s == "." || s == "/" || s == ".." {
		return "", ErrInvalidFileName
	}

	runes := []rune(s)
	if len(runes) > maxFileNameRunes {
		ext := []rune(path.Ext(s))
		if len(ext) >= maxFileNameRunes {
			ext = nil
		}
		runes = append(runes[:maxFileNameRunes-len(ext)], ext...)
	}
	return string(runes), nil
}
