package utils

import "strings"

const (
	invalidFilenameChars = `<>:"/\|?*`
	maxFilenameStem      = 180
)

// SafeFilename converts a document title into a filesystem-safe filename with
// the given extension. Invalid path characters are replaced with underscores
// and the stem is capped so the result fits on FAT-style device filesystems.
func SafeFilename(title, ext string) string {
	var b strings.Builder
	b.Grow(len(title))
	for _, r := range title {
		if strings.ContainsRune(invalidFilenameChars, r) || r < 0x20 {
			b.WriteRune('_')
		} else {
			b.WriteRune(r)
		}
	}

	stem := strings.TrimSpace(b.String())
	if runes := []rune(stem); len(runes) > maxFilenameStem {
		stem = string(runes[:maxFilenameStem])
	}
	return stem + ext
}
