package announce

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RemoveDiacritics removes diacritical marks from a string (e.g., "Jiří" -> "Jiri").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// SpokenName turns a gallery label (a directory name) into something a speech
// engine reads naturally: separators become spaces and runs of whitespace
// collapse. With asciiOnly, diacritics are dropped for engines whose voices
// cannot pronounce them.
func SpokenName(label string, asciiOnly bool) string {
	name := strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(label)
	name = strings.Join(strings.Fields(name), " ")
	if asciiOnly {
		name = RemoveDiacritics(name)
	}
	return name
}
