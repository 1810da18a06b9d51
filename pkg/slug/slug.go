// Package slug builds URL-safe identifiers from product titles.
package slug

import (
	"regexp"
	"strings"
	"unicode"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// cyrillic transliterates Russian letters (lower case) to ASCII.
var cyrillic = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'е': "e", 'ё': "e",
	'ж': "zh", 'з': "z", 'и': "i", 'й': "y", 'к': "k", 'л': "l", 'м': "m",
	'н': "n", 'о': "o", 'п': "p", 'р': "r", 'с': "s", 'т': "t", 'у': "u",
	'ф': "f", 'х': "h", 'ц': "ts", 'ч': "ch", 'ш': "sh", 'щ': "sch", 'ъ': "",
	'ы': "y", 'ь': "", 'э': "e", 'ю': "yu", 'я': "ya",
}

// Transliterate replaces Russian letters with ASCII and leaves everything
// else alone. Capital letters stay capitalised.
//
//	Transliterate("Чай №5") == "Chay №5"
func Transliterate(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		lower := unicode.ToLower(r)
		t, ok := cyrillic[lower]
		if !ok {
			b.WriteRune(r)
			continue
		}
		if lower != r && t != "" {
			t = strings.ToUpper(t[:1]) + t[1:]
		}
		b.WriteString(t)
	}
	return b.String()
}

// Generate lower-cases name, transliterates Cyrillic and joins the
// remaining alphanumeric runs with hyphens.
//
//	Generate("Кофе в зёрнах 1 кг") == "kofe-v-zernah-1-kg"
func Generate(name string) string {
	s := Transliterate(strings.ToLower(strings.TrimSpace(name)))
	s = nonAlnum.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// WithSuffix appends the first n characters of id so titles that
// slugify identically stay unique.
func WithSuffix(s, id string, n int) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > n {
		id = id[:n]
	}
	if s == "" {
		return id
	}
	if id == "" {
		return s
	}
	return s + "-" + id
}
