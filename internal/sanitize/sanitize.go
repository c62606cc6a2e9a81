// Package sanitize turns display names into filesystem-safe path tokens.
package sanitize

import (
	"errors"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Separator joins the alphanumeric runs of a token.
const Separator = '-'

// ErrEmptyName is returned when a name is empty or has no usable characters.
var ErrEmptyName = errors.New("name sanitizes to an empty token")

// letters that canonical decomposition leaves intact.
var fold = map[rune]string{
	'ß': "s", 'ẞ': "s",
	'ø': "o", 'Ø': "o",
	'æ': "ae", 'Æ': "ae",
	'œ': "oe", 'Œ': "oe",
	'ł': "l", 'Ł': "l",
	'đ': "d", 'Đ': "d",
	'ð': "d", 'Ð': "d",
	'þ': "th", 'Þ': "th",
	'ı': "i",
}

// Name maps a display name to a lowercase token made of [a-z0-9] runs joined by
// Separator. Accented Latin letters are reduced to their base letter, so
// "Åsa Berg" becomes "asa-berg". The result is stable for a given input and
// Name(Name(x)) == Name(x).
func Name(name string) (string, error) {
	stripped, _, err := transform.String(stripMarks(), name)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.Grow(len(stripped))
	pendingSep := false
	for _, r := range stripped {
		if repl, ok := fold[r]; ok {
			pendingSep = writeRun(&b, repl, pendingSep)
			continue
		}
		r = unicode.ToLower(r)
		if isTokenRune(r) {
			pendingSep = writeRun(&b, string(r), pendingSep)
			continue
		}
		if b.Len() > 0 {
			pendingSep = true
		}
	}
	if b.Len() == 0 {
		return "", ErrEmptyName
	}
	return b.String(), nil
}

func writeRun(b *strings.Builder, s string, pendingSep bool) bool {
	if pendingSep {
		b.WriteRune(Separator)
	}
	b.WriteString(s)
	return false
}

func isTokenRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
}

// transform.Chain is stateful, so each call builds its own.
func stripMarks() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}
