package extract

import (
	"regexp"
	"strings"
)

// TitleSeparator splits a combined title into name and grade.
const TitleSeparator = ", "

var trailingCount = regexp.MustCompile(`\s*\(\d+\)$`)

// ParseTitle splits a combined problem title into its name and grade.
//
// Grammar, after whitespace normalization:
//
//	title := name [ ", " grade [ " " trailing ] ]
//
// The name is everything before the first ", ". The grade is the first
// space-delimited token after it; star glyphs, photo markers and other
// trailing decorations are ignored. A title without ", " is all name and
// yields an empty grade.
//
//	"3. Stina, 6B ⭐️⭐️ (📷)" -> ("3. Stina", "6B")
//	"Le Toit"                -> ("Le Toit", "")
func ParseTitle(title string) (name, grade string) {
	title = NormalizeSpace(title)
	before, after, found := strings.Cut(title, TitleSeparator)
	name = strings.TrimSpace(before)
	if !found {
		return name, ""
	}
	if fields := strings.Fields(after); len(fields) > 0 {
		grade = fields[0]
	}
	return name, grade
}

// NormalizeSpace collapses every whitespace run to one space and trims the ends.
func NormalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// FirstLine returns the first non-blank line of s, whitespace-normalized.
func FirstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = NormalizeSpace(line); line != "" {
			return line
		}
	}
	return ""
}

// ListName cleans an entry of the area list, which renders as "Name (12)".
func ListName(s string) string {
	return trailingCount.ReplaceAllString(FirstLine(s), "")
}

// AfterLabel returns the value of a "Label: value" string, or "" when there is no label separator.
func AfterLabel(s string) string {
	_, value, found := strings.Cut(s, ": ")
	if !found {
		return ""
	}
	return NormalizeSpace(value)
}
