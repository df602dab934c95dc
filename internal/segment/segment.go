package segment

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// minRunes is the smallest normalized segment worth comparing. Shorter
// fragments (bullets, numbering, stray labels) are noise.
const minRunes = 3

// Normalize strips every whitespace-class rune from s. Comparison between
// documents is exact-string, so two segments that differ only in spacing
// must normalize to the same value.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// terminator reports whether r ends a sentence-like unit. Both the
// full-width punctuation used in CJK prose and the ASCII forms count,
// as do line breaks.
func terminator(r rune) bool {
	switch r {
	case '。', '；', '！', '？', '.', ';', '!', '?', '\n', '\r':
		return true
	}
	return false
}

// Split breaks text into normalized sentence segments. Runs of one or
// more terminators act as a single split point. Pieces whose normalized
// form is minRunes runes or longer survive; everything else is dropped.
// Duplicates collapse into the set.
func Split(text string) *Set {
	set := NewSet()
	var current strings.Builder
	flush := func() {
		cleaned := Normalize(current.String())
		current.Reset()
		if utf8.RuneCountInString(cleaned) >= minRunes {
			set.Add(cleaned)
		}
	}
	for _, r := range text {
		if terminator(r) {
			flush()
			continue
		}
		current.WriteRune(r)
	}
	flush()
	return set
}
