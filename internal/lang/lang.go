// Package lang provides lightweight script-based language detection.
//
// The heuristics here are deliberately simple: they classify text by the
// dominant Unicode script, which is enough to pick a response language
// and to reconcile mixed-language model output. They are pure functions
// so a model-based classifier can replace them without touching callers.
package lang

import "unicode"

// Language codes returned by Detect. Latin script maps to "en" since the
// gateway treats any Latin-script response uniformly.
const (
	Hebrew   = "he"
	Arabic   = "ar"
	Cyrillic = "ru"
	Latin    = "en"
	Han      = "zh"
	Unknown  = ""
)

// Detect returns the language code of the dominant script in s.
// Returns Unknown when s contains no letters.
func Detect(s string) string {
	counts := map[string]int{}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		counts[scriptOf(r)]++
	}

	best, bestN := Unknown, 0
	for code, n := range counts {
		if n > bestN {
			best, bestN = code, n
		}
	}
	return best
}

// Share returns the fraction of letters in s belonging to the given
// language's script. Returns 0 when s contains no letters.
func Share(s, code string) float64 {
	letters, matched := 0, 0
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if scriptOf(r) == code {
			matched++
		}
	}
	if letters == 0 {
		return 0
	}
	return float64(matched) / float64(letters)
}

// HasLetters reports whether s contains any letter runes.
func HasLetters(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

func scriptOf(r rune) string {
	switch {
	case unicode.Is(unicode.Hebrew, r):
		return Hebrew
	case unicode.Is(unicode.Arabic, r):
		return Arabic
	case unicode.Is(unicode.Cyrillic, r):
		return Cyrillic
	case unicode.Is(unicode.Han, r):
		return Han
	case unicode.Is(unicode.Latin, r):
		return Latin
	default:
		return Unknown
	}
}
