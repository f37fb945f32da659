package fallback

import (
	"regexp"
	"strings"
)

// Prompt generalization strips the over-specific qualifiers that most
// often trip a provider: literal color codes, resolution and quality
// figures, years, intensity adverbs, style references, and mid-sentence
// proper nouns. Like Simplify it is pure and deterministic.

var (
	hexColorRe   = regexp.MustCompile(`#(?:[0-9a-fA-F]{6}|[0-9a-fA-F]{3})\b`)
	resolutionRe = regexp.MustCompile(`\b\d{3,4}\s*[xX×]\s*\d{3,4}\b`)
	qualityRe    = regexp.MustCompile(`(?i)\b(?:4k|8k|1080p|720p|uhd|full hd|ultra hd|\d+\s*(?:dpi|fps|mp|megapixels?))\b`)
	yearRe       = regexp.MustCompile(`\b(?:19|20)\d{2}\b`)
	intensityRe  = regexp.MustCompile(`(?i)\b(?:very|extremely|incredibly|highly|really|super|ultra|insanely)\b`)
)

// Generalize rewrites a prompt into a less constrained variant. It
// returns the input unchanged when no rule applies.
func Generalize(prompt string) string {
	s := prompt
	s = styleClauseRe.ReplaceAllString(s, "")
	s = resolutionRe.ReplaceAllString(s, "")
	s = hexColorRe.ReplaceAllString(s, "")
	s = qualityRe.ReplaceAllString(s, "")
	s = yearRe.ReplaceAllString(s, "")
	s = intensityRe.ReplaceAllString(s, "")
	s = stripProperNouns(s)
	return tidy(s)
}

var capitalizedRe = regexp.MustCompile(`\b\p{Lu}\p{Ll}+\b`)

// stripProperNouns removes capitalized words that do not open the
// prompt or a sentence, treating them as brand or name references.
func stripProperNouns(s string) string {
	matches := capitalizedRe.FindAllStringIndex(s, -1)
	if len(matches) == 0 {
		return s
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		if sentenceInitial(s, m[0]) {
			continue
		}
		b.WriteString(s[last:m[0]])
		last = m[1]
	}
	b.WriteString(s[last:])
	return b.String()
}

// sentenceInitial reports whether the word at offset starts the prompt
// or follows terminal punctuation.
func sentenceInitial(s string, offset int) bool {
	for i := offset - 1; i >= 0; i-- {
		switch c := s[i]; {
		case c == ' ' || c == '\t' || c == '\n':
			continue
		case c == '.' || c == '!' || c == '?':
			return true
		default:
			return false
		}
	}
	return true
}
