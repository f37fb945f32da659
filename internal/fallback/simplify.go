package fallback

import (
	"regexp"
	"strings"
)

// Deterministic prompt simplification: strip style-reference clauses,
// background/atmosphere/lighting descriptors, and collapse runs of
// comma-separated qualifiers to their final word. Pure and idempotent,
// so it can be unit-tested and swapped out independently of the engine.

var (
	styleClauseRe = regexp.MustCompile(`(?i)[,;]?\s*(?:in the style of|styled like|looking like)\s+[^,.;]+`)

	sceneryClauseRe = regexp.MustCompile(`(?i)[,;]?\s*(?:with|against|on)\s+(?:a|an|the)?\s*[^,.;]*\b(?:background|backdrop|lighting|atmosphere|ambiance|scenery)\b[^,.;]*`)

	// Three or more single words separated by ", " form a qualifier run.
	qualifierRunRe = regexp.MustCompile(`\b\pL+(?:, \pL+){2,}\b`)
)

// Simplify strips compound qualifiers from a generation prompt. It
// returns the input unchanged when no rule applies.
func Simplify(prompt string) string {
	s := prompt
	s = styleClauseRe.ReplaceAllString(s, "")
	s = sceneryClauseRe.ReplaceAllString(s, "")
	s = qualifierRunRe.ReplaceAllStringFunc(s, func(run string) string {
		parts := strings.Split(run, ", ")
		return parts[len(parts)-1]
	})
	return tidy(s)
}

var (
	spaceRunRe      = regexp.MustCompile(`\s{2,}`)
	orphanCommaRe   = regexp.MustCompile(`\s+([,.;!?])`)
	commaRunRe      = regexp.MustCompile(`([,;])(?:\s*[,;])+`)
	danglingPunctRe = regexp.MustCompile(`[\s,;]+$`)
)

// tidy normalizes the debris left behind by clause removal.
func tidy(s string) string {
	s = spaceRunRe.ReplaceAllString(s, " ")
	s = orphanCommaRe.ReplaceAllString(s, "$1")
	s = commaRunRe.ReplaceAllString(s, "$1")
	s = danglingPunctRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// degenerate reports whether a rewritten prompt is too empty to retry.
func degenerate(s string) bool {
	return len(strings.Fields(s)) < 2
}
