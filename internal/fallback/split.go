package fallback

import (
	"regexp"
	"strings"
)

// minSplitLength is the prompt length below which a task split is never
// proposed, no matter how many connectors appear.
const minSplitLength = 80

var (
	connectorRe = regexp.MustCompile(`(?i)\s*(?:\band then\b|\bafter that\b|\bafterwards\b|\band also\b|\bas well as\b|;\s+then\b|\bnext,)\s*`)

	multiRequestRe = regexp.MustCompile(`(?i)\band then\b|\bafter that\b|\bafterwards\b|\band also\b|\bas well as\b|\bfirst\b.*\b(?:second|then|finally)\b|\bif\b.*\bthen\b|\bstep\s*\d`)

	sentenceEndRe = regexp.MustCompile(`[.!?]+\s+`)

	imperativeRe = regexp.MustCompile(`(?i)\b(?:create|make|generate|draw|write|compose|send|translate|search|find|build|add|convert)\b`)
)

// ShouldSplit reports whether a prompt is a candidate for task
// decomposition: it must show multi-request structure and exceed the
// length threshold.
func ShouldSplit(prompt string) bool {
	return len(prompt) >= minSplitLength && multiRequestRe.MatchString(prompt)
}

// SplitTasks segments a multi-request prompt into sub-requests. It
// tries explicit connectors first, then sentence boundaries, then
// imperative-verb phrases, and returns nil when no segmentation
// produces more than one usable part.
func SplitTasks(prompt string) []string {
	for _, parts := range [][]string{
		connectorRe.Split(prompt, -1),
		sentenceEndRe.Split(prompt, -1),
		splitOnImperatives(prompt),
	} {
		if cleaned := usable(parts); len(cleaned) > 1 {
			return cleaned
		}
	}
	return nil
}

// splitOnImperatives cuts the prompt before each imperative verb past
// the first.
func splitOnImperatives(prompt string) []string {
	locs := imperativeRe.FindAllStringIndex(prompt, -1)
	if len(locs) < 2 {
		return nil
	}

	var parts []string
	start := 0
	for _, loc := range locs[1:] {
		parts = append(parts, prompt[start:loc[0]])
		start = loc[0]
	}
	parts = append(parts, prompt[start:])
	return parts
}

// usable trims segments and drops the ones too short to stand alone.
func usable(parts []string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(p, " \t\n,;.")
		if len(strings.Fields(p)) >= 2 {
			out = append(out, p)
		}
	}
	return out
}
