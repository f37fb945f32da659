package agent

import (
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/aviv90/tasker-agent/internal/lang"
)

// Final-answer post-processing: the raw model output may leak reasoning
// markup, repeat itself, or drift between languages mid-response. Each
// stage has a plain text-in/text-out contract so the pipeline can be
// tested (and replaced) piecewise.

var (
	thinkBlockRe = regexp.MustCompile(`(?s)<think(?:ing)?>.*?</think(?:ing)?>`)

	metaLineRe = regexp.MustCompile(`(?im)^\s*(?:thought|thinking|reasoning|internal)\s*:.*$`)
)

// CleanFinalAnswer normalizes a raw final answer for delivery: strips
// leaked reasoning markup, flattens markdown to plain text, drops
// duplicated lines, and reconciles mixed-language output toward the
// dominant language.
func CleanFinalAnswer(raw string) string {
	s := stripMeta(raw)
	s = FlattenMarkdown(s)
	s = dedupeLines(s)
	s = reconcileLanguage(s)
	return strings.TrimSpace(s)
}

// stripMeta removes chain-of-thought artifacts the model may leak.
func stripMeta(s string) string {
	s = thinkBlockRe.ReplaceAllString(s, "")
	s = metaLineRe.ReplaceAllString(s, "")
	return s
}

// FlattenMarkdown renders markdown to plain text: emphasis and link
// markup dropped, block structure preserved as line breaks. Outbound
// gateways deliver plain text, so formatting would surface as literal
// asterisks otherwise.
func FlattenMarkdown(s string) string {
	source := []byte(s)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var b strings.Builder
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if _, isBlock := n.(*ast.Paragraph); isBlock || n.Kind() == ast.KindHeading || n.Kind() == ast.KindListItem {
				b.WriteString("\n")
			}
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Text:
			b.Write(node.Segment.Value(source))
			if node.SoftLineBreak() || node.HardLineBreak() {
				b.WriteString("\n")
			}
		case *ast.AutoLink:
			b.Write(node.URL(source))
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				b.Write(seg.Value(source))
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return s
	}
	return strings.TrimSpace(b.String())
}

// dedupeLines drops exact repeats of earlier non-blank lines.
func dedupeLines(s string) string {
	seen := make(map[string]bool)
	var out []string
	for _, line := range strings.Split(s, "\n") {
		key := strings.TrimSpace(line)
		if key != "" && seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// dominantShareThreshold is the fraction of letters the leading script
// must hold before minority-language lines are dropped.
const dominantShareThreshold = 0.6

// reconcileLanguage keeps only lines matching the dominant language
// when the response clearly favors one script. Lines carrying URLs or
// no letters at all always survive.
func reconcileLanguage(s string) string {
	dominant := lang.Detect(s)
	if dominant == lang.Unknown || lang.Share(s, dominant) < dominantShareThreshold {
		return s
	}

	var out []string
	for _, line := range strings.Split(s, "\n") {
		if lang.HasLetters(line) && !strings.Contains(line, "://") {
			if code := lang.Detect(line); code != lang.Unknown && code != dominant {
				continue
			}
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
