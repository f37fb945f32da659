package agent

import (
	"strings"
	"testing"
)

func TestCleanFinalAnswerStripsThinkBlocks(t *testing.T) {
	raw := "<think>the user wants a greeting, I should be brief</think>Hello! How can I help?"
	got := CleanFinalAnswer(raw)
	if strings.Contains(got, "the user wants") {
		t.Errorf("reasoning leaked: %q", got)
	}
	if !strings.Contains(got, "How can I help?") {
		t.Errorf("answer lost: %q", got)
	}
}

func TestCleanFinalAnswerStripsMetaLines(t *testing.T) {
	raw := "Thought: I need to check the weather first\nIt's sunny in Tel Aviv today."
	got := CleanFinalAnswer(raw)
	if strings.Contains(got, "Thought:") {
		t.Errorf("meta line survived: %q", got)
	}
	if !strings.Contains(got, "sunny in Tel Aviv") {
		t.Errorf("answer lost: %q", got)
	}
}

func TestCleanFinalAnswerDedupesLines(t *testing.T) {
	raw := "Here is your answer.\nHere is your answer.\nSecond line."
	got := CleanFinalAnswer(raw)
	if strings.Count(got, "Here is your answer.") != 1 {
		t.Errorf("duplicate line survived: %q", got)
	}
	if !strings.Contains(got, "Second line.") {
		t.Errorf("distinct line lost: %q", got)
	}
}

func TestFlattenMarkdown(t *testing.T) {
	raw := "# Title\n\nSome **bold** and *italic* text.\n\n- first item\n- second item"
	got := FlattenMarkdown(raw)

	for _, marker := range []string{"#", "**", "*", "- "} {
		if strings.Contains(got, marker) {
			t.Errorf("markdown marker %q survived: %q", marker, got)
		}
	}
	for _, want := range []string{"Title", "bold", "italic", "first item", "second item"} {
		if !strings.Contains(got, want) {
			t.Errorf("text %q lost: %q", want, got)
		}
	}
}

func TestFlattenMarkdownPlainPassthrough(t *testing.T) {
	raw := "just a plain sentence"
	if got := FlattenMarkdown(raw); got != raw {
		t.Errorf("plain text rewritten: %q", got)
	}
}

func TestReconcileLanguageDropsMinorityLines(t *testing.T) {
	raw := "שלום, הנה התשובה שלך לשאלה על מזג האוויר בתל אביב.\n" +
		"היום יהיה חם ושמשי, סביב שלושים מעלות.\n" +
		"Let me know if you need anything else!"
	got := CleanFinalAnswer(raw)
	if strings.Contains(got, "Let me know") {
		t.Errorf("minority-language line survived: %q", got)
	}
	if !strings.Contains(got, "שלום") {
		t.Errorf("dominant language lost: %q", got)
	}
}

func TestReconcileLanguageKeepsBalancedMix(t *testing.T) {
	// Roughly even mix: no dominant language, nothing dropped.
	raw := "Hello and welcome to everyone here today\nשלום וברוכים הבאים לכל הנוכחים כאן היום"
	got := reconcileLanguage(raw)
	if !strings.Contains(got, "Hello") || !strings.Contains(got, "שלום") {
		t.Errorf("balanced mix was trimmed: %q", got)
	}
}

func TestReconcileLanguageKeepsURLLines(t *testing.T) {
	raw := "הנה התמונה המבוקשת שיצרתי עבורך, מקווה שתאהב את התוצאה הסופית\n" +
		"https://cdn.example/asset.png\n" +
		"אפשר לבקש עוד"
	got := reconcileLanguage(raw)
	if !strings.Contains(got, "https://cdn.example/asset.png") {
		t.Errorf("URL line dropped: %q", got)
	}
}
