package media

import (
	"context"
	"fmt"
	"strings"

	"github.com/aviv90/tasker-agent/internal/llm"
)

const defaultVisionQuestion = "Describe this image in detail."

// Analyzer answers questions about images through a vision-capable
// chat model.
type Analyzer struct {
	client llm.Client
	model  string
}

// NewAnalyzer creates an image analyzer on the given model.
func NewAnalyzer(client llm.Client, model string) *Analyzer {
	return &Analyzer{client: client, model: model}
}

// Analyze sends the image alongside the question and returns the
// model's answer. An empty question asks for a general description.
func (a *Analyzer) Analyze(ctx context.Context, imageURL, question string) (string, error) {
	if imageURL == "" {
		return "", fmt.Errorf("vision: no image to analyze")
	}
	if strings.TrimSpace(question) == "" {
		question = defaultVisionQuestion
	}

	resp, err := a.client.Chat(ctx, a.model, []llm.Message{
		{
			Role:      "user",
			Content:   question,
			ImageURLs: []string{imageURL},
		},
	}, nil)
	if err != nil {
		return "", fmt.Errorf("vision: %w", err)
	}

	answer := strings.TrimSpace(resp.Message.Content)
	if answer == "" {
		return "", fmt.Errorf("vision: model returned an empty answer")
	}
	return answer, nil
}
