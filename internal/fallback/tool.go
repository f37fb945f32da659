package fallback

import (
	"context"

	"github.com/aviv90/tasker-agent/internal/media"
	"github.com/aviv90/tasker-agent/internal/tools"
)

// NewTool returns the retry_with_fallback tool. The description steers
// the model to call it only after an ordinary attempt has failed; the
// engine itself does not enforce that policy.
func NewTool(e *Engine) *tools.Tool {
	return &tools.Tool{
		Name: "retry_with_fallback",
		Description: "Recover a FAILED image/video/audio generation by trying alternate providers and " +
			"rewritten prompts. Only use after a generation tool has already failed; never as the first attempt.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"task_type": map[string]any{
					"type":        "string",
					"enum":        []string{"image", "video", "audio"},
					"description": "Kind of generation that failed.",
				},
				"prompt": map[string]any{
					"type":        "string",
					"description": "The original prompt that failed.",
				},
				"failure_reason": map[string]any{
					"type":        "string",
					"description": "Error message from the failed attempt.",
				},
				"tried_providers": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Providers already attempted, so they are not retried.",
				},
			},
			"required": []string{"task_type", "prompt"},
		},
		Execute: func(ctx context.Context, args map[string]any, _ *tools.Context) tools.Result {
			kindArg, _ := args["task_type"].(string)
			kind, err := media.ParseKind(kindArg)
			if err != nil {
				return tools.Fail(err.Error())
			}

			prompt, _ := args["prompt"].(string)
			if prompt == "" {
				return tools.Fail("prompt is required")
			}

			req := Request{Kind: kind, Prompt: prompt}
			req.FailureReason, _ = args["failure_reason"].(string)
			if tried, ok := args["tried_providers"].([]any); ok {
				for _, t := range tried {
					if name, ok := t.(string); ok && name != "" {
						req.TriedProviders = append(req.TriedProviders, name)
					}
				}
			}

			return e.Run(ctx, req)
		},
	}
}
