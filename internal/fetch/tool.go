package fetch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aviv90/tasker-agent/internal/tools"
)

// NewTool returns the get_link_content tool over the fetcher.
func NewTool(f *Fetcher) *tools.Tool {
	return &tools.Tool{
		Name:        "get_link_content",
		Description: "Fetch a web page and return its readable text content.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"url": map[string]any{
					"type":        "string",
					"description": "URL to fetch and extract content from.",
				},
				"max_chars": map[string]any{
					"type":        "integer",
					"description": "Maximum characters to return. Default: 50000.",
				},
			},
			"required": []string{"url"},
		},
		Execute: func(ctx context.Context, args map[string]any, _ *tools.Context) tools.Result {
			url, _ := args["url"].(string)
			if url == "" {
				return tools.Fail("url is required")
			}

			maxChars := 0
			if mc, ok := args["max_chars"].(float64); ok && mc > 0 {
				maxChars = int(mc)
			}

			page, err := f.Fetch(ctx, url, maxChars)
			if err != nil {
				return tools.Fail(err.Error())
			}

			out, err := json.Marshal(page)
			if err != nil {
				return tools.OK(fmt.Sprintf("Title: %s\n\n%s", page.Title, page.Content))
			}
			return tools.OK(string(out))
		},
	}
}
