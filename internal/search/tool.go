package search

import (
	"context"
	"encoding/json"

	"github.com/aviv90/tasker-agent/internal/tools"
)

// NewTool returns the web_search tool over the manager.
func NewTool(mgr *Manager) *tools.Tool {
	return &tools.Tool{
		Name:        "web_search",
		Description: "Search the web for current information.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "The search query string.",
				},
				"count": map[string]any{
					"type":        "integer",
					"description": "Maximum number of results to return (1-10). Default: 5.",
				},
				"language": map[string]any{
					"type":        "string",
					"description": "ISO 639-1 language code for results (e.g., 'en', 'he').",
				},
				"provider": map[string]any{
					"type":        "string",
					"description": "Search provider to use. Omit for default.",
				},
			},
			"required": []string{"query"},
		},
		Execute: func(ctx context.Context, args map[string]any, _ *tools.Context) tools.Result {
			query, _ := args["query"].(string)
			if query == "" {
				return tools.Fail("query is required")
			}

			opts := Options{}
			if count, ok := args["count"].(float64); ok && count > 0 {
				opts.Count = int(count)
			}
			if lang, ok := args["language"].(string); ok {
				opts.Language = lang
			}

			var results []Result
			var err error
			if provider, ok := args["provider"].(string); ok && provider != "" {
				results, err = mgr.SearchWith(ctx, provider, query, opts)
			} else {
				results, err = mgr.Search(ctx, query, opts)
			}
			if err != nil {
				return tools.Fail(err.Error())
			}

			// JSON for structured consumption by the model; the formatted
			// fallback covers the unlikely marshal failure.
			out, err := json.Marshal(results)
			if err != nil {
				return tools.OK(FormatResults(results))
			}
			return tools.OK(string(out))
		},
	}
}
