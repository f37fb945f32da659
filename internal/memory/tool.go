package memory

import (
	"context"
	"encoding/json"

	"github.com/aviv90/tasker-agent/internal/tools"
)

// historyPayload is the structured view returned by the chat history tool.
type historyPayload struct {
	Messages []Message         `json:"messages"`
	Assets   tools.AssetLedger `json:"generated_assets"`
}

// NewHistoryTool returns the get_chat_history tool. It lets the model
// consult earlier turns and previously generated media (for example, to
// analyze an image produced in a prior conversation).
func NewHistoryTool(m *Manager) *tools.Tool {
	return &tools.Tool{
		Name: "get_chat_history",
		Description: "Get recent conversation history and previously generated media for this chat. " +
			"Use when the user refers to something from earlier (\"that image\", \"the song you made\").",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"limit": map[string]any{
					"type":        "integer",
					"description": "Maximum number of messages to return (default 10).",
				},
			},
		},
		Execute: func(ctx context.Context, args map[string]any, tc *tools.Context) tools.Result {
			if !m.Enabled() {
				return tools.Fail("chat history is not available: context memory is disabled")
			}

			limit := 10
			if l, ok := args["limit"].(float64); ok && l > 0 {
				limit = int(l)
			}

			msgs, err := m.store.GetMessages(ctx, tc.ChatID, limit)
			if err != nil {
				return tools.Fail("failed to load chat history: " + err.Error())
			}

			payload := historyPayload{Messages: msgs, Assets: tc.Assets}
			out, err := json.Marshal(payload)
			if err != nil {
				return tools.Fail("failed to encode chat history")
			}
			return tools.OK(string(out))
		},
	}
}
