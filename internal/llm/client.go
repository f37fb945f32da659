package llm

import "context"

// Client is the interface the agent loop uses to talk to a chat model.
//
// The transport is opaque to the loop: it sends conversation state plus
// tool declarations and receives either a final answer or a list of
// requested tool invocations.
type Client interface {
	// Chat sends a chat completion request and returns the response.
	// Tool declarations use the OpenAI function-call JSON shape.
	Chat(ctx context.Context, model string, messages []Message, tools []map[string]any) (*ChatResponse, error)

	// Ping checks if the provider is reachable.
	Ping(ctx context.Context) error
}
