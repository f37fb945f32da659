// Package memory provides cross-turn context persistence per conversation.
//
// The store keeps two things per chat id: a transcript of user/assistant
// messages (used to seed the model's conversation history) and a context
// snapshot (the tool call log and generated-asset ledger). Persistence is
// an optimization, not a correctness requirement — every caller fails open.
package memory

import (
	"context"
	"time"

	"github.com/aviv90/tasker-agent/internal/tools"
)

// Message is one transcript entry.
type Message struct {
	Role      string    `json:"role"` // user, assistant
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Snapshot is the persisted portion of an agent context. The transient
// per-invocation results map is deliberately absent.
type Snapshot struct {
	Calls  []tools.CallRecord `json:"tool_calls"`
	Assets tools.AssetLedger  `json:"generated_assets"`
}

// Store is the persistence interface, keyed by chat id.
// Writes are last-writer-wins; there is no optimistic concurrency.
type Store interface {
	// GetContext returns the stored snapshot, or (nil, nil) when the
	// chat has none.
	GetContext(ctx context.Context, chatID string) (*Snapshot, error)

	// PutContext overwrites the stored snapshot for the chat.
	PutContext(ctx context.Context, chatID string, snap *Snapshot) error

	// AddMessage appends a transcript entry.
	AddMessage(ctx context.Context, chatID, role, content string) error

	// GetMessages returns the most recent transcript entries in
	// chronological order, up to limit.
	GetMessages(ctx context.Context, chatID string, limit int) ([]Message, error)

	Close() error
}
