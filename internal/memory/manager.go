package memory

import (
	"context"
	"log/slog"

	"github.com/aviv90/tasker-agent/internal/llm"
	"github.com/aviv90/tasker-agent/internal/tools"
)

// Storage caps applied when persisting a context. History beyond these
// bounds is truncated oldest-first; the in-memory ledgers are never cut.
const (
	maxStoredCalls         = 50
	maxStoredAssetsPerKind = 20
	defaultHistoryWindow   = 20
)

// Manager creates, hydrates, and persists per-conversation agent contexts.
//
// All persistence is best-effort: a broken store degrades the assistant
// to stateless operation but never fails a request.
type Manager struct {
	store   Store
	logger  *slog.Logger
	enabled bool
}

// NewManager creates a context manager. When enabled is false, loads
// return nil and saves are no-ops (context memory off).
func NewManager(store Store, enabled bool, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{store: store, enabled: enabled, logger: logger}
}

// Enabled reports whether context memory is on.
func (m *Manager) Enabled() bool { return m.enabled && m.store != nil }

// CreateInitial returns a fresh, empty context for the conversation.
func (m *Manager) CreateInitial(chatID string) *tools.Context {
	return tools.NewContext(chatID)
}

// LoadPrevious returns a fresh context hydrated with the persisted call
// log and asset ledger, or nil when context memory is disabled, nothing
// is stored, or the store is unavailable. PreviousResults always starts
// empty — it is invocation-local by contract.
func (m *Manager) LoadPrevious(ctx context.Context, chatID string) *tools.Context {
	if !m.Enabled() {
		return nil
	}

	snap, err := m.store.GetContext(ctx, chatID)
	if err != nil {
		m.logger.Warn("context load failed, starting fresh", "chat_id", chatID, "error", err)
		return nil
	}
	if snap == nil {
		return nil
	}

	tc := tools.NewContext(chatID)
	tc.Calls = append(tc.Calls, snap.Calls...)
	tc.Assets = snap.Assets

	m.logger.Debug("context hydrated",
		"chat_id", chatID,
		"tool_calls", len(tc.Calls),
		"images", len(tc.Assets.Images),
		"videos", len(tc.Assets.Videos),
		"audio", len(tc.Assets.Audio),
	)
	return tc
}

// Save persists the context's call log and asset ledger, truncated to
// the storage caps. Failures are logged and swallowed.
func (m *Manager) Save(ctx context.Context, chatID string, tc *tools.Context) {
	if !m.Enabled() || tc == nil {
		return
	}

	snap := &Snapshot{
		Calls: truncateCalls(tc.Calls, maxStoredCalls),
		Assets: tools.AssetLedger{
			Images: truncateAssets(tc.Assets.Images, maxStoredAssetsPerKind),
			Videos: truncateAssets(tc.Assets.Videos, maxStoredAssetsPerKind),
			Audio:  truncateAssets(tc.Assets.Audio, maxStoredAssetsPerKind),
		},
	}

	if err := m.store.PutContext(ctx, chatID, snap); err != nil {
		m.logger.Warn("context save failed", "chat_id", chatID, "error", err)
	}
}

// History returns the recent transcript as model messages, oldest first.
// Returns nil on any failure.
func (m *Manager) History(ctx context.Context, chatID string) []llm.Message {
	if !m.Enabled() {
		return nil
	}

	msgs, err := m.store.GetMessages(ctx, chatID, defaultHistoryWindow)
	if err != nil {
		m.logger.Warn("history load failed", "chat_id", chatID, "error", err)
		return nil
	}

	out := make([]llm.Message, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, llm.Message{Role: msg.Role, Content: msg.Content})
	}
	return out
}

// RememberExchange appends a completed user/assistant exchange to the
// transcript. Failures are logged and swallowed.
func (m *Manager) RememberExchange(ctx context.Context, chatID, userText, reply string) {
	if !m.Enabled() {
		return
	}
	if err := m.store.AddMessage(ctx, chatID, "user", userText); err != nil {
		m.logger.Warn("transcript write failed", "chat_id", chatID, "error", err)
		return
	}
	if reply == "" {
		return
	}
	if err := m.store.AddMessage(ctx, chatID, "assistant", reply); err != nil {
		m.logger.Warn("transcript write failed", "chat_id", chatID, "error", err)
	}
}

func truncateCalls(calls []tools.CallRecord, max int) []tools.CallRecord {
	if len(calls) <= max {
		return calls
	}
	return calls[len(calls)-max:]
}

func truncateAssets(assets []tools.Asset, max int) []tools.Asset {
	if len(assets) <= max {
		return assets
	}
	return assets[len(assets)-max:]
}
