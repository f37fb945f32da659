package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/aviv90/tasker-agent/internal/tools"
)

// SQLiteStore is a SQLite-backed Store.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath and runs
// the schema migration.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS conversations (
		chat_id TEXT PRIMARY KEY,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		chat_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		timestamp TIMESTAMP NOT NULL,
		FOREIGN KEY (chat_id) REFERENCES conversations(chat_id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_messages_chat ON messages(chat_id, timestamp);

	-- One snapshot row per chat: tool call log + generated asset ledger,
	-- both stored as JSON. Last writer wins.
	CREATE TABLE IF NOT EXISTS context_snapshots (
		chat_id TEXT PRIMARY KEY,
		tool_calls TEXT NOT NULL,
		assets TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetContext returns the stored snapshot for a chat, or (nil, nil).
func (s *SQLiteStore) GetContext(ctx context.Context, chatID string) (*Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT tool_calls, assets FROM context_snapshots WHERE chat_id = ?
	`, chatID)

	var callsJSON, assetsJSON string
	if err := row.Scan(&callsJSON, &assetsJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	snap := &Snapshot{}
	if err := json.Unmarshal([]byte(callsJSON), &snap.Calls); err != nil {
		return nil, fmt.Errorf("decode tool calls: %w", err)
	}
	if err := json.Unmarshal([]byte(assetsJSON), &snap.Assets); err != nil {
		return nil, fmt.Errorf("decode assets: %w", err)
	}
	return snap, nil
}

// PutContext overwrites the snapshot for a chat.
func (s *SQLiteStore) PutContext(ctx context.Context, chatID string, snap *Snapshot) error {
	calls := snap.Calls
	if calls == nil {
		calls = []tools.CallRecord{}
	}
	callsJSON, err := json.Marshal(calls)
	if err != nil {
		return fmt.Errorf("encode tool calls: %w", err)
	}
	assetsJSON, err := json.Marshal(snap.Assets)
	if err != nil {
		return fmt.Errorf("encode assets: %w", err)
	}

	if err := s.ensureConversation(ctx, chatID); err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO context_snapshots (chat_id, tool_calls, assets, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET
			tool_calls = excluded.tool_calls,
			assets = excluded.assets,
			updated_at = excluded.updated_at
	`, chatID, string(callsJSON), string(assetsJSON), time.Now())
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// AddMessage appends a transcript entry.
func (s *SQLiteStore) AddMessage(ctx context.Context, chatID, role, content string) error {
	if err := s.ensureConversation(ctx, chatID); err != nil {
		return err
	}

	msgID, _ := uuid.NewV7()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, chat_id, role, content, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`, msgID.String(), chatID, role, content, time.Now())
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// GetMessages returns the most recent limit messages in chronological order.
func (s *SQLiteStore) GetMessages(ctx context.Context, chatID string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}

	// Newest first for the LIMIT, then reversed to chronological order.
	rows, err := s.db.QueryContext(ctx, `
		SELECT role, content, timestamp
		FROM messages
		WHERE chat_id = ?
		ORDER BY timestamp DESC
		LIMIT ?
	`, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var newestFirst []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.Role, &m.Content, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		newestFirst = append(newestFirst, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]Message, len(newestFirst))
	for i, m := range newestFirst {
		out[len(newestFirst)-1-i] = m
	}
	return out, nil
}

func (s *SQLiteStore) ensureConversation(ctx context.Context, chatID string) error {
	now := time.Now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (chat_id, created_at, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET updated_at = excluded.updated_at
	`, chatID, now, now)
	if err != nil {
		return fmt.Errorf("ensure conversation: %w", err)
	}
	return nil
}
