package memory

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/aviv90/tasker-agent/internal/tools"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "memory.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSnapshotRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	in := &Snapshot{
		Calls: []tools.CallRecord{
			{Tool: "create_image", Args: map[string]any{"prompt": "a cat"}, Success: true, Timestamp: ts},
			{Tool: "web_search", Success: false, Error: "rate limited", Timestamp: ts.Add(time.Second)},
		},
		Assets: tools.AssetLedger{
			Images: []tools.Asset{{URL: "https://cdn/cat.png", Prompt: "a cat", Provider: "openai", Timestamp: ts}},
			Audio:  []tools.Asset{{URL: "https://cdn/voice.mp3", Provider: "openai", Timestamp: ts}},
		},
	}

	if err := store.PutContext(ctx, "chat-1", in); err != nil {
		t.Fatalf("PutContext: %v", err)
	}

	out, err := store.GetContext(ctx, "chat-1")
	if err != nil {
		t.Fatalf("GetContext: %v", err)
	}
	if out == nil {
		t.Fatal("expected snapshot, got nil")
	}

	if len(out.Calls) != 2 {
		t.Fatalf("calls = %d, want 2", len(out.Calls))
	}
	if out.Calls[0].Tool != "create_image" || out.Calls[1].Tool != "web_search" {
		t.Errorf("call order not preserved: %+v", out.Calls)
	}
	if out.Calls[1].Error != "rate limited" {
		t.Errorf("call error = %q", out.Calls[1].Error)
	}
	if !reflect.DeepEqual(out.Assets.Images, in.Assets.Images) {
		t.Errorf("images differ:\n got %+v\nwant %+v", out.Assets.Images, in.Assets.Images)
	}
	if !reflect.DeepEqual(out.Assets.Audio, in.Assets.Audio) {
		t.Errorf("audio differs:\n got %+v\nwant %+v", out.Assets.Audio, in.Assets.Audio)
	}
}

func TestGetContextMissing(t *testing.T) {
	store := newTestStore(t)

	snap, err := store.GetContext(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("GetContext: %v", err)
	}
	if snap != nil {
		t.Fatalf("expected nil snapshot, got %+v", snap)
	}
}

func TestPutContextOverwrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := &Snapshot{Calls: []tools.CallRecord{{Tool: "a", Success: true}}}
	second := &Snapshot{Calls: []tools.CallRecord{{Tool: "b", Success: true}}}

	if err := store.PutContext(ctx, "chat-1", first); err != nil {
		t.Fatal(err)
	}
	if err := store.PutContext(ctx, "chat-1", second); err != nil {
		t.Fatal(err)
	}

	out, err := store.GetContext(ctx, "chat-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Calls) != 1 || out.Calls[0].Tool != "b" {
		t.Errorf("expected last-writer-wins snapshot, got %+v", out.Calls)
	}
}

func TestMessagesChronological(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, content := range []string{"one", "two", "three"} {
		if err := store.AddMessage(ctx, "chat-1", "user", content); err != nil {
			t.Fatal(err)
		}
		time.Sleep(2 * time.Millisecond) // distinct timestamps
	}

	msgs, err := store.GetMessages(ctx, "chat-1", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Fatalf("messages = %d, want 2", len(msgs))
	}
	if msgs[0].Content != "two" || msgs[1].Content != "three" {
		t.Errorf("expected two most recent in order, got %q, %q", msgs[0].Content, msgs[1].Content)
	}
}
