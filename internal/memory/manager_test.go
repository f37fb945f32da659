package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/aviv90/tasker-agent/internal/tools"
)

// failingStore always errors, for fail-open tests.
type failingStore struct{}

func (failingStore) GetContext(context.Context, string) (*Snapshot, error) {
	return nil, errors.New("store down")
}
func (failingStore) PutContext(context.Context, string, *Snapshot) error {
	return errors.New("store down")
}
func (failingStore) AddMessage(context.Context, string, string, string) error {
	return errors.New("store down")
}
func (failingStore) GetMessages(context.Context, string, int) ([]Message, error) {
	return nil, errors.New("store down")
}
func (failingStore) Close() error { return nil }

func TestManagerRoundTrip(t *testing.T) {
	store := newTestStore(t)
	mgr := NewManager(store, true, slog.Default())
	ctx := context.Background()

	tc := mgr.CreateInitial("chat-1")
	tc.Record("create_image", map[string]any{"prompt": "a dog"}, tools.Result{
		Success: true, ImageURL: "https://cdn/dog.png", Provider: "replicate",
	})

	mgr.Save(ctx, "chat-1", tc)

	loaded := mgr.LoadPrevious(ctx, "chat-1")
	if loaded == nil {
		t.Fatal("expected hydrated context")
	}
	if len(loaded.Calls) != 1 || loaded.Calls[0].Tool != "create_image" {
		t.Errorf("calls = %+v", loaded.Calls)
	}
	if loaded.LatestImage() != "https://cdn/dog.png" {
		t.Errorf("LatestImage = %q", loaded.LatestImage())
	}
	if len(loaded.PreviousResults) != 0 {
		t.Error("PreviousResults must start empty after hydration")
	}
}

func TestManagerDisabled(t *testing.T) {
	store := newTestStore(t)
	mgr := NewManager(store, false, slog.Default())
	ctx := context.Background()

	tc := mgr.CreateInitial("chat-1")
	tc.Record("web_search", nil, tools.OK("x"))
	mgr.Save(ctx, "chat-1", tc)

	if got := mgr.LoadPrevious(ctx, "chat-1"); got != nil {
		t.Errorf("disabled manager should not load, got %+v", got)
	}

	// Verify nothing was written.
	snap, err := store.GetContext(ctx, "chat-1")
	if err != nil {
		t.Fatal(err)
	}
	if snap != nil {
		t.Error("disabled manager should not save")
	}
}

func TestManagerFailsOpen(t *testing.T) {
	mgr := NewManager(failingStore{}, true, slog.Default())
	ctx := context.Background()

	// None of these may panic or surface errors.
	if got := mgr.LoadPrevious(ctx, "chat-1"); got != nil {
		t.Errorf("expected nil on store failure, got %+v", got)
	}
	mgr.Save(ctx, "chat-1", mgr.CreateInitial("chat-1"))
	mgr.RememberExchange(ctx, "chat-1", "hi", "hello")
	if got := mgr.History(ctx, "chat-1"); got != nil {
		t.Errorf("expected nil history on store failure, got %v", got)
	}
}

func TestSaveTruncatesForStorage(t *testing.T) {
	store := newTestStore(t)
	mgr := NewManager(store, true, slog.Default())
	ctx := context.Background()

	tc := mgr.CreateInitial("chat-1")
	for i := 0; i < maxStoredCalls+10; i++ {
		tc.Record("web_search", map[string]any{"query": fmt.Sprintf("q%d", i)}, tools.OK("r"))
	}
	for i := 0; i < maxStoredAssetsPerKind+5; i++ {
		tc.Record("create_image", map[string]any{"prompt": fmt.Sprintf("p%d", i)}, tools.Result{
			Success: true, ImageURL: fmt.Sprintf("u%d", i),
		})
	}

	mgr.Save(ctx, "chat-1", tc)

	loaded := mgr.LoadPrevious(ctx, "chat-1")
	if loaded == nil {
		t.Fatal("expected context")
	}
	if len(loaded.Calls) != maxStoredCalls {
		t.Errorf("stored calls = %d, want %d", len(loaded.Calls), maxStoredCalls)
	}
	if len(loaded.Assets.Images) != maxStoredAssetsPerKind {
		t.Errorf("stored images = %d, want %d", len(loaded.Assets.Images), maxStoredAssetsPerKind)
	}
	// Truncation keeps the newest entries.
	last := loaded.Assets.Images[len(loaded.Assets.Images)-1]
	if last.URL != fmt.Sprintf("u%d", maxStoredAssetsPerKind+4) {
		t.Errorf("expected newest asset kept, got %q", last.URL)
	}
}

func TestHistoryToolReadsTranscript(t *testing.T) {
	store := newTestStore(t)
	mgr := NewManager(store, true, slog.Default())
	ctx := context.Background()

	mgr.RememberExchange(ctx, "chat-1", "draw a cat", "here is your cat")

	tool := NewHistoryTool(mgr)
	tc := tools.NewContext("chat-1")
	res := tool.Execute(ctx, map[string]any{}, tc)
	if !res.Success {
		t.Fatalf("history tool failed: %s", res.Error)
	}
	if res.Data == "" {
		t.Fatal("expected history payload")
	}
}
