package orchestrator

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aviv90/tasker-agent/internal/agent"
	"github.com/aviv90/tasker-agent/internal/llm"
	"github.com/aviv90/tasker-agent/internal/memory"
	"github.com/aviv90/tasker-agent/internal/planner"
	"github.com/aviv90/tasker-agent/internal/tools"
)

// mockLLM replays a scripted sequence of model turns across all loop
// invocations of a test.
type mockLLM struct {
	turns []llm.ChatResponse
	n     int
}

func (m *mockLLM) Chat(context.Context, string, []llm.Message, []map[string]any) (*llm.ChatResponse, error) {
	i := m.n
	if i >= len(m.turns) {
		i = len(m.turns) - 1
	}
	m.n++
	resp := m.turns[i]
	return &resp, nil
}

func (m *mockLLM) Ping(context.Context) error { return nil }

type stubPlanner struct {
	plan planner.Plan
}

func (s *stubPlanner) Plan(context.Context, string) planner.Plan { return s.plan }

func finalTurn(text string) llm.ChatResponse {
	return llm.ChatResponse{Message: llm.Message{Role: "assistant", Content: text}}
}

func toolTurn(calls ...llm.ToolCall) llm.ChatResponse {
	return llm.ChatResponse{Message: llm.Message{Role: "assistant", ToolCalls: calls}}
}

func newOrchestrator(client llm.Client, reg *tools.Registry, plan planner.Plan, timeout time.Duration) *Orchestrator {
	loop := agent.NewLoop(client, reg, agent.Config{MaxIterations: 1}, nil)
	mem := memory.NewManager(nil, false, nil)
	return New(loop, &stubPlanner{plan: plan}, mem, timeout, nil)
}

func TestHandleSingleStep(t *testing.T) {
	client := &mockLLM{turns: []llm.ChatResponse{finalTurn("the answer")}}
	o := newOrchestrator(client, tools.NewRegistry(), planner.Plan{}, time.Second)

	res := o.Handle(context.Background(), "chat-1", "question")
	if !res.Success || res.Text != "the answer" {
		t.Fatalf("res = %+v", res)
	}
	if res.Timeout {
		t.Error("unexpected timeout flag")
	}
}

func TestHandlePlannerFallbackGoesSingleStep(t *testing.T) {
	client := &mockLLM{turns: []llm.ChatResponse{finalTurn("single")}}
	plan := planner.Plan{Fallback: true, IsMultiStep: true, Steps: []string{"a b", "c d"}}
	o := newOrchestrator(client, tools.NewRegistry(), plan, time.Second)

	res := o.Handle(context.Background(), "chat-1", "question")
	if !res.Success || res.Text != "single" {
		t.Fatalf("res = %+v", res)
	}
	if client.n != 1 {
		t.Errorf("model consulted %d times, want 1 (single-step)", client.n)
	}
}

func TestHandleMultiStepAggregates(t *testing.T) {
	client := &mockLLM{turns: []llm.ChatResponse{
		finalTurn("first done"),
		finalTurn("second done"),
	}}
	plan := planner.Plan{IsMultiStep: true, Steps: []string{"do the first", "do the second"}}
	o := newOrchestrator(client, tools.NewRegistry(), plan, time.Second)

	res := o.Handle(context.Background(), "chat-1", "do both")
	if !res.Success {
		t.Fatalf("res = %+v", res)
	}
	if !strings.Contains(res.Text, "first done") || !strings.Contains(res.Text, "second done") {
		t.Errorf("Text = %q", res.Text)
	}
}

func TestMultiStepFailureDoesNotAbortLaterSteps(t *testing.T) {
	reg := tools.NewRegistry()
	reg.Register(&tools.Tool{
		Name:        "noop",
		Description: "does nothing",
		Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
		Execute: func(context.Context, map[string]any, *tools.Context) tools.Result {
			return tools.OK("ok")
		},
	})

	// Step 1 exhausts its single iteration on a tool call; step 2
	// answers immediately.
	client := &mockLLM{turns: []llm.ChatResponse{
		toolTurn(llm.ToolCall{ID: "1", Name: "noop", Arguments: map[string]any{}}),
		finalTurn("second step fine"),
	}}
	plan := planner.Plan{IsMultiStep: true, Steps: []string{"step one here", "step two here"}}
	o := newOrchestrator(client, reg, plan, time.Second)

	res := o.Handle(context.Background(), "chat-1", "both")
	if !res.Success {
		t.Fatalf("one successful step should make the request succeed: %+v", res)
	}
	if !strings.Contains(res.Text, "Step 1 failed") {
		t.Errorf("failed step not reported: %q", res.Text)
	}
	if !strings.Contains(res.Text, "second step fine") {
		t.Errorf("later step lost: %q", res.Text)
	}
}

func TestHandleTimeoutReturnsPromptly(t *testing.T) {
	reg := tools.NewRegistry()
	reg.Register(&tools.Tool{
		Name:        "slow",
		Description: "sleeps",
		Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
		Execute: func(ctx context.Context, _ map[string]any, _ *tools.Context) tools.Result {
			select {
			case <-time.After(2 * time.Second):
			case <-ctx.Done():
			}
			return tools.OK("finally")
		},
	})

	client := &mockLLM{turns: []llm.ChatResponse{
		toolTurn(llm.ToolCall{ID: "1", Name: "slow", Arguments: map[string]any{}}),
		finalTurn("done"),
	}}
	o := newOrchestrator(client, reg, planner.Plan{}, 50*time.Millisecond)

	start := time.Now()
	res := o.Handle(context.Background(), "chat-1", "be slow")
	elapsed := time.Since(start)

	if res.Success || !res.Timeout {
		t.Fatalf("expected timeout result, got %+v", res)
	}
	if elapsed > 500*time.Millisecond {
		t.Errorf("timeout result took %v, should return near the deadline", elapsed)
	}
}

func TestTimeoutPersistsPartialContextAfterUnwind(t *testing.T) {
	store, err := memory.NewSQLiteStore(t.TempDir() + "/mem.db")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer store.Close()

	// The tool deliberately ignores ctx, so the loop is still running
	// when the deadline fires. The context stays with the worker; the
	// partial ledger must show up in the store once the loop unwinds.
	reg := tools.NewRegistry()
	reg.Register(&tools.Tool{
		Name:        "slow_image",
		Description: "slow fake",
		Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
		Execute: func(context.Context, map[string]any, *tools.Context) tools.Result {
			time.Sleep(200 * time.Millisecond)
			return tools.Result{Success: true, ImageURL: "https://cdn.example/slow.png"}
		},
	})
	client := &mockLLM{turns: []llm.ChatResponse{
		toolTurn(llm.ToolCall{ID: "1", Name: "slow_image", Arguments: map[string]any{}}),
	}}

	loop := agent.NewLoop(client, reg, agent.Config{MaxIterations: 1}, nil)
	mem := memory.NewManager(store, true, nil)
	o := New(loop, &stubPlanner{}, mem, 50*time.Millisecond, nil)

	start := time.Now()
	res := o.Handle(context.Background(), "chat-1", "draw slowly")
	if res.Success || !res.Timeout {
		t.Fatalf("expected timeout result, got %+v", res)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("timeout result took %v", elapsed)
	}
	if len(res.ToolsUsed) != 0 {
		t.Errorf("fresh chat timeout reported tools %v", res.ToolsUsed)
	}

	deadline := time.After(2 * time.Second)
	for {
		if tc := mem.LoadPrevious(context.Background(), "chat-1"); tc != nil && tc.LatestImage() == "https://cdn.example/slow.png" {
			break
		}
		select {
		case <-deadline:
			t.Fatal("partial context never persisted after the loop unwound")
		case <-time.After(20 * time.Millisecond):
		}
	}

	// A second timed-out request reports the persisted prior activity.
	res2 := o.Handle(context.Background(), "chat-1", "draw slowly again")
	if res2.Success || !res2.Timeout {
		t.Fatalf("expected timeout result, got %+v", res2)
	}
	if len(res2.ToolsUsed) != 1 || res2.ToolsUsed[0] != "slow_image" {
		t.Errorf("ToolsUsed = %v, want prior snapshot [slow_image]", res2.ToolsUsed)
	}
}

// rendezvousStore and rendezvousPlanner each announce entry and wait for
// the other side. Sequential execution makes one side burn its full wait.
type rendezvousStore struct {
	loadStarted chan struct{}
	planStarted chan struct{}
}

func (s *rendezvousStore) GetContext(context.Context, string) (*memory.Snapshot, error) {
	close(s.loadStarted)
	select {
	case <-s.planStarted:
	case <-time.After(2 * time.Second):
	}
	return nil, nil
}

func (s *rendezvousStore) PutContext(context.Context, string, *memory.Snapshot) error { return nil }
func (s *rendezvousStore) AddMessage(context.Context, string, string, string) error   { return nil }

func (s *rendezvousStore) GetMessages(context.Context, string, int) ([]memory.Message, error) {
	return nil, nil
}

func (s *rendezvousStore) Close() error { return nil }

type rendezvousPlanner struct {
	loadStarted chan struct{}
	planStarted chan struct{}
}

func (p *rendezvousPlanner) Plan(context.Context, string) planner.Plan {
	close(p.planStarted)
	select {
	case <-p.loadStarted:
	case <-time.After(2 * time.Second):
	}
	return planner.Plan{}
}

func TestPlanningOverlapsContextHydration(t *testing.T) {
	loadStarted := make(chan struct{})
	planStarted := make(chan struct{})
	store := &rendezvousStore{loadStarted: loadStarted, planStarted: planStarted}
	p := &rendezvousPlanner{loadStarted: loadStarted, planStarted: planStarted}

	client := &mockLLM{turns: []llm.ChatResponse{finalTurn("ok")}}
	loop := agent.NewLoop(client, tools.NewRegistry(), agent.Config{MaxIterations: 1}, nil)
	mem := memory.NewManager(store, true, nil)
	o := New(loop, p, mem, 5*time.Second, nil)

	start := time.Now()
	res := o.Handle(context.Background(), "chat-1", "question")
	elapsed := time.Since(start)

	if !res.Success {
		t.Fatalf("res = %+v", res)
	}
	if elapsed > time.Second {
		t.Errorf("request took %v; snapshot load and planning ran sequentially", elapsed)
	}
}

func TestHandlePersistsOnSuccess(t *testing.T) {
	store, err := memory.NewSQLiteStore(t.TempDir() + "/mem.db")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer store.Close()

	reg := tools.NewRegistry()
	reg.Register(&tools.Tool{
		Name:        "create_image",
		Description: "fake",
		Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
		Execute: func(context.Context, map[string]any, *tools.Context) tools.Result {
			return tools.Result{Success: true, ImageURL: "https://cdn.example/a.png"}
		},
	})

	client := &mockLLM{turns: []llm.ChatResponse{
		toolTurn(llm.ToolCall{ID: "1", Name: "create_image", Arguments: map[string]any{}}),
		finalTurn("done"),
	}}

	loop := agent.NewLoop(client, reg, agent.Config{}, nil)
	mem := memory.NewManager(store, true, nil)
	o := New(loop, &stubPlanner{}, mem, time.Second, nil)

	res := o.Handle(context.Background(), "chat-1", "draw")
	if !res.Success {
		t.Fatalf("res = %+v", res)
	}

	// A second request sees the persisted asset ledger.
	tc := mem.LoadPrevious(context.Background(), "chat-1")
	if tc == nil {
		t.Fatal("no persisted context")
	}
	if tc.LatestImage() != "https://cdn.example/a.png" {
		t.Errorf("LatestImage = %q", tc.LatestImage())
	}
}
