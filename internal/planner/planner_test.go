package planner

import (
	"context"
	"errors"
	"testing"

	"github.com/aviv90/tasker-agent/internal/llm"
)

type mockLLM struct {
	content string
	err     error
	called  bool
}

func (m *mockLLM) Chat(_ context.Context, _ string, _ []llm.Message, _ []map[string]any) (*llm.ChatResponse, error) {
	m.called = true
	if m.err != nil {
		return nil, m.err
	}
	return &llm.ChatResponse{Message: llm.Message{Role: "assistant", Content: m.content}}, nil
}

func (m *mockLLM) Ping(context.Context) error { return nil }

func TestPlanSingleStepSkipsModel(t *testing.T) {
	client := &mockLLM{content: `{"is_multi_step": true, "steps": ["a b", "c d"]}`}
	p := NewLLMPlanner(client, "m", nil)

	plan := p.Plan(context.Background(), "draw a cat")
	if plan.IsMultiStep || plan.Fallback {
		t.Errorf("unexpected plan: %+v", plan)
	}
	if client.called {
		t.Error("model should not be consulted for a plain request")
	}
}

func TestPlanMultiStep(t *testing.T) {
	client := &mockLLM{content: `{"is_multi_step": true, "steps": ["create an image of a cat", "write a poem about it"]}`}
	p := NewLLMPlanner(client, "m", nil)

	plan := p.Plan(context.Background(), "create an image of a cat and then write a poem about it")
	if !plan.IsMultiStep {
		t.Fatalf("expected multi-step plan, got %+v", plan)
	}
	if len(plan.Steps) != 2 {
		t.Errorf("Steps = %v", plan.Steps)
	}
}

func TestPlanTransportErrorDegrades(t *testing.T) {
	p := NewLLMPlanner(&mockLLM{err: errors.New("boom")}, "m", nil)
	plan := p.Plan(context.Background(), "do this and then do that")
	if !plan.Fallback {
		t.Errorf("expected fallback, got %+v", plan)
	}
}

func TestPlanMalformedJSONDegrades(t *testing.T) {
	p := NewLLMPlanner(&mockLLM{content: "sure, sounds multi-step to me!"}, "m", nil)
	plan := p.Plan(context.Background(), "do this and then do that")
	if !plan.Fallback {
		t.Errorf("expected fallback, got %+v", plan)
	}
}

func TestParsePlan(t *testing.T) {
	tests := []struct {
		name    string
		content string
		ok      bool
		multi   bool
		steps   int
	}{
		{"plain", `{"is_multi_step": false}`, true, false, 0},
		{"fenced", "```json\n{\"is_multi_step\": true, \"steps\": [\"one thing\", \"two thing\"]}\n```", true, true, 2},
		{"prose wrapped", `Here you go: {"is_multi_step": false} hope that helps`, true, false, 0},
		{"single step multi", `{"is_multi_step": true, "steps": ["only one"]}`, false, false, 0},
		{"runaway", `{"is_multi_step": true, "steps": ["a b","c d","e f","g h","i j","k l"]}`, false, false, 0},
		{"no json", `no braces here`, false, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, ok := parsePlan(tt.content)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if plan.IsMultiStep != tt.multi || len(plan.Steps) != tt.steps {
				t.Errorf("plan = %+v", plan)
			}
		})
	}
}
