// Package planner decides whether a request needs multi-step
// decomposition before it reaches the agent loop.
package planner

import (
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"

	"github.com/aviv90/tasker-agent/internal/llm"
)

// Plan is the decomposition decision for one request.
type Plan struct {
	IsMultiStep bool     `json:"is_multi_step"`
	Steps       []string `json:"steps,omitempty"`

	// Fallback marks a planner failure: the caller should treat the
	// request as single-step.
	Fallback bool `json:"fallback,omitempty"`
}

// Planner produces a Plan for a request.
type Planner interface {
	Plan(ctx context.Context, requestText string) Plan
}

const planSystemPrompt = `You split user requests into independent sequential steps.
Respond with JSON only: {"is_multi_step": bool, "steps": ["...", "..."]}.
A request is multi-step only when it contains clearly separate tasks that must run in order.
Simple requests, even long ones, are single-step: {"is_multi_step": false}.`

// maxSteps caps a decomposition; anything longer is a runaway plan.
const maxSteps = 5

// LLMPlanner asks the model for a decomposition. Any failure (transport,
// malformed JSON, runaway step count) degrades to Fallback.
type LLMPlanner struct {
	client llm.Client
	model  string
	logger *slog.Logger
}

// NewLLMPlanner creates a model-backed planner.
func NewLLMPlanner(client llm.Client, model string, logger *slog.Logger) *LLMPlanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMPlanner{client: client, model: model, logger: logger}
}

// Plan implements Planner. It never returns an error: planner failure is
// a degradation, not a fault.
func (p *LLMPlanner) Plan(ctx context.Context, requestText string) Plan {
	// Cheap pre-filter: requests without any multi-task signal skip the
	// model round-trip entirely.
	if !looksMultiStep(requestText) {
		return Plan{IsMultiStep: false}
	}

	resp, err := p.client.Chat(ctx, p.model, []llm.Message{
		{Role: "system", Content: planSystemPrompt},
		{Role: "user", Content: requestText},
	}, nil)
	if err != nil {
		p.logger.Warn("planner degraded to single-step", "error", err)
		return Plan{Fallback: true}
	}

	plan, ok := parsePlan(resp.Message.Content)
	if !ok {
		p.logger.Warn("planner returned unparseable plan", "content_len", len(resp.Message.Content))
		return Plan{Fallback: true}
	}
	return plan
}

var multiStepSignalRe = regexp.MustCompile(`(?i)\band then\b|\bafter that\b|\bafterwards\b|\band also\b|\bfirst\b.*\b(?:second|then|finally)\b|\bstep\s*\d|;`)

func looksMultiStep(s string) bool {
	return multiStepSignalRe.MatchString(s)
}

// parsePlan extracts the JSON plan from the model output, tolerating
// surrounding prose or code fences.
func parsePlan(content string) (Plan, bool) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return Plan{}, false
	}

	var plan Plan
	if err := json.Unmarshal([]byte(content[start:end+1]), &plan); err != nil {
		return Plan{}, false
	}

	if plan.IsMultiStep {
		steps := plan.Steps[:0]
		for _, s := range plan.Steps {
			if s = strings.TrimSpace(s); s != "" {
				steps = append(steps, s)
			}
		}
		plan.Steps = steps
		if len(plan.Steps) < 2 || len(plan.Steps) > maxSteps {
			return Plan{}, false
		}
	} else {
		plan.Steps = nil
	}
	return plan, true
}
