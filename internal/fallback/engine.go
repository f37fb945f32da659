// Package fallback recovers failed media generation attempts through an
// ordered sequence of strategies: alternate provider, prompt
// simplification, task-split proposal, prompt generalization.
//
// The engine is exposed to the model as a regular tool and returns a
// ToolResult like any other executor; it never touches shared context
// itself. The rewrite heuristics live in their own files as pure
// functions so they can be replaced without touching the engine.
package fallback

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aviv90/tasker-agent/internal/media"
	"github.com/aviv90/tasker-agent/internal/tools"
)

// Strategy names, in attempt order.
const (
	strategyAlternateProvider = "alternate_provider"
	strategySimplification    = "prompt_simplification"
	strategyTaskSplit         = "task_split"
	strategyGeneralization    = "prompt_generalization"
)

// Request describes a failed generation attempt to recover from.
type Request struct {
	Kind          media.Kind
	Prompt        string
	FailureReason string

	// TriedProviders lists providers the original attempt already used.
	TriedProviders []string
}

// Engine runs the recovery strategies over the media manager.
type Engine struct {
	media  *media.Manager
	logger *slog.Logger
}

// NewEngine creates a fallback engine.
func NewEngine(m *media.Manager, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{media: m, logger: logger.With("component", "fallback")}
}

// Run attempts recovery and returns on the first strategy that
// produces a result. The task-split proposal counts as a result even
// though it carries success=false: it hands the decomposition back to
// the caller instead of executing it.
func (e *Engine) Run(ctx context.Context, req Request) tools.Result {
	if req.Prompt == "" {
		return tools.Fail("fallback: prompt is required")
	}

	attempted := make(map[string]bool, len(req.TriedProviders))
	for _, name := range req.TriedProviders {
		attempted[name] = true
	}

	// strategiesTried records only strategies that made a real attempt,
	// so the exhaustion message never claims work that was skipped.
	var strategiesTried []string

	// 1. Alternate provider: same prompt, every untried backend.
	for _, name := range e.media.ProvidersFor(req.Kind) {
		if attempted[name] {
			continue
		}
		attempted[name] = true
		if len(strategiesTried) == 0 {
			strategiesTried = append(strategiesTried, strategyAlternateProvider)
		}
		e.logger.Info("fallback attempt", "strategy", strategyAlternateProvider, "provider", name, "kind", req.Kind)
		if asset, err := e.media.GenerateWith(ctx, name, req.Kind, req.Prompt); err == nil {
			return succeed(strategyAlternateProvider, req.Kind, asset)
		}
		if ctx.Err() != nil {
			return tools.Fail("fallback abandoned: " + ctx.Err().Error())
		}
	}

	// 2. Prompt simplification, primary provider only.
	if primary := e.media.Primary(req.Kind); primary != "" {
		if simplified := Simplify(req.Prompt); simplified != req.Prompt && !degenerate(simplified) {
			strategiesTried = append(strategiesTried, strategySimplification)
			attempted[primary] = true
			e.logger.Info("fallback attempt", "strategy", strategySimplification, "provider", primary, "prompt", simplified)
			if asset, err := e.media.GenerateWith(ctx, primary, req.Kind, simplified); err == nil {
				return succeed(strategySimplification, req.Kind, asset)
			}
			if ctx.Err() != nil {
				return tools.Fail("fallback abandoned: " + ctx.Err().Error())
			}
		}
	}

	// 3. Task-split proposal: non-executing suggestion.
	if ShouldSplit(req.Prompt) {
		if subtasks := SplitTasks(req.Prompt); len(subtasks) > 1 {
			e.logger.Info("fallback proposing task split", "subtasks", len(subtasks))
			return tools.Result{
				Success:  false,
				Error:    fmt.Sprintf("the request looks like %d separate tasks; run them one at a time", len(subtasks)),
				Subtasks: subtasks,
			}
		}
	}

	// 4. Prompt generalization, once, on a provider not yet attempted.
	if generalized := Generalize(req.Prompt); generalized != req.Prompt && !degenerate(generalized) {
		for _, name := range e.media.ProvidersFor(req.Kind) {
			if attempted[name] {
				continue
			}
			strategiesTried = append(strategiesTried, strategyGeneralization)
			e.logger.Info("fallback attempt", "strategy", strategyGeneralization, "provider", name, "prompt", generalized)
			if asset, err := e.media.GenerateWith(ctx, name, req.Kind, generalized); err == nil {
				return succeed(strategyGeneralization, req.Kind, asset)
			}
			break
		}
	}

	reason := req.FailureReason
	if reason == "" {
		reason = "generation failed"
	}
	if len(strategiesTried) == 0 {
		return tools.Fail("no fallback strategy applicable; original failure: " + reason)
	}
	return tools.Fail(fmt.Sprintf(
		"all fallback strategies exhausted (%s); original failure: %s",
		strings.Join(strategiesTried, ", "), reason,
	))
}

func succeed(strategy string, kind media.Kind, asset *media.Asset) tools.Result {
	res := tools.Result{
		Success:  true,
		Data:     fmt.Sprintf("recovered via %s: %s", strategy, asset.URL),
		Provider: asset.Provider,
	}
	switch kind {
	case media.KindImage:
		res.ImageURL = asset.URL
	case media.KindVideo:
		res.VideoURL = asset.URL
	case media.KindAudio:
		res.AudioURL = asset.URL
	}
	return res
}
