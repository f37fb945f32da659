package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/aviv90/tasker-agent/internal/agent"
	"github.com/aviv90/tasker-agent/internal/llm"
	"github.com/aviv90/tasker-agent/internal/tools"
)

// runSteps executes plan steps strictly sequentially through the same
// shared context, so later steps can reach artifacts produced by
// earlier ones. A failed step is reported in its place in the combined
// answer but does not abort the steps that follow; independent steps
// still run.
func (o *Orchestrator) runSteps(ctx context.Context, chatID string, steps []string, history []llm.Message, language string, tc *tools.Context) *Result {
	o.logger.Info("running multi-step plan", "chat_id", chatID, "steps", len(steps))

	var (
		parts      []string
		iterations int
		succeeded  int
	)

	for i, step := range steps {
		if ctx.Err() != nil {
			break
		}

		resp, err := o.loop.Run(ctx, &agent.Request{
			ChatID:   chatID,
			Text:     step,
			History:  history,
			Language: language,
			Context:  tc,
		})
		if err != nil {
			o.logger.Error("step failed", "chat_id", chatID, "step", i+1, "error", err)
			parts = append(parts, fmt.Sprintf("Step %d failed: %s", i+1, step))
			continue
		}

		iterations += resp.Iterations
		if resp.Success {
			succeeded++
			if resp.Text != "" {
				parts = append(parts, resp.Text)
			}
		} else {
			parts = append(parts, fmt.Sprintf("Step %d failed: %s", i+1, resp.Error))
		}
	}

	res := &Result{
		Success:    succeeded > 0,
		Text:       strings.Join(parts, "\n\n"),
		ImageURL:   tc.LatestImage(),
		VideoURL:   tc.LatestVideo(),
		AudioURL:   tc.LatestAudio(),
		ToolsUsed:  tc.ToolsUsed(),
		Iterations: iterations,
	}
	if succeeded == 0 {
		res.Error = "none of the planned steps completed"
	}
	return res
}
