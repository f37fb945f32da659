// Package orchestrator coordinates one top-level request: planning,
// context hydration, the agent loop (single or multi-step), the
// wall-clock deadline, and persistence of the outcome.
package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/aviv90/tasker-agent/internal/agent"
	"github.com/aviv90/tasker-agent/internal/lang"
	"github.com/aviv90/tasker-agent/internal/llm"
	"github.com/aviv90/tasker-agent/internal/memory"
	"github.com/aviv90/tasker-agent/internal/planner"
	"github.com/aviv90/tasker-agent/internal/tools"
)

const defaultTimeout = 2 * time.Minute

// Result is the caller-facing outcome of one request.
type Result struct {
	Success    bool     `json:"success"`
	Text       string   `json:"text,omitempty"`
	ImageURL   string   `json:"image_url,omitempty"`
	VideoURL   string   `json:"video_url,omitempty"`
	AudioURL   string   `json:"audio_url,omitempty"`
	ToolsUsed  []string `json:"tools_used"`
	Iterations int      `json:"iterations,omitempty"`
	Error      string   `json:"error,omitempty"`
	Timeout    bool     `json:"timeout,omitempty"`
}

// Observer is notified after every handled request, successful or not.
// Used for event publishing; observers must not block.
type Observer interface {
	RequestHandled(ctx context.Context, chatID string, res *Result, elapsed time.Duration)
}

// Orchestrator drives requests through planning and the agent loop.
type Orchestrator struct {
	loop     *agent.Loop
	planner  planner.Planner
	memory   *memory.Manager
	timeout  time.Duration
	logger   *slog.Logger
	observer Observer
}

// New creates an orchestrator. A zero timeout takes the default.
func New(loop *agent.Loop, p planner.Planner, mem *memory.Manager, timeout time.Duration, logger *slog.Logger) *Orchestrator {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		loop:    loop,
		planner: p,
		memory:  mem,
		timeout: timeout,
		logger:  logger,
	}
}

// SetObserver registers an observer for handled requests.
func (o *Orchestrator) SetObserver(obs Observer) {
	o.observer = obs
}

// Handle processes one request end to end. The whole invocation races
// a single wall-clock deadline; on expiry the in-flight work is
// abandoned and a structured timeout result is returned promptly.
//
// The worker goroutine owns the agent context exclusively. Handle never
// touches it, even on timeout: the worker persists the partial context
// itself once the loop unwinds, and the timeout result reports the
// tools-used snapshot the worker sent right after hydration.
func (o *Orchestrator) Handle(ctx context.Context, chatID, text string) *Result {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	done := make(chan *Result, 1)
	prior := make(chan []string, 1)
	go func() {
		done <- o.handle(ctx, chatID, text, prior)
	}()

	select {
	case res := <-done:
		o.notify(chatID, res, time.Since(start))
		return res
	case <-ctx.Done():
		var toolsUsed []string
		select {
		case toolsUsed = <-prior:
		default:
		}
		o.logger.Warn("request timed out",
			"chat_id", chatID,
			"timeout", o.timeout,
			"tools_used", toolsUsed,
		)
		res := &Result{
			Success:   false,
			Timeout:   true,
			Error:     "the request took too long and was abandoned",
			ToolsUsed: toolsUsed,
		}
		o.notify(chatID, res, time.Since(start))
		return res
	}
}

func (o *Orchestrator) notify(chatID string, res *Result, elapsed time.Duration) {
	if o.observer == nil {
		return
	}
	// Detached context: the request's deadline may already be gone.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	o.observer.RequestHandled(ctx, chatID, res, elapsed)
}

// handle hydrates the agent context, runs the request, and persists the
// outcome. It is the only goroutine touching the context; prior receives
// one tools-used snapshot as soon as hydration completes.
func (o *Orchestrator) handle(ctx context.Context, chatID, text string, prior chan<- []string) *Result {
	language := lang.Detect(text)

	// Planning is a model round trip; context and history hydration are
	// store reads. They are independent, so overlap them.
	planCh := make(chan planner.Plan, 1)
	go func() { planCh <- o.planner.Plan(ctx, text) }()

	tc := o.memory.LoadPrevious(ctx, chatID)
	if tc == nil {
		tc = o.memory.CreateInitial(chatID)
	}
	prior <- tc.ToolsUsed()
	history := o.memory.History(ctx, chatID)
	plan := <-planCh

	var res *Result
	if plan.IsMultiStep && !plan.Fallback && len(plan.Steps) > 1 {
		res = o.runSteps(ctx, chatID, plan.Steps, history, language, tc)
	} else {
		res = o.runSingle(ctx, chatID, text, history, language, tc)
	}

	switch {
	case ctx.Err() != nil:
		// The caller already returned a timeout result. Best-effort
		// persistence of whatever partial context exists, on a detached
		// context because the request's own deadline has expired.
		saveCtx, saveCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer saveCancel()
		o.memory.Save(saveCtx, chatID, tc)
	case res.Success:
		o.memory.Save(ctx, chatID, tc)
		o.memory.RememberExchange(ctx, chatID, text, res.Text)
	}
	return res
}

func (o *Orchestrator) runSingle(ctx context.Context, chatID, text string, history []llm.Message, language string, tc *tools.Context) *Result {
	resp, err := o.loop.Run(ctx, &agent.Request{
		ChatID:   chatID,
		Text:     text,
		History:  history,
		Language: language,
		Context:  tc,
	})
	if err != nil {
		o.logger.Error("agent loop failed", "chat_id", chatID, "error", err)
		return &Result{
			Success:   false,
			Error:     "something went wrong while processing the request",
			ToolsUsed: tc.ToolsUsed(),
		}
	}
	return fromResponse(resp)
}

func fromResponse(resp *agent.Response) *Result {
	return &Result{
		Success:    resp.Success,
		Text:       resp.Text,
		ImageURL:   resp.ImageURL,
		VideoURL:   resp.VideoURL,
		AudioURL:   resp.AudioURL,
		ToolsUsed:  resp.ToolsUsed,
		Iterations: resp.Iterations,
		Error:      resp.Error,
	}
}
