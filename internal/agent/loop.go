// Package agent implements the tool-calling agent loop.
//
// One invocation drives a bounded conversation with the model: each
// turn either yields a final answer or a batch of tool calls, which are
// dispatched concurrently and folded back into the conversation before
// the next turn. The loop owns all mutation of the per-conversation
// [tools.Context].
package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aviv90/tasker-agent/internal/llm"
	"github.com/aviv90/tasker-agent/internal/tools"
)

const (
	defaultMaxIterations = 5
	defaultMaxParallel   = 4

	defaultSystemPrompt = "You are a capable personal assistant with tools for web search, page reading, " +
		"media generation, and image analysis. Use tools when they help; answer directly when they don't. " +
		"If a generation tool fails, you may call retry_with_fallback once. Reply in the user's language."
)

// Config bounds one loop instance.
type Config struct {
	Model            string
	MaxIterations    int
	MaxParallelTools int
	SystemPrompt     string
}

// Request is one agent invocation.
type Request struct {
	ChatID  string
	Text    string
	History []llm.Message

	// Language is the detected language code of the user's text. When
	// set it is surfaced to the model as a reply-language hint.
	Language string

	// Context carries the cross-turn tool call log and asset ledger.
	// A nil Context gets a fresh one.
	Context *tools.Context
}

// Response is the caller-facing result of one invocation.
type Response struct {
	Success    bool     `json:"success"`
	Text       string   `json:"text,omitempty"`
	ImageURL   string   `json:"image_url,omitempty"`
	VideoURL   string   `json:"video_url,omitempty"`
	AudioURL   string   `json:"audio_url,omitempty"`
	ToolsUsed  []string `json:"tools_used"`
	Iterations int      `json:"iterations"`
	Error      string   `json:"error,omitempty"`
}

// Loop is the core agent execution loop.
type Loop struct {
	logger        *slog.Logger
	llm           llm.Client
	registry      *tools.Registry
	model         string
	maxIterations int
	maxParallel   int
	systemPrompt  string
}

// NewLoop creates an agent loop. Zero Config fields take defaults.
func NewLoop(client llm.Client, registry *tools.Registry, cfg Config, logger *slog.Logger) *Loop {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = defaultMaxIterations
	}
	if cfg.MaxParallelTools <= 0 {
		cfg.MaxParallelTools = defaultMaxParallel
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = defaultSystemPrompt
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		logger:        logger,
		llm:           client,
		registry:      registry,
		model:         cfg.Model,
		maxIterations: cfg.MaxIterations,
		maxParallel:   cfg.MaxParallelTools,
		systemPrompt:  cfg.SystemPrompt,
	}
}

// Run executes one agent invocation. Tool failures and the iteration
// cap surface as structured responses; only a broken model transport
// returns an error.
func (l *Loop) Run(ctx context.Context, req *Request) (*Response, error) {
	tc := req.Context
	if tc == nil {
		tc = tools.NewContext(req.ChatID)
	}

	system := l.systemPrompt
	if req.Language != "" {
		system += fmt.Sprintf(" The user's language code is %q.", req.Language)
	}

	messages := make([]llm.Message, 0, len(req.History)+2)
	messages = append(messages, llm.Message{Role: "system", Content: system})
	messages = append(messages, req.History...)
	messages = append(messages, llm.Message{Role: "user", Content: req.Text})

	decls := l.registry.Declarations()

	l.logger.Info("agent loop started",
		"chat_id", req.ChatID,
		"history", len(req.History),
		"tools", len(decls),
	)

	for iter := 1; iter <= l.maxIterations; iter++ {
		resp, err := l.llm.Chat(ctx, l.model, messages, decls)
		if err != nil {
			return nil, fmt.Errorf("model turn %d: %w", iter, err)
		}

		if !resp.HasToolCalls() {
			text := CleanFinalAnswer(resp.Message.Content)
			l.logger.Info("agent loop completed",
				"chat_id", req.ChatID,
				"iterations", iter,
				"tools_used", len(tc.ToolsUsed()),
			)
			return &Response{
				Success:    true,
				Text:       text,
				ImageURL:   tc.LatestImage(),
				VideoURL:   tc.LatestVideo(),
				AudioURL:   tc.LatestAudio(),
				ToolsUsed:  tc.ToolsUsed(),
				Iterations: iter,
			}, nil
		}

		l.logger.Debug("dispatching tool calls",
			"chat_id", req.ChatID,
			"iteration", iter,
			"calls", len(resp.Message.ToolCalls),
		)

		messages = append(messages, resp.Message)

		// Fold the complete batch before the next model turn; the model
		// never sees a partial iteration.
		for _, out := range l.dispatch(ctx, resp.Message.ToolCalls, tc) {
			tc.Record(out.call.Name, out.call.Arguments, out.result)
			if !out.result.Success {
				l.logger.Warn("tool failed",
					"tool", out.call.Name,
					"error", out.result.Error,
				)
				if stack := out.result.Stack(); stack != "" {
					l.logger.Error("tool panic", "tool", out.call.Name, "stack", stack)
				}
			}
			messages = append(messages, llm.Message{
				Role:       "tool",
				Content:    out.result.Payload(),
				ToolCallID: out.call.ID,
			})
		}
	}

	l.logger.Warn("iteration cap reached",
		"chat_id", req.ChatID,
		"max_iterations", l.maxIterations,
	)
	return &Response{
		Success:    false,
		Error:      "I couldn't finish that request; please rephrase or break it into smaller steps.",
		ToolsUsed:  tc.ToolsUsed(),
		Iterations: l.maxIterations,
	}, nil
}

type outcome struct {
	call   llm.ToolCall
	result tools.Result
}

// dispatch runs one iteration's tool calls concurrently, bounded by
// maxParallel, and returns outcomes in completion order.
func (l *Loop) dispatch(ctx context.Context, calls []llm.ToolCall, tc *tools.Context) []outcome {
	sem := make(chan struct{}, l.maxParallel)
	results := make(chan outcome, len(calls))

	for _, call := range calls {
		go func(call llm.ToolCall) {
			sem <- struct{}{}
			defer func() { <-sem }()
			results <- outcome{
				call:   call,
				result: l.registry.Execute(ctx, call.Name, call.Arguments, tc),
			}
		}(call)
	}

	out := make([]outcome, 0, len(calls))
	for range calls {
		out = append(out, <-results)
	}
	return out
}
