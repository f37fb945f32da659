// Package tools provides the tool registry and execution framework.
//
// Every capability exposed to the model is a [Tool]: a named executor
// with a JSON-Schema parameter declaration and a uniform [Result]
// contract. The agent loop owns all context mutation; executors only
// read the context and return a Result.
package tools

import (
	"context"
	"fmt"
	"runtime/debug"
)

// Tool represents a callable tool.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`

	// Execute runs the tool. It must report failure through the Result
	// rather than panicking; the registry converts panics into failure
	// Results as a last line of defense.
	Execute func(ctx context.Context, args map[string]any, tc *Context) Result `json:"-"`
}

// Registry holds available tools in registration order.
type Registry struct {
	tools map[string]*Tool
	order []string
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Tool)}
}

// Register adds a tool. Re-registering a name replaces the executor but
// keeps its original position in the declaration order.
func (r *Registry) Register(t *Tool) {
	if _, exists := r.tools[t.Name]; !exists {
		r.order = append(r.order, t.Name)
	}
	r.tools[t.Name] = t
}

// Get retrieves a tool by name. Returns nil if not registered.
func (r *Registry) Get(name string) *Tool {
	return r.tools[name]
}

// Names returns all tool names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Declarations returns all tools in the OpenAI function-call JSON shape,
// in registration order, for advertising to the model on every turn.
func (r *Registry) Declarations() []map[string]any {
	out := make([]map[string]any, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		out = append(out, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  t.Parameters,
			},
		})
	}
	return out
}

// Execute runs a tool by name. It never panics and never returns an
// error: unknown tools, missing required arguments, and executor panics
// all surface as failure Results so the model can react and the loop
// keeps running.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any, tc *Context) (res Result) {
	tool := r.tools[name]
	if tool == nil {
		return Fail(fmt.Sprintf("unknown tool: %s", name))
	}

	if missing := missingRequired(tool.Parameters, args); missing != "" {
		return Fail(fmt.Sprintf("%s: missing required argument %q", name, missing))
	}

	defer func() {
		if rec := recover(); rec != nil {
			res = Fail(fmt.Sprintf("%s: internal tool error: %v", name, rec))
			res.stack = string(debug.Stack())
		}
	}()

	return tool.Execute(ctx, args, tc)
}

// missingRequired returns the first required parameter absent from args,
// or "" when all required parameters are present.
func missingRequired(schema, args map[string]any) string {
	req, ok := schema["required"]
	if !ok {
		return ""
	}

	check := func(key string) string {
		if v, present := args[key]; !present || v == nil {
			return key
		}
		if s, isStr := args[key].(string); isStr && s == "" {
			return key
		}
		return ""
	}

	switch names := req.(type) {
	case []string:
		for _, key := range names {
			if m := check(key); m != "" {
				return m
			}
		}
	case []any:
		for _, k := range names {
			if key, isStr := k.(string); isStr {
				if m := check(key); m != "" {
					return m
				}
			}
		}
	}
	return ""
}
