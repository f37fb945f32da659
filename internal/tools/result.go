package tools

import "encoding/json"

// Result is the uniform outcome of a tool execution.
//
// A tool sets Success=false and Error on failure instead of panicking.
// Media tools populate the matching URL field so the loop can track
// generated assets; Provider records which backend produced them.
type Result struct {
	Success bool   `json:"success"`
	Data    string `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`

	ImageURL string `json:"image_url,omitempty"`
	VideoURL string `json:"video_url,omitempty"`
	AudioURL string `json:"audio_url,omitempty"`
	Provider string `json:"provider,omitempty"`

	// Subtasks carries a non-executing decomposition proposal from the
	// fallback engine's task-split strategy.
	Subtasks []string `json:"subtasks,omitempty"`

	// stack holds a panic stack trace for logging. Never serialized.
	stack string
}

// OK returns a successful Result with the given data payload.
func OK(data string) Result {
	return Result{Success: true, Data: data}
}

// Fail returns a failed Result with the given error message.
func Fail(msg string) Result {
	return Result{Success: false, Error: msg}
}

// Stack returns the captured panic stack trace, if any.
func (r Result) Stack() string { return r.stack }

// Payload renders the Result as JSON for feeding back to the model.
func (r Result) Payload() string {
	out, err := json.Marshal(r)
	if err != nil {
		if r.Success {
			return r.Data
		}
		return r.Error
	}
	return string(out)
}
