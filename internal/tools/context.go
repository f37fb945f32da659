package tools

import "time"

// CallRecord is one entry in the append-only tool call log.
type CallRecord struct {
	Tool      string         `json:"tool"`
	Args      map[string]any `json:"args,omitempty"`
	Success   bool           `json:"success"`
	Error     string         `json:"error,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Asset is one generated media reference.
type Asset struct {
	URL       string    `json:"url"`
	Prompt    string    `json:"prompt,omitempty"`
	Provider  string    `json:"provider,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// AssetLedger tracks generated media by kind, in generation order.
// Entries are appended, never removed, within an invocation; only the
// persistence boundary truncates for storage.
type AssetLedger struct {
	Images []Asset `json:"images,omitempty"`
	Videos []Asset `json:"videos,omitempty"`
	Audio  []Asset `json:"audio,omitempty"`
}

// Context carries per-conversation state through one agent invocation.
//
// It is owned exclusively by the invocation that created it: the loop
// folds tool results in sequentially after each fan-out completes, so
// no locking is needed. Executors receive it read-only.
type Context struct {
	// ChatID is the conversation identity, the key into persistence.
	ChatID string `json:"chat_id"`

	// PreviousResults maps tool name to its most recent Result within
	// the current invocation. It lets later tools consume earlier tools'
	// output and is never persisted.
	PreviousResults map[string]Result `json:"-"`

	// Calls is the append-only tool call log.
	Calls []CallRecord `json:"tool_calls"`

	// Assets is the generated media ledger.
	Assets AssetLedger `json:"generated_assets"`
}

// NewContext creates a fresh, empty context for one conversation.
func NewContext(chatID string) *Context {
	return &Context{
		ChatID:          chatID,
		PreviousResults: make(map[string]Result),
	}
}

// Record folds one tool result into the context: appends to the call
// log, updates PreviousResults, and appends to the asset ledger when
// the result carries a media URL. prompt is the generation prompt used,
// if any, for asset captioning.
func (c *Context) Record(tool string, args map[string]any, res Result) {
	now := time.Now()

	c.Calls = append(c.Calls, CallRecord{
		Tool:      tool,
		Args:      args,
		Success:   res.Success,
		Error:     res.Error,
		Timestamp: now,
	})
	c.PreviousResults[tool] = res

	prompt, _ := args["prompt"].(string)
	if res.ImageURL != "" {
		c.Assets.Images = append(c.Assets.Images, Asset{
			URL: res.ImageURL, Prompt: prompt, Provider: res.Provider, Timestamp: now,
		})
	}
	if res.VideoURL != "" {
		c.Assets.Videos = append(c.Assets.Videos, Asset{
			URL: res.VideoURL, Prompt: prompt, Provider: res.Provider, Timestamp: now,
		})
	}
	if res.AudioURL != "" {
		c.Assets.Audio = append(c.Assets.Audio, Asset{
			URL: res.AudioURL, Prompt: prompt, Provider: res.Provider, Timestamp: now,
		})
	}
}

// LatestImage returns the URL of the most recently generated image, or "".
func (c *Context) LatestImage() string { return latestURL(c.Assets.Images) }

// LatestVideo returns the URL of the most recently generated video, or "".
func (c *Context) LatestVideo() string { return latestURL(c.Assets.Videos) }

// LatestAudio returns the URL of the most recently generated audio clip, or "".
func (c *Context) LatestAudio() string { return latestURL(c.Assets.Audio) }

// ToolsUsed returns the distinct tool names from the call log, in
// first-use order.
func (c *Context) ToolsUsed() []string {
	seen := make(map[string]bool)
	var out []string
	for _, call := range c.Calls {
		if !seen[call.Tool] {
			seen[call.Tool] = true
			out = append(out, call.Tool)
		}
	}
	return out
}

func latestURL(assets []Asset) string {
	if len(assets) == 0 {
		return ""
	}
	return assets[len(assets)-1].URL
}
