package media

import (
	"context"
	"fmt"

	"github.com/aviv90/tasker-agent/internal/tools"
)

func promptArg(args map[string]any) (string, bool) {
	p, ok := args["prompt"].(string)
	return p, ok && p != ""
}

// generationTool builds one tool over the manager for a single kind.
// An explicit "provider" argument overrides the primary.
func generationTool(m *Manager, kind Kind, name, description, promptDesc string) *tools.Tool {
	return &tools.Tool{
		Name:        name,
		Description: description,
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"prompt": map[string]any{
					"type":        "string",
					"description": promptDesc,
				},
				"provider": map[string]any{
					"type":        "string",
					"description": "Optional provider override (e.g. \"openai\", \"replicate\").",
				},
			},
			"required": []string{"prompt"},
		},
		Execute: func(ctx context.Context, args map[string]any, tc *tools.Context) tools.Result {
			prompt, ok := promptArg(args)
			if !ok {
				return tools.Fail("prompt is required")
			}

			var asset *Asset
			var err error
			if override, _ := args["provider"].(string); override != "" {
				asset, err = m.GenerateWith(ctx, override, kind, prompt)
			} else {
				asset, err = m.Generate(ctx, kind, prompt)
			}
			if err != nil {
				return tools.Fail(err.Error())
			}

			res := tools.Result{
				Success:  true,
				Data:     fmt.Sprintf("Generated %s: %s", kind, asset.URL),
				Provider: asset.Provider,
			}
			switch kind {
			case KindImage:
				res.ImageURL = asset.URL
			case KindVideo:
				res.VideoURL = asset.URL
			case KindAudio:
				res.AudioURL = asset.URL
			}
			return res
		},
	}
}

// NewImageTool returns the create_image tool.
func NewImageTool(m *Manager) *tools.Tool {
	return generationTool(m, KindImage, "create_image",
		"Generate an image from a text description.",
		"Detailed description of the image to generate.")
}

// NewVideoTool returns the create_video tool.
func NewVideoTool(m *Manager) *tools.Tool {
	return generationTool(m, KindVideo, "create_video",
		"Generate a short video clip from a text description.",
		"Description of the video to generate.")
}

// NewMusicTool returns the create_music tool.
func NewMusicTool(m *Manager) *tools.Tool {
	return generationTool(m, KindAudio, "create_music",
		"Generate a music or audio clip from a text description.",
		"Description of the music to generate (genre, mood, instruments).")
}

// NewSpeechTool returns the text_to_speech tool. Unlike create_music it
// renders the given text verbatim rather than interpreting a prompt.
func NewSpeechTool(speaker Provider) *tools.Tool {
	return &tools.Tool{
		Name:        "text_to_speech",
		Description: "Convert text to spoken audio.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"prompt": map[string]any{
					"type":        "string",
					"description": "Text to speak aloud, verbatim.",
				},
			},
			"required": []string{"prompt"},
		},
		Execute: func(ctx context.Context, args map[string]any, tc *tools.Context) tools.Result {
			text, ok := promptArg(args)
			if !ok {
				return tools.Fail("prompt is required")
			}

			asset, err := speaker.Generate(ctx, KindAudio, text)
			if err != nil {
				return tools.Fail(err.Error())
			}
			return tools.Result{
				Success:  true,
				Data:     "Generated speech audio: " + asset.URL,
				AudioURL: asset.URL,
				Provider: asset.Provider,
			}
		},
	}
}

// NewAnalyzeTool returns the analyze_image tool. Without an explicit
// image_url it falls back to the most recent image in the conversation,
// so "what's in that picture?" works after a create_image turn.
func NewAnalyzeTool(a *Analyzer) *tools.Tool {
	return &tools.Tool{
		Name:        "analyze_image",
		Description: "Answer a question about an image. Defaults to the most recently generated image when no URL is given.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"image_url": map[string]any{
					"type":        "string",
					"description": "URL of the image to analyze. Optional.",
				},
				"question": map[string]any{
					"type":        "string",
					"description": "What to find out about the image. Optional; defaults to a general description.",
				},
			},
		},
		Execute: func(ctx context.Context, args map[string]any, tc *tools.Context) tools.Result {
			url, _ := args["image_url"].(string)
			if url == "" && tc != nil {
				url = tc.LatestImage()
			}
			if url == "" {
				return tools.Fail("no image to analyze: provide image_url or generate an image first")
			}

			question, _ := args["question"].(string)
			answer, err := a.Analyze(ctx, url, question)
			if err != nil {
				return tools.Fail(err.Error())
			}
			return tools.OK(answer)
		},
	}
}

// NewMediaPostTool returns the create_media_post meta-tool: one call
// produces a matching image and narration audio for a topic. Both
// generations must succeed; a partial post is reported as a failure.
func NewMediaPostTool(m *Manager, speaker Provider) *tools.Tool {
	return &tools.Tool{
		Name:        "create_media_post",
		Description: "Create a complete media post: an image plus narration audio for the same topic.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"prompt": map[string]any{
					"type":        "string",
					"description": "Topic of the post; drives both the image and the narration.",
				},
				"narration": map[string]any{
					"type":        "string",
					"description": "Exact narration text. Optional; defaults to the prompt.",
				},
			},
			"required": []string{"prompt"},
		},
		Execute: func(ctx context.Context, args map[string]any, tc *tools.Context) tools.Result {
			prompt, ok := promptArg(args)
			if !ok {
				return tools.Fail("prompt is required")
			}
			narration, _ := args["narration"].(string)
			if narration == "" {
				narration = prompt
			}

			image, err := m.Generate(ctx, KindImage, prompt)
			if err != nil {
				return tools.Fail("media post image failed: " + err.Error())
			}
			audio, err := speaker.Generate(ctx, KindAudio, narration)
			if err != nil {
				return tools.Fail("media post narration failed: " + err.Error())
			}

			return tools.Result{
				Success:  true,
				Data:     fmt.Sprintf("Media post ready. Image: %s Audio: %s", image.URL, audio.URL),
				ImageURL: image.URL,
				AudioURL: audio.URL,
				Provider: image.Provider,
			}
		},
	}
}
