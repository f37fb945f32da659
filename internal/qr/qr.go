// Package qr renders QR codes as PNG assets.
package qr

import (
	"context"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/aviv90/tasker-agent/internal/media"
	"github.com/aviv90/tasker-agent/internal/tools"
)

const defaultSize = 512

// maxContentLen guards against payloads beyond QR version 40 capacity.
const maxContentLen = 2000

// Generator renders QR codes into the shared asset store.
type Generator struct {
	files *media.FileStore
}

// NewGenerator creates a QR generator writing into files.
func NewGenerator(files *media.FileStore) *Generator {
	return &Generator{files: files}
}

// Generate encodes content as a PNG QR code and returns its public URL.
// size is the image edge in pixels; 0 uses the default.
func (g *Generator) Generate(content string, size int) (string, error) {
	if content == "" {
		return "", fmt.Errorf("qr: content is required")
	}
	if len(content) > maxContentLen {
		return "", fmt.Errorf("qr: content too long (%d bytes, max %d)", len(content), maxContentLen)
	}
	if size <= 0 {
		size = defaultSize
	}

	png, err := qrcode.Encode(content, qrcode.Medium, size)
	if err != nil {
		return "", fmt.Errorf("qr: encode: %w", err)
	}

	url, err := g.files.Save("png", png)
	if err != nil {
		return "", fmt.Errorf("qr: %w", err)
	}
	return url, nil
}

// NewTool returns the create_qr_code tool.
func NewTool(g *Generator) *tools.Tool {
	return &tools.Tool{
		Name:        "create_qr_code",
		Description: "Create a QR code image encoding the given text or URL.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"content": map[string]any{
					"type":        "string",
					"description": "Text or URL to encode.",
				},
				"size": map[string]any{
					"type":        "integer",
					"description": "Image edge length in pixels. Default: 512.",
				},
			},
			"required": []string{"content"},
		},
		Execute: func(_ context.Context, args map[string]any, _ *tools.Context) tools.Result {
			content, _ := args["content"].(string)
			if content == "" {
				return tools.Fail("content is required")
			}

			size := 0
			if s, ok := args["size"].(float64); ok && s > 0 {
				size = int(s)
			}

			url, err := g.Generate(content, size)
			if err != nil {
				return tools.Fail(err.Error())
			}
			return tools.Result{
				Success:  true,
				Data:     "QR code created: " + url,
				ImageURL: url,
			}
		},
	}
}
