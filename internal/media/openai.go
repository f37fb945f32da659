package media

import (
	"context"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider generates images (DALL·E) and speech audio (TTS).
type OpenAIProvider struct {
	client *openai.Client
	files  *FileStore
	voice  openai.SpeechVoice
}

// NewOpenAIProvider creates a provider backed by the given client.
// Speech output is written through files since the API returns bytes,
// not a hosted URL.
func NewOpenAIProvider(client *openai.Client, files *FileStore) *OpenAIProvider {
	return &OpenAIProvider{
		client: client,
		files:  files,
		voice:  openai.VoiceAlloy,
	}
}

// Name implements Provider.
func (p *OpenAIProvider) Name() string { return "openai" }

// Supports implements Provider.
func (p *OpenAIProvider) Supports(kind Kind) bool {
	return kind == KindImage || kind == KindAudio
}

// Generate implements Provider.
func (p *OpenAIProvider) Generate(ctx context.Context, kind Kind, prompt string) (*Asset, error) {
	switch kind {
	case KindImage:
		return p.generateImage(ctx, prompt)
	case KindAudio:
		return p.generateSpeech(ctx, prompt)
	default:
		return nil, fmt.Errorf("openai: unsupported task kind %q", kind)
	}
}

func (p *OpenAIProvider) generateImage(ctx context.Context, prompt string) (*Asset, error) {
	resp, err := p.client.CreateImage(ctx, openai.ImageRequest{
		Model:          openai.CreateImageModelDallE3,
		Prompt:         prompt,
		N:              1,
		Size:           openai.CreateImageSize1024x1024,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	})
	if err != nil {
		return nil, fmt.Errorf("openai image: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return nil, fmt.Errorf("openai image: response contained no image")
	}

	return &Asset{URL: resp.Data[0].URL, Provider: p.Name(), Kind: KindImage}, nil
}

func (p *OpenAIProvider) generateSpeech(ctx context.Context, text string) (*Asset, error) {
	if p.files == nil {
		return nil, fmt.Errorf("openai speech: no asset store configured")
	}

	resp, err := p.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model: openai.TTSModel1,
		Input: text,
		Voice: p.voice,
	})
	if err != nil {
		return nil, fmt.Errorf("openai speech: %w", err)
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("openai speech: read audio: %w", err)
	}

	url, err := p.files.Save("mp3", data)
	if err != nil {
		return nil, fmt.Errorf("openai speech: %w", err)
	}

	return &Asset{URL: url, Provider: p.Name(), Kind: KindAudio}, nil
}
