// Package media provides pluggable generative media providers.
//
// Each backend implements the [Provider] interface and is registered
// with the [Manager], which routes generation requests by task kind.
// Providers are black boxes to the rest of the system: prompt in,
// asset URL out.
package media

import (
	"context"
	"fmt"
	"log/slog"
)

// Kind is a generative task type.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
)

// ParseKind validates a task kind string.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindImage, KindVideo, KindAudio:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown task kind %q (valid: image, video, audio)", s)
}

// Asset is one generated media artifact.
type Asset struct {
	URL      string `json:"url"`
	Provider string `json:"provider"`
	Kind     Kind   `json:"kind"`
}

// Provider is the interface that generation backends implement.
type Provider interface {
	// Name returns the provider identifier (e.g., "openai", "replicate").
	Name() string

	// Supports reports whether the provider can handle the task kind.
	Supports(kind Kind) bool

	// Generate runs one generation attempt and returns the asset.
	Generate(ctx context.Context, kind Kind, prompt string) (*Asset, error)
}

// Manager holds configured providers and routes generation requests.
// Registration order is the tie-breaker whenever no explicit primary
// is configured for a kind.
type Manager struct {
	providers []Provider
	byName    map[string]Provider
	primary   map[Kind]string
	logger    *slog.Logger
}

// NewManager creates an empty media manager.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		byName:  make(map[string]Provider),
		primary: make(map[Kind]string),
		logger:  logger,
	}
}

// Register adds a provider.
func (m *Manager) Register(p Provider) {
	if _, exists := m.byName[p.Name()]; !exists {
		m.providers = append(m.providers, p)
	}
	m.byName[p.Name()] = p
}

// SetPrimary marks the provider tried first for a kind.
func (m *Manager) SetPrimary(kind Kind, name string) {
	m.primary[kind] = name
}

// Primary returns the primary provider name for a kind: the configured
// one if set, otherwise the first registered provider supporting it.
// Returns "" when no provider supports the kind.
func (m *Manager) Primary(kind Kind) string {
	if name, ok := m.primary[kind]; ok {
		if p, exists := m.byName[name]; exists && p.Supports(kind) {
			return name
		}
	}
	for _, p := range m.providers {
		if p.Supports(kind) {
			return p.Name()
		}
	}
	return ""
}

// ProvidersFor returns the names of all providers supporting a kind,
// primary first, the rest in registration order.
func (m *Manager) ProvidersFor(kind Kind) []string {
	primary := m.Primary(kind)
	var out []string
	if primary != "" {
		out = append(out, primary)
	}
	for _, p := range m.providers {
		if p.Name() != primary && p.Supports(kind) {
			out = append(out, p.Name())
		}
	}
	return out
}

// Generate runs a generation attempt on the primary provider for the kind.
func (m *Manager) Generate(ctx context.Context, kind Kind, prompt string) (*Asset, error) {
	primary := m.Primary(kind)
	if primary == "" {
		return nil, fmt.Errorf("no provider configured for %s generation", kind)
	}
	return m.GenerateWith(ctx, primary, kind, prompt)
}

// GenerateWith runs a generation attempt on a specific named provider.
func (m *Manager) GenerateWith(ctx context.Context, name string, kind Kind, prompt string) (*Asset, error) {
	p, ok := m.byName[name]
	if !ok {
		return nil, fmt.Errorf("media provider %q not configured", name)
	}
	if !p.Supports(kind) {
		return nil, fmt.Errorf("media provider %q does not support %s generation", name, kind)
	}

	m.logger.Debug("generation attempt", "provider", name, "kind", kind, "prompt_len", len(prompt))
	asset, err := p.Generate(ctx, kind, prompt)
	if err != nil {
		m.logger.Warn("generation failed", "provider", name, "kind", kind, "error", err)
		return nil, err
	}
	m.logger.Info("generation succeeded", "provider", name, "kind", kind, "url", asset.URL)
	return asset, nil
}
