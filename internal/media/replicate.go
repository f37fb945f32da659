package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aviv90/tasker-agent/internal/httpkit"
)

const replicateAPIURL = "https://api.replicate.com/v1"

// ReplicateConfig holds Replicate prediction API settings.
type ReplicateConfig struct {
	APIToken string
	// Model versions per task kind. A kind with an empty version is
	// reported as unsupported.
	ImageVersion string
	VideoVersion string
	MusicVersion string
	// PollInterval between prediction status checks (default 2s).
	PollInterval time.Duration
	// BaseURL overrides the API endpoint, for tests.
	BaseURL string
}

// ReplicateProvider generates media through Replicate's asynchronous
// prediction API: create a prediction, then long-poll its status until
// it settles. Polling honors ctx so a cancelled request abandons the
// prediction promptly.
type ReplicateProvider struct {
	cfg    ReplicateConfig
	http   *http.Client
	logger *slog.Logger
}

// NewReplicateProvider creates a Replicate-backed provider.
func NewReplicateProvider(cfg ReplicateConfig, logger *slog.Logger) *ReplicateProvider {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = replicateAPIURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReplicateProvider{
		cfg:    cfg,
		logger: logger.With("provider", "replicate"),
		// Generations take seconds to minutes; no global timeout,
		// ctx deadlines control cancellation.
		http: httpkit.NewClient(httpkit.WithTimeout(0)),
	}
}

// Name implements Provider.
func (p *ReplicateProvider) Name() string { return "replicate" }

// Supports implements Provider.
func (p *ReplicateProvider) Supports(kind Kind) bool {
	return p.version(kind) != ""
}

func (p *ReplicateProvider) version(kind Kind) string {
	switch kind {
	case KindImage:
		return p.cfg.ImageVersion
	case KindVideo:
		return p.cfg.VideoVersion
	case KindAudio:
		return p.cfg.MusicVersion
	}
	return ""
}

type replicatePrediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  string          `json:"error"`
}

// Generate implements Provider.
func (p *ReplicateProvider) Generate(ctx context.Context, kind Kind, prompt string) (*Asset, error) {
	version := p.version(kind)
	if version == "" {
		return nil, fmt.Errorf("replicate: no model configured for %s generation", kind)
	}

	pred, err := p.createPrediction(ctx, version, prompt)
	if err != nil {
		return nil, err
	}

	p.logger.Debug("prediction created", "id", pred.ID, "kind", kind)

	pred, err = p.waitForPrediction(ctx, pred)
	if err != nil {
		return nil, err
	}

	url, err := firstOutputURL(pred.Output)
	if err != nil {
		return nil, fmt.Errorf("replicate: prediction %s: %w", pred.ID, err)
	}

	return &Asset{URL: url, Provider: p.Name(), Kind: kind}, nil
}

func (p *ReplicateProvider) createPrediction(ctx context.Context, version, prompt string) (*replicatePrediction, error) {
	body, err := json.Marshal(map[string]any{
		"version": version,
		"input":   map[string]any{"prompt": prompt},
	})
	if err != nil {
		return nil, fmt.Errorf("replicate: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/predictions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("replicate: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIToken)
	req.Header.Set("Content-Type", "application/json")

	return p.doPrediction(req)
}

func (p *ReplicateProvider) getPrediction(ctx context.Context, id string) (*replicatePrediction, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.BaseURL+"/predictions/"+id, nil)
	if err != nil {
		return nil, fmt.Errorf("replicate: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIToken)

	return p.doPrediction(req)
}

func (p *ReplicateProvider) doPrediction(req *http.Request) (*replicatePrediction, error) {
	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("replicate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg := httpkit.ReadErrorBody(resp.Body, 2048)
		return nil, fmt.Errorf("replicate: HTTP %d: %s", resp.StatusCode, msg)
	}

	var pred replicatePrediction
	if err := json.NewDecoder(resp.Body).Decode(&pred); err != nil {
		return nil, fmt.Errorf("replicate: decode response: %w", err)
	}
	return &pred, nil
}

// waitForPrediction polls until the prediction settles or ctx expires.
func (p *ReplicateProvider) waitForPrediction(ctx context.Context, pred *replicatePrediction) (*replicatePrediction, error) {
	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		switch pred.Status {
		case "succeeded":
			return pred, nil
		case "failed", "canceled":
			if pred.Error != "" {
				return nil, fmt.Errorf("replicate: prediction %s %s: %s", pred.ID, pred.Status, pred.Error)
			}
			return nil, fmt.Errorf("replicate: prediction %s %s", pred.ID, pred.Status)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("replicate: prediction %s abandoned: %w", pred.ID, ctx.Err())
		case <-ticker.C:
		}

		next, err := p.getPrediction(ctx, pred.ID)
		if err != nil {
			return nil, err
		}
		pred = next
	}
}

// firstOutputURL extracts the artifact URL from a prediction output,
// which is either a JSON string or an array of strings depending on
// the model.
func firstOutputURL(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", fmt.Errorf("empty output")
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil && single != "" {
		return single, nil
	}

	var many []string
	if err := json.Unmarshal(raw, &many); err == nil && len(many) > 0 && many[0] != "" {
		return many[0], nil
	}

	return "", fmt.Errorf("unrecognized output shape: %s", string(raw))
}
