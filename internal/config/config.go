// Package config handles tasker-agent configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./config.yaml, ~/.config/tasker-agent/config.yaml, /etc/tasker-agent/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "tasker-agent", "config.yaml"))
	}

	paths = append(paths, "/etc/tasker-agent/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all tasker-agent configuration.
type Config struct {
	Listen   ListenConfig   `yaml:"listen"`
	Model    ModelConfig    `yaml:"model"`
	Agent    AgentConfig    `yaml:"agent"`
	Assets   AssetsConfig   `yaml:"assets"`
	Media    MediaConfig    `yaml:"media"`
	Search   SearchConfig   `yaml:"search"`
	Gateway  GatewayConfig  `yaml:"gateway"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	DataDir  string         `yaml:"data_dir"`
	LogLevel string         `yaml:"log_level"`
}

// ListenConfig defines the API server settings.
type ListenConfig struct {
	Address string `yaml:"address"` // Bind address (default: "" = all interfaces)
	Port    int    `yaml:"port"`
}

// ModelConfig defines the chat model endpoint.
type ModelConfig struct {
	// Name is the model identifier sent on every request.
	Name string `yaml:"name"`
	// APIKey authenticates against the OpenAI-compatible endpoint.
	APIKey string `yaml:"api_key"`
	// BaseURL overrides the default API endpoint. Leave empty for api.openai.com.
	BaseURL string `yaml:"base_url"`
}

// AgentConfig bounds the agent loop.
type AgentConfig struct {
	// MaxIterations caps model-turn/tool-dispatch cycles per request (default 5).
	MaxIterations int `yaml:"max_iterations"`
	// TimeoutSec is the wall-clock budget for one request (default 120).
	TimeoutSec int `yaml:"timeout_sec"`
	// MaxParallelTools bounds concurrent tool calls within one iteration (default 4).
	MaxParallelTools int `yaml:"max_parallel_tools"`
	// ContextMemory enables cross-turn persistence of tool calls and
	// generated assets per chat.
	ContextMemory bool `yaml:"context_memory"`
}

// AssetsConfig defines where generated files land and how they are served.
type AssetsConfig struct {
	// Dir is the local directory for generated files (audio, QR codes).
	Dir string `yaml:"dir"`
	// BaseURL is the public prefix under which Dir is served.
	BaseURL string `yaml:"base_url"`
}

// MediaConfig configures generative media providers.
type MediaConfig struct {
	Replicate ReplicateConfig `yaml:"replicate"`
	// Primary maps a task kind (image, video, audio) to the provider
	// tried first. Unset kinds fall back to registration order.
	Primary map[string]string `yaml:"primary"`
}

// ReplicateConfig holds settings for the Replicate prediction API.
type ReplicateConfig struct {
	APIToken string `yaml:"api_token"`
	// Model versions per task kind.
	ImageVersion string `yaml:"image_version"`
	VideoVersion string `yaml:"video_version"`
	MusicVersion string `yaml:"music_version"`
	// PollIntervalSec between prediction status checks (default 2).
	PollIntervalSec int `yaml:"poll_interval_sec"`
}

// SearchConfig configures web search providers.
type SearchConfig struct {
	Primary string        `yaml:"primary"` // "brave" or "searxng"
	Brave   BraveConfig   `yaml:"brave"`
	SearXNG SearXNGConfig `yaml:"searxng"`
}

// BraveConfig holds Brave Search API settings.
type BraveConfig struct {
	APIKey string `yaml:"api_key"`
}

// SearXNGConfig holds SearXNG instance settings.
type SearXNGConfig struct {
	BaseURL string `yaml:"base_url"`
}

// GatewayConfig defines the outbound chat gateway connection.
type GatewayConfig struct {
	Enabled    bool   `yaml:"enabled"`
	BaseURL    string `yaml:"base_url"`
	InstanceID string `yaml:"instance_id"`
	APIToken   string `yaml:"api_token"`
	// WSUrl is the websocket endpoint for inbound message notifications.
	// If empty, only the /webhook HTTP endpoint receives messages.
	WSUrl string `yaml:"ws_url"`
}

// MQTTConfig defines the optional automation event publisher.
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"` // e.g. mqtt://host:1883 or mqtts://host:8883
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topic_prefix"` // default "tasker-agent"
}

// Load reads configuration from a YAML file. Values of the form
// ${VAR} are expanded from the environment before parsing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	return cfg, nil
}

// Default returns a configuration with sane defaults.
func Default() *Config {
	cfg := &Config{
		Listen:  ListenConfig{Port: 8080},
		Model:   ModelConfig{Name: "gpt-4o"},
		DataDir: "data",
	}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Agent.MaxIterations <= 0 {
		c.Agent.MaxIterations = 5
	}
	if c.Agent.TimeoutSec <= 0 {
		c.Agent.TimeoutSec = 120
	}
	if c.Agent.MaxParallelTools <= 0 {
		c.Agent.MaxParallelTools = 4
	}
	if c.Media.Replicate.PollIntervalSec <= 0 {
		c.Media.Replicate.PollIntervalSec = 2
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = "tasker-agent"
	}
	if c.Assets.Dir == "" {
		c.Assets.Dir = filepath.Join(c.DataDir, "assets")
	}
}

// Timeout returns the per-request wall-clock budget as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Agent.TimeoutSec) * time.Second
}
