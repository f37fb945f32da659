// Package announce publishes agent lifecycle and request events to an
// MQTT broker, so dashboards and automations can observe the assistant
// without polling its API.
package announce

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"
)

// Config holds MQTT broker settings.
type Config struct {
	Broker      string
	Username    string
	Password    string
	TopicPrefix string
	ClientID    string
}

// RequestEvent summarizes one completed request for observers.
type RequestEvent struct {
	ChatID     string   `json:"chat_id"`
	Success    bool     `json:"success"`
	Timeout    bool     `json:"timeout,omitempty"`
	ToolsUsed  []string `json:"tools_used,omitempty"`
	Iterations int      `json:"iterations,omitempty"`
	DurationMS int64    `json:"duration_ms"`
}

// Publisher manages the broker connection and exposes typed publish
// helpers. All publishes are best-effort: a down broker never affects
// request handling.
type Publisher struct {
	cfg    Config
	logger *slog.Logger
	cm     *autopaho.ConnectionManager
}

// New creates a Publisher but does not connect; call [Publisher.Start].
func New(cfg Config, logger *slog.Logger) *Publisher {
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "tasker-agent"
	}
	if cfg.ClientID == "" {
		cfg.ClientID = cfg.TopicPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{cfg: cfg, logger: logger.With("component", "announce")}
}

// Start connects to the broker with automatic reconnection. The will
// message flips availability to offline if the process dies.
func (p *Publisher) Start(ctx context.Context) error {
	brokerURL, err := url.Parse(p.cfg.Broker)
	if err != nil {
		return fmt.Errorf("parse mqtt broker URL: %w", err)
	}

	pahoCfg := autopaho.ClientConfig{
		ServerUrls:      []*url.URL{brokerURL},
		KeepAlive:       30,
		ConnectUsername: p.cfg.Username,
		ConnectPassword: []byte(p.cfg.Password),
		WillMessage: &paho.WillMessage{
			Topic:   p.availabilityTopic(),
			Payload: []byte("offline"),
			QoS:     1,
			Retain:  true,
		},
		OnConnectionUp: func(cm *autopaho.ConnectionManager, _ *paho.Connack) {
			p.logger.Info("mqtt connected", "broker", p.cfg.Broker)
			p.publish(ctx, cm, p.availabilityTopic(), []byte("online"), true)
		},
		OnConnectError: func(err error) {
			p.logger.Warn("mqtt connection error", "error", err)
		},
		ClientConfig: paho.ClientConfig{
			ClientID: p.cfg.ClientID,
		},
	}

	if brokerURL.Scheme == "mqtts" || brokerURL.Scheme == "ssl" {
		pahoCfg.TlsCfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	cm, err := autopaho.NewConnection(ctx, pahoCfg)
	if err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	p.cm = cm

	connCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := cm.AwaitConnection(connCtx); err != nil {
		p.logger.Warn("mqtt initial connection timed out, retrying in background", "error", err)
	}
	return nil
}

// Stop flips availability to offline and disconnects.
func (p *Publisher) Stop(ctx context.Context) error {
	if p.cm == nil {
		return nil
	}
	p.publish(ctx, p.cm, p.availabilityTopic(), []byte("offline"), true)
	return p.cm.Disconnect(ctx)
}

// AnnounceRequest publishes a completed-request event.
func (p *Publisher) AnnounceRequest(ctx context.Context, ev RequestEvent) {
	if p.cm == nil {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		p.logger.Warn("encode request event", "error", err)
		return
	}
	p.publish(ctx, p.cm, p.cfg.TopicPrefix+"/requests", payload, false)
}

func (p *Publisher) publish(ctx context.Context, cm *autopaho.ConnectionManager, topic string, payload []byte, retain bool) {
	_, err := cm.Publish(ctx, &paho.Publish{
		Topic:   topic,
		Payload: payload,
		QoS:     1,
		Retain:  retain,
	})
	if err != nil {
		p.logger.Warn("mqtt publish failed", "topic", topic, "error", err)
	}
}

func (p *Publisher) availabilityTopic() string {
	return p.cfg.TopicPrefix + "/availability"
}
