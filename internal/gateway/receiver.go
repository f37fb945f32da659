package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

const (
	reconnectBaseDelay = time.Second
	reconnectMaxDelay  = time.Minute
	readDeadline       = 90 * time.Second
	pingInterval       = 30 * time.Second
)

// Inbound is one user message arriving over the websocket.
type Inbound struct {
	ChatID string `json:"chat_id"`
	Sender string `json:"sender,omitempty"`
	Text   string `json:"text"`
}

// Handler processes one inbound message. It is called on the receiver's
// goroutine; long-running work should be handed off.
type Handler func(ctx context.Context, msg Inbound)

// Receiver maintains the websocket connection to the gateway and feeds
// inbound messages to the handler, reconnecting with backoff on any
// failure until ctx is cancelled.
type Receiver struct {
	url     string
	handler Handler
	logger  *slog.Logger
}

// NewReceiver creates a websocket receiver.
func NewReceiver(wsURL string, handler Handler, logger *slog.Logger) *Receiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Receiver{url: wsURL, handler: handler, logger: logger.With("component", "gateway")}
}

// Run blocks until ctx is cancelled, reconnecting as needed.
func (r *Receiver) Run(ctx context.Context) {
	delay := reconnectBaseDelay
	for {
		if err := r.readLoop(ctx); err != nil {
			r.logger.Warn("gateway connection lost", "error", err, "retry_in", delay)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay *= 2
		if delay > reconnectMaxDelay {
			delay = reconnectMaxDelay
		}
	}
}

func (r *Receiver) readLoop(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, r.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	r.logger.Info("gateway connected", "url", r.url)

	// Close the connection when ctx ends so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	go r.pingLoop(ctx, conn)

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readDeadline))
	})
	if err := conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
		return err
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		_ = conn.SetReadDeadline(time.Now().Add(readDeadline))

		var msg Inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			r.logger.Warn("unparseable inbound message", "error", err, "bytes", len(data))
			continue
		}
		if msg.ChatID == "" || msg.Text == "" {
			continue
		}
		r.handler(ctx, msg)
	}
}

func (r *Receiver) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}
}
