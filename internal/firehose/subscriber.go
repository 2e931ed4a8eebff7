// Package firehose captures raw post records from a websocket stream. Each
// message is one newline-delimited record, delivered untouched so the
// normalizer stays the single place that interprets payloads.
package firehose

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

const reconnectDelay = 5 * time.Second

// RecordHandler receives one raw record per firehose message.
type RecordHandler func(record []byte) error

// Subscriber connects to a websocket record stream and forwards messages to
// a handler. It reconnects on transient errors.
type Subscriber struct {
	url     string
	handler RecordHandler
	logger  *slog.Logger
}

// NewSubscriber creates a firehose subscriber.
func NewSubscriber(url string, handler RecordHandler, logger *slog.Logger) *Subscriber {
	return &Subscriber{url: url, handler: handler, logger: logger}
}

// Start consumes the stream until the context is cancelled. Connection
// errors trigger a backoff and reconnect; handler errors are fatal since
// they mean records would be lost.
func (s *Subscriber) Start(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := s.subscribe(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				s.logger.Error("stream connection error, reconnecting", "error", err)
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(reconnectDelay):
				}
			}
		}
	}
}

func (s *Subscriber) subscribe(ctx context.Context) error {
	s.logger.Info("connecting to record stream", "url", s.url)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial stream: %w", err)
	}
	defer conn.Close()

	s.logger.Info("connected to record stream")

	var received int64
	lastStatsLog := time.Now()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read message: %w", err)
		}

		if err := s.handler(message); err != nil {
			return fmt.Errorf("handle record: %w", err)
		}
		received++

		if time.Since(lastStatsLog) >= 30*time.Second {
			s.logger.Info("stream stats", "records_received", received)
			lastStatsLog = time.Now()
		}
	}
}
