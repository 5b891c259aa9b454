// Package events publishes lead lifecycle events to NATS JetStream so
// downstream consumers (inbox UI, CRM sync) can react without polling.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/autosupport-ai/widget-backend/pkg/logger"
)

const (
	// StreamName is the name of the lead events stream.
	StreamName = "LEADS"

	// SubjectPrefix is the prefix for all lead event subjects.
	SubjectPrefix = "leads"
)

// Type identifies a lead lifecycle event.
type Type string

const (
	TypeLeadCreated  Type = "lead.created"
	TypeTurnRecorded Type = "turn.recorded"
	TypeSessionEnded Type = "session.ended"
)

// Event is one lead lifecycle notification.
type Event struct {
	Type       Type      `json:"type"`
	LeadID     int64     `json:"lead_id"`
	BusinessID int64     `json:"business_id"`
	Topic      string    `json:"topic,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher emits lead lifecycle events. Implementations must be safe
// for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Nop is a Publisher that discards events; used when NATS is not
// configured.
type Nop struct{}

// Publish discards the event.
func (Nop) Publish(context.Context, Event) error { return nil }

// Config holds NATS connection configuration.
type Config struct {
	URL   string
	Token string
}

// JetStream publishes lead events to a NATS JetStream stream.
type JetStream struct {
	conn *nats.Conn
	js   jetstream.JetStream
	log  *logger.Logger
}

// Connect establishes a NATS connection and ensures the lead events
// stream exists.
func Connect(ctx context.Context, cfg Config, log *logger.Logger) (*JetStream, error) {
	opts := []nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected")
		}),
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	p := &JetStream{conn: nc, js: js, log: log}
	if err := p.ensureStream(ctx); err != nil {
		nc.Close()
		return nil, err
	}
	return p, nil
}

func (p *JetStream) ensureStream(ctx context.Context) error {
	if _, err := p.js.Stream(ctx, StreamName); err == nil {
		return nil
	}

	_, err := p.js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      30 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Description: "Lead lifecycle events",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

// Subject returns the subject an event is published on.
func Subject(businessID int64, t Type) string {
	return fmt.Sprintf("%s.%d.%s", SubjectPrefix, businessID, t)
}

// Publish emits the event to JetStream.
func (p *JetStream) Publish(ctx context.Context, ev Event) error {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := p.js.Publish(ctx, Subject(ev.BusinessID, ev.Type), data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// IsConnected reports whether the NATS connection is up.
func (p *JetStream) IsConnected() bool {
	return p.conn != nil && p.conn.IsConnected()
}

// Close closes the NATS connection.
func (p *JetStream) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}
