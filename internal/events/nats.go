package events

import (
	"context"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
)

// NATSConn is the subset of *nats.Conn used for publishing.
type NATSConn interface {
	PublishMsg(m *nats.Msg) error
}

// NATSPublisher publishes to "<prefix>.<tenant>.<event type>".
type NATSPublisher struct {
	conn   NATSConn
	prefix string
}

func NewNATSPublisher(conn NATSConn, prefix string) *NATSPublisher {
	return &NATSPublisher{conn: conn, prefix: prefix}
}

// Subject returns the subject an event is published on.
func (p *NATSPublisher) Subject(e Event) string {
	return strings.Join([]string{p.prefix, subjectToken(e.TenantID), e.Type}, ".")
}

func (p *NATSPublisher) Publish(ctx context.Context, e Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := e.Marshal()
	if err != nil {
		return err
	}

	msg := nats.NewMsg(p.Subject(e))
	msg.Data = body
	msg.Header.Set("Nats-Msg-Id", e.ID)
	msg.Header.Set("Event-Type", e.Type)

	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("nats publish %s: %w", msg.Subject, err)
	}
	return nil
}

// subjectToken keeps tenant ids from introducing extra subject levels or wildcards.
func subjectToken(s string) string {
	return strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_").Replace(s)
}
