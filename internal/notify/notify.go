// Package notify announces site events, such as a finished export, to other
// systems over NATS.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/pavesite/internal/foundation/errors"
	"git.home.luguber.info/inful/pavesite/internal/logfields"
)

// DefaultSubject is used when none is configured.
const DefaultSubject = "pavesite.site.published"

// Event describes a published site.
type Event struct {
	Type      string    `json:"type"`
	BuildID   string    `json:"build_id"`
	Pages     int       `json:"pages"`
	BaseURL   string    `json:"base_url,omitempty"`
	Revision  string    `json:"revision,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// SitePublished is the Event.Type of a successful export.
const SitePublished = "site.published"

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Noop discards events (default when notifications are disabled).
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }

// NATS publishes events as JSON on a subject.
type NATS struct {
	conn    *nats.Conn
	subject string
}

// NewNATS connects to the NATS server at url.
func NewNATS(url, subject string) (*NATS, error) {
	if subject == "" {
		subject = DefaultSubject
	}
	conn, err := nats.Connect(url,
		nats.Name("pavesite"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(10),
	)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryNetwork, "failed to connect to NATS").
			WithContext("url", url).
			Build()
	}
	slog.Info("NATS publisher connected", slog.String("url", conn.ConnectedUrlRedacted()), slog.String("subject", subject))
	return &NATS{conn: conn, subject: subject}, nil
}

// Publish sends e and waits for the server to acknowledge the flush.
func (n *NATS) Publish(ctx context.Context, e Event) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "failed to marshal event").Build()
	}
	if err := n.conn.Publish(n.subject, data); err != nil {
		return errors.WrapError(err, errors.CategoryNetwork, "failed to publish event").
			WithContext("subject", n.subject).
			Build()
	}
	if err := n.conn.FlushWithContext(ctx); err != nil {
		return errors.WrapError(err, errors.CategoryNetwork, "failed to flush event").
			WithContext("subject", n.subject).
			Build()
	}
	slog.Debug("Published site event", slog.String("type", e.Type), logfields.BuildID(e.BuildID))
	return nil
}

// Close drains pending messages and closes the connection.
func (n *NATS) Close() error {
	return n.conn.Drain()
}
