package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	ferrors "git.home.luguber.info/inful/cdnbundle/internal/foundation/errors"
)

const connectTimeout = 5 * time.Second

// publisher is the subset of *nats.Conn used here.
type publisher interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Close()
}

// NATSNotifier publishes Release messages as JSON on a core NATS subject.
type NATSNotifier struct {
	conn    publisher
	subject string
}

// NewNATSNotifier connects to url. The connection is kept until Close.
func NewNATSNotifier(url, subject string) (*NATSNotifier, error) {
	if subject == "" {
		return nil, ferrors.ConfigError("notify.subject is required when notify.nats_url is set").Build()
	}

	conn, err := nats.Connect(url,
		nats.Name("cdnbundle"),
		nats.Timeout(connectTimeout),
	)
	if err != nil {
		return nil, ferrors.NotifyError("failed to connect to NATS").
			WithCause(err).
			WithContext("url", url).
			Build()
	}

	slog.Debug("NATS notifier connected", "url", url, "subject", subject)
	return &NATSNotifier{conn: conn, subject: subject}, nil
}

// Notify publishes r and waits for the server to acknowledge the flush.
func (n *NATSNotifier) Notify(ctx context.Context, r Release) error {
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(r)
	if err != nil {
		return ferrors.NotifyError("failed to marshal release").WithCause(err).Build()
	}

	if err := n.conn.Publish(n.subject, data); err != nil {
		return ferrors.NotifyError("failed to publish release").
			WithCause(err).
			WithContext("subject", n.subject).
			Build()
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := n.conn.FlushWithContext(ctx); err != nil {
		return ferrors.NotifyError("failed to flush release notification").
			WithCause(err).
			WithContext("subject", n.subject).
			Build()
	}

	slog.Debug("Published release notification",
		"subject", n.subject,
		"package", r.Package,
		"version", r.Version)
	return nil
}

// Close drops the NATS connection.
func (n *NATSNotifier) Close() error {
	if n.conn != nil {
		n.conn.Close()
	}
	return nil
}

// New returns a NATS notifier when url is set and Noop otherwise.
func New(url, subject string) (Notifier, error) {
	if url == "" {
		return Noop{}, nil
	}
	return NewNATSNotifier(url, subject)
}
