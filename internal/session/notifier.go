package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/medianbudget/backend/internal/models"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// PhaseChange is published whenever a session changes its status or phase.
type PhaseChange struct {
	SessionID uuid.UUID            `json:"sessionId"`
	Status    models.SessionStatus `json:"status"`
	Phase     models.Phase         `json:"phase"`
	Revision  uint64               `json:"revision"`
	Trigger   string               `json:"trigger"`
	At        time.Time            `json:"at"`
}

// Notifier broadcasts phase changes to subscribers.
type Notifier interface {
	PhaseChanged(ctx context.Context, change PhaseChange) error
}

// LogNotifier writes phase changes to the log. It is used when no message
// broker is configured.
type LogNotifier struct {
	Logger zerolog.Logger
}

func (n LogNotifier) PhaseChanged(_ context.Context, change PhaseChange) error {
	n.Logger.Info().
		Str("session", change.SessionID.String()).
		Str("status", string(change.Status)).
		Str("phase", string(change.Phase)).
		Uint64("revision", change.Revision).
		Str("trigger", change.Trigger).
		Msg("phase change")
	return nil
}

// NATSNotifier publishes phase changes to NATS.
//
// Subject convention: sessions.<session id>.phase
type NATSNotifier struct {
	conn *nats.Conn
	log  zerolog.Logger
}

// NewNATSNotifier connects to the NATS server at url.
func NewNATSNotifier(url string, log zerolog.Logger) (*NATSNotifier, error) {
	conn, err := nats.Connect(url,
		nats.Name("median-budget-backend"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("nats: disconnected")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("nats: reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("could not connect to NATS at %s: %w", url, err)
	}

	return &NATSNotifier{conn: conn, log: log}, nil
}

func Subject(id uuid.UUID) string {
	return fmt.Sprintf("sessions.%s.phase", id)
}

func (n *NATSNotifier) PhaseChanged(_ context.Context, change PhaseChange) error {
	data, err := json.Marshal(change)
	if err != nil {
		return err
	}

	subject := Subject(change.SessionID)
	if err := n.conn.Publish(subject, data); err != nil {
		return err
	}

	n.log.Debug().Str("subject", subject).Msg("notification: phase change published")
	return nil
}

// Close flushes pending messages and closes the connection.
func (n *NATSNotifier) Close() error {
	return n.conn.Drain()
}
