package email

import (
	"context"

	"github.com/artpar/fleetbill/ports"
)

// NoopNotifier silently discards every message. Used when delivery is not
// configured.
type NoopNotifier struct{}

// NewNoopNotifier creates a notifier that does nothing.
func NewNoopNotifier() *NoopNotifier {
	return &NoopNotifier{}
}

// Send discards the message.
func (n *NoopNotifier) Send(ctx context.Context, to, subject, body string) error {
	return nil
}

var _ ports.Notifier = (*NoopNotifier)(nil)
