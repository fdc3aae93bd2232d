package email

import (
	"context"
	"sync"

	"github.com/artpar/fleetbill/ports"
)

// SentMessage is one message captured by the mock notifier.
type SentMessage struct {
	To      string
	Subject string
	Body    string
}

// MockNotifier records messages instead of sending them. For tests and dry
// runs.
type MockNotifier struct {
	mu   sync.Mutex
	sent []SentMessage

	// FailWith, when set, is returned by every Send.
	FailWith error
}

// NewMockNotifier creates a new recording notifier.
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

// Send records the message.
func (m *MockNotifier) Send(ctx context.Context, to, subject, body string) error {
	if m.FailWith != nil {
		return m.FailWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, SentMessage{To: to, Subject: subject, Body: body})
	return nil
}

// Sent returns a copy of every recorded message.
func (m *MockNotifier) Sent() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentMessage, len(m.sent))
	copy(out, m.sent)
	return out
}

// Count returns the number of recorded messages.
func (m *MockNotifier) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// FindByTo returns every recorded message addressed to the recipient.
func (m *MockNotifier) FindByTo(to string) []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []SentMessage
	for _, msg := range m.sent {
		if msg.To == to {
			out = append(out, msg)
		}
	}
	return out
}

// Reset clears all recorded messages.
func (m *MockNotifier) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = nil
}

var _ ports.Notifier = (*MockNotifier)(nil)
