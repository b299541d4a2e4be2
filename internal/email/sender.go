package email

import (
	"context"
	"strings"
	"sync"

	"github.com/quillblog/backend/internal/logger"
	"go.uber.org/zap"
)

// Message is an outgoing HTML email
type Message struct {
	To      []string
	Subject string
	HTML    string
}

// Sender delivers a message
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender writes messages to the log instead of delivering them. Used in
// development when no sender address is configured.
type LogSender struct{}

// Send logs the message
func (LogSender) Send(_ context.Context, msg Message) error {
	logger.Log.Info("📧 Email (not sent, log sender)",
		zap.String("to", strings.Join(msg.To, ",")),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.HTML),
	)
	return nil
}

// MockSender records messages for tests
type MockSender struct {
	mu       sync.Mutex
	Messages []Message
	Err      error
}

// Send records msg and returns Err
func (m *MockSender) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = append(m.Messages, msg)
	return m.Err
}

// Last returns the most recent message
func (m *MockSender) Last() (Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Messages) == 0 {
		return Message{}, false
	}
	return m.Messages[len(m.Messages)-1], true
}
