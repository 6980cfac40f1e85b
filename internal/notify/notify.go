// Package notify is the sink for advisory messages the core emits: new
// signals, regime changes, trade results, daily budget transitions, health
// alerts and quality-trend degradation warnings.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Severity levels for notifications.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// Message is one notification to deliver to every configured channel.
type Message struct {
	Title     string
	Body      string
	Severity  Severity
	Timestamp time.Time
	Metadata  map[string]interface{}
}

// Channel is one delivery sink (Telegram, log, console, ...).
type Channel interface {
	Send(ctx context.Context, msg Message) error
}

// Manager fans a message out to every configured channel; failures in one
// channel never block another, and are always logged, never propagated,
// per the Notifier's best-effort failure semantics.
type Manager struct {
	channels []Channel
}

func NewManager(channels ...Channel) *Manager {
	return &Manager{channels: channels}
}

func (m *Manager) send(ctx context.Context, msg Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	for _, ch := range m.channels {
		if err := ch.Send(ctx, msg); err != nil {
			log.Error().Err(err).Str("title", msg.Title).Msg("notification delivery failed")
		}
	}
}

// LogChannel logs notifications through zerolog.
type LogChannel struct{}

func (LogChannel) Send(ctx context.Context, msg Message) error {
	event := log.Info()
	switch msg.Severity {
	case SeverityCritical:
		event = log.Error()
	case SeverityWarning:
		event = log.Warn()
	}
	for k, v := range msg.Metadata {
		event = event.Interface(k, v)
	}
	event.Str("title", msg.Title).Str("severity", string(msg.Severity)).Msg(msg.Body)
	return nil
}

// ConsoleChannel prints notifications for local/dev use.
type ConsoleChannel struct{}

func (ConsoleChannel) Send(ctx context.Context, msg Message) error {
	fmt.Printf("[%s] %s: %s\n", msg.Severity, msg.Title, msg.Body)
	return nil
}
