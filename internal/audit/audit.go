package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// EventType defines the type of auditable event
type EventType string

const (
	EventGateEngaged   EventType = "GATE_ENGAGED"
	EventOtpSent       EventType = "OTP_SENT"
	EventOtpVerified   EventType = "OTP_VERIFIED"
	EventOtpFailed     EventType = "OTP_FAILED"
	EventSessionReused EventType = "SESSION_REUSED"
	EventMessageSent   EventType = "MESSAGE_SENT"
	EventTranscribed   EventType = "AUDIO_TRANSCRIBED"
)

// Event records one auditable action in the widget access-control flow.
// Identifiers are never logged in full; callers pass a redacted target.
type Event struct {
	ID        uuid.UUID         `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	ChatbotID string            `json:"chatbot_id"`
	SessionID string            `json:"session_id"`
	EventType EventType         `json:"event_type"`
	Method    string            `json:"method,omitempty"`
	Target    string            `json:"target,omitempty"` // redacted identifier
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Logger defines the interface for audit logging
type Logger interface {
	Log(ctx context.Context, event Event)
}

// SlogLogger implements Logger using slog
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger creates a new audit logger using slog
func NewSlogLogger(logger *slog.Logger) *SlogLogger {
	return &SlogLogger{
		logger: logger.With("component", "audit"),
	}
}

// Log records an audit event
func (l *SlogLogger) Log(ctx context.Context, event Event) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	l.logger.InfoContext(ctx, "audit event",
		slog.String("id", event.ID.String()),
		slog.String("event_type", string(event.EventType)),
		slog.String("chatbot_id", event.ChatbotID),
		slog.String("session_id", event.SessionID),
		slog.String("method", event.Method),
		slog.String("target", event.Target),
		slog.Bool("success", event.Success),
		slog.String("error", event.Error),
	)
}

// Redact masks an identifier for audit output, keeping just enough to
// correlate events (first two and last two characters).
func Redact(identifier string) string {
	if len(identifier) <= 4 {
		return "****"
	}
	return identifier[:2] + "****" + identifier[len(identifier)-2:]
}

// Nop is an audit logger that discards everything. Used in tests.
type Nop struct{}

func (Nop) Log(ctx context.Context, event Event) {}
