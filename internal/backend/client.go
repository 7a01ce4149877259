// Package backend talks to the upstream chat/OTP/TTS/STT provider. The
// widget core treats the provider as an external collaborator reachable
// through this request/response contract.
package backend

import (
	"context"

	"github.com/saturnino-fabrica-de-software/parla/internal/domain"
)

// WidgetConfig is the per-chatbot configuration resolved once per widget
// instance.
type WidgetConfig struct {
	AuthMethod           domain.AuthMethod `json:"auth_method"`
	RequireAuthText      string            `json:"require_auth_text,omitempty"`
	RequireAuthFromStart bool              `json:"require_auth_from_start,omitempty"`
	RequireAuth          bool              `json:"require_auth,omitempty"`
}

// QueryRequest is one chat turn sent upstream.
type QueryRequest struct {
	ChatbotID string `json:"chatbot_id"`
	Query     string `json:"query"`
	SessionID string `json:"session_id"`
	// Verified identity, included only once the gate has been passed.
	Method     domain.AuthMethod `json:"method,omitempty"`
	Identifier string            `json:"identifier,omitempty"`
}

// QueryResult is the upstream answer for one chat turn.
type QueryResult struct {
	Answer           string            `json:"answer"`
	AudioBase64      string            `json:"audio,omitempty"`
	AudioContentType string            `json:"audio_content_type,omitempty"`
	RequiresAuthNext bool              `json:"requires_auth_next,omitempty"`
	AuthMethod       domain.AuthMethod `json:"auth_method,omitempty"`
}

// Client is the upstream provider contract.
type Client interface {
	GetConfig(ctx context.Context, chatbotID string) (*WidgetConfig, error)
	ValidateSession(ctx context.Context, method domain.AuthMethod, identifier, chatbotID string) (bool, error)
	SendOtp(ctx context.Context, method domain.AuthMethod, identifier, chatbotID string) error
	VerifyOtp(ctx context.Context, method domain.AuthMethod, identifier, code, chatbotID string) (bool, error)
	Query(ctx context.Context, req QueryRequest) (*QueryResult, error)
	Transcribe(ctx context.Context, audio []byte, formatHint string) (string, error)
	Synthesize(ctx context.Context, text string) (*domain.AudioPayload, error)
}
