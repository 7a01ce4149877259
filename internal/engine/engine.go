// Package engine orchestrates a single outgoing message end to end:
// gate check, playback teardown, counting, the upstream query, the reply
// and its optional voice clip, and the animation-gated prompt transition.
package engine

import (
	"context"
	"encoding/base64"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/saturnino-fabrica-de-software/parla/internal/audio"
	"github.com/saturnino-fabrica-de-software/parla/internal/audit"
	"github.com/saturnino-fabrica-de-software/parla/internal/authgate"
	"github.com/saturnino-fabrica-de-software/parla/internal/backend"
	"github.com/saturnino-fabrica-de-software/parla/internal/domain"
)

const genericFailureText = "Sorry, something went wrong. Please try again."

// Engine drives one widget instance's conversation.
type Engine struct {
	mu     sync.Mutex
	gate   *authgate.Gate
	audio  *audio.Controller
	client backend.Client
	logger *slog.Logger
	audit  audit.Logger

	chatbotID    string
	sessionID    string
	audioEnabled bool
	now          func() time.Time

	messages []domain.ChatMessage
}

func New(gate *authgate.Gate, audioCtrl *audio.Controller, client backend.Client, logger *slog.Logger, chatbotID, sessionID string) *Engine {
	return &Engine{
		gate:         gate,
		audio:        audioCtrl,
		client:       client,
		logger:       logger,
		audit:        audit.Nop{},
		chatbotID:    chatbotID,
		sessionID:    sessionID,
		audioEnabled: true,
		now:          time.Now,
	}
}

func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

func (e *Engine) WithAudioEnabled(enabled bool) *Engine {
	e.audioEnabled = enabled
	return e
}

func (e *Engine) WithAudit(a audit.Logger) *Engine {
	e.audit = a
	return e
}

// SendResult describes the transcript entry a successful (or degraded)
// send appended.
type SendResult struct {
	Index   int                `json:"index"`
	Message domain.ChatMessage `json:"message"`
}

// Send runs one outgoing message. When the gate refuses, the message is
// neither appended nor sent. An auth-required failure engages the gate and
// appends nothing; any other upstream failure appends a generic failure
// reply instead, never both.
func (e *Engine) Send(ctx context.Context, text string) (*SendResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.ErrValidationFailed
	}

	if !e.gate.MayProceed() {
		return nil, domain.ErrGateLocked
	}

	// A new turn silences whatever was still playing.
	e.audio.Stop()

	e.mu.Lock()
	e.messages = append(e.messages, domain.ChatMessage{
		Sender:    domain.SenderUser,
		Text:      text,
		Timestamp: e.now(),
		Animation: domain.AnimationDone,
	})
	e.mu.Unlock()

	if err := e.gate.RecordOutgoingMessage(ctx); err != nil {
		// Losing one counter tick degrades gate progress, not the chat.
		e.logger.Warn("record outgoing message failed", slog.Any("error", err))
	}

	req := backend.QueryRequest{
		ChatbotID: e.chatbotID,
		Query:     text,
		SessionID: e.sessionID,
	}
	if state := e.gate.State(); state.Phase == domain.PhaseVerified {
		req.Method = state.Method
		req.Identifier = state.Identifier
	}

	res, err := e.client.Query(ctx, req)
	if err != nil {
		if backend.IsSubscriptionExpired(err) {
			// Billing failure is fatal for this turn only; the auth state
			// is untouched and no failure reply is appended.
			return nil, domain.ErrSubscriptionExpired.WithError(err)
		}
		if e.gate.ApplyBackendAuthSignal(ctx, err) {
			return nil, domain.ErrAuthRequired.WithError(err)
		}
		return e.appendBotLocked(domain.ChatMessage{
			Sender:    domain.SenderBot,
			Text:      genericFailureText,
			Timestamp: e.now(),
			Animation: domain.AnimationAnimating,
		}, nil), nil
	}

	reply := domain.ChatMessage{
		Sender:    domain.SenderBot,
		Text:      res.Answer,
		Timestamp: e.now(),
		Animation: domain.AnimationAnimating,
	}

	var payload *domain.AudioPayload
	if res.AudioBase64 != "" {
		data, decodeErr := base64.StdEncoding.DecodeString(res.AudioBase64)
		if decodeErr != nil {
			e.logger.Warn("discarding undecodable reply audio", slog.Any("error", decodeErr))
		} else {
			contentType := res.AudioContentType
			if contentType == "" {
				contentType = "audio/mpeg"
			}
			payload = &domain.AudioPayload{Data: data, ContentType: contentType}
			reply.Audio = payload
		}
	}

	result := e.appendBotLocked(reply, payload)

	e.audit.Log(ctx, audit.Event{
		ChatbotID: e.chatbotID,
		SessionID: e.sessionID,
		EventType: audit.EventMessageSent,
		Success:   true,
	})

	if res.RequiresAuthNext {
		e.gate.ForceGate(ctx)
	}

	return result, nil
}

func (e *Engine) appendBotLocked(msg domain.ChatMessage, payload *domain.AudioPayload) *SendResult {
	e.mu.Lock()
	e.messages = append(e.messages, msg)
	index := len(e.messages) - 1
	e.mu.Unlock()

	if payload != nil && e.audioEnabled {
		if err := e.audio.Play(context.Background(), *payload, index); err != nil {
			e.logger.Warn("reply playback failed", slog.Any("error", err))
		}
	}

	return &SendResult{Index: index, Message: msg}
}

// MarkAnimationDone records that the text-reveal animation for the message
// at index has completed.
func (e *Engine) MarkAnimationDone(index int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if index < 0 || index >= len(e.messages) {
		return domain.ErrNotFound
	}
	e.messages[index].Animation = domain.AnimationDone
	return nil
}

// PromptVisible reports whether the inline gate/OTP affordance may show.
// It must not materialize while the most recent bot message is still
// animating, unless the gate was already latched before this page load.
func (e *Engine) PromptVisible() bool {
	state := e.gate.State()
	if state.Phase == domain.PhaseOpen || state.Phase == domain.PhaseVerified {
		return false
	}

	if e.gate.LatchedOnLoad() {
		return true
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for i := len(e.messages) - 1; i >= 0; i-- {
		if e.messages[i].Sender == domain.SenderBot {
			return e.messages[i].Animation == domain.AnimationDone
		}
	}
	return true
}

// SpeakReply lazily fetches and plays the voice clip for the most recent
// bot message. A reply that already carries audio is replayed as-is;
// otherwise the text is synthesized and the payload attached to the
// message before playing.
func (e *Engine) SpeakReply(ctx context.Context) error {
	e.mu.Lock()
	index := -1
	for i := len(e.messages) - 1; i >= 0; i-- {
		if e.messages[i].Sender == domain.SenderBot {
			index = i
			break
		}
	}
	if index < 0 {
		e.mu.Unlock()
		return domain.ErrNotFound
	}
	msg := e.messages[index]
	e.mu.Unlock()

	if msg.Audio == nil {
		payload, err := e.client.Synthesize(ctx, msg.Text)
		if err != nil {
			return domain.ErrInternal.WithError(err)
		}
		e.mu.Lock()
		e.messages[index].Audio = payload
		e.mu.Unlock()
		msg.Audio = payload
	}

	return e.audio.Play(ctx, *msg.Audio, index)
}

// Messages returns a copy of the transcript in insertion order.
func (e *Engine) Messages() []domain.ChatMessage {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]domain.ChatMessage, len(e.messages))
	copy(out, e.messages)
	return out
}
