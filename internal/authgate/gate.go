// Package authgate decides, for every outgoing message, whether sending is
// permitted, and drives the OTP challenge protocol.
package authgate

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/saturnino-fabrica-de-software/parla/internal/audit"
	"github.com/saturnino-fabrica-de-software/parla/internal/backend"
	"github.com/saturnino-fabrica-de-software/parla/internal/domain"
	"github.com/saturnino-fabrica-de-software/parla/internal/kv"
)

const (
	// DefaultThreshold is the unauthenticated message count at which the
	// gate engages.
	DefaultThreshold = 2
	// DefaultResendWindow is the OTP resend cool-down.
	DefaultResendWindow = 60 * time.Second
)

// Gate owns the auth method, verification state, OTP challenge sub-state
// and the message-count threshold policy for one widget instance.
type Gate struct {
	mu     sync.Mutex
	store  kv.Store
	client backend.Client
	logger *slog.Logger
	audit  audit.Logger

	now          func() time.Time
	threshold    int
	resendWindow time.Duration
	generic403   bool

	chatbotID string
	sessionID string

	method          domain.AuthMethod
	requireAuthText string
	state           domain.AuthState
	notice          string
	latchedOnLoad   bool
}

func New(store kv.Store, client backend.Client, logger *slog.Logger) *Gate {
	return &Gate{
		store:        store,
		client:       client,
		logger:       logger,
		audit:        audit.Nop{},
		now:          time.Now,
		threshold:    DefaultThreshold,
		resendWindow: DefaultResendWindow,
		generic403:   true,
		state:        domain.AuthState{Phase: domain.PhaseOpen},
	}
}

func (g *Gate) WithClock(now func() time.Time) *Gate {
	g.now = now
	return g
}

func (g *Gate) WithThreshold(threshold int) *Gate {
	g.threshold = threshold
	return g
}

func (g *Gate) WithResendWindow(window time.Duration) *Gate {
	g.resendWindow = window
	return g
}

// WithGeneric403Fallback controls whether a 403 without any marker is
// treated as auth-required. Defaults to true; a stricter upstream contract
// can turn it off.
func (g *Gate) WithGeneric403Fallback(enabled bool) *Gate {
	g.generic403 = enabled
	return g
}

func (g *Gate) WithAudit(a audit.Logger) *Gate {
	g.audit = a
	return g
}

// Initialize resolves the auth method from the chatbot configuration,
// restores persisted gate state, and revalidates a saved identity when one
// exists. Revalidation failure is non-fatal: the widget degrades to the
// gated experience with a user-facing notice.
func (g *Gate) Initialize(ctx context.Context, chatbotID, sessionID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.chatbotID = chatbotID
	g.sessionID = sessionID
	g.state = domain.AuthState{Phase: domain.PhaseOpen}

	cfg, err := g.client.GetConfig(ctx, chatbotID)
	if err != nil {
		// Without config the widget still works: default method, no explicit gate.
		g.logger.Warn("resolve widget config failed, using defaults",
			slog.String("chatbot_id", chatbotID),
			slog.Any("error", err),
		)
		cfg = &backend.WidgetConfig{AuthMethod: domain.MethodEmail}
	}
	if !cfg.AuthMethod.Valid() {
		cfg.AuthMethod = domain.MethodEmail
	}
	g.method = cfg.AuthMethod
	g.state.Method = cfg.AuthMethod
	g.requireAuthText = cfg.RequireAuthText

	if cfg.RequireAuth || cfg.RequireAuthFromStart {
		g.state.Phase = domain.PhaseGated
		g.latchedOnLoad = true
	}

	count, err := g.readCounterLocked(ctx)
	if err != nil {
		return fmt.Errorf("chatbot %s: read message counter: %w", chatbotID, err)
	}
	if count >= g.threshold {
		g.state.Phase = domain.PhaseGated
	}

	flag, err := g.store.Get(ctx, domain.GateFlagKey(chatbotID, sessionID))
	if err != nil {
		return fmt.Errorf("chatbot %s: read gate flag: %w", chatbotID, err)
	}
	if flag != "" {
		g.state.Phase = domain.PhaseGated
		g.latchedOnLoad = true
	}

	identity, err := g.store.Get(ctx, domain.IdentityKey(g.method))
	if err != nil {
		return fmt.Errorf("chatbot %s: read saved identity: %w", chatbotID, err)
	}
	if identity == "" {
		return nil
	}

	valid, err := g.client.ValidateSession(ctx, g.method, identity, chatbotID)
	if err == nil && valid {
		g.state.Phase = domain.PhaseVerified
		g.state.Identifier = identity
		g.notice = ""
		g.audit.Log(ctx, audit.Event{
			ChatbotID: chatbotID,
			SessionID: sessionID,
			EventType: audit.EventSessionReused,
			Method:    string(g.method),
			Target:    audit.Redact(identity),
			Success:   true,
		})
		return nil
	}

	if err != nil {
		g.logger.Warn("session revalidation failed",
			slog.String("chatbot_id", chatbotID),
			slog.Any("error", err),
		)
	}
	_ = g.store.Delete(ctx, domain.IdentityKey(g.method))
	g.notice = domain.ErrSessionInvalid.Message
	g.state.Phase = domain.PhaseGated
	return nil
}

// RecordOutgoingMessage increments the persisted counter for a
// user-originated message and engages the gate when the threshold is
// reached. Verified sessions are not counted.
func (g *Gate) RecordOutgoingMessage(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state.Phase == domain.PhaseVerified {
		return nil
	}

	// Always read-modify-write the persisted value, not a cached one, so
	// multiple widget instances over one store count correctly.
	count, err := g.readCounterLocked(ctx)
	if err != nil {
		return fmt.Errorf("read message counter: %w", err)
	}
	count++
	key := domain.MessageCountKey(g.chatbotID, g.sessionID)
	if err := g.store.Set(ctx, key, strconv.Itoa(count)); err != nil {
		return fmt.Errorf("persist message counter: %w", err)
	}

	if count >= g.threshold && g.state.Phase == domain.PhaseOpen {
		g.state.Phase = domain.PhaseGated
	}
	return nil
}

// MayProceed reports whether an outgoing message is currently permitted.
func (g *Gate) MayProceed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state.Phase == domain.PhaseOpen || g.state.Phase == domain.PhaseVerified
}

// RequestOtp validates the identifier, enforces the resend cool-down, and
// dispatches a code. On success the gate enters AwaitingOtp with a resend
// deadline persisted as a timestamp so a reload reconstructs the remaining
// window by wall-clock subtraction.
func (g *Gate) RequestOtp(ctx context.Context, identifier string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state.Phase != domain.PhaseGated && g.state.Phase != domain.PhaseAwaitingOtp {
		return domain.ErrBadRequest.WithError(fmt.Errorf("otp request in phase %s", g.state.Phase))
	}

	if err := ValidateIdentifier(g.method, identifier); err != nil {
		return err
	}

	if remaining := g.resendRemainingLocked(ctx); remaining > 0 {
		return domain.ErrOtpResendCooldown.WithError(fmt.Errorf("%d seconds remaining", remaining))
	}

	if err := g.client.SendOtp(ctx, g.method, identifier, g.chatbotID); err != nil {
		return domain.ErrOtpSendFailed.WithError(err)
	}

	now := g.now()
	key := domain.OtpResendKey(g.chatbotID, g.sessionID)
	if err := g.store.Set(ctx, key, strconv.FormatInt(now.Unix(), 10)); err != nil {
		g.logger.Warn("persist otp resend timestamp failed", slog.Any("error", err))
	}

	g.state.Phase = domain.PhaseAwaitingOtp
	g.state.Challenge = &domain.OtpChallenge{
		Target:         identifier,
		SentAt:         now,
		ResendDeadline: now.Add(g.resendWindow),
		Outcome:        domain.OtpPending,
	}

	g.audit.Log(ctx, audit.Event{
		ChatbotID: g.chatbotID,
		SessionID: g.sessionID,
		EventType: audit.EventOtpSent,
		Method:    string(g.method),
		Target:    audit.Redact(identifier),
		Success:   true,
	})
	return nil
}

// ResendRemaining returns the seconds left in the resend cool-down. A live
// challenge answers directly; otherwise the cool-down is reconstructed from
// the persisted dispatch timestamp.
func (g *Gate) ResendRemaining(ctx context.Context) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.resendRemainingLocked(ctx)
}

func (g *Gate) resendRemainingLocked(ctx context.Context) int {
	if g.state.Challenge != nil {
		return g.state.Challenge.ResendRemaining(g.now())
	}

	raw, err := g.store.Get(ctx, domain.OtpResendKey(g.chatbotID, g.sessionID))
	if err != nil || raw == "" {
		return 0
	}
	sentAt, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	deadline := time.Unix(sentAt, 0).Add(g.resendWindow)
	now := g.now()
	if !now.Before(deadline) {
		return 0
	}
	return int(deadline.Sub(now).Round(time.Second).Seconds())
}

// VerifyOtp checks the code upstream. Success persists the verified
// identity, clears the gate flag and counter, and enters Verified. Failure
// leaves the challenge in place; nothing persisted changes.
func (g *Gate) VerifyOtp(ctx context.Context, code string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state.Phase != domain.PhaseAwaitingOtp || g.state.Challenge == nil {
		return domain.ErrOtpNotRequested
	}

	if err := ValidateOtpCode(code); err != nil {
		return err
	}

	target := g.state.Challenge.Target
	ok, err := g.client.VerifyOtp(ctx, g.method, target, code, g.chatbotID)
	if err != nil {
		g.state.Challenge.Outcome = domain.OtpError
		return domain.ErrInternal.WithError(fmt.Errorf("verify otp: %w", err))
	}
	if !ok {
		g.state.Challenge.Outcome = domain.OtpInvalid
		g.audit.Log(ctx, audit.Event{
			ChatbotID: g.chatbotID,
			SessionID: g.sessionID,
			EventType: audit.EventOtpFailed,
			Method:    string(g.method),
			Target:    audit.Redact(target),
		})
		return domain.ErrOtpIncorrect
	}

	if err := g.store.Set(ctx, domain.IdentityKey(g.method), target); err != nil {
		return fmt.Errorf("persist verified identity: %w", err)
	}
	_ = g.store.Delete(ctx, domain.GateFlagKey(g.chatbotID, g.sessionID))
	_ = g.store.Delete(ctx, domain.MessageCountKey(g.chatbotID, g.sessionID))
	_ = g.store.Delete(ctx, domain.OtpResendKey(g.chatbotID, g.sessionID))

	g.state = domain.AuthState{
		Phase:      domain.PhaseVerified,
		Method:     g.method,
		Identifier: target,
	}
	g.notice = ""

	g.audit.Log(ctx, audit.Event{
		ChatbotID: g.chatbotID,
		SessionID: g.sessionID,
		EventType: audit.EventOtpVerified,
		Method:    string(g.method),
		Target:    audit.Redact(target),
		Success:   true,
	})
	return nil
}

// CancelOtp abandons a pending challenge and returns to Gated. This is the
// only path out of AwaitingOtp other than a successful verification.
func (g *Gate) CancelOtp() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state.Phase != domain.PhaseAwaitingOtp {
		return
	}
	g.state.Phase = domain.PhaseGated
	g.state.Challenge = nil
}

// ApplyBackendAuthSignal inspects a chat-query failure and engages the
// gate when it carries an auth-required signal. It reports whether the
// gate was engaged; subscription failures never engage it.
func (g *Gate) ApplyBackendAuthSignal(ctx context.Context, err error) bool {
	if !backend.IsAuthRequired(err, g.generic403) {
		return false
	}
	g.ForceGate(ctx)
	return true
}

// ForceGate transitions to Gated and persists the gate flag so a reload
// re-enters Gated without re-deriving it from the counter. A Verified
// session is never demoted automatically.
func (g *Gate) ForceGate(ctx context.Context) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state.Phase == domain.PhaseVerified {
		return
	}

	g.state.Phase = domain.PhaseGated
	g.state.Challenge = nil

	key := domain.GateFlagKey(g.chatbotID, g.sessionID)
	if err := g.store.Set(ctx, key, "1"); err != nil {
		g.logger.Warn("persist gate flag failed", slog.Any("error", err))
	}

	g.audit.Log(ctx, audit.Event{
		ChatbotID: g.chatbotID,
		SessionID: g.sessionID,
		EventType: audit.EventGateEngaged,
		Method:    string(g.method),
		Success:   true,
	})
}

// State returns a copy of the current auth state.
func (g *Gate) State() domain.AuthState {
	g.mu.Lock()
	defer g.mu.Unlock()

	state := g.state
	if g.state.Challenge != nil {
		challenge := *g.state.Challenge
		state.Challenge = &challenge
	}
	return state
}

// Method returns the resolved delivery method.
func (g *Gate) Method() domain.AuthMethod {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.method
}

// RequireAuthText is the chatbot-configured gate prompt, if any.
func (g *Gate) RequireAuthText() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.requireAuthText
}

// Notice returns the pending user-facing notice, if any (e.g. a saved
// session that failed revalidation).
func (g *Gate) Notice() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.notice
}

// LatchedOnLoad reports whether the gate was already engaged before this
// page load. The inline gate prompt may then show immediately instead of
// waiting for the reply animation.
func (g *Gate) LatchedOnLoad() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.latchedOnLoad
}

func (g *Gate) readCounterLocked(ctx context.Context) (int, error) {
	raw, err := g.store.Get(ctx, domain.MessageCountKey(g.chatbotID, g.sessionID))
	if err != nil {
		return 0, err
	}
	if raw == "" {
		return 0, nil
	}
	count, err := strconv.Atoi(raw)
	if err != nil {
		// A corrupt counter resets gate progress rather than wedging the widget.
		g.logger.Warn("corrupt message counter, resetting", slog.String("value", raw))
		return 0, nil
	}
	return count, nil
}
