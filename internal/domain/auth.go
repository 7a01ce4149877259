package domain

import "time"

// AuthMethod is the channel used to deliver verification codes.
// It is resolved once from the chatbot configuration and never
// changes for the lifetime of a widget instance.
type AuthMethod string

const (
	MethodEmail AuthMethod = "email"
	MethodPhone AuthMethod = "phone" // delivered over the WhatsApp channel
)

func (m AuthMethod) Valid() bool {
	return m == MethodEmail || m == MethodPhone
}

// AuthPhase is the current position in the gate state machine.
type AuthPhase string

const (
	// PhaseOpen: no gate triggered yet, messages flow freely.
	PhaseOpen AuthPhase = "open"
	// PhaseGated: the counter reached the threshold, the backend demanded
	// auth, or a persisted gate flag from a prior session was found.
	PhaseGated AuthPhase = "gated"
	// PhaseAwaitingOtp: a code was dispatched and has not been verified.
	PhaseAwaitingOtp AuthPhase = "awaiting_otp"
	// PhaseVerified: terminal success for the session.
	PhaseVerified AuthPhase = "verified"
)

// AuthState is the tagged state owned by the auth gate. Exactly one phase
// is active at a time; Challenge is non-nil only in PhaseAwaitingOtp and
// Identifier is set only in PhaseVerified.
type AuthState struct {
	Phase      AuthPhase     `json:"phase"`
	Method     AuthMethod    `json:"method"`
	Identifier string        `json:"identifier,omitempty"`
	Challenge  *OtpChallenge `json:"challenge,omitempty"`
}

// OtpOutcome records the result of the most recent verification attempt.
type OtpOutcome string

const (
	OtpPending OtpOutcome = "pending"
	OtpSuccess OtpOutcome = "success"
	OtpInvalid OtpOutcome = "invalid"
	OtpError   OtpOutcome = "error"
)

// OtpCodeLength is the fixed length of the numeric passcode.
const OtpCodeLength = 6

// OtpChallenge exists only while the gate is in PhaseAwaitingOtp and is
// destroyed on any transition away from it.
type OtpChallenge struct {
	Target         string     `json:"target"` // email address or phone number
	SentAt         time.Time  `json:"sent_at"`
	ResendDeadline time.Time  `json:"resend_deadline"`
	Outcome        OtpOutcome `json:"outcome"`
}

// ResendRemaining returns the whole seconds left in the resend cool-down.
// It is derived from the persisted deadline by wall-clock subtraction so a
// page reload reconstructs the window instead of restarting it.
func (c *OtpChallenge) ResendRemaining(now time.Time) int {
	if c == nil || !now.Before(c.ResendDeadline) {
		return 0
	}
	return int(c.ResendDeadline.Sub(now).Round(time.Second).Seconds())
}
