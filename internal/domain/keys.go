package domain

import "fmt"

// Persisted key-value keys. Every composite key goes through one of these
// builders so the (sessionID, chatbotID) scoping cannot drift between the
// components that share the store.

// KeySessionID holds the stable per-browser session identifier. It is
// created lazily on first widget mount and never removed.
const KeySessionID = "parla:session_id"

// IdentityKey holds the verified identifier for a delivery method.
func IdentityKey(method AuthMethod) string {
	return fmt.Sprintf("parla:identity:%s", method)
}

// GateFlagKey marks that the gate was engaged by an explicit backend
// signal, so a reload re-enters Gated without re-deriving it.
func GateFlagKey(chatbotID, sessionID string) string {
	return fmt.Sprintf("parla:auth_gate:%s:%s", chatbotID, sessionID)
}

// MessageCountKey holds the unauthenticated message counter.
func MessageCountKey(chatbotID, sessionID string) string {
	return fmt.Sprintf("parla:message_count:%s:%s", chatbotID, sessionID)
}

// OtpResendKey holds the unix timestamp of the last OTP dispatch, from
// which the remaining resend cool-down is reconstructed.
func OtpResendKey(chatbotID, sessionID string) string {
	return fmt.Sprintf("parla:otp_resend_at:%s:%s", chatbotID, sessionID)
}
