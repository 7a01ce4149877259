package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/saturnino-fabrica-de-software/parla/internal/domain"
)

// Error codes the upstream attaches to 403 responses. A 403 carrying the
// auth-required marker engages the gate; a subscription 403 must not.
const (
	CodeAuthRequired        = "AUTH_REQUIRED"
	CodeSubscriptionExpired = "SUBSCRIPTION_EXPIRED"
)

// ErrUpstreamUnavailable wraps transport failures after retries are
// exhausted.
var ErrUpstreamUnavailable = errors.New("upstream unavailable")

// StatusError is a non-2xx upstream response.
type StatusError struct {
	Status    int
	ErrorCode string
	Message   string
}

func (e *StatusError) Error() string {
	if e.ErrorCode != "" {
		return fmt.Sprintf("upstream status %d (%s): %s", e.Status, e.ErrorCode, e.Message)
	}
	return fmt.Sprintf("upstream status %d: %s", e.Status, e.Message)
}

// IsAuthRequired reports whether err is a 403 that should engage the gate.
// Subscription failures are never auth signals. When generic403 is set, a
// 403 without any marker is treated conservatively as auth-required; a
// stricter upstream contract can disable the fallback.
func IsAuthRequired(err error, generic403 bool) bool {
	var se *StatusError
	if !errors.As(err, &se) || se.Status != 403 {
		return false
	}
	if IsSubscriptionExpired(err) {
		return false
	}
	if se.ErrorCode == CodeAuthRequired {
		return true
	}
	if strings.Contains(strings.ToLower(se.Message), "auth required") {
		return true
	}
	return generic403 && se.ErrorCode == ""
}

// IsSubscriptionExpired reports whether err is a billing 403. These are
// surfaced verbatim and leave the auth state untouched.
func IsSubscriptionExpired(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) || se.Status != 403 {
		return false
	}
	if se.ErrorCode == CodeSubscriptionExpired {
		return true
	}
	return strings.Contains(strings.ToLower(se.Message), "subscription")
}

// ClassifyTranscription maps a transcription failure onto the fixed set of
// user-facing reasons. Every input resolves to exactly one of the five.
func ClassifyTranscription(err error) *domain.AppError {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrTranscribeTimeout.WithError(err)
	}

	var se *StatusError
	if errors.As(err, &se) {
		switch {
		case se.Status == 408 || se.Status == 504:
			return domain.ErrTranscribeTimeout.WithError(err)
		case se.Status == 413:
			return domain.ErrAudioTooLarge.WithError(err)
		case se.Status == 429:
			return domain.ErrTranscribeRateLimited.WithError(err)
		case se.Status >= 500:
			return domain.ErrTranscribeServer.WithError(err)
		}
	}

	if errors.Is(err, ErrUpstreamUnavailable) {
		return domain.ErrTranscribeServer.WithError(err)
	}

	return domain.ErrTranscribeUnknown.WithError(err)
}
