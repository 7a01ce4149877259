package authgate

import (
	"regexp"

	"github.com/saturnino-fabrica-de-software/parla/internal/domain"
)

var (
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	// Indian mobile numbers: exactly 10 digits starting 6-9.
	phoneRe = regexp.MustCompile(`^[6-9][0-9]{9}$`)
	otpRe   = regexp.MustCompile(`^[0-9]{6}$`)
)

// ValidateIdentifier checks an identifier against the format rules for its
// delivery method. Validation failures are local and never reach the
// network.
func ValidateIdentifier(method domain.AuthMethod, identifier string) error {
	switch method {
	case domain.MethodEmail:
		if !emailRe.MatchString(identifier) {
			return domain.ErrInvalidEmail
		}
	case domain.MethodPhone:
		if !phoneRe.MatchString(identifier) {
			return domain.ErrInvalidPhone
		}
	default:
		return domain.ErrValidationFailed
	}
	return nil
}

// ValidateOtpCode checks that a code is exactly six digits.
func ValidateOtpCode(code string) error {
	if !otpRe.MatchString(code) {
		return domain.ErrInvalidOtpFormat
	}
	return nil
}
