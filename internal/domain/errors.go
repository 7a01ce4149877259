package domain

import (
	"fmt"
)

type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		StatusCode: e.StatusCode,
		Err:        err,
	}
}

// Pre-defined errors
var (
	ErrInternal = &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred",
		StatusCode: 500,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: 400,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: 404,
	}

	ErrValidationFailed = &AppError{
		Code:       "VALIDATION_FAILED",
		Message:    "Request validation failed",
		StatusCode: 422,
	}

	// Gate / auth errors
	ErrGateLocked = &AppError{
		Code:       "GATE_LOCKED",
		Message:    "Verify your identity to continue the conversation",
		StatusCode: 403,
	}

	ErrAuthRequired = &AppError{
		Code:       "AUTH_REQUIRED",
		Message:    "Authentication is required to continue",
		StatusCode: 403,
	}

	ErrSubscriptionExpired = &AppError{
		Code:       "SUBSCRIPTION_EXPIRED",
		Message:    "This chatbot's subscription has expired",
		StatusCode: 403,
	}

	ErrSessionInvalid = &AppError{
		Code:       "SESSION_INVALID",
		Message:    "Your saved session could not be validated, please verify again",
		StatusCode: 401,
	}

	// OTP errors
	ErrInvalidEmail = &AppError{
		Code:       "INVALID_EMAIL",
		Message:    "Please enter a valid email address",
		StatusCode: 422,
	}

	ErrInvalidPhone = &AppError{
		Code:       "INVALID_PHONE",
		Message:    "Please enter a valid 10-digit mobile number",
		StatusCode: 422,
	}

	ErrInvalidOtpFormat = &AppError{
		Code:       "INVALID_OTP_FORMAT",
		Message:    "The code must be 6 digits",
		StatusCode: 422,
	}

	ErrOtpIncorrect = &AppError{
		Code:       "OTP_INCORRECT",
		Message:    "That code is not correct, please try again",
		StatusCode: 422,
	}

	ErrOtpSendFailed = &AppError{
		Code:       "OTP_SEND_FAILED",
		Message:    "Could not send the verification code, please try again",
		StatusCode: 502,
	}

	ErrOtpResendCooldown = &AppError{
		Code:       "OTP_RESEND_COOLDOWN",
		Message:    "Please wait before requesting another code",
		StatusCode: 429,
	}

	ErrOtpNotRequested = &AppError{
		Code:       "OTP_NOT_REQUESTED",
		Message:    "No verification code has been requested",
		StatusCode: 409,
	}

	// Recording errors
	ErrRecordingActive = &AppError{
		Code:       "RECORDING_ACTIVE",
		Message:    "A recording is already in progress",
		StatusCode: 409,
	}

	ErrNotRecording = &AppError{
		Code:       "NOT_RECORDING",
		Message:    "No recording is in progress",
		StatusCode: 409,
	}

	ErrNoSpeechDetected = &AppError{
		Code:       "NO_SPEECH_DETECTED",
		Message:    "No speech detected, please try again",
		StatusCode: 422,
	}

	// Transcription errors (one per user-facing reason)
	ErrTranscribeTimeout = &AppError{
		Code:       "TRANSCRIBE_TIMEOUT",
		Message:    "Transcription took too long, please try a shorter recording",
		StatusCode: 504,
	}

	ErrAudioTooLarge = &AppError{
		Code:       "AUDIO_TOO_LARGE",
		Message:    "The recording is too large to transcribe",
		StatusCode: 413,
	}

	ErrTranscribeRateLimited = &AppError{
		Code:       "TRANSCRIBE_RATE_LIMITED",
		Message:    "Too many transcription requests, please wait a moment",
		StatusCode: 429,
	}

	ErrTranscribeServer = &AppError{
		Code:       "TRANSCRIBE_SERVER_ERROR",
		Message:    "Transcription is temporarily unavailable",
		StatusCode: 502,
	}

	ErrTranscribeUnknown = &AppError{
		Code:       "TRANSCRIBE_FAILED",
		Message:    "Could not transcribe the recording",
		StatusCode: 500,
	}

	// Audio errors
	ErrUnsupportedAudio = &AppError{
		Code:       "UNSUPPORTED_AUDIO",
		Message:    "Unsupported audio format",
		StatusCode: 422,
	}
)
