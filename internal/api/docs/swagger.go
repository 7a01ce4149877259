package docs

import (
	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
	"github.com/go-swagno/swagno/components/parameter"
)

// SessionResponse represents the stable widget session identifier
type SessionResponse struct {
	SessionID string `json:"session_id" example:"550e8400-e29b-41d4-a716-446655440000"`
}

// StateResponse represents the widget instance state
type StateResponse struct {
	Phase           string `json:"phase" example:"gated"`
	Method          string `json:"method" example:"email"`
	Identifier      string `json:"identifier,omitempty" example:"user@example.com"`
	RequireAuthText string `json:"require_auth_text,omitempty" example:"Sign in to continue the conversation"`
	Notice          string `json:"notice,omitempty" example:"Your session is no longer valid. Please verify again."`
	PromptVisible   bool   `json:"prompt_visible" example:"true"`
	ResendRemaining int    `json:"resend_remaining" example:"42"`
	RecordingPhase  string `json:"recording_phase" example:"idle"`
	Muted           bool   `json:"muted" example:"false"`
	Playing         bool   `json:"playing" example:"false"`
}

// ChatMessageData represents one transcript entry
type ChatMessageData struct {
	Sender    string `json:"sender" example:"bot"`
	Text      string `json:"text" example:"Hello! How can I help?"`
	Timestamp string `json:"timestamp" example:"2024-01-01T00:00:00Z"`
	Animation string `json:"animation" example:"done"`
}

// MessageRequest represents an outgoing chat message
type MessageRequest struct {
	Text string `json:"text" example:"What are your opening hours?"`
}

// MessageResponse represents the transcript entry a send appended
type MessageResponse struct {
	Index   int             `json:"index" example:"3"`
	Message ChatMessageData `json:"message"`
	State   StateResponse   `json:"state"`
}

// MessagesResponse represents the full transcript
type MessagesResponse struct {
	Messages []ChatMessageData `json:"messages"`
	State    StateResponse     `json:"state"`
}

// OtpRequest represents an OTP dispatch request
type OtpRequest struct {
	Identifier string `json:"identifier" example:"user@example.com"`
}

// OtpVerifyRequest represents an OTP code submission
type OtpVerifyRequest struct {
	Code string `json:"code" example:"482913"`
}

// MuteRequest represents a mute preference change
type MuteRequest struct {
	Muted bool `json:"muted" example:"true"`
}

// PlaybackEndedRequest reports that the active clip finished on the client
type PlaybackEndedRequest struct {
	Index int `json:"index" example:"3"`
}

// TranscriptResponse represents a finished recording's transcript
type TranscriptResponse struct {
	Text string `json:"text" example:"what are your opening hours"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Code    string `json:"code" example:"VALIDATION_FAILED"`
	Message string `json:"message" example:"Request validation failed"`
}

// EmptyResponse represents no content response (204)
type EmptyResponse struct{}

// NewSwagger creates and configures the Swagger documentation
func NewSwagger() *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "Parla Widget API",
		Version:     "v1.0.0",
		Description: "Embeddable conversational widget core: auth gating, OTP verification, voice playback and recording",
		Host:        "localhost:3000",
		Path:        "/v1",
	})

	endpoints := []*endpoint.EndPoint{
		// POST /v1/widget/session - Ensure session id
		endpoint.New(
			endpoint.POST,
			"/widget/session",
			endpoint.WithTags("Session"),
			endpoint.WithSummary("Ensure a widget session id"),
			endpoint.WithDescription("Returns the stable per-client session id, minting and persisting one on first use. The id is never rotated."),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SessionResponse{}, "200", "Session id returned"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
			}),
		),

		// GET /v1/widget/state - Instance state
		endpoint.New(
			endpoint.GET,
			"/widget/state",
			endpoint.WithTags("Widget"),
			endpoint.WithSummary("Get widget instance state"),
			endpoint.WithDescription("Returns the auth phase, prompt visibility, resend cool-down and playback/recording state for one widget instance"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("chatbot_id", parameter.Query, parameter.WithDescription("Chatbot identifier")),
				parameter.StrParam("session_id", parameter.Query, parameter.WithDescription("Widget session identifier")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(StateResponse{}, "200", "State retrieved successfully"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "chatbot_id and session_id are required"}, "400", "Bad Request"),
				response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
			}),
		),

		// GET /v1/widget/messages - Transcript
		endpoint.New(
			endpoint.GET,
			"/widget/messages",
			endpoint.WithTags("Widget"),
			endpoint.WithSummary("Get the conversation transcript"),
			endpoint.WithDescription("Returns all messages in insertion order together with the current instance state"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("chatbot_id", parameter.Query, parameter.WithDescription("Chatbot identifier")),
				parameter.StrParam("session_id", parameter.Query, parameter.WithDescription("Widget session identifier")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(MessagesResponse{}, "200", "Transcript retrieved successfully"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "chatbot_id and session_id are required"}, "400", "Bad Request"),
				response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
			}),
		),

		// POST /v1/widget/message - Send message
		endpoint.New(
			endpoint.POST,
			"/widget/message",
			endpoint.WithTags("Widget"),
			endpoint.WithSummary("Send an outgoing message"),
			endpoint.WithDescription("Runs one outgoing message: gate check, counting, the upstream query and the reply. A gated instance refuses without appending anything."),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("chatbot_id", parameter.Query, parameter.WithDescription("Chatbot identifier")),
				parameter.StrParam("session_id", parameter.Query, parameter.WithDescription("Widget session identifier")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(MessageResponse{}, "200", "Message processed"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "Message text is required"}, "400", "Bad Request"),
				response.New(ErrorResponse{Code: "GATE_LOCKED", Message: "Verification required before sending more messages"}, "403", "Forbidden"),
				response.New(ErrorResponse{Code: "AUTH_REQUIRED", Message: "Authentication required"}, "403", "Forbidden"),
				response.New(ErrorResponse{Code: "SUBSCRIPTION_EXPIRED", Message: "Subscription expired"}, "402", "Payment Required"),
				response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
			}),
		),

		// POST /v1/widget/message/{index}/done - Animation done
		endpoint.New(
			endpoint.POST,
			"/widget/message/{index}/done",
			endpoint.WithTags("Widget"),
			endpoint.WithSummary("Mark a message's reveal animation as finished"),
			endpoint.WithDescription("Records that the text-reveal animation for the message at index completed on the client, unblocking the inline gate prompt"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("chatbot_id", parameter.Query, parameter.WithDescription("Chatbot identifier")),
				parameter.StrParam("session_id", parameter.Query, parameter.WithDescription("Widget session identifier")),
				parameter.IntParam("index", parameter.Path, parameter.WithDescription("Transcript index")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(StateResponse{}, "200", "Animation state recorded"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "NOT_FOUND", Message: "Message not found"}, "404", "Not Found"),
				response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
			}),
		),

		// POST /v1/widget/otp/request - Request OTP
		endpoint.New(
			endpoint.POST,
			"/widget/otp/request",
			endpoint.WithTags("Auth"),
			endpoint.WithSummary("Request a verification code"),
			endpoint.WithDescription("Validates the identifier for the chatbot's configured method, enforces the resend cool-down, and dispatches a one-time code"),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("chatbot_id", parameter.Query, parameter.WithDescription("Chatbot identifier")),
				parameter.StrParam("session_id", parameter.Query, parameter.WithDescription("Widget session identifier")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(StateResponse{}, "200", "Code dispatched"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "INVALID_EMAIL", Message: "Invalid email address"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "INVALID_PHONE", Message: "Invalid phone number"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "OTP_RESEND_COOLDOWN", Message: "Please wait before requesting another code"}, "429", "Too Many Requests"),
				response.New(ErrorResponse{Code: "OTP_SEND_FAILED", Message: "Could not send the verification code"}, "502", "Bad Gateway"),
				response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
			}),
		),

		// POST /v1/widget/otp/verify - Verify OTP
		endpoint.New(
			endpoint.POST,
			"/widget/otp/verify",
			endpoint.WithTags("Auth"),
			endpoint.WithSummary("Verify a one-time code"),
			endpoint.WithDescription("Checks the submitted code upstream. Success persists the verified identity and unlocks the session."),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("chatbot_id", parameter.Query, parameter.WithDescription("Chatbot identifier")),
				parameter.StrParam("session_id", parameter.Query, parameter.WithDescription("Widget session identifier")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(StateResponse{}, "200", "Session verified"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "INVALID_OTP_FORMAT", Message: "Code must be 6 digits"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "OTP_INCORRECT", Message: "Incorrect verification code"}, "401", "Unauthorized"),
				response.New(ErrorResponse{Code: "OTP_NOT_REQUESTED", Message: "No verification code was requested"}, "400", "Bad Request"),
				response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
			}),
		),

		// POST /v1/widget/otp/cancel - Cancel OTP
		endpoint.New(
			endpoint.POST,
			"/widget/otp/cancel",
			endpoint.WithTags("Auth"),
			endpoint.WithSummary("Abandon a pending verification"),
			endpoint.WithDescription("Returns the instance from the code-entry step to the gated state"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("chatbot_id", parameter.Query, parameter.WithDescription("Chatbot identifier")),
				parameter.StrParam("session_id", parameter.Query, parameter.WithDescription("Widget session identifier")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(StateResponse{}, "200", "Challenge abandoned"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
			}),
		),

		// POST /v1/widget/audio/play - Play reply
		endpoint.New(
			endpoint.POST,
			"/widget/audio/play",
			endpoint.WithTags("Audio"),
			endpoint.WithSummary("Play the latest reply's voice clip"),
			endpoint.WithDescription("Plays or replays the voice clip for the most recent bot message, synthesizing it first when the reply arrived without audio. Playing the clip that is already active stops it instead."),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("chatbot_id", parameter.Query, parameter.WithDescription("Chatbot identifier")),
				parameter.StrParam("session_id", parameter.Query, parameter.WithDescription("Widget session identifier")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(StateResponse{}, "200", "Playback command issued"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "NOT_FOUND", Message: "No bot message to play"}, "404", "Not Found"),
				response.New(ErrorResponse{Code: "UNSUPPORTED_AUDIO", Message: "Unsupported audio format"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
			}),
		),

		// POST /v1/widget/audio/stop - Stop playback
		endpoint.New(
			endpoint.POST,
			"/widget/audio/stop",
			endpoint.WithTags("Audio"),
			endpoint.WithSummary("Stop active playback"),
			endpoint.WithDescription("Tears down the active playback slot. Stopping with nothing playing is a no-op."),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("chatbot_id", parameter.Query, parameter.WithDescription("Chatbot identifier")),
				parameter.StrParam("session_id", parameter.Query, parameter.WithDescription("Widget session identifier")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(StateResponse{}, "200", "Playback stopped"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
			}),
		),

		// POST /v1/widget/audio/mute - Mute preference
		endpoint.New(
			endpoint.POST,
			"/widget/audio/mute",
			endpoint.WithTags("Audio"),
			endpoint.WithSummary("Set the mute preference"),
			endpoint.WithDescription("Flips the persistent mute preference and applies it to live playback without interrupting it"),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("chatbot_id", parameter.Query, parameter.WithDescription("Chatbot identifier")),
				parameter.StrParam("session_id", parameter.Query, parameter.WithDescription("Widget session identifier")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(StateResponse{}, "200", "Mute preference applied"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
			}),
		),

		// POST /v1/widget/audio/ended - Playback ended
		endpoint.New(
			endpoint.POST,
			"/widget/audio/ended",
			endpoint.WithTags("Audio"),
			endpoint.WithSummary("Report natural end of playback"),
			endpoint.WithDescription("The client's report that the active clip finished playing. A stale index is ignored."),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("chatbot_id", parameter.Query, parameter.WithDescription("Chatbot identifier")),
				parameter.StrParam("session_id", parameter.Query, parameter.WithDescription("Widget session identifier")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(StateResponse{}, "200", "Report processed"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
			}),
		),

		// POST /v1/widget/record/start - Start recording
		endpoint.New(
			endpoint.POST,
			"/widget/record/start",
			endpoint.WithTags("Recording"),
			endpoint.WithSummary("Start a voice recording"),
			endpoint.WithDescription("Acquires the capture device and begins buffering, bounded by the duration ceiling. Recording is refused while the gate is engaged."),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("chatbot_id", parameter.Query, parameter.WithDescription("Chatbot identifier")),
				parameter.StrParam("session_id", parameter.Query, parameter.WithDescription("Widget session identifier")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(StateResponse{}, "200", "Recording started"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "GATE_LOCKED", Message: "Verification required before sending more messages"}, "403", "Forbidden"),
				response.New(ErrorResponse{Code: "RECORDING_ACTIVE", Message: "A recording is already in progress"}, "409", "Conflict"),
				response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
			}),
		),

		// POST /v1/widget/record/chunk - Push audio chunk
		endpoint.New(
			endpoint.POST,
			"/widget/record/chunk",
			endpoint.WithTags("Recording"),
			endpoint.WithSummary("Upload one audio chunk"),
			endpoint.WithDescription("Appends the raw request body to the active capture's buffer"),
			endpoint.WithConsume([]mime.MIME{mime.MIME("application/octet-stream")}),
			endpoint.WithParams(
				parameter.StrParam("chatbot_id", parameter.Query, parameter.WithDescription("Chatbot identifier")),
				parameter.StrParam("session_id", parameter.Query, parameter.WithDescription("Widget session identifier")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EmptyResponse{}, "204", "Chunk buffered"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "NOT_RECORDING", Message: "No active recording"}, "409", "Conflict"),
				response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
			}),
		),

		// POST /v1/widget/record/stop - Stop and transcribe
		endpoint.New(
			endpoint.POST,
			"/widget/record/stop",
			endpoint.WithTags("Recording"),
			endpoint.WithSummary("Stop recording and transcribe"),
			endpoint.WithDescription("Finalizes the capture, transcribes the buffered audio and returns the text. When the duration ceiling already auto-stopped the recording, the buffered transcript is returned."),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("chatbot_id", parameter.Query, parameter.WithDescription("Chatbot identifier")),
				parameter.StrParam("session_id", parameter.Query, parameter.WithDescription("Widget session identifier")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(TranscriptResponse{}, "200", "Transcript returned"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "NOT_RECORDING", Message: "No active recording"}, "409", "Conflict"),
				response.New(ErrorResponse{Code: "NO_SPEECH_DETECTED", Message: "No speech detected"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "TRANSCRIBE_TIMEOUT", Message: "Transcription timed out"}, "504", "Gateway Timeout"),
				response.New(ErrorResponse{Code: "AUDIO_TOO_LARGE", Message: "Recording too large to transcribe"}, "413", "Payload Too Large"),
				response.New(ErrorResponse{Code: "TRANSCRIBE_RATE_LIMITED", Message: "Transcription rate limit reached"}, "429", "Too Many Requests"),
				response.New(ErrorResponse{Code: "TRANSCRIBE_SERVER_ERROR", Message: "Transcription service unavailable"}, "502", "Bad Gateway"),
				response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
			}),
		),
	}

	sw.AddEndpoints(endpoints)

	return sw
}
