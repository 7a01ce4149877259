package handler

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/parla/internal/domain"
	"github.com/saturnino-fabrica-de-software/parla/internal/widget"
)

// WidgetHandler exposes the per-instance widget operations over HTTP. Every
// route addresses one instance through the chatbot_id and session_id query
// parameters.
type WidgetHandler struct {
	manager *widget.Manager
	logger  *slog.Logger
}

func NewWidgetHandler(manager *widget.Manager, logger *slog.Logger) *WidgetHandler {
	return &WidgetHandler{
		manager: manager,
		logger:  logger,
	}
}

type SessionResponse struct {
	SessionID string `json:"session_id"`
}

type StateResponse struct {
	Phase           string `json:"phase"`
	Method          string `json:"method"`
	Identifier      string `json:"identifier,omitempty"`
	RequireAuthText string `json:"require_auth_text,omitempty"`
	Notice          string `json:"notice,omitempty"`
	PromptVisible   bool   `json:"prompt_visible"`
	ResendRemaining int    `json:"resend_remaining"`
	RecordingPhase  string `json:"recording_phase"`
	Muted           bool   `json:"muted"`
	Playing         bool   `json:"playing"`
}

type MessageRequest struct {
	Text string `json:"text"`
}

type MessageResponse struct {
	Index   int                `json:"index"`
	Message domain.ChatMessage `json:"message"`
	State   StateResponse      `json:"state"`
}

type MessagesResponse struct {
	Messages []domain.ChatMessage `json:"messages"`
	State    StateResponse        `json:"state"`
}

type OtpRequest struct {
	Identifier string `json:"identifier"`
}

type OtpVerifyRequest struct {
	Code string `json:"code"`
}

type MuteRequest struct {
	Muted bool `json:"muted"`
}

type PlaybackEndedRequest struct {
	Index int `json:"index"`
}

type TranscriptResponse struct {
	Text string `json:"text"`
}

func (h *WidgetHandler) instance(c *fiber.Ctx) (*widget.Instance, error) {
	chatbotID := c.Query("chatbot_id")
	sessionID := c.Query("session_id")
	if chatbotID == "" || sessionID == "" {
		return nil, domain.ErrValidationFailed.WithError(errors.New("chatbot_id and session_id are required"))
	}
	return h.manager.Get(c.Context(), chatbotID, sessionID)
}

func (h *WidgetHandler) stateOf(inst *widget.Instance, c *fiber.Ctx) StateResponse {
	state := inst.Gate.State()
	_, playing := inst.Audio.Playing()
	return StateResponse{
		Phase:           string(state.Phase),
		Method:          string(state.Method),
		Identifier:      state.Identifier,
		RequireAuthText: inst.Gate.RequireAuthText(),
		Notice:          inst.Gate.Notice(),
		PromptVisible:   inst.Engine.PromptVisible(),
		ResendRemaining: inst.Gate.ResendRemaining(c.Context()),
		RecordingPhase:  string(inst.Recorder.Phase()),
		Muted:           inst.Audio.Muted(),
		Playing:         playing,
	}
}

// CreateSession godoc
// Returns the stable per-client session id, minting one on first use.
func (h *WidgetHandler) CreateSession(c *fiber.Ctx) error {
	id, err := h.manager.EnsureSessionID(c.Context())
	if err != nil {
		return domain.ErrInternal.WithError(err)
	}
	return c.JSON(SessionResponse{SessionID: id})
}

// GetState reports the instance's auth, playback and recording state.
func (h *WidgetHandler) GetState(c *fiber.Ctx) error {
	inst, err := h.instance(c)
	if err != nil {
		return err
	}
	return c.JSON(h.stateOf(inst, c))
}

// GetMessages returns the transcript in insertion order.
func (h *WidgetHandler) GetMessages(c *fiber.Ctx) error {
	inst, err := h.instance(c)
	if err != nil {
		return err
	}
	messages := inst.Engine.Messages()
	if messages == nil {
		messages = []domain.ChatMessage{}
	}
	return c.JSON(MessagesResponse{
		Messages: messages,
		State:    h.stateOf(inst, c),
	})
}

// SendMessage runs one outgoing message through the engine.
func (h *WidgetHandler) SendMessage(c *fiber.Ctx) error {
	inst, err := h.instance(c)
	if err != nil {
		return err
	}

	var req MessageRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrBadRequest.WithError(err)
	}

	result, err := inst.Engine.Send(c.Context(), req.Text)
	if err != nil {
		return err
	}

	return c.JSON(MessageResponse{
		Index:   result.Index,
		Message: result.Message,
		State:   h.stateOf(inst, c),
	})
}

// MarkAnimationDone records that the text-reveal animation for the message
// at :index finished on the client.
func (h *WidgetHandler) MarkAnimationDone(c *fiber.Ctx) error {
	inst, err := h.instance(c)
	if err != nil {
		return err
	}

	index, err := c.ParamsInt("index")
	if err != nil {
		return domain.ErrBadRequest.WithError(err)
	}

	if err := inst.Engine.MarkAnimationDone(index); err != nil {
		return err
	}
	return c.JSON(h.stateOf(inst, c))
}

// RequestOtp dispatches a verification code to the given identifier.
func (h *WidgetHandler) RequestOtp(c *fiber.Ctx) error {
	inst, err := h.instance(c)
	if err != nil {
		return err
	}

	var req OtpRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrBadRequest.WithError(err)
	}

	if err := inst.Gate.RequestOtp(c.Context(), req.Identifier); err != nil {
		return err
	}
	return c.JSON(h.stateOf(inst, c))
}

// VerifyOtp checks the submitted code and unlocks the session on success.
func (h *WidgetHandler) VerifyOtp(c *fiber.Ctx) error {
	inst, err := h.instance(c)
	if err != nil {
		return err
	}

	var req OtpVerifyRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrBadRequest.WithError(err)
	}

	if err := inst.Gate.VerifyOtp(c.Context(), req.Code); err != nil {
		return err
	}
	return c.JSON(h.stateOf(inst, c))
}

// CancelOtp abandons a pending challenge and returns to the gated state.
func (h *WidgetHandler) CancelOtp(c *fiber.Ctx) error {
	inst, err := h.instance(c)
	if err != nil {
		return err
	}

	inst.Gate.CancelOtp()
	return c.JSON(h.stateOf(inst, c))
}

// PlayReply plays (or replays) the voice clip for the most recent bot
// message, synthesizing it first when the reply arrived without audio.
func (h *WidgetHandler) PlayReply(c *fiber.Ctx) error {
	inst, err := h.instance(c)
	if err != nil {
		return err
	}

	if err := inst.Engine.SpeakReply(c.Context()); err != nil {
		return err
	}
	return c.JSON(h.stateOf(inst, c))
}

// StopPlayback tears down the active playback slot, if any.
func (h *WidgetHandler) StopPlayback(c *fiber.Ctx) error {
	inst, err := h.instance(c)
	if err != nil {
		return err
	}

	inst.Audio.Stop()
	return c.JSON(h.stateOf(inst, c))
}

// SetMuted flips the mute preference and applies it to live playback.
func (h *WidgetHandler) SetMuted(c *fiber.Ctx) error {
	inst, err := h.instance(c)
	if err != nil {
		return err
	}

	var req MuteRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrBadRequest.WithError(err)
	}

	inst.Audio.SetMuted(req.Muted)
	return c.JSON(h.stateOf(inst, c))
}

// PlaybackEnded is the client's report that the active clip finished
// playing. A stale index is ignored.
func (h *WidgetHandler) PlaybackEnded(c *fiber.Ctx) error {
	inst, err := h.instance(c)
	if err != nil {
		return err
	}

	var req PlaybackEndedRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrBadRequest.WithError(err)
	}

	inst.Relay.CompleteActive(req.Index)
	return c.JSON(h.stateOf(inst, c))
}

// StartRecording begins a bounded voice capture. Recording is refused while
// the gate is engaged, same as typing.
func (h *WidgetHandler) StartRecording(c *fiber.Ctx) error {
	inst, err := h.instance(c)
	if err != nil {
		return err
	}

	if !inst.Gate.MayProceed() {
		return domain.ErrGateLocked
	}

	transcripts := inst.Transcripts
	// An auto-stopped capture the client never collected leaves its
	// transcript in the mailbox; a fresh recording must not return it.
	select {
	case <-transcripts:
	default:
	}
	err = inst.Recorder.Start(c.Context(), func(text string) {
		select {
		case transcripts <- text:
		default:
		}
	})
	if err != nil {
		return err
	}
	return c.JSON(h.stateOf(inst, c))
}

// PushChunk appends one uploaded audio chunk to the active capture. The
// request body is the raw chunk.
func (h *WidgetHandler) PushChunk(c *fiber.Ctx) error {
	inst, err := h.instance(c)
	if err != nil {
		return err
	}

	if err := inst.Device.Push(c.Body()); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// StopRecording finalizes the capture, transcribes it, and returns the
// text. When the duration ceiling already auto-stopped the recording, the
// buffered transcript is returned instead of an error.
func (h *WidgetHandler) StopRecording(c *fiber.Ctx) error {
	inst, err := h.instance(c)
	if err != nil {
		return err
	}

	if err := inst.Recorder.Stop(c.Context()); err != nil {
		if errors.Is(err, domain.ErrNotRecording) {
			select {
			case text := <-inst.Transcripts:
				return c.JSON(TranscriptResponse{Text: text})
			default:
			}
		}
		return err
	}

	select {
	case text := <-inst.Transcripts:
		return c.JSON(TranscriptResponse{Text: text})
	default:
		return domain.ErrNoSpeechDetected
	}
}
