package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/parla/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/parla/internal/backend"
	backendmock "github.com/saturnino-fabrica-de-software/parla/internal/backend/mock"
	"github.com/saturnino-fabrica-de-software/parla/internal/domain"
	"github.com/saturnino-fabrica-de-software/parla/internal/kv"
	"github.com/saturnino-fabrica-de-software/parla/internal/widget"
	"github.com/saturnino-fabrica-de-software/parla/internal/ws"
)

func newTestApp(t *testing.T) (*fiber.App, *backendmock.Client) {
	t.Helper()
	return newTestAppWithLimit(t, 30*time.Second)
}

func newTestAppWithLimit(t *testing.T, recordingLimit time.Duration) (*fiber.App, *backendmock.Client) {
	t.Helper()

	client := new(backendmock.Client)
	client.On("GetConfig", mock.Anything, mock.Anything).
		Return(&backend.WidgetConfig{AuthMethod: domain.MethodEmail}, nil).Maybe()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	manager := widget.NewManager(widget.Deps{
		Store:          kv.NewMemoryStore(),
		Client:         client,
		Logger:         logger,
		Hub:            ws.NewHub(),
		Threshold:      2,
		ResendWindow:   60 * time.Second,
		RecordingLimit: recordingLimit,
		AudioEnabled:   true,
	})
	t.Cleanup(manager.Close)

	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
	})

	h := NewWidgetHandler(manager, logger)
	w := app.Group("/v1/widget")
	w.Post("/session", h.CreateSession)
	w.Get("/state", h.GetState)
	w.Get("/messages", h.GetMessages)
	w.Post("/message", h.SendMessage)
	w.Post("/message/:index/done", h.MarkAnimationDone)
	w.Post("/otp/request", h.RequestOtp)
	w.Post("/otp/verify", h.VerifyOtp)
	w.Post("/otp/cancel", h.CancelOtp)
	w.Post("/audio/play", h.PlayReply)
	w.Post("/audio/stop", h.StopPlayback)
	w.Post("/audio/mute", h.SetMuted)
	w.Post("/audio/ended", h.PlaybackEnded)
	w.Post("/record/start", h.StartRecording)
	w.Post("/record/chunk", h.PushChunk)
	w.Post("/record/stop", h.StopRecording)

	return app, client
}

const widgetQuery = "?chatbot_id=bot-1&session_id=sess-1"

func jsonRequest(method, target string, body interface{}) *http.Request {
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	_ = resp.Body.Close()
}

func errorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	decodeBody(t, resp, &body)
	return body.Error.Code
}

func TestCreateSession(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/v1/widget/session", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body SessionResponse
	decodeBody(t, resp, &body)
	assert.NotEmpty(t, body.SessionID)

	// A second call returns the same id.
	resp, err = app.Test(jsonRequest(http.MethodPost, "/v1/widget/session", nil))
	require.NoError(t, err)
	var again SessionResponse
	decodeBody(t, resp, &again)
	assert.Equal(t, body.SessionID, again.SessionID)
}

func TestGetState_MissingParams(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(jsonRequest(http.MethodGet, "/v1/widget/state", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, resp))
}

func TestGetState(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(jsonRequest(http.MethodGet, "/v1/widget/state"+widgetQuery, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var state StateResponse
	decodeBody(t, resp, &state)
	assert.Equal(t, string(domain.PhaseOpen), state.Phase)
	assert.Equal(t, string(domain.MethodEmail), state.Method)
	assert.Equal(t, "idle", state.RecordingPhase)
	assert.False(t, state.Playing)
}

func TestSendMessage(t *testing.T) {
	app, client := newTestApp(t)
	client.On("Query", mock.Anything, mock.Anything).
		Return(&backend.QueryResult{Answer: "hi there"}, nil).Once()

	resp, err := app.Test(jsonRequest(http.MethodPost, "/v1/widget/message"+widgetQuery,
		MessageRequest{Text: "hello"}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body MessageResponse
	decodeBody(t, resp, &body)
	assert.Equal(t, 1, body.Index)
	assert.Equal(t, "hi there", body.Message.Text)
	assert.Equal(t, domain.SenderBot, body.Message.Sender)
	assert.Equal(t, string(domain.PhaseOpen), body.State.Phase)

	client.AssertExpectations(t)
}

func TestSendMessage_GateEngagesAtThreshold(t *testing.T) {
	app, client := newTestApp(t)
	client.On("Query", mock.Anything, mock.Anything).
		Return(&backend.QueryResult{Answer: "ok"}, nil).Twice()

	for i := 0; i < 2; i++ {
		resp, err := app.Test(jsonRequest(http.MethodPost, "/v1/widget/message"+widgetQuery,
			MessageRequest{Text: "hello"}))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		_ = resp.Body.Close()
	}

	// The third message is refused; the gate engaged on the second.
	resp, err := app.Test(jsonRequest(http.MethodPost, "/v1/widget/message"+widgetQuery,
		MessageRequest{Text: "one more"}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "GATE_LOCKED", errorCode(t, resp))

	client.AssertExpectations(t)
}

func TestSendMessage_EmptyText(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/v1/widget/message"+widgetQuery,
		MessageRequest{Text: "   "}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestRequestOtp_InvalidIdentifier(t *testing.T) {
	app, client := newTestApp(t)
	client.On("Query", mock.Anything, mock.Anything).
		Return(&backend.QueryResult{Answer: "ok"}, nil).Twice()

	for i := 0; i < 2; i++ {
		resp, err := app.Test(jsonRequest(http.MethodPost, "/v1/widget/message"+widgetQuery,
			MessageRequest{Text: "hello"}))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		_ = resp.Body.Close()
	}

	resp, err := app.Test(jsonRequest(http.MethodPost, "/v1/widget/otp/request"+widgetQuery,
		OtpRequest{Identifier: "not-an-email"}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "INVALID_EMAIL", errorCode(t, resp))
}

func TestOtpFlow(t *testing.T) {
	app, client := newTestApp(t)
	client.On("Query", mock.Anything, mock.Anything).
		Return(&backend.QueryResult{Answer: "ok"}, nil).Twice()
	client.On("SendOtp", mock.Anything, domain.MethodEmail, "user@example.com", "bot-1").
		Return(nil).Once()
	client.On("VerifyOtp", mock.Anything, domain.MethodEmail, "user@example.com", "123456", "bot-1").
		Return(true, nil).Once()

	for i := 0; i < 2; i++ {
		resp, err := app.Test(jsonRequest(http.MethodPost, "/v1/widget/message"+widgetQuery,
			MessageRequest{Text: "hello"}))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		_ = resp.Body.Close()
	}

	resp, err := app.Test(jsonRequest(http.MethodPost, "/v1/widget/otp/request"+widgetQuery,
		OtpRequest{Identifier: "user@example.com"}))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var state StateResponse
	decodeBody(t, resp, &state)
	assert.Equal(t, string(domain.PhaseAwaitingOtp), state.Phase)
	assert.Positive(t, state.ResendRemaining)

	resp, err = app.Test(jsonRequest(http.MethodPost, "/v1/widget/otp/verify"+widgetQuery,
		OtpVerifyRequest{Code: "123456"}))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	decodeBody(t, resp, &state)
	assert.Equal(t, string(domain.PhaseVerified), state.Phase)
	assert.Equal(t, "user@example.com", state.Identifier)

	client.AssertExpectations(t)
}

func TestSetMuted(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/v1/widget/audio/mute"+widgetQuery,
		MuteRequest{Muted: true}))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var state StateResponse
	decodeBody(t, resp, &state)
	assert.True(t, state.Muted)
}

func TestStopRecording_NotRecording(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/v1/widget/record/stop"+widgetQuery, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "NOT_RECORDING", errorCode(t, resp))
}

func TestRecordingFlow(t *testing.T) {
	app, client := newTestApp(t)
	client.On("Transcribe", mock.Anything, mock.Anything, mock.Anything).
		Return("spoken words", nil).Once()

	resp, err := app.Test(jsonRequest(http.MethodPost, "/v1/widget/record/start"+widgetQuery, nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var state StateResponse
	decodeBody(t, resp, &state)
	assert.Equal(t, "recording", state.RecordingPhase)

	chunk := httptest.NewRequest(http.MethodPost, "/v1/widget/record/chunk"+widgetQuery,
		bytes.NewReader([]byte("audio-bytes")))
	chunk.Header.Set("Content-Type", "application/octet-stream")
	resp, err = app.Test(chunk)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = app.Test(jsonRequest(http.MethodPost, "/v1/widget/record/stop"+widgetQuery, nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var transcript TranscriptResponse
	decodeBody(t, resp, &transcript)
	assert.Equal(t, "spoken words", transcript.Text)

	client.AssertExpectations(t)
}

func TestStartRecording_DiscardsAbandonedTranscript(t *testing.T) {
	app, client := newTestAppWithLimit(t, 30*time.Millisecond)
	client.On("Transcribe", mock.Anything, mock.Anything, mock.Anything).
		Return("first words", nil).Once()
	client.On("Transcribe", mock.Anything, mock.Anything, mock.Anything).
		Return("second words", nil).Once()

	record := func() {
		resp, err := app.Test(jsonRequest(http.MethodPost, "/v1/widget/record/start"+widgetQuery, nil))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		_ = resp.Body.Close()

		chunk := httptest.NewRequest(http.MethodPost, "/v1/widget/record/chunk"+widgetQuery,
			bytes.NewReader([]byte("audio-bytes")))
		chunk.Header.Set("Content-Type", "application/octet-stream")
		resp, err = app.Test(chunk)
		require.NoError(t, err)
		require.Equal(t, http.StatusNoContent, resp.StatusCode)
	}

	// First capture hits the duration ceiling and is never collected.
	record()
	require.Eventually(t, func() bool {
		resp, err := app.Test(jsonRequest(http.MethodGet, "/v1/widget/state"+widgetQuery, nil))
		if err != nil {
			return false
		}
		var state StateResponse
		decodeBody(t, resp, &state)
		return state.RecordingPhase == "idle"
	}, time.Second, 10*time.Millisecond)

	// The next recording must return its own transcript, not the stale one.
	record()
	resp, err := app.Test(jsonRequest(http.MethodPost, "/v1/widget/record/stop"+widgetQuery, nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var transcript TranscriptResponse
	decodeBody(t, resp, &transcript)
	assert.Equal(t, "second words", transcript.Text)

	client.AssertExpectations(t)
}

func TestStartRecording_GateLocked(t *testing.T) {
	app, client := newTestApp(t)
	client.On("Query", mock.Anything, mock.Anything).
		Return(&backend.QueryResult{Answer: "ok"}, nil).Twice()

	for i := 0; i < 2; i++ {
		resp, err := app.Test(jsonRequest(http.MethodPost, "/v1/widget/message"+widgetQuery,
			MessageRequest{Text: "hello"}))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		_ = resp.Body.Close()
	}

	resp, err := app.Test(jsonRequest(http.MethodPost, "/v1/widget/record/start"+widgetQuery, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "GATE_LOCKED", errorCode(t, resp))
}

func TestGetMessages(t *testing.T) {
	app, client := newTestApp(t)
	client.On("Query", mock.Anything, mock.Anything).
		Return(&backend.QueryResult{Answer: "reply"}, nil).Once()

	resp, err := app.Test(jsonRequest(http.MethodGet, "/v1/widget/messages"+widgetQuery, nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body MessagesResponse
	decodeBody(t, resp, &body)
	assert.Empty(t, body.Messages)

	resp, err = app.Test(jsonRequest(http.MethodPost, "/v1/widget/message"+widgetQuery,
		MessageRequest{Text: "hello"}))
	require.NoError(t, err)
	_ = resp.Body.Close()

	resp, err = app.Test(jsonRequest(http.MethodGet, "/v1/widget/messages"+widgetQuery, nil))
	require.NoError(t, err)
	decodeBody(t, resp, &body)
	require.Len(t, body.Messages, 2)
	assert.Equal(t, domain.SenderUser, body.Messages[0].Sender)
	assert.Equal(t, domain.SenderBot, body.Messages[1].Sender)
}

func TestMarkAnimationDone_OutOfRange(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/v1/widget/message/9/done"+widgetQuery, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
