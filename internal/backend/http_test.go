package backend

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/parla/internal/domain"
)

func newTestClient(serverURL string, retries int) *HTTPClient {
	return NewHTTPClient(Config{
		BaseURL:    serverURL,
		Timeout:    5 * time.Second,
		RetryCount: retries,
	})
}

func TestGetConfig(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/widget/config", r.URL.Path)
		assert.Equal(t, "bot-1", r.URL.Query().Get("chatbot_id"))

		_ = json.NewEncoder(w).Encode(WidgetConfig{
			AuthMethod:           domain.MethodEmail,
			RequireAuthFromStart: true,
			RequireAuthText:      "Sign in first",
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL, 0)
	cfg, err := client.GetConfig(context.Background(), "bot-1")
	require.NoError(t, err)
	assert.Equal(t, domain.MethodEmail, cfg.AuthMethod)
	assert.True(t, cfg.RequireAuthFromStart)
	assert.Equal(t, "Sign in first", cfg.RequireAuthText)
}

func TestValidateSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/auth/validate", r.URL.Path)

		var req validateSessionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, domain.MethodPhone, req.Method)
		assert.Equal(t, "11987654321", req.Identifier)

		_ = json.NewEncoder(w).Encode(validateSessionResponse{Valid: true})
	}))
	defer server.Close()

	client := newTestClient(server.URL, 0)
	valid, err := client.ValidateSession(context.Background(), domain.MethodPhone, "11987654321", "bot-1")
	require.NoError(t, err)
	assert.True(t, valid)
}

func TestQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/query", r.URL.Path)

		var req QueryRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hello", req.Query)
		assert.Equal(t, "sess-1", req.SessionID)

		_ = json.NewEncoder(w).Encode(QueryResult{Answer: "hi there"})
	}))
	defer server.Close()

	client := newTestClient(server.URL, 0)
	result, err := client.Query(context.Background(), QueryRequest{
		ChatbotID: "bot-1",
		Query:     "hello",
		SessionID: "sess-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "hi there", result.Answer)
}

func TestTranscribe(t *testing.T) {
	audio := []byte("fake-webm-bytes")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/transcriptions", r.URL.Path)

		var req transcribeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, base64.StdEncoding.EncodeToString(audio), req.AudioBase64)
		assert.Equal(t, "audio/webm", req.Format)

		_ = json.NewEncoder(w).Encode(transcribeResponse{Text: "hello world"})
	}))
	defer server.Close()

	client := newTestClient(server.URL, 0)
	text, err := client.Transcribe(context.Background(), audio, "audio/webm")
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)
}

func TestSynthesize(t *testing.T) {
	clip := []byte("mp3-bytes")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/speech", r.URL.Path)
		_ = json.NewEncoder(w).Encode(synthesizeResponse{
			AudioBase64: base64.StdEncoding.EncodeToString(clip),
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL, 0)
	payload, err := client.Synthesize(context.Background(), "say this")
	require.NoError(t, err)
	assert.Equal(t, clip, payload.Data)
	// Content type defaults when the upstream omits it.
	assert.Equal(t, "audio/mpeg", payload.ContentType)
}

func TestSynthesize_BadBase64(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(synthesizeResponse{AudioBase64: "not base64!!!"})
	}))
	defer server.Close()

	client := newTestClient(server.URL, 0)
	_, err := client.Synthesize(context.Background(), "say this")
	assert.ErrorContains(t, err, "decode synthesized audio")
}

func TestStatusErrorParsing(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode string
		wantMsg  string
	}{
		{
			name:     "flat shape",
			status:   403,
			body:     `{"errorCode":"AUTH_REQUIRED","message":"auth required"}`,
			wantCode: "AUTH_REQUIRED",
			wantMsg:  "auth required",
		},
		{
			name:     "enveloped shape",
			status:   403,
			body:     `{"error":{"code":"SUBSCRIPTION_EXPIRED","message":"plan lapsed"}}`,
			wantCode: "SUBSCRIPTION_EXPIRED",
			wantMsg:  "plan lapsed",
		},
		{
			name:    "non json body",
			status:  413,
			body:    "payload too big",
			wantMsg: "payload too big",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := newTestClient(server.URL, 0)
			_, err := client.Query(context.Background(), QueryRequest{Query: "x"})
			require.Error(t, err)

			var se *StatusError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.status, se.Status)
			assert.Equal(t, tt.wantCode, se.ErrorCode)
			assert.Equal(t, tt.wantMsg, se.Message)
		})
	}
}

func TestRetryOnServerError(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(WidgetConfig{AuthMethod: domain.MethodEmail})
	}))
	defer server.Close()

	client := newTestClient(server.URL, 1)
	cfg, err := client.GetConfig(context.Background(), "bot-1")
	require.NoError(t, err)
	assert.Equal(t, domain.MethodEmail, cfg.AuthMethod)
	assert.Equal(t, int32(2), calls.Load())
}

func TestNoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := newTestClient(server.URL, 3)
	_, err := client.GetConfig(context.Background(), "bot-1")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestVerifyOtpNotRetried(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	// Even with retries configured, a verify attempt must run exactly once.
	client := newTestClient(server.URL, 3)
	_, err := client.VerifyOtp(context.Background(), domain.MethodEmail, "a@b.com", "123456", "bot-1")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestQueryNotRetried(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server.URL, 3)
	_, err := client.Query(context.Background(), QueryRequest{Query: "x"})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRetryExhaustionWrapsUpstreamUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(server.URL, 1)
	err := client.SendOtp(context.Background(), domain.MethodEmail, "a@b.com", "bot-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestCalculateBackoff(t *testing.T) {
	assert.Equal(t, time.Second, calculateBackoff(0))
	assert.Equal(t, time.Second, calculateBackoff(1))
	assert.Equal(t, 2*time.Second, calculateBackoff(2))
	assert.Equal(t, 4*time.Second, calculateBackoff(3))
	assert.Equal(t, 8*time.Second, calculateBackoff(4))
	assert.Equal(t, 8*time.Second, calculateBackoff(10))
}
