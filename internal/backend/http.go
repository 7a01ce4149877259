package backend

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/saturnino-fabrica-de-software/parla/internal/domain"
)

// Config holds the configuration for the upstream HTTP client
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	RetryCount int
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		BaseURL:    "http://localhost:8085",
		Timeout:    30 * time.Second,
		RetryCount: 2,
	}
}

// HTTPClient is the HTTP implementation of Client
type HTTPClient struct {
	httpClient *http.Client
	config     Config
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a new upstream client
func NewHTTPClient(config Config) *HTTPClient {
	return &HTTPClient{
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		config: config,
	}
}

func (c *HTTPClient) GetConfig(ctx context.Context, chatbotID string) (*WidgetConfig, error) {
	var resp WidgetConfig
	path := "/v1/widget/config?chatbot_id=" + url.QueryEscape(chatbotID)
	if err := c.doRequestWithRetry(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

type validateSessionRequest struct {
	Method     domain.AuthMethod `json:"method"`
	Identifier string            `json:"identifier"`
	ChatbotID  string            `json:"chatbot_id"`
}

type validateSessionResponse struct {
	Valid bool `json:"valid"`
}

func (c *HTTPClient) ValidateSession(ctx context.Context, method domain.AuthMethod, identifier, chatbotID string) (bool, error) {
	req := validateSessionRequest{Method: method, Identifier: identifier, ChatbotID: chatbotID}

	var resp validateSessionResponse
	if err := c.doRequestWithRetry(ctx, http.MethodPost, "/v1/auth/validate", req, &resp); err != nil {
		return false, err
	}
	return resp.Valid, nil
}

type otpRequest struct {
	Method     domain.AuthMethod `json:"method"`
	Identifier string            `json:"identifier"`
	Code       string            `json:"code,omitempty"`
	ChatbotID  string            `json:"chatbot_id"`
}

type verifyOtpResponse struct {
	Success bool `json:"success"`
}

func (c *HTTPClient) SendOtp(ctx context.Context, method domain.AuthMethod, identifier, chatbotID string) error {
	req := otpRequest{Method: method, Identifier: identifier, ChatbotID: chatbotID}
	return c.doRequestWithRetry(ctx, http.MethodPost, "/v1/auth/otp/send", req, nil)
}

func (c *HTTPClient) VerifyOtp(ctx context.Context, method domain.AuthMethod, identifier, code, chatbotID string) (bool, error) {
	req := otpRequest{Method: method, Identifier: identifier, Code: code, ChatbotID: chatbotID}

	var resp verifyOtpResponse
	// Verification is a single attempt: retrying could consume the code twice.
	if err := c.doRequest(ctx, http.MethodPost, "/v1/auth/otp/verify", req, &resp); err != nil {
		return false, err
	}
	return resp.Success, nil
}

func (c *HTTPClient) Query(ctx context.Context, req QueryRequest) (*QueryResult, error) {
	var resp QueryResult
	// A chat turn is not retried either; a duplicate query would append a
	// duplicate answer on the upstream side.
	if err := c.doRequest(ctx, http.MethodPost, "/v1/chat/query", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

type transcribeRequest struct {
	AudioBase64 string `json:"audio"`
	Format      string `json:"format,omitempty"`
}

type transcribeResponse struct {
	Text string `json:"text"`
}

func (c *HTTPClient) Transcribe(ctx context.Context, audio []byte, formatHint string) (string, error) {
	req := transcribeRequest{
		AudioBase64: base64.StdEncoding.EncodeToString(audio),
		Format:      formatHint,
	}

	var resp transcribeResponse
	if err := c.doRequestWithRetry(ctx, http.MethodPost, "/v1/audio/transcriptions", req, &resp); err != nil {
		return "", err
	}
	return resp.Text, nil
}

type synthesizeRequest struct {
	Text string `json:"text"`
}

type synthesizeResponse struct {
	AudioBase64 string `json:"audio_base64"`
	ContentType string `json:"content_type,omitempty"`
}

func (c *HTTPClient) Synthesize(ctx context.Context, text string) (*domain.AudioPayload, error) {
	req := synthesizeRequest{Text: text}

	var resp synthesizeResponse
	if err := c.doRequestWithRetry(ctx, http.MethodPost, "/v1/audio/speech", req, &resp); err != nil {
		return nil, err
	}

	data, err := base64.StdEncoding.DecodeString(resp.AudioBase64)
	if err != nil {
		return nil, fmt.Errorf("decode synthesized audio: %w", err)
	}

	contentType := resp.ContentType
	if contentType == "" {
		contentType = "audio/mpeg"
	}

	return &domain.AudioPayload{Data: data, ContentType: contentType}, nil
}

// maxBackoff is the maximum backoff duration for retries
const maxBackoff = 10 * time.Second

// calculateBackoff calculates exponential backoff duration for a given attempt
// Returns 1s, 2s, 4s, 8s, etc. up to maxBackoff
func calculateBackoff(attempt int) time.Duration {
	if attempt <= 0 {
		return time.Second
	}
	seconds := 1
	for i := 1; i < attempt && i < 4; i++ {
		seconds *= 2
	}
	return time.Duration(seconds) * time.Second
}

// doRequestWithRetry executes HTTP request with retry logic
func (c *HTTPClient) doRequestWithRetry(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var lastErr error

	for attempt := 0; attempt <= c.config.RetryCount; attempt++ {
		if attempt > 0 {
			backoff := calculateBackoff(attempt)
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		lastErr = c.doRequest(ctx, method, path, body, result)
		if lastErr == nil {
			return nil
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		// Don't retry on client errors (4xx) - only on server errors and
		// transport failures
		if isClientError(lastErr) {
			return lastErr
		}
	}

	return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, lastErr)
}

// isClientError checks if the error is a 4xx client error
func isClientError(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.Status >= 400 && se.Status < 500
}

func (c *HTTPClient) doRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseStatusError(resp.StatusCode, data)
	}

	if result != nil && len(data) > 0 {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	return nil
}

// upstream error bodies come in two shapes: a flat {errorCode, message}
// and an enveloped {error: {code, message}}
type errorBody struct {
	ErrorCode string `json:"errorCode"`
	Message   string `json:"message"`
	Error     *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func parseStatusError(status int, data []byte) *StatusError {
	se := &StatusError{Status: status}

	var body errorBody
	if err := json.Unmarshal(data, &body); err == nil {
		se.ErrorCode = body.ErrorCode
		se.Message = body.Message
		if body.Error != nil {
			if se.ErrorCode == "" {
				se.ErrorCode = body.Error.Code
			}
			if se.Message == "" {
				se.Message = body.Error.Message
			}
		}
	}
	if se.Message == "" {
		se.Message = string(data)
	}

	return se
}
