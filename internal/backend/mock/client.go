// Package mock provides a testify-based double for the upstream provider
// contract, shared by the component test suites.
package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/saturnino-fabrica-de-software/parla/internal/backend"
	"github.com/saturnino-fabrica-de-software/parla/internal/domain"
)

// Client is a mock implementation of backend.Client.
type Client struct {
	mock.Mock
}

var _ backend.Client = (*Client)(nil)

func (m *Client) GetConfig(ctx context.Context, chatbotID string) (*backend.WidgetConfig, error) {
	args := m.Called(ctx, chatbotID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*backend.WidgetConfig), args.Error(1)
}

func (m *Client) ValidateSession(ctx context.Context, method domain.AuthMethod, identifier, chatbotID string) (bool, error) {
	args := m.Called(ctx, method, identifier, chatbotID)
	return args.Bool(0), args.Error(1)
}

func (m *Client) SendOtp(ctx context.Context, method domain.AuthMethod, identifier, chatbotID string) error {
	args := m.Called(ctx, method, identifier, chatbotID)
	return args.Error(0)
}

func (m *Client) VerifyOtp(ctx context.Context, method domain.AuthMethod, identifier, code, chatbotID string) (bool, error) {
	args := m.Called(ctx, method, identifier, code, chatbotID)
	return args.Bool(0), args.Error(1)
}

func (m *Client) Query(ctx context.Context, req backend.QueryRequest) (*backend.QueryResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*backend.QueryResult), args.Error(1)
}

func (m *Client) Transcribe(ctx context.Context, audio []byte, formatHint string) (string, error) {
	args := m.Called(ctx, audio, formatHint)
	return args.String(0), args.Error(1)
}

func (m *Client) Synthesize(ctx context.Context, text string) (*domain.AudioPayload, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AudioPayload), args.Error(1)
}
