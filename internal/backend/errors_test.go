package backend

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/parla/internal/domain"
)

func TestIsAuthRequired(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		generic403 bool
		want       bool
	}{
		{
			name:       "marker code",
			err:        &StatusError{Status: 403, ErrorCode: CodeAuthRequired},
			generic403: false,
			want:       true,
		},
		{
			name:       "marker message",
			err:        &StatusError{Status: 403, Message: "Auth required to continue"},
			generic403: false,
			want:       true,
		},
		{
			name:       "subscription code never auth",
			err:        &StatusError{Status: 403, ErrorCode: CodeSubscriptionExpired},
			generic403: true,
			want:       false,
		},
		{
			name:       "subscription message never auth",
			err:        &StatusError{Status: 403, Message: "your subscription has lapsed"},
			generic403: true,
			want:       false,
		},
		{
			name:       "bare 403 with fallback",
			err:        &StatusError{Status: 403, Message: "forbidden"},
			generic403: true,
			want:       true,
		},
		{
			name:       "bare 403 without fallback",
			err:        &StatusError{Status: 403, Message: "forbidden"},
			generic403: false,
			want:       false,
		},
		{
			name:       "unknown code not generic",
			err:        &StatusError{Status: 403, ErrorCode: "IP_BLOCKED"},
			generic403: true,
			want:       false,
		},
		{
			name:       "401 is not an auth gate signal",
			err:        &StatusError{Status: 401, ErrorCode: CodeAuthRequired},
			generic403: true,
			want:       false,
		},
		{
			name:       "wrapped status error still matches",
			err:        fmt.Errorf("query: %w", &StatusError{Status: 403, ErrorCode: CodeAuthRequired}),
			generic403: false,
			want:       true,
		},
		{
			name:       "plain error",
			err:        errors.New("dial tcp: timeout"),
			generic403: true,
			want:       false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAuthRequired(tt.err, tt.generic403))
		})
	}
}

func TestIsSubscriptionExpired(t *testing.T) {
	assert.True(t, IsSubscriptionExpired(&StatusError{Status: 403, ErrorCode: CodeSubscriptionExpired}))
	assert.True(t, IsSubscriptionExpired(&StatusError{Status: 403, Message: "Subscription expired"}))
	assert.False(t, IsSubscriptionExpired(&StatusError{Status: 402, ErrorCode: CodeSubscriptionExpired}))
	assert.False(t, IsSubscriptionExpired(&StatusError{Status: 403}))
	assert.False(t, IsSubscriptionExpired(errors.New("subscription")))
}

func TestClassifyTranscription(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{name: "context deadline", err: context.DeadlineExceeded, wantCode: domain.ErrTranscribeTimeout.Code},
		{name: "wrapped deadline", err: fmt.Errorf("do request: %w", context.DeadlineExceeded), wantCode: domain.ErrTranscribeTimeout.Code},
		{name: "408", err: &StatusError{Status: 408}, wantCode: domain.ErrTranscribeTimeout.Code},
		{name: "504", err: &StatusError{Status: 504}, wantCode: domain.ErrTranscribeTimeout.Code},
		{name: "413", err: &StatusError{Status: 413}, wantCode: domain.ErrAudioTooLarge.Code},
		{name: "429", err: &StatusError{Status: 429}, wantCode: domain.ErrTranscribeRateLimited.Code},
		{name: "500", err: &StatusError{Status: 500}, wantCode: domain.ErrTranscribeServer.Code},
		{name: "503", err: &StatusError{Status: 503}, wantCode: domain.ErrTranscribeServer.Code},
		{name: "upstream unavailable", err: fmt.Errorf("%w: dial refused", ErrUpstreamUnavailable), wantCode: domain.ErrTranscribeServer.Code},
		{name: "unexplained 400", err: &StatusError{Status: 400}, wantCode: domain.ErrTranscribeUnknown.Code},
		{name: "plain error", err: errors.New("mystery"), wantCode: domain.ErrTranscribeUnknown.Code},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := ClassifyTranscription(tt.err)
			require.NotNil(t, appErr)
			assert.Equal(t, tt.wantCode, appErr.Code)
			// The original failure stays reachable for logging.
			assert.ErrorIs(t, appErr, tt.err)
		})
	}
}
