// Package recording captures a bounded voice segment and hands it to
// transcription. The lifecycle is idle → recording → finalizing → idle
// with a hard ceiling on capture duration; the capture device and the
// deadline timer are released on every exit path.
package recording

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/saturnino-fabrica-de-software/parla/internal/audit"
	"github.com/saturnino-fabrica-de-software/parla/internal/backend"
	"github.com/saturnino-fabrica-de-software/parla/internal/domain"
)

// DefaultMaxDuration is the hard recording ceiling.
const DefaultMaxDuration = 30 * time.Second

// Phase is the capture lifecycle position.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseRecording  Phase = "recording"
	PhaseFinalizing Phase = "finalizing"
)

// Controller owns at most one active capture for a widget instance.
type Controller struct {
	mu     sync.Mutex
	device Device
	client backend.Client
	logger *slog.Logger
	audit  audit.Logger

	maxDuration time.Duration
	encodings   []string
	chatbotID   string
	sessionID   string

	phase        Phase
	capture      Capture
	deadline     *time.Timer
	startedAt    time.Time
	onTranscript func(string)
}

func NewController(device Device, client backend.Client, logger *slog.Logger) *Controller {
	return &Controller{
		device:      device,
		client:      client,
		logger:      logger,
		audit:       audit.Nop{},
		maxDuration: DefaultMaxDuration,
		encodings:   DefaultEncodings,
		phase:       PhaseIdle,
	}
}

func (c *Controller) WithMaxDuration(d time.Duration) *Controller {
	c.maxDuration = d
	return c
}

func (c *Controller) WithEncodings(encodings []string) *Controller {
	c.encodings = encodings
	return c
}

// WithAudit attributes transcription audit events to one widget instance.
func (c *Controller) WithAudit(a audit.Logger, chatbotID, sessionID string) *Controller {
	c.audit = a
	c.chatbotID = chatbotID
	c.sessionID = sessionID
	return c
}

// Phase returns the current lifecycle position.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Start acquires the capture device and begins buffering. A second Start
// while a capture is active is rejected; the original capture continues
// unaffected. The deadline timer auto-stops the recording at the ceiling.
// Callers must gate Start on the auth policy before invoking it.
func (c *Controller) Start(ctx context.Context, onTranscript func(string)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseIdle {
		return domain.ErrRecordingActive
	}

	capture, err := c.device.Acquire(ctx, c.encodings)
	if err != nil {
		return domain.ErrInternal.WithError(fmt.Errorf("acquire capture device: %w", err))
	}

	c.capture = capture
	c.onTranscript = onTranscript
	c.startedAt = time.Now()
	c.phase = PhaseRecording
	c.deadline = time.AfterFunc(c.maxDuration, func() {
		// The ceiling fires Stop exactly once; a concurrent explicit Stop
		// already moved the phase on, making this a no-op.
		if err := c.Stop(context.Background()); err != nil {
			c.logger.Debug("deadline stop skipped", slog.Any("error", err))
		}
	})

	c.logger.Debug("recording started", slog.String("encoding", capture.Encoding()))
	return nil
}

// Stop finalizes the capture, transcribes the buffered audio, and invokes
// the transcript callback on a non-empty result. The device and the timer
// are released whatever happens; the lifecycle always returns to idle.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.phase != PhaseRecording {
		c.mu.Unlock()
		return domain.ErrNotRecording
	}

	c.phase = PhaseFinalizing
	c.deadline.Stop()
	c.deadline = nil

	capture := c.capture
	onTranscript := c.onTranscript
	c.capture = nil
	c.onTranscript = nil
	c.mu.Unlock()

	// Finalize and transcribe outside the lock; the finalizing phase keeps
	// a second Start out in the meantime.
	defer func() {
		capture.Release()
		c.mu.Lock()
		c.phase = PhaseIdle
		c.mu.Unlock()
	}()

	chunks, err := capture.Finalize(ctx)
	if err != nil {
		return domain.ErrInternal.WithError(fmt.Errorf("finalize capture: %w", err))
	}

	payload := bytes.Join(chunks, nil)
	if len(payload) == 0 {
		return domain.ErrNoSpeechDetected
	}

	text, err := c.client.Transcribe(ctx, payload, capture.Encoding())
	if err != nil {
		return backend.ClassifyTranscription(err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return domain.ErrNoSpeechDetected
	}

	c.audit.Log(ctx, audit.Event{
		ChatbotID: c.chatbotID,
		SessionID: c.sessionID,
		EventType: audit.EventTranscribed,
		Success:   true,
		Metadata:  map[string]string{"encoding": capture.Encoding()},
	})

	if onTranscript != nil {
		onTranscript(text)
	}
	return nil
}

// Close aborts any active capture without transcribing. Used on widget
// teardown so the device never leaks.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.deadline != nil {
		c.deadline.Stop()
		c.deadline = nil
	}
	if c.capture != nil {
		c.capture.Release()
		c.capture = nil
	}
	c.onTranscript = nil
	c.phase = PhaseIdle
}
