// Package widget assembles the four core components into one explicit
// state container per embedded widget instance. There are no process-wide
// singletons: two widgets on one page each own their own container and
// cannot interfere.
package widget

import (
	"context"
	"log/slog"
	"time"

	"github.com/saturnino-fabrica-de-software/parla/internal/audio"
	"github.com/saturnino-fabrica-de-software/parla/internal/audit"
	"github.com/saturnino-fabrica-de-software/parla/internal/authgate"
	"github.com/saturnino-fabrica-de-software/parla/internal/backend"
	"github.com/saturnino-fabrica-de-software/parla/internal/engine"
	"github.com/saturnino-fabrica-de-software/parla/internal/kv"
	"github.com/saturnino-fabrica-de-software/parla/internal/recording"
	"github.com/saturnino-fabrica-de-software/parla/internal/ws"
)

// Deps are the shared collaborators every instance is built from.
type Deps struct {
	Store  kv.Store
	Client backend.Client
	Logger *slog.Logger
	Hub    *ws.Hub
	Audit  audit.Logger

	Generic403Fallback bool
	Threshold          int
	ResendWindow       time.Duration
	RecordingLimit     time.Duration
	AudioEnabled       bool
}

// Instance is the per-widget state container.
type Instance struct {
	ChatbotID string
	SessionID string

	Gate     *authgate.Gate
	Audio    *audio.Controller
	Recorder *recording.Controller
	Engine   *engine.Engine

	Relay  *ws.RelayPlayer
	Device *recording.MemoryDevice

	// Transcripts is the one-slot mailbox a finished recording drops its
	// transcript into. The transport layer drains it after Stop.
	Transcripts chan string
}

// NewInstance wires the components together and restores persisted gate
// state for (chatbotID, sessionID).
func NewInstance(ctx context.Context, deps Deps, chatbotID, sessionID string) (*Instance, error) {
	logger := deps.Logger.With(
		slog.String("chatbot_id", chatbotID),
		slog.String("session_id", sessionID),
	)

	auditor := deps.Audit
	if auditor == nil {
		auditor = audit.NewSlogLogger(logger)
	}

	// Gate transitions the client renders live also go out over the hub.
	notifier := newGateNotifier(auditor, deps.Hub, sessionID)

	gate := authgate.New(deps.Store, deps.Client, logger).
		WithGeneric403Fallback(deps.Generic403Fallback).
		WithAudit(notifier)
	if deps.Threshold > 0 {
		gate.WithThreshold(deps.Threshold)
	}
	if deps.ResendWindow > 0 {
		gate.WithResendWindow(deps.ResendWindow)
	}

	relay := ws.NewRelayPlayer(deps.Hub, sessionID)
	audioCtrl := audio.NewController(relay, logger)

	device := recording.NewMemoryDevice()
	recorder := recording.NewController(device, deps.Client, logger).
		WithAudit(auditor, chatbotID, sessionID)
	if deps.RecordingLimit > 0 {
		recorder.WithMaxDuration(deps.RecordingLimit)
	}

	eng := engine.New(gate, audioCtrl, deps.Client, logger, chatbotID, sessionID).
		WithAudioEnabled(deps.AudioEnabled).
		WithAudit(auditor)

	if err := gate.Initialize(ctx, chatbotID, sessionID); err != nil {
		return nil, err
	}

	return &Instance{
		ChatbotID:   chatbotID,
		SessionID:   sessionID,
		Gate:        gate,
		Audio:       audioCtrl,
		Recorder:    recorder,
		Engine:      eng,
		Relay:       relay,
		Device:      device,
		Transcripts: make(chan string, 1),
	}, nil
}

// Close releases everything the instance holds: the playback slot and any
// active capture.
func (i *Instance) Close() {
	i.Audio.Stop()
	i.Recorder.Close()
}
