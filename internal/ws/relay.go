package ws

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"

	"github.com/saturnino-fabrica-de-software/parla/internal/audio"
	"github.com/saturnino-fabrica-de-software/parla/internal/domain"
)

var errEmptyClip = errors.New("empty audio clip")

// supported playback content types; anything else is rejected before a
// slot is created.
var playableTypes = map[string]bool{
	"audio/mpeg": true,
	"audio/mp4":  true,
	"audio/wav":  true,
	"audio/ogg":  true,
	"audio/webm": true,
}

// RelayPlayer implements audio.Player by relaying decode/play/stop/mute
// commands to the widget client over the event hub. The browser does the
// audible playback; the slot state lives server-side in the controller.
type RelayPlayer struct {
	hub       *Hub
	sessionID string

	mu     sync.Mutex
	active *relayPlayback
}

func NewRelayPlayer(hub *Hub, sessionID string) *RelayPlayer {
	return &RelayPlayer{hub: hub, sessionID: sessionID}
}

type playbackStart struct {
	Index       int    `json:"index"`
	AudioBase64 string `json:"audio"`
	ContentType string `json:"content_type"`
	Muted       bool   `json:"muted"`
}

type playbackRef struct {
	Index int `json:"index"`
}

type playbackMute struct {
	Index int  `json:"index"`
	Muted bool `json:"muted"`
}

func (p *RelayPlayer) Prepare(ctx context.Context, payload domain.AudioPayload, messageIndex int, muted bool) (audio.Playback, error) {
	if !playableTypes[payload.ContentType] {
		return nil, domain.ErrUnsupportedAudio
	}
	if len(payload.Data) == 0 {
		return nil, domain.ErrUnsupportedAudio.WithError(errEmptyClip)
	}

	pb := &relayPlayback{
		relay: p,
		index: messageIndex,
		done:  make(chan struct{}),
	}

	p.mu.Lock()
	p.active = pb
	p.mu.Unlock()

	p.hub.Publish(Event{
		SessionID: p.sessionID,
		Type:      EventPlaybackStart,
		Data: playbackStart{
			Index:       messageIndex,
			AudioBase64: base64.StdEncoding.EncodeToString(payload.Data),
			ContentType: payload.ContentType,
			Muted:       muted,
		},
	})

	// With no client connected there is nobody to click first, which is
	// exactly the "no prior user interaction" condition: keep the slot
	// prepared, silently.
	if p.hub.SessionClients(p.sessionID) == 0 {
		return pb, audio.ErrAutoplayBlocked
	}

	return pb, nil
}

// CompleteActive marks the active clip as ended (reported by the client).
// A stale index is ignored: the slot it refers to was already replaced.
func (p *RelayPlayer) CompleteActive(messageIndex int) {
	p.mu.Lock()
	pb := p.active
	p.mu.Unlock()

	if pb == nil || pb.index != messageIndex {
		return
	}
	pb.complete()
}

type relayPlayback struct {
	relay *RelayPlayer
	index int

	once     sync.Once
	done     chan struct{}
	released sync.Once
}

func (pb *relayPlayback) SetMuted(muted bool) {
	pb.relay.hub.Publish(Event{
		SessionID: pb.relay.sessionID,
		Type:      EventPlaybackMute,
		Data:      playbackMute{Index: pb.index, Muted: muted},
	})
}

func (pb *relayPlayback) Pause() {
	pb.relay.hub.Publish(Event{
		SessionID: pb.relay.sessionID,
		Type:      EventPlaybackStop,
		Data:      playbackRef{Index: pb.index},
	})
}

func (pb *relayPlayback) Release() {
	pb.released.Do(func() {
		pb.relay.mu.Lock()
		if pb.relay.active == pb {
			pb.relay.active = nil
		}
		pb.relay.mu.Unlock()
	})
	// Release must unblock Done so nothing waiting on the clip outlives
	// the slot.
	pb.complete()
}

func (pb *relayPlayback) Done() <-chan struct{} {
	return pb.done
}

func (pb *relayPlayback) complete() {
	pb.once.Do(func() {
		close(pb.done)
	})
}
