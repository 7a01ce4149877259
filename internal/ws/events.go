package ws

import (
	"time"
)

type EventType string

const (
	EventPlaybackStart EventType = "playback.start"
	EventPlaybackStop  EventType = "playback.stop"
	EventPlaybackMute  EventType = "playback.mute"
	EventGateEngaged   EventType = "gate.engaged"
	EventOtpSent       EventType = "otp.sent"
)

type Event struct {
	SessionID string      `json:"-"`
	Type      EventType   `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}
