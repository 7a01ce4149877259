package domain

import "time"

// Sender identifies who produced a chat message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// AnimationStatus tracks the text-reveal transition of a bot message.
// Inline gate and OTP prompts must not appear while the most recent bot
// message is still animating.
type AnimationStatus string

const (
	AnimationPending   AnimationStatus = "pending"
	AnimationAnimating AnimationStatus = "animating"
	AnimationDone      AnimationStatus = "done"
)

// AudioPayload is a decoded voice clip attached to a bot message.
type AudioPayload struct {
	Data        []byte `json:"-"`
	ContentType string `json:"content_type"`
}

// ChatMessage is one transcript entry. Entries are append-only; after
// creation only the animation status and, for the most recent bot message,
// a lazily fetched audio payload may be attached.
type ChatMessage struct {
	Sender    Sender          `json:"sender"`
	Text      string          `json:"text"`
	Audio     *AudioPayload   `json:"audio,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Animation AnimationStatus `json:"animation"`
}
