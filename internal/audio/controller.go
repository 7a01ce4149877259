// Package audio enforces single-flight playback: at most one voice clip is
// audible at any instant, and mute changes propagate to the live clip.
package audio

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/saturnino-fabrica-de-software/parla/internal/domain"
)

// Controller owns the at-most-one active playback slot for one widget
// instance.
type Controller struct {
	mu     sync.Mutex
	player Player
	logger *slog.Logger
	muted  bool
	slot   *slot
}

// slot associates a live playback with the transcript index it belongs to.
type slot struct {
	index    int
	playback Playback
}

func NewController(player Player, logger *slog.Logger) *Controller {
	return &Controller{
		player: player,
		logger: logger,
	}
}

// Play starts the clip for the given message index. Calling it with the
// index of the clip already playing stops it instead (toggle-to-stop).
// Any prior slot is fully torn down before the new one starts: the old
// resource is paused and released first, so two clips never overlap.
func (c *Controller) Play(ctx context.Context, payload domain.AudioPayload, messageIndex int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.slot != nil && c.slot.index == messageIndex {
		c.teardownLocked()
		return nil
	}

	c.teardownLocked()

	playback, err := c.player.Prepare(ctx, payload, messageIndex, c.muted)
	switch {
	case err == nil:
	case errors.Is(err, ErrAutoplayBlocked) && playback != nil:
		// Soft condition: keep the prepared slot, play silently.
		c.logger.Debug("playback blocked pending interaction",
			slog.Int("message_index", messageIndex),
		)
	default:
		c.logger.Warn("playback start failed",
			slog.Int("message_index", messageIndex),
			slog.Any("error", err),
		)
		if playback != nil {
			playback.Release()
		}
		return nil
	}

	s := &slot{index: messageIndex, playback: playback}
	c.slot = s

	// Clear the slot when the clip ends naturally. Only the slot that is
	// still current may clear itself; a later Play already replaced it.
	go func() {
		<-playback.Done()
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.slot == s {
			s.playback.Release()
			c.slot = nil
		}
	}()

	return nil
}

// Stop tears down the active slot if one exists. Idempotent.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teardownLocked()
}

// SetMuted updates the global mute flag and applies it to the live clip
// immediately.
func (c *Controller) SetMuted(muted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.muted = muted
	if c.slot != nil {
		c.slot.playback.SetMuted(muted)
	}
}

// Muted returns the global mute flag.
func (c *Controller) Muted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.muted
}

// Playing returns the message index of the active slot, if any.
func (c *Controller) Playing() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.slot == nil {
		return 0, false
	}
	return c.slot.index, true
}

// teardownLocked pauses and releases the active slot. Caller holds c.mu.
func (c *Controller) teardownLocked() {
	if c.slot == nil {
		return
	}
	c.slot.playback.Pause()
	c.slot.playback.Release()
	c.slot = nil
}
