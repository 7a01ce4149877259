package audio

import (
	"context"
	"errors"

	"github.com/saturnino-fabrica-de-software/parla/internal/domain"
)

// ErrAutoplayBlocked is returned by a Player when playback cannot start
// audibly because no prior user interaction has occurred. The controller
// treats it as a soft condition: the slot stays prepared, nothing is
// surfaced to the user.
var ErrAutoplayBlocked = errors.New("playback blocked pending user interaction")

// Playback is one live clip. Implementations release the underlying
// resource on Release; all methods must be safe to call after release.
type Playback interface {
	// SetMuted applies mute to the live resource, audible within the same
	// turn rather than only on the next playback.
	SetMuted(muted bool)
	// Pause halts output without releasing the resource.
	Pause()
	// Release frees the underlying resource and unblocks Done, so a
	// waiter never outlives a torn-down clip. Idempotent.
	Release()
	// Done is closed when the clip reaches its natural end or the
	// playback is released.
	Done() <-chan struct{}
}

// Player decodes an audio payload into a live Playback associated with a
// transcript index. Prepare may return a non-nil Playback together with
// ErrAutoplayBlocked, meaning the clip is decoded and ready but not
// audibly playing.
type Player interface {
	Prepare(ctx context.Context, payload domain.AudioPayload, messageIndex int, muted bool) (Playback, error)
}
