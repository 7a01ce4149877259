package recording

import "context"

// DefaultEncodings is the ordered preference list offered to the capture
// device; the device picks the first one it supports.
var DefaultEncodings = []string{
	"audio/webm;codecs=opus",
	"audio/webm",
	"audio/mp4",
	"audio/ogg;codecs=opus",
}

// Device acquires voice capture hardware. Acquire fails when the device is
// unavailable or none of the preferred encodings is supported.
type Device interface {
	Acquire(ctx context.Context, encodings []string) (Capture, error)
}

// Capture is one live recording. Finalize flushes the device and returns
// the buffered chunks in order; Release frees the device and must be
// called on every exit path, including after a Finalize error. Release is
// idempotent.
type Capture interface {
	Encoding() string
	Finalize(ctx context.Context) ([][]byte, error)
	Release()
}
