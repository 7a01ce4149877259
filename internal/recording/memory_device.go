package recording

import (
	"context"
	"errors"
	"sync"

	"github.com/saturnino-fabrica-de-software/parla/internal/domain"
)

var errNoSupportedEncoding = errors.New("no supported encoding")

// MemoryDevice is a capture device whose chunks are fed by the transport
// layer: the widget client streams audio up and each upload lands in the
// active capture's buffer.
type MemoryDevice struct {
	mu        sync.Mutex
	supported []string
	active    *memoryCapture
}

// NewMemoryDevice creates a device. With no arguments every offered
// encoding is supported and the first preference wins.
func NewMemoryDevice(supported ...string) *MemoryDevice {
	return &MemoryDevice{supported: supported}
}

func (d *MemoryDevice) Acquire(ctx context.Context, encodings []string) (Capture, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.active != nil {
		return nil, domain.ErrRecordingActive
	}

	encoding := d.pickEncoding(encodings)
	if encoding == "" {
		return nil, errNoSupportedEncoding
	}

	c := &memoryCapture{device: d, encoding: encoding}
	d.active = c
	return c, nil
}

// Push appends a chunk to the active capture.
func (d *MemoryDevice) Push(chunk []byte) error {
	d.mu.Lock()
	capture := d.active
	d.mu.Unlock()

	if capture == nil {
		return domain.ErrNotRecording
	}
	return capture.push(chunk)
}

func (d *MemoryDevice) pickEncoding(encodings []string) string {
	if len(d.supported) == 0 {
		if len(encodings) == 0 {
			return ""
		}
		return encodings[0]
	}
	for _, want := range encodings {
		for _, have := range d.supported {
			if want == have {
				return want
			}
		}
	}
	return ""
}

func (d *MemoryDevice) release(c *memoryCapture) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active == c {
		d.active = nil
	}
}

type memoryCapture struct {
	device   *MemoryDevice
	encoding string

	mu       sync.Mutex
	chunks   [][]byte
	released bool
}

func (c *memoryCapture) Encoding() string {
	return c.encoding
}

func (c *memoryCapture) push(chunk []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return domain.ErrNotRecording
	}
	buf := make([]byte, len(chunk))
	copy(buf, chunk)
	c.chunks = append(c.chunks, buf)
	return nil
}

func (c *memoryCapture) Finalize(ctx context.Context) ([][]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.chunks, nil
}

func (c *memoryCapture) Release() {
	c.mu.Lock()
	if c.released {
		c.mu.Unlock()
		return
	}
	c.released = true
	c.mu.Unlock()

	c.device.release(c)
}
