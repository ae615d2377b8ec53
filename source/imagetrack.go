package source

import (
	"context"
	"errors"
	"image"
	"sync"

	"github.com/gogpu/chromakey"
)

// ErrNoFrame is returned when a track has no frame to deliver yet.
var ErrNoFrame = errors.New("source: no frame available")

// FrameFunc produces the next frame for an ImageTrack.
type FrameFunc func(ctx context.Context) (image.Image, error)

// ImageTrack is a synthetic live track fed by a frame function. Each pull
// invokes the function; the track reports the dimensions of the last frame
// it produced.
//
// ImageTrack is the plumbing for hosts that already hold decoded frames,
// and the workhorse of the test suite: readiness and ended state can be
// forced to exercise the compositor's stall and teardown behavior.
type ImageTrack struct {
	eventHub

	fn FrameFunc

	mu      sync.Mutex
	width   int
	height  int
	ready   chromakey.ReadyState
	ended   bool
	started bool
}

// NewImageTrack creates a track with known dimensions. The track reports
// enough-data readiness immediately; use SetReadyState to simulate stalls.
func NewImageTrack(width, height int, fn FrameFunc) *ImageTrack {
	return &ImageTrack{
		fn:     fn,
		width:  width,
		height: height,
		ready:  chromakey.ReadyStateEnoughData,
	}
}

// Frame produces the next frame by invoking the frame function.
func (t *ImageTrack) Frame(ctx context.Context) (image.Image, func(), error) {
	t.mu.Lock()
	fn := t.fn
	first := !t.started
	t.started = true
	t.mu.Unlock()

	if fn == nil {
		return nil, nil, ErrNoFrame
	}
	img, err := fn(ctx)
	if err != nil {
		t.emit(chromakey.Event{Kind: chromakey.EventError, Err: err})
		return nil, nil, err
	}
	if first {
		t.emit(chromakey.Event{Kind: chromakey.EventPlay})
	}

	b := img.Bounds()
	t.mu.Lock()
	t.width, t.height = b.Dx(), b.Dy()
	t.mu.Unlock()

	return img, func() {}, nil
}

// Bounds returns the dimensions of the most recent frame.
func (t *ImageTrack) Bounds() (width, height int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.width, t.height
}

// ReadyState reports the track's current readiness.
func (t *ImageTrack) ReadyState() chromakey.ReadyState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ready
}

// Ended reports whether the track has been ended.
func (t *ImageTrack) Ended() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ended
}

// SetReadyState forces a readiness level, simulating a source stall or
// recovery.
func (t *ImageTrack) SetReadyState(s chromakey.ReadyState) {
	t.mu.Lock()
	t.ready = s
	t.mu.Unlock()
	if s >= chromakey.ReadyStateCurrentData {
		t.emit(chromakey.Event{Kind: chromakey.EventCanPlay})
	}
}

// SetEnded marks the track as permanently finished.
func (t *ImageTrack) SetEnded(ended bool) {
	t.mu.Lock()
	t.ended = ended
	t.mu.Unlock()
}

// SetBounds forces new dimensions, simulating a source resize.
func (t *ImageTrack) SetBounds(width, height int) {
	t.mu.Lock()
	t.width, t.height = width, height
	t.mu.Unlock()
	t.emit(chromakey.Event{Kind: chromakey.EventMetadataLoaded})
}

var _ chromakey.EventedTrack = (*ImageTrack)(nil)
