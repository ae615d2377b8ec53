package source

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/gogpu/chromakey"
	"github.com/vova616/screenshot"
)

// ScreenTrack is a live track backed by desktop capture. Each pull grabs
// the configured screen region, so the track behaves like a continuously
// advancing source with no playback semantics at all, exactly the kind of
// track the compositor must not assume is "playing".
//
// Mostly useful for development: point it at a window showing keyed footage
// and exercise the full pipeline without a session backend.
type ScreenTrack struct {
	eventHub

	// region is the capture rectangle; zero means full screen.
	region image.Rectangle

	mu       sync.Mutex
	width    int
	height   int
	captured bool
	closed   bool
}

// NewScreenTrack creates a full-screen capture track.
func NewScreenTrack() (*ScreenTrack, error) {
	r, err := screenshot.ScreenRect()
	if err != nil {
		return nil, fmt.Errorf("source: query screen: %w", err)
	}
	return &ScreenTrack{width: r.Dx(), height: r.Dy()}, nil
}

// NewScreenRegionTrack creates a capture track for a fixed screen region.
func NewScreenRegionTrack(region image.Rectangle) *ScreenTrack {
	return &ScreenTrack{
		region: region,
		width:  region.Dx(),
		height: region.Dy(),
	}
}

// Frame captures the region and returns it.
func (t *ScreenTrack) Frame(_ context.Context) (image.Image, func(), error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, nil, ErrTrackClosed
	}
	region := t.region
	first := !t.captured
	t.mu.Unlock()

	var (
		img *image.RGBA
		err error
	)
	if region.Empty() {
		img, err = screenshot.CaptureScreen()
	} else {
		img, err = screenshot.CaptureRect(region)
	}
	if err != nil {
		t.emit(chromakey.Event{Kind: chromakey.EventError, Err: err})
		return nil, nil, fmt.Errorf("source: capture: %w", err)
	}

	b := img.Bounds()
	t.mu.Lock()
	t.width, t.height = b.Dx(), b.Dy()
	t.captured = true
	t.mu.Unlock()
	if first {
		t.emit(chromakey.Event{Kind: chromakey.EventCanPlay})
		t.emit(chromakey.Event{Kind: chromakey.EventPlay})
	}

	return img, func() {}, nil
}

// Bounds returns the capture dimensions.
func (t *ScreenTrack) Bounds() (width, height int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.width, t.height
}

// ReadyState reports enough-data while the screen remains capturable.
// The desktop always has a current frame, so readiness never degrades.
func (t *ScreenTrack) ReadyState() chromakey.ReadyState {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return chromakey.ReadyStateNothing
	}
	return chromakey.ReadyStateEnoughData
}

// Ended reports whether Close has been called.
func (t *ScreenTrack) Ended() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Close ends the track.
func (t *ScreenTrack) Close() error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	return nil
}

var _ chromakey.EventedTrack = (*ScreenTrack)(nil)
