package source

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"
	"time"

	"github.com/pion/interceptor"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3"

	"github.com/gogpu/chromakey"
)

// ErrTrackClosed is returned when pulling from a closed track.
var ErrTrackClosed = errors.New("source: track closed")

// FrameDecoder turns depacketized RTP video into decoded frames. The
// decoder is supplied by the host because codec choice belongs to the
// session, not the compositor: chromakey never encodes or decodes video
// itself.
//
// Decode is called once per RTP packet in arrival order. It returns a
// non-nil image each time a full access unit completes, and nil while a
// frame is still accumulating.
type FrameDecoder interface {
	Decode(pkt *rtp.Packet) (image.Image, error)
	Close() error
}

// remoteReader is the slice of *webrtc.TrackRemote the reader loop uses.
type remoteReader interface {
	ID() string
	ReadRTP() (*rtp.Packet, interceptor.Attributes, error)
	SetReadDeadline(t time.Time) error
}

// defaultStaleAfter is how long a decoded frame stays "fresh" before the
// track degrades from enough-data to current-data readiness.
const defaultStaleAfter = time.Second

// RTPTrack adapts a remote WebRTC video track into a chromakey.Track.
//
// A reader goroutine drains the remote track, feeds packets through the
// decoder, and keeps only the newest decoded frame; the compositor pulls
// that frame at its own pace. Decoder errors are logged and skipped:
// a corrupt packet is a missed frame, not a dead track. The track ends
// when the remote side closes (io.EOF).
type RTPTrack struct {
	eventHub

	remote  remoteReader
	decoder FrameDecoder

	staleAfter time.Duration

	mu      sync.Mutex
	frame   image.Image
	frameAt time.Time
	width   int
	height  int
	ended   bool
	closed  bool

	done     chan struct{}
	loopDone chan struct{}
}

// RTPTrackOption configures an RTPTrack.
type RTPTrackOption func(*RTPTrack)

// WithStaleAfter sets how long a decoded frame counts as fresh.
func WithStaleAfter(d time.Duration) RTPTrackOption {
	return func(t *RTPTrack) {
		if d > 0 {
			t.staleAfter = d
		}
	}
}

// NewRTPTrack starts draining the given remote track through the decoder.
// The caller owns the remote track's lifecycle; Close only stops this
// adapter and the decoder, never the track.
func NewRTPTrack(remote *webrtc.TrackRemote, decoder FrameDecoder, opts ...RTPTrackOption) (*RTPTrack, error) {
	if remote == nil {
		return nil, fmt.Errorf("source: remote track is nil")
	}
	return newRTPTrack(remote, decoder, opts...)
}

func newRTPTrack(remote remoteReader, decoder FrameDecoder, opts ...RTPTrackOption) (*RTPTrack, error) {
	if decoder == nil {
		return nil, fmt.Errorf("source: frame decoder is nil")
	}

	t := &RTPTrack{
		remote:     remote,
		decoder:    decoder,
		staleAfter: defaultStaleAfter,
		done:       make(chan struct{}),
		loopDone:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}

	go t.readLoop()
	return t, nil
}

// readLoop drains the remote track until EOF or Close.
func (t *RTPTrack) readLoop() {
	defer close(t.loopDone)

	logger := chromakey.Logger()
	first := true

	for {
		pkt, _, err := t.remote.ReadRTP()

		// Close may have fired while the read was parked; the packet or
		// error it unblocked with must not reach the decoder.
		select {
		case <-t.done:
			return
		default:
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				t.mu.Lock()
				t.ended = true
				t.mu.Unlock()
				logger.Info("source: rtp track ended", "track", t.remote.ID())
				return
			}
			t.emit(chromakey.Event{Kind: chromakey.EventError, Err: err})
			logger.Warn("source: rtp read failed", "err", err)
			continue
		}

		img, err := t.decoder.Decode(pkt)
		if err != nil {
			// A corrupt access unit is a missed frame, not a dead track.
			t.emit(chromakey.Event{Kind: chromakey.EventError, Err: err})
			logger.Warn("source: decode failed, frame dropped", "err", err)
			continue
		}
		if img == nil {
			continue
		}

		b := img.Bounds()
		t.mu.Lock()
		hadDims := t.width > 0
		t.frame = img
		t.frameAt = time.Now()
		t.width, t.height = b.Dx(), b.Dy()
		t.mu.Unlock()

		if !hadDims {
			t.emit(chromakey.Event{Kind: chromakey.EventMetadataLoaded})
		}
		if first {
			first = false
			t.emit(chromakey.Event{Kind: chromakey.EventCanPlay})
			t.emit(chromakey.Event{Kind: chromakey.EventPlay})
		}
	}
}

// Frame returns the newest decoded frame.
func (t *RTPTrack) Frame(_ context.Context) (image.Image, func(), error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, nil, ErrTrackClosed
	}
	if t.frame == nil {
		return nil, nil, ErrNoFrame
	}
	return t.frame, func() {}, nil
}

// Bounds returns the dimensions of the newest decoded frame.
func (t *RTPTrack) Bounds() (width, height int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.width, t.height
}

// ReadyState derives readiness from decoded-frame freshness: enough-data
// while frames are flowing, degrading to current-data when the newest
// frame goes stale (the compositor then keeps compositing the last good
// frame, which is the desired stall behavior).
func (t *RTPTrack) ReadyState() chromakey.ReadyState {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case t.closed || t.frame == nil && t.width == 0:
		return chromakey.ReadyStateNothing
	case t.frame == nil:
		return chromakey.ReadyStateMetadata
	case time.Since(t.frameAt) > t.staleAfter:
		return chromakey.ReadyStateCurrentData
	default:
		return chromakey.ReadyStateEnoughData
	}
}

// Ended reports whether the remote side has closed the track.
func (t *RTPTrack) Ended() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ended
}

// Close stops the reader goroutine, waits for it to exit, then closes the
// decoder, so no Decode call can race the decoder's shutdown. A reader
// parked in ReadRTP is unblocked via a read deadline on the remote track.
// Idempotent.
func (t *RTPTrack) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	close(t.done)
	if err := t.remote.SetReadDeadline(time.Now()); err != nil {
		chromakey.Logger().Warn("source: rtp read deadline failed", "err", err)
	}
	<-t.loopDone

	return t.decoder.Close()
}

var _ chromakey.EventedTrack = (*RTPTrack)(nil)
