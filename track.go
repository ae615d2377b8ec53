package chromakey

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
)

// Track binding errors.
var (
	// ErrNilTrack is returned when attaching a nil track.
	ErrNilTrack = errors.New("chromakey: track is nil")

	// ErrAttachInProgress is returned when a concurrent attach is already
	// underway for the same adapter.
	ErrAttachInProgress = errors.New("chromakey: attach already in progress")

	// ErrNoTrack is returned when pulling from a detached adapter.
	ErrNoTrack = errors.New("chromakey: no track attached")
)

// ReadyState describes how much decodable data a track currently has,
// mirroring the conventional media-element readiness ladder.
type ReadyState int

const (
	// ReadyStateNothing means no data is available.
	ReadyStateNothing ReadyState = iota

	// ReadyStateMetadata means dimensions are known but no frame is decoded.
	ReadyStateMetadata

	// ReadyStateCurrentData means the current frame is decoded and samplable.
	ReadyStateCurrentData

	// ReadyStateFutureData means at least one frame beyond the current one
	// is buffered.
	ReadyStateFutureData

	// ReadyStateEnoughData means the track is keeping up with real time.
	ReadyStateEnoughData
)

// String returns a human-readable name for the state.
func (s ReadyState) String() string {
	switch s {
	case ReadyStateNothing:
		return "nothing"
	case ReadyStateMetadata:
		return "metadata"
	case ReadyStateCurrentData:
		return "current-data"
	case ReadyStateFutureData:
		return "future-data"
	case ReadyStateEnoughData:
		return "enough-data"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Track is an opaque handle to one live video track supplied by an external
// session manager. The compositor never creates, destroys, or controls the
// track; it only pulls frames and re-evaluates readiness.
//
// Live tracks may report continuously advancing state without conventional
// play/pause semantics. Implementations must not assume they are "playing".
type Track interface {
	// Frame returns the most recent decoded frame. The release function
	// must be called when the frame is no longer needed; implementations
	// may recycle the backing buffer afterwards.
	Frame(ctx context.Context) (image.Image, func(), error)

	// Bounds returns the current frame dimensions, or zeros when unknown.
	Bounds() (width, height int)

	// ReadyState reports how much decodable data is currently available.
	ReadyState() ReadyState

	// Ended reports whether the track has permanently finished.
	Ended() bool
}

// EventKind identifies a track lifecycle signal.
type EventKind int

const (
	// EventMetadataLoaded fires when track dimensions first become known.
	EventMetadataLoaded EventKind = iota

	// EventCanPlay fires when the first frame is decodable.
	EventCanPlay

	// EventPlay fires when frames start flowing.
	EventPlay

	// EventError fires on a track-level error.
	EventError
)

// String returns a human-readable name for the event kind.
func (k EventKind) String() string {
	switch k {
	case EventMetadataLoaded:
		return "metadata-loaded"
	case EventCanPlay:
		return "can-play"
	case EventPlay:
		return "play"
	case EventError:
		return "error"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Event is a track lifecycle signal.
type Event struct {
	Kind EventKind
	Err  error // set for EventError
}

// EventedTrack is an optional interface for tracks that emit lifecycle
// signals. The adapter subscribes purely for observability: no event gates
// correctness. The authoritative readiness is always re-derived from the
// track's current state, which avoids races between event ordering and
// actual decoder state.
type EventedTrack interface {
	Track

	// Subscribe registers a listener for lifecycle events. The returned
	// function removes the listener.
	Subscribe(fn func(Event)) (unsubscribe func())
}

// Adapter binds one external live video track and exposes the readiness
// predicate and frame-pull surface the Scheduler drives.
//
// Attach fully resets adapter state, so replacing the track mid-session is
// safe; a guard rejects duplicate concurrent setup.
type Adapter struct {
	mu        sync.Mutex
	track     Track
	unsub     func()
	attaching bool
}

// NewAdapter creates an adapter with no track bound.
func NewAdapter() *Adapter {
	return &Adapter{}
}

// Attach binds a track, replacing any previous binding. Lifecycle events
// from the track are logged for observability only; they never feed the
// readiness predicate.
func (a *Adapter) Attach(track Track) error {
	if track == nil {
		return ErrNilTrack
	}

	a.mu.Lock()
	if a.attaching {
		a.mu.Unlock()
		return ErrAttachInProgress
	}
	a.attaching = true
	a.resetLocked()
	a.mu.Unlock()

	var unsub func()
	if et, ok := track.(EventedTrack); ok {
		unsub = et.Subscribe(func(ev Event) {
			if ev.Kind == EventError {
				Logger().Warn("chromakey: track error", "err", ev.Err)
				return
			}
			Logger().Info("chromakey: track event", "event", ev.Kind.String())
		})
	}

	a.mu.Lock()
	a.track = track
	a.unsub = unsub
	a.attaching = false
	a.mu.Unlock()
	return nil
}

// Detach unbinds the current track and resets all adapter state.
// Safe to call when nothing is attached.
func (a *Adapter) Detach() {
	a.mu.Lock()
	a.resetLocked()
	a.mu.Unlock()
}

// resetLocked clears track state. Caller holds a.mu.
func (a *Adapter) resetLocked() {
	if a.unsub != nil {
		a.unsub()
		a.unsub = nil
	}
	a.track = nil
}

// Track returns the currently bound track, or nil.
func (a *Adapter) Track() Track {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.track
}

// IsReady is the authoritative readiness predicate: the track has at least
// current-frame data, known positive dimensions, and has not ended. Only
// this predicate gates rendering; lifecycle events never do.
func (a *Adapter) IsReady() bool {
	t := a.Track()
	if t == nil {
		return false
	}
	w, h := t.Bounds()
	return t.ReadyState() >= ReadyStateCurrentData && w > 0 && h > 0 && !t.Ended()
}

// Bounds returns the bound track's current dimensions, or zeros.
func (a *Adapter) Bounds() (width, height int) {
	t := a.Track()
	if t == nil {
		return 0, 0
	}
	return t.Bounds()
}

// PullFrame returns the bound track's most recent frame.
func (a *Adapter) PullFrame(ctx context.Context) (image.Image, func(), error) {
	t := a.Track()
	if t == nil {
		return nil, nil, ErrNoTrack
	}
	return t.Frame(ctx)
}
