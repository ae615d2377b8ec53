package chromakey

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// Compositor lifecycle errors.
var (
	// ErrTornDown is returned when attaching to a compositor after Teardown.
	ErrTornDown = errors.New("chromakey: compositor torn down")
)

// Option configures a Compositor during creation.
type Option func(*compositorOptions)

// compositorOptions holds optional configuration for Compositor creation.
type compositorOptions struct {
	tuning   Tuning
	pacer    Pacer
	renderer FrameRenderer
	debug    DebugMode
}

// WithTuning overrides the keying tuning constants.
func WithTuning(t Tuning) Option {
	return func(o *compositorOptions) {
		o.tuning = t
	}
}

// WithPacer sets the host's frame-pacing mechanism. The default is a
// ticker pacer at ~60 ticks per second.
func WithPacer(p Pacer) Option {
	return func(o *compositorOptions) {
		o.pacer = p
	}
}

// WithRenderer injects a custom frame renderer, typically gpu.NewRenderer
// wired to the host's GPU device. The default is the software renderer.
func WithRenderer(r FrameRenderer) Option {
	return func(o *compositorOptions) {
		o.renderer = r
	}
}

// WithDebugMode selects a diagnostic rendering variant before the loop
// starts. See DebugMode.
func WithDebugMode(m DebugMode) Option {
	return func(o *compositorOptions) {
		o.debug = m
	}
}

// Compositor is the host-facing entry point: it binds a live track, runs
// the keying loop, and exposes the composited premultiplied-alpha surface.
//
// Lifecycle: New → Attach → (UpdateParams)* → Teardown. Attach with a new
// track replaces the previous binding after a full internal reset. Teardown
// is synchronous and idempotent; after it, the compositor is inert.
type Compositor struct {
	mu sync.Mutex

	params Params
	tuning Tuning
	opts   compositorOptions

	adapter   *Adapter
	surface   *Surface
	scheduler *Scheduler

	tornDown bool
}

// New creates a compositor with the given parameters. Invalid parameters
// are replaced with DefaultParams and logged, so a sloppy host still gets
// frames rather than a dead surface.
func New(params Params, opts ...Option) *Compositor {
	o := compositorOptions{tuning: DefaultTuning()}
	for _, opt := range opts {
		opt(&o)
	}

	if err := params.Validate(); err != nil {
		Logger().Warn("chromakey: invalid params, using defaults", "err", err)
		params = DefaultParams()
	}
	if err := o.tuning.Validate(); err != nil {
		Logger().Warn("chromakey: invalid tuning, using defaults", "err", err)
		o.tuning = DefaultTuning()
	}

	return &Compositor{
		params:  params,
		tuning:  o.tuning,
		opts:    o,
		adapter: NewAdapter(),
		surface: NewSurface(0, 0),
	}
}

// Attach binds a live track and starts the render loop. A second Attach
// replaces the previous track: the old loop is stopped and all render state
// is reset before the new binding, matching a track-replacement in the
// external session.
//
// The context bounds the loop's lifetime; cancelling it stops scheduling.
func (c *Compositor) Attach(ctx context.Context, track Track) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tornDown {
		return ErrTornDown
	}

	if c.scheduler != nil {
		c.scheduler.Stop()
		c.scheduler = nil
	}

	if err := c.adapter.Attach(track); err != nil {
		return err
	}

	session := uuid.NewString()
	Logger().Info("chromakey: track attached", "session", session)

	c.surface = NewSurface(0, 0)
	keyer := NewKeyer(c.params, c.tuning)
	c.scheduler = NewScheduler(c.adapter, c.surface, c.opts.renderer, keyer, c.opts.pacer, c.opts.debug)
	c.scheduler.Start(ctx)
	return nil
}

// UpdateParams replaces the keying parameters wholesale. The running loop
// picks the new set up on its next tick; no tick ever sees a partial
// update. Invalid parameters are rejected and the old set stays active.
func (c *Compositor) UpdateParams(params Params) error {
	if err := params.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.params = params
	if c.scheduler != nil {
		c.scheduler.SetKeyer(NewKeyer(params, c.tuning))
	}
	return nil
}

// Params returns the current keying parameters.
func (c *Compositor) Params() Params {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.params
}

// Surface returns the output surface. The surface instance is stable for
// the duration of one attach; its dimensions follow the source.
func (c *Compositor) Surface() *Surface {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.surface
}

// Scheduler returns the active scheduler, or nil when detached. Hosts with
// their own frame callback pump Scheduler.Tick directly.
func (c *Compositor) Scheduler() *Scheduler {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scheduler
}

// Detach stops the render loop and unbinds the track without tearing the
// compositor down; a later Attach starts fresh.
func (c *Compositor) Detach() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.detachLocked()
}

func (c *Compositor) detachLocked() {
	if c.scheduler != nil {
		c.scheduler.Stop()
		c.scheduler = nil
	}
	c.adapter.Detach()
}

// Teardown stops the loop, releases all render resources, and makes the
// compositor inert. Idempotent; calling it twice is safe.
func (c *Compositor) Teardown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tornDown {
		return
	}
	c.detachLocked()
	c.tornDown = true
	Logger().Info("chromakey: compositor torn down")
}
