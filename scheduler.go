package chromakey

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// SchedulerState is the lifecycle state of the frame scheduler.
type SchedulerState int

const (
	// StateUninitialized means no track has been attached yet.
	StateUninitialized SchedulerState = iota

	// StateWaitingForReady means a track is attached but the renderer has
	// not completed its first successful initialization.
	StateWaitingForReady

	// StateRendering means the per-frame loop is live. Brief source stalls
	// do not leave this state; they only skip ticks.
	StateRendering

	// StateStopped is terminal. No further ticks render after teardown.
	StateStopped
)

// String returns a human-readable name for the state.
func (s SchedulerState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateWaitingForReady:
		return "waiting-for-ready"
	case StateRendering:
		return "rendering"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Pacer is the host's frame-pacing mechanism. Wait blocks until the next
// tick should run ("wait until next display refresh"). The scheduler calls
// Wait strictly between ticks, so ticks never overlap.
type Pacer interface {
	Wait(ctx context.Context) error
}

// TickerPacer paces ticks on a fixed wall-clock interval. It is the default
// pacer for hosts without a vsync-style callback.
type TickerPacer struct {
	interval time.Duration
}

// NewTickerPacer creates a pacer with the given interval.
// Non-positive intervals fall back to ~60 ticks per second.
func NewTickerPacer(interval time.Duration) *TickerPacer {
	if interval <= 0 {
		interval = time.Second / 60
	}
	return &TickerPacer{interval: interval}
}

// Wait blocks for one interval or until the context is done.
func (p *TickerPacer) Wait(ctx context.Context) error {
	t := time.NewTimer(p.interval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// FrameRenderer turns one staged frame into keyed output on the surface.
//
// The software renderer is the default; gpu.Renderer implements the same
// interface over a WebGPU pipeline. Initialize is called lazily on the
// first ready frame and must be idempotent; a failure aborts that tick but
// the scheduler retries on later ticks once conditions change.
type FrameRenderer interface {
	// Initialize prepares rendering resources. Idempotent; on failure no
	// partial resources may leak, so a later retry starts clean.
	Initialize(width, height int) error

	// Resize adapts rendering resources to new frame dimensions.
	Resize(width, height int) error

	// Render keys src into dst using the given keyer. A render failure is
	// a skipped frame, never corrupted state.
	Render(src *Frame, keyer *Keyer, dst *Surface) error

	// Release frees all rendering resources. Idempotent.
	Release()
}

// softwareRenderer is the CPU rendition of the render path.
type softwareRenderer struct{}

func (softwareRenderer) Initialize(width, height int) error { return nil }
func (softwareRenderer) Resize(width, height int) error     { return nil }
func (softwareRenderer) Release()                           {}

func (softwareRenderer) Render(src *Frame, keyer *Keyer, dst *Surface) error {
	dst.Clear()
	if !keyer.Apply(src, dst) {
		return fmt.Errorf("chromakey: frame %dx%d does not match surface %dx%d",
			src.Width(), src.Height(), dst.Width(), dst.Height())
	}
	return nil
}

// Scheduler drives the unbounded per-frame loop: readiness check, resize
// detection, frame staging, render, repeat. It is the only active driver in
// the compositor; every other component is passive state it invokes.
//
// All mutable render state (state machine, frame counter, last dimensions,
// staging frame) is owned exclusively by the scheduler. Ticks run on one
// goroutine and never overlap: the next tick is requested from the pacer
// only after the current one completes.
type Scheduler struct {
	adapter  *Adapter
	surface  *Surface
	renderer FrameRenderer
	pacer    Pacer
	debug    DebugMode

	// keyerMu guards the keyer slot. The loop reads the slot once at the
	// top of each tick, so a tick sees either the old or the new parameter
	// set, never a torn one.
	keyerMu sync.Mutex
	keyer   *Keyer

	// bypass is the pre-built raw-feed keyer used by DebugBypass.
	bypass *Keyer

	// Owned exclusively by the tick goroutine.
	staging      *Frame
	lastW, lastH int
	initialized  bool

	stateMu sync.Mutex
	state   SchedulerState

	frameCount atomic.Uint64
	stopped    atomic.Bool
	stopOnce   sync.Once
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewScheduler creates a scheduler over the given collaborators.
func NewScheduler(adapter *Adapter, surface *Surface, renderer FrameRenderer, keyer *Keyer, pacer Pacer, debug DebugMode) *Scheduler {
	if renderer == nil {
		renderer = softwareRenderer{}
	}
	if pacer == nil {
		pacer = NewTickerPacer(0)
	}
	s := &Scheduler{
		adapter:  adapter,
		surface:  surface,
		renderer: renderer,
		pacer:    pacer,
		debug:    debug,
		keyer:    keyer,
		state:    StateWaitingForReady,
		done:     make(chan struct{}),
	}
	if debug == DebugBypass {
		s.bypass = NewKeyer(Params{Bypass: true}, keyer.tuning)
	}
	return s
}

// State returns the current lifecycle state.
func (s *Scheduler) State() SchedulerState {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.state
}

func (s *Scheduler) setState(st SchedulerState) {
	s.stateMu.Lock()
	s.state = st
	s.stateMu.Unlock()
}

// FrameCount returns the number of frames rendered so far.
func (s *Scheduler) FrameCount() uint64 {
	return s.frameCount.Load()
}

// SetKeyer replaces the keyer used from the next tick on.
func (s *Scheduler) SetKeyer(k *Keyer) {
	s.keyerMu.Lock()
	s.keyer = k
	s.keyerMu.Unlock()
}

func (s *Scheduler) currentKeyer() *Keyer {
	s.keyerMu.Lock()
	defer s.keyerMu.Unlock()
	return s.keyer
}

// Start launches the render loop on its own goroutine. The loop runs until
// Stop is called or the context is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go func() {
		defer close(s.done)
		for {
			if s.stopped.Load() {
				return
			}
			if err := s.pacer.Wait(ctx); err != nil {
				return
			}
			s.Tick(ctx)
		}
	}()
}

// Tick runs one scheduling tick. Hosts with their own frame callback
// (vsync, compositor callback) may pump Tick directly instead of Start.
// After teardown, Tick is a guarded no-op no matter how often it is pumped.
func (s *Scheduler) Tick(ctx context.Context) {
	// Guard flag first: a late callback must never touch released resources.
	if s.stopped.Load() {
		return
	}

	if !s.adapter.IsReady() {
		// Sources can briefly stall without being gone; skip the draw but
		// keep scheduling. A permanently non-ready source means indefinite
		// skipped ticks, which is an accepted steady state, not an error.
		Logger().Debug("chromakey: tick skipped, source not ready")
		return
	}

	w, h := s.adapter.Bounds()

	if !s.initialized {
		if err := s.renderer.Initialize(w, h); err != nil {
			Logger().Warn("chromakey: renderer initialization failed", "err", err)
			return
		}
		s.initialized = true
		s.setState(StateRendering)
		Logger().Info("chromakey: rendering started", "width", w, "height", h)
	}

	// Resize exactly once per actual dimension change, not every tick.
	if w != s.lastW || h != s.lastH {
		s.surface.Resize(w, h)
		if err := s.renderer.Resize(w, h); err != nil {
			Logger().Warn("chromakey: renderer resize failed", "err", err)
			return
		}
		s.lastW, s.lastH = w, h
		s.staging = NewFrame(w, h)
		Logger().Info("chromakey: output resized", "width", w, "height", h)
	}

	// The debug variant was selected before the loop started; renderTick
	// is the production path, the others are diagnostics.
	s.renderTick(ctx)
}

// renderTick dispatches to the variant selected at construction.
func (s *Scheduler) renderTick(ctx context.Context) {
	switch s.debug {
	case DebugPattern:
		RenderPattern(s.surface)
		s.frameCount.Add(1)
	case DebugBypass:
		s.renderFrame(ctx, s.bypass)
	default:
		s.renderFrame(ctx, s.currentKeyer())
	}
}

// renderFrame stages the newest frame and keys it onto the surface.
func (s *Scheduler) renderFrame(ctx context.Context, keyer *Keyer) {
	// Stage the newest frame. An upload failure is a skipped frame, never
	// fatal: the loop itself is the retry mechanism.
	img, release, err := s.adapter.PullFrame(ctx)
	if err != nil {
		Logger().Warn("chromakey: frame pull failed", "err", err)
		return
	}
	s.staging.ReadFrom(img)
	if release != nil {
		release()
	}

	if err := s.renderer.Render(s.staging, keyer, s.surface); err != nil {
		Logger().Warn("chromakey: render failed, frame skipped", "err", err)
		return
	}

	s.frameCount.Add(1)
}

// Stop tears the loop down: the pending tick is cancelled and awaited before
// renderer resources are released, so no late tick can touch freed handles.
// Stop is synchronous and idempotent.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.stopped.Store(true)
		if s.cancel != nil {
			s.cancel()
			<-s.done
		}
		s.renderer.Release()
		s.setState(StateStopped)
		Logger().Info("chromakey: scheduler stopped", "frames", s.frameCount.Load())
	})
}
