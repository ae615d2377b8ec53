package chromakey

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCompositor_New(t *testing.T) {
	t.Run("valid params kept", func(t *testing.T) {
		p := DefaultParams()
		p.Similarity = 0.25
		c := New(p)
		if got := c.Params(); got.Similarity != 0.25 {
			t.Errorf("Params() = %+v", got)
		}
	})

	t.Run("invalid params fall back to defaults", func(t *testing.T) {
		c := New(Params{Similarity: 7})
		if got := c.Params(); got != DefaultParams() {
			t.Errorf("Params() = %+v, want defaults", got)
		}
	})

	t.Run("invalid tuning falls back to defaults", func(t *testing.T) {
		c := New(DefaultParams(), WithTuning(Tuning{}))
		// The compositor must still produce a usable keyer.
		if c.Surface() == nil {
			t.Error("Surface() = nil")
		}
	})
}

func TestCompositor_AttachAndRender(t *testing.T) {
	c := New(DefaultParams(), WithPacer(NewTickerPacer(time.Millisecond)))
	defer c.Teardown()

	tr := newFakeTrack(4, 4)
	if err := c.Attach(context.Background(), tr); err != nil {
		t.Fatalf("Attach() = %v", err)
	}

	sched := c.Scheduler()
	if sched == nil {
		t.Fatal("Scheduler() = nil after Attach")
	}

	deadline := time.After(2 * time.Second)
	for sched.FrameCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("no frames rendered within deadline")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if c.Surface().Width() != 4 {
		t.Errorf("surface width = %d, want 4", c.Surface().Width())
	}
}

// Hosts read the surface from their own goroutine while the render loop
// writes it; Snapshot and the pixel accessors must be safe under that
// concurrency (run with -race).
func TestCompositor_ConcurrentSurfaceReads(t *testing.T) {
	c := New(DefaultParams(), WithPacer(NewTickerPacer(time.Millisecond)))
	defer c.Teardown()

	tr := newFakeTrack(4, 4)
	if err := c.Attach(context.Background(), tr); err != nil {
		t.Fatalf("Attach() = %v", err)
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
			}
			img := c.Surface().Snapshot()
			if img == nil {
				t.Error("Snapshot() = nil")
				return
			}
			c.Surface().AlphaAt(1, 1)
			c.Surface().ColorAt(1, 1)
		}
	}()

	sched := c.Scheduler()
	deadline := time.After(2 * time.Second)
	for sched.FrameCount() < 5 {
		select {
		case <-deadline:
			close(stop)
			<-done
			t.Fatal("not enough frames rendered within deadline")
		case <-time.After(5 * time.Millisecond):
		}
	}

	close(stop)
	<-done
}

func TestCompositor_ReattachReplacesTrack(t *testing.T) {
	c := New(DefaultParams(), WithPacer(NewTickerPacer(time.Millisecond)))
	defer c.Teardown()

	if err := c.Attach(context.Background(), newFakeTrack(4, 4)); err != nil {
		t.Fatal(err)
	}
	first := c.Scheduler()

	if err := c.Attach(context.Background(), newFakeTrack(8, 8)); err != nil {
		t.Fatalf("second Attach() = %v", err)
	}

	if first.State() != StateStopped {
		t.Errorf("previous scheduler state = %v, want stopped", first.State())
	}
	if c.Scheduler() == first {
		t.Error("Scheduler() still returns the replaced scheduler")
	}
}

func TestCompositor_UpdateParams(t *testing.T) {
	c := New(DefaultParams())
	defer c.Teardown()

	t.Run("invalid rejected", func(t *testing.T) {
		before := c.Params()
		err := c.UpdateParams(Params{Similarity: -1})
		if !errors.Is(err, ErrParamOutOfRange) {
			t.Errorf("UpdateParams() = %v, want ErrParamOutOfRange", err)
		}
		if c.Params() != before {
			t.Error("invalid update changed the active params")
		}
	})

	t.Run("valid applied", func(t *testing.T) {
		p := DefaultParams()
		p.Spill = 0.5
		if err := c.UpdateParams(p); err != nil {
			t.Fatalf("UpdateParams() = %v", err)
		}
		if got := c.Params(); got.Spill != 0.5 {
			t.Errorf("Params() = %+v", got)
		}
	})
}

// parkedPacer never ticks; tests pump Scheduler.Tick directly instead.
type parkedPacer struct{}

func (parkedPacer) Wait(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestCompositor_UpdateParamsReachesRunningLoop(t *testing.T) {
	c := New(DefaultParams(), WithPacer(parkedPacer{}))
	defer c.Teardown()

	tr := newFakeTrack(4, 4)
	if err := c.Attach(context.Background(), tr); err != nil {
		t.Fatal(err)
	}
	sched := c.Scheduler()

	// Drive ticks manually instead of waiting on the pacer.
	sched.Tick(context.Background())
	if a := c.Surface().AlphaAt(1, 1); a != 0 {
		t.Fatalf("green fill alpha = %v, want keyed out", a)
	}

	p := DefaultParams()
	p.Bypass = true
	if err := c.UpdateParams(p); err != nil {
		t.Fatal(err)
	}
	sched.Tick(context.Background())
	if a := c.Surface().AlphaAt(1, 1); a != 1 {
		t.Errorf("alpha after bypass update = %v, want 1", a)
	}
}

func TestCompositor_Teardown(t *testing.T) {
	c := New(DefaultParams())
	if err := c.Attach(context.Background(), newFakeTrack(4, 4)); err != nil {
		t.Fatal(err)
	}
	sched := c.Scheduler()

	c.Teardown()
	c.Teardown() // idempotent

	if sched.State() != StateStopped {
		t.Errorf("scheduler state = %v, want stopped", sched.State())
	}
	if err := c.Attach(context.Background(), newFakeTrack(4, 4)); !errors.Is(err, ErrTornDown) {
		t.Errorf("Attach() after Teardown = %v, want ErrTornDown", err)
	}
}

func TestCompositor_Detach(t *testing.T) {
	c := New(DefaultParams())
	defer c.Teardown()

	if err := c.Attach(context.Background(), newFakeTrack(4, 4)); err != nil {
		t.Fatal(err)
	}
	c.Detach()

	if c.Scheduler() != nil {
		t.Error("Scheduler() after Detach is not nil")
	}
	// Detach is not terminal: a later Attach starts fresh.
	if err := c.Attach(context.Background(), newFakeTrack(4, 4)); err != nil {
		t.Errorf("Attach() after Detach = %v", err)
	}
}
