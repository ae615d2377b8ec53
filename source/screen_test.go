package source

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/gogpu/chromakey"
)

func TestScreenTrack_Region(t *testing.T) {
	tr := NewScreenRegionTrack(image.Rect(100, 50, 740, 530))

	if w, h := tr.Bounds(); w != 640 || h != 480 {
		t.Errorf("Bounds() = %dx%d, want 640x480", w, h)
	}
	if tr.ReadyState() != chromakey.ReadyStateEnoughData {
		t.Errorf("ReadyState() = %v, want enough data", tr.ReadyState())
	}
	if tr.Ended() {
		t.Error("fresh track reports ended")
	}
}

func TestScreenTrack_Close(t *testing.T) {
	tr := NewScreenRegionTrack(image.Rect(0, 0, 64, 64))

	if err := tr.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}
	if !tr.Ended() {
		t.Error("Ended() = false after Close")
	}
	if tr.ReadyState() != chromakey.ReadyStateNothing {
		t.Errorf("ReadyState() after close = %v, want nothing", tr.ReadyState())
	}

	// A closed track must refuse to capture.
	if _, _, err := tr.Frame(context.Background()); !errors.Is(err, ErrTrackClosed) {
		t.Errorf("Frame() after close = %v, want ErrTrackClosed", err)
	}
}
