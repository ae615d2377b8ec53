package chromakey

// DebugMode selects a diagnostic rendering variant. The mode is chosen
// before the render loop starts; the per-tick hot path dispatches on it
// once, not through conditionals scattered across the loop body.
type DebugMode int

const (
	// DebugNone is normal compositing.
	DebugNone DebugMode = iota

	// DebugBypass passes the raw feed through fully opaque, skipping the
	// keyer. Equivalent to Params.Bypass but selected at the loop level.
	DebugBypass

	// DebugPattern ignores the source pixels and renders a coordinate
	// visualization gradient. Used to verify geometry and Y orientation:
	// red increases left to right, green increases top to bottom, so an
	// upside-down integration is immediately visible.
	DebugPattern
)

// String returns a human-readable name for the mode.
func (m DebugMode) String() string {
	switch m {
	case DebugNone:
		return "none"
	case DebugBypass:
		return "bypass"
	case DebugPattern:
		return "pattern"
	default:
		return "unknown"
	}
}

// RenderPattern fills dst with the coordinate visualization gradient.
func RenderPattern(dst *Surface) {
	dst.mu.Lock()
	defer dst.mu.Unlock()
	w, h := dst.width, dst.height
	if w <= 1 || h <= 1 {
		return
	}
	data := dst.data
	for y := 0; y < h; y++ {
		g := uint8(y * 255 / (h - 1))
		for x := 0; x < w; x++ {
			i := (y*w + x) * 4
			data[i+0] = uint8(x * 255 / (w - 1))
			data[i+1] = g
			data[i+2] = 0
			data[i+3] = 255
		}
	}
}
