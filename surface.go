package chromakey

import (
	"image"
	"sync"
)

// Surface is the compositor's output: a premultiplied-alpha RGBA pixel
// buffer sized to the source's current dimensions.
//
// Surface is a passive sink. All writes come from the Scheduler; dimension
// bookkeeping (when to resize) is owned by the Scheduler as well. A mutex
// guards the pixel buffer, so hosts may read the composited result via
// Snapshot, ColorAt, or AlphaAt while the render loop is running and never
// observe a half-written frame. Premultiplied alpha makes source-over
// blending of the result correct.
type Surface struct {
	mu     sync.Mutex
	width  int
	height int
	data   []uint8
}

// NewSurface creates a surface with the given dimensions, fully transparent.
func NewSurface(width, height int) *Surface {
	return &Surface{
		width:  width,
		height: height,
		data:   make([]uint8, width*height*4),
	}
}

// Width returns the surface width in pixels.
func (s *Surface) Width() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width
}

// Height returns the surface height in pixels.
func (s *Surface) Height() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.height
}

// Data returns the raw premultiplied RGBA pixel data without
// synchronization. It is the render-side view of the buffer; hosts
// observing a live compositor read through Snapshot, ColorAt, or AlphaAt
// instead.
func (s *Surface) Data() []uint8 {
	return s.data
}

// Clear resets every pixel to fully transparent.
func (s *Surface) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.data)
}

// Resize reallocates the surface for new dimensions. Content is discarded;
// the new buffer starts fully transparent. Same-size calls are no-ops so the
// Scheduler can invoke Resize exactly once per actual dimension change
// without reallocating.
func (s *Surface) Resize(width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if width == s.width && height == s.height {
		return
	}
	s.width = width
	s.height = height
	s.data = make([]uint8, width*height*4)
}

// WriteOpaque copies straight RGBA data in and forces alpha to 255.
// Used by the bypass path, where premultiplied and straight coincide.
func (s *Surface) WriteOpaque(rgba []uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeOpaqueLocked(rgba)
}

func (s *Surface) writeOpaqueLocked(rgba []uint8) {
	n := copy(s.data, rgba)
	for i := 3; i < n; i += 4 {
		s.data[i] = 255
	}
}

// WritePremultiplied replaces the pixel contents with already-premultiplied
// RGBA data, one whole frame at a time.
func (s *Surface) WritePremultiplied(rgba []uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copy(s.data, rgba)
}

// AlphaAt returns the normalized alpha of a single pixel.
func (s *Surface) AlphaAt(x, y int) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if x < 0 || x >= s.width || y < 0 || y >= s.height {
		return 0
	}
	return float64(s.data[(y*s.width+x)*4+3]) / 255
}

// ColorAt returns the un-premultiplied color of a single pixel.
// Fully transparent pixels report black.
func (s *Surface) ColorAt(x, y int) RGB {
	s.mu.Lock()
	defer s.mu.Unlock()
	if x < 0 || x >= s.width || y < 0 || y >= s.height {
		return RGB{}
	}
	i := (y*s.width + x) * 4
	a := float64(s.data[i+3]) / 255
	if a == 0 {
		return RGB{}
	}
	return RGB{
		R: float64(s.data[i+0]) / 255 / a,
		G: float64(s.data[i+1]) / 255 / a,
		B: float64(s.data[i+2]) / 255 / a,
	}
}

// Snapshot returns a copy of the surface as an image.RGBA.
// The pixel data is premultiplied, matching image.RGBA's convention.
func (s *Surface) Snapshot() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	img := image.NewRGBA(image.Rect(0, 0, s.width, s.height))
	copy(img.Pix, s.data)
	return img
}
