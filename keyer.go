package chromakey

import "math"

// KeyedPixel is the result of keying one pixel: a spill-suppressed color and
// a soft alpha mask value. Color components are straight (not premultiplied);
// the Surface premultiplies on write.
type KeyedPixel struct {
	Color RGB
	Alpha float64
}

// Keyer executes the chroma-key algorithm on the CPU.
//
// It is the authoritative rendition of the algorithm: the WGSL shader in
// gpu/ computes the same function per fragment. A Keyer is immutable once
// built; replacing parameters means building a new Keyer, so a render tick
// always sees one consistent parameter set.
type Keyer struct {
	params Params
	tuning Tuning

	// Precomputed from params/tuning at construction.
	keyCb, keyCr float64
	smoothness   float64
	spill        float64
}

// NewKeyer builds a keyer for the given parameters and tuning.
// Zero smoothness or spill are replaced with a small epsilon so the falloff
// divisions stay finite (a zero band behaves as a hard edge).
func NewKeyer(params Params, tuning Tuning) *Keyer {
	k := &Keyer{
		params:     params,
		tuning:     tuning,
		smoothness: params.Smoothness,
		spill:      params.Spill,
	}
	if k.smoothness <= 0 {
		k.smoothness = epsilon
	}
	if k.spill <= 0 {
		k.spill = epsilon
	}
	k.keyCb, k.keyCr = params.KeyColor.Chroma(tuning.LumaWeights, tuning.ChromaScale)
	return k
}

// Params returns the parameters the keyer was built with.
func (k *Keyer) Params() Params {
	return k.params
}

// Tuning returns the tuning constants the keyer was built with.
func (k *Keyer) Tuning() Tuning {
	return k.tuning
}

// KeyPixel keys a single pixel.
//
// The sampled color and key color are compared in chrominance space; the
// distance beyond the similarity threshold drives both the alpha falloff
// and the spill mask. Near-key pixels are desaturated toward their luma
// value rather than discarded, which removes the key tint reflected onto
// hair and skin edges.
func (k *Keyer) KeyPixel(c RGB) KeyedPixel {
	if k.params.Bypass {
		return KeyedPixel{Color: c, Alpha: 1}
	}

	luma := c.Luma(k.tuning.LumaWeights)
	cb := (c.B - luma) * k.tuning.ChromaScale[0]
	cr := (c.R - luma) * k.tuning.ChromaScale[1]
	dcb := cb - k.keyCb
	dcr := cr - k.keyCr
	dist := math.Sqrt(dcb*dcb + dcr*dcr)

	base := dist - k.params.Similarity
	alpha := math.Pow(clamp01(base/k.smoothness), k.tuning.FalloffExponent)

	// Spill mask releases pixels as they move away from the key boundary:
	// 0 at the boundary (full desaturation, scaled by Spill), 1 far from it
	// (color untouched).
	spillMask := math.Pow(clamp01(base/k.spill), k.tuning.FalloffExponent)
	desat := (1 - spillMask) * k.params.Spill
	out := RGB{
		R: c.R + (luma-c.R)*desat,
		G: c.G + (luma-c.G)*desat,
		B: c.B + (luma-c.B)*desat,
	}

	return KeyedPixel{Color: out, Alpha: alpha}
}

// Apply keys every pixel of src and writes the premultiplied result into
// dst. Dimensions must match; mismatched frames are left untouched and
// reported via the return value so the caller can treat it as a skipped
// frame.
func (k *Keyer) Apply(src *Frame, dst *Surface) bool {
	if src == nil || dst == nil {
		return false
	}

	// The whole frame is written under the surface lock so a concurrent
	// Snapshot sees either the previous frame or this one, never a mix.
	dst.mu.Lock()
	defer dst.mu.Unlock()

	if src.Width() != dst.width || src.Height() != dst.height {
		return false
	}

	if k.params.Bypass {
		dst.writeOpaqueLocked(src.Data())
		return true
	}

	in := src.Data()
	out := dst.data
	for i := 0; i < len(in); i += 4 {
		p := k.KeyPixel(RGB{
			R: float64(in[i+0]) / 255,
			G: float64(in[i+1]) / 255,
			B: float64(in[i+2]) / 255,
		})
		// Premultiplied write: color channels pre-scaled by alpha.
		out[i+0] = uint8(clamp255(p.Color.R * p.Alpha * 255))
		out[i+1] = uint8(clamp255(p.Color.G * p.Alpha * 255))
		out[i+2] = uint8(clamp255(p.Color.B * p.Alpha * 255))
		out[i+3] = uint8(clamp255(p.Alpha * 255))
	}
	return true
}
