package chromakey

import (
	"image/color"
	"math"
)

// RGB represents an opaque color with red, green, and blue components.
// Each component is in the range [0, 1].
type RGB struct {
	R float64 `yaml:"r"`
	G float64 `yaml:"g"`
	B float64 `yaml:"b"`
}

// Color converts RGB to the standard color.Color interface.
func (c RGB) Color() color.Color {
	return color.NRGBA{
		R: uint8(clamp255(c.R * 255)),
		G: uint8(clamp255(c.G * 255)),
		B: uint8(clamp255(c.B * 255)),
		A: 255,
	}
}

// FromColor converts a standard color.Color to RGB, discarding alpha.
func FromColor(c color.Color) RGB {
	r, g, b, _ := c.RGBA()
	return RGB{
		R: float64(r) / 65535,
		G: float64(g) / 65535,
		B: float64(b) / 65535,
	}
}

// Hex creates a color from a hex string.
// Supports formats: "RGB" and "RRGGBB", with or without a leading '#'.
// Invalid input yields black.
func Hex(hex string) RGB {
	if hex != "" && hex[0] == '#' {
		hex = hex[1:]
	}

	var r, g, b uint32
	switch len(hex) {
	case 3: // RGB
		parseHex(hex[0:1], &r)
		parseHex(hex[1:2], &g)
		parseHex(hex[2:3], &b)
		r, g, b = r*17, g*17, b*17
	case 6: // RRGGBB
		parseHex(hex[0:2], &r)
		parseHex(hex[2:4], &g)
		parseHex(hex[4:6], &b)
	default:
		return RGB{}
	}

	return RGB{
		R: float64(r) / 255,
		G: float64(g) / 255,
		B: float64(b) / 255,
	}
}

// parseHex is a helper for hex parsing
func parseHex(s string, val *uint32) {
	*val = 0
	for i := 0; i < len(s); i++ {
		*val *= 16
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			*val += uint32(c - '0')
		case c >= 'a' && c <= 'f':
			*val += uint32(c-'a') + 10
		case c >= 'A' && c <= 'F':
			*val += uint32(c-'A') + 10
		}
	}
}

// Luma returns the luma of the color under the given weights.
func (c RGB) Luma(w [3]float64) float64 {
	return c.R*w[0] + c.G*w[1] + c.B*w[2]
}

// Chroma projects the color into a 2-component chrominance space using the
// given luma weights and chroma scale. The projection is Cb/Cr-style: each
// component is the scaled difference between one channel and luma, which
// makes the result independent of overall brightness.
func (c RGB) Chroma(w [3]float64, scale [2]float64) (cb, cr float64) {
	y := c.Luma(w)
	cb = (c.B - y) * scale[0]
	cr = (c.R - y) * scale[1]
	return cb, cr
}

// Saturation returns a crude channel-spread saturation measure, the
// difference between the largest and smallest channel. Used by tests to
// verify spill suppression measurably desaturates near-key pixels.
func (c RGB) Saturation() float64 {
	maxC := math.Max(c.R, math.Max(c.G, c.B))
	minC := math.Min(c.R, math.Min(c.G, c.B))
	return maxC - minC
}

// chromaDistance returns the Euclidean distance between two colors in
// chrominance space.
func chromaDistance(a, b RGB, w [3]float64, scale [2]float64) float64 {
	acb, acr := a.Chroma(w, scale)
	bcb, bcr := b.Chroma(w, scale)
	dcb := acb - bcb
	dcr := acr - bcr
	return math.Sqrt(dcb*dcb + dcr*dcr)
}

// clamp01 clamps v to [0, 1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// clamp255 clamps v to [0, 255].
func clamp255(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}
