package chromakey

import (
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// Parameter validation errors.
var (
	// ErrParamOutOfRange is returned when a keying parameter is outside [0, 1].
	ErrParamOutOfRange = errors.New("chromakey: parameter out of range")

	// ErrBadTuning is returned when tuning constants are unusable.
	ErrBadTuning = errors.New("chromakey: invalid tuning")
)

// epsilon replaces zero-valued smoothness and spill so the falloff
// divisions stay finite. Small enough to behave like a hard edge.
const epsilon = 1e-4

// Params holds the chroma-key parameters for one render session.
//
// Params is a value type and is replaced wholesale via
// [Compositor.UpdateParams]; it is never mutated field-by-field while a
// frame is in flight. The render loop reads one consistent copy per tick.
type Params struct {
	// KeyColor is the backdrop color to be made transparent.
	KeyColor RGB `yaml:"key_color"`

	// Similarity is the chroma-distance threshold at which pixels start
	// becoming opaque. Below it, pixels are fully keyed out. Range [0, 1].
	Similarity float64 `yaml:"similarity"`

	// Smoothness is the width of the alpha falloff band above Similarity.
	// Range [0, 1]. Zero is treated as a hard edge.
	Smoothness float64 `yaml:"smoothness"`

	// Spill is the desaturation strength applied to pixels near the key
	// boundary, removing reflected key-color tint. Range [0, 1].
	Spill float64 `yaml:"spill"`

	// Bypass disables keying entirely and passes the frame through opaque.
	// Used for raw-feed debugging.
	Bypass bool `yaml:"bypass"`
}

// DefaultParams returns parameters tuned for a typical studio green screen.
func DefaultParams() Params {
	return Params{
		KeyColor:   RGB{R: 0.05, G: 0.63, B: 0.14},
		Similarity: 0.4,
		Smoothness: 0.08,
		Spill:      0.1,
	}
}

// Validate reports whether the parameters are usable for rendering.
func (p Params) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"similarity", p.Similarity},
		{"smoothness", p.Smoothness},
		{"spill", p.Spill},
		{"key_color.r", p.KeyColor.R},
		{"key_color.g", p.KeyColor.G},
		{"key_color.b", p.KeyColor.B},
	} {
		if f.v < 0 || f.v > 1 {
			return fmt.Errorf("%w: %s = %v", ErrParamOutOfRange, f.name, f.v)
		}
	}
	return nil
}

// Tuning holds the empirically derived constants of the keying algorithm.
//
// The chrominance transform coefficients and the falloff exponent are
// inherited from well-known production keyers. They are good defaults, not
// load-bearing exact values; hosts with unusual footage may adjust them.
type Tuning struct {
	// LumaWeights are the per-channel weights of the luma transform.
	LumaWeights [3]float64 `yaml:"luma_weights"`

	// ChromaScale scales the (B-Y, R-Y) chrominance components.
	ChromaScale [2]float64 `yaml:"chroma_scale"`

	// FalloffExponent shapes the alpha and spill falloff curves. Values
	// above 1 bias the band toward full transparency near the key color,
	// avoiding a washed-out translucent halo.
	FalloffExponent float64 `yaml:"falloff_exponent"`
}

// DefaultTuning returns the standard BT.601-style transform with the
// conventional 1.5 falloff exponent.
func DefaultTuning() Tuning {
	return Tuning{
		LumaWeights:     [3]float64{0.299, 0.587, 0.114},
		ChromaScale:     [2]float64{0.564, 0.713},
		FalloffExponent: 1.5,
	}
}

// Validate reports whether the tuning constants are usable.
func (t Tuning) Validate() error {
	sum := t.LumaWeights[0] + t.LumaWeights[1] + t.LumaWeights[2]
	if sum <= 0 {
		return fmt.Errorf("%w: luma weights sum to %v", ErrBadTuning, sum)
	}
	if t.ChromaScale[0] <= 0 || t.ChromaScale[1] <= 0 {
		return fmt.Errorf("%w: chroma scale must be positive", ErrBadTuning)
	}
	if t.FalloffExponent <= 0 {
		return fmt.Errorf("%w: falloff exponent must be positive", ErrBadTuning)
	}
	return nil
}

// Preset bundles parameters and tuning for loading from a YAML file.
type Preset struct {
	Params Params  `yaml:"params"`
	Tuning *Tuning `yaml:"tuning,omitempty"`
}

// LoadPreset reads a Preset from a YAML file. A missing tuning section
// falls back to DefaultTuning. The preset is validated before it is
// returned; an invalid file never yields partially usable values.
func LoadPreset(path string) (Params, Tuning, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is user-provided intentionally
	if err != nil {
		return Params{}, Tuning{}, fmt.Errorf("chromakey: read preset: %w", err)
	}

	var preset Preset
	if err := yaml.Unmarshal(data, &preset); err != nil {
		return Params{}, Tuning{}, fmt.Errorf("chromakey: parse preset: %w", err)
	}

	tuning := DefaultTuning()
	if preset.Tuning != nil {
		tuning = *preset.Tuning
	}

	if err := preset.Params.Validate(); err != nil {
		return Params{}, Tuning{}, err
	}
	if err := tuning.Validate(); err != nil {
		return Params{}, Tuning{}, err
	}
	return preset.Params, tuning, nil
}
