package chromakey

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Params)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Params) {}, wantErr: false},
		{name: "zero values", mutate: func(p *Params) { *p = Params{} }, wantErr: false},
		{name: "similarity above one", mutate: func(p *Params) { p.Similarity = 1.2 }, wantErr: true},
		{name: "negative smoothness", mutate: func(p *Params) { p.Smoothness = -0.1 }, wantErr: true},
		{name: "negative spill", mutate: func(p *Params) { p.Spill = -1 }, wantErr: true},
		{name: "key color out of range", mutate: func(p *Params) { p.KeyColor.G = 2 }, wantErr: true},
		{name: "boundary values", mutate: func(p *Params) {
			p.Similarity, p.Smoothness, p.Spill = 1, 0, 1
		}, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.mutate(&p)
			err := p.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrParamOutOfRange) {
				t.Errorf("Validate() error = %v, want ErrParamOutOfRange", err)
			}
		})
	}
}

func TestTuning_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Tuning)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Tuning) {}, wantErr: false},
		{name: "zero luma weights", mutate: func(tu *Tuning) { tu.LumaWeights = [3]float64{} }, wantErr: true},
		{name: "zero chroma scale", mutate: func(tu *Tuning) { tu.ChromaScale[0] = 0 }, wantErr: true},
		{name: "zero exponent", mutate: func(tu *Tuning) { tu.FalloffExponent = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tu := DefaultTuning()
			tt.mutate(&tu)
			err := tu.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrBadTuning) {
				t.Errorf("Validate() error = %v, want ErrBadTuning", err)
			}
		})
	}
}

func TestLoadPreset(t *testing.T) {
	writePreset := func(t *testing.T, content string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "preset.yaml")
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
		return path
	}

	t.Run("params only", func(t *testing.T) {
		path := writePreset(t, `
params:
  key_color: {r: 0.1, g: 0.7, b: 0.2}
  similarity: 0.35
  smoothness: 0.05
  spill: 0.2
`)
		params, tuning, err := LoadPreset(path)
		if err != nil {
			t.Fatalf("LoadPreset() error = %v", err)
		}
		if params.Similarity != 0.35 || params.KeyColor.G != 0.7 {
			t.Errorf("params = %+v", params)
		}
		if tuning != DefaultTuning() {
			t.Errorf("missing tuning section should fall back to defaults, got %+v", tuning)
		}
	})

	t.Run("with tuning", func(t *testing.T) {
		path := writePreset(t, `
params:
  similarity: 0.5
tuning:
  luma_weights: [0.2126, 0.7152, 0.0722]
  chroma_scale: [0.5, 0.5]
  falloff_exponent: 2
`)
		_, tuning, err := LoadPreset(path)
		if err != nil {
			t.Fatalf("LoadPreset() error = %v", err)
		}
		if tuning.FalloffExponent != 2 || tuning.LumaWeights[1] != 0.7152 {
			t.Errorf("tuning = %+v", tuning)
		}
	})

	t.Run("invalid params rejected", func(t *testing.T) {
		path := writePreset(t, `
params:
  similarity: 3
`)
		if _, _, err := LoadPreset(path); !errors.Is(err, ErrParamOutOfRange) {
			t.Errorf("LoadPreset() error = %v, want ErrParamOutOfRange", err)
		}
	})

	t.Run("invalid tuning rejected", func(t *testing.T) {
		path := writePreset(t, `
params:
  similarity: 0.4
tuning:
  luma_weights: [0, 0, 0]
  chroma_scale: [0.5, 0.5]
  falloff_exponent: 1.5
`)
		if _, _, err := LoadPreset(path); !errors.Is(err, ErrBadTuning) {
			t.Errorf("LoadPreset() error = %v, want ErrBadTuning", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, _, err := LoadPreset(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
			t.Error("LoadPreset() on missing file should fail")
		}
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := writePreset(t, "params: [not a map")
		if _, _, err := LoadPreset(path); err == nil {
			t.Error("LoadPreset() on malformed file should fail")
		}
	})
}
