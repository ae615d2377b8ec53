package gpu

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/gogpu/chromakey"
)

func TestKeyShaderCompiles(t *testing.T) {
	spirv, err := compileToSPIRV(keyShaderSource)
	if err != nil {
		t.Fatalf("compileToSPIRV failed: %v", err)
	}
	if len(spirv) == 0 {
		t.Fatal("expected non-empty SPIR-V")
	}
	// SPIR-V magic number.
	if spirv[0] != 0x07230203 {
		t.Errorf("first word = %#x, want SPIR-V magic 0x07230203", spirv[0])
	}
}

func TestNewKeyPipeline(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	p, err := newKeyPipeline(device, queue)
	if err != nil {
		t.Fatalf("newKeyPipeline failed: %v", err)
	}
	if p.pipeline == nil {
		t.Error("expected non-nil render pipeline")
	}
	if p.vertexBuf == nil {
		t.Error("expected non-nil vertex buffer")
	}
	if p.uniformBuf == nil {
		t.Error("expected non-nil uniform buffer")
	}

	p.destroy()
	if p.pipeline != nil || p.vertexBuf != nil || p.uniformBuf != nil {
		t.Error("destroy left resources behind")
	}

	// Double-destroy should be safe.
	p.destroy()
}

func TestKeyVertexLayout(t *testing.T) {
	layouts := keyVertexLayout()
	if len(layouts) != 1 {
		t.Fatalf("expected 1 vertex buffer layout, got %d", len(layouts))
	}
	l := layouts[0]
	if l.ArrayStride != keyVertexStride {
		t.Errorf("ArrayStride = %d, want %d", l.ArrayStride, keyVertexStride)
	}
	if len(l.Attributes) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(l.Attributes))
	}
	if l.Attributes[1].Offset != 8 {
		t.Errorf("texcoord offset = %d, want 8", l.Attributes[1].Offset)
	}
}

func quadFloat(buf []byte, vertex, field int) float32 {
	off := vertex*keyVertexStride + field*4
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:]))
}

func TestQuadVertices(t *testing.T) {
	buf := quadVertices()
	if len(buf) != quadVertexCount*keyVertexStride {
		t.Fatalf("quad buffer = %d bytes, want %d", len(buf), quadVertexCount*keyVertexStride)
	}

	// Clip-space Y points up while texture rows run top to bottom: every
	// vertex at clip y = +1 must carry texcoord v = 0, and y = -1 must
	// carry v = 1.
	for v := 0; v < quadVertexCount; v++ {
		clipY := quadFloat(buf, v, 1)
		texV := quadFloat(buf, v, 3)
		switch clipY {
		case 1:
			if texV != 0 {
				t.Errorf("vertex %d: clip y = +1 carries v = %v, want 0", v, texV)
			}
		case -1:
			if texV != 1 {
				t.Errorf("vertex %d: clip y = -1 carries v = %v, want 1", v, texV)
			}
		default:
			t.Errorf("vertex %d: clip y = %v, want +1 or -1", v, clipY)
		}
		clipX := quadFloat(buf, v, 0)
		texU := quadFloat(buf, v, 2)
		if (clipX == -1 && texU != 0) || (clipX == 1 && texU != 1) {
			t.Errorf("vertex %d: clip x = %v carries u = %v", v, clipX, texU)
		}
	}
}

func uniformFloat(buf []byte, i int) float64 {
	return float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:])))
}

func TestPackKeyUniforms(t *testing.T) {
	params := chromakey.DefaultParams()
	tuning := chromakey.DefaultTuning()
	keyer := chromakey.NewKeyer(params, tuning)

	buf := packKeyUniforms(keyer)
	if len(buf) != keyUniformSize {
		t.Fatalf("uniform block = %d bytes, want %d", len(buf), keyUniformSize)
	}

	wantCb, wantCr := params.KeyColor.Chroma(tuning.LumaWeights, tuning.ChromaScale)
	const tol = 1e-6
	checks := []struct {
		name string
		idx  int
		want float64
	}{
		{"key_cb", 0, wantCb},
		{"key_cr", 1, wantCr},
		{"similarity", 2, params.Similarity},
		{"bypass", 3, 0},
		{"luma_r", 4, tuning.LumaWeights[0]},
		{"luma_g", 5, tuning.LumaWeights[1]},
		{"luma_b", 6, tuning.LumaWeights[2]},
		{"falloff", 7, tuning.FalloffExponent},
		{"cb_scale", 8, tuning.ChromaScale[0]},
		{"cr_scale", 9, tuning.ChromaScale[1]},
		{"smoothness", 10, params.Smoothness},
		{"spill_band", 11, params.Spill},
		{"spill_strength", 12, params.Spill},
	}
	for _, c := range checks {
		if got := uniformFloat(buf, c.idx); math.Abs(got-c.want) > tol {
			t.Errorf("%s = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestPackKeyUniforms_ZeroBandsClamped(t *testing.T) {
	params := chromakey.DefaultParams()
	params.Smoothness = 0
	params.Spill = 0
	params.Bypass = true
	keyer := chromakey.NewKeyer(params, chromakey.DefaultTuning())

	buf := packKeyUniforms(keyer)
	if got := uniformFloat(buf, 10); got <= 0 {
		t.Errorf("smoothness band = %v, want small positive epsilon", got)
	}
	if got := uniformFloat(buf, 11); got <= 0 {
		t.Errorf("spill band = %v, want small positive epsilon", got)
	}
	if got := uniformFloat(buf, 3); got != 1 {
		t.Errorf("bypass flag = %v, want 1", got)
	}
	// Strength stays zero; only the divisor band is clamped.
	if got := uniformFloat(buf, 12); got != 0 {
		t.Errorf("spill strength = %v, want 0", got)
	}
}
