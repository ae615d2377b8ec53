package gpu

import (
	_ "embed"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/chromakey"
)

//go:embed shaders/chromakey.wgsl
var keyShaderSource string

// keyVertexStride is the byte stride per vertex in the keying pipeline.
// Layout per vertex:
//
//	position (vec2<f32>) = 8 bytes (location 0)
//	texcoord (vec2<f32>) = 8 bytes (location 1)
//
// Total = 16 bytes per vertex.
const keyVertexStride = 16

// keyUniformSize is the size of the KeyParams uniform block: four vec4<f32>.
const keyUniformSize = 64

// quadVertexCount is the full-screen quad as two triangles.
const quadVertexCount = 6

// shaderEpsilon replaces zero smoothness and spill bands so the falloff
// divisions in the fragment shader stay finite. Matches the CPU keyer.
const shaderEpsilon = 1e-4

// keyPipeline holds the GPU objects for the full-screen keying draw: shader,
// layouts, sampler, render pipeline, the static quad vertex buffer, and the
// per-frame uniform buffer.
type keyPipeline struct {
	device hal.Device
	queue  hal.Queue

	shader     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	sampler    hal.Sampler
	pipeline   hal.RenderPipeline

	vertexBuf  hal.Buffer
	uniformBuf hal.Buffer
}

// newKeyPipeline compiles the keying shader and builds the render pipeline.
// Creation is all-or-none: any failure destroys what was already created
// and returns the error, so a later retry starts clean.
func newKeyPipeline(device hal.Device, queue hal.Queue) (*keyPipeline, error) {
	p := &keyPipeline{device: device, queue: queue}
	if err := p.create(); err != nil {
		p.destroy()
		return nil, err
	}
	return p, nil
}

func (p *keyPipeline) create() error {
	if keyShaderSource == "" {
		return fmt.Errorf("gpu: keying shader source is empty")
	}

	spirv, err := compileToSPIRV(keyShaderSource)
	if err != nil {
		return fmt.Errorf("compile keying shader: %w", err)
	}
	shader, err := p.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "chromakey_shader",
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return fmt.Errorf("create keying shader module: %w", err)
	}
	p.shader = shader

	// Bind group layout:
	//   Binding 0: KeyParams (uniform buffer, fragment)
	//   Binding 1: source frame texture (texture_2d, fragment)
	//   Binding 2: sampler (fragment)
	bindLayout, err := p.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "chromakey_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageFragment,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    2,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create keying bind group layout: %w", err)
	}
	p.bindLayout = bindLayout

	pipeLayout, err := p.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "chromakey_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("create keying pipeline layout: %w", err)
	}
	p.pipeLayout = pipeLayout

	// Linear filtering with clamp-to-edge: the quad maps texels 1:1 at
	// native resolution and degrades gracefully if the surface is scaled.
	sampler, err := p.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "chromakey_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeLinear,
	})
	if err != nil {
		return fmt.Errorf("create keying sampler: %w", err)
	}
	p.sampler = sampler

	// Sample count 1: multisampling would blur the key edge the falloff
	// band already softens.
	premulBlend := gputypes.BlendStatePremultiplied()
	pipeline, err := p.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "chromakey_pipeline",
		Layout: p.pipeLayout,
		Vertex: hal.VertexState{
			Module:     p.shader,
			EntryPoint: "vs_main",
			Buffers:    keyVertexLayout(),
		},
		Fragment: &hal.FragmentState{
			Module:     p.shader,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{
				{
					Format:    gputypes.TextureFormatRGBA8Unorm,
					Blend:     &premulBlend,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("create keying render pipeline: %w", err)
	}
	p.pipeline = pipeline

	vertexBuf, err := p.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "chromakey_quad",
		Size:  uint64(len(quadVertices())),
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create quad vertex buffer: %w", err)
	}
	p.vertexBuf = vertexBuf
	p.queue.WriteBuffer(vertexBuf, 0, quadVertices())

	uniformBuf, err := p.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "chromakey_params",
		Size:  keyUniformSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create uniform buffer: %w", err)
	}
	p.uniformBuf = uniformBuf

	return nil
}

// destroy releases all pipeline resources in reverse creation order. Safe
// to call multiple times or on a partially created pipeline.
func (p *keyPipeline) destroy() {
	if p.device == nil {
		return
	}
	if p.uniformBuf != nil {
		p.device.DestroyBuffer(p.uniformBuf)
		p.uniformBuf = nil
	}
	if p.vertexBuf != nil {
		p.device.DestroyBuffer(p.vertexBuf)
		p.vertexBuf = nil
	}
	if p.pipeline != nil {
		p.device.DestroyRenderPipeline(p.pipeline)
		p.pipeline = nil
	}
	if p.sampler != nil {
		p.device.DestroySampler(p.sampler)
		p.sampler = nil
	}
	if p.pipeLayout != nil {
		p.device.DestroyPipelineLayout(p.pipeLayout)
		p.pipeLayout = nil
	}
	if p.bindLayout != nil {
		p.device.DestroyBindGroupLayout(p.bindLayout)
		p.bindLayout = nil
	}
	if p.shader != nil {
		p.device.DestroyShaderModule(p.shader)
		p.shader = nil
	}
}

// writeUniforms packs the keyer's parameters into the KeyParams layout and
// uploads them. Called once per frame before the draw.
func (p *keyPipeline) writeUniforms(keyer *chromakey.Keyer) {
	p.queue.WriteBuffer(p.uniformBuf, 0, packKeyUniforms(keyer))
}

// createBindGroup binds the uniform buffer, the given frame texture view,
// and the sampler. Recreated whenever the streaming texture changes.
func (p *keyPipeline) createBindGroup(view hal.TextureView) (hal.BindGroup, error) {
	return p.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "chromakey_bind",
		Layout: p.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{
				Buffer: p.uniformBuf.NativeHandle(), Offset: 0, Size: keyUniformSize,
			}},
			{Binding: 1, Resource: gputypes.TextureViewBinding{
				TextureView: view.NativeHandle(),
			}},
			{Binding: 2, Resource: gputypes.SamplerBinding{
				Sampler: p.sampler.NativeHandle(),
			}},
		},
	})
}

// keyVertexLayout returns the vertex buffer layout for the keying pipeline.
func keyVertexLayout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: keyVertexStride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0}, // position
				{Format: gputypes.VertexFormatFloat32x2, Offset: 8, ShaderLocation: 1}, // texcoord
			},
		},
	}
}

// quadVertices returns the full-screen quad as two triangles. Clip-space Y
// points up while image rows run top to bottom, so the top-left vertex
// (-1, +1) carries texcoord (0, 0): the first uploaded row lands on the
// first output row.
func quadVertices() []byte {
	verts := [quadVertexCount][4]float32{
		{-1, +1, 0, 0},
		{-1, -1, 0, 1},
		{+1, -1, 1, 1},
		{-1, +1, 0, 0},
		{+1, -1, 1, 1},
		{+1, +1, 1, 0},
	}
	buf := make([]byte, quadVertexCount*keyVertexStride)
	off := 0
	for _, v := range verts {
		for _, f := range v {
			binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(f))
			off += 4
		}
	}
	return buf
}

// packKeyUniforms serializes keying parameters into the 64-byte KeyParams
// block: four vec4<f32> rows matching the WGSL struct field by field.
func packKeyUniforms(keyer *chromakey.Keyer) []byte {
	params := keyer.Params()
	tuning := keyer.Tuning()
	keyCb, keyCr := params.KeyColor.Chroma(tuning.LumaWeights, tuning.ChromaScale)

	smoothness := params.Smoothness
	if smoothness <= 0 {
		smoothness = shaderEpsilon
	}
	spill := params.Spill
	if spill <= 0 {
		spill = shaderEpsilon
	}
	bypass := float32(0)
	if params.Bypass {
		bypass = 1
	}

	fields := [16]float32{
		// key: key_cb, key_cr, similarity, bypass
		float32(keyCb), float32(keyCr), float32(params.Similarity), bypass,
		// luma: weights rgb, falloff exponent
		float32(tuning.LumaWeights[0]), float32(tuning.LumaWeights[1]),
		float32(tuning.LumaWeights[2]), float32(tuning.FalloffExponent),
		// scale: cb scale, cr scale, smoothness, spill threshold
		float32(tuning.ChromaScale[0]), float32(tuning.ChromaScale[1]),
		float32(smoothness), float32(spill),
		// spill: strength, padding
		float32(params.Spill), 0, 0, 0,
	}

	buf := make([]byte, keyUniformSize)
	for i, f := range fields {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// compileToSPIRV compiles WGSL to little-endian SPIR-V words via naga.
func compileToSPIRV(wgsl string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgsl)
	if err != nil {
		return nil, err
	}
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}
