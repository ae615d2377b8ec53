package gpu

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/chromakey"
)

// Renderer errors.
var (
	// ErrNotInitialized is returned when Render is called before Initialize.
	ErrNotInitialized = errors.New("gpu: renderer not initialized")

	// ErrSurfaceMismatch is returned when the output surface does not match
	// the render target dimensions.
	ErrSurfaceMismatch = errors.New("gpu: surface does not match render target")
)

// copyPitchAlignment is the BytesPerRow alignment WebGPU and DX12 require
// for texture-to-buffer copies.
const copyPitchAlignment = 256

// gpuWaitTimeout bounds the fence wait after each frame submit.
const gpuWaitTimeout = 5 * time.Second

// Renderer keys frames on the GPU. It implements chromakey.FrameRenderer:
// the scheduler drives it exactly like the CPU renderer, one Render call
// per tick, and reads the keyed result out of the surface afterwards.
//
// Each Render is a full round trip: upload the frame, draw the full-screen
// quad through the keying pipeline, read the target texture back into the
// surface. Hosts that present the target texture directly can skip the
// readback by compositing ts.dstView themselves; the readback path is the
// portable default.
type Renderer struct {
	ctx *Context

	mu          sync.Mutex
	pipeline    *keyPipeline
	textures    textureSet
	bindGroup   hal.BindGroup
	initialized bool
}

// NewRenderer creates a renderer over the given context. No GPU resources
// are allocated until Initialize.
func NewRenderer(ctx *Context) *Renderer {
	return &Renderer{ctx: ctx}
}

// Initialize builds the keying pipeline and textures for the given frame
// dimensions. Idempotent: a second call on an initialized renderer is a
// no-op and keeps the existing resources. On failure everything created so
// far is destroyed, so a later retry starts clean.
func (r *Renderer) Initialize(width, height int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		return nil
	}
	if r.ctx == nil || r.ctx.Released() {
		return ErrContextReleased
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("gpu: invalid dimensions %dx%d", width, height)
	}

	pipeline, err := newKeyPipeline(r.ctx.Device(), r.ctx.Queue())
	if err != nil {
		return err
	}
	r.pipeline = pipeline

	if err := r.resizeLocked(width, height); err != nil {
		r.releaseLocked()
		return err
	}

	r.initialized = true
	chromakey.Logger().Info("gpu: renderer initialized", "width", width, "height", height)
	return nil
}

// Resize recreates the textures and bind group for new frame dimensions.
func (r *Renderer) Resize(width, height int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.initialized {
		return ErrNotInitialized
	}
	return r.resizeLocked(width, height)
}

func (r *Renderer) resizeLocked(width, height int) error {
	device := r.ctx.Device()
	w, h := uint32(width), uint32(height) //nolint:gosec // dimensions always fit uint32

	if err := r.textures.ensure(device, w, h); err != nil {
		return err
	}

	// The bind group references the frame texture view, so it has to be
	// rebuilt whenever the textures are.
	if r.bindGroup != nil {
		device.DestroyBindGroup(r.bindGroup)
		r.bindGroup = nil
	}
	bg, err := r.pipeline.createBindGroup(r.textures.srcView)
	if err != nil {
		return fmt.Errorf("create keying bind group: %w", err)
	}
	r.bindGroup = bg
	return nil
}

// Render keys src into dst. The frame and surface must both match the
// current render target dimensions; the scheduler guarantees this by
// resizing before rendering.
func (r *Renderer) Render(src *chromakey.Frame, keyer *chromakey.Keyer, dst *chromakey.Surface) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized {
		return ErrNotInitialized
	}
	if uint32(dst.Width()) != r.textures.width || uint32(dst.Height()) != r.textures.height { //nolint:gosec // dimensions always fit uint32
		return ErrSurfaceMismatch
	}

	if err := r.textures.upload(r.ctx.Queue(), src); err != nil {
		return err
	}
	r.pipeline.writeUniforms(keyer)

	return r.encodeSubmitReadback(dst)
}

// encodeSubmitReadback records the keying draw, copies the target texture
// to a staging buffer, submits, waits, and reads the pixels back into dst.
func (r *Renderer) encodeSubmitReadback(dst *chromakey.Surface) error {
	device := r.ctx.Device()
	queue := r.ctx.Queue()
	w, h := r.textures.width, r.textures.height

	encoder, err := device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "chromakey_encoder",
	})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("chromakey_frame"); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}

	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "chromakey_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       r.textures.dstView,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: gputypes.Color{R: 0, G: 0, B: 0, A: 0},
		}},
	})
	rp.SetPipeline(r.pipeline.pipeline)
	rp.SetBindGroup(0, r.bindGroup, nil)
	rp.SetVertexBuffer(0, r.pipeline.vertexBuf, 0)
	rp.Draw(quadVertexCount, 1, 0, 0)
	rp.End()

	// The render pass leaves the target in attachment layout; the copy
	// needs transfer-source. No-op on backends without explicit layouts.
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: r.textures.dstTex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})

	// BytesPerRow must be 256-byte aligned for texture-to-buffer copies.
	bytesPerRow := w * 4
	alignedBytesPerRow := (bytesPerRow + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
	stagingSize := uint64(alignedBytesPerRow) * uint64(h)

	stagingBuf, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: "chromakey_staging",
		Size:  stagingSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		encoder.DiscardEncoding()
		return fmt.Errorf("create staging buffer: %w", err)
	}
	defer device.DestroyBuffer(stagingBuf)

	encoder.CopyTextureToBuffer(r.textures.dstTex, stagingBuf, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: alignedBytesPerRow, RowsPerImage: h},
		TextureBase:  hal.ImageCopyTexture{Texture: r.textures.dstTex, MipLevel: 0},
		Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	}})

	// Transition back so the next frame's render pass starts from the
	// layout it expects.
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: r.textures.dstTex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer device.FreeCommandBuffer(cmdBuf)

	fence, err := device.CreateFence()
	if err != nil {
		return fmt.Errorf("create fence: %w", err)
	}
	defer device.DestroyFence(fence)

	if err := queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	fenceOK, err := device.Wait(fence, 1, gpuWaitTimeout)
	if err != nil || !fenceOK {
		return fmt.Errorf("wait for GPU: ok=%v err=%w", fenceOK, err)
	}

	readback := make([]byte, stagingSize)
	if err := queue.ReadBuffer(stagingBuf, 0, readback); err != nil {
		return fmt.Errorf("readback: %w", err)
	}

	// Strip the row padding in place (rows only move toward the front),
	// then publish the whole frame atomically.
	if alignedBytesPerRow != bytesPerRow {
		for row := uint32(1); row < h; row++ {
			srcOff := uint64(row) * uint64(alignedBytesPerRow)
			dstOff := uint64(row) * uint64(bytesPerRow)
			copy(readback[dstOff:dstOff+uint64(bytesPerRow)], readback[srcOff:srcOff+uint64(bytesPerRow)])
		}
	}
	dst.WritePremultiplied(readback[:uint64(bytesPerRow)*uint64(h)])
	return nil
}

// Release destroys the bind group, textures, and pipeline. The context and
// its device stay alive; they belong to the host. Idempotent, and a
// released renderer can be initialized again on a later attach.
func (r *Renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.releaseLocked()
}

func (r *Renderer) releaseLocked() {
	if r.ctx == nil || r.ctx.Released() {
		r.initialized = false
		return
	}
	device := r.ctx.Device()
	if r.bindGroup != nil {
		device.DestroyBindGroup(r.bindGroup)
		r.bindGroup = nil
	}
	r.textures.destroy(device)
	if r.pipeline != nil {
		r.pipeline.destroy()
		r.pipeline = nil
	}
	r.initialized = false
}

var _ chromakey.FrameRenderer = (*Renderer)(nil)
