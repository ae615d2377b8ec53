package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/chromakey"
)

// textureSet holds the streaming source texture the video frames upload
// into and the render target the keyed output draws to.
//
//   - Source: RGBA8, TextureBinding | CopyDst, written every frame
//   - Target: RGBA8, RenderAttachment | CopySrc, read back every frame
type textureSet struct {
	srcTex  hal.Texture
	srcView hal.TextureView
	dstTex  hal.Texture
	dstView hal.TextureView
	width   uint32
	height  uint32
}

// ensure creates or recreates both textures if the requested dimensions
// differ from the current size. If dimensions match and textures exist,
// this is a no-op.
func (ts *textureSet) ensure(device hal.Device, w, h uint32) error {
	if ts.width == w && ts.height == h && ts.srcTex != nil {
		return nil
	}
	ts.destroy(device)

	size := hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1}

	srcTex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         "chromakey_frame",
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create frame texture: %w", err)
	}
	ts.srcTex = srcTex

	srcView, err := device.CreateTextureView(srcTex, &hal.TextureViewDescriptor{
		Label: "chromakey_frame_view",
	})
	if err != nil {
		ts.destroy(device)
		return fmt.Errorf("create frame texture view: %w", err)
	}
	ts.srcView = srcView

	dstTex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         "chromakey_target",
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		ts.destroy(device)
		return fmt.Errorf("create target texture: %w", err)
	}
	ts.dstTex = dstTex

	dstView, err := device.CreateTextureView(dstTex, &hal.TextureViewDescriptor{
		Label: "chromakey_target_view",
	})
	if err != nil {
		ts.destroy(device)
		return fmt.Errorf("create target texture view: %w", err)
	}
	ts.dstView = dstView

	ts.width = w
	ts.height = h
	return nil
}

// upload writes one staged frame into the source texture. The frame must
// match the texture dimensions; the renderer resizes before uploading.
func (ts *textureSet) upload(queue hal.Queue, frame *chromakey.Frame) error {
	w, h := uint32(frame.Width()), uint32(frame.Height()) //nolint:gosec // dimensions always fit uint32
	if w != ts.width || h != ts.height {
		return fmt.Errorf("gpu: frame %dx%d does not match texture %dx%d", w, h, ts.width, ts.height)
	}
	queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: ts.srcTex, MipLevel: 0},
		frame.Data(),
		&hal.ImageDataLayout{Offset: 0, BytesPerRow: w * 4, RowsPerImage: h},
		&hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	)
	return nil
}

// destroy releases views before textures. Safe on a partial set.
func (ts *textureSet) destroy(device hal.Device) {
	if ts.dstView != nil {
		device.DestroyTextureView(ts.dstView)
		ts.dstView = nil
	}
	if ts.dstTex != nil {
		device.DestroyTexture(ts.dstTex)
		ts.dstTex = nil
	}
	if ts.srcView != nil {
		device.DestroyTextureView(ts.srcView)
		ts.srcView = nil
	}
	if ts.srcTex != nil {
		device.DestroyTexture(ts.srcTex)
		ts.srcTex = nil
	}
	ts.width = 0
	ts.height = 0
}
