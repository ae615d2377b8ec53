// Package gpu provides the WebGPU rendition of the chroma-key render path.
//
// The package never creates a GPU device of its own. The host application
// owns the device and hands it over through a provider implementing the
// gpucontext HAL accessors (HalDevice/HalQueue); the compositor keys frames
// on whatever device the host is already presenting with.
//
// The render path is a single full-screen draw: the staged video frame is
// uploaded to a streaming texture, the keying parameters are written to a
// uniform buffer, and the fragment shader in shaders/chromakey.wgsl computes
// the same function as the CPU keyer. The result is read back into the
// compositor's surface, premultiplied.
//
// Usage:
//
//	ctx, err := gpu.NewContext(deviceProvider)
//	if err != nil { ... }
//	comp, err := chromakey.New(params, chromakey.WithRenderer(gpu.NewRenderer(ctx)))
package gpu
