// Package chromakey provides a real-time chroma-key video compositor.
//
// # Overview
//
// chromakey removes a solid key-color background (green screen) from a live
// video source, suppresses key-color spill near foreground edges, and writes
// a premultiplied-alpha result to an output surface. The render loop is paced
// by actual frame availability of the source, not by a fixed clock.
//
// # Quick Start
//
//	import (
//	    "context"
//
//	    "github.com/gogpu/chromakey"
//	    "github.com/gogpu/chromakey/source"
//	)
//
//	track := source.NewImageTrack(640, 480, frameFn)
//	comp := chromakey.New(chromakey.DefaultParams())
//	if err := comp.Attach(context.Background(), track); err != nil {
//	    // handle
//	}
//	defer comp.Teardown()
//
//	// comp.Surface() now receives keyed, premultiplied frames; read them
//	// with Snapshot, ColorAt, or AlphaAt while the loop runs.
//
// # Architecture
//
// The library is organized into:
//   - Root package: parameters, color math, software keyer, frame scheduler,
//     output surface, compositor lifecycle
//   - source/: video track abstraction and adapters (synthetic, screen
//     capture, WebRTC/RTP)
//   - gpu/: WebGPU render pipeline executing the same keying algorithm in a
//     WGSL fragment shader via gogpu/wgpu
//
// The software keyer is the authoritative implementation of the algorithm;
// the GPU path produces the same output and is used when the host supplies a
// GPU device. There is no hidden global GPU state: the host hands a device in
// and the compositor hands it back on teardown.
//
// # Keying Algorithm
//
// Pixels are compared to the key color in a luma-independent chrominance
// space, which keeps the match stable under the brightness variation of a
// physically lit backdrop. Alpha falls off over a configurable smoothness
// band, and near-boundary pixels are desaturated toward their luma value to
// remove reflected key-color spill instead of discarding them. See Keyer for
// the exact steps and Tuning for the adjustable constants.
package chromakey

// Version information
const (
	// Version is the current version of the library
	Version = "0.2.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 2

	// VersionPatch is the patch version
	VersionPatch = 0
)
