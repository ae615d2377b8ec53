// Package source provides live video track implementations for the
// chromakey compositor.
//
// A chromakey.Track is an opaque frame-pullable handle owned by an external
// session. This package supplies three concrete bindings:
//
//   - ImageTrack: a synthetic track fed by a frame function. Used in tests
//     and for hosts that already hold decoded frames.
//   - ScreenTrack: a live desktop region captured per pull.
//   - RTPTrack: a remote WebRTC video track, depacketized from RTP and
//     decoded by a host-supplied FrameDecoder.
//
// All tracks emit lifecycle events (metadata-loaded, can-play, play, error)
// for observability. Events never gate correctness: the compositor always
// re-derives readiness from the track's current state.
package source
