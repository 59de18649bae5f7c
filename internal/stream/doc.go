// Package stream delivers LUT textures to downstream consumers.
//
// A Backend owns named Targets. Each target is a fixed-shape float32
// texture; publishing a frame of the same shape reuses the handle, while
// a shape change requires a fresh CreateOrResize. Replacing a target of
// the same name supersedes the old handle, so callers can create the new
// target first and release the old one afterwards without a gap.
//
// Three backends are registered:
//
//   - "null": accepts and discards frames.
//   - "memory": retains the most recent frame per target, for tests and
//     in-process consumers.
//   - "websocket": serves frames over HTTP/WebSocket. Subscribers of
//     /streams/{name} receive a JSON header followed by a binary
//     little-endian float32 payload per frame; /channels and /monitor
//     expose status snapshots.
//
// All backend failures are reported as *BackendError with a Kind
// describing whether the sink was unavailable, rejected the format, or
// failed mid-send.
package stream
