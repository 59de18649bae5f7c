// Package lut implements the LUT validation and conversion stage of the
// pipeline.
//
// A Cube is a validated N x N x N lattice of float32 color samples. The
// Converter packs a Cube into a HaldImage, a 2D texture layout of width
// N*N and height N that GPU shaders can sample directly. The packing is a
// pure index permutation: every float32 value crosses the pipeline
// bit-exactly, including HDR, negative and non-finite values.
//
// # Hald Layout
//
// Lattice point (r, g, b) is stored at pixel (g + b*N, N-1-r). Each blue
// slice occupies one N-pixel-wide strip; rows are flipped so r=0 lands on
// the bottom row of the texture.
//
// # Channel Classification
//
// Grading applications commonly send RGBA payloads whose alpha channel is
// constant 1.0 padding. Convert detects this (within a configurable
// epsilon) and emits an RGB image instead, so downstream consumers do not
// pay for a no-op channel. Any genuinely varying alpha is preserved as
// RGBA.
//
// # Sampling Reference
//
// Sample defines the tetrahedral interpolation contract shared with the
// GPU shaders: a six-region decomposition of the lattice cell keyed by
// the ordering of the fractional components, blending exactly four
// corners with barycentric weights. Exact lattice hits return stored
// values bit-for-bit.
//
// The package also ships LUT generators (identity, gamma, contrast,
// desaturate, hue rotation) used by the client tool and tests.
package lut
