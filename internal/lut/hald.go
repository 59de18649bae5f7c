package lut

import (
	"fmt"
	"math"
)

// DefaultAlphaEpsilon is the tolerance for treating a 4-channel LUT's
// alpha as constant padding. Senders commonly fill unused alpha with 1.0;
// dropping it saves a quarter of the texture bandwidth downstream.
const DefaultAlphaEpsilon = 1e-6

// HaldImage is a 2D packing of a Cube for GPU sampling.
//
// Width is N*N, Height is N. The pixel at (g + b*N, N-1-r) holds the
// channel values of lattice point (r, g, b); rows are flipped so that
// r=0 lands on the bottom row, matching the texture coordinate convention
// of the downstream samplers. The mapping is bijective: no resampling
// occurs and every float32 survives bit-exactly.
type HaldImage struct {
	Size     int // cube edge N
	Width    int // N*N
	Height   int // N
	Channels int // 3 or 4 after classification
	Pixels   []float32
}

// pixelIndex returns the flat offset of the pixel holding lattice (r, g, b).
func (h *HaldImage) pixelIndex(r, g, b int) int {
	x := g + b*h.Size
	y := h.Size - 1 - r
	return (y*h.Width + x) * h.Channels
}

// At returns the channel values stored for lattice point (r, g, b).
// The returned slice aliases the image's pixel buffer.
func (h *HaldImage) At(r, g, b int) []float32 {
	i := h.pixelIndex(r, g, b)
	return h.Pixels[i : i+h.Channels]
}

// Converter turns validated Cubes into HaldImages.
type Converter struct {
	// AlphaEpsilon is the tolerance used by the degenerate-alpha check.
	AlphaEpsilon float64
}

// NewConverter creates a Converter with the default alpha tolerance.
func NewConverter() *Converter {
	return &Converter{AlphaEpsilon: DefaultAlphaEpsilon}
}

// Convert packs a Cube into a HaldImage.
//
// Channel classification: a 4-channel cube whose alpha values all sit
// within AlphaEpsilon of 1.0 is emitted as RGB, dropping the padding
// channel. Any other 4-channel cube is emitted as RGBA. Values are copied
// verbatim; no clamping, no narrowing.
func (cv *Converter) Convert(c *Cube) (*HaldImage, error) {
	if c.Size < MinSize {
		return nil, &ValidationError{Reason: fmt.Sprintf("cube size %d below minimum %d", c.Size, MinSize)}
	}

	outChannels := c.Channels
	dropAlpha := c.Channels == 4 && cv.alphaDegenerate(c)
	if dropAlpha {
		outChannels = 3
	}

	n := c.Size
	img := &HaldImage{
		Size:     n,
		Width:    n * n,
		Height:   n,
		Channels: outChannels,
		Pixels:   make([]float32, n*n*n*outChannels),
	}

	for r := 0; r < n; r++ {
		for g := 0; g < n; g++ {
			for b := 0; b < n; b++ {
				src := c.At(r, g, b)
				dst := img.pixelIndex(r, g, b)
				copy(img.Pixels[dst:dst+outChannels], src[:outChannels])
			}
		}
	}

	return img, nil
}

// alphaDegenerate reports whether every alpha sample is within
// AlphaEpsilon of 1.0.
func (cv *Converter) alphaDegenerate(c *Cube) bool {
	eps := cv.AlphaEpsilon
	for i := 3; i < len(c.Data); i += 4 {
		if math.Abs(float64(c.Data[i])-1.0) > eps {
			return false
		}
	}
	return true
}

// FromHald rebuilds a Cube from a HaldImage. Together with Convert this
// forms a lossless round trip; it also backs the preview tooling.
func FromHald(img *HaldImage) (*Cube, error) {
	n := img.Size
	if n < MinSize {
		return nil, &ValidationError{Reason: fmt.Sprintf("hald size %d below minimum %d", n, MinSize)}
	}
	if img.Width != n*n || img.Height != n {
		return nil, &ValidationError{
			Reason: fmt.Sprintf("hald dimensions %dx%d do not match size %d", img.Width, img.Height, n),
		}
	}
	if len(img.Pixels) != n*n*n*img.Channels {
		return nil, &ValidationError{Reason: fmt.Sprintf("hald pixel count %d does not match dimensions", len(img.Pixels))}
	}

	data := make([]float32, n*n*n*img.Channels)
	c := &Cube{Size: n, Channels: img.Channels, Data: data}
	for r := 0; r < n; r++ {
		for g := 0; g < n; g++ {
			for b := 0; b < n; b++ {
				copy(c.At(r, g, b), img.At(r, g, b))
			}
		}
	}
	return c, nil
}
