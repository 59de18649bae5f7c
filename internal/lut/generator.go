package lut

import (
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Generators produce synthetic Cubes for the client tool and for tests.
// Transforms operate on the normalized lattice coordinate, so an identity
// cube maps every input color to itself.

// Transform maps one normalized RGB lattice coordinate to an output color.
type Transform func(r, g, b float64) (float64, float64, float64)

// Generate builds an n-sized 3-channel Cube by evaluating fn at every
// lattice point.
func Generate(n int, fn Transform) (*Cube, error) {
	if n < MinSize {
		return nil, &ValidationError{Reason: "generator size below minimum"}
	}
	data := make([]float32, n*n*n*3)
	step := 1.0 / float64(n-1)
	i := 0
	for r := 0; r < n; r++ {
		for g := 0; g < n; g++ {
			for b := 0; b < n; b++ {
				or, og, ob := fn(float64(r)*step, float64(g)*step, float64(b)*step)
				data[i] = float32(or)
				data[i+1] = float32(og)
				data[i+2] = float32(ob)
				i += 3
			}
		}
	}
	return &Cube{Size: n, Channels: 3, Data: data}, nil
}

// Identity returns a LUT that maps every color to itself.
func Identity(n int) (*Cube, error) {
	return Generate(n, func(r, g, b float64) (float64, float64, float64) {
		return r, g, b
	})
}

// Gamma returns a LUT applying a per-channel power curve.
func Gamma(n int, gamma float64) (*Cube, error) {
	return Generate(n, func(r, g, b float64) (float64, float64, float64) {
		return math.Pow(r, gamma), math.Pow(g, gamma), math.Pow(b, gamma)
	})
}

// Contrast returns a LUT scaling contrast around mid-gray.
// amount 1.0 is identity; values above increase contrast.
func Contrast(n int, amount float64) (*Cube, error) {
	adjust := func(v float64) float64 {
		return (v-0.5)*amount + 0.5
	}
	return Generate(n, func(r, g, b float64) (float64, float64, float64) {
		return adjust(r), adjust(g), adjust(b)
	})
}

// Desaturate returns a LUT reducing saturation by amount in [0, 1].
// amount 0 is identity, amount 1 is full grayscale. Saturation is scaled
// in HSL space.
func Desaturate(n int, amount float64) (*Cube, error) {
	if amount < 0 {
		amount = 0
	}
	if amount > 1 {
		amount = 1
	}
	return Generate(n, func(r, g, b float64) (float64, float64, float64) {
		c := colorful.Color{R: r, G: g, B: b}
		h, s, l := c.Hsl()
		out := colorful.Hsl(h, s*(1-amount), l)
		return out.R, out.G, out.B
	})
}

// WarmShift returns a LUT biasing colors toward warm tones. amount in
// [0, 1] controls the strength: red gains, blue loses, in proportion.
func WarmShift(n int, amount float64) (*Cube, error) {
	if amount < 0 {
		amount = 0
	}
	if amount > 1 {
		amount = 1
	}
	shift := amount * 0.15
	return Generate(n, func(r, g, b float64) (float64, float64, float64) {
		return r + shift*(1-r), g, b - shift*b
	})
}

// HueRotate returns a LUT rotating hue by degrees.
func HueRotate(n int, degrees float64) (*Cube, error) {
	return Generate(n, func(r, g, b float64) (float64, float64, float64) {
		c := colorful.Color{R: r, G: g, B: b}
		h, s, l := c.Hsl()
		h = math.Mod(h+degrees, 360)
		if h < 0 {
			h += 360
		}
		out := colorful.Hsl(h, s, l)
		return out.R, out.G, out.B
	})
}
