package lut

import "fmt"

// MinSize is the smallest accepted cube edge. A LUT needs at least two
// lattice points per axis to define an interpolatable transform.
const MinSize = 2

// ValidationError reports a LUT that fails structural validation.
// It is message-fatal: the message is dropped but the connection and any
// existing channel state are untouched.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid LUT: " + e.Reason
}

// Cube is a validated 3D lattice of color samples.
//
// Data is a flat sequence indexed [r][g][b] with the blue index varying
// fastest, matching the wire payload order. Values are raw IEEE-754
// float32 with no range restriction; HDR and negative values are legal
// and preserved bit-exactly.
type Cube struct {
	Size     int // lattice points per axis (N)
	Channels int // 3 (RGB) or 4 (RGBA)
	Data     []float32
}

// NewCube validates the dimensions and wraps data in a Cube.
// The slice is retained, not copied.
func NewCube(size, channels int, data []float32) (*Cube, error) {
	if size < MinSize {
		return nil, &ValidationError{Reason: fmt.Sprintf("cube size %d below minimum %d", size, MinSize)}
	}
	if channels != 3 && channels != 4 {
		return nil, &ValidationError{Reason: fmt.Sprintf("channel count %d not in {3, 4}", channels)}
	}
	want := size * size * size * channels
	if len(data) != want {
		return nil, &ValidationError{
			Reason: fmt.Sprintf("data length %d does not match %d^3 x %d = %d", len(data), size, channels, want),
		}
	}
	return &Cube{Size: size, Channels: channels, Data: data}, nil
}

// InferSize derives the cube edge from a flat value count and channel count.
// The count must be an exact positive cube times channels, at least MinSize
// per axis.
func InferSize(valueCount, channels int) (int, error) {
	if channels != 3 && channels != 4 {
		return 0, &ValidationError{Reason: fmt.Sprintf("channel count %d not in {3, 4}", channels)}
	}
	if valueCount <= 0 || valueCount%channels != 0 {
		return 0, &ValidationError{Reason: fmt.Sprintf("value count %d not divisible by %d channels", valueCount, channels)}
	}
	perChannel := valueCount / channels

	// Integer cube root; float math alone misclassifies near-cubes.
	n := icbrt(perChannel)
	if n < MinSize || n*n*n != perChannel {
		return 0, &ValidationError{Reason: fmt.Sprintf("value count %d is not a perfect cube of %d channels", valueCount, channels)}
	}
	return n, nil
}

// icbrt returns the integer cube root of v (largest n with n^3 <= v).
func icbrt(v int) int {
	if v <= 0 {
		return 0
	}
	n := 0
	for (n+1)*(n+1)*(n+1) <= v {
		n++
	}
	return n
}

// index returns the flat offset of lattice point (r, g, b).
func (c *Cube) index(r, g, b int) int {
	return ((r*c.Size+g)*c.Size + b) * c.Channels
}

// At returns the channel values at lattice point (r, g, b).
// The returned slice aliases the cube's data.
func (c *Cube) At(r, g, b int) []float32 {
	i := c.index(r, g, b)
	return c.Data[i : i+c.Channels]
}
