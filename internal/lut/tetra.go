package lut

// Tetrahedral interpolation reference.
//
// The GPU shaders that consume Hald textures sample them with a six-region
// tetrahedral decomposition of the unit cube. This file is the canonical
// definition of that behavior: the shader output must match Sample for any
// conforming image. Exact lattice hits reproduce the stored value
// bit-for-bit; interior points blend exactly 4 of the 8 surrounding
// corners with non-negative barycentric weights summing to 1.

// axis unit offsets within a lattice cell.
var axisOffset = [3][3]int{
	{1, 0, 0}, // red
	{0, 1, 0}, // green
	{0, 0, 1}, // blue
}

// tetraPerm describes one of the six tetrahedra, identified by the
// descending order of the fractional components.
type tetraPerm struct {
	first, second, third int // axis indices, largest fraction first
}

// tetraPerms is the decision table over the 6 orderings of (fr, fg, fb).
// Ties fall through the >= comparisons deterministically.
var tetraPerms = [6]tetraPerm{
	{0, 1, 2}, // fr >= fg >= fb
	{0, 2, 1}, // fr >= fb >  fg
	{2, 0, 1}, // fb >  fr >= fg
	{1, 0, 2}, // fg >  fr >= fb
	{1, 2, 0}, // fg >= fb >  fr
	{2, 1, 0}, // fb >  fg >= fr
}

// permIndex classifies the fractional components into one of the six
// tetrahedra.
func permIndex(fr, fg, fb float32) int {
	if fr >= fg {
		if fg >= fb {
			return 0
		}
		if fr >= fb {
			return 1
		}
		return 2
	}
	if fr >= fb {
		return 3
	}
	if fg >= fb {
		return 4
	}
	return 5
}

// Sample evaluates the LUT held by img at the normalized input color
// (r, g, b), each component in [0, 1]. Out-of-range inputs are clamped to
// the lattice bounds, matching GPU texture addressing. The returned slice
// has img.Channels entries.
func Sample(img *HaldImage, r, g, b float32) []float32 {
	n := img.Size

	ri, fr := splitCoord(r, n)
	gi, fg := splitCoord(g, n)
	bi, fb := splitCoord(b, n)

	out := make([]float32, img.Channels)

	// Exact lattice hit: return the stored value untouched so round trips
	// are bit-identical even for negative-zero, NaN or denormal payloads.
	if isLatticeFrac(fr) && isLatticeFrac(fg) && isLatticeFrac(fb) {
		copy(out, img.At(ri+int(fr), gi+int(fg), bi+int(fb)))
		return out
	}

	perm := tetraPerms[permIndex(fr, fg, fb)]
	f := [3]float32{fr, fg, fb}

	// Corners along the path 000 -> first -> first+second -> 111.
	c0 := [3]int{ri, gi, bi}
	c1 := addOffset(c0, axisOffset[perm.first])
	c2 := addOffset(c1, axisOffset[perm.second])
	c3 := addOffset(c2, axisOffset[perm.third])

	// Barycentric weights; each is non-negative and they sum to 1.
	w0 := 1 - f[perm.first]
	w1 := f[perm.first] - f[perm.second]
	w2 := f[perm.second] - f[perm.third]
	w3 := f[perm.third]

	v0 := img.At(c0[0], c0[1], c0[2])
	v1 := img.At(c1[0], c1[1], c1[2])
	v2 := img.At(c2[0], c2[1], c2[2])
	v3 := img.At(c3[0], c3[1], c3[2])

	for ch := range out {
		out[ch] = w0*v0[ch] + w1*v1[ch] + w2*v2[ch] + w3*v3[ch]
	}
	return out
}

// splitCoord maps a normalized coordinate onto the lattice, returning the
// lower cell index and the fractional position within the cell. The index
// never exceeds n-2 so that index+1 stays in bounds.
func splitCoord(v float32, n int) (int, float32) {
	if v <= 0 {
		return 0, 0
	}
	scaled := v * float32(n-1)
	i := int(scaled)
	if i >= n-1 {
		return n - 2, 1
	}
	return i, scaled - float32(i)
}

// isLatticeFrac reports whether a cell fraction lands exactly on a
// lattice plane.
func isLatticeFrac(f float32) bool {
	return f == 0 || f == 1
}

func addOffset(c [3]int, off [3]int) [3]int {
	return [3]int{c[0] + off[0], c[1] + off[1], c[2] + off[2]}
}
