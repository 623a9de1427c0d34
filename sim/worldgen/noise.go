// Package worldgen produces deterministic procedural chunks: layered
// terrain from multi-octave noise, carved caves, ore veins, and
// surface vegetation.
package worldgen

import "math"

// noise skew constants for 2D simplex.
const (
	skewF2   = 0.36602540378443865 // (sqrt(3) - 1) / 2
	unskewG2 = 0.2113248654051871  // (3 - sqrt(3)) / 6
)

var grad2 = [8][2]float64{
	{1, 0}, {-1, 0}, {0, 1}, {0, -1},
	{0.707, 0.707}, {-0.707, 0.707}, {0.707, -0.707}, {-0.707, -0.707},
}

// SimplexNoise is seeded 2D simplex noise. The permutation table comes
// from a Fisher-Yates shuffle driven by an LCG, so the same seed
// always yields the same field.
type SimplexNoise struct {
	perm  [512]uint8
	scale float64
}

// NewSimplexNoise builds a noise field for a seed. scale multiplies
// input coordinates; smaller scales give smoother features.
func NewSimplexNoise(seed uint64, scale float64) *SimplexNoise {
	var p [256]uint8
	for i := range p {
		p[i] = uint8(i)
	}
	state := seed
	for i := 255; i >= 1; i-- {
		state = state*6364136223846793005 + 1
		j := int(state>>32) % (i + 1)
		p[i], p[j] = p[j], p[i]
	}

	n := &SimplexNoise{scale: scale}
	copy(n.perm[:256], p[:])
	copy(n.perm[256:], p[:])
	return n
}

// Noise2D returns noise in [-1, 1] at the given coordinates.
func (n *SimplexNoise) Noise2D(x, y float64) float64 {
	x *= n.scale
	y *= n.scale

	s := (x + y) * skewF2
	i := math.Floor(x + s)
	j := math.Floor(y + s)

	t := (i + j) * unskewG2
	x0 := x - (i - t)
	y0 := y - (j - t)

	var i1, j1 int
	if x0 > y0 {
		i1 = 1
	} else {
		j1 = 1
	}

	x1 := x0 - float64(i1) + unskewG2
	y1 := y0 - float64(j1) + unskewG2
	x2 := x0 - 1 + 2*unskewG2
	y2 := y0 - 1 + 2*unskewG2

	ii := int(int32(i)) & 255
	jj := int(int32(j)) & 255

	gi0 := int(n.perm[ii+int(n.perm[jj])] % 8)
	gi1 := int(n.perm[ii+i1+int(n.perm[jj+j1])] % 8)
	gi2 := int(n.perm[ii+1+int(n.perm[jj+1])] % 8)

	return 70 * (contribution(x0, y0, gi0) + contribution(x1, y1, gi1) + contribution(x2, y2, gi2))
}

func contribution(x, y float64, gi int) float64 {
	t := 0.5 - x*x - y*y
	if t < 0 {
		return 0
	}
	t2 := t * t
	return t2 * t2 * (grad2[gi][0]*x + grad2[gi][1]*y)
}

// FBM sums octaves of Noise2D with amplitude falloff, normalized back
// to [-1, 1].
func (n *SimplexNoise) FBM(x, y float64, octaves int, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	frequency := 1.0
	maxValue := 0.0

	for o := 0; o < octaves; o++ {
		total += n.Noise2D(x*frequency, y*frequency) * amplitude
		maxValue += amplitude
		amplitude *= persistence
		frequency *= 2
	}
	return total / maxValue
}
