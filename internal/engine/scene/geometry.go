package scene

import (
	gomath "math"

	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/pkg/math"
)

// Vertex is the interleaved layout uploaded to the GPU.
type Vertex struct {
	Position [3]float32
	Normal   [3]float32
	TexCoord [2]float32
}

// MorphTarget holds per-vertex deltas for one blend shape.
type MorphTarget struct {
	Name      string
	Positions [][3]float32
	Normals   [][3]float32 // Optional
}

// Geometry is an indexed triangle list with optional morph targets.
type Geometry struct {
	Resource

	Vertices []Vertex
	Indices  []uint32
	Morphs   []MorphTarget
	Bounds   math.Box3
}

// NewGeometry builds a geometry and computes its bounds.
func NewGeometry(vertices []Vertex, indices []uint32) *Geometry {
	g := &Geometry{Vertices: vertices, Indices: indices}
	g.ComputeBounds()
	return g
}

// ComputeBounds recalculates the bounding box from the base vertices.
func (g *Geometry) ComputeBounds() {
	g.Bounds = math.Box3{}
	for _, v := range g.Vertices {
		g.Bounds.ExpandByPoint(math.V3(v.Position))
	}
}

// Blend writes the base vertices with weighted morph deltas applied into
// dst, growing it as needed, and returns it. Influences beyond the morph
// count are ignored.
func (g *Geometry) Blend(dst []Vertex, influences []float32) []Vertex {
	if cap(dst) < len(g.Vertices) {
		dst = make([]Vertex, len(g.Vertices))
	}
	dst = dst[:len(g.Vertices)]
	copy(dst, g.Vertices)

	for i, w := range influences {
		if w == 0 || i >= len(g.Morphs) {
			continue
		}
		m := &g.Morphs[i]
		for j := range dst {
			if j < len(m.Positions) {
				d := m.Positions[j]
				dst[j].Position[0] += d[0] * w
				dst[j].Position[1] += d[1] * w
				dst[j].Position[2] += d[2] * w
			}
			if j < len(m.Normals) {
				d := m.Normals[j]
				dst[j].Normal[0] += d[0] * w
				dst[j].Normal[1] += d[1] * w
				dst[j].Normal[2] += d[2] * w
			}
		}
	}
	return dst
}

// Dispose is safe on a nil geometry.
func (g *Geometry) Dispose() {
	if g == nil {
		return
	}
	g.Resource.Dispose()
}

// PlaneGeometry returns a w x h quad in the XY plane facing +Z.
func PlaneGeometry(w, h float32) *Geometry {
	hw, hh := w/2, h/2
	n := [3]float32{0, 0, 1}
	return NewGeometry([]Vertex{
		{Position: [3]float32{-hw, -hh, 0}, Normal: n, TexCoord: [2]float32{0, 1}},
		{Position: [3]float32{hw, -hh, 0}, Normal: n, TexCoord: [2]float32{1, 1}},
		{Position: [3]float32{hw, hh, 0}, Normal: n, TexCoord: [2]float32{1, 0}},
		{Position: [3]float32{-hw, hh, 0}, Normal: n, TexCoord: [2]float32{0, 0}},
	}, []uint32{0, 1, 2, 0, 2, 3})
}

// CircleGeometry returns a disc of the given radius in the XZ plane facing +Y.
func CircleGeometry(radius float32, segments int) *Geometry {
	if segments < 3 {
		segments = 3
	}
	up := [3]float32{0, 1, 0}
	vertices := make([]Vertex, 0, segments+1)
	indices := make([]uint32, 0, segments*3)

	vertices = append(vertices, Vertex{Normal: up, TexCoord: [2]float32{0.5, 0.5}})
	for i := 0; i < segments; i++ {
		a := 2 * gomath.Pi * float64(i) / float64(segments)
		c, s := float32(gomath.Cos(a)), float32(gomath.Sin(a))
		vertices = append(vertices, Vertex{
			Position: [3]float32{c * radius, 0, -s * radius},
			Normal:   up,
			TexCoord: [2]float32{(c + 1) / 2, (s + 1) / 2},
		})
	}
	for i := 0; i < segments; i++ {
		next := (i+1)%segments + 1
		indices = append(indices, 0, uint32(i+1), uint32(next))
	}
	return NewGeometry(vertices, indices)
}
