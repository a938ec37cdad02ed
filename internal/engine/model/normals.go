package model

import (
	gomath "math"

	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/scene"
)

// computeNormals fills area-weighted vertex normals for primitives that
// ship without a NORMAL attribute, then averages normals of vertices that
// share a position so split UV seams do not show as creases.
func computeNormals(vertices []scene.Vertex, indices []uint32) {
	for i := range vertices {
		vertices[i].Normal = [3]float32{}
	}
	for i := 0; i+2 < len(indices); i += 3 {
		a, b, c := indices[i], indices[i+1], indices[i+2]
		if int(a) >= len(vertices) || int(b) >= len(vertices) || int(c) >= len(vertices) {
			continue
		}
		p0, p1, p2 := vertices[a].Position, vertices[b].Position, vertices[c].Position
		n := cross(sub(p1, p0), sub(p2, p0))
		for _, idx := range [3]uint32{a, b, c} {
			vertices[idx].Normal[0] += n[0]
			vertices[idx].Normal[1] += n[1]
			vertices[idx].Normal[2] += n[2]
		}
	}
	smoothNormals(vertices)
}

func smoothNormals(vertices []scene.Vertex) {
	const epsilon float32 = 0.0001

	// Group vertices by quantized position.
	groups := make(map[[3]int32][]int)
	for i := range vertices {
		p := vertices[i].Position
		key := [3]int32{int32(p[0] / epsilon), int32(p[1] / epsilon), int32(p[2] / epsilon)}
		groups[key] = append(groups[key], i)
	}

	for _, idxs := range groups {
		var sum [3]float32
		for _, idx := range idxs {
			n := vertices[idx].Normal
			sum[0] += n[0]
			sum[1] += n[1]
			sum[2] += n[2]
		}
		avg := normalize(sum)
		for _, idx := range idxs {
			vertices[idx].Normal = avg
		}
	}
}

func sub(a, b [3]float32) [3]float32 {
	return [3]float32{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

func cross(a, b [3]float32) [3]float32 {
	return [3]float32{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func normalize(v [3]float32) [3]float32 {
	l := float32(gomath.Sqrt(float64(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])))
	if l < 1e-8 {
		return [3]float32{0, 1, 0}
	}
	return [3]float32{v[0] / l, v[1] / l, v[2] / l}
}
