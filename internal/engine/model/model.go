// Package model decodes glTF 2.0 / GLB avatars into scene subtrees with
// their animation clips.
package model

import (
	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/animation"
	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/scene"
)

// Model is a decoded asset: its root node, animation clips and every
// texture it created.
type Model struct {
	URL      string
	Root     *scene.Node
	Clips    []*animation.Clip
	Textures []*scene.Texture
}

// Dispose releases all geometry, materials and textures of the model.
// It is safe to call on a nil or partially built model, and more than once.
func (m *Model) Dispose() {
	if m == nil {
		return
	}
	m.Root.Dispose()
	for _, t := range m.Textures {
		t.Dispose()
	}
}

// Materials returns every distinct material under the root in traversal
// order.
func (m *Model) Materials() []*scene.Material {
	if m == nil || m.Root == nil {
		return nil
	}
	seen := make(map[*scene.Material]bool)
	var out []*scene.Material
	m.Root.EachMesh(func(_ *scene.Node, mesh *scene.Mesh) {
		if mesh.Material != nil && !seen[mesh.Material] {
			seen[mesh.Material] = true
			out = append(out, mesh.Material)
		}
	})
	return out
}

// ResetMorphs zeroes every morph influence under the root.
func (m *Model) ResetMorphs() {
	if m == nil || m.Root == nil {
		return
	}
	m.Root.EachMesh(func(_ *scene.Node, mesh *scene.Mesh) {
		mesh.ResetInfluences()
	})
}
