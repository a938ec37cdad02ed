// Package scene holds the avatar viewer's renderable state: a node graph of
// meshes, their materials and textures, and the scene-wide background,
// environment, ground disc and backdrop plane.
//
// The package is CPU-only. GPU objects are attached lazily by the renderer
// through Resource and released through it on Dispose.
package scene

import (
	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/color"
)

// Ground disc dimensions.
const (
	GroundRadius   = 2.4
	GroundSegments = 48
)

// Scene is the root container rendered every frame.
type Scene struct {
	Root *Node

	// BackgroundColor is shown when BackgroundTexture is nil.
	BackgroundColor color.Color
	// BackgroundTexture is an equirectangular panorama drawn behind everything.
	BackgroundTexture *Texture
	// Environment lights and reflects on physically based materials.
	Environment *Texture

	BackgroundBlurriness float32
	BackgroundIntensity  float32
	EnvironmentIntensity float32
	// BackgroundRotation is the yaw, in radians, applied to the panorama
	// and the environment.
	BackgroundRotation float32

	// RimColor tints the back light that separates the subject from the
	// background.
	RimColor color.Color

	Ground   *Node
	Backdrop *Node
	model    *Node
}

// New creates an empty scene with a ground disc.
func New(background, ground color.Color) *Scene {
	s := &Scene{
		Root:                 NewNode("scene"),
		BackgroundColor:      background,
		RimColor:             color.White,
		BackgroundIntensity:  1,
		EnvironmentIntensity: 1,
	}

	mat := NewMaterial("ground")
	mat.Color = ground
	mat.Roughness = 0.85
	mat.Metalness = 0.05
	s.Ground = NewNode("ground")
	s.Ground.Meshes = []*Mesh{{Name: "ground", Geometry: CircleGeometry(GroundRadius, GroundSegments), Material: mat}}
	s.Root.Add(s.Ground)
	return s
}

// Model returns the attached model root, or nil.
func (s *Scene) Model() *Node {
	return s.model
}

// SetModel replaces the attached model root. The previous root is
// detached but not disposed.
func (s *Scene) SetModel(root *Node) {
	if s.model != nil {
		s.Root.Remove(s.model)
	}
	s.model = root
	if root != nil {
		s.Root.Add(root)
	}
}

// SetBackdrop attaches a camera-facing plane showing tex, replacing any
// previous backdrop (which is disposed).
func (s *Scene) SetBackdrop(tex *Texture) {
	s.ClearBackdrop()

	mat := NewMaterial("backdrop")
	mat.Map = tex
	mat.Unlit = true
	mat.DepthTest = false
	mat.DepthWrite = false

	s.Backdrop = NewNode("backdrop")
	s.Backdrop.Meshes = []*Mesh{{Name: "backdrop", Geometry: PlaneGeometry(2, 2), Material: mat, RenderOrder: -1000}}
	s.Root.Add(s.Backdrop)
}

// ClearBackdrop removes and disposes the backdrop plane and its texture.
func (s *Scene) ClearBackdrop() {
	if s.Backdrop == nil {
		return
	}
	s.Root.Remove(s.Backdrop)
	s.Backdrop.Dispose()
	s.Backdrop = nil
}

// Dispose releases everything owned by the scene, including the model.
func (s *Scene) Dispose() {
	if s == nil {
		return
	}
	s.ClearBackdrop()
	s.BackgroundTexture.Dispose()
	s.Environment.Dispose()
	s.BackgroundTexture, s.Environment = nil, nil
	s.Root.Dispose()
	s.model = nil
}
