package scene

import "github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/color"

// Tint is the hair colour-grade patch installed on a material. A nil
// *Tint means the material renders with the unpatched shader.
type Tint struct {
	Color    color.Color
	Strength float32 // 0..1 mix toward Color
	Lift     float32 // 0..1 luminance-aware lightening
}

// Material is a metallic-roughness surface description.
type Material struct {
	Name      string
	Color     color.Color
	Map       *Texture
	Opacity   float32
	Metalness float32
	Roughness float32
	Visible   bool

	Transparent bool
	DoubleSided bool
	DepthTest   bool
	DepthWrite  bool
	Unlit       bool // Ignores lights and environment (backdrop)

	// EnvIntensity scales environment reflections.
	EnvIntensity float32

	// Tint is the installed hair shader patch, if any.
	Tint *Tint

	// Version increases on every change the renderer must pick up.
	Version uint64
}

// NewMaterial returns an opaque white material with glTF defaults.
func NewMaterial(name string) *Material {
	return &Material{
		Name:         name,
		Color:        color.White,
		Opacity:      1,
		Metalness:    1,
		Roughness:    1,
		Visible:      true,
		DepthTest:    true,
		DepthWrite:   true,
		EnvIntensity: 1,
	}
}

// Touch marks the material as changed.
func (m *Material) Touch() {
	m.Version++
}

// Dispose releases the material's texture. The material itself holds no
// GPU state.
func (m *Material) Dispose() {
	if m == nil {
		return
	}
	m.Map.Dispose()
}
