package material

import (
	"regexp"
	"strings"

	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/color"
	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/scene"
)

// Hair tint defaults.
const (
	DefaultTintStrength = 0.45
	DefaultTintLift     = 0.22
)

var (
	hairPattern  = regexp.MustCompile(`(avaturn_hair|hair(_\d+)?|head_hair)`)
	scalpPattern = regexp.MustCompile(`scalp|cap`)

	hairNames = map[string]bool{
		"avaturn_hair_0_material": true,
		"avaturn_hair_1_material": true,
		"avaturn_hair_0":          true,
		"avaturn_hair_1":          true,
	}
)

// IsHair reports whether a material name looks like hair (and not a scalp
// or cap).
func IsHair(name string) bool {
	n := strings.ToLower(name)
	return hairPattern.MatchString(n) && !scalpPattern.MatchString(n)
}

// IsHairTarget is IsHair plus the known Avaturn hair material names.
func IsHairTarget(name string) bool {
	return IsHair(name) || hairNames[strings.ToLower(name)]
}

// Tintable is a material that accepts a non-destructive colour grade.
// Installing twice only updates the parameters; Remove restores the
// material exactly as it was before the first Install.
type Tintable interface {
	InstallTint(t scene.Tint)
	RemoveTint()
	TintInstalled() bool
}

// TintState tracks one material's originals and its active tint.
type TintState struct {
	mat *scene.Material

	originalColor color.Color
	originalMap   *scene.Texture
	cached        bool
}

// NewTintState wraps m. Originals are captured on the first Cache or
// InstallTint.
func NewTintState(m *scene.Material) *TintState {
	return &TintState{mat: m}
}

// Material returns the wrapped material.
func (s *TintState) Material() *scene.Material {
	return s.mat
}

// Cache snapshots the current colour and map if not already done.
func (s *TintState) Cache() {
	if s.cached {
		return
	}
	s.originalColor = s.mat.Color
	s.originalMap = s.mat.Map
	s.cached = true
}

// InstallTint installs or updates the tint. Strength and lift are clamped
// to [0,1].
func (s *TintState) InstallTint(t scene.Tint) {
	s.Cache()
	t.Strength = clamp01(t.Strength)
	t.Lift = clamp01(t.Lift)
	if s.mat.Tint != nil {
		*s.mat.Tint = t
	} else {
		s.mat.Tint = &t
	}
	s.mat.Touch()
}

// RemoveTint removes an installed tint and restores the cached originals.
// Materials without a tint are left untouched.
func (s *TintState) RemoveTint() {
	if s.mat.Tint == nil {
		return
	}
	s.mat.Tint = nil
	if s.cached {
		s.mat.Color = s.originalColor
		s.mat.Map = s.originalMap
	}
	s.mat.Touch()
}

// TintInstalled reports whether a tint is active.
func (s *TintState) TintInstalled() bool {
	return s.mat.Tint != nil
}

// HairTinter manages the tint states of a model's hair materials.
type HairTinter struct {
	states map[*scene.Material]*TintState
	order  []*TintState
}

// NewHairTinter caches the originals of every hair material in reg.
func NewHairTinter(reg *Registry) *HairTinter {
	h := &HairTinter{states: make(map[*scene.Material]*TintState)}
	for _, m := range reg.Filter(IsHairTarget) {
		s := NewTintState(m)
		if IsHair(m.Name) {
			s.Cache()
		}
		h.states[m] = s
		h.order = append(h.order, s)
	}
	return h
}

// Len returns the number of tintable hair materials.
func (h *HairTinter) Len() int {
	if h == nil {
		return 0
	}
	return len(h.order)
}

// Apply tints every hair material toward c.
func (h *HairTinter) Apply(c color.Color, strength, lift float32) {
	if h == nil {
		return
	}
	for _, s := range h.order {
		s.InstallTint(scene.Tint{Color: c, Strength: strength, Lift: lift})
	}
}

// Reset removes the tint from hair materials that have one installed.
func (h *HairTinter) Reset() {
	if h == nil {
		return
	}
	for _, s := range h.order {
		if !IsHair(s.mat.Name) {
			continue
		}
		s.RemoveTint()
	}
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

var _ Tintable = (*TintState)(nil)
