// Package material indexes a model's materials by name and resolves them
// through data-driven hint lists. It also provides the reversible hair
// tint capability.
package material

import (
	"strings"

	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/scene"
)

// Hint lists used by the appearance applier.
var (
	ShirtHints     = []string{"shirt", "blouse", "upper", "body_cloth"}
	PantsHints     = []string{"pant", "trouser", "lower"}
	ShoesHints     = []string{"shoe", "boot"}
	AccessoryHints = []string{"tie", "belt", "accessory"}
	LogoHints      = []string{"LogoLabel", "LogoMesh", "avaturn_look_0.002", "logo", "avatar_logo"}
)

// Registry maps material names to instances, remembering first-seen order.
// A later material with the same name replaces the earlier one in place.
type Registry struct {
	order  []string
	byName map[string]*scene.Material
}

// NewRegistry indexes materials. Unnamed materials are skipped.
func NewRegistry(materials []*scene.Material) *Registry {
	r := &Registry{byName: make(map[string]*scene.Material, len(materials))}
	for _, m := range materials {
		r.Add(m)
	}
	return r
}

// Add indexes a single material.
func (r *Registry) Add(m *scene.Material) {
	if m == nil || m.Name == "" {
		return
	}
	if _, ok := r.byName[m.Name]; !ok {
		r.order = append(r.order, m.Name)
	}
	r.byName[m.Name] = m
}

// Len returns the number of indexed names.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.order)
}

// Get returns the material named exactly name.
func (r *Registry) Get(name string) *scene.Material {
	if r == nil {
		return nil
	}
	return r.byName[name]
}

// All returns the materials in first-seen order.
func (r *Registry) All() []*scene.Material {
	if r == nil {
		return nil
	}
	out := make([]*scene.Material, len(r.order))
	for i, name := range r.order {
		out[i] = r.byName[name]
	}
	return out
}

// Find resolves hints in two passes: an exact name match for each hint in
// order, then the first material (in registry order) whose lower-cased
// name contains any lower-cased hint. Exact matches always win.
func (r *Registry) Find(hints ...string) *scene.Material {
	if r == nil {
		return nil
	}
	for _, h := range hints {
		if m, ok := r.byName[h]; ok {
			return m
		}
	}

	lowered := make([]string, 0, len(hints))
	for _, h := range hints {
		if h != "" {
			lowered = append(lowered, strings.ToLower(h))
		}
	}
	for _, name := range r.order {
		n := strings.ToLower(name)
		for _, h := range lowered {
			if strings.Contains(n, h) {
				return r.byName[name]
			}
		}
	}
	return nil
}

// Filter returns every material whose name satisfies match, in order.
func (r *Registry) Filter(match func(name string) bool) []*scene.Material {
	if r == nil {
		return nil
	}
	var out []*scene.Material
	for _, name := range r.order {
		if match(name) {
			out = append(out, r.byName[name])
		}
	}
	return out
}
