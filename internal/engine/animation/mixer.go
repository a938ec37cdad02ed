package animation

import (
	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/scene"
	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/pkg/math"
)

type bindingKey struct {
	node *scene.Node
	path Path
}

// binding accumulates weighted samples for one animated property and
// remembers the value it had before any action touched it.
type binding struct {
	key    bindingKey
	rest   []float32
	acc    []float32
	tmp    []float32
	weight float32
	active bool // written last frame
}

// Mixer blends running actions onto their target nodes.
type Mixer struct {
	actions  []*Action
	byClip   map[*Clip]*Action
	bindings map[bindingKey]*binding
	order    []*binding
}

// NewMixer returns an empty mixer.
func NewMixer() *Mixer {
	return &Mixer{
		byClip:   make(map[*Clip]*Action),
		bindings: make(map[bindingKey]*binding),
	}
}

// ClipAction returns the action for clip, creating it on first use. New
// actions start stopped with weight 1 and time scale 1.
func (m *Mixer) ClipAction(clip *Clip) *Action {
	if clip == nil {
		return nil
	}
	if a, ok := m.byClip[clip]; ok {
		return a
	}
	a := &Action{clip: clip, TimeScale: 1, Weight: 1, Enabled: true}
	m.byClip[clip] = a
	m.actions = append(m.actions, a)
	for i := range clip.Channels {
		m.bind(&clip.Channels[i])
	}
	return a
}

func (m *Mixer) bind(ch *Channel) {
	if ch.Node == nil {
		return
	}
	key := bindingKey{ch.Node, ch.Path}
	if _, ok := m.bindings[key]; ok {
		return
	}
	rest := readProperty(ch.Node, ch.Path)
	if rest == nil {
		return
	}
	b := &binding{
		key:  key,
		rest: rest,
		acc:  make([]float32, len(rest)),
		tmp:  make([]float32, len(rest)),
	}
	m.bindings[key] = b
	m.order = append(m.order, b)
}

// Update advances every running action by dt seconds and writes the
// blended result to the bound properties.
func (m *Mixer) Update(dt float32) {
	if m == nil {
		return
	}
	for _, b := range m.order {
		b.weight = 0
	}

	for _, a := range m.actions {
		a.advance(dt)
		w := a.effectiveWeight()
		if w <= 0 {
			continue
		}
		for i := range a.clip.Channels {
			ch := &a.clip.Channels[i]
			b := m.bindings[bindingKey{ch.Node, ch.Path}]
			if b == nil || ch.components() != len(b.acc) {
				continue
			}
			ch.Sample(a.Time, b.tmp)
			b.accumulate(b.tmp, w, ch.Path == PathRotation)
		}
	}

	for _, b := range m.order {
		if b.weight == 0 {
			// Restore the rest value once when the last action lets go.
			if b.active {
				writeProperty(b.key.node, b.key.path, b.rest)
				b.active = false
			}
			continue
		}
		b.active = true
		if b.weight < 1 {
			b.mix(b.rest, 1-b.weight, b.key.path == PathRotation)
		}
		writeProperty(b.key.node, b.key.path, b.acc)
	}
}

// StopAll stops every action.
func (m *Mixer) StopAll() {
	if m == nil {
		return
	}
	for _, a := range m.actions {
		a.Stop()
	}
}

func (b *binding) accumulate(v []float32, w float32, slerp bool) {
	if b.weight == 0 {
		copy(b.acc, v)
		b.weight = w
		return
	}
	b.weight += w
	b.mix(v, w/b.weight, slerp)
}

// mix moves acc toward v by t.
func (b *binding) mix(v []float32, t float32, slerp bool) {
	if slerp {
		q := math.Quat{X: b.acc[0], Y: b.acc[1], Z: b.acc[2], W: b.acc[3]}.
			Slerp(math.Quat{X: v[0], Y: v[1], Z: v[2], W: v[3]}, t)
		b.acc[0], b.acc[1], b.acc[2], b.acc[3] = q.X, q.Y, q.Z, q.W
		return
	}
	for i := range b.acc {
		b.acc[i] += (v[i] - b.acc[i]) * t
	}
}

func readProperty(n *scene.Node, p Path) []float32 {
	switch p {
	case PathTranslation:
		return []float32{n.Translation.X, n.Translation.Y, n.Translation.Z}
	case PathScale:
		return []float32{n.Scale.X, n.Scale.Y, n.Scale.Z}
	case PathRotation:
		return []float32{n.Rotation.X, n.Rotation.Y, n.Rotation.Z, n.Rotation.W}
	case PathWeights:
		for _, mesh := range n.Meshes {
			if len(mesh.Influences) > 0 {
				return append([]float32(nil), mesh.Influences...)
			}
		}
	}
	return nil
}

func writeProperty(n *scene.Node, p Path, v []float32) {
	switch p {
	case PathTranslation:
		n.Translation = math.Vec3{X: v[0], Y: v[1], Z: v[2]}
	case PathScale:
		n.Scale = math.Vec3{X: v[0], Y: v[1], Z: v[2]}
	case PathRotation:
		n.Rotation = math.Quat{X: v[0], Y: v[1], Z: v[2], W: v[3]}.Normalize()
	case PathWeights:
		for _, mesh := range n.Meshes {
			copy(mesh.Influences, v)
		}
	}
}
