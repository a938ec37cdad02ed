package viseme

import (
	"go.uber.org/zap"

	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/scene"
)

// Clock is the playback position of the audio a timeline is synchronised
// to.
type Clock interface {
	// Position returns the current playback position in seconds.
	Position() float64
	Playing() bool
	Ended() bool
}

// Player drives the morph influences of one mesh from a staged timeline.
// It is not safe for concurrent use; the owner serialises calls with its
// render loop.
type Player struct {
	log *zap.Logger

	mesh   *scene.Mesh
	lookup *Lookup

	frames  []Frame
	tracked []int
	clock   Clock
	active  bool

	pending    []RawFrame
	hasPending bool
}

// NewPlayer creates a player with no mesh bound.
func NewPlayer(log *zap.Logger) *Player {
	if log == nil {
		log = zap.NewNop()
	}
	return &Player{log: log}
}

// Bind switches the player to mesh, stopping any playback on the previous
// mesh. A timeline staged while no mesh was bound is staged now.
func (p *Player) Bind(mesh *scene.Mesh) {
	p.Stop()
	p.frames, p.tracked = nil, nil
	p.mesh, p.lookup = nil, nil
	if mesh.HasMorphs() {
		p.mesh = mesh
		p.lookup = NewLookup(mesh.MorphDict)
	}

	if p.hasPending && p.mesh != nil {
		raw := p.pending
		p.pending, p.hasPending = nil, false
		p.Stage(raw)
	}
}

// Mesh returns the bound mesh, or nil.
func (p *Player) Mesh() *scene.Mesh {
	return p.mesh
}

// Stage stops any running playback and replaces the timeline with raw.
// Without a bound mesh the timeline is queued until Bind.
func (p *Player) Stage(raw []RawFrame) {
	p.Stop()
	if p.mesh == nil {
		p.pending = append([]RawFrame(nil), raw...)
		p.hasPending = true
		return
	}

	p.frames = Normalize(raw, p.lookup)
	p.tracked = p.tracked[:0]
	seen := make(map[int]bool, len(p.frames))
	for _, f := range p.frames {
		if !seen[f.Index] {
			seen[f.Index] = true
			p.tracked = append(p.tracked, f.Index)
		}
	}
	if dropped := len(raw) - len(p.frames); dropped > 0 {
		p.log.Debug("viseme frames without a morph target dropped",
			zap.Int("dropped", dropped), zap.Int("kept", len(p.frames)))
	}
}

// Frames returns the staged, normalised timeline.
func (p *Player) Frames() []Frame {
	return p.frames
}

// Pending reports whether a timeline is queued for the next Bind.
func (p *Player) Pending() bool {
	return p.hasPending
}

// Start begins sampling the staged timeline against clock. It is a no-op
// when nothing is staged.
func (p *Player) Start(clock Clock) {
	if clock == nil || len(p.frames) == 0 || p.mesh == nil {
		return
	}
	p.clock = clock
	p.active = true
}

// Active reports whether the sampler is running.
func (p *Player) Active() bool {
	return p.active
}

// Stop halts the sampler and zeroes every influence the timeline touches.
func (p *Player) Stop() {
	p.active = false
	p.clock = nil
	p.zero()
}

// Update samples the timeline once at the clock's current position. When
// the clock reports the end of the audio the player stops.
func (p *Player) Update() {
	if !p.active || p.mesh == nil {
		return
	}
	if p.clock.Ended() {
		p.Stop()
		return
	}
	if !p.clock.Playing() {
		return
	}
	p.Sample(p.clock.Position())
}

// Sample writes the influences for position t, in seconds. Overlapping
// frames on the same morph take the maximum strength.
func (p *Player) Sample(t float64) {
	if p.mesh == nil {
		return
	}
	p.zero()
	influences := p.mesh.Influences
	for _, f := range p.frames {
		d := t - f.Time
		if d < 0 {
			d = -d
		}
		if d > Window {
			continue
		}
		strength := float32(1 - d/Window)
		if strength < 0 {
			strength = 0
		}
		if f.Index < len(influences) && strength > influences[f.Index] {
			influences[f.Index] = strength
		}
	}
}

func (p *Player) zero() {
	if p.mesh == nil {
		return
	}
	for _, idx := range p.tracked {
		if idx < len(p.mesh.Influences) {
			p.mesh.Influences[idx] = 0
		}
	}
}
