package viseme

import (
	gomath "math"
	"time"

	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/scene"
	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/pkg/math"
)

// MinWobble is the shortest fallback talking cue.
const MinWobble = 600 * time.Millisecond

// Wobble is the coarse talking cue used for models without morph targets:
// a small periodic rotation of the whole model for the duration of the
// audio.
type Wobble struct {
	Amplitude float32 // Radians
	Frequency float64 // Hz

	node      *scene.Node
	base      math.Quat
	remaining time.Duration
	elapsed   time.Duration
}

// NewWobble returns a wobble with a gentle default motion.
func NewWobble() *Wobble {
	return &Wobble{Amplitude: 0.035, Frequency: 2.5}
}

// Start rotates node for d, at least MinWobble. A running wobble is
// stopped first.
func (w *Wobble) Start(node *scene.Node, d time.Duration) {
	w.Stop()
	if node == nil {
		return
	}
	if d < MinWobble {
		d = MinWobble
	}
	w.node = node
	w.base = node.Rotation
	w.remaining = d
	w.elapsed = 0
}

// Active reports whether the timer is running.
func (w *Wobble) Active() bool {
	return w.node != nil
}

// Update advances the timer and applies the rotation. The node's original
// rotation is restored when the timer expires.
func (w *Wobble) Update(dt time.Duration) {
	if w.node == nil {
		return
	}
	w.remaining -= dt
	w.elapsed += dt
	if w.remaining <= 0 {
		w.Stop()
		return
	}
	angle := w.Amplitude * float32(gomath.Sin(2*gomath.Pi*w.Frequency*w.elapsed.Seconds()))
	sway := math.QuatFromAxisAngle(math.Vec3{X: 1}, angle*0.5).
		Mul(math.QuatFromAxisAngle(math.Vec3{Y: 1}, angle))
	w.node.Rotation = w.base.Mul(sway)
}

// Stop restores the node's rotation.
func (w *Wobble) Stop() {
	if w.node != nil {
		w.node.Rotation = w.base
	}
	w.node = nil
	w.remaining, w.elapsed = 0, 0
}
