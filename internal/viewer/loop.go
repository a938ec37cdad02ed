package viewer

import (
	gomath "math"
	"time"

	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/capture"
	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/scene"
	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/pkg/math"
)

// MinTurntable is the shortest full revolution.
const MinTurntable = 500 * time.Millisecond

// turntable spins a node once around +Y with quadratic ease in-out.
type turntable struct {
	node     *scene.Node
	base     math.Quat
	duration time.Duration
	elapsed  time.Duration
}

func (t *turntable) active() bool {
	return t.node != nil
}

func (t *turntable) advance(dt time.Duration) {
	if t.node == nil {
		return
	}
	t.elapsed += dt
	p := min(float32(t.elapsed)/float32(t.duration), 1)
	var eased float32
	if p < 0.5 {
		eased = 2 * p * p
	} else {
		eased = -1 + (4-2*p)*p
	}
	yaw := math.QuatFromAxisAngle(math.Vec3{Y: 1}, 2*gomath.Pi*eased)
	t.node.Rotation = yaw.Mul(t.base)
	if p >= 1 {
		t.node.Rotation = t.base
		*t = turntable{}
	}
}

// Tick runs one frame: animations, talk timer, turntable, camera damping,
// lip sync, the fallback wobble and backdrop placement, then one draw.
// A viewer without a model still draws its background.
func (v *Viewer) Tick(dt time.Duration) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.disposed || !v.initialized {
		return
	}
	if v.mixer != nil {
		v.mixer.Update(float32(dt.Seconds()))
	}
	v.advanceTalk(dt)
	v.spin.advance(dt)
	v.controls.Update()
	v.player.Update()
	v.wobble.Update(dt)
	v.placeBackdrop()

	if v.renderer != nil {
		v.renderer.Render(v.scene, v.camera)
	}
}

// placeBackdrop keeps the flat-photo backdrop filling the view behind the
// camera target.
func (v *Viewer) placeBackdrop() {
	b := v.scene.Backdrop
	if b == nil {
		return
	}
	b.Translation, b.Rotation, b.Scale = v.camera.BackdropTransform(v.camera.Target)
}

// Frame fits the camera to the model.
func (v *Viewer) Frame() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.frame()
}

func (v *Viewer) frame() {
	if v.model == nil || v.model.Root == nil {
		return
	}
	box := v.model.Root.Bounds()
	if box.IsEmpty() {
		return
	}
	center, radius := box.BoundingSphere()
	v.controls.Fit(center, radius)
	v.controls.Update()
}

// Turntable spins the model one full turn over d (at least MinTurntable).
func (v *Viewer) Turntable(d time.Duration) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.model == nil || v.model.Root == nil {
		return
	}
	if v.spin.active() {
		v.spin.node.Rotation = v.spin.base
	}
	v.spin = turntable{
		node:     v.model.Root,
		base:     v.model.Root.Rotation,
		duration: max(d, MinTurntable),
	}
}

// Screenshot renders the current view offscreen and returns it as PNG.
func (v *Viewer) Screenshot() ([]byte, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.disposed {
		return nil, ErrDisposed
	}
	if v.renderer == nil {
		return nil, ErrNotInitialized
	}
	v.placeBackdrop()
	img, err := v.renderer.Capture(v.scene, v.camera, v.width, v.height)
	if err != nil {
		return nil, err
	}
	return capture.EncodePNG(img)
}

// Resize updates the camera aspect and the renderer viewport.
func (v *Viewer) Resize(width, height int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.resize(width, height)
}

func (v *Viewer) resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	v.width, v.height = width, height
	v.camera.SetSize(width, height)
	if v.renderer != nil {
		v.renderer.Resize(width, height)
	}
}

// Orbit rotates the camera around its target by a pointer drag in pixels.
func (v *Viewer) Orbit(dx, dy float32) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.controls.HandleDrag(dx, dy)
}

// Pan moves the camera target by a pointer drag in pixels.
func (v *Viewer) Pan(dx, dy float32) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.controls.HandlePan(dx, dy)
}

// Zoom dollies toward the target; positive steps move closer.
func (v *Viewer) Zoom(steps float32) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.controls.HandleZoom(steps)
}
