package camera

import (
	gomath "math"

	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/pkg/math"
)

// OrbitControls orbits a Perspective camera around its target with damped
// rotation, zoom and pan.
type OrbitControls struct {
	Camera *Perspective

	// Constraints
	MinDistance float32
	MaxDistance float32
	MinPolar    float32 // Radians from +Y
	MaxPolar    float32

	// Sensitivity
	DampingFactor   float32
	RotateSpeed     float32
	ZoomSpeed       float32
	PanSpeed        float32
	DragSensitivity float32

	// Pending input, consumed gradually by Update.
	deltaTheta float32
	deltaPhi   float32
	scale      float32
	pan        math.Vec3
}

// NewOrbitControls creates controls with the viewer defaults.
func NewOrbitControls(cam *Perspective) *OrbitControls {
	return &OrbitControls{
		Camera:          cam,
		MinDistance:     0,
		MaxDistance:     float32(gomath.Inf(1)),
		MinPolar:        gomath.Pi / 4,
		MaxPolar:        gomath.Pi / 1.9,
		DampingFactor:   0.08,
		RotateSpeed:     1,
		ZoomSpeed:       1,
		PanSpeed:        0.8,
		DragSensitivity: 0.005,
		scale:           1,
	}
}

// HandleDrag queues an orbit from a mouse drag delta in pixels.
func (c *OrbitControls) HandleDrag(deltaX, deltaY float32) {
	c.deltaTheta -= deltaX * c.DragSensitivity * c.RotateSpeed
	c.deltaPhi -= deltaY * c.DragSensitivity * c.RotateSpeed
}

// HandleZoom queues a dolly from a scroll wheel delta (positive zooms in).
func (c *OrbitControls) HandleZoom(delta float32) {
	step := float32(gomath.Pow(0.95, float64(c.ZoomSpeed)))
	if delta > 0 {
		c.scale *= step
	} else if delta < 0 {
		c.scale /= step
	}
}

// HandlePan queues a screen-space pan from a drag delta in pixels.
func (c *OrbitControls) HandlePan(deltaX, deltaY float32) {
	cam := c.Camera
	dist := cam.Position.Distance(cam.Target)
	perPixel := 2 * dist * float32(gomath.Tan(float64(radians(cam.FOV))/2)) / 720

	f := cam.Direction()
	right := f.Cross(worldUp).Normalize()
	up := right.Cross(f)
	c.pan = c.pan.
		Add(right.Scale(-deltaX * perPixel * c.PanSpeed)).
		Add(up.Scale(deltaY * perPixel * c.PanSpeed))
}

// Update applies pending input to the camera. With damping enabled the
// input decays over several frames.
func (c *OrbitControls) Update() {
	cam := c.Camera
	offset := cam.Position.Sub(cam.Target)

	radius := offset.Length()
	theta := float32(gomath.Atan2(float64(offset.X), float64(offset.Z)))
	phi := float32(0)
	if radius > 0 {
		phi = float32(gomath.Acos(float64(clamp(offset.Y/radius, -1, 1))))
	}

	damp := c.DampingFactor
	if damp <= 0 {
		damp = 1
	}
	theta += c.deltaTheta * damp
	phi += c.deltaPhi * damp
	phi = clamp(phi, c.MinPolar, c.MaxPolar)
	phi = clamp(phi, 1e-6, gomath.Pi-1e-6)

	radius *= c.scale
	radius = clamp(radius, c.MinDistance, c.MaxDistance)

	cam.Target = cam.Target.Add(c.pan.Scale(damp))

	sinPhi := float32(gomath.Sin(float64(phi)))
	offset = math.Vec3{
		X: radius * sinPhi * float32(gomath.Sin(float64(theta))),
		Y: radius * float32(gomath.Cos(float64(phi))),
		Z: radius * sinPhi * float32(gomath.Cos(float64(theta))),
	}
	cam.Position = cam.Target.Add(offset)

	if c.DampingFactor > 0 {
		c.deltaTheta *= 1 - damp
		c.deltaPhi *= 1 - damp
		c.pan = c.pan.Scale(1 - damp)
	} else {
		c.deltaTheta, c.deltaPhi, c.pan = 0, 0, math.Vec3{}
	}
	c.scale = 1
}

// Fit frames a bounding sphere. The target sits slightly above the centre
// and the camera is offset from the centre along a fixed three-quarter
// direction. Distance limits and clip planes scale with the radius.
func (c *OrbitControls) Fit(center math.Vec3, radius float32) {
	r := max(radius, 0.5)
	cam := c.Camera

	target := math.Vec3{X: center.X, Y: center.Y + r*0.15, Z: center.Z}
	dir := math.Vec3{X: 0.6, Y: 0.55, Z: 1}.Normalize()

	cam.Target = target
	cam.Position = center.Add(dir.Scale(r * 2.2))
	cam.Near = max(r/100, 0.01)
	cam.Far = r * 30

	c.MinDistance = r * 0.6
	c.MaxDistance = r * 3
	c.MinPolar = gomath.Pi / 4
	c.MaxPolar = gomath.Pi / 1.9
	c.Reset()
}

// Reset drops any pending input.
func (c *OrbitControls) Reset() {
	c.deltaTheta, c.deltaPhi = 0, 0
	c.scale = 1
	c.pan = math.Vec3{}
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
