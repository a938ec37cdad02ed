// Package camera provides the perspective camera and orbit controls used to
// frame the avatar.
package camera

import (
	gomath "math"

	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/pkg/math"
)

// Default viewer camera.
const (
	DefaultFOV  = 35
	DefaultNear = 0.1
	DefaultFar  = 100
)

var (
	DefaultPosition = math.Vec3{X: 0, Y: 1.7, Z: 3.2}
	DefaultTarget   = math.Vec3{X: 0, Y: 1.5, Z: 0}
	worldUp         = math.Vec3{X: 0, Y: 1, Z: 0}
)

// Perspective is a look-at perspective camera.
type Perspective struct {
	FOV    float32 // Vertical, degrees
	Aspect float32
	Near   float32
	Far    float32

	Position math.Vec3
	Target   math.Vec3
}

// NewPerspective creates the default viewer camera.
func NewPerspective(aspect float32) *Perspective {
	if aspect <= 0 {
		aspect = 1
	}
	return &Perspective{
		FOV:      DefaultFOV,
		Aspect:   aspect,
		Near:     DefaultNear,
		Far:      DefaultFar,
		Position: DefaultPosition,
		Target:   DefaultTarget,
	}
}

// SetSize updates the aspect ratio from a framebuffer size.
func (c *Perspective) SetSize(width, height int) {
	if width > 0 && height > 0 {
		c.Aspect = float32(width) / float32(height)
	}
}

// ViewMatrix returns the view matrix for this camera.
func (c *Perspective) ViewMatrix() math.Mat4 {
	return math.LookAt(c.Position, c.Target, worldUp)
}

// ProjectionMatrix returns the perspective projection.
func (c *Perspective) ProjectionMatrix() math.Mat4 {
	return math.Perspective(radians(c.FOV), c.Aspect, c.Near, c.Far)
}

// Direction returns the normalized viewing direction.
func (c *Perspective) Direction() math.Vec3 {
	d := c.Target.Sub(c.Position).Normalize()
	if d == (math.Vec3{}) {
		return math.Vec3{Z: -1}
	}
	return d
}

// Orientation returns the camera's world rotation (-Z forward, +Y up).
func (c *Perspective) Orientation() math.Quat {
	f := c.Direction()
	right := f.Cross(worldUp).Normalize()
	if right == (math.Vec3{}) {
		right = math.Vec3{X: 1}
	}
	up := right.Cross(f)
	return math.QuatFromMat4(math.FromBasis(right, up, f.Scale(-1), math.Vec3{}))
}

// BackdropTransform places the unit 2x2 backdrop plane behind target, 80%
// of the far distance along the view direction, facing the camera. The plane
// is scaled to the full visible width and height at its distance from the
// camera, which overscans the view by 2x.
func (c *Perspective) BackdropTransform(target math.Vec3) (pos math.Vec3, rot math.Quat, scale math.Vec3) {
	pos = target.Add(c.Direction().Scale(c.Far * 0.8))
	height := 2 * float32(gomath.Tan(float64(radians(c.FOV))/2)) * c.Position.Distance(pos)
	width := height * c.Aspect
	return pos, c.Orientation(), math.Vec3{X: width, Y: height, Z: 1}
}

func radians(deg float32) float32 {
	return deg * gomath.Pi / 180
}
