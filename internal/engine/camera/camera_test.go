package camera

import (
	gomath "math"
	"testing"

	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/pkg/math"
)

func near(a, b, eps float32) bool {
	return gomath.Abs(float64(a-b)) <= float64(eps)
}

func TestNewPerspectiveDefaults(t *testing.T) {
	c := NewPerspective(0)
	if c.Aspect != 1 {
		t.Errorf("Aspect = %v, want 1 for invalid input", c.Aspect)
	}
	if c.FOV != 35 || c.Near != 0.1 || c.Far != 100 {
		t.Errorf("got fov=%v near=%v far=%v", c.FOV, c.Near, c.Far)
	}
	c.SetSize(1600, 900)
	if !near(c.Aspect, 16.0/9, 1e-6) {
		t.Errorf("Aspect = %v after SetSize", c.Aspect)
	}
	c.SetSize(0, 900)
	if !near(c.Aspect, 16.0/9, 1e-6) {
		t.Error("SetSize with zero width changed aspect")
	}
}

func TestOrientationMatchesDirection(t *testing.T) {
	c := NewPerspective(1)
	c.Position = math.Vec3{X: 3, Y: 2, Z: 4}
	c.Target = math.Vec3{}

	forward := c.Orientation().ToMat4().TransformDirection(math.Vec3{Z: -1})
	dir := c.Direction()
	if !near(forward.X, dir.X, 1e-4) || !near(forward.Y, dir.Y, 1e-4) || !near(forward.Z, dir.Z, 1e-4) {
		t.Errorf("rotated -Z = %+v, want %+v", forward, dir)
	}
}

func TestBackdropTransform(t *testing.T) {
	c := NewPerspective(2)
	c.Position = math.Vec3{Z: 5}
	c.Target = math.Vec3{}

	pos, _, scale := c.BackdropTransform(c.Target)
	if !near(pos.Z, -80, 1e-3) {
		t.Errorf("backdrop Z = %v, want -80", pos.Z)
	}
	// Plane is 85 units from the camera; the 2x2 plane is scaled by the
	// full visible height there.
	wantH := 2 * float32(gomath.Tan(35*gomath.Pi/360)) * 85
	if !near(scale.Y, wantH, 1e-3) {
		t.Errorf("scale Y = %v, want %v", scale.Y, wantH)
	}
	if !near(scale.X, scale.Y*2, 1e-3) {
		t.Errorf("width/height = %v, want aspect 2", scale.X/scale.Y)
	}
}

func TestBackdropCoversView(t *testing.T) {
	tests := []struct {
		name   string
		aspect float32
		drag   float32
	}{
		{"wide", 16.0 / 9, 0},
		{"portrait", 9.0 / 16, 0},
		{"orbited", 16.0 / 9, 300},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewPerspective(tt.aspect)
			o := NewOrbitControls(c)
			o.DampingFactor = 0
			o.Fit(math.Vec3{Y: 0.9}, 1)
			o.HandleDrag(tt.drag, tt.drag/3)
			o.Update()

			pos, rot, scale := c.BackdropTransform(c.Target)
			basis := rot.ToMat4()
			vp := c.ProjectionMatrix().Mul(c.ViewMatrix())
			for _, corner := range [][2]float32{{-1, -1}, {-1, 1}, {1, -1}, {1, 1}} {
				local := math.Vec3{X: corner[0] * scale.X, Y: corner[1] * scale.Y}
				ndc := vp.TransformVec3(pos.Add(basis.TransformDirection(local)))
				if gomath.Abs(float64(ndc.X)) < 1 || gomath.Abs(float64(ndc.Y)) < 1 {
					t.Errorf("corner %v projects to (%v, %v), inside the view", corner, ndc.X, ndc.Y)
				}
				if ndc.Z > 1 {
					t.Errorf("corner %v beyond the far plane (z=%v)", corner, ndc.Z)
				}
			}
		})
	}
}

func TestOrbitPolarLimits(t *testing.T) {
	c := NewPerspective(1)
	o := NewOrbitControls(c)
	o.DampingFactor = 0

	// Drag far upwards: camera should stop at the minimum polar angle.
	o.HandleDrag(0, 10000)
	o.Update()
	offset := c.Position.Sub(c.Target)
	phi := float32(gomath.Acos(float64(offset.Y / offset.Length())))
	if !near(phi, gomath.Pi/4, 1e-3) {
		t.Errorf("phi = %v, want pi/4", phi)
	}

	o.HandleDrag(0, -20000)
	o.Update()
	offset = c.Position.Sub(c.Target)
	phi = float32(gomath.Acos(float64(offset.Y / offset.Length())))
	if !near(phi, gomath.Pi/1.9, 1e-3) {
		t.Errorf("phi = %v, want pi/1.9", phi)
	}
}

func TestOrbitDampingDecays(t *testing.T) {
	c := NewPerspective(1)
	o := NewOrbitControls(c)
	start := c.Position

	o.HandleDrag(100, 0)
	o.Update()
	first := c.Position.Distance(start)
	if first == 0 {
		t.Fatal("no movement after drag")
	}
	prev := c.Position
	o.Update()
	second := c.Position.Distance(prev)
	if second >= first {
		t.Errorf("damped step %v not smaller than first %v", second, first)
	}
	// Radius is preserved by pure rotation.
	if !near(c.Position.Distance(c.Target), start.Distance(DefaultTarget), 1e-3) {
		t.Error("orbit changed distance")
	}
}

func TestOrbitZoomClamp(t *testing.T) {
	c := NewPerspective(1)
	o := NewOrbitControls(c)
	o.DampingFactor = 0
	o.MinDistance = 2
	o.MaxDistance = 4

	for i := 0; i < 50; i++ {
		o.HandleZoom(1)
		o.Update()
	}
	if d := c.Position.Distance(c.Target); !near(d, 2, 1e-3) {
		t.Errorf("zoomed-in distance = %v, want 2", d)
	}
	for i := 0; i < 50; i++ {
		o.HandleZoom(-1)
		o.Update()
	}
	if d := c.Position.Distance(c.Target); !near(d, 4, 1e-3) {
		t.Errorf("zoomed-out distance = %v, want 4", d)
	}
}

func TestFit(t *testing.T) {
	tests := []struct {
		name   string
		radius float32
		wantR  float32
	}{
		{"normal", 1, 1},
		{"tiny model clamps radius", 0.1, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewPerspective(1)
			o := NewOrbitControls(c)
			center := math.Vec3{Y: 0.9}
			o.Fit(center, tt.radius)

			if !near(c.Target.Y, 0.9+tt.wantR*0.15, 1e-5) {
				t.Errorf("target Y = %v", c.Target.Y)
			}
			if d := c.Position.Distance(center); !near(d, tt.wantR*2.2, 1e-4) {
				t.Errorf("distance = %v, want %v", d, tt.wantR*2.2)
			}
			if !near(c.Far, tt.wantR*30, 1e-5) || !near(o.MaxDistance, tt.wantR*3, 1e-5) {
				t.Errorf("far=%v maxDist=%v", c.Far, o.MaxDistance)
			}
			if c.Near < 0.01 {
				t.Errorf("near = %v below 0.01", c.Near)
			}
		})
	}
}
