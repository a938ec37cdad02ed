// Package renderer draws a scene with OpenGL 4.1.
//
// All methods must be called on the goroutine that owns the GL context.
// Scene resources may be disposed from any goroutine; their GPU objects
// are queued and deleted at the start of the next frame.
package renderer

import (
	"fmt"
	"image"
	gomath "math"
	"sort"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/camera"
	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/capture"
	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/color"
	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/framebuffer"
	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/scene"
	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/shader"
	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/pkg/math"
)

// Config holds renderer configuration.
type Config struct {
	Width  int
	Height int
}

// Lights is the fixed studio rig.
type Lights struct {
	Sky    color.Color
	Ground color.Color
	Key    color.Color
	KeyDir math.Vec3
	RimDir math.Vec3
}

// DefaultLights returns a soft hemisphere with a warm key from the front
// left and a rim from behind.
func DefaultLights() Lights {
	return Lights{
		Sky:    color.Color{R: 0.62, G: 0.62, B: 0.62, A: 1},
		Ground: color.Color{R: 0.16, G: 0.16, B: 0.16, A: 1},
		Key:    color.Color{R: 0.95, G: 0.92, B: 0.88, A: 1},
		KeyDir: math.Vec3{X: -0.5, Y: -1, Z: -0.8},
		RimDir: math.Vec3{X: 0.3, Y: -0.4, Z: 1},
	}
}

// Renderer handles all OpenGL rendering.
type Renderer struct {
	config Config
	log    *zap.Logger
	Lights Lights

	mesh       *shader.Program
	tinted     *shader.Program
	tintFailed bool
	background *shader.Program
	emptyVAO   uint32

	trash   garbage
	scratch []scene.Vertex
	items   []drawItem
}

type drawItem struct {
	mesh  *scene.Mesh
	world math.Mat4
}

// New creates a new renderer.
// IMPORTANT: Must be called AFTER OpenGL context is created!
func New(cfg Config, log *zap.Logger) (*Renderer, error) {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Renderer{config: cfg, log: log, Lights: DefaultLights()}

	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	log.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LEQUAL)
	gl.Enable(gl.CULL_FACE)
	gl.CullFace(gl.BACK)

	var err error
	if r.mesh, err = shader.NewProgram(shader.MeshVertex, shader.MeshFragment); err != nil {
		return nil, fmt.Errorf("mesh program: %w", err)
	}
	if r.background, err = shader.NewProgram(shader.BackgroundVertex, shader.BackgroundFragment); err != nil {
		r.mesh.Delete()
		return nil, fmt.Errorf("background program: %w", err)
	}
	gl.GenVertexArrays(1, &r.emptyVAO)

	r.Resize(cfg.Width, cfg.Height)
	return r, nil
}

// Close cleans up renderer resources. Scene resources still holding GPU
// handles release them into a queue that is never drained afterwards.
func (r *Renderer) Close() {
	r.log.Info("closing renderer")
	r.trash.release()
	r.mesh.Delete()
	r.tinted.Delete()
	r.background.Delete()
	if r.emptyVAO != 0 {
		gl.DeleteVertexArrays(1, &r.emptyVAO)
		r.emptyVAO = 0
	}
}

// Resize handles window resize.
func (r *Renderer) Resize(width, height int) {
	r.config.Width = width
	r.config.Height = height
	gl.Viewport(0, 0, int32(width), int32(height))
	r.log.Debug("renderer resized", zap.Int("width", width), zap.Int("height", height))
}

// Render clears to the scene background and draws every visible mesh. A
// nil scene only clears.
func (r *Renderer) Render(sc *scene.Scene, cam *camera.Perspective) {
	r.trash.release()

	if sc == nil || cam == nil {
		gl.ClearColor(0, 0, 0, 1)
		gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
		return
	}

	bg := sc.BackgroundColor
	gl.ClearColor(bg.R, bg.G, bg.B, 1)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	if sc.BackgroundTexture != nil {
		r.drawBackground(sc, cam)
	}

	sc.Root.UpdateWorld(math.Identity())
	r.collect(sc)

	var current *shader.Program
	for _, it := range r.items {
		prog := r.programFor(it.mesh.Material)
		if prog != current {
			prog.Use()
			r.setFrameUniforms(prog, sc, cam)
			current = prog
		}
		r.drawMesh(prog, sc, it)
	}
	gl.BindVertexArray(0)
	gl.DepthMask(true)
	gl.Disable(gl.BLEND)
}

// Capture renders one frame offscreen at width x height and returns it
// top row first.
func (r *Renderer) Capture(sc *scene.Scene, cam *camera.Perspective, width, height int) (*image.RGBA, error) {
	fb, err := framebuffer.New(width, height)
	if err != nil {
		return nil, err
	}
	defer fb.Destroy()

	restore := fb.Bind()
	r.Render(sc, cam)
	pixels := fb.ReadPixels()
	restore()

	w, h := fb.Size()
	return capture.FromPixels(pixels, w, h)
}

// collect gathers visible meshes: opaque before transparent, then by
// render order, stable within a group.
func (r *Renderer) collect(sc *scene.Scene) {
	r.items = r.items[:0]
	var modelWorld math.Mat4
	if m := sc.Model(); m != nil {
		modelWorld = m.World()
	}

	var walk func(n *scene.Node)
	walk = func(n *scene.Node) {
		if !n.Visible {
			return
		}
		for _, m := range n.Meshes {
			if m.Geometry == nil || m.Material == nil || !m.Material.Visible || len(m.Geometry.Indices) == 0 {
				continue
			}
			world := n.World()
			if m.Skinned && sc.Model() != nil {
				world = modelWorld
			}
			r.items = append(r.items, drawItem{mesh: m, world: world})
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(sc.Root)

	sort.SliceStable(r.items, func(i, j int) bool {
		a, b := r.items[i].mesh, r.items[j].mesh
		at, bt := isTransparent(a.Material), isTransparent(b.Material)
		if at != bt {
			return !at
		}
		return a.RenderOrder < b.RenderOrder
	})
}

func isTransparent(m *scene.Material) bool {
	return m.Transparent || m.Opacity < 1
}

func (r *Renderer) programFor(m *scene.Material) *shader.Program {
	if m.Tint == nil || r.tintFailed {
		return r.mesh
	}
	if r.tinted == nil {
		src, err := shader.PatchHairTint(shader.MeshFragment)
		if err == nil {
			r.tinted, err = shader.NewProgram(shader.MeshVertex, src)
		}
		if err != nil {
			r.log.Error("hair tint program failed, drawing untinted", zap.Error(err))
			r.tintFailed = true
			return r.mesh
		}
	}
	return r.tinted
}

func (r *Renderer) setFrameUniforms(p *shader.Program, sc *scene.Scene, cam *camera.Perspective) {
	p.SetMat4("uView", cam.ViewMatrix())
	p.SetMat4("uProjection", cam.ProjectionMatrix())
	p.SetVec3("uCameraPos", cam.Position)

	l := r.Lights
	p.SetVec3("uSkyColor", colorVec(l.Sky))
	p.SetVec3("uGroundColor", colorVec(l.Ground))
	p.SetVec3("uKeyColor", colorVec(l.Key))
	p.SetVec3("uKeyDir", l.KeyDir)
	p.SetVec3("uRimDir", l.RimDir)
	p.SetVec3("uRimColor", colorVec(sc.RimColor).Scale(0.6))

	p.SetInt("map", 0)
	p.SetInt("envMap", 1)
	env := r.texture(sc.Environment)
	p.SetBool("hasEnv", env != 0)
	if env != 0 {
		gl.ActiveTexture(gl.TEXTURE1)
		gl.BindTexture(gl.TEXTURE_2D, env)
		gl.ActiveTexture(gl.TEXTURE0)
	}
	p.SetFloat("envRotation", sc.BackgroundRotation)
}

func (r *Renderer) drawMesh(p *shader.Program, sc *scene.Scene, it drawItem) {
	m, mat := it.mesh, it.mesh.Material
	h := r.buffers(m.Geometry, m.HasMorphs())
	if h == nil {
		return
	}
	if m.HasMorphs() {
		r.updateMorphs(h, m)
	}

	p.SetMat4("uModel", it.world)
	p.SetVec3("diffuse", colorVec(mat.Color))
	p.SetFloat("opacity", mat.Opacity)
	p.SetFloat("metalness", mat.Metalness)
	p.SetFloat("roughness", mat.Roughness)
	p.SetBool("unlit", mat.Unlit)
	p.SetFloat("envIntensity", sc.EnvironmentIntensity*mat.EnvIntensity)

	tex := r.texture(mat.Map)
	p.SetBool("hasMap", tex != 0)
	if tex != 0 {
		gl.ActiveTexture(gl.TEXTURE0)
		gl.BindTexture(gl.TEXTURE_2D, tex)
		p.SetBool("flipY", mat.Map.FlipY)
		p.SetBool("mapSRGB", mat.Map.SRGB)
	}

	if t := mat.Tint; t != nil {
		p.SetVec3(shader.UniformHairTint, colorVec(t.Color))
		p.SetFloat(shader.UniformHairStrength, t.Strength)
		p.SetFloat(shader.UniformHairLift, t.Lift)
	}

	setEnabled(gl.DEPTH_TEST, mat.DepthTest)
	gl.DepthMask(mat.DepthWrite)
	setEnabled(gl.CULL_FACE, !mat.DoubleSided)
	if isTransparent(mat) {
		gl.Enable(gl.BLEND)
		gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	} else {
		gl.Disable(gl.BLEND)
	}

	gl.BindVertexArray(h.vao)
	gl.DrawElements(gl.TRIANGLES, h.count, gl.UNSIGNED_INT, gl.PtrOffset(0))
}

func (r *Renderer) drawBackground(sc *scene.Scene, cam *camera.Perspective) {
	tex := r.texture(sc.BackgroundTexture)
	if tex == 0 {
		return
	}
	p := r.background
	p.Use()

	f := cam.Direction()
	right := f.Cross(math.Vec3{Y: 1}).Normalize()
	if right == (math.Vec3{}) {
		right = math.Vec3{X: 1}
	}
	p.SetVec3("uCameraForward", f)
	p.SetVec3("uCameraRight", right)
	p.SetVec3("uCameraUp", right.Cross(f))
	p.SetFloat("uTanHalfFov", float32(gomath.Tan(float64(cam.FOV)*gomath.Pi/360)))
	p.SetFloat("uAspect", cam.Aspect)
	p.SetFloat("blurriness", sc.BackgroundBlurriness)
	p.SetFloat("intensity", sc.BackgroundIntensity)
	p.SetFloat("rotation", sc.BackgroundRotation)
	p.SetInt("panorama", 0)

	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.Disable(gl.DEPTH_TEST)
	gl.DepthMask(false)
	gl.BindVertexArray(r.emptyVAO)
	gl.DrawArrays(gl.TRIANGLES, 0, 3)
	gl.DepthMask(true)
	gl.Enable(gl.DEPTH_TEST)
}

func setEnabled(capability uint32, on bool) {
	if on {
		gl.Enable(capability)
	} else {
		gl.Disable(capability)
	}
}

func colorVec(c color.Color) math.Vec3 {
	return math.Vec3{X: c.R, Y: c.G, Z: c.B}
}
