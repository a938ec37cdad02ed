// Package viewer is the avatar viewer engine: one instance owns a scene,
// its camera and controls, the model loader, the appearance applier and
// the lip-sync player, and renders them once per Tick.
//
// Every exported method may be called from any goroutine. A single mutex
// serialises them with Tick and with the completions of model, texture
// and audio loads. Tick and Screenshot touch the GPU and must run on the
// goroutine that owns the GL context.
package viewer

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/animation"
	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/appearance"
	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/audio"
	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/camera"
	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/loader"
	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/material"
	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/model"
	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/scene"
	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/viseme"
)

var (
	// ErrNotInitialized is returned before Init.
	ErrNotInitialized = errors.New("viewer not initialized")
	// ErrDisposed is returned after Dispose.
	ErrDisposed = errors.New("viewer disposed")
)

// Renderer draws the scene. The OpenGL renderer implements it.
type Renderer interface {
	Render(sc *scene.Scene, cam *camera.Perspective)
	Capture(sc *scene.Scene, cam *camera.Perspective, width, height int) (*image.RGBA, error)
	Resize(width, height int)
}

// AudioOpener decodes narration audio. *audio.Manager implements it.
type AudioOpener interface {
	Open(data []byte) (*audio.Clip, error)
}

// Clip names used to pick the model's animations.
var (
	idleClipNames = []string{"avaturn_animation", "idle", "stand", "pose", "rest", "tpose fix"}
	eyeClipNames  = []string{"eye", "blink"}
)

const (
	eyesClip    = "EyesAnimation"
	talkingClip = "TalkingAnimation"
	talkWeight  = 0.35
)

// Viewer is one independent avatar viewer instance.
type Viewer struct {
	mu sync.Mutex

	log            *zap.Logger
	fetcher        loader.Fetcher
	source         loader.Source
	textures       appearance.TextureSource
	audio          AudioOpener
	meter          metric.Meter
	tracer         trace.Tracer
	metrics        *metrics
	maxTextureSize int
	fov            float32

	renderer      Renderer
	width, height int
	scene         *scene.Scene
	camera        *camera.Perspective
	controls      *camera.OrbitControls
	loader        *loader.ModelLoader
	applier       *appearance.Applier
	player        *viseme.Player
	wobble        *viseme.Wobble
	spans         map[uint64]trace.Span

	model         *model.Model
	mixer         *animation.Mixer
	talking       *animation.Action
	talkRemaining time.Duration
	spin          turntable

	initialized bool
	disposed    bool
	ready       bool
	currentURL  string
	applied     appearance.Appearance
	pending     *appearance.Appearance

	narration uint64
	clip      *audio.Clip
	script    []viseme.RawFrame
}

// New creates a viewer. Nothing is loaded until Init.
func New(opts ...Option) *Viewer {
	v := &Viewer{
		log:   zap.NewNop(),
		fov:   camera.DefaultFOV,
		spans: make(map[uint64]trace.Span),
	}
	for _, opt := range opts {
		opt(v)
	}

	if v.fetcher == nil {
		v.fetcher = loader.NewAssetFetcher(nil)
	}
	if v.source == nil {
		v.source = &loader.GLTFSource{Fetcher: v.fetcher}
	}
	if v.textures == nil {
		v.textures = &loader.TextureLoader{Fetcher: v.fetcher, MaxTextureSize: v.maxTextureSize}
	}
	if v.audio == nil {
		v.audio = audio.New(v.log.Named("audio"))
	}
	if v.tracer == nil {
		v.tracer = tracenoop.NewTracerProvider().Tracer("viewer")
	}
	v.metrics = newMetrics(v.meter, v.log)

	preset := appearance.PresetFor(appearance.DefaultBackground)
	v.scene = scene.New(preset.Background, preset.Ground)
	v.camera = camera.NewPerspective(1)
	v.camera.FOV = v.fov
	v.controls = camera.NewOrbitControls(v.camera)

	v.loader = loader.New(v.source, &v.mu, v.log.Named("loader"), v.hooks())
	v.applier = appearance.NewApplier(v.scene, v.textures, &v.mu, v.log.Named("appearance"))
	v.player = viseme.NewPlayer(v.log.Named("viseme"))
	v.wobble = viseme.NewWobble()
	return v
}

// Init boots the viewer against r at the given framebuffer size and
// starts loading a. Calling Init again only updates the appearance. The
// returned request is nil when no model load was needed.
func (v *Viewer) Init(r Renderer, width, height int, a appearance.Appearance) (*loader.Pending, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.disposed {
		return nil, ErrDisposed
	}
	if r != nil {
		v.renderer = r
	}
	v.resize(width, height)

	if v.initialized {
		return v.update(a), nil
	}
	v.initialized = true
	v.log.Info("viewer initialized", zap.Int("width", width), zap.Int("height", height))
	return v.load(a.Normalize()), nil
}

// UpdateAppearance applies a. The model is reloaded only when a resolves
// to a different model URL; otherwise the style is applied in place, or
// staged for the model still loading.
func (v *Viewer) UpdateAppearance(a appearance.Appearance) (*loader.Pending, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.disposed {
		return nil, ErrDisposed
	}
	if !v.initialized {
		return nil, ErrNotInitialized
	}
	return v.update(a), nil
}

func (v *Viewer) update(a appearance.Appearance) *loader.Pending {
	a = a.Normalize()

	if loading, ok := v.loader.LoadingURL(); ok {
		if loading == a.ModelURL {
			v.pending = &a
			return nil
		}
		return v.load(a)
	}
	if !v.ready || a.ModelURL != v.currentURL {
		return v.load(a)
	}
	v.applier.Apply(a)
	v.applied = a
	return nil
}

// load issues a model request for a. The current model stays on screen
// until the new one commits.
func (v *Viewer) load(a appearance.Appearance) *loader.Pending {
	v.ready = false
	v.pending = &a
	v.stopTalking()
	v.player.Stop()
	v.wobble.Stop()

	ctx, span := v.tracer.Start(context.Background(), "viewer.load",
		trace.WithAttributes(
			attribute.String("model.url", a.ModelURL),
			attribute.String("outfit", a.Outfit),
		))
	p := v.loader.Load(ctx, a.ModelURL, v.commit)
	v.spans[p.Token] = span
	return p
}

func (v *Viewer) endSpan(token uint64, err error) {
	span, ok := v.spans[token]
	if !ok {
		return
	}
	delete(v.spans, token)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// commit runs under the lock for the current request only.
func (v *Viewer) commit(req loader.Request, m *model.Model, err error) error {
	defer func() { v.endSpan(req.Token, err) }()

	if v.disposed {
		err = ErrDisposed
		return err
	}
	if err != nil {
		v.disposeModel()
		v.ready = false
		v.currentURL = ""
		return nil
	}

	v.disposeModel()
	m.ResetMorphs()
	v.model = m
	v.scene.SetModel(m.Root)
	v.applier.Attach(material.NewRegistry(m.Materials()))
	v.player.Bind(viseme.SelectMesh(m.Root))
	v.setupAnimations(m)
	v.frame()

	v.currentURL = req.URL
	v.ready = true
	if v.pending != nil {
		v.applied = *v.pending
		v.pending = nil
		v.applier.Apply(v.applied)
	}

	// Narration already playing picks up lip sync on the new mesh.
	if v.clip != nil && v.clip.Playing() {
		left := v.clip.Duration() - time.Duration(v.clip.Position()*float64(time.Second))
		v.playTalking(left, animation.NarrationTalkOptions)
		v.player.Stage(v.script)
		if v.player.Mesh() != nil {
			v.player.Start(v.clip)
		} else {
			v.wobble.Start(m.Root, left)
		}
	}
	return nil
}

func (v *Viewer) setupAnimations(m *model.Model) {
	v.mixer = animation.NewMixer()
	v.talking = nil
	if len(m.Clips) == 0 {
		return
	}

	idle := animation.FindByNames(m.Clips, idleClipNames...)
	if idle == nil {
		idle = m.Clips[0]
	}
	loop(v.mixer.ClipAction(idle))

	eyes := animation.FindByName(m.Clips, eyesClip)
	if eyes == nil {
		eyes = animation.FindByNames(m.Clips, eyeClipNames...)
	}
	if eyes != nil {
		loop(v.mixer.ClipAction(eyes))
	}

	if talk := animation.FindByName(m.Clips, talkingClip); talk != nil {
		v.talking = v.mixer.ClipAction(talk)
		v.talking.Weight = talkWeight
		v.talking.TimeScale = 1
	}
}

func loop(a *animation.Action) {
	a.SetLoop(0)
	a.Enabled = true
	a.Play()
}

// disposeModel tears down the attached model and everything derived from
// it. Safe with no model.
func (v *Viewer) disposeModel() {
	v.stopTalking()
	v.player.Bind(nil)
	v.wobble.Stop()
	v.spin = turntable{}
	v.applier.Detach()
	v.scene.SetModel(nil)
	v.model.Dispose()
	v.model = nil
	v.mixer = nil
	v.talking = nil
}

// Ready reports whether a model is attached and styled.
func (v *Viewer) Ready() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.ready
}

// ModelURL returns the URL of the attached model, or "".
func (v *Viewer) ModelURL() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.currentURL
}

// Appearance returns the last appearance applied to the attached model.
func (v *Viewer) Appearance() appearance.Appearance {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.applied
}

// SetBackgroundOptions merges o into the background settings and applies
// them to the scene.
func (v *Viewer) SetBackgroundOptions(o appearance.BackgroundOptions) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.disposed {
		return
	}
	v.applier.SetBackgroundOptions(o)
}

// Dispose releases the model, textures and audio. It blocks until
// in-flight loads have drained and is safe to call more than once.
func (v *Viewer) Dispose() {
	v.mu.Lock()
	if v.disposed {
		v.mu.Unlock()
		return
	}
	v.disposed = true
	v.narration++
	v.stopNarration()
	v.loader.Invalidate()
	v.disposeModel()
	v.applier.Close()
	v.scene.Dispose()
	v.ready = false
	v.pending = nil
	v.currentURL = ""
	v.mu.Unlock()

	v.loader.Wait()
	v.applier.Wait()

	v.mu.Lock()
	for token := range v.spans {
		v.endSpan(token, ErrDisposed)
	}
	v.mu.Unlock()
	v.log.Info("viewer disposed")
}
