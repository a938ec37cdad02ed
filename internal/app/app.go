// Package app implements the desktop host: the window, the frame loop and
// the wiring between configuration, backend, telemetry and the viewer.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/backend"
	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/config"
	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/appearance"
	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/audio"
	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/capture"
	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/input"
	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/loader"
	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/renderer"
	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/window"
	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/telemetry"
	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/viewer"
)

const (
	title             = "Avatar Viewer"
	turntableDuration = 3 * time.Second
	announceTimeout   = 2 * time.Minute
	shutdownTimeout   = 5 * time.Second
)

// App is the running viewer host.
type App struct {
	cfg *config.Config
	log *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	running   bool
	window    *window.Window
	renderer  *renderer.Renderer
	input     *input.Input
	audio     *audio.Manager
	headless  *audio.Headless
	fetcher   *loader.AssetFetcher
	telemetry *telemetry.Telemetry
	backend   *backend.Client
	viewer    *viewer.Viewer
	saver     *capture.Saver

	language string
	voice    string
	turn     int
}

// New creates the window, GL renderer, audio output and viewer, and starts
// loading the configured avatar.
func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	a := &App{
		cfg:      cfg,
		log:      log,
		language: cfg.Backend.Language,
		voice:    cfg.Backend.Voice,
		saver:    capture.NewSaver("screenshots", "avatar"),
	}
	a.ctx, a.cancel = context.WithCancel(context.Background())

	log.Info("initializing viewer",
		zap.Int("width", cfg.Graphics.Width),
		zap.Int("height", cfg.Graphics.Height),
	)

	var err error
	a.telemetry, err = telemetry.Setup(a.ctx, telemetry.Config{
		ServiceName:  cfg.Telemetry.ServiceName,
		Instance:     instanceID(cfg.Backend),
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure: cfg.Telemetry.OTLPInsecure,
		TraceStdout:  cfg.Telemetry.TraceStdout,
	}, log.Named("telemetry"))
	if err != nil {
		a.cancel()
		return nil, fmt.Errorf("failed to set up telemetry: %w", err)
	}
	if bind := cfg.Telemetry.PrometheusBind; bind != "" {
		if err := a.telemetry.Serve(bind); err != nil {
			log.Warn("metrics endpoint unavailable", zap.String("bind", bind), zap.Error(err))
		}
	}

	// Create window (this also creates OpenGL context)
	a.window, err = window.New(window.Config{
		Title:      title,
		Width:      cfg.Graphics.Width,
		Height:     cfg.Graphics.Height,
		Fullscreen: cfg.Graphics.Fullscreen,
		VSync:      cfg.Graphics.VSync,
	}, log.Named("window"))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	// Create renderer (AFTER window, since OpenGL context must exist)
	width, height := a.window.DrawableSize()
	a.renderer, err = renderer.New(renderer.Config{Width: width, Height: height}, log.Named("renderer"))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}

	a.input = input.New()
	a.audio = a.openAudio()

	a.fetcher = loader.NewAssetFetcher(nil)
	if base := cfg.Viewer.AssetBase; base != "" {
		if err := a.fetcher.AddRoot(base); err != nil {
			log.Warn("asset root unavailable", zap.Error(err))
		}
	}

	if cfg.Backend.BaseURL != "" {
		a.backend = backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout, log.Named("backend"))
		a.backend.APIKey = cfg.Backend.APIKey
	}

	a.viewer = viewer.New(
		viewer.WithLogger(log.Named("viewer")),
		viewer.WithFetcher(a.fetcher),
		viewer.WithAudio(a.audio),
		viewer.WithMeter(a.telemetry.Meter("avatar-viewer")),
		viewer.WithTracer(a.telemetry.Tracer("avatar-viewer")),
		viewer.WithMaxTextureSize(cfg.Graphics.MaxTextureSize),
		viewer.WithFieldOfView(cfg.Viewer.FieldOfView),
	)

	look, err := a.resolveAppearance()
	if err != nil {
		a.Close()
		return nil, err
	}
	if _, err := a.viewer.Init(a.renderer, width, height, look); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to start viewer: %w", err)
	}
	o := cfg.Viewer.BackgroundOptions
	a.viewer.SetBackgroundOptions(appearance.BackgroundOptions{
		Blur:         &o.Blur,
		Intensity:    &o.Intensity,
		EnvIntensity: &o.EnvIntensity,
		RotationDeg:  &o.RotationDeg,
	})

	log.Info("viewer initialized successfully", zap.String("model", look.ModelURL))
	return a, nil
}

func instanceID(b config.BackendConfig) string {
	if b.Empresa == "" {
		return ""
	}
	return b.Empresa + "/" + b.Sede
}

// openAudio prefers the sound device and falls back to a headless output
// so narration clocks still advance.
func (a *App) openAudio() *audio.Manager {
	m := audio.New(a.log.Named("audio"))
	if err := m.Init(); err != nil {
		a.log.Warn("no audio device, narration will be silent", zap.Error(err))
		a.headless = audio.NewHeadless(audio.DefaultSampleRate)
		m = audio.NewWithOutput(a.headless, audio.DefaultSampleRate, a.log.Named("audio"))
	}
	m.SetMasterVolume(float64(a.cfg.Audio.MasterVolume))
	m.SetMuted(a.cfg.Audio.Muted)
	return m
}

// resolveAppearance reads the initial appearance from the backend when one
// is configured, falling back to the local configuration.
func (a *App) resolveAppearance() (appearance.Appearance, error) {
	vc := a.cfg.Viewer
	hair, err := appearance.ParseHairColor(vc.HairColor)
	if err != nil {
		return appearance.Appearance{}, fmt.Errorf("invalid hair_color: %w", err)
	}
	local := appearance.Appearance{
		Outfit:     vc.Outfit,
		ModelURL:   vc.ModelURL,
		Background: vc.Background,
		LogoURL:    vc.LogoURL,
		HairColor:  hair,
	}

	b := a.cfg.Backend
	if a.backend == nil || b.Empresa == "" || b.Sede == "" {
		return local, nil
	}
	ctx, cancel := context.WithTimeout(a.ctx, b.Timeout)
	defer cancel()
	remote, err := a.backend.ResolveConfig(ctx, b.Empresa, b.Sede)
	if err != nil {
		a.log.Warn("backend configuration unavailable, using local appearance", zap.Error(err))
		return local, nil
	}
	if remote.Language != "" {
		a.language = remote.Language
	}
	if remote.Voice != "" {
		a.voice = remote.Voice
	}
	return remote.Appearance, nil
}

// Run starts the main loop.
func (a *App) Run() error {
	a.running = true

	lastTime := time.Now()
	frameCount := 0
	fpsTimer := time.Now()
	var frameBudget time.Duration
	if limit := a.cfg.Graphics.FPSLimit; limit > 0 {
		frameBudget = time.Second / time.Duration(limit)
	}

	a.log.Info("starting render loop")

	for a.running {
		now := time.Now()
		dt := now.Sub(lastTime)
		lastTime = now

		// 1. Process input
		if a.input.Update() {
			a.running = false
			break
		}
		a.handleEvents()
		if !a.running {
			break
		}

		// 2. Advance and draw
		a.viewer.Tick(dt)

		// 3. Present
		a.window.SwapBuffers()

		frameCount++
		if time.Since(fpsTimer) >= time.Second {
			a.window.SetTitle(fmt.Sprintf("%s - %d FPS", title, frameCount))
			a.log.Debug("fps", zap.Int("count", frameCount), zap.Duration("dt", dt))
			frameCount = 0
			fpsTimer = time.Now()
		}

		if frameBudget > 0 {
			if spent := time.Since(now); spent < frameBudget {
				time.Sleep(frameBudget - spent)
			}
		}
	}
	return nil
}

func (a *App) handleEvents() {
	for _, event := range a.input.Events() {
		switch event.Type {
		case input.EventWindowResize:
			a.viewer.Resize(a.window.DrawableSize())
		case input.EventRotate:
			a.viewer.Orbit(event.DX, event.DY)
		case input.EventPan:
			a.viewer.Pan(event.DX, event.DY)
		case input.EventZoom:
			a.viewer.Zoom(event.DY)
		case input.EventKeyDown:
			a.handleKey(event.Key)
		}
	}
}

func (a *App) handleKey(key sdl.Scancode) {
	switch key {
	case sdl.SCANCODE_ESCAPE:
		a.running = false
	case sdl.SCANCODE_F12:
		a.screenshot()
	case sdl.SCANCODE_F:
		a.viewer.Frame()
	case sdl.SCANCODE_T:
		a.viewer.Turntable(turntableDuration)
	case sdl.SCANCODE_N:
		a.announce()
	case sdl.SCANCODE_SPACE:
		a.viewer.StopNarration()
	}
}

func (a *App) screenshot() {
	data, err := a.viewer.Screenshot()
	if err != nil {
		a.log.Error("screenshot failed", zap.Error(err))
		return
	}
	path, err := a.saver.Save(data)
	if err != nil {
		a.log.Error("saving screenshot failed", zap.Error(err))
		return
	}
	a.log.Info("screenshot saved", zap.String("path", path))
}

// announce requests the next demo turn from the backend and narrates it.
func (a *App) announce() {
	if a.backend == nil {
		a.log.Warn("announce needs backend.base_url")
		return
	}
	a.turn++
	req := backend.AnnounceRequest{
		Empresa: a.cfg.Backend.Empresa,
		Sede:    a.cfg.Backend.Sede,
		Modulo:  "1",
		Turno:   fmt.Sprintf("A%03d", a.turn),
	}
	language, voice := a.language, a.voice

	go func() {
		ctx, cancel := context.WithTimeout(a.ctx, announceTimeout)
		defer cancel()

		ann, err := a.backend.Announce(ctx, req, language, voice)
		if err != nil {
			a.log.Warn("announce failed", zap.String("turno", req.Turno), zap.Error(err))
			return
		}
		a.log.Info("announcing", zap.String("turno", req.Turno), zap.String("texto", ann.Texto))
		audioURL := a.backend.Assets.Resolve(ann.AudioURL)
		err = a.viewer.PlayNarration(ctx, audioURL, ann.Visemas)
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, viewer.ErrDisposed) {
			a.log.Warn("narration failed", zap.String("turno", req.Turno), zap.Error(err))
		}
	}()
}

// Close releases everything New created, in reverse order.
func (a *App) Close() {
	a.log.Info("closing viewer")
	a.cancel()

	if a.viewer != nil {
		a.viewer.Dispose()
	}
	if a.audio != nil {
		a.audio.Close()
	}
	if a.headless != nil {
		a.headless.Close()
	}
	if a.fetcher != nil {
		a.fetcher.Close()
	}
	if a.renderer != nil {
		a.renderer.Close()
	}
	if a.window != nil {
		a.window.Close()
	}
	if a.telemetry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.telemetry.Shutdown(ctx); err != nil {
			a.log.Warn("telemetry shutdown", zap.Error(err))
		}
	}
}
