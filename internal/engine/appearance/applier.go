package appearance

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/color"
	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/material"
	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/scene"
)

// TextureSource loads a texture from a URL.
type TextureSource interface {
	Load(ctx context.Context, url string) (*scene.Texture, error)
}

// Applier applies appearance changes to a scene and the attached model's
// materials.
//
// Every method except Wait must be called with the shared lock held.
// Image loads run on goroutines and re-acquire the lock to commit; a load
// overtaken by a newer request of the same kind is disposed on arrival.
type Applier struct {
	lock     sync.Locker
	textures TextureSource
	log      *zap.Logger

	scene     *scene.Scene
	materials *material.Registry
	hair      *material.HairTinter
	settings  BackgroundSettings

	bgToken   uint64
	logoToken uint64
	logo      *scene.Texture

	// Last values handed to ApplyBackground and ApplyLogo. Apply skips
	// both when they are unchanged.
	background string
	bgSet      bool
	logoURL    string
	logoSet    bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewApplier creates an applier for sc.
func NewApplier(sc *scene.Scene, textures TextureSource, lock sync.Locker, log *zap.Logger) *Applier {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Applier{
		lock:     lock,
		textures: textures,
		log:      log,
		scene:    sc,
		settings: DefaultBackgroundSettings(),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Attach points the applier at a newly loaded model's materials. Hair
// originals are cached by the tinter at this point.
func (a *Applier) Attach(reg *material.Registry) {
	a.logoToken++
	a.logo = nil
	a.logoSet = false
	a.materials = reg
	a.hair = material.NewHairTinter(reg)
}

// Detach forgets the model's materials. Their textures are owned by the
// model and disposed with it.
func (a *Applier) Detach() {
	a.logoToken++
	a.logo = nil
	a.logoSet = false
	a.materials = nil
	a.hair = nil
}

// Settings returns the current numeric background settings.
func (a *Applier) Settings() BackgroundSettings {
	return a.settings
}

// Apply applies a full appearance: background, outfit palette, logo and
// hair, in that order. A background or logo equal to the one already
// applied is left alone.
func (a *Applier) Apply(app Appearance) {
	app = app.Normalize()

	if !a.bgSet || app.Background != a.background {
		a.ApplyBackground(app.Background)
	}
	fallbackHair := a.ApplyOutfit(app.Outfit)
	if !a.logoSet || app.LogoURL != a.logoURL {
		a.ApplyLogo(app.LogoURL)
	}

	switch c, ok := app.HairColor.Color(); {
	case app.HairColor.IsReset():
		a.hair.Reset()
	case ok:
		a.hair.Apply(c, material.DefaultTintStrength, material.DefaultTintLift)
	case fallbackHair != nil:
		a.hair.Apply(*fallbackHair, material.DefaultTintStrength, material.DefaultTintLift)
	}
}

// ApplyBackground selects one of three branches from value: a flat colour,
// an image (panorama or backdrop photo, loaded asynchronously) or a
// preset key.
func (a *Applier) ApplyBackground(value string) {
	sc := a.scene
	if sc == nil {
		return
	}
	a.bgToken++
	a.clearBackground()
	a.background, a.bgSet = value, true

	preset := PresetFor(value)
	a.setGround(preset.Ground)
	sc.RimColor = preset.Rim

	switch Classify(value) {
	case BackgroundColor:
		c, err := color.Parse(value)
		if err != nil {
			a.log.Debug("unparseable background colour", zap.String("value", value), zap.Error(err))
			c = preset.Background
		}
		sc.BackgroundColor = c
	case BackgroundImage:
		// Keep the preset colour visible until the image arrives.
		sc.BackgroundColor = preset.Background
		a.loadBackground(a.bgToken, value, preset)
	default:
		sc.BackgroundColor = preset.Background
	}
	a.settings.ApplyTo(sc)
}

func (a *Applier) loadBackground(token uint64, url string, preset Preset) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		tex, err := a.textures.Load(a.ctx, url)

		a.lock.Lock()
		defer a.lock.Unlock()

		if token != a.bgToken {
			tex.Dispose()
			return
		}
		sc := a.scene
		if err != nil {
			a.log.Warn("background image failed, using preset colour", zap.String("url", url), zap.Error(err))
			a.bgSet = false
			sc.BackgroundColor = preset.Background
			sc.Environment = nil
			a.settings.ApplyTo(sc)
			return
		}

		w, h := tex.Size()
		if IsEquirect(w, h) {
			tex.Mapping = scene.MappingEquirect
			sc.BackgroundTexture = tex
			sc.Environment = tex
		} else {
			sc.BackgroundColor = preset.Background
			sc.SetBackdrop(tex)
		}
		a.settings.ApplyTo(sc)
		a.log.Debug("background image applied", zap.String("url", url), zap.Int("width", w), zap.Int("height", h))
	}()
}

func (a *Applier) clearBackground() {
	sc := a.scene
	if sc.Environment != nil {
		sc.Environment.Dispose()
	}
	if sc.BackgroundTexture != nil {
		sc.BackgroundTexture.Dispose()
	}
	sc.Environment = nil
	sc.BackgroundTexture = nil
	sc.ClearBackdrop()
}

func (a *Applier) setGround(c color.Color) {
	g := a.scene.Ground
	if g == nil {
		return
	}
	g.Visible = true
	for _, m := range g.Meshes {
		if m.Material != nil {
			m.Material.Color = c
			m.Material.Touch()
		}
	}
}

// SetBackgroundOptions merges o into the current settings and applies them.
func (a *Applier) SetBackgroundOptions(o BackgroundOptions) {
	a.settings = a.settings.Merge(o)
	a.settings.ApplyTo(a.scene)
}

// ApplyOutfit recolours clothing slots when the outfit enables it and
// returns the outfit's hair colour, if it has one.
func (a *Applier) ApplyOutfit(key string) *color.Color {
	outfit := OutfitFor(key)
	if outfit.ApplyColors && a.materials != nil {
		p := outfit.Palette
		setColor(a.materials.Find(material.ShirtHints...), p.Shirt)
		setColor(a.materials.Find(material.PantsHints...), p.Pants)
		setColor(a.materials.Find(material.ShoesHints...), p.Shoes)
		setColor(a.materials.Find(material.AccessoryHints...), p.Accessories)
	}
	return outfit.Palette.Hair
}

func setColor(m *scene.Material, c *color.Color) {
	if m == nil || c == nil {
		return
	}
	m.Color = *c
	m.Touch()
}

// ApplyLogo swaps the logo decal texture. The previous texture is disposed
// first; an empty url hides the decal.
func (a *Applier) ApplyLogo(url string) {
	mat := a.materials.Find(material.LogoHints...)
	if mat == nil {
		return
	}
	a.logoToken++
	a.logoURL, a.logoSet = url, true
	if a.logo != nil {
		if mat.Map == a.logo {
			mat.Map = nil
		}
		a.logo.Dispose()
		a.logo = nil
	}

	if url == "" {
		mat.Map = nil
		mat.Visible = false
		mat.Touch()
		return
	}
	mat.Visible = true

	token := a.logoToken
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		tex, err := a.textures.Load(a.ctx, url)

		a.lock.Lock()
		defer a.lock.Unlock()

		if token != a.logoToken {
			tex.Dispose()
			return
		}
		if err != nil {
			a.log.Warn("logo failed to load", zap.String("url", url), zap.Error(err))
			a.logoSet = false
			return
		}
		tex.FlipY = false
		tex.SRGB = true
		mat.Map = tex
		mat.Touch()
		a.logo = tex
	}()
}

// Close invalidates in-flight loads and disposes the background and logo
// textures.
func (a *Applier) Close() {
	a.cancel()
	a.bgToken++
	a.logoToken++
	a.bgSet, a.logoSet = false, false
	if a.scene != nil {
		a.clearBackground()
	}
	a.logo.Dispose()
	a.logo = nil
}

// Wait blocks until all image loads have finished. It must be called
// without the lock held.
func (a *Applier) Wait() {
	a.wg.Wait()
}
