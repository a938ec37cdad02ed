package viewer

import (
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/appearance"
	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/loader"
)

// Option configures a Viewer.
type Option func(*Viewer)

// WithLogger sets the logger. Children are named per component.
func WithLogger(log *zap.Logger) Option {
	return func(v *Viewer) {
		if log != nil {
			v.log = log
		}
	}
}

// WithFetcher sets the fetcher used for models, textures and narration
// audio unless a more specific source is given.
func WithFetcher(f loader.Fetcher) Option {
	return func(v *Viewer) { v.fetcher = f }
}

// WithModelSource replaces the glTF model source.
func WithModelSource(s loader.Source) Option {
	return func(v *Viewer) { v.source = s }
}

// WithTextureSource replaces the background and logo image source.
func WithTextureSource(s appearance.TextureSource) Option {
	return func(v *Viewer) { v.textures = s }
}

// WithAudio sets the narration audio opener.
func WithAudio(a AudioOpener) Option {
	return func(v *Viewer) { v.audio = a }
}

// WithMeter records viewer metrics on m.
func WithMeter(m metric.Meter) Option {
	return func(v *Viewer) { v.meter = m }
}

// WithTracer records load and narration spans on t.
func WithTracer(t trace.Tracer) Option {
	return func(v *Viewer) { v.tracer = t }
}

// WithMaxTextureSize downscales decoded images larger than size.
func WithMaxTextureSize(size int) Option {
	return func(v *Viewer) { v.maxTextureSize = size }
}

// WithFieldOfView sets the camera's vertical field of view in degrees.
func WithFieldOfView(deg float32) Option {
	return func(v *Viewer) {
		if deg > 0 {
			v.fov = deg
		}
	}
}
