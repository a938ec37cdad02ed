package appearance

import (
	gomath "math"
	"strings"

	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/color"
	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/scene"
)

// BackgroundKind is the branch a background value selects.
type BackgroundKind int

const (
	// BackgroundPreset is a known or unknown preset key (unknown falls
	// back to DefaultBackground).
	BackgroundPreset BackgroundKind = iota
	// BackgroundColor is a direct colour value.
	BackgroundColor
	// BackgroundImage is a URL or path to an image.
	BackgroundImage
)

func (k BackgroundKind) String() string {
	switch k {
	case BackgroundColor:
		return "color"
	case BackgroundImage:
		return "image"
	}
	return "preset"
}

// equirectTolerance is the allowed distance from a 2:1 aspect ratio.
const equirectTolerance = 0.12

// Classify selects the background branch for value. Colours are checked
// before URLs so "#fff" never reads as a path.
func Classify(value string) BackgroundKind {
	switch {
	case color.LooksLikeColor(value):
		return BackgroundColor
	case IsURLLike(value):
		return BackgroundImage
	}
	return BackgroundPreset
}

// IsURLLike reports whether s is an http(s), file or data URL, or a rooted
// path.
func IsURLLike(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") ||
		strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "file://") ||
		strings.HasPrefix(lower, "data:") ||
		strings.HasPrefix(s, "/")
}

// IsEquirect reports whether a width x height image is close enough to 2:1
// to be used as a panoramic environment.
func IsEquirect(width, height int) bool {
	if width <= 0 || height <= 0 {
		return false
	}
	ratio := float64(width) / float64(height)
	return gomath.Abs(ratio-2) < equirectTolerance
}

// BackgroundOptions is a partial update of the numeric background
// settings. Nil fields keep their current value.
type BackgroundOptions struct {
	Blur         *float32 `json:"blur,omitempty"`
	Intensity    *float32 `json:"intensity,omitempty"`
	EnvIntensity *float32 `json:"envIntensity,omitempty"`
	RotationDeg  *float32 `json:"rotation,omitempty"`
}

// BackgroundSettings are the resolved numeric background settings.
type BackgroundSettings struct {
	Blur         float32
	Intensity    float32
	EnvIntensity float32
	RotationDeg  float32
}

// DefaultBackgroundSettings returns no blur, unit intensities and no
// rotation.
func DefaultBackgroundSettings() BackgroundSettings {
	return BackgroundSettings{Intensity: 1, EnvIntensity: 1}
}

// Merge applies the non-nil fields of o.
func (s BackgroundSettings) Merge(o BackgroundOptions) BackgroundSettings {
	if o.Blur != nil {
		s.Blur = *o.Blur
	}
	if o.Intensity != nil {
		s.Intensity = *o.Intensity
	}
	if o.EnvIntensity != nil {
		s.EnvIntensity = *o.EnvIntensity
	}
	if o.RotationDeg != nil {
		s.RotationDeg = *o.RotationDeg
	}
	return s
}

// ApplyTo writes the settings to the scene. Blur is clamped to [0,1].
func (s BackgroundSettings) ApplyTo(sc *scene.Scene) {
	if sc == nil {
		return
	}
	sc.BackgroundBlurriness = min(max(s.Blur, 0), 1)
	sc.BackgroundIntensity = s.Intensity
	sc.EnvironmentIntensity = s.EnvIntensity
	sc.BackgroundRotation = s.RotationDeg * gomath.Pi / 180
}
