package shader

import (
	"errors"
	"strings"
)

// TintAnchor is the fragment statement the hair tint patch replaces.
const TintAnchor = "vec4 diffuseColor = vec4( diffuse, opacity );"

// Hair tint uniform names.
const (
	UniformHairTint     = "uHairTint"
	UniformHairStrength = "uHairStrength"
	UniformHairLift     = "uHairLift"
)

// ErrNoTintAnchor is returned when a fragment source has no diffuse
// statement to patch.
var ErrNoTintAnchor = errors.New("shader: fragment source has no diffuse anchor")

const tintUniforms = `
uniform vec3  uHairTint;
uniform float uHairStrength;
uniform float uHairLift;
`

const tintBody = `
	vec3 tintMix   = mix(vec3(1.0), uHairTint, uHairStrength);
	vec3 baseTint  = diffuse * tintMix;

	float luma     = dot(baseTint, vec3(0.299, 0.587, 0.114));
	vec3 lightened = mix(baseTint, vec3(1.0), uHairLift * (1.0 - luma));

	vec4 diffuseColor = vec4(lightened, opacity);
`

// PatchHairTint returns src with the hair colour grade installed: the tint
// uniforms are declared after the #version line and the diffuse anchor is
// replaced by a tint-mix plus luminance-aware lift. Patching an already
// patched source returns it unchanged.
func PatchHairTint(src string) (string, error) {
	if IsHairTinted(src) {
		return src, nil
	}
	if !strings.Contains(src, TintAnchor) {
		return "", ErrNoTintAnchor
	}

	out := strings.Replace(src, TintAnchor, tintBody, 1)

	header, rest := "", out
	if strings.HasPrefix(strings.TrimSpace(out), "#version") {
		trimmed := strings.TrimLeft(out, " \t\r\n")
		if i := strings.IndexByte(trimmed, '\n'); i >= 0 {
			header, rest = trimmed[:i+1], trimmed[i+1:]
		} else {
			header, rest = trimmed+"\n", ""
		}
	}
	return header + tintUniforms + rest, nil
}

// IsHairTinted reports whether src already carries the patch.
func IsHairTinted(src string) bool {
	return strings.Contains(src, "uniform vec3  "+UniformHairTint+";")
}
