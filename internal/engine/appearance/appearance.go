// Package appearance restyles a loaded avatar: background, outfit palette,
// logo decal and hair tint. None of it reloads the model.
package appearance

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/color"
)

// Appearance is the complete requested style of the avatar. ModelURL
// overrides the outfit's model when set.
type Appearance struct {
	Outfit     string    `json:"outfit"`
	ModelURL   string    `json:"modelUrl,omitempty"`
	Background string    `json:"background"`
	LogoURL    string    `json:"logoUrl,omitempty"`
	HairColor  HairColor `json:"hairColor"`
}

// Normalize resolves the outfit key and fills ModelURL from it.
func (a Appearance) Normalize() Appearance {
	a.Outfit = NormalizeOutfit(a.Outfit)
	if a.ModelURL == "" {
		a.ModelURL = ModelURLFor(a.Outfit)
	}
	return a
}

type hairMode uint8

const (
	hairUnset hairMode = iota
	hairReset
	hairSet
)

// HairColor is a tri-state hair request. The zero value leaves hair as
// it is (or uses the outfit default); Reset removes any tint; Set tints.
type HairColor struct {
	mode  hairMode
	color color.Color
}

// HairUnset leaves hair to the outfit palette.
func HairUnset() HairColor { return HairColor{} }

// HairReset restores the original hair material.
func HairReset() HairColor { return HairColor{mode: hairReset} }

// Hair tints toward c.
func Hair(c color.Color) HairColor { return HairColor{mode: hairSet, color: c} }

// IsUnset reports whether no hair choice was made.
func (h HairColor) IsUnset() bool { return h.mode == hairUnset }

// IsReset reports an explicit reset.
func (h HairColor) IsReset() bool { return h.mode == hairReset }

// Color returns the requested tint, if any.
func (h HairColor) Color() (color.Color, bool) {
	return h.color, h.mode == hairSet
}

func (h HairColor) String() string {
	switch h.mode {
	case hairReset:
		return "reset"
	case hairSet:
		return h.color.String()
	}
	return "unset"
}

// ParseHairColor reads a configuration value: "" is unset, "null",
// "none", "default" and "predeterminado" reset, anything else is a colour.
func ParseHairColor(s string) (HairColor, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "":
		return HairUnset(), nil
	case "null", "none", "default", "predeterminado":
		return HairReset(), nil
	}
	c, err := color.Parse(v)
	if err != nil {
		return HairColor{}, fmt.Errorf("hair color: %w", err)
	}
	return Hair(c), nil
}

// MarshalJSON writes the hex string for a colour and null otherwise.
func (h HairColor) MarshalJSON() ([]byte, error) {
	if c, ok := h.Color(); ok {
		return json.Marshal(c.String())
	}
	return []byte("null"), nil
}

// UnmarshalJSON maps null to reset, strings to colours and numbers to
// 0xRRGGBB values. An absent field keeps the zero (unset) value.
func (h *HairColor) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*h = HairReset()
		return nil
	}
	var n uint32
	if err := json.Unmarshal(data, &n); err == nil {
		*h = Hair(color.Hex(n))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("hair color: %w", err)
	}
	parsed, err := ParseHairColor(s)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
