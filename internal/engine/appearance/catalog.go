package appearance

import (
	"strings"

	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/color"
)

// DefaultOutfit is used for empty or unknown outfit keys.
const DefaultOutfit = "predeterminado"

// DefaultBackground is used for unknown background keys.
const DefaultBackground = "oficina"

// Palette holds per-slot outfit colours. Nil slots are left untouched.
type Palette struct {
	Shirt       *color.Color
	Pants       *color.Color
	Shoes       *color.Color
	Accessories *color.Color
	Hair        *color.Color
}

// Outfit describes one wardrobe preset.
type Outfit struct {
	Key      string
	ModelURL string
	Palette  Palette
	// ApplyColors enables the clothing slots of the palette. The hair
	// colour is always available as a fallback.
	ApplyColors bool
}

// Preset is a named flat background with its ground tint.
type Preset struct {
	Background color.Color
	Ground     color.Color
	Rim        color.Color
}

func hex(v uint32) *color.Color {
	c := color.Hex(v)
	return &c
}

var outfits = map[string]Outfit{
	"predeterminado": {
		Key:      "predeterminado",
		ModelURL: "models/Avatar.glb",
		Palette: Palette{
			Shirt:       hex(0xf6f9ff),
			Pants:       hex(0xc8b59b),
			Shoes:       hex(0x2f2f35),
			Accessories: hex(0x274c77),
			Hair:        hex(0x452c25),
		},
		ApplyColors: true,
	},
	"traje": {
		Key:      "traje",
		ModelURL: "models/traje.glb",
		Palette:  Palette{Hair: hex(0x33221d)},
	},
	"vestido": {
		Key:      "vestido",
		ModelURL: "models/vestido.glb",
		Palette:  Palette{Hair: hex(0x503129)},
	},
}

var outfitAliases = map[string]string{
	"corporativo": "predeterminado",
	"ejecutivo":   "traje",
	"casual":      "vestido",
}

var presets = map[string]Preset{
	"oficina":    {Background: color.Hex(0xe9f6f1), Ground: color.Hex(0xffffff), Rim: color.Hex(0xd6ede4)},
	"moderno":    {Background: color.Hex(0xe4f1ed), Ground: color.Hex(0xd8e7e2), Rim: color.Hex(0xc7ddd6)},
	"naturaleza": {Background: color.Hex(0xe9f7ef), Ground: color.Hex(0xd5ecda), Rim: color.Hex(0xc2dfca)},
}

// NormalizeOutfit lower-cases key and resolves aliases. Unknown and empty
// keys map to DefaultOutfit.
func NormalizeOutfit(key string) string {
	k := strings.ToLower(strings.TrimSpace(key))
	if _, ok := outfits[k]; ok {
		return k
	}
	if alias, ok := outfitAliases[k]; ok {
		return alias
	}
	return DefaultOutfit
}

// OutfitFor returns the preset for key after normalization.
func OutfitFor(key string) Outfit {
	return outfits[NormalizeOutfit(key)]
}

// ModelURLFor resolves an outfit key to its model URL.
func ModelURLFor(key string) string {
	return OutfitFor(key).ModelURL
}

// PresetFor returns the background preset named key, falling back to
// DefaultBackground.
func PresetFor(key string) Preset {
	if p, ok := presets[key]; ok {
		return p
	}
	return presets[DefaultBackground]
}

// IsPreset reports whether key names a background preset.
func IsPreset(key string) bool {
	_, ok := presets[key]
	return ok
}
