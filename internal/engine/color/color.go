// Package color parses and represents the colour values accepted by the
// viewer's appearance options (hex strings, 0x literals, numbers and a few
// CSS names).
package color

import (
	"fmt"
	"strconv"
	"strings"
)

// Color represents an RGBA color with float components (0.0 to 1.0).
type Color struct {
	R, G, B, A float32
}

// Predefined colors.
var (
	White = Color{1, 1, 1, 1}
	Black = Color{0, 0, 0, 1}
)

// cssNames are the only named colours accepted as a flat background.
var cssNames = map[string]uint32{
	"white":   0xffffff,
	"black":   0x000000,
	"gray":    0x808080,
	"grey":    0x808080,
	"red":     0xff0000,
	"green":   0x008000,
	"blue":    0x0000ff,
	"cyan":    0x00ffff,
	"magenta": 0xff00ff,
	"yellow":  0xffff00,
	"orange":  0xffa500,
	"purple":  0x800080,
}

// RGB creates a color from 8-bit RGB values with full alpha.
func RGB(r, g, b uint8) Color {
	return Color{
		R: float32(r) / 255.0,
		G: float32(g) / 255.0,
		B: float32(b) / 255.0,
		A: 1.0,
	}
}

// Hex creates a color from a 0xRRGGBB value.
func Hex(v uint32) Color {
	return RGB(uint8(v>>16), uint8(v>>8), uint8(v))
}

// LooksLikeColor reports whether s should be treated as a direct colour
// value rather than a URL or preset key.
func LooksLikeColor(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if strings.HasPrefix(s, "#") || strings.HasPrefix(s, "0x") {
		return true
	}
	_, ok := cssNames[s]
	return ok
}

// Parse converts a colour string into a Color. Accepted forms are
// "#rrggbb", "#rgb", "0xrrggbb", a plain decimal number and the CSS names
// listed in cssNames.
func Parse(s string) (Color, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch {
	case v == "":
		return Color{}, fmt.Errorf("empty colour")
	case strings.HasPrefix(v, "#"):
		return parseHash(v[1:])
	case strings.HasPrefix(v, "0x"):
		n, err := strconv.ParseUint(v[2:], 16, 32)
		if err != nil || n > 0xffffff {
			return Color{}, fmt.Errorf("invalid hex colour %q", s)
		}
		return Hex(uint32(n)), nil
	}
	if n, ok := cssNames[v]; ok {
		return Hex(n), nil
	}
	if n, err := strconv.ParseUint(v, 10, 32); err == nil && n <= 0xffffff {
		return Hex(uint32(n)), nil
	}
	return Color{}, fmt.Errorf("unknown colour %q", s)
}

func parseHash(h string) (Color, error) {
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return Color{}, fmt.Errorf("invalid hex colour #%s", h)
	}
	n, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("invalid hex colour #%s", h)
	}
	return Hex(uint32(n)), nil
}

// Uint32 returns the colour as 0xRRGGBB, ignoring alpha.
func (c Color) Uint32() uint32 {
	return uint32(to8(c.R))<<16 | uint32(to8(c.G))<<8 | uint32(to8(c.B))
}

// String formats the colour as #rrggbb.
func (c Color) String() string {
	return fmt.Sprintf("#%06x", c.Uint32())
}

// RGBArray returns the RGB components for uniform uploads.
func (c Color) RGBArray() [3]float32 {
	return [3]float32{c.R, c.G, c.B}
}

// Luma returns the Rec. 601 luminance.
func (c Color) Luma() float32 {
	return c.R*0.299 + c.G*0.587 + c.B*0.114
}

// Lerp interpolates each channel towards other.
func (c Color) Lerp(other Color, t float32) Color {
	return Color{
		R: c.R + (other.R-c.R)*t,
		G: c.G + (other.G-c.G)*t,
		B: c.B + (other.B-c.B)*t,
		A: c.A + (other.A-c.A)*t,
	}
}

// Mul multiplies the RGB channels component-wise.
func (c Color) Mul(other Color) Color {
	return Color{c.R * other.R, c.G * other.G, c.B * other.B, c.A}
}

func to8(f float32) uint8 {
	if f <= 0 {
		return 0
	}
	if f >= 1 {
		return 255
	}
	return uint8(f*255 + 0.5)
}
