package scene

import "image"

// Mapping selects how a texture is sampled.
type Mapping int

const (
	// MappingUV samples with mesh texture coordinates.
	MappingUV Mapping = iota
	// MappingEquirect samples a panorama by view/reflection direction.
	MappingEquirect
)

// Texture is a decoded RGBA image plus sampling hints.
type Texture struct {
	Resource

	Name    string
	Image   *image.RGBA
	SRGB    bool
	FlipY   bool
	Mapping Mapping
}

// NewTexture wraps an RGBA image.
func NewTexture(name string, img *image.RGBA) *Texture {
	return &Texture{Name: name, Image: img, SRGB: true}
}

// Size returns the image dimensions, or 0x0 for a texture without pixels.
func (t *Texture) Size() (w, h int) {
	if t == nil || t.Image == nil {
		return 0, 0
	}
	b := t.Image.Bounds()
	return b.Dx(), b.Dy()
}

// Aspect returns width/height, or 0 when either side is zero.
func (t *Texture) Aspect() float32 {
	w, h := t.Size()
	if w == 0 || h == 0 {
		return 0
	}
	return float32(w) / float32(h)
}

// Dispose is safe on a nil texture.
func (t *Texture) Dispose() {
	if t == nil {
		return
	}
	t.Resource.Dispose()
}
