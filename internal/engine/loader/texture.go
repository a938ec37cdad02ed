package loader

import (
	"context"
	"fmt"

	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/scene"
	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/texture"
)

// TextureLoader fetches and decodes standalone textures (backgrounds, logos).
type TextureLoader struct {
	Fetcher        Fetcher
	MaxTextureSize int
}

// Load returns an sRGB texture named after url.
func (t *TextureLoader) Load(ctx context.Context, url string) (*scene.Texture, error) {
	data, err := t.Fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	img, err := texture.Decode(data, url, t.MaxTextureSize)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", url, err)
	}
	return scene.NewTexture(url, img), nil
}
