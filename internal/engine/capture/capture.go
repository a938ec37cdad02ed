// Package capture turns read-back framebuffer pixels into PNG screenshots.
package capture

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"
)

// FromPixels builds an image from bottom-up RGBA rows as returned by
// glReadPixels.
func FromPixels(pixels []byte, width, height int) (*image.RGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid capture size %dx%d", width, height)
	}
	if len(pixels) != width*height*4 {
		return nil, fmt.Errorf("pixel data size mismatch: expected %d, got %d", width*height*4, len(pixels))
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	rowSize := width * 4
	for y := 0; y < height; y++ {
		src := (height - 1 - y) * rowSize
		dst := y * img.Stride
		copy(img.Pix[dst:dst+rowSize], pixels[src:src+rowSize])
	}
	return img, nil
}

// EncodePNG returns img as PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// Saver writes screenshots to a directory with timestamped names.
type Saver struct {
	Dir    string
	Prefix string

	now func() time.Time
}

// NewSaver creates a saver writing prefix_<timestamp>.png files into dir.
func NewSaver(dir, prefix string) *Saver {
	return &Saver{Dir: dir, Prefix: prefix, now: time.Now}
}

// Filename returns the path the next screenshot would be written to.
func (s *Saver) Filename() string {
	name := fmt.Sprintf("%s_%s.png", s.Prefix, s.now().Format("2006-01-02_15-04-05"))
	if s.Dir != "" {
		name = filepath.Join(s.Dir, name)
	}
	return name
}

// Save writes encoded PNG data and returns the file path.
func (s *Saver) Save(data []byte) (string, error) {
	if s.Dir != "" {
		if err := os.MkdirAll(s.Dir, 0755); err != nil {
			return "", fmt.Errorf("creating output dir: %w", err)
		}
	}
	name := s.Filename()
	if err := os.WriteFile(name, data, 0644); err != nil {
		return "", fmt.Errorf("writing screenshot: %w", err)
	}
	return name, nil
}
