// Package texture decodes image bytes fetched for backgrounds, logos and
// model materials into RGBA pixels ready for upload.
package texture

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"path"
	"strings"

	_ "golang.org/x/image/bmp"  // register BMP decoder
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP decoder
)

// Decode decodes data into RGBA. name is only used to pick the TGA decoder
// by extension; every other format is sniffed from its header. Images whose
// longest side exceeds maxSize are downscaled (maxSize <= 0 disables it).
func Decode(data []byte, name string, maxSize int) (*image.RGBA, error) {
	var (
		img image.Image
		err error
	)
	if strings.EqualFold(path.Ext(stripQuery(name)), ".tga") {
		img, err = DecodeTGA(data)
	} else {
		img, _, err = image.Decode(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", name, err)
	}
	return Fit(ToRGBA(img), maxSize), nil
}

// ToRGBA converts any image to *image.RGBA with its origin at (0,0).
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}

// Fit downscales img so neither side exceeds maxSize, keeping its aspect
// ratio. The input is returned untouched when it already fits.
func Fit(img *image.RGBA, maxSize int) *image.RGBA {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if maxSize <= 0 || (w <= maxSize && h <= maxSize) {
		return img
	}

	nw, nh := maxSize, maxSize
	if w >= h {
		nh = max(1, h*maxSize/w)
	} else {
		nw = max(1, w*maxSize/h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// FlipY mirrors img vertically in place.
func FlipY(img *image.RGBA) {
	h := img.Bounds().Dy()
	stride := img.Stride
	row := make([]byte, stride)
	for y := 0; y < h/2; y++ {
		top := img.Pix[y*stride : (y+1)*stride]
		bottom := img.Pix[(h-1-y)*stride : (h-y)*stride]
		copy(row, top)
		copy(top, bottom)
		copy(bottom, row)
	}
}

func stripQuery(name string) string {
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		return name[:i]
	}
	return name
}
