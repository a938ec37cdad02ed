package texture

import (
	"fmt"
	"image"
)

// TGA image types handled by DecodeTGA.
const (
	TGATypeUncompressed = 2  // Uncompressed true-color
	TGATypeRLE          = 10 // RLE compressed true-color
)

// DecodeTGA decodes an uncompressed or RLE true-color TGA image. TGA has no
// magic number, so callers select it by file extension.
func DecodeTGA(data []byte) (*image.RGBA, error) {
	if len(data) < 18 {
		return nil, fmt.Errorf("TGA data too short")
	}

	idLength := int(data[0])
	colorMapType := data[1]
	imageType := data[2]
	width := int(data[12]) | int(data[13])<<8
	height := int(data[14]) | int(data[15])<<8
	bpp := int(data[16])
	topToBottom := data[17]&0x20 != 0

	if colorMapType != 0 {
		return nil, fmt.Errorf("color-mapped TGA not supported")
	}
	if imageType != TGATypeUncompressed && imageType != TGATypeRLE {
		return nil, fmt.Errorf("unsupported TGA type %d", imageType)
	}
	if bpp != 24 && bpp != 32 {
		return nil, fmt.Errorf("unsupported TGA bit depth %d", bpp)
	}

	offset := 18 + idLength
	if offset > len(data) {
		return nil, fmt.Errorf("TGA data truncated")
	}

	d := tgaDecoder{
		src:         data[offset:],
		img:         image.NewRGBA(image.Rect(0, 0, width, height)),
		width:       width,
		height:      height,
		bpp:         bpp / 8,
		topToBottom: topToBottom,
	}

	if imageType == TGATypeUncompressed {
		if len(d.src) < width*height*d.bpp {
			return nil, fmt.Errorf("TGA pixel data truncated")
		}
		for i := 0; i < width*height; i++ {
			d.put(i, d.read())
		}
		return d.img, nil
	}

	d.decodeRLE()
	return d.img, nil
}

type tgaDecoder struct {
	src         []byte
	pos         int
	img         *image.RGBA
	width       int
	height      int
	bpp         int
	topToBottom bool
}

// read consumes one BGR(A) pixel and returns it as RGBA.
func (d *tgaDecoder) read() [4]uint8 {
	p := d.src[d.pos : d.pos+d.bpp]
	d.pos += d.bpp
	a := uint8(255)
	if d.bpp == 4 {
		a = p[3]
	}
	return [4]uint8{p[2], p[1], p[0], a}
}

func (d *tgaDecoder) canRead() bool {
	return d.pos+d.bpp <= len(d.src)
}

// put writes pixel number i, flipping rows for bottom-up images.
func (d *tgaDecoder) put(i int, c [4]uint8) {
	x, y := i%d.width, i/d.width
	if !d.topToBottom {
		y = d.height - 1 - y
	}
	copy(d.img.Pix[d.img.PixOffset(x, y):], c[:])
}

func (d *tgaDecoder) decodeRLE() {
	total := d.width * d.height
	i := 0
	for i < total && d.pos < len(d.src) {
		packet := d.src[d.pos]
		d.pos++
		count := int(packet&0x7F) + 1

		if packet&0x80 != 0 {
			if !d.canRead() {
				return
			}
			c := d.read()
			for n := 0; n < count && i < total; n++ {
				d.put(i, c)
				i++
			}
			continue
		}

		for n := 0; n < count && i < total; n++ {
			if !d.canRead() {
				return
			}
			d.put(i, d.read())
			i++
		}
	}
}
