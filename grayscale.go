package meanface

import (
	"image"
	"image/color"
)

// grayscale converts the image to the one byte per pixel luminance buffer
// the pigo cascades run on. The result has the image width as row stride.
func grayscale(src image.Image) []uint8 {
	b := src.Bounds()
	dx, dy := b.Dx(), b.Dy()
	dst := make([]uint8, dx*dy)

	if img, ok := src.(*image.NRGBA); ok {
		for y := 0; y < dy; y++ {
			si := img.PixOffset(b.Min.X, b.Min.Y+y)
			for x := 0; x < dx; x++ {
				r, g, bl := float32(img.Pix[si]), float32(img.Pix[si+1]), float32(img.Pix[si+2])
				dst[y*dx+x] = uint8(r*0.299 + g*0.587 + bl*0.114 + 0.5)
				si += 4
			}
		}
		return dst
	}

	for y := 0; y < dy; y++ {
		for x := 0; x < dx; x++ {
			r, g, bl, _ := src.At(b.Min.X+x, b.Min.Y+y).RGBA()
			lum := float32(r)*0.299 + float32(g)*0.587 + float32(bl)*0.114
			dst[y*dx+x] = color.Gray{Y: uint8(lum / 256)}.Y
		}
	}
	return dst
}
