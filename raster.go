package meanface

import (
	"image"
	"image/color"
	"math"

	"github.com/esimov/meanface/utils"
)

// Raster is a dense RGB pixel buffer with channel values normalized to [0, 1].
type Raster struct {
	Width  int
	Height int
	Pix    []float32
}

// NewRaster allocates a zeroed w x h raster.
func NewRaster(w, h int) *Raster {
	return &Raster{
		Width:  w,
		Height: h,
		Pix:    make([]float32, w*h*3),
	}
}

// Bounds returns the raster rectangle.
func (r *Raster) Bounds() image.Rectangle {
	return image.Rect(0, 0, r.Width, r.Height)
}

// offset returns the index of the first channel of pixel (x, y).
func (r *Raster) offset(x, y int) int {
	return (y*r.Width + x) * 3
}

// clone returns a deep copy of the raster.
func (r *Raster) clone() *Raster {
	dst := &Raster{Width: r.Width, Height: r.Height, Pix: make([]float32, len(r.Pix))}
	copy(dst.Pix, r.Pix)
	return dst
}

// Add accumulates src into r. Both rasters must have the same size.
func (r *Raster) Add(src *Raster) {
	for i, v := range src.Pix {
		r.Pix[i] += v
	}
}

// Scale multiplies every channel by s.
func (r *Raster) Scale(s float32) {
	for i := range r.Pix {
		r.Pix[i] *= s
	}
}

// NewRasterFromImage converts any image type to a Raster with min-point at (0, 0).
// The alpha channel is dropped.
func NewRasterFromImage(img image.Image) *Raster {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := NewRaster(w, h)

	switch src := img.(type) {
	case *image.NRGBA:
		for y := 0; y < h; y++ {
			si := src.PixOffset(b.Min.X, b.Min.Y+y)
			di := dst.offset(0, y)
			for x := 0; x < w; x++ {
				dst.Pix[di+0] = float32(src.Pix[si+0]) / 255
				dst.Pix[di+1] = float32(src.Pix[si+1]) / 255
				dst.Pix[di+2] = float32(src.Pix[si+2]) / 255
				si += 4
				di += 3
			}
		}
	case *image.YCbCr:
		for y := 0; y < h; y++ {
			di := dst.offset(0, y)
			for x := 0; x < w; x++ {
				sx, sy := b.Min.X+x, b.Min.Y+y
				iy := src.YOffset(sx, sy)
				ic := src.COffset(sx, sy)
				r, g, bl := color.YCbCrToRGB(src.Y[iy], src.Cb[ic], src.Cr[ic])
				dst.Pix[di+0] = float32(r) / 255
				dst.Pix[di+1] = float32(g) / 255
				dst.Pix[di+2] = float32(bl) / 255
				di += 3
			}
		}
	default:
		for y := 0; y < h; y++ {
			di := dst.offset(0, y)
			for x := 0; x < w; x++ {
				c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
				dst.Pix[di+0] = float32(c.R) / 255
				dst.Pix[di+1] = float32(c.G) / 255
				dst.Pix[di+2] = float32(c.B) / 255
				di += 3
			}
		}
	}
	return dst
}

// ToNRGBA rescales the raster to 8 bits per channel.
// The absolute channel values are rounded and saturated.
func (r *Raster) ToNRGBA() *image.NRGBA {
	dst := image.NewNRGBA(r.Bounds())
	for y := 0; y < r.Height; y++ {
		si := r.offset(0, y)
		di := dst.PixOffset(0, y)
		for x := 0; x < r.Width; x++ {
			for c := 0; c < 3; c++ {
				v := math.Round(float64(utils.Abs(r.Pix[si+c])) * 255)
				dst.Pix[di+c] = uint8(utils.Clamp(v, 0, 255))
			}
			dst.Pix[di+3] = 0xff
			si += 3
			di += 4
		}
	}
	return dst
}
