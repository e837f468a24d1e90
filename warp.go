package meanface

import (
	"image"
	"math"

	"github.com/esimov/meanface/utils"
	"golang.org/x/image/math/f64"
)

// minTriangleArea is the smallest triangle area, in square pixels, the warper accepts.
const minTriangleArea = 1e-6

// snapEpsilon absorbs the rounding noise of near identity transforms,
// so sampling exactly on a pixel doesn't bleed into its neighbours.
const snapEpsilon = 1e-6

type borderMode int

const (
	// borderConstant reads zero outside of the sampled region.
	borderConstant borderMode = iota
	// borderReflect101 mirrors the region without repeating the edge pixel: gfedcb|abcdefgh|gfedcba
	borderReflect101
)

// reflect101 maps an out of range index back inside [0, n).
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*(n-1) - i
		}
	}
	return i
}

func snap(v float64) float64 {
	if r := math.Round(v); utils.Abs(v-r) < snapEpsilon {
		return r
	}
	return v
}

// sample bilinearly interpolates the pixel at (sx, sy), given in coordinates
// local to the region rect of the raster, and writes the result into out.
func (r *Raster) sample(rect image.Rectangle, sx, sy float64, mode borderMode, out *[3]float32) {
	sx, sy = snap(sx), snap(sy)

	x0, y0 := int(math.Floor(sx)), int(math.Floor(sy))
	fx, fy := float32(sx-float64(x0)), float32(sy-float64(y0))
	pw, ph := rect.Dx(), rect.Dy()

	out[0], out[1], out[2] = 0, 0, 0

	taps := [4]struct {
		x, y int
		w    float32
	}{
		{x0, y0, (1 - fx) * (1 - fy)},
		{x0 + 1, y0, fx * (1 - fy)},
		{x0, y0 + 1, (1 - fx) * fy},
		{x0 + 1, y0 + 1, fx * fy},
	}
	for _, t := range taps {
		if t.w == 0 {
			continue
		}
		x, y := t.x, t.y
		if x < 0 || x >= pw || y < 0 || y >= ph {
			if mode == borderConstant {
				continue
			}
			x, y = reflect101(x, pw), reflect101(y, ph)
		}
		i := r.offset(rect.Min.X+x, rect.Min.Y+y)
		out[0] += t.w * r.Pix[i+0]
		out[1] += t.w * r.Pix[i+1]
		out[2] += t.w * r.Pix[i+2]
	}
}

// WarpAffine maps the source raster through the transform m onto a new w x h raster.
// Pixels falling outside of the source are left black.
func WarpAffine(src *Raster, m f64.Aff3, w, h int) (*Raster, error) {
	inv, err := Invert(m)
	if err != nil {
		return nil, ErrDegenerateInput
	}
	dst := NewRaster(w, h)
	rect := src.Bounds()

	var px [3]float32
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			s := apply(inv, Point{X: float64(x), Y: float64(y)})
			src.sample(rect, s.X, s.Y, borderConstant, &px)

			i := dst.offset(x, y)
			dst.Pix[i+0], dst.Pix[i+1], dst.Pix[i+2] = px[0], px[1], px[2]
		}
	}
	return dst, nil
}

// WarpTriangle warps the triangular region t1 of src onto the triangular region t2 of dst.
// Only the pixels inside t2 are overwritten. Degenerate triangles are ignored.
func WarpTriangle(src, dst *Raster, t1, t2 Triangle) {
	if utils.Abs(t1.area()) < minTriangleArea || utils.Abs(t2.area()) < minTriangleArea {
		return
	}
	r1 := t1.bounds().Intersect(src.Bounds())
	r2 := t2.bounds().Intersect(dst.Bounds())
	if r1.Empty() || r2.Empty() {
		return
	}

	// Triangle coordinates relative to their bounding rectangles.
	var l1, l2 Triangle
	for i := 0; i < 3; i++ {
		l1[i] = Point{X: t1[i].X - float64(r1.Min.X), Y: t1[i].Y - float64(r1.Min.Y)}
		l2[i] = Point{X: t2[i].X - float64(r2.Min.X), Y: t2[i].Y - float64(r2.Min.Y)}
	}

	// The destination patch is filled by inverse mapping, so the transform goes from t2 to t1.
	m, err := affineFromTriangles(l2, l1)
	if err != nil {
		return
	}
	if det := m[0]*m[4] - m[1]*m[3]; utils.Abs(det) < 1e-12 || math.IsNaN(det) || math.IsInf(det, 0) {
		return
	}

	var px [3]float32
	for y := 0; y < r2.Dy(); y++ {
		for x := 0; x < r2.Dx(); x++ {
			p := Point{X: float64(x), Y: float64(y)}
			if !l2.contains(p) {
				continue
			}
			s := apply(m, p)
			src.sample(r1, s.X, s.Y, borderReflect101, &px)

			i := dst.offset(r2.Min.X+x, r2.Min.Y+y)
			dst.Pix[i+0], dst.Pix[i+1], dst.Pix[i+2] = px[0], px[1], px[2]
		}
	}
}
