package meanface

import (
	"errors"
	"fmt"
	"math"

	"github.com/esimov/meanface/utils"
	"golang.org/x/image/math/f64"
	"gonum.org/v1/gonum/mat"
)

// minSegment is the shortest eye segment accepted for alignment.
const minSegment = 1e-9

var (
	sin60 = math.Sin(60 * math.Pi / 180)
	cos60 = math.Cos(60 * math.Pi / 180)
)

// CanonicalEyes returns the target eye anchors on a w x h canvas:
// 30% and 70% of the width, at a third of the height.
func CanonicalEyes(w, h int) [2]Point {
	y := math.Floor(float64(h) / 3)
	return [2]Point{
		{X: math.Floor(0.3 * float64(w)), Y: y},
		{X: math.Floor(0.7 * float64(w)), Y: y},
	}
}

// thirdPoint completes an equilateral triangle by rotating p0 around p1 by 60 degrees.
func thirdPoint(p0, p1 Point) Point {
	d := p0.Sub(p1)
	return Point{
		X: cos60*d.X - sin60*d.Y + p1.X,
		Y: sin60*d.X + cos60*d.Y + p1.Y,
	}
}

// SimilarityTransform computes the rotation, uniform scale and translation
// which maps the src point pair onto the dst point pair.
//
// Two correspondences are completed with a synthetic third one on each side,
// then the partial affine system
//
//	[x']   [a -b] [x]   [tx]
//	[y'] = [b  a] [y] + [ty]
//
// is solved in the least squares sense.
func SimilarityTransform(src, dst [2]Point) (f64.Aff3, error) {
	if src[0].Sub(src[1]).Len() < minSegment || dst[0].Sub(dst[1]).Len() < minSegment {
		return f64.Aff3{}, ErrDegenerateInput
	}
	in := []Point{src[0], src[1], thirdPoint(src[0], src[1])}
	out := []Point{dst[0], dst[1], thirdPoint(dst[0], dst[1])}

	A := mat.NewDense(2*len(in), 4, nil)
	B := mat.NewVecDense(2*len(in), nil)
	for i := range in {
		x, y := in[i].X, in[i].Y

		A.SetRow(2*i, []float64{x, -y, 1, 0})
		B.SetVec(2*i, out[i].X)

		A.SetRow(2*i+1, []float64{y, x, 0, 1})
		B.SetVec(2*i+1, out[i].Y)
	}

	var qr mat.QR
	qr.Factorize(A)

	var params mat.VecDense
	if err := qr.SolveVecTo(&params, false, B); err != nil {
		return f64.Aff3{}, fmt.Errorf("%w: %v", ErrDegenerateInput, err)
	}
	a, b := params.AtVec(0), params.AtVec(1)
	tx, ty := params.AtVec(2), params.AtVec(3)

	m := f64.Aff3{a, -b, tx, b, a, ty}
	for _, v := range m {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return f64.Aff3{}, ErrDegenerateInput
		}
	}
	return m, nil
}

// affineFromTriangles solves the exact affine map sending the three src
// vertices onto the three dst vertices.
func affineFromTriangles(src, dst Triangle) (f64.Aff3, error) {
	A := mat.NewDense(6, 6, nil)
	B := mat.NewVecDense(6, nil)

	for i := 0; i < 3; i++ {
		x, y := src[i].X, src[i].Y

		// x' = a*x + b*y + tx
		A.SetRow(2*i, []float64{x, y, 1, 0, 0, 0})
		B.SetVec(2*i, dst[i].X)

		// y' = c*x + d*y + ty
		A.SetRow(2*i+1, []float64{0, 0, 0, x, y, 1})
		B.SetVec(2*i+1, dst[i].Y)
	}

	var params mat.VecDense
	if err := params.SolveVec(A, B); err != nil {
		return f64.Aff3{}, err
	}

	var m f64.Aff3
	for i := range m {
		m[i] = params.AtVec(i)
	}
	return m, nil
}

// Invert returns the inverse of an affine transform.
func Invert(m f64.Aff3) (f64.Aff3, error) {
	det := m[0]*m[4] - m[1]*m[3]
	if utils.Abs(det) < 1e-12 {
		return f64.Aff3{}, errors.New("affine transform is not invertible")
	}
	a, b, c, d := m[4]/det, -m[1]/det, -m[3]/det, m[0]/det
	return f64.Aff3{
		a, b, -(a*m[2] + b*m[5]),
		c, d, -(c*m[2] + d*m[5]),
	}, nil
}

// apply maps a single point through the transform.
func apply(m f64.Aff3, p Point) Point {
	return Point{
		X: m[0]*p.X + m[1]*p.Y + m[2],
		Y: m[3]*p.X + m[4]*p.Y + m[5],
	}
}

// TransformPoints maps every point through the transform.
func TransformPoints(m f64.Aff3, pts Landmarks) Landmarks {
	res := make(Landmarks, len(pts))
	for i, p := range pts {
		res[i] = apply(m, p)
	}
	return res
}
