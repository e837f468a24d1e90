package meanface

import (
	"image"
	"math"

	"github.com/esimov/meanface/utils"
)

// Point is a 2D coordinate in image space.
type Point struct {
	X float64
	Y float64
}

// Sub returns the difference of two points.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Len returns the Euclidean norm of the point seen as a vector.
func (p Point) Len() float64 {
	return math.Hypot(p.X, p.Y)
}

// Landmarks is an ordered set of facial landmark points.
type Landmarks []Point

// Triangle holds the three vertices of a mesh triangle.
type Triangle [3]Point

// area returns the signed area of the triangle.
func (t Triangle) area() float64 {
	return ((t[1].X-t[0].X)*(t[2].Y-t[0].Y) - (t[2].X-t[0].X)*(t[1].Y-t[0].Y)) / 2
}

// bounds returns the integer bounding rectangle of the triangle.
// Like cv::boundingRect the minimum is floored and the maximum is floored plus one.
func (t Triangle) bounds() image.Rectangle {
	minX, minY := t[0].X, t[0].Y
	maxX, maxY := t[0].X, t[0].Y
	for _, p := range t[1:] {
		minX = utils.Min(minX, p.X)
		minY = utils.Min(minY, p.Y)
		maxX = utils.Max(maxX, p.X)
		maxY = utils.Max(maxY, p.Y)
	}
	return image.Rect(
		int(math.Floor(minX)), int(math.Floor(minY)),
		int(math.Floor(maxX))+1, int(math.Floor(maxY))+1,
	)
}

// contains reports whether p lies inside the triangle or on its edges.
func (t Triangle) contains(p Point) bool {
	const eps = 1e-9

	d := t.area() * 2
	if utils.Abs(d) < eps {
		return false
	}
	l1 := ((t[1].X-p.X)*(t[2].Y-p.Y) - (t[2].X-p.X)*(t[1].Y-p.Y)) / d
	l2 := ((t[2].X-p.X)*(t[0].Y-p.Y) - (t[0].X-p.X)*(t[2].Y-p.Y)) / d
	l3 := 1 - l1 - l2

	return l1 >= -eps && l2 >= -eps && l3 >= -eps
}

// BoundaryPoints returns the canvas corners and edge midpoints which are appended
// to every landmark set so the mesh covers the whole canvas.
func BoundaryPoints(w, h int) []Point {
	fw, fh := float64(w), float64(h)
	return []Point{
		{0, 0},
		{fw / 2, 0},
		{fw - 1, 0},
		{fw - 1, fh / 2},
		{fw - 1, fh - 1},
		{fw / 2, fh - 1},
		{0, fh - 1},
		{0, fh / 2},
	}
}

// constrainPoint clamps the point inside the w x h canvas.
func constrainPoint(p Point, w, h int) Point {
	return Point{
		X: utils.Clamp(p.X, 0, float64(w-1)),
		Y: utils.Clamp(p.Y, 0, float64(h-1)),
	}
}
