package meanface

import (
	"image"
	"math"

	"github.com/esimov/meanface/utils"
)

// Mesh is a triangulation expressed as index triples into a point list.
type Mesh [][3]int

// DefaultTolerance is the per-axis distance used to match triangulation
// vertices back to the input points.
const DefaultTolerance = 1.0

type edge struct {
	a, b int
}

type delaunayTriangle struct {
	v      [3]int
	cx, cy float64 // circumcenter
	r2     float64 // squared circumradius
}

func newDelaunayTriangle(pts []Point, a, b, c int) delaunayTriangle {
	t := delaunayTriangle{v: [3]int{a, b, c}}

	p1, p2, p3 := pts[a], pts[b], pts[c]
	d := 2 * (p1.X*(p2.Y-p3.Y) + p2.X*(p3.Y-p1.Y) + p3.X*(p1.Y-p2.Y))
	if utils.Abs(d) < 1e-12 {
		// Collinear vertices: an infinite circumcircle contains everything,
		// so the triangle gets removed by the next insertion.
		t.r2 = math.Inf(1)
		return t
	}
	s1 := p1.X*p1.X + p1.Y*p1.Y
	s2 := p2.X*p2.X + p2.Y*p2.Y
	s3 := p3.X*p3.X + p3.Y*p3.Y

	t.cx = (s1*(p2.Y-p3.Y) + s2*(p3.Y-p1.Y) + s3*(p1.Y-p2.Y)) / d
	t.cy = (s1*(p3.X-p2.X) + s2*(p1.X-p3.X) + s3*(p2.X-p1.X)) / d
	dx, dy := p1.X-t.cx, p1.Y-t.cy
	t.r2 = dx*dx + dy*dy

	return t
}

func (t delaunayTriangle) inCircumcircle(p Point) bool {
	if math.IsInf(t.r2, 1) {
		return true
	}
	dx, dy := p.X-t.cx, p.Y-t.cy
	return dx*dx+dy*dy < t.r2*(1+1e-12)
}

// bowyerWatson triangulates the points with the Bowyer-Watson algorithm.
// Triangles touching the super triangle are dropped.
func bowyerWatson(pts []Point) []Triangle {
	if len(pts) < 3 {
		return nil
	}
	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := pts[0].X, pts[0].Y
	for _, p := range pts[1:] {
		minX = utils.Min(minX, p.X)
		minY = utils.Min(minY, p.Y)
		maxX = utils.Max(maxX, p.X)
		maxY = utils.Max(maxY, p.Y)
	}
	span := utils.Max(utils.Max(maxX-minX, maxY-minY), 1)
	midX, midY := (minX+maxX)/2, (minY+maxY)/2

	// The super triangle vertices are appended after the input points.
	n := len(pts)
	vertices := make([]Point, n, n+3)
	copy(vertices, pts)
	vertices = append(vertices,
		Point{X: midX - 100*span, Y: midY - 100*span},
		Point{X: midX + 100*span, Y: midY - 100*span},
		Point{X: midX, Y: midY + 100*span},
	)

	triangles := []delaunayTriangle{newDelaunayTriangle(vertices, n, n+1, n+2)}

	for i := 0; i < n; i++ {
		p := vertices[i]

		var (
			bad  []delaunayTriangle
			good = triangles[:0:0]
		)
		for _, t := range triangles {
			if t.inCircumcircle(p) {
				bad = append(bad, t)
			} else {
				good = append(good, t)
			}
		}

		// The boundary of the cavity is made of the edges not shared by two bad triangles.
		edgeCount := make(map[edge]int)
		for _, t := range bad {
			for k := 0; k < 3; k++ {
				a, b := t.v[k], t.v[(k+1)%3]
				if a > b {
					a, b = b, a
				}
				edgeCount[edge{a, b}]++
			}
		}
		for _, t := range bad {
			for k := 0; k < 3; k++ {
				a, b := t.v[k], t.v[(k+1)%3]
				ka, kb := a, b
				if ka > kb {
					ka, kb = kb, ka
				}
				if edgeCount[edge{ka, kb}] == 1 {
					good = append(good, newDelaunayTriangle(vertices, a, b, i))
				}
			}
		}
		triangles = good
	}

	res := make([]Triangle, 0, len(triangles))
	for _, t := range triangles {
		if t.v[0] >= n || t.v[1] >= n || t.v[2] >= n {
			continue
		}
		tri := Triangle{vertices[t.v[0]], vertices[t.v[1]], vertices[t.v[2]]}
		if utils.Abs(tri.area()) < 1e-9 {
			continue
		}
		res = append(res, tri)
	}
	return res
}

// pointInRect reports whether p lies inside rect, borders included.
func pointInRect(rect image.Rectangle, p Point) bool {
	return p.X >= float64(rect.Min.X) && p.Y >= float64(rect.Min.Y) &&
		p.X <= float64(rect.Max.X) && p.Y <= float64(rect.Max.Y)
}

// Triangulate computes the Delaunay triangulation of pts and returns it as
// index triples into pts. Every vertex returned by the triangulation is
// matched to the first input point closer than tolerance on both axes,
// so duplicated input points always resolve to the same index.
// Triangles leaving rect or whose vertices can't be matched are discarded.
func Triangulate(rect image.Rectangle, pts []Point, tolerance float64) (Mesh, error) {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}

	// Exact duplicates would produce zero area triangles.
	seen := make(map[Point]struct{}, len(pts))
	unique := make([]Point, 0, len(pts))
	for _, p := range pts {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		unique = append(unique, p)
	}

	match := func(v Point) int {
		for k, p := range pts {
			if utils.Abs(v.X-p.X) < tolerance && utils.Abs(v.Y-p.Y) < tolerance {
				return k
			}
		}
		return -1
	}

	var mesh Mesh
	for _, t := range bowyerWatson(unique) {
		if !pointInRect(rect, t[0]) || !pointInRect(rect, t[1]) || !pointInRect(rect, t[2]) {
			continue
		}
		var (
			idx [3]int
			ok  = true
		)
		for j := 0; j < 3; j++ {
			if idx[j] = match(t[j]); idx[j] < 0 {
				ok = false
				break
			}
		}
		if !ok || idx[0] == idx[1] || idx[1] == idx[2] || idx[0] == idx[2] {
			continue
		}
		mesh = append(mesh, idx)
	}
	if len(mesh) == 0 {
		return nil, ErrInsufficientMesh
	}
	return mesh, nil
}
