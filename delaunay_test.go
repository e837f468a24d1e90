package meanface

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func meanPoints() []Point {
	return append(synthLandmarks(), BoundaryPoints(DefaultWidth, DefaultHeight)...)
}

func TestDelaunay_CoversCanvas(t *testing.T) {
	pts := meanPoints()
	mesh, err := Triangulate(image.Rect(0, 0, DefaultWidth, DefaultHeight), pts, DefaultTolerance)
	require.NoError(t, err)

	for y := 0.5; y < DefaultHeight-1; y += 7 {
		for x := 0.5; x < DefaultWidth-1; x += 7 {
			p := Point{X: x, Y: y}
			covered := false
			for _, tri := range mesh {
				if (Triangle{pts[tri[0]], pts[tri[1]], pts[tri[2]]}).contains(p) {
					covered = true
					break
				}
			}
			if !covered {
				t.Fatalf("point %v is not covered by the mesh", p)
			}
		}
	}
}

func TestDelaunay_IsDelaunay(t *testing.T) {
	pts := meanPoints()
	mesh, err := Triangulate(image.Rect(0, 0, DefaultWidth, DefaultHeight), pts, DefaultTolerance)
	require.NoError(t, err)

	for _, tri := range mesh {
		dt := newDelaunayTriangle(pts, tri[0], tri[1], tri[2])
		for i, p := range pts {
			if i == tri[0] || i == tri[1] || i == tri[2] {
				continue
			}
			dx, dy := p.X-dt.cx, p.Y-dt.cy
			assert.GreaterOrEqual(t, dx*dx+dy*dy, dt.r2*(1-1e-9), "point %d inside the circumcircle of %v", i, tri)
		}
	}
}

func TestDelaunay_IndicesAreValid(t *testing.T) {
	pts := meanPoints()
	mesh, err := Triangulate(image.Rect(0, 0, DefaultWidth, DefaultHeight), pts, DefaultTolerance)
	require.NoError(t, err)

	seen := make(map[[3]int]bool)
	for _, tri := range mesh {
		for _, idx := range tri {
			assert.True(t, idx >= 0 && idx < len(pts))
		}
		assert.NotEqual(t, tri[0], tri[1])
		assert.NotEqual(t, tri[1], tri[2])
		assert.NotEqual(t, tri[0], tri[2])

		assert.False(t, seen[tri], "triangle %v listed twice", tri)
		seen[tri] = true
	}
}

func TestDelaunay_DuplicatesMatchFirstIndex(t *testing.T) {
	pts := []Point{
		{X: 0, Y: 0},
		{X: 100, Y: 0},
		{X: 50, Y: 40},
		{X: 0, Y: 100},
		{X: 100, Y: 100},
		{X: 50, Y: 40},   // exact duplicate of 2
		{X: 50.5, Y: 40}, // within tolerance of 2
	}
	mesh, err := Triangulate(image.Rect(0, 0, 101, 101), pts, DefaultTolerance)
	require.NoError(t, err)

	used2 := false
	for _, tri := range mesh {
		for _, idx := range tri {
			assert.NotEqual(t, 5, idx)
			assert.NotEqual(t, 6, idx)
			used2 = used2 || idx == 2
		}
		assert.NotEqual(t, tri[0], tri[1])
		assert.NotEqual(t, tri[1], tri[2])
		assert.NotEqual(t, tri[0], tri[2])
	}
	assert.True(t, used2)
}

func TestDelaunay_DropsTrianglesOutsideRect(t *testing.T) {
	pts := []Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 0, Y: 10}, {X: 50, Y: 50}}
	mesh, err := Triangulate(image.Rect(0, 0, 20, 20), pts, DefaultTolerance)
	require.NoError(t, err)

	assert.Equal(t, Mesh{{0, 1, 2}}, normalize(mesh))
}

func TestDelaunay_InsufficientMesh(t *testing.T) {
	rect := image.Rect(0, 0, 100, 100)

	for name, pts := range map[string][]Point{
		"empty":      nil,
		"two points": {{X: 1, Y: 1}, {X: 5, Y: 5}},
		"collinear":  {{X: 1, Y: 1}, {X: 5, Y: 5}, {X: 9, Y: 9}},
		"outside":    {{X: 200, Y: 200}, {X: 300, Y: 200}, {X: 250, Y: 300}},
	} {
		_, err := Triangulate(rect, pts, DefaultTolerance)
		assert.ErrorIs(t, err, ErrInsufficientMesh, name)
	}
}

func TestDelaunay_PointInRectIsInclusive(t *testing.T) {
	rect := image.Rect(0, 0, 10, 10)
	assert.True(t, pointInRect(rect, Point{X: 0, Y: 0}))
	assert.True(t, pointInRect(rect, Point{X: 10, Y: 10}))
	assert.False(t, pointInRect(rect, Point{X: 10.5, Y: 3}))
	assert.False(t, pointInRect(rect, Point{X: -0.1, Y: 3}))
}

// normalize sorts the indices of every triangle, so meshes can be compared.
func normalize(mesh Mesh) Mesh {
	res := make(Mesh, len(mesh))
	for i, tri := range mesh {
		a, b, c := tri[0], tri[1], tri[2]
		if a > b {
			a, b = b, a
		}
		if b > c {
			b, c = c, b
		}
		if a > b {
			a, b = b, a
		}
		res[i] = [3]int{a, b, c}
	}
	return res
}
