package meanface

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
)

// ShapeType selects how a mesh element is rendered.
type ShapeType string

const (
	Circle ShapeType = "circle"
	Line   ShapeType = "line"
)

const (
	meshLineWidth   = 1.0
	meshPointRadius = 2.0
)

// DrawMesh renders the triangle mesh and its vertices over a copy of img.
func DrawMesh(img image.Image, pts Landmarks, mesh Mesh, edge, point color.Color) *image.NRGBA {
	dc := gg.NewContextForImage(img)

	for _, tri := range mesh {
		drawShape(dc, Line, edge, pts[tri[0]], pts[tri[1]], pts[tri[2]])
	}
	for _, p := range pts {
		drawShape(dc, Circle, point, p)
	}
	return imaging.Clone(dc.Image())
}

// drawShape draws a closed polyline through the points, or a dot at each point.
func drawShape(dc *gg.Context, shape ShapeType, col color.Color, pts ...Point) {
	dc.SetColor(col)

	switch shape {
	case Circle:
		for _, p := range pts {
			dc.DrawCircle(p.X, p.Y, meshPointRadius)
			dc.Fill()
		}
	case Line:
		dc.SetLineWidth(meshLineWidth)
		dc.MoveTo(pts[0].X, pts[0].Y)
		for _, p := range pts[1:] {
			dc.LineTo(p.X, p.Y)
		}
		dc.ClosePath()
		dc.Stroke()
	}
}
