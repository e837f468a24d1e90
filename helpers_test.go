package meanface

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// synthLandmarks returns a 68 point layout spread over a 600x600 canvas,
// with the outer eye corners already sitting on the canonical positions.
func synthLandmarks() Landmarks {
	pts := make(Landmarks, Layout68.Size)
	for i := range pts {
		pts[i] = Point{
			X: 100 + float64(i%10)*40 + float64(i%3)*3.7,
			Y: 120 + float64(i/10)*50 + float64(i%4)*2.3,
		}
	}
	eyes := CanonicalEyes(DefaultWidth, DefaultHeight)
	pts[Layout68.LeftEye] = eyes[0]
	pts[Layout68.RightEye] = eyes[1]
	return pts
}

var whiteNRGBA = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

func solidImage(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i+0], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func gradientImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 255 / w),
				G: uint8(y * 255 / h),
				B: uint8((x + y) % 256),
				A: 0xff,
			})
		}
	}
	return img
}

func writeImage(t *testing.T, path string, img image.Image) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, encodeImg(f, filepath.Ext(path), img, 100))
}

// writeFace stores a face image and, when pts is not nil, its landmark sidecar.
func writeFace(t *testing.T, dir, name string, img image.Image, pts Landmarks) string {
	t.Helper()

	path := filepath.Join(dir, name)
	writeImage(t, path, img)
	if pts != nil {
		require.NoError(t, SaveLandmarks(SidecarPath(path), pts))
	}
	return path
}
