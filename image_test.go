package meanface

import (
	"bytes"
	"image"
	"image/color"
	"image/color/palette"
	"image/draw"
	"os"
	"path/filepath"
	"testing"

	"github.com/esimov/meanface/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImage_NewRasterFromImage(t *testing.T) {
	rect := image.Rect(-1, -1, 15, 15)
	colors := palette.Plan9
	testCases := []struct {
		name string
		img  image.Image
	}{
		{
			name: "NRGBA",
			img:  makeNRGBAImage(rect, colors),
		},
		{
			name: "RGBA",
			img:  makeRGBAImage(rect, colors),
		},
		{
			name: "YCbCr-444",
			img:  makeYCbCrImage(rect, colors, image.YCbCrSubsampleRatio444),
		},
		{
			name: "YCbCr-422",
			img:  makeYCbCrImage(rect, colors, image.YCbCrSubsampleRatio422),
		},
		{
			name: "YCbCr-420",
			img:  makeYCbCrImage(rect, colors, image.YCbCrSubsampleRatio420),
		},
		{
			name: "YCbCr-440",
			img:  makeYCbCrImage(rect, colors, image.YCbCrSubsampleRatio440),
		},
		{
			name: "YCbCr-410",
			img:  makeYCbCrImage(rect, colors, image.YCbCrSubsampleRatio410),
		},
		{
			name: "YCbCr-411",
			img:  makeYCbCrImage(rect, colors, image.YCbCrSubsampleRatio411),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := tc.img.Bounds()
			raster := NewRasterFromImage(tc.img)
			require.Equal(t, r.Dx(), raster.Width)
			require.Equal(t, r.Dy(), raster.Height)

			for y := r.Min.Y; y < r.Max.Y; y++ {
				got := rasterRow(raster, y-r.Min.Y)
				want := rgbOnly(readRow(tc.img, y))
				if !compareBytes(got, want, 1) {
					t.Errorf("raster row (y=%d): got %v want %v", y, got, want)
				}
			}
		})
	}
}

func TestImage_ToNRGBA(t *testing.T) {
	assert := assert.New(t)

	r := NewRaster(4, 1)
	copy(r.Pix, []float32{
		0, 1, 0.5,
		1.5, 2, 10,
		-0.2, 0, 0,
		0.25, 0.75, 0.999,
	})
	img := r.ToNRGBA()

	assert.Equal([]uint8{0, 255, 128, 255}, img.Pix[0:4])
	assert.Equal([]uint8{255, 255, 255, 255}, img.Pix[4:8], "values above 1 saturate")
	assert.Equal([]uint8{51, 0, 0, 255}, img.Pix[8:12], "negative values use their magnitude")
	assert.Equal([]uint8{64, 191, 255, 255}, img.Pix[12:16])
}

func TestImage_RasterRoundTrip(t *testing.T) {
	src := makeNRGBAImage(image.Rect(0, 0, 16, 16), palette.Plan9)
	for i := 3; i < len(src.Pix); i += 4 {
		src.Pix[i] = 0xff
	}
	assert.Equal(t, src.Pix, NewRasterFromImage(src).ToNRGBA().Pix)
}

func TestImage_RasterArithmetic(t *testing.T) {
	assert := assert.New(t)

	a := NewRaster(2, 2)
	for i := range a.Pix {
		a.Pix[i] = 0.25
	}
	b := a.clone()
	b.Pix[0] = 0.75
	assert.Equal(float32(0.25), a.Pix[0], "clone must not share pixels")

	a.Add(b)
	assert.Equal(float32(1), a.Pix[0])
	assert.Equal(float32(0.5), a.Pix[1])

	a.Scale(0.5)
	assert.Equal(float32(0.5), a.Pix[0])
	assert.Equal(float32(0.25), a.Pix[1])
	assert.Equal(image.Rect(0, 0, 2, 2), a.Bounds())
}

func TestImage_LoadRaster(t *testing.T) {
	dir := t.TempDir()
	img := solidImage(8, 6, color.NRGBA{R: 200, G: 100, B: 50, A: 255})

	for _, ext := range []string{".png", ".bmp", ".tif"} {
		path := filepath.Join(dir, "face"+ext)
		writeImage(t, path, img)

		r, err := LoadRaster(path)
		require.NoError(t, err, ext)
		assert.Equal(t, 8, r.Width)
		assert.Equal(t, 6, r.Height)
		assert.Equal(t, img.Pix, r.ToNRGBA().Pix, ext)
	}

	path := filepath.Join(dir, "face.jpg")
	writeImage(t, path, img)
	r, err := LoadRaster(path)
	require.NoError(t, err)
	assert.InDelta(t, 200, r.ToNRGBA().Pix[0], 3)
}

func TestImage_LoadRasterUnsupported(t *testing.T) {
	dir := t.TempDir()

	text := filepath.Join(dir, "face.jpg")
	require.NoError(t, os.WriteFile(text, []byte("not an image at all"), 0644))
	_, err := LoadRaster(text)
	assert.ErrorIs(t, err, ErrUnsupportedImageFormat)

	var buf bytes.Buffer
	require.NoError(t, encodeImg(&buf, ".png", solidImage(8, 8, color.NRGBA{A: 255}), 0))
	truncated := filepath.Join(dir, "truncated.png")
	require.NoError(t, os.WriteFile(truncated, buf.Bytes()[:buf.Len()/2], 0644))
	_, err = LoadRaster(truncated)
	assert.ErrorIs(t, err, ErrUnsupportedImageFormat)

	_, err = LoadRaster(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)
}

func TestImage_Encode(t *testing.T) {
	img := solidImage(4, 4, color.NRGBA{R: 10, G: 20, B: 30, A: 255})

	for _, ext := range []string{"", ".jpg", ".JPEG", ".png", ".gif", ".tiff", ".bmp"} {
		var buf bytes.Buffer
		require.NoError(t, encodeImg(&buf, ext, img, 90), ext)

		decoded, _, err := image.Decode(&buf)
		require.NoError(t, err, ext)
		assert.Equal(t, img.Bounds(), decoded.Bounds(), ext)
	}

	for _, ext := range []string{".webp", ".xyz"} {
		var buf bytes.Buffer
		assert.ErrorIs(t, encodeImg(&buf, ext, img, 90), ErrUnsupportedImageFormat, ext)
	}
}

func rasterRow(r *Raster, y int) []uint8 {
	row := make([]uint8, r.Width*3)
	for i := range row {
		row[i] = uint8(r.Pix[r.offset(0, y)+i]*255 + 0.5)
	}
	return row
}

func rgbOnly(nrgba []uint8) []uint8 {
	rgb := make([]uint8, 0, len(nrgba)/4*3)
	for i := 0; i < len(nrgba); i += 4 {
		rgb = append(rgb, nrgba[i], nrgba[i+1], nrgba[i+2])
	}
	return rgb
}

func makeRGBAImage(rect image.Rectangle, colors []color.Color) *image.RGBA {
	img := image.NewRGBA(rect)
	fillDrawImage(img, colors)
	return img
}

func makeYCbCrImage(rect image.Rectangle, colors []color.Color, sr image.YCbCrSubsampleRatio) *image.YCbCr {
	img := image.NewYCbCr(rect, sr)
	j := 0
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			iy := img.YOffset(x, y)
			ic := img.COffset(x, y)
			c := color.NRGBAModel.Convert(colors[j]).(color.NRGBA)
			img.Y[iy], img.Cb[ic], img.Cr[ic] = color.RGBToYCbCr(c.R, c.G, c.B)
			j++
		}
	}
	return img
}

func makeNRGBAImage(rect image.Rectangle, colors []color.Color) *image.NRGBA {
	img := image.NewNRGBA(rect)
	fillDrawImage(img, colors)
	return img
}

func fillDrawImage(img draw.Image, colors []color.Color) {
	colorsNRGBA := make([]color.NRGBA, len(colors))
	for i, c := range colors {
		nrgba := color.NRGBAModel.Convert(c).(color.NRGBA)
		nrgba.A = uint8(i % 256)
		colorsNRGBA[i] = nrgba
	}
	rect := img.Bounds()
	i := 0
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			img.Set(x, y, colorsNRGBA[i])
			i++
		}
	}
}

func readRow(img image.Image, y int) []uint8 {
	row := make([]byte, img.Bounds().Dx()*4)
	i := 0
	for x := img.Bounds().Min.X; x < img.Bounds().Max.X; x++ {
		c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
		row[i+0] = c.R
		row[i+1] = c.G
		row[i+2] = c.B
		row[i+3] = c.A
		i += 4
	}
	return row
}

func readColumn(img image.Image, x int) []uint8 {
	column := make([]byte, img.Bounds().Dy()*4)
	i := 0
	for y := img.Bounds().Min.Y; y < img.Bounds().Max.Y; y++ {
		c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
		column[i+0] = c.R
		column[i+1] = c.G
		column[i+2] = c.B
		column[i+3] = c.A
		i += 4
	}
	return column
}

func compareBytes(a, b []uint8, delta int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		if utils.Abs(int(a[i])-int(b[i])) > delta {
			return false
		}
	}
	return true
}
