package meanface

import (
	"fmt"
	"image"
	"io"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/esimov/meanface/utils"
	_ "golang.org/x/image/webp"
)

// DefaultQuality is the JPEG quality used when none is given.
const DefaultQuality = 95

// imageExtensions lists the file extensions considered face images.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".tif":  true,
	".tiff": true,
	".webp": true,
	".bmp":  true,
}

// isImageFile reports whether the file name has one of the supported image extensions.
func isImageFile(name string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(name))]
}

// decodeImg opens and decodes an image file, applying the EXIF orientation if there is one.
func decodeImg(path string) (image.Image, error) {
	ctype, err := utils.DetectContentType(path)
	if err != nil {
		return nil, err
	}
	// TIFF is not sniffed by the content detector, so it is let through by its extension.
	if !utils.IsImage(ctype) {
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".tif" && ext != ".tiff" {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedImageFormat, ctype)
		}
	}

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImageFormat, err)
	}
	return img, nil
}

// LoadRaster decodes the image file at path into a Raster.
func LoadRaster(path string) (*Raster, error) {
	img, err := decodeImg(path)
	if err != nil {
		return nil, err
	}
	return NewRasterFromImage(img), nil
}

// encodeImg encodes an image to a destination of type io.Writer.
// The encoder is selected by the file extension, an empty extension meaning JPEG.
func encodeImg(w io.Writer, ext string, img image.Image, quality int) error {
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	format, err := imagingFormat(ext)
	if err != nil {
		return err
	}
	return imaging.Encode(w, img, format, imaging.JPEGQuality(quality))
}

// imagingFormat resolves the output format of a file extension.
func imagingFormat(ext string) (imaging.Format, error) {
	if ext == "" {
		return imaging.JPEG, nil
	}
	format, err := imaging.FormatFromExtension(ext)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedImageFormat, ext)
	}
	return format, nil
}
