package meanface

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Layout describes a landmark point convention: how many points a face has
// and which two of them are used as the eye anchors for alignment.
type Layout struct {
	Name     string
	Size     int
	LeftEye  int
	RightEye int
}

var (
	// Layout68 is the 68 point iBUG/dlib layout. Points 36 and 45 are the outer eye corners.
	Layout68 = Layout{Name: "dlib68", Size: 68, LeftEye: 36, RightEye: 45}

	// Layout5 is the 5 point dlib layout: the corners of both eyes and the nose.
	// Point 2 is the outer corner of the eye on the left of the image, point 0 the other outer corner.
	Layout5 = Layout{Name: "dlib5", Size: 5, LeftEye: 2, RightEye: 0}

	// LayoutPigo is the 17 point layout produced by PigoDetector. Points 0 and 1 are the pupils.
	LayoutPigo = Layout{Name: "pigo", Size: 17, LeftEye: 0, RightEye: 1}
)

// LayoutByName returns one of the built-in layouts.
func LayoutByName(name string) (Layout, error) {
	switch name {
	case "", Layout68.Name:
		return Layout68, nil
	case Layout5.Name:
		return Layout5, nil
	case LayoutPigo.Name:
		return LayoutPigo, nil
	}
	return Layout{}, fmt.Errorf("unknown landmark layout %q", name)
}

func (l Layout) validate() error {
	if l.Size <= 0 {
		return fmt.Errorf("layout %q: size must be positive", l.Name)
	}
	if l.LeftEye < 0 || l.LeftEye >= l.Size || l.RightEye < 0 || l.RightEye >= l.Size {
		return fmt.Errorf("layout %q: eye indices out of range", l.Name)
	}
	if l.LeftEye == l.RightEye {
		return fmt.Errorf("layout %q: eye indices must differ", l.Name)
	}
	return nil
}

// ReadLandmarks parses a landmark sidecar: one "x\ty" pair per line.
func ReadLandmarks(r io.Reader) (Landmarks, error) {
	var pts Landmarks

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 2 {
			return nil, fmt.Errorf("%w: line %d: expected 2 fields, got %d", ErrCorruptLandmarkFile, line, len(fields))
		}
		x, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrCorruptLandmarkFile, line, err)
		}
		y, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrCorruptLandmarkFile, line, err)
		}
		pts = append(pts, Point{X: x, Y: y})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptLandmarkFile, err)
	}
	return pts, nil
}

// LoadLandmarks reads the sidecar file at path and checks it against the layout.
func LoadLandmarks(path string, layout Layout) (Landmarks, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptLandmarkFile, err)
	}
	defer f.Close()

	pts, err := ReadLandmarks(f)
	if err != nil {
		return nil, err
	}
	if len(pts) == 0 {
		return nil, fmt.Errorf("%w: no points", ErrCorruptLandmarkFile)
	}
	if len(pts) != layout.Size {
		return nil, fmt.Errorf("%w: expected %d points for layout %q, got %d",
			ErrCorruptLandmarkFile, layout.Size, layout.Name, len(pts))
	}
	return pts, nil
}

// WriteLandmarks writes the points in sidecar format.
func WriteLandmarks(w io.Writer, pts Landmarks) error {
	bw := bufio.NewWriter(w)
	for _, p := range pts {
		if _, err := fmt.Fprintf(bw, "%s\t%s\n",
			strconv.FormatFloat(p.X, 'f', -1, 64),
			strconv.FormatFloat(p.Y, 'f', -1, 64),
		); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// SaveLandmarks writes the points to the sidecar file at path.
func SaveLandmarks(path string, pts Landmarks) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteLandmarks(f, pts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// SidecarPath returns the landmark file paired with an image: 001.jpg -> 001.txt.
func SidecarPath(imagePath string) string {
	return strings.TrimSuffix(imagePath, filepath.Ext(imagePath)) + ".txt"
}
