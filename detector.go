package meanface

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	pigo "github.com/esimov/pigo/core"
)

// LandmarkDetector finds the faces of an image and returns the landmarks of each one.
type LandmarkDetector interface {
	Detect(img image.Image) ([]Landmarks, error)
}

var (
	eyeCascades   = []string{"lp46", "lp44", "lp42", "lp38", "lp312"}
	mouthCascades = []string{"lp93", "lp84", "lp82", "lp81"}
)

// PigoDetector detects faces and their landmark points with the pigo cascades.
// Each face yields the LayoutPigo points: the two pupils, then the eye
// cascades in direct and flipped form, then the mouth cascades.
type PigoDetector struct {
	MinSize      int
	MaxSize      int
	ShiftFactor  float64
	ScaleFactor  float64
	IoUThreshold float64
	QThreshold   float32
	Perturb      int

	classifier *pigo.Pigo
	puploc     *pigo.PuplocCascade
	flpcs      map[string][]*pigo.FlpCascade
}

var _ LandmarkDetector = (*PigoDetector)(nil)

// NewPigoDetector unpacks the cascades found in dir: the facefinder and puploc
// files and the lps directory holding the facial landmark point cascades.
func NewPigoDetector(dir string) (*PigoDetector, error) {
	faceCascade, err := os.ReadFile(filepath.Join(dir, "facefinder"))
	if err != nil {
		return nil, fmt.Errorf("error reading the facefinder cascade file: %w", err)
	}
	classifier, err := pigo.NewPigo().Unpack(faceCascade)
	if err != nil {
		return nil, fmt.Errorf("error unpacking the facefinder cascade file: %w", err)
	}

	puplocCascade, err := os.ReadFile(filepath.Join(dir, "puploc"))
	if err != nil {
		return nil, fmt.Errorf("error reading the puploc cascade file: %w", err)
	}
	plc, err := pigo.NewPuplocCascade().UnpackCascade(puplocCascade)
	if err != nil {
		return nil, fmt.Errorf("error unpacking the puploc cascade file: %w", err)
	}

	flpcs, err := plc.ReadCascadeDir(filepath.Join(dir, "lps"))
	if err != nil {
		return nil, fmt.Errorf("error unpacking the facial landmark points cascades: %w", err)
	}
	for _, name := range append(append([]string{}, eyeCascades...), mouthCascades...) {
		if len(flpcs[name]) == 0 || flpcs[name][0].PuplocCascade == nil {
			return nil, fmt.Errorf("missing facial landmark points cascade %q", name)
		}
	}

	return &PigoDetector{
		MinSize:      60,
		MaxSize:      1000,
		ShiftFactor:  0.1,
		ScaleFactor:  1.1,
		IoUThreshold: 0.2,
		QThreshold:   5.0,
		Perturb:      63,
		classifier:   classifier,
		puploc:       plc,
		flpcs:        flpcs,
	}, nil
}

// Detect returns the landmarks of every face found in img, ordered by detection score.
// Faces for which some landmark point can't be located are left out.
func (d *PigoDetector) Detect(img image.Image) ([]Landmarks, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("%w: empty image", ErrUnsupportedImageFormat)
	}
	params := pigo.ImageParams{
		Pixels: grayscale(img),
		Rows:   b.Dy(),
		Cols:   b.Dx(),
		Dim:    b.Dx(),
	}
	cParams := pigo.CascadeParams{
		MinSize:     d.MinSize,
		MaxSize:     d.MaxSize,
		ShiftFactor: d.ShiftFactor,
		ScaleFactor: d.ScaleFactor,
		ImageParams: params,
	}

	dets := d.classifier.RunCascade(cParams, 0.0)
	dets = d.classifier.ClusterDetections(dets, d.IoUThreshold)

	var faces []Landmarks
	for _, det := range dets {
		if det.Q < d.QThreshold {
			continue
		}
		pts, ok := d.landmarks(det, params)
		if !ok {
			continue
		}
		for i := range pts {
			pts[i].X += float64(b.Min.X)
			pts[i].Y += float64(b.Min.Y)
		}
		faces = append(faces, pts)
	}
	return faces, nil
}

// landmarks locates the pupils of a detected face, then the facial landmark points around them.
func (d *PigoDetector) landmarks(det pigo.Detection, params pigo.ImageParams) (Landmarks, bool) {
	scale := float32(det.Scale)

	leftEye := d.puploc.RunDetector(pigo.Puploc{
		Row:      det.Row - int(0.085*scale),
		Col:      det.Col - int(0.185*scale),
		Scale:    scale * 0.4,
		Perturbs: d.Perturb,
	}, params, 0.0, false)

	rightEye := d.puploc.RunDetector(pigo.Puploc{
		Row:      det.Row - int(0.085*scale),
		Col:      det.Col + int(0.185*scale),
		Scale:    scale * 0.4,
		Perturbs: d.Perturb,
	}, params, 0.0, false)

	pts := make(Landmarks, 0, LayoutPigo.Size)
	add := func(p *pigo.Puploc) bool {
		if p == nil || p.Row <= 0 || p.Col <= 0 {
			return false
		}
		pts = append(pts, Point{X: float64(p.Col), Y: float64(p.Row)})
		return true
	}
	if !add(leftEye) || !add(rightEye) {
		return nil, false
	}

	for _, name := range eyeCascades {
		flpc := d.flpcs[name][0]
		for _, flipV := range []bool{false, true} {
			if !add(flpc.GetLandmarkPoint(leftEye, rightEye, params, d.Perturb, flipV)) {
				return nil, false
			}
		}
	}
	for _, name := range mouthCascades {
		if !add(d.flpcs[name][0].GetLandmarkPoint(leftEye, rightEye, params, d.Perturb, false)) {
			return nil, false
		}
	}
	if !add(d.flpcs["lp84"][0].GetLandmarkPoint(leftEye, rightEye, params, d.Perturb, true)) {
		return nil, false
	}
	return pts, true
}
