package meanface

import (
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Default canvas size of the averaged face.
const (
	DefaultWidth  = 600
	DefaultHeight = 600
)

// Stage identifies a step of the averaging run.
type Stage int

// The stages of an averaging run, in execution order.
const (
	StageLoading Stage = iota
	StageAligning
	StageMeshing
	StageWarping
	StageFinalizing
	StageDone
)

var stageNames = [...]string{"loading", "aligning", "meshing", "warping", "finalizing", "done"}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("Stage(%d)", int(s))
	}
	return stageNames[s]
}

// Skip records a face excluded from the average.
type Skip struct {
	Path  string
	Stage Stage
	Err   error
}

// Result describes the outcome of an averaging run.
type Result struct {
	Discovered int
	Used       int
	Skipped    []Skip
	Mean       Landmarks
	Mesh       Mesh
	Image      *image.NRGBA
}

// face is a decoded image with its landmarks, either in source or in canvas coordinates.
type face struct {
	path   string
	img    *Raster
	points Landmarks
}

// RunContext holds the state of a single averaging run.
type RunContext struct {
	mu      sync.Mutex
	stage   Stage
	faces   []*face
	mean    Landmarks
	mesh    Mesh
	acc     *Raster
	skipped []Skip
	log     zerolog.Logger
}

func newRunContext(w, h int, log zerolog.Logger) *RunContext {
	return &RunContext{
		stage: StageLoading,
		acc:   NewRaster(w, h),
		log:   log,
	}
}

// Stage returns the current stage of the run.
func (rc *RunContext) Stage() Stage {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.stage
}

// advance moves the run to the next stage. Stages can't be skipped or revisited.
func (rc *RunContext) advance(next Stage) error {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if next != rc.stage+1 {
		return fmt.Errorf("invalid stage transition: %s -> %s", rc.stage, next)
	}
	rc.stage = next
	return nil
}

func (rc *RunContext) skip(path string, stage Stage, err error) {
	rc.log.Warn().Str("path", path).Stringer("stage", stage).Err(err).Msg("face skipped")

	rc.mu.Lock()
	rc.skipped = append(rc.skipped, Skip{
		Path:  path,
		Stage: stage,
		Err:   fmt.Errorf("%s: %w", path, err),
	})
	rc.mu.Unlock()
}

// merge adds a warped face to the output accumulator.
func (rc *RunContext) merge(r *Raster) {
	rc.mu.Lock()
	rc.acc.Add(r)
	rc.mu.Unlock()
}

// Processor options
type Processor struct {
	Width     int
	Height    int
	Layout    Layout
	Tolerance float64
	Workers   int
	Quality   int
	Logger    zerolog.Logger

	// Progress, when set, is called after each face completes a parallel stage.
	Progress func(stage Stage, done, total int)
}

// NewProcessor returns a Processor with the default options.
func NewProcessor() *Processor {
	return &Processor{
		Width:     DefaultWidth,
		Height:    DefaultHeight,
		Layout:    Layout68,
		Tolerance: DefaultTolerance,
		Workers:   runtime.NumCPU(),
		Quality:   DefaultQuality,
		Logger:    zerolog.Nop(),
	}
}

// options returns a copy of the processor with the unset options defaulted.
func (p *Processor) options() Processor {
	opts := *p
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	if opts.Layout == (Layout{}) {
		opts.Layout = Layout68
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = DefaultTolerance
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.Quality <= 0 {
		opts.Quality = DefaultQuality
	}
	return opts
}

func (p *Processor) progress(stage Stage) func(done, total int) {
	if p.Progress == nil {
		return nil
	}
	return func(done, total int) {
		p.Progress(stage, done, total)
	}
}

// Average computes the average face of the images found in dir.
// Faces which can't be loaded or aligned are skipped and reported in the result.
func (p *Processor) Average(ctx context.Context, dir string) (*Result, error) {
	opts := p.options()
	if err := opts.Layout.validate(); err != nil {
		return nil, err
	}
	log := opts.Logger.With().Str("dir", dir).Logger()
	now := time.Now()

	pairs, orphans, err := Pairs(dir)
	if err != nil {
		return nil, err
	}
	for _, path := range orphans {
		log.Debug().Str("path", path).Msg("landmark file without image, ignored")
	}
	log.Info().Int("faces", len(pairs)).Str("layout", opts.Layout.Name).Msg("averaging faces")

	rc := newRunContext(opts.Width, opts.Height, log)
	res := &Result{Discovered: len(pairs)}

	stages := []struct {
		next Stage
		run  func(context.Context, *RunContext) error
	}{
		{StageAligning, func(ctx context.Context, rc *RunContext) error { return opts.load(ctx, rc, pairs) }},
		{StageMeshing, opts.align},
		{StageWarping, opts.triangulate},
		{StageFinalizing, opts.warp},
		{StageDone, func(_ context.Context, rc *RunContext) error { return opts.finalize(rc, res) }},
	}
	for _, s := range stages {
		start := time.Now()
		current := rc.Stage()
		if err := s.run(ctx, rc); err != nil {
			log.Error().Err(err).Stringer("stage", current).Msg("averaging failed")
			return nil, err
		}
		log.Debug().Stringer("stage", current).Dur("elapsed", time.Since(start)).Msg("stage completed")

		if err := rc.advance(s.next); err != nil {
			return nil, err
		}
	}

	log.Info().
		Int("used", res.Used).
		Int("skipped", len(res.Skipped)).
		Dur("elapsed", time.Since(now)).
		Msg("average computed")

	return res, nil
}

// load decodes every image together with its landmark file.
func (p *Processor) load(ctx context.Context, rc *RunContext, pairs []Pair) error {
	faces := make([]*face, len(pairs))
	err := forEach(ctx, p.Workers, len(pairs), p.progress(StageLoading), func(i int) error {
		pair := pairs[i]
		if pair.LandmarkPath == "" {
			rc.skip(pair.ImagePath, StageLoading, errSharedSidecar)
			return nil
		}
		pts, err := LoadLandmarks(pair.LandmarkPath, p.Layout)
		if err != nil {
			rc.skip(pair.ImagePath, StageLoading, err)
			return nil
		}
		img, err := LoadRaster(pair.ImagePath)
		if err != nil {
			rc.skip(pair.ImagePath, StageLoading, err)
			return nil
		}
		faces[i] = &face{path: pair.ImagePath, img: img, points: pts}
		return nil
	})
	if err != nil {
		return err
	}
	return rc.keep(faces)
}

// align maps every face onto the canvas so that the eye anchors land on the canonical positions.
func (p *Processor) align(ctx context.Context, rc *RunContext) error {
	var (
		dstEyes  = CanonicalEyes(p.Width, p.Height)
		boundary = BoundaryPoints(p.Width, p.Height)
		faces    = make([]*face, len(rc.faces))
	)
	err := forEach(ctx, p.Workers, len(rc.faces), p.progress(StageAligning), func(i int) error {
		f := rc.faces[i]
		srcEyes := [2]Point{f.points[p.Layout.LeftEye], f.points[p.Layout.RightEye]}

		m, err := SimilarityTransform(srcEyes, dstEyes)
		if err != nil {
			rc.skip(f.path, StageAligning, err)
			return nil
		}
		img, err := WarpAffine(f.img, m, p.Width, p.Height)
		if err != nil {
			rc.skip(f.path, StageAligning, err)
			return nil
		}

		pts := make(Landmarks, 0, len(f.points)+len(boundary))
		pts = append(pts, TransformPoints(m, f.points)...)
		pts = append(pts, boundary...)

		faces[i] = &face{path: f.path, img: img, points: pts}
		return nil
	})
	if err != nil {
		return err
	}
	return rc.keep(faces)
}

// triangulate computes the mean landmarks and their Delaunay mesh.
func (p *Processor) triangulate(ctx context.Context, rc *RunContext) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n := float64(len(rc.faces))
	mean := make(Landmarks, p.Layout.Size+len(BoundaryPoints(p.Width, p.Height)))
	for _, f := range rc.faces {
		for j, pt := range f.points {
			mean[j].X += pt.X / n
			mean[j].Y += pt.Y / n
		}
	}

	mesh, err := Triangulate(image.Rect(0, 0, p.Width, p.Height), mean, p.Tolerance)
	if err != nil {
		return err
	}
	rc.mean, rc.mesh = mean, mesh
	p.Logger.Debug().Int("points", len(mean)).Int("triangles", len(mesh)).Msg("mesh computed")

	return nil
}

// warp morphs every aligned face onto the mean landmarks and accumulates the result.
func (p *Processor) warp(ctx context.Context, rc *RunContext) error {
	return forEach(ctx, p.Workers, len(rc.faces), p.progress(StageWarping), func(i int) error {
		f := rc.faces[i]
		out := NewRaster(p.Width, p.Height)

		for _, tri := range rc.mesh {
			var t1, t2 Triangle
			for k, idx := range tri {
				t1[k] = constrainPoint(f.points[idx], p.Width, p.Height)
				t2[k] = constrainPoint(rc.mean[idx], p.Width, p.Height)
			}
			WarpTriangle(f.img, out, t1, t2)
		}
		rc.merge(out)
		return nil
	})
}

// finalize turns the accumulator into the averaged image.
func (p *Processor) finalize(rc *RunContext, res *Result) error {
	rc.acc.Scale(1 / float32(len(rc.faces)))

	sort.SliceStable(rc.skipped, func(i, j int) bool {
		return rc.skipped[i].Path < rc.skipped[j].Path
	})

	res.Used = len(rc.faces)
	res.Skipped = rc.skipped
	res.Mean = rc.mean
	res.Mesh = rc.mesh
	res.Image = rc.acc.ToNRGBA()

	return nil
}

// keep retains the surviving faces in their original order.
func (rc *RunContext) keep(faces []*face) error {
	rc.faces = nil
	for _, f := range faces {
		if f != nil {
			rc.faces = append(rc.faces, f)
		}
	}
	if len(rc.faces) == 0 {
		return ErrEmptyInput
	}
	return nil
}

// Process computes the average face of the images found in dir and saves it to out.
// The output format is derived from the file extension. No file is created on failure.
func (p *Processor) Process(ctx context.Context, dir, out string) (*Result, error) {
	if _, err := imagingFormat(filepath.Ext(out)); err != nil {
		return nil, err
	}
	res, err := p.Average(ctx, dir)
	if err != nil {
		return nil, err
	}

	f, err := os.Create(out)
	if err != nil {
		return nil, fmt.Errorf("unable to create the destination file: %w", err)
	}
	if err := p.Encode(f, filepath.Ext(out), res.Image); err != nil {
		f.Close()
		os.Remove(out)
		return nil, err
	}
	if err := f.Close(); err != nil {
		os.Remove(out)
		return nil, err
	}
	return res, nil
}

// Encode writes the image to w in the format given by the file extension ext.
func (p *Processor) Encode(w io.Writer, ext string, img image.Image) error {
	return encodeImg(w, ext, img, p.Quality)
}
