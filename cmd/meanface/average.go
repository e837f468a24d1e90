package main

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"time"

	"github.com/esimov/meanface"
	"github.com/esimov/meanface/config"
	"github.com/esimov/meanface/utils"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

var averageOpts struct {
	in          string
	out         string
	meshOverlay string
	layout      string
	width       int
	height      int
	workers     int
	quality     int
	tolerance   float64
}

var averageCmd = &cobra.Command{
	Use:   "average",
	Short: "Average the faces of a directory into a single image",
	Example: `  meanface average --in ./faces --out average.jpg
  meanface average --in ./faces --out - --layout pigo > average.jpg`,
	RunE: runAverage,
}

func init() {
	f := averageCmd.Flags()
	f.StringVar(&averageOpts.in, "in", "", "Directory holding the face images and their landmark files")
	f.StringVar(&averageOpts.out, "out", "average.jpg", "Destination image, or - for stdout")
	f.StringVar(&averageOpts.meshOverlay, "mesh-overlay", "", "Also save the average with the landmark mesh drawn over it")
	f.StringVar(&averageOpts.layout, "layout", "dlib68", "Landmark layout (dlib68, dlib5, pigo)")
	f.IntVar(&averageOpts.width, "width", meanface.DefaultWidth, "Output width")
	f.IntVar(&averageOpts.height, "height", meanface.DefaultHeight, "Output height")
	f.IntVar(&averageOpts.workers, "workers", 0, "Number of faces processed concurrently (0 means one per CPU)")
	f.IntVar(&averageOpts.quality, "quality", meanface.DefaultQuality, "JPEG quality")
	f.Float64Var(&averageOpts.tolerance, "tolerance", meanface.DefaultTolerance, "Vertex matching tolerance in pixels")

	averageCmd.MarkFlagRequired("in")
}

// mergeAverageFlags overrides the configuration with the flags set on the command line.
func mergeAverageFlags(flags *pflag.FlagSet, c *config.AverageConfig) {
	if flags.Changed("layout") {
		c.Layout = averageOpts.layout
	}
	if flags.Changed("width") {
		c.Width = averageOpts.width
	}
	if flags.Changed("height") {
		c.Height = averageOpts.height
	}
	if flags.Changed("workers") {
		c.Workers = averageOpts.workers
	}
	if flags.Changed("quality") {
		c.Quality = averageOpts.quality
	}
	if flags.Changed("tolerance") {
		c.Tolerance = averageOpts.tolerance
	}
}

func runAverage(cmd *cobra.Command, args []string) error {
	mergeAverageFlags(cmd.Flags(), &cfg.Average)
	if err := cfg.Validate(); err != nil {
		return err
	}
	layout, err := meanface.LayoutByName(cfg.Average.Layout)
	if err != nil {
		return err
	}

	toPipe := averageOpts.out == pipeName
	if toPipe && term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("`-` should be used with a pipe for stdout")
	}

	p := &meanface.Processor{
		Width:     cfg.Average.Width,
		Height:    cfg.Average.Height,
		Layout:    layout,
		Tolerance: cfg.Average.Tolerance,
		Workers:   cfg.Average.Workers,
		Quality:   cfg.Average.Quality,
		Logger:    log,
	}

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(utils.DecorateText("⇢ averaging faces", utils.StatusMessage)),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetVisibility(term.IsTerminal(int(os.Stderr.Fd()))),
		progressbar.OptionClearOnFinish(),
	)
	current := meanface.StageDone
	p.Progress = func(stage meanface.Stage, done, total int) {
		if stage != current {
			current = stage
			bar.Reset()
			bar.ChangeMax(total)
			bar.Describe(utils.DecorateText("⇢ "+stage.String(), utils.StatusMessage))
		}
		bar.Set(done)
	}

	now := time.Now()
	var res *meanface.Result
	if toPipe {
		res, err = p.Average(cmd.Context(), averageOpts.in)
		if err == nil {
			err = p.Encode(os.Stdout, "", res.Image)
		}
	} else {
		res, err = p.Process(cmd.Context(), averageOpts.in, averageOpts.out)
	}
	bar.Finish()
	if err != nil {
		return err
	}

	if averageOpts.meshOverlay != "" {
		if err := saveMeshOverlay(p, res, averageOpts.meshOverlay); err != nil {
			return err
		}
	}

	fmt.Fprintf(os.Stderr, "\n%s used, %d skipped (of %d discovered)\n",
		utils.DecorateText(utils.Plural(res.Used, "face", "faces"), utils.SuccessMessage),
		len(res.Skipped), res.Discovered,
	)
	if !toPipe {
		fmt.Fprintf(os.Stderr, "The image has been saved as: %s\n",
			utils.DecorateText(filepath.Base(averageOpts.out), utils.SuccessMessage),
		)
	}
	fmt.Fprintf(os.Stderr, "Execution time: %s\n",
		utils.DecorateText(utils.FormatTime(time.Since(now)), utils.SuccessMessage),
	)
	return nil
}

// saveMeshOverlay draws the mean landmarks and their triangulation over the averaged face.
func saveMeshOverlay(p *meanface.Processor, res *meanface.Result, path string) error {
	img := meanface.DrawMesh(res.Image, res.Mean, res.Mesh,
		color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff},
		color.NRGBA{R: 0xff, A: 0xff},
	)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create the mesh overlay file: %w", err)
	}
	if err := p.Encode(f, filepath.Ext(path), img); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}
