package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/esimov/meanface/config"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeAverageFlags(t *testing.T) {
	fs := pflag.NewFlagSet("average", pflag.ContinueOnError)
	fs.StringVar(&averageOpts.layout, "layout", "dlib68", "")
	fs.IntVar(&averageOpts.width, "width", 600, "")
	fs.IntVar(&averageOpts.height, "height", 600, "")
	fs.IntVar(&averageOpts.workers, "workers", 0, "")
	fs.IntVar(&averageOpts.quality, "quality", 95, "")
	fs.Float64Var(&averageOpts.tolerance, "tolerance", 1, "")
	require.NoError(t, fs.Parse([]string{"--width", "300", "--layout", "pigo", "--tolerance", "2.5"}))

	c := config.Default().Average
	c.Height = 480
	mergeAverageFlags(fs, &c)

	assert.Equal(t, 300, c.Width)
	assert.Equal(t, 480, c.Height, "unset flags keep the configured value")
	assert.Equal(t, "pigo", c.Layout)
	assert.Equal(t, 2.5, c.Tolerance)
	assert.Equal(t, 95, c.Quality)
}

func TestAverageCommand_MissingDir(t *testing.T) {
	dir := t.TempDir()
	rootCmd.SetArgs([]string{
		"average",
		"--in", filepath.Join(dir, "missing"),
		"--out", filepath.Join(dir, "average.jpg"),
		"--log-level", "error",
	})

	err := rootCmd.ExecuteContext(context.Background())
	assert.ErrorContains(t, err, "could not read the source directory")
	assert.NoFileExists(t, filepath.Join(dir, "average.jpg"))
}

func TestLandmarksCommand_MissingCascades(t *testing.T) {
	dir := t.TempDir()
	rootCmd.SetArgs([]string{
		"landmarks",
		"--in", dir,
		"--cascade-dir", filepath.Join(dir, "cascade"),
		"--log-level", "error",
	})

	err := rootCmd.ExecuteContext(context.Background())
	assert.ErrorContains(t, err, "facefinder")
}
