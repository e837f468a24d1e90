package meanface

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// ErrNoFace is returned for images in which the detector finds no face.
var ErrNoFace = errors.New("no face detected")

// DatabaseOptions controls how the landmark database is built.
type DatabaseOptions struct {
	// DeleteErrors removes the images in which no face could be detected.
	DeleteErrors bool
	Workers      int
	Logger       zerolog.Logger
	Progress     func(done, total int)
}

// DatabaseResult counts the sidecar files written and the images which failed.
type DatabaseResult struct {
	Written int
	Failed  int
}

// BuildLandmarkDatabase runs the detector over every image of dir and writes
// the landmarks of the first detected face to the image's sidecar file.
func BuildLandmarkDatabase(ctx context.Context, dir string, detector LandmarkDetector, opts DatabaseOptions) (DatabaseResult, error) {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	log := opts.Logger.With().Str("dir", dir).Logger()

	pairs, _, err := Pairs(dir)
	if err != nil {
		return DatabaseResult{}, err
	}
	log.Info().Int("images", len(pairs)).Msg("building landmark database")

	var written, failed atomic.Int64
	err = forEach(ctx, opts.Workers, len(pairs), opts.Progress, func(i int) error {
		path := pairs[i].ImagePath
		if pairs[i].LandmarkPath == "" {
			failed.Add(1)
			log.Warn().Str("path", path).Err(errSharedSidecar).Msg("image skipped")
			return nil
		}
		if err := writeSidecar(pairs[i], detector); err != nil {
			failed.Add(1)
			log.Warn().Str("path", path).Err(err).Msg("landmark detection failed")

			if opts.DeleteErrors && errors.Is(err, ErrNoFace) {
				if err := os.Remove(path); err != nil {
					log.Error().Str("path", path).Err(err).Msg("could not delete the image")
				} else {
					log.Info().Str("path", path).Msg("image deleted")
				}
			}
			return nil
		}
		written.Add(1)
		return nil
	})

	res := DatabaseResult{Written: int(written.Load()), Failed: int(failed.Load())}
	if err != nil {
		return res, err
	}
	log.Info().Int("written", res.Written).Int("failed", res.Failed).Msg("landmark database built")

	return res, nil
}

func writeSidecar(pair Pair, detector LandmarkDetector) error {
	img, err := decodeImg(pair.ImagePath)
	if err != nil {
		return err
	}
	faces, err := detector.Detect(img)
	if err != nil {
		return err
	}
	if len(faces) == 0 || len(faces[0]) == 0 {
		return ErrNoFace
	}
	if err := SaveLandmarks(pair.LandmarkPath, faces[0]); err != nil {
		return fmt.Errorf("could not write the landmark file: %w", err)
	}
	return nil
}
