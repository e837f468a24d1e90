package meanface

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Pair links a face image to its landmark sidecar.
type Pair struct {
	ImagePath    string
	LandmarkPath string
}

// Pairs lists the face images of dir in lexical order, each paired by file
// stem with its landmark sidecar. The sidecar path is set even when the file
// does not exist, in which case the face fails to load.
// When several images share a stem, only the first one owns the sidecar;
// the others are listed with an empty LandmarkPath.
// Landmark files with no matching image are returned as orphans.
func Pairs(dir string) ([]Pair, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("could not read the source directory: %w", err)
	}

	var (
		pairs   []Pair
		sidecar []string
		stems   = make(map[string]bool)
	)
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		name := e.Name()
		path := filepath.Join(dir, name)
		switch {
		case isImageFile(name):
			pair := Pair{ImagePath: path}
			if !stems[stem(name)] {
				pair.LandmarkPath = SidecarPath(path)
				stems[stem(name)] = true
			}
			pairs = append(pairs, pair)
		case strings.ToLower(filepath.Ext(name)) == ".txt":
			sidecar = append(sidecar, path)
		}
	}

	var orphans []string
	for _, path := range sidecar {
		if !stems[stem(filepath.Base(path))] {
			orphans = append(orphans, path)
		}
	}
	return pairs, orphans, nil
}

func stem(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// forEach runs fn over the indices [0, n) on at most workers goroutines.
// fn reports per item failures by itself; a returned error aborts the whole batch.
// The progress callback, when set, is invoked once per completed item.
func forEach(
	ctx context.Context,
	workers, n int,
	progress func(done, total int),
	fn func(i int) error,
) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var (
		mu   sync.Mutex
		done int
	)
	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := fn(i); err != nil {
				return err
			}
			if progress != nil {
				mu.Lock()
				done++
				progress(done, n)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
