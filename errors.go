package meanface

import (
	"errors"
	"fmt"
)

var (
	// ErrDegenerateInput is returned when the two alignment points coincide,
	// so no rotation or scale can be derived from them.
	ErrDegenerateInput = errors.New("degenerate input: alignment points coincide")

	// ErrInsufficientMesh is returned when the triangulation yields no usable triangle.
	ErrInsufficientMesh = errors.New("insufficient mesh: triangulation produced no triangles")

	// ErrEmptyInput is returned when no face survives loading or alignment.
	ErrEmptyInput = errors.New("empty input: no valid faces to average")

	// ErrCorruptLandmarkFile is returned when a landmark sidecar is missing,
	// malformed or holds an unexpected number of points.
	ErrCorruptLandmarkFile = errors.New("corrupt landmark file")

	// ErrUnsupportedImageFormat is returned when a file can't be decoded as an image.
	ErrUnsupportedImageFormat = errors.New("unsupported image format")
)

// errSharedSidecar marks an image whose stem is already paired with another image.
var errSharedSidecar = fmt.Errorf("%w: sidecar already paired with another image of the same name", ErrCorruptLandmarkFile)
