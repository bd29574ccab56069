package app

import "errors"

// ErrNotFound and related errors describe validation and runtime failures.
var (
	ErrNotFound                   = errors.New("not found")
	ErrUnsupportedSnapshotVersion = errors.New("unsupported snapshot version")
	ErrInvalidSnapshot            = errors.New("invalid snapshot")
)
