package engine

import "errors"

// Error taxonomy surfaced by the engine. Adapters translate these
// sentinels into POSIX errno values at the mount boundary; anything
// not matched (including doc.ErrFormat and persist failures) maps to
// an I/O error.
var (
	ErrNotFound    = errors.New("path not found")
	ErrNotDir      = errors.New("not a directory")
	ErrIsDir       = errors.New("is a directory")
	ErrExists      = errors.New("entry already exists")
	ErrInvalidPath = errors.New("invalid path")
)
