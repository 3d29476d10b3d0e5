package nfsmount

import (
	"fmt"
	"io"

	billy "github.com/go-git/go-billy/v5"

	"github.com/structfs/yamlfs/internal/engine"
)

var errReadOnly = fmt.Errorf("read-only file handle")

// readFile implements billy.File over a rendered content snapshot.
// Write and Truncate return errors.
type readFile struct {
	name string
	data []byte
	pos  int64
}

func (f *readFile) Name() string { return f.name }

func (f *readFile) Read(p []byte) (int, error) {
	if f.pos >= int64(len(f.data)) {
		return 0, io.EOF
	}
	n := copy(p, f.data[f.pos:])
	f.pos += int64(n)
	if f.pos >= int64(len(f.data)) {
		return n, io.EOF
	}
	return n, nil
}

func (f *readFile) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(f.data)) {
		return 0, io.EOF
	}
	n := copy(p, f.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (f *readFile) Seek(offset int64, whence int) (int64, error) {
	var newPos int64
	switch whence {
	case io.SeekStart:
		newPos = offset
	case io.SeekCurrent:
		newPos = f.pos + offset
	case io.SeekEnd:
		newPos = int64(len(f.data)) + offset
	}
	if newPos < 0 {
		newPos = 0
	}
	f.pos = newPos
	return f.pos, nil
}

func (f *readFile) Write([]byte) (int, error) { return 0, errReadOnly }
func (f *readFile) Truncate(int64) error      { return errReadOnly }
func (f *readFile) Lock() error               { return nil }
func (f *readFile) Unlock() error             { return nil }
func (f *readFile) Close() error              { return nil }

// writeFile implements billy.File with buffered writes committed
// through the mutation engine on Close. NFS WRITE RPCs arrive as
// individual chunks; the full content exists only at close time.
type writeFile struct {
	name    string
	engine  *engine.Engine
	buf     []byte
	pos     int64
	written bool // set by Write only, never by Truncate
}

func (f *writeFile) Name() string { return f.name }

func (f *writeFile) Read(p []byte) (int, error) {
	if f.pos >= int64(len(f.buf)) {
		return 0, io.EOF
	}
	n := copy(p, f.buf[f.pos:])
	f.pos += int64(n)
	if f.pos >= int64(len(f.buf)) {
		return n, io.EOF
	}
	return n, nil
}

func (f *writeFile) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(f.buf)) {
		return 0, io.EOF
	}
	n := copy(p, f.buf[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (f *writeFile) Write(p []byte) (int, error) {
	end := f.pos + int64(len(p))
	if end > int64(len(f.buf)) {
		grown := make([]byte, end)
		copy(grown, f.buf)
		f.buf = grown
	}
	n := copy(f.buf[f.pos:], p)
	f.pos += int64(n)
	f.written = true
	return n, nil
}

func (f *writeFile) Seek(offset int64, whence int) (int64, error) {
	var newPos int64
	switch whence {
	case io.SeekStart:
		newPos = offset
	case io.SeekCurrent:
		newPos = f.pos + offset
	case io.SeekEnd:
		newPos = int64(len(f.buf)) + offset
	}
	if newPos < 0 {
		newPos = 0
	}
	f.pos = newPos
	return f.pos, nil
}

func (f *writeFile) Truncate(size int64) error {
	if size < int64(len(f.buf)) {
		f.buf = f.buf[:size]
	} else if size > int64(len(f.buf)) {
		grown := make([]byte, size)
		copy(grown, f.buf)
		f.buf = grown
	}
	// NFS SETATTR(size=0) causes a Truncate+Close cycle before WRITE —
	// committing on truncate alone would wipe the target. Only Write
	// marks the handle dirty.
	return nil
}

// Close is the commit point: the buffer goes through type inference
// and atomic persist only if Write was actually called.
func (f *writeFile) Close() error {
	if !f.written {
		return nil
	}
	if err := f.engine.WriteFile(f.name, f.buf); err != nil {
		return fmt.Errorf("write-back failed for %s: %w", f.name, err)
	}
	return nil
}

func (f *writeFile) Lock() error   { return nil }
func (f *writeFile) Unlock() error { return nil }

// Verify file types satisfy billy.File.
var (
	_ billy.File = (*readFile)(nil)
	_ billy.File = (*writeFile)(nil)
)
