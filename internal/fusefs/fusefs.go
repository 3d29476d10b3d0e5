// Package fusefs adapts the engine to the cgofuse host interface.
// Engine errors are translated to POSIX errno values here; writes are
// buffered per file handle and committed when the handle is released,
// since the kernel delivers them as arbitrary-sized chunks.
package fusefs

import (
	"errors"
	"sync"
	"time"

	"github.com/winfsp/cgofuse/fuse"
	"go.uber.org/zap"

	"github.com/structfs/yamlfs/internal/doc"
	"github.com/structfs/yamlfs/internal/engine"
)

// FS implements the FUSE interface from cgofuse over an Engine.
type FS struct {
	fuse.FileSystemBase
	engine    *engine.Engine
	log       *zap.Logger
	mountTime fuse.Timespec

	mu      sync.Mutex
	handles map[uint64]*handle
	nextFH  uint64
}

// handle buffers writes between Open/Create and Release.
type handle struct {
	path    string
	buf     []byte
	written bool
}

// New wraps an engine in a cgofuse filesystem.
func New(e *engine.Engine, log *zap.Logger) *FS {
	if log == nil {
		log = zap.NewNop()
	}
	return &FS{
		engine:    e,
		log:       log,
		mountTime: fuse.NewTimespec(time.Now()),
		handles:   make(map[uint64]*handle),
	}
}

// Host returns a cgofuse host ready to mount.
func Host(e *engine.Engine, log *zap.Logger) *fuse.FileSystemHost {
	return fuse.NewFileSystemHost(New(e, log))
}

// errno translates engine errors into negative POSIX codes.
func errno(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, engine.ErrNotFound):
		return -fuse.ENOENT
	case errors.Is(err, engine.ErrNotDir):
		return -fuse.ENOTDIR
	case errors.Is(err, engine.ErrIsDir):
		return -fuse.EISDIR
	case errors.Is(err, engine.ErrExists):
		return -fuse.EEXIST
	case errors.Is(err, engine.ErrInvalidPath):
		return -fuse.EINVAL
	case errors.Is(err, doc.ErrFormat):
		return -fuse.EIO
	default:
		return -fuse.EIO
	}
}

// Getattr reports fixed 0644/0755 modes and the rendered content size.
func (fs *FS) Getattr(path string, stat *fuse.Stat_t, fh uint64) int {
	stat.Atim = fs.mountTime
	stat.Mtim = fs.mountTime
	stat.Ctim = fs.mountTime
	stat.Birthtim = fs.mountTime

	attr, err := fs.engine.Attr(path)
	if err != nil {
		return errno(err)
	}
	if attr.Dir {
		stat.Mode = fuse.S_IFDIR | 0o755
		stat.Nlink = 2
		return 0
	}
	stat.Mode = fuse.S_IFREG | 0o644
	stat.Nlink = 1
	stat.Size = attr.Size
	return 0
}

func (fs *FS) Opendir(path string) (int, uint64) {
	attr, err := fs.engine.Attr(path)
	if err != nil {
		return errno(err), ^uint64(0)
	}
	if !attr.Dir {
		return -fuse.ENOTDIR, ^uint64(0)
	}
	return 0, 0
}

func (fs *FS) Readdir(path string, fill func(name string, stat *fuse.Stat_t, ofst int64) bool, ofst int64, fh uint64) int {
	names, err := fs.engine.ReadDir(path)
	if err != nil {
		return errno(err)
	}
	fill(".", nil, 0)
	fill("..", nil, 0)
	for _, name := range names {
		if !fill(name, nil, 0) {
			break
		}
	}
	return 0
}

// Open validates the target and allocates a write buffer handle. For
// write-capable opens without O_TRUNC the buffer is pre-filled with
// the current rendering so partial writes splice correctly.
func (fs *FS) Open(path string, flags int) (int, uint64) {
	attr, err := fs.engine.Attr(path)
	if err != nil {
		return errno(err), ^uint64(0)
	}
	if attr.Dir {
		return -fuse.EISDIR, ^uint64(0)
	}

	h := &handle{path: path}
	writing := flags&(fuse.O_WRONLY|fuse.O_RDWR) != 0
	if writing && flags&fuse.O_TRUNC == 0 {
		if content, err := fs.engine.ReadAll(path); err == nil {
			h.buf = content
		}
	}
	return 0, fs.addHandle(h)
}

func (fs *FS) Create(path string, flags int, mode uint32) (int, uint64) {
	if err := fs.engine.Create(path); err != nil {
		return errno(err), ^uint64(0)
	}
	return 0, fs.addHandle(&handle{path: path})
}

func (fs *FS) Read(path string, buff []byte, ofst int64, fh uint64) int {
	content, err := fs.engine.ReadAll(path)
	if err != nil {
		return errno(err)
	}
	if ofst >= int64(len(content)) {
		return 0
	}
	end := ofst + int64(len(buff))
	if end > int64(len(content)) {
		end = int64(len(content))
	}
	return copy(buff, content[ofst:end])
}

// Write splices into the handle buffer; nothing reaches the document
// until Release.
func (fs *FS) Write(path string, buff []byte, ofst int64, fh uint64) int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	h, ok := fs.handles[fh]
	if !ok {
		return -fuse.EBADF
	}
	end := ofst + int64(len(buff))
	if end > int64(len(h.buf)) {
		grown := make([]byte, end)
		copy(grown, h.buf)
		h.buf = grown
	}
	n := copy(h.buf[ofst:], buff)
	h.written = true
	return n
}

// Truncate applies immediately through the engine and also resizes
// any open handle buffer so staged writes stay consistent. The buffer
// resize alone does not mark the handle written: an O_TRUNC open is
// followed by Write calls that do.
func (fs *FS) Truncate(path string, size int64, fh uint64) int {
	fs.mu.Lock()
	if h, ok := fs.handles[fh]; ok {
		switch {
		case size < int64(len(h.buf)):
			h.buf = h.buf[:size]
		case size > int64(len(h.buf)):
			grown := make([]byte, size)
			copy(grown, h.buf)
			h.buf = grown
		}
	}
	fs.mu.Unlock()
	return errno(fs.engine.Truncate(path, size))
}

// Release is the commit point: a handle that saw writes flushes its
// buffer through the mutation engine.
func (fs *FS) Release(path string, fh uint64) int {
	fs.mu.Lock()
	h, ok := fs.handles[fh]
	delete(fs.handles, fh)
	fs.mu.Unlock()
	if !ok || !h.written {
		return 0
	}
	if err := fs.engine.WriteFile(h.path, h.buf); err != nil {
		fs.log.Warn("write-back failed", zap.String("path", h.path), zap.Error(err))
		return errno(err)
	}
	return 0
}

func (fs *FS) Flush(path string, fh uint64) int {
	return 0
}

func (fs *FS) Unlink(path string) int {
	return errno(fs.engine.Remove(path))
}

func (fs *FS) Rmdir(path string) int {
	return errno(fs.engine.Remove(path))
}

func (fs *FS) Mkdir(path string, mode uint32) int {
	return errno(fs.engine.Mkdir(path))
}

func (fs *FS) Rename(oldpath, newpath string) int {
	return errno(fs.engine.Rename(oldpath, newpath))
}

func (fs *FS) Utimens(path string, tmsp []fuse.Timespec) int {
	return 0
}

func (fs *FS) addHandle(h *handle) uint64 {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.nextFH++
	fs.handles[fs.nextFH] = h
	return fs.nextFH
}
