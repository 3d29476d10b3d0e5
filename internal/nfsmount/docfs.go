// Package nfsmount provides an NFS-based mount backend. It adapts the
// engine to billy.Filesystem for use with willscott/go-nfs as an
// alternative to the FUSE layer; both backends drive the same core.
package nfsmount

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/helper/chroot"
	"go.uber.org/zap"

	"github.com/structfs/yamlfs/internal/engine"
)

// DocFS adapts the engine to billy.Filesystem. This is the bridge
// between the document projection and go-nfs.
type DocFS struct {
	engine    *engine.Engine
	log       *zap.Logger
	mountTime time.Time
}

// NewDocFS creates a billy.Filesystem backed by the engine.
func NewDocFS(e *engine.Engine, log *zap.Logger) *DocFS {
	if log == nil {
		log = zap.NewNop()
	}
	return &DocFS{engine: e, log: log, mountTime: time.Now()}
}

// pathErr wraps an engine error as *os.PathError with the stdlib
// sentinel go-nfs understands where one exists.
func pathErr(op, path string, err error) error {
	switch {
	case errors.Is(err, engine.ErrNotFound):
		err = os.ErrNotExist
	case errors.Is(err, engine.ErrExists):
		err = os.ErrExist
	}
	return &os.PathError{Op: op, Path: path, Err: err}
}

// --- billy.Basic ---

func (fs *DocFS) Create(filename string) (billy.File, error) {
	filename = cleanPath(filename)
	if err := fs.engine.Create(filename); err != nil {
		return nil, pathErr("create", filename, err)
	}
	return &writeFile{name: filename, engine: fs.engine}, nil
}

func (fs *DocFS) Open(filename string) (billy.File, error) {
	return fs.OpenFile(filename, os.O_RDONLY, 0)
}

func (fs *DocFS) OpenFile(filename string, flag int, perm os.FileMode) (billy.File, error) {
	filename = cleanPath(filename)

	writing := flag&(os.O_WRONLY|os.O_RDWR|os.O_CREATE|os.O_TRUNC) != 0
	if writing {
		return fs.openWritable(filename, flag)
	}

	content, err := fs.engine.ReadAll(filename)
	if err != nil {
		return nil, pathErr("open", filename, err)
	}
	return &readFile{name: filename, data: content}, nil
}

// openWritable buffers writes and commits the final content through
// the mutation engine when the file is closed.
func (fs *DocFS) openWritable(filename string, flag int) (billy.File, error) {
	attr, err := fs.engine.Attr(filename)
	switch {
	case err == nil && attr.Dir:
		return nil, pathErr("open", filename, engine.ErrIsDir)
	case err != nil && !errors.Is(err, engine.ErrNotFound):
		return nil, pathErr("open", filename, err)
	case err != nil && flag&os.O_CREATE == 0:
		return nil, pathErr("open", filename, err)
	}

	f := &writeFile{name: filename, engine: fs.engine}
	if err == nil && flag&os.O_TRUNC == 0 {
		content, rerr := fs.engine.ReadAll(filename)
		if rerr != nil {
			return nil, pathErr("open", filename, rerr)
		}
		f.buf = content
	}
	return f, nil
}

func (fs *DocFS) Stat(filename string) (os.FileInfo, error) {
	return fs.Lstat(filename)
}

func (fs *DocFS) Rename(oldpath, newpath string) error {
	oldpath, newpath = cleanPath(oldpath), cleanPath(newpath)
	if err := fs.engine.Rename(oldpath, newpath); err != nil {
		return pathErr("rename", oldpath, err)
	}
	return nil
}

func (fs *DocFS) Remove(filename string) error {
	filename = cleanPath(filename)
	if err := fs.engine.Remove(filename); err != nil {
		return pathErr("remove", filename, err)
	}
	return nil
}

func (fs *DocFS) Join(elem ...string) string {
	return filepath.Join(elem...)
}

// --- billy.TempFile ---

func (fs *DocFS) TempFile(dir, prefix string) (billy.File, error) {
	return nil, billy.ErrNotSupported
}

// --- billy.Dir ---

func (fs *DocFS) ReadDir(path string) ([]os.FileInfo, error) {
	path = cleanPath(path)

	names, err := fs.engine.ReadDir(path)
	if err != nil {
		return nil, pathErr("readdir", path, err)
	}

	infos := make([]os.FileInfo, 0, len(names))
	for _, name := range names {
		attr, err := fs.engine.Attr(fs.Join(path, name))
		if err != nil {
			continue
		}
		infos = append(infos, attrToFileInfo(name, attr, fs.mountTime))
	}
	return infos, nil
}

func (fs *DocFS) MkdirAll(filename string, perm os.FileMode) error {
	filename = cleanPath(filename)
	if filename == "/" {
		return nil
	}
	segs := strings.Split(strings.Trim(filename, "/"), "/")
	cur := ""
	for _, seg := range segs {
		cur = cur + "/" + seg
		err := fs.engine.Mkdir(cur)
		if err != nil && !errors.Is(err, engine.ErrExists) {
			return pathErr("mkdir", cur, err)
		}
	}
	return nil
}

// --- billy.Symlink ---

func (fs *DocFS) Lstat(filename string) (os.FileInfo, error) {
	filename = cleanPath(filename)
	attr, err := fs.engine.Attr(filename)
	if err != nil {
		return nil, pathErr("lstat", filename, err)
	}
	name := filepath.Base(filename)
	if filename == "/" {
		name = "/"
	}
	return attrToFileInfo(name, attr, fs.mountTime), nil
}

func (fs *DocFS) Symlink(target, link string) error {
	return billy.ErrNotSupported
}

func (fs *DocFS) Readlink(link string) (string, error) {
	return "", billy.ErrNotSupported
}

// --- billy.Chroot ---

func (fs *DocFS) Chroot(path string) (billy.Filesystem, error) {
	return chroot.New(fs, path), nil
}

func (fs *DocFS) Root() string {
	return "/"
}

// --- billy.Capable ---

func (fs *DocFS) Capabilities() billy.Capability {
	return billy.ReadCapability | billy.WriteCapability | billy.SeekCapability
}

// --- internals ---

// cleanPath normalizes a billy path to a clean absolute path.
func cleanPath(path string) string {
	path = filepath.Clean("/" + path)
	if path == "." {
		return "/"
	}
	return path
}

// attrToFileInfo converts an engine.Attr to os.FileInfo with the fixed
// mode defaults.
func attrToFileInfo(name string, attr engine.Attr, modTime time.Time) os.FileInfo {
	mode := os.FileMode(0o644)
	if attr.Dir {
		mode = os.ModeDir | 0o755
	}
	return &staticFileInfo{
		name:    name,
		size:    attr.Size,
		mode:    mode,
		modTime: modTime,
	}
}

// staticFileInfo implements os.FileInfo with static values.
type staticFileInfo struct {
	name    string
	size    int64
	mode    os.FileMode
	modTime time.Time
}

func (fi *staticFileInfo) Name() string       { return fi.name }
func (fi *staticFileInfo) Size() int64        { return fi.size }
func (fi *staticFileInfo) Mode() os.FileMode  { return fi.mode }
func (fi *staticFileInfo) ModTime() time.Time { return fi.modTime }
func (fi *staticFileInfo) IsDir() bool        { return fi.mode.IsDir() }
func (fi *staticFileInfo) Sys() interface{}   { return nil }

// Compile-time interface checks.
var (
	_ billy.Filesystem = (*DocFS)(nil)
	_ billy.Capable    = (*DocFS)(nil)
)
