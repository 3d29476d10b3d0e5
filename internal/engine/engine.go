// Package engine implements the document-backed filesystem core: path
// resolution, multi-format rendering, type-aware mutation, ephemeral
// dot-files, and reload/cache coordination over a single YAML source
// file. Kernel-facing adapters (FUSE, NFS) drive the same engine
// unchanged.
package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/structfs/yamlfs/internal/doc"
)

// Config constructs an engine instance.
type Config struct {
	// SourcePath is the backing YAML file. A missing file starts an
	// empty document; a malformed one is fatal at mount time.
	SourcePath string
	// DefaultFormat applies when a path carries no format suffix.
	DefaultFormat Format
	Logger        *zap.Logger
}

// Attr describes a resolved entry for stat-style calls. Fixed mode
// defaults (0644 files, 0755 directories) are applied by the adapters.
type Attr struct {
	Dir  bool
	Size int64
}

// document pairs the parsed tree with its coordination state. The
// whole value is replaced on reload; it is never patched in place.
type document struct {
	root  *doc.Node
	mtime time.Time
	// dirty is set by any mutation not yet persisted and survives a
	// failed persist so a retry can re-attempt it.
	dirty bool
	// listings caches directory child names per canonical path. A
	// mutation invalidates exactly its parent's entry; reload drops
	// the whole map.
	listings map[string][]string
}

// Engine owns the single live document for a mounted filesystem.
type Engine struct {
	srcPath       string
	defaultFormat Format
	log           *zap.Logger

	// mu guards doc. Mutations and reloads run exclusive; rendering,
	// resolution, and listings run shared.
	mu  sync.RWMutex
	doc *document

	// eph has its own lock: reloads never touch it.
	eph *ephemeralStore
}

// New parses the source file and returns a ready engine. Parse failure
// at this point is fatal; the caller should refuse to mount.
func New(cfg Config) (*Engine, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{
		srcPath:       cfg.SourcePath,
		defaultFormat: cfg.DefaultFormat,
		log:           log,
		eph:           newEphemeralStore(),
	}

	text, err := os.ReadFile(cfg.SourcePath)
	switch {
	case err == nil:
		root, perr := doc.Parse(text)
		if perr != nil {
			return nil, fmt.Errorf("parse %s: %w", cfg.SourcePath, perr)
		}
		var mtime time.Time
		if info, serr := os.Stat(cfg.SourcePath); serr == nil {
			mtime = info.ModTime()
		}
		e.doc = newDocument(root, mtime)
	case os.IsNotExist(err):
		log.Warn("source file missing, starting with empty document",
			zap.String("source", cfg.SourcePath))
		e.doc = newDocument(doc.NewMapping(), time.Time{})
	default:
		return nil, fmt.Errorf("read %s: %w", cfg.SourcePath, err)
	}

	log.Info("document loaded",
		zap.String("source", cfg.SourcePath),
		zap.Stringer("default_format", cfg.DefaultFormat))
	return e, nil
}

func newDocument(root *doc.Node, mtime time.Time) *document {
	return &document{root: root, mtime: mtime, listings: make(map[string][]string)}
}

// DefaultFormat reports the format applied to suffix-less paths.
func (e *Engine) DefaultFormat() Format { return e.defaultFormat }

// SourcePath reports the backing file path.
func (e *Engine) SourcePath() string { return e.srcPath }

// refresh is the lazy reload check run at the head of every externally
// observable call. A changed source mtime triggers a wholesale re-parse;
// on parse failure the previous document is kept, the error is surfaced
// to this caller only, and the recorded mtime is not advanced, so the
// next access re-evaluates instead of caching the failure. An external
// reload discards any uncommitted in-memory mutation (last reload wins).
func (e *Engine) refresh() error {
	info, err := os.Stat(e.srcPath)
	if err != nil {
		// Source missing or unreadable: keep serving the current tree.
		return nil
	}
	mtime := info.ModTime()

	e.mu.RLock()
	fresh := mtime.Equal(e.doc.mtime)
	e.mu.RUnlock()
	if fresh {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if mtime.Equal(e.doc.mtime) {
		return nil // another caller already reloaded
	}
	text, err := os.ReadFile(e.srcPath)
	if err != nil {
		return fmt.Errorf("reload %s: %w", e.srcPath, err)
	}
	root, err := doc.Parse(text)
	if err != nil {
		e.log.Warn("reload failed, keeping previous document",
			zap.String("source", e.srcPath), zap.Error(err))
		return err
	}
	e.doc = newDocument(root, mtime)
	e.log.Debug("document reloaded", zap.String("source", e.srcPath))
	return nil
}

// effectiveFormat applies the engine default when no suffix was given.
func (e *Engine) effectiveFormat(loc located) Format {
	if loc.hasFormat {
		return loc.format
	}
	return e.defaultFormat
}

func (e *Engine) renderLocked(loc located) ([]byte, error) {
	return Render(loc.node, e.effectiveFormat(loc))
}

// Attr resolves a path and reports whether it is a directory and, for
// files, the byte length of its rendered content.
func (e *Engine) Attr(path string) (Attr, error) {
	if err := e.refresh(); err != nil {
		return Attr{}, err
	}
	if isEphemeralPath(path) {
		data, ok := e.eph.get(cleanPath(path))
		if !ok {
			return Attr{}, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return Attr{Size: int64(len(data))}, nil
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	loc, err := e.resolve(path)
	if err != nil {
		return Attr{}, err
	}
	switch loc.kind {
	case locRoot:
		return Attr{Dir: true}, nil
	case locNode:
		// An explicit format suffix requests a file view even of a
		// structured node; without one, structured nodes are dirs.
		if loc.node.IsDir() && !loc.hasFormat {
			return Attr{Dir: true}, nil
		}
		content, err := e.renderLocked(loc)
		if err != nil {
			return Attr{}, err
		}
		return Attr{Size: int64(len(content))}, nil
	}
	return Attr{}, fmt.Errorf("%s: %w", path, ErrNotFound)
}

// ReadDir lists a directory: document children first (mapping keys in
// insertion order, sequence indices in position order), then any
// ephemeral entries parented at this path.
func (e *Engine) ReadDir(path string) ([]string, error) {
	if err := e.refresh(); err != nil {
		return nil, err
	}
	clean := cleanPath(path)
	if isEphemeralPath(path) {
		if _, ok := e.eph.get(clean); ok {
			return nil, fmt.Errorf("%s: %w", path, ErrNotDir)
		}
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}

	e.mu.RLock()
	names, ok := e.doc.listings[clean]
	e.mu.RUnlock()

	if !ok {
		e.mu.Lock()
		var err error
		names, err = e.listLocked(clean)
		if err == nil {
			e.doc.listings[clean] = names
		}
		e.mu.Unlock()
		if err != nil {
			return nil, err
		}
	}

	eph := e.eph.listUnder(clean)
	sort.Strings(eph)
	out := make([]string, 0, len(names)+len(eph))
	out = append(out, names...)
	out = append(out, eph...)
	return out, nil
}

// listLocked recomputes a directory snapshot from the document tree.
func (e *Engine) listLocked(path string) ([]string, error) {
	loc, err := e.resolve(path)
	if err != nil {
		return nil, err
	}
	var n *doc.Node
	switch loc.kind {
	case locRoot:
		n = e.doc.root
	case locNode:
		// A format suffix selects a file view; it never lists.
		if loc.hasFormat {
			return nil, fmt.Errorf("%s: %w", path, ErrNotDir)
		}
		n = loc.node
	default:
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	switch n.Kind {
	case doc.KindMapping:
		names := make([]string, 0, n.Fields.Len())
		for p := n.Fields.Oldest(); p != nil; p = p.Next() {
			names = append(names, p.Key)
		}
		return names, nil
	case doc.KindSequence:
		names := make([]string, len(n.Items))
		for i := range n.Items {
			names[i] = strconv.Itoa(i)
		}
		return names, nil
	}
	return nil, fmt.Errorf("%s: %w", path, ErrNotDir)
}

// ReadAll renders the full content of a file path. Ephemeral content
// is echoed back verbatim regardless of any suffix.
func (e *Engine) ReadAll(path string) ([]byte, error) {
	if err := e.refresh(); err != nil {
		return nil, err
	}
	if isEphemeralPath(path) {
		data, ok := e.eph.get(cleanPath(path))
		if !ok {
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return data, nil
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	loc, err := e.resolve(path)
	if err != nil {
		return nil, err
	}
	switch loc.kind {
	case locRoot:
		return nil, fmt.Errorf("%s: %w", path, ErrIsDir)
	case locNode:
		if loc.node.IsDir() && !loc.hasFormat {
			return nil, fmt.Errorf("%s: %w", path, ErrIsDir)
		}
		return e.renderLocked(loc)
	}
	return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
}

// persistLocked serializes the document and atomically replaces the
// source file (temp file in the same directory, then rename), so a
// crash mid-write never leaves a truncated document. The recorded
// mtime is re-stamped afterwards to keep the next access from
// re-triggering a spurious reload of the just-written content. The
// dirty flag survives a failed persist.
func (e *Engine) persistLocked() error {
	text, err := doc.Serialize(e.doc.root)
	if err != nil {
		return fmt.Errorf("serialize document: %w", err)
	}

	dir := filepath.Dir(e.srcPath)
	tmp, err := os.CreateTemp(dir, ".yamlfs-*")
	if err != nil {
		return fmt.Errorf("persist %s: %w", e.srcPath, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(text); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("persist %s: %w", e.srcPath, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("persist %s: %w", e.srcPath, err)
	}
	if err := os.Rename(tmpName, e.srcPath); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("persist %s: %w", e.srcPath, err)
	}

	e.doc.dirty = false
	if info, err := os.Stat(e.srcPath); err == nil {
		e.doc.mtime = info.ModTime()
	}
	return nil
}

// invalidateLocked drops exactly the given directory's cached listing.
func (e *Engine) invalidateLocked(dir string) {
	delete(e.doc.listings, dir)
}

// invalidateSubtreeLocked drops the cached listing of path and of
// everything beneath it. Used when a mutation replaces or removes a
// node that may itself have been listed as a directory.
func (e *Engine) invalidateSubtreeLocked(path string) {
	prefix := path + "/"
	for key := range e.doc.listings {
		if key == path || strings.HasPrefix(key, prefix) {
			delete(e.doc.listings, key)
		}
	}
}
