package engine

import (
	"fmt"

	"github.com/structfs/yamlfs/internal/doc"
)

// WriteFile replaces the content at path with the given bytes. For
// ephemeral paths the bytes are stored verbatim with no document
// mutation and no persistence. Otherwise a scalar is inferred from the
// bytes and replaces (or creates) the target node, the parent listing
// is invalidated, and the document is persisted atomically.
func (e *Engine) WriteFile(path string, data []byte) error {
	if err := e.refresh(); err != nil {
		return err
	}
	if isEphemeralPath(path) {
		e.eph.set(cleanPath(path), data)
		return nil
	}
	return e.writeCommitted(path, data)
}

// Create makes an empty file: an empty string scalar, or an empty
// ephemeral entry for dot-prefixed paths.
func (e *Engine) Create(path string) error {
	return e.WriteFile(path, nil)
}

// Mkdir creates an empty mapping node at path. Dot-prefixed names are
// rejected: ephemeral entries are files only.
func (e *Engine) Mkdir(path string) error {
	if err := e.refresh(); err != nil {
		return err
	}
	if isEphemeralPath(path) {
		return fmt.Errorf("mkdir %s: %w", path, ErrInvalidPath)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	loc, err := e.resolve(path)
	if err != nil {
		// A scalar parent cannot hold children.
		return fmt.Errorf("mkdir %s: %w", path, err)
	}
	switch loc.kind {
	case locRoot, locNode:
		return fmt.Errorf("mkdir %s: %w", path, ErrExists)
	case locNewEntry:
		if err := e.insertLocked(loc, doc.NewMapping()); err != nil {
			return err
		}
	}
	e.doc.dirty = true
	e.invalidateLocked(parentDir(path))
	return e.persistLocked()
}

// Remove deletes a file or directory. Removing a sequence element
// shifts the later siblings' indices down, which changes their
// addressable paths; this is an accepted edge case of the index-named
// view, not a bug.
func (e *Engine) Remove(path string) error {
	if err := e.refresh(); err != nil {
		return err
	}
	if isEphemeralPath(path) {
		if !e.eph.remove(cleanPath(path)) {
			return fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	loc, err := e.resolve(path)
	if err != nil {
		return err
	}
	switch loc.kind {
	case locRoot:
		return fmt.Errorf("remove %s: %w", path, ErrInvalidPath)
	case locNewEntry:
		return fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	e.detachLocked(loc)
	e.doc.dirty = true
	e.invalidateLocked(parentDir(path))
	e.invalidateSubtreeLocked(canonicalPath(path))
	return e.persistLocked()
}

// Truncate resizes a file. Size zero replaces the target with an empty
// string scalar (the usual O_TRUNC path); a positive size cuts the
// rendered content and re-infers its type. A zero-size truncate of a
// missing target creates it empty; a positive size has no content to
// cut from and reports NotFound.
func (e *Engine) Truncate(path string, size int64) error {
	if err := e.refresh(); err != nil {
		return err
	}
	if isEphemeralPath(path) {
		e.eph.truncate(cleanPath(path), size)
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	loc, err := e.resolve(path)
	if err != nil {
		return err
	}
	var node *doc.Node
	switch loc.kind {
	case locRoot:
		return fmt.Errorf("truncate %s: %w", path, ErrIsDir)
	case locNewEntry:
		if size != 0 {
			return fmt.Errorf("truncate %s: %w", path, ErrNotFound)
		}
		node = doc.NewScalar("")
	case locNode:
		if loc.node.IsDir() && !loc.hasFormat {
			return fmt.Errorf("truncate %s: %w", path, ErrIsDir)
		}
		if size == 0 {
			node = doc.NewScalar("")
		} else {
			content, rerr := e.renderLocked(loc)
			if rerr != nil {
				return rerr
			}
			if int64(len(content)) > size {
				content = content[:size]
			}
			node = doc.InferNode(content)
		}
	}
	if err := e.insertLocked(loc, node); err != nil {
		return err
	}
	e.doc.dirty = true
	e.invalidateLocked(parentDir(path))
	e.invalidateSubtreeLocked(canonicalPath(path))
	return e.persistLocked()
}

// Rename moves a subtree or ephemeral entry. It is remove-then-insert
// of the detached content; moves between the ephemeral store and the
// document are permitted and carry the raw content across.
func (e *Engine) Rename(oldPath, newPath string) error {
	if err := e.refresh(); err != nil {
		return err
	}
	oldEph, newEph := isEphemeralPath(oldPath), isEphemeralPath(newPath)

	switch {
	case oldEph && newEph:
		if !e.eph.rename(cleanPath(oldPath), cleanPath(newPath)) {
			return fmt.Errorf("%s: %w", oldPath, ErrNotFound)
		}
		return nil

	case oldEph:
		// Ephemeral content becomes a committed scalar.
		data, ok := e.eph.get(cleanPath(oldPath))
		if !ok {
			return fmt.Errorf("%s: %w", oldPath, ErrNotFound)
		}
		if err := e.writeCommitted(newPath, data); err != nil {
			return err
		}
		e.eph.remove(cleanPath(oldPath))
		return nil

	case newEph:
		// A committed node leaves the document; its raw rendering
		// moves into the ephemeral store.
		e.mu.Lock()
		loc, err := e.resolve(oldPath)
		if err != nil {
			e.mu.Unlock()
			return err
		}
		if loc.kind != locNode {
			e.mu.Unlock()
			return fmt.Errorf("%s: %w", oldPath, ErrNotFound)
		}
		content, err := Render(loc.node, FormatRaw)
		if err != nil {
			e.mu.Unlock()
			return err
		}
		e.detachLocked(loc)
		e.doc.dirty = true
		e.invalidateLocked(parentDir(oldPath))
		e.invalidateSubtreeLocked(canonicalPath(oldPath))
		err = e.persistLocked()
		e.mu.Unlock()
		if err != nil {
			return err
		}
		e.eph.set(cleanPath(newPath), content)
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	oldLoc, err := e.resolve(oldPath)
	if err != nil {
		return err
	}
	if oldLoc.kind != locNode {
		return fmt.Errorf("%s: %w", oldPath, ErrNotFound)
	}
	if _, err := e.resolve(newPath); err != nil {
		return err
	}
	// The destination must be re-resolved after the detach: removing
	// from a shared sequence parent shifts sibling indices, and a
	// destination inside the moved subtree only becomes invalid once
	// the subtree is gone. Any failure past this point reattaches the
	// subtree at its original position.
	subtree := oldLoc.node
	reattach := e.detachForMoveLocked(oldLoc)
	newLoc, err := e.resolve(newPath)
	if err != nil {
		reattach()
		return err
	}
	if err := e.insertLocked(newLoc, subtree); err != nil {
		reattach()
		return err
	}
	e.doc.dirty = true
	e.invalidateLocked(parentDir(oldPath))
	e.invalidateLocked(parentDir(newPath))
	e.invalidateSubtreeLocked(canonicalPath(oldPath))
	e.invalidateSubtreeLocked(canonicalPath(newPath))
	return e.persistLocked()
}

// writeCommitted applies a scalar write to the document and persists.
func (e *Engine) writeCommitted(path string, data []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	loc, err := e.resolve(path)
	if err != nil {
		return err
	}
	if loc.kind == locRoot {
		return fmt.Errorf("write %s: %w", path, ErrIsDir)
	}
	if err := e.insertLocked(loc, doc.InferNode(data)); err != nil {
		return err
	}
	e.doc.dirty = true
	e.invalidateLocked(parentDir(path))
	e.invalidateSubtreeLocked(canonicalPath(path))
	return e.persistLocked()
}

// insertLocked places node at the located position, replacing any
// existing node there. Sequence inserts are either in-range replaces
// or appends at exactly the current length.
func (e *Engine) insertLocked(loc located, node *doc.Node) error {
	switch loc.kind {
	case locRoot:
		return ErrExists
	case locNode, locNewEntry:
	default:
		return ErrInvalidPath
	}
	switch loc.parent.Kind {
	case doc.KindMapping:
		loc.parent.Fields.Set(loc.key, node)
	case doc.KindSequence:
		if loc.index < len(loc.parent.Items) {
			loc.parent.Items[loc.index] = node
		} else {
			loc.parent.Items = append(loc.parent.Items, node)
		}
	default:
		return ErrNotDir
	}
	return nil
}

// detachLocked removes the located node from its parent. Sequence
// removal renumbers the later elements by construction.
func (e *Engine) detachLocked(loc located) {
	switch loc.parent.Kind {
	case doc.KindMapping:
		loc.parent.Fields.Delete(loc.key)
	case doc.KindSequence:
		loc.parent.Items = append(loc.parent.Items[:loc.index], loc.parent.Items[loc.index+1:]...)
	}
}

// detachForMoveLocked removes the located node and returns a function
// reattaching it at its original position, including mapping key
// order, for moves that can still fail after the detach.
func (e *Engine) detachForMoveLocked(loc located) func() {
	switch loc.parent.Kind {
	case doc.KindMapping:
		nextKey, hasNext := "", false
		if p := loc.parent.Fields.GetPair(loc.key); p != nil && p.Next() != nil {
			nextKey, hasNext = p.Next().Key, true
		}
		loc.parent.Fields.Delete(loc.key)
		return func() {
			loc.parent.Fields.Set(loc.key, loc.node)
			if hasNext {
				_ = loc.parent.Fields.MoveBefore(loc.key, nextKey)
			}
		}
	case doc.KindSequence:
		loc.parent.Items = append(loc.parent.Items[:loc.index], loc.parent.Items[loc.index+1:]...)
		return func() {
			items := append(loc.parent.Items, nil)
			copy(items[loc.index+1:], items[loc.index:])
			items[loc.index] = loc.node
			loc.parent.Items = items
		}
	}
	return func() {}
}
