package engine

import (
	"fmt"
	"strconv"

	"github.com/structfs/yamlfs/internal/doc"
)

// locKind discriminates resolution outcomes.
type locKind int

const (
	locRoot locKind = iota
	locNode
	locNewEntry
	locEphemeral
)

// located is the result of resolving a virtual path against the
// current document. It carries the parent and addressing key alongside
// the node so mutations never need parent back-references.
type located struct {
	kind   locKind
	node   *doc.Node // existing node (locNode only)
	parent *doc.Node // parent mapping/sequence (locNode, locNewEntry)
	key    string    // mapping key, suffix stripped
	index  int       // sequence index, -1 under a mapping parent
	format Format
	// hasFormat records whether an explicit suffix selected the format.
	hasFormat bool
}

// resolve maps a virtual path onto the document tree. Callers must
// hold the document lock. Dot-prefixed final segments short-circuit to
// the ephemeral store; a recognized format suffix on the final segment
// is stripped and recorded, never matched against keys.
func (e *Engine) resolve(path string) (located, error) {
	segs := splitPath(path)
	if len(segs) == 0 {
		return located{kind: locRoot, node: e.doc.root, index: -1}, nil
	}
	if isEphemeralPath(path) {
		return located{kind: locEphemeral, key: cleanPath(path), index: -1}, nil
	}

	stem, format, hasFormat := splitSuffix(segs[len(segs)-1])

	cur := e.doc.root
	for _, seg := range segs[:len(segs)-1] {
		child, err := childOf(cur, seg)
		if err != nil {
			return located{}, fmt.Errorf("%s: %w", path, err)
		}
		cur = child
	}

	loc := located{parent: cur, key: stem, index: -1, format: format, hasFormat: hasFormat}
	switch cur.Kind {
	case doc.KindMapping:
		if child, ok := cur.Fields.Get(stem); ok {
			loc.kind = locNode
			loc.node = child
			return loc, nil
		}
		loc.kind = locNewEntry
		return loc, nil
	case doc.KindSequence:
		idx, err := strconv.Atoi(stem)
		if err != nil || idx < 0 {
			return located{}, fmt.Errorf("%q is not a sequence index: %w", stem, ErrInvalidPath)
		}
		loc.index = idx
		switch {
		case idx < len(cur.Items):
			loc.kind = locNode
			loc.node = cur.Items[idx]
		case idx == len(cur.Items):
			// One past the end addresses append-style creation.
			loc.kind = locNewEntry
		default:
			return located{}, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return loc, nil
	}
	return located{}, fmt.Errorf("%s: %w", path, ErrNotDir)
}

// childOf steps one intermediate segment into a structured node.
func childOf(n *doc.Node, seg string) (*doc.Node, error) {
	switch n.Kind {
	case doc.KindMapping:
		child, ok := n.Fields.Get(seg)
		if !ok {
			return nil, ErrNotFound
		}
		return child, nil
	case doc.KindSequence:
		idx, err := strconv.Atoi(seg)
		if err != nil || idx < 0 {
			return nil, ErrInvalidPath
		}
		if idx >= len(n.Items) {
			return nil, ErrNotFound
		}
		return n.Items[idx], nil
	}
	return nil, ErrNotDir
}
