package engine

import "strings"

// splitPath breaks a virtual path into segments. The root yields nil.
func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// cleanPath canonicalizes a virtual path to a leading-slash form used
// as the ephemeral store key.
func cleanPath(path string) string {
	return "/" + strings.Trim(path, "/")
}

// canonicalPath strips a recognized format suffix from the final
// segment, yielding the node-addressing form the resolver and the
// listing cache use. "/nested.yaml" and "/nested" name the same node.
func canonicalPath(path string) string {
	segs := splitPath(path)
	if len(segs) == 0 {
		return "/"
	}
	stem, _, _ := splitSuffix(segs[len(segs)-1])
	segs[len(segs)-1] = stem
	return "/" + strings.Join(segs, "/")
}

// parentDir returns the canonical parent of a virtual path.
func parentDir(path string) string {
	clean := cleanPath(path)
	i := strings.LastIndexByte(clean, '/')
	if i <= 0 {
		return "/"
	}
	return clean[:i]
}

// baseName returns the final segment of a virtual path.
func baseName(path string) string {
	clean := cleanPath(path)
	return clean[strings.LastIndexByte(clean, '/')+1:]
}

// isEphemeralPath reports whether a path addresses the ephemeral
// store: its final segment is dot-prefixed.
func isEphemeralPath(path string) bool {
	segs := splitPath(path)
	return len(segs) > 0 && strings.HasPrefix(segs[len(segs)-1], ".")
}
