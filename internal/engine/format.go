package engine

import (
	"fmt"
	"strings"
)

// Format selects how a resolved node is rendered.
type Format int

const (
	FormatRaw Format = iota
	FormatYAML
	FormatJSON
)

func (f Format) String() string {
	switch f {
	case FormatYAML:
		return "yaml"
	case FormatJSON:
		return "json"
	}
	return "raw"
}

// ParseFormat parses a format name from configuration.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "raw", "":
		return FormatRaw, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	}
	return FormatRaw, fmt.Errorf("unknown format %q", s)
}

// splitSuffix strips a recognized format suffix from a path segment.
// The suffix is not part of the stored key; ok reports whether one was
// present.
func splitSuffix(name string) (stem string, f Format, ok bool) {
	switch {
	case strings.HasSuffix(name, ".yaml"):
		return name[:len(name)-len(".yaml")], FormatYAML, true
	case strings.HasSuffix(name, ".yml"):
		return name[:len(name)-len(".yml")], FormatYAML, true
	case strings.HasSuffix(name, ".json"):
		return name[:len(name)-len(".json")], FormatJSON, true
	}
	return name, FormatRaw, false
}
