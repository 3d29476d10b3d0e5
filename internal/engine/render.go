package engine

import (
	"encoding/json"
	"fmt"

	"github.com/structfs/yamlfs/internal/doc"
)

// Render produces the byte content of a node in the requested format.
// Rendering is pure with respect to the document.
//
// Raw renders scalars as their bare literal value; structured nodes
// have no flat raw form and fall back to the YAML dump. YAML and JSON
// dump the whole subtree.
func Render(n *doc.Node, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		out, err := json.MarshalIndent(n, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("render json: %w", err)
		}
		return append(out, '\n'), nil
	case FormatYAML:
		return doc.Serialize(n)
	}
	if n.Kind == doc.KindScalar {
		return []byte(n.ScalarText()), nil
	}
	return doc.Serialize(n)
}
