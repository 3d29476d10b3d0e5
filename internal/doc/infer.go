package doc

import (
	"strconv"
	"strings"
)

// Infer classifies raw written bytes as the narrowest scalar type that
// round-trips losslessly: exact bool literal, then base-10 integer,
// then float, else string. A single trailing newline (appended by most
// write tools) is trimmed before classification.
func Infer(raw []byte) any {
	s := strings.TrimSuffix(string(raw), "\n")
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if isFloatLiteral(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return s
}

// InferNode wraps Infer's result in a scalar node.
func InferNode(raw []byte) *Node {
	return NewScalar(Infer(raw))
}

// isFloatLiteral guards ParseFloat against inputs we do not want to
// treat as numbers, such as "NaN", "Inf", or hexadecimal floats.
func isFloatLiteral(s string) bool {
	if s == "" {
		return false
	}
	body := strings.TrimLeft(s, "+-")
	if body == "" || strings.HasPrefix(body, "0x") || strings.HasPrefix(body, "0X") {
		return false
	}
	hasDigit := false
	for _, r := range body {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case r == '.' || r == 'e' || r == 'E' || r == '+' || r == '-':
		default:
			return false
		}
	}
	return hasDigit
}
