package common

import "strconv"

// AtoiDefault parses value, returning def for empty or malformed input.
func AtoiDefault(value string, def int) int {
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}
