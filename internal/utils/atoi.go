package utils

import "strconv"

// AtoiDefault parses s as a base-10 integer and falls back to def when s is
// empty or malformed. Query and path parameters arrive as strings everywhere
// in the HTTP layer, so the fallback keeps call sites free of error plumbing.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// AtoiInRange parses s like AtoiDefault and then clamps the result into
// [min, max]. Used for pagination parameters where out-of-range values
// should degrade to the nearest bound rather than fail the request.
func AtoiInRange(s string, def, min, max int) int {
	n := AtoiDefault(s, def)
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}
