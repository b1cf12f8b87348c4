// Package utils provides small, generic helpers shared across layers. They
// carry no domain or business logic.
package utils

import "strconv"

// AtoiDefault parses s as an int, returning def when s is empty or not a
// valid integer. Handlers use it for the page and size query parameters,
// where a malformed value should fall back to the default rather than fail
// the request.
//
//	page := utils.AtoiDefault(c.DefaultQuery("page", "0"), 0)
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}
