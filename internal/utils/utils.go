// Package utils holds small generic helpers shared across the service.
package utils

import "strconv"

// AtoiDefault parses s as an int, falling back to def on any error.
func AtoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// Paginate slices items into the requested zero-based page. An out-of-range
// page yields an empty slice; totalPages is at least 1 for non-empty input.
func Paginate[T any](items []T, page, size int) (pageItems []T, totalPages int) {
	if size <= 0 || len(items) == 0 {
		return nil, 0
	}
	totalPages = (len(items) + size - 1) / size
	start := page * size
	if start < 0 || start >= len(items) {
		return nil, totalPages
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], totalPages
}
