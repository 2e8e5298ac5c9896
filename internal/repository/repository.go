// Package repository provides typed data access over the store tables.
package repository

import (
	"sort"
)

// newestFirst orders records by creation time, most recent first. Scans return items in
// backend order, so listings sort on the way out. A nil result becomes an empty list.
func newestFirst[T any](items []T, createdAt func(*T) int64) []T {
	if items == nil {
		return []T{}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return createdAt(&items[i]) > createdAt(&items[j])
	})
	return items
}
