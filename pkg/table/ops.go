package table

import (
	"slices"
)

// GroupBy buckets items by key, preserving input order inside each bucket.
func GroupBy[T any, K comparable](items []T, key func(T) K) map[K][]T {
	out := make(map[K][]T)
	for _, it := range items {
		k := key(it)
		out[k] = append(out[k], it)
	}
	return out
}

// SortBy sorts a copy of items; equal elements keep their order.
func SortBy[T any](items []T, cmp func(a, b T) int) []T {
	out := slices.Clone(items)
	slices.SortStableFunc(out, cmp)
	return out
}

// Unique returns distinct keys in first-seen order.
func Unique[T any, K comparable](items []T, key func(T) K) []K {
	seen := make(map[K]struct{})
	var out []K
	for _, it := range items {
		k := key(it)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

// Where returns the items matching pred.
func Where[T any](items []T, pred func(T) bool) []T {
	var out []T
	for _, it := range items {
		if pred(it) {
			out = append(out, it)
		}
	}
	return out
}
