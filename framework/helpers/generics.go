package helpers

import "golang.org/x/exp/slices"

// CopyOf returns a shallow copy of a slice.
func CopyOf[V any](s []V) []V {
	return append([]V(nil), s...)
}

// Sorted returns a sorted copy of a slice, leaving the original unchanged.
func Sorted[V ~string | ~int | ~uint32](s []V) []V {
	ret := CopyOf(s)
	slices.Sort(ret)
	return ret
}
