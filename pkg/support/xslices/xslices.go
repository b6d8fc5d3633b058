// Package xslices provides the generic slice helpers shared across the
// distarray packages: negative-index accessors plus the two local primitives
// the distributed algorithms are built on (UniqueWithInverse and BinCounts).
package xslices

import (
	"github.com/gomlx/exceptions"
	"golang.org/x/exp/constraints"
)

// At returns the element at the given index, where index can be negative, in
// which case it counts from the end of the slice.
func At[T any](slice []T, index int) T {
	if index < 0 {
		index = len(slice) + index
	}
	return slice[index]
}

// SetAt sets the element at the given index, where index can be negative, in
// which case it counts from the end of the slice.
func SetAt[T any](slice []T, index int, value T) {
	if index < 0 {
		index = len(slice) + index
	}
	slice[index] = value
}

// Last returns the last element of a slice.
func Last[T any](slice []T) T {
	return At(slice, -1)
}

// Copy returns a new (shallow) copy of the slice. A nil slice is returned for
// an empty input.
func Copy[T any](slice []T) []T {
	if len(slice) == 0 {
		return nil
	}
	slice2 := make([]T, len(slice))
	copy(slice2, slice)
	return slice2
}

// UniqueWithInverse returns the distinct values of a sorted slice, in their
// order of first occurrence, along with the inverse mapping: inverse[i] is the
// index in distinct of sorted[i]'s value.
//
// Only adjacent elements are compared, so equal values must be adjacent in the
// input (true for sorted slices) for the result to be meaningful.
func UniqueWithInverse[T comparable](sorted []T) (distinct []T, inverse []int) {
	if len(sorted) == 0 {
		return nil, nil
	}
	distinct = make([]T, 0, 1)
	inverse = make([]int, len(sorted))
	for i, value := range sorted {
		if i == 0 || value != distinct[len(distinct)-1] {
			distinct = append(distinct, value)
		}
		inverse[i] = len(distinct) - 1
	}
	return distinct, inverse
}

// BinCounts returns the dense occurrence counts of a slice of small
// non-negative integers: position i of the result holds the number of times
// the value i occurs. The result has max(values)+1 entries, or nil for an
// empty input.
//
// It panics on negative values.
func BinCounts[T constraints.Integer](values []T) []int64 {
	if len(values) == 0 {
		return nil
	}
	var maxValue T
	for _, value := range values {
		if value < 0 {
			exceptions.Panicf("xslices.BinCounts: negative value %d, only small non-negative integers are supported", value)
		}
		if value > maxValue {
			maxValue = value
		}
	}
	counts := make([]int64, int(maxValue)+1)
	for _, value := range values {
		counts[value]++
	}
	return counts
}
