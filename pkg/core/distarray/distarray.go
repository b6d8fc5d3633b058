// Package distarray implements a distributed array: a logically contiguous,
// globally ordered sequence of records that is physically partitioned, one
// contiguous chunk per rank of a comms.Group, with no rank ever holding the
// full sequence.
//
// The package provides the operations that need cross-rank awareness without
// materializing the whole sequence anywhere:
//
//   - Sort: redistributes records so the concatenation of local chunks, in
//     rank order, is globally sorted by a key.
//   - UniqueLabels: assigns globally unique, monotonic integer labels to the
//     distinct values of an already-sorted distributed sequence.
//   - Bincount: per-distinct-value counts that correctly merge runs of equal
//     values straddling rank boundaries.
//
// All of them are built on LinearTopology, which answers "what is the item
// immediately before/after my chunk" while skipping empty ranks.
//
// Every operation that touches the topology or redistributes data is a
// collective: all ranks of the group must invoke the same sequence of such
// operations, in the same order, or the group deadlocks. Local-only
// operations (Project, BincountLocal) never block on other ranks.
package distarray

import (
	"github.com/gomlx/exceptions"

	"github.com/gomlx/distarray/pkg/core/comms"
)

// Array is one rank's view of a distributed array: the local chunk it
// exclusively owns plus the group the array is partitioned over. The "whole"
// array is the conceptual concatenation of all ranks' chunks in rank order,
// never materialized.
//
// The local chunk may be empty; emptiness is meaningful to the topology (see
// Item) and never conflated with any element value.
type Array[T any] struct {
	local []T
	group comms.Group
}

// New creates a rank's view of a distributed array from its local chunk.
// Ownership of local transfers to the Array: the caller must not mutate it
// while collective operations are in flight.
//
// It panics if group is nil.
func New[T any](local []T, group comms.Group) *Array[T] {
	if group == nil {
		exceptions.Panicf("distarray.New: group cannot be nil")
	}
	return &Array[T]{local: local, group: group}
}

// Local returns the local chunk. After a Sort the slice is replaced, so
// callers should not hold on to it across collective calls.
func (a *Array[T]) Local() []T { return a.local }

// LocalLen returns the length of the local chunk.
func (a *Array[T]) LocalLen() int { return len(a.local) }

// Group the array is distributed over.
func (a *Array[T]) Group() comms.Group { return a.group }

// Topology returns the boundary-topology view over the array. The view reads
// the chunk as it is at query time; results are never cached.
func (a *Array[T]) Topology() *LinearTopology[T] { return &LinearTopology[T]{array: a} }

// Project returns a new Array over the same group whose local chunk is the
// selected column (or any other derivation) of the original records. It is a
// local operation, no communication happens.
func Project[T, U any](a *Array[T], selector func(T) U) *Array[U] {
	projected := make([]U, len(a.local))
	for i, record := range a.local {
		projected[i] = selector(record)
	}
	return New(projected, a.group)
}
