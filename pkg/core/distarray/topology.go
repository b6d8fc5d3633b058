package distarray

import (
	"github.com/gomlx/distarray/pkg/core/comms"
	"github.com/gomlx/distarray/pkg/support/xslices"
)

// Item is the result of a topology query: a rank's boundary element, or
// nothing if that rank's chunk is empty. Absence is expressed by the Present
// flag, never by an in-band sentinel value.
type Item[T any] struct {
	Value   T
	Present bool
}

// ItemOf wraps a value as a present Item.
func ItemOf[T any](value T) Item[T] {
	return Item[T]{Value: value, Present: true}
}

// LinearTopology answers boundary queries over a distributed array: the first
// and last element of every rank, and the element immediately before or after
// the local chunk in the global order, skipping over empty ranks.
//
// Every query is a collective operation: all ranks of the group must call it,
// and it blocks until they all have. Results are computed fresh on every call
// since the underlying chunk may change between calls (e.g. after a Sort).
type LinearTopology[T any] struct {
	array *Array[T]
}

// Heads returns every rank's first local element, in rank order. Ranks with
// an empty chunk contribute an absent Item.
//
// Collective: one all-gather.
func (t *LinearTopology[T]) Heads() ([]Item[T], error) {
	var head Item[T]
	if local := t.array.local; len(local) > 0 {
		head = ItemOf(local[0])
	}
	return comms.AllGather(t.array.group, "topology.heads", head)
}

// Tails returns every rank's last local element, in rank order. Ranks with an
// empty chunk contribute an absent Item.
//
// Collective: one all-gather.
func (t *LinearTopology[T]) Tails() ([]Item[T], error) {
	var tail Item[T]
	if local := t.array.local; len(local) > 0 {
		tail = ItemOf(xslices.Last(local))
	}
	return comms.AllGather(t.array.group, "topology.tails", tail)
}

// Prev returns the element immediately preceding the local chunk in the
// global order: the last element of the nearest non-empty rank with a smaller
// index. The Item is absent when every rank before this one is empty (in
// particular, always on rank 0 of a single-rank group).
//
// Collective: one all-gather (of tails), then a local fill-forward walk.
func (t *LinearTopology[T]) Prev() (Item[T], error) {
	tails, err := t.Tails()
	if err != nil {
		return Item[T]{}, err
	}
	var carry Item[T]
	for rank, tail := range tails {
		if rank == t.array.group.Rank() {
			break
		}
		if tail.Present {
			carry = tail
		}
	}
	return carry, nil
}

// Next returns the element immediately following the local chunk in the
// global order: the first element of the nearest non-empty rank with a larger
// index. The Item is absent when every rank after this one is empty.
//
// Collective: one all-gather (of heads), then a local fill-backward walk.
func (t *LinearTopology[T]) Next() (Item[T], error) {
	heads, err := t.Heads()
	if err != nil {
		return Item[T]{}, err
	}
	var carry Item[T]
	for rank := len(heads) - 1; rank >= 0; rank-- {
		if rank == t.array.group.Rank() {
			break
		}
		if heads[rank].Present {
			carry = heads[rank]
		}
	}
	return carry, nil
}
