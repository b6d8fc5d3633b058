package distarray

import (
	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"

	"github.com/gomlx/distarray/pkg/support/xslices"
)

// Bincount counts the occurrences of each distinct value of a globally sorted
// array of small non-negative integers -- typically the output of
// UniqueLabels. The returned distributed array holds, per rank, one bucket
// per distinct value present on that rank, starting at the rank's first
// value; runs of equal values that straddle rank boundaries are reconciled so
// that every bucket a rank reports carries the full global count of its
// value, regardless of how many consecutive ranks the run spans.
//
// The local chunk must be globally sorted; a value below the rank's counting
// offset is reported as an error.
//
// Collective: three topology queries over the values plus two over the
// resulting counts.
func Bincount[T constraints.Integer](a *Array[T]) (*Array[int64], error) {
	topology := a.Topology()
	prev, err := topology.Prev()
	if err != nil {
		return nil, err
	}

	// Counting starts at the value just before this chunk, unless the chunk
	// opens a new value (or nothing precedes it, in which case buckets are
	// absolute).
	var offset T
	if prev.Present {
		offset = prev.Value
		if len(a.local) > 0 && prev.Value != a.local[0] {
			offset = a.local[0]
		}
	}
	shifted := make([]T, len(a.local))
	for i, value := range a.local {
		if value < offset {
			return nil, errors.Errorf("distarray.Bincount: chunk not globally sorted: value %d at index %d is below the counting offset %d",
				value, i, offset)
		}
		shifted[i] = value - offset
	}
	counts := xslices.BinCounts(shifted)

	heads, err := topology.Heads()
	if err != nil {
		return nil, err
	}
	tails, err := topology.Tails()
	if err != nil {
		return nil, err
	}

	countsArray := New(counts, a.group)
	countsTopology := countsArray.Topology()
	headCounts, err := countsTopology.Heads()
	if err != nil {
		return nil, err
	}
	tailCounts, err := countsTopology.Tails()
	if err != nil {
		return nil, err
	}

	// Boundary reconciliation: fold in the partial counts of every earlier
	// rank whose run ends on my first value, and of every later rank whose
	// run starts on my last value. A run may span any number of consecutive
	// ranks, so the scans never stop early; empty ranks contribute absent
	// items and are skipped by the equality test.
	if len(counts) > 0 {
		rank, size := a.group.Rank(), a.group.Size()
		first, last := a.local[0], xslices.Last(a.local)
		for i := rank - 1; i >= 0; i-- {
			if tails[i].Present && tails[i].Value == first {
				counts[0] += tailCounts[i].Value
			}
		}
		for i := rank + 1; i < size; i++ {
			if heads[i].Present && heads[i].Value == last {
				counts[len(counts)-1] += headCounts[i].Value
			}
		}
	}
	return countsArray, nil
}

// BincountLocal counts the occurrences of each distinct value of the local
// chunk only, with no communication: bucket i of the result counts the value
// local[0]+i. No boundary reconciliation happens, so buckets at the chunk's
// edges may hold partial counts of runs continuing on neighboring ranks.
//
// The local chunk must be sorted.
func BincountLocal[T constraints.Integer](a *Array[T]) ([]int64, error) {
	if len(a.local) == 0 {
		return nil, nil
	}
	offset := a.local[0]
	shifted := make([]T, len(a.local))
	for i, value := range a.local {
		if value < offset {
			return nil, errors.Errorf("distarray.BincountLocal: chunk not sorted: value %d at index %d is below the first element %d",
				value, i, offset)
		}
		shifted[i] = value - offset
	}
	return xslices.BinCounts(shifted), nil
}
