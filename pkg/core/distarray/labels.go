package distarray

import (
	"cmp"

	"github.com/gomlx/distarray/pkg/core/comms"
	"github.com/gomlx/distarray/pkg/support/xslices"
)

// UniqueLabels assigns a dense, globally increasing integer label to each
// distinct value of an already globally sorted array: two elements get the
// same label iff they are equal, labels start at 0 on the first rank with
// data, and the label sequence is non-decreasing in global order. A run of
// equal values that spans one or more rank boundaries receives the identical
// label on every side of the boundary.
//
// The local chunk must already be globally sorted (see Sort); the result for
// unsorted input is meaningless.
//
// Collective: one topology query plus one all-gather.
func UniqueLabels[T cmp.Ordered](a *Array[T]) (*Array[int], error) {
	next, err := a.Topology().Next()
	if err != nil {
		return nil, err
	}
	distinct, inverse := xslices.UniqueWithInverse(a.local)

	// If the locally-last distinct value continues into the next non-empty
	// rank, it is finalized there: contributing it here too would shift the
	// labels of everything after the boundary by one.
	contributed := len(distinct)
	if len(a.local) > 0 && next.Present && next.Value == xslices.Last(a.local) {
		contributed--
	}

	perRank, err := comms.AllGather(a.group, "labels.counts", contributed)
	if err != nil {
		return nil, err
	}
	offset := 0
	for _, count := range perRank[:a.group.Rank()] {
		offset += count
	}

	labels := make([]int, len(inverse))
	for i, localLabel := range inverse {
		labels[i] = localLabel + offset
	}
	return New(labels, a.group), nil
}
