// Package comms defines the collective-communication substrate a distributed
// array runs on: a Group of cooperating ranks exposing blocking collective
// exchanges, plus typed wrappers over them.
//
// Every collective is a group-wide rendezvous: it blocks the calling rank
// until all ranks of the group have issued the matching call. All ranks must
// issue the same sequence of collective calls, in the same order -- a rank
// that skips a call leaves its peers blocked forever. There is no timeout and
// no cancellation; this is a caller obligation, not a recoverable condition.
//
// The tag argument names the collective round. It exists for diagnostics:
// implementations that can observe all ranks (see LocalGroup) use it to turn
// a mismatched sequence into an error instead of a silent deadlock.
package comms

import (
	"github.com/pkg/errors"
)

// Group is an immutable set of cooperating ranks. Rank identities and the
// group size are fixed for the lifetime of the group.
//
// Collective calls must not be issued concurrently from multiple goroutines
// of the same rank; the model is strictly sequential per rank.
type Group interface {
	// Rank of the calling worker, in [0, Size).
	Rank() int

	// Size is the number of ranks in the group, always >= 1.
	Size() int

	// AllGather contributes one value and returns every rank's contribution,
	// in rank order. Blocks until all ranks of the group have called it.
	AllGather(tag string, local any) ([]any, error)

	// AllToAll contributes one value per destination rank (parts[d] goes to
	// rank d, so len(parts) must equal Size) and returns the values addressed
	// to the calling rank, in source-rank order. Blocks until all ranks of
	// the group have called it.
	AllToAll(tag string, parts []any) ([]any, error)
}

// AllGather is the typed form of Group.AllGather: it gathers one T per rank,
// in rank order.
//
// It returns an error if any rank contributed a value of a different type --
// that is a mismatched collective sequence, see the package documentation.
func AllGather[T any](g Group, tag string, local T) ([]T, error) {
	raw, err := g.AllGather(tag, local)
	if err != nil {
		return nil, err
	}
	gathered := make([]T, len(raw))
	for rank, value := range raw {
		typed, ok := value.(T)
		if !ok {
			return nil, errors.Errorf("comms.AllGather %q: rank %d contributed %T, want %T", tag, rank, value, gathered[rank])
		}
		gathered[rank] = typed
	}
	return gathered, nil
}

// AllToAll is the typed form of Group.AllToAll: parts[d] is the slice of T
// destined to rank d, and the result holds the slices addressed to the
// calling rank, in source-rank order.
func AllToAll[T any](g Group, tag string, parts [][]T) ([][]T, error) {
	if len(parts) != g.Size() {
		return nil, errors.Errorf("comms.AllToAll %q: got %d parts, want one per rank (%d)", tag, len(parts), g.Size())
	}
	boxed := make([]any, len(parts))
	for dest, part := range parts {
		boxed[dest] = part
	}
	raw, err := g.AllToAll(tag, boxed)
	if err != nil {
		return nil, err
	}
	received := make([][]T, len(raw))
	for rank, value := range raw {
		typed, ok := value.([]T)
		if !ok {
			return nil, errors.Errorf("comms.AllToAll %q: rank %d contributed %T, want %T", tag, rank, value, received[rank])
		}
		received[rank] = typed
	}
	return received, nil
}
