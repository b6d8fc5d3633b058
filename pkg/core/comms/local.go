package comms

import (
	"fmt"
	"sync"

	"github.com/gomlx/exceptions"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/gomlx/distarray/pkg/support/xslices"
)

// LocalGroup is an in-process Group: all ranks live in the same process, one
// goroutine per rank, and exchange values through a shared hub. It is the
// substrate used by the tests and by single-machine multi-worker runs.
//
// Because the hub observes every rank, a mismatched collective sequence
// within one round (different tags or different collective kinds) is detected
// and reported as an error on every participating rank, rather than
// deadlocking. A rank that never issues its call still blocks the group
// forever -- that part of the contract cannot be checked.
type LocalGroup struct {
	hub  *hub
	rank int
}

var _ Group = (*LocalGroup)(nil)

// NewLocalGroups creates size connected in-process groups, one per rank, in
// rank order. Each returned LocalGroup must be driven by its own goroutine.
//
// It panics if size is not positive.
func NewLocalGroups(size int) []*LocalGroup {
	if size <= 0 {
		exceptions.Panicf("comms.NewLocalGroups: group size must be positive, got %d", size)
	}
	h := &hub{
		id:     uuid.New(),
		size:   size,
		slots:  make([]any, size),
		matrix: make([][]any, size),
	}
	h.cond = sync.NewCond(&h.mu)
	klog.V(1).Infof("comms: created local group %s with %d ranks", h.id, size)
	groups := make([]*LocalGroup, size)
	for rank := range groups {
		groups[rank] = &LocalGroup{hub: h, rank: rank}
	}
	return groups
}

// Rank of this worker within the group.
func (g *LocalGroup) Rank() int { return g.rank }

// Size of the group.
func (g *LocalGroup) Size() int { return g.hub.size }

// String implements fmt.Stringer.
func (g *LocalGroup) String() string {
	return fmt.Sprintf("LocalGroup(%s, rank %d of %d)", g.hub.id, g.rank, g.hub.size)
}

// AllGather implements Group.AllGather.
func (g *LocalGroup) AllGather(tag string, local any) ([]any, error) {
	return g.hub.allGather(g.rank, tag, local)
}

// AllToAll implements Group.AllToAll.
func (g *LocalGroup) AllToAll(tag string, parts []any) ([]any, error) {
	if len(parts) != g.hub.size {
		return nil, errors.Errorf("%s: AllToAll %q: got %d parts, want one per rank (%d)", g, tag, len(parts), g.hub.size)
	}
	return g.hub.allToAll(g.rank, tag, parts)
}

type collectiveKind int

const (
	kindAllGather collectiveKind = iota + 1
	kindAllToAll
)

func (k collectiveKind) String() string {
	switch k {
	case kindAllGather:
		return "all-gather"
	case kindAllToAll:
		return "all-to-all"
	default:
		return fmt.Sprintf("collectiveKind(%d)", int(k))
	}
}

// hub is the shared rendezvous point of a LocalGroup. One collective round at
// a time: ranks arrive, the last arrival publishes the round's result and
// opens the next round, the waiters pick the result up on wake-up.
type hub struct {
	id   uuid.UUID
	size int

	mu   sync.Mutex
	cond *sync.Cond

	// Round state, guarded by mu. generation increments when a round
	// completes; waiters block until it moves.
	generation uint64
	arrived    int
	tag        string
	kind       collectiveKind
	pending    error

	slots  []any   // all-gather contributions, indexed by source rank
	matrix [][]any // all-to-all contributions, row = source rank

	// Published results of the last completed round.
	gathered  []any
	exchanged [][]any // row = destination rank, columns in source-rank order
	roundErr  error
}

// join records the arrival of one rank into the current round. The first
// arrival fixes the round's tag and kind; later arrivals must match.
func (h *hub) join(tag string, kind collectiveKind) {
	if h.arrived == 0 {
		h.tag = tag
		h.kind = kind
		h.pending = nil
		return
	}
	if h.pending == nil && (h.tag != tag || h.kind != kind) {
		h.pending = errors.Errorf("local group %s: mismatched collective sequence: a rank issued %s %q while the round started as %s %q",
			h.id, kind, tag, h.kind, h.tag)
	}
}

// complete publishes the current round's result and opens the next round.
// Called with mu held, by the last rank to arrive.
func (h *hub) complete() {
	h.roundErr = h.pending
	if h.roundErr == nil {
		switch h.kind {
		case kindAllGather:
			h.gathered = xslices.Copy(h.slots)
		case kindAllToAll:
			h.exchanged = make([][]any, h.size)
			for dest := range h.exchanged {
				row := make([]any, h.size)
				for src := 0; src < h.size; src++ {
					row[src] = h.matrix[src][dest]
				}
				h.exchanged[dest] = row
			}
		}
	}
	h.arrived = 0
	h.generation++
	h.cond.Broadcast()
}

// wait blocks until the round the caller joined at generation gen completes.
// Called with mu held.
func (h *hub) wait(gen uint64) {
	for h.generation == gen {
		h.cond.Wait()
	}
}

func (h *hub) allGather(rank int, tag string, local any) ([]any, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	gen := h.generation
	h.join(tag, kindAllGather)
	h.slots[rank] = local
	h.arrived++
	if h.arrived == h.size {
		h.complete()
	} else {
		h.wait(gen)
	}
	if h.roundErr != nil {
		return nil, h.roundErr
	}
	return xslices.Copy(h.gathered), nil
}

func (h *hub) allToAll(rank int, tag string, parts []any) ([]any, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	gen := h.generation
	h.join(tag, kindAllToAll)
	h.matrix[rank] = parts
	h.arrived++
	if h.arrived == h.size {
		h.complete()
	} else {
		h.wait(gen)
	}
	if h.roundErr != nil {
		return nil, h.roundErr
	}
	return xslices.Copy(h.exchanged[rank]), nil
}
