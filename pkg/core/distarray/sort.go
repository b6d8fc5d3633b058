package distarray

import (
	"cmp"
	"math"
	"slices"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/gomlx/distarray/pkg/core/comms"
)

// Sort globally sorts the distributed array ascending by key: afterwards the
// concatenation of local chunks in rank order is non-decreasing in key, the
// multiset of records is unchanged, and every rank keeps its chunk length.
// Records may move to any rank. Tie ordering is deterministic (equal keys end
// up ordered by their pre-sort rank, then local position), which also makes
// sorting an already-sorted array a no-op on element order.
//
// Keys are 64-bit unsigned integers; records ordered by a different scalar
// must map it to uint64 order-preservingly in the key selector.
//
// Collective: one all-gather of chunk lengths, up to 64 all-gather rounds of
// splitter refinement, one all-gather of tie quotas and one all-to-all record
// exchange.
func Sort[T any](a *Array[T], key func(T) uint64) error {
	group := a.group
	rank, size := group.Rank(), group.Size()
	start := time.Now()

	lengths, err := comms.AllGather(group, "sort.lengths", len(a.local))
	if err != nil {
		return err
	}
	// starts[r] is the global index of rank r's first element in the target
	// layout (chunk lengths are preserved); starts[size] is the total.
	starts := make([]int, size+1)
	for r, n := range lengths {
		starts[r+1] = starts[r] + n
	}
	total := starts[size]

	slices.SortStableFunc(a.local, func(x, y T) int {
		return cmp.Compare(key(x), key(y))
	})
	if size == 1 || total == 0 {
		return nil
	}

	keys := make([]uint64, len(a.local))
	for i, record := range a.local {
		keys[i] = key(record)
	}

	splitters, err := findSplitters(group, keys, starts)
	if err != nil {
		return err
	}

	// Cut the locally sorted chunk into one bucket per destination rank:
	// cuts[d] is the index of the first local element destined to a rank
	// >= d.
	cuts := make([]int, size+1)
	cuts[size] = len(keys)
	for b, s := range splitters {
		below := countLess(keys, s.value)
		equalHere := countLE(keys, s.value) - below
		quota := min(max(s.equalQuota-s.equalBefore, 0), equalHere)
		cuts[b+1] = below + quota
	}
	buckets := make([][]T, size)
	for dest := range buckets {
		buckets[dest] = a.local[cuts[dest]:cuts[dest+1]]
	}

	received, err := comms.AllToAll(group, "sort.exchange", buckets)
	if err != nil {
		return err
	}
	merged := make([]T, 0, lengths[rank])
	for _, part := range received {
		merged = append(merged, part...)
	}
	if len(merged) != lengths[rank] {
		return errors.Errorf("distarray.Sort: rank %d received %d records, want %d; splitter selection is inconsistent across ranks",
			rank, len(merged), lengths[rank])
	}
	// Each received part is sorted and parts arrive in source-rank order, so
	// a stable sort both merges them and preserves the tie order.
	slices.SortStableFunc(merged, func(x, y T) int {
		return cmp.Compare(key(x), key(y))
	})
	a.local = merged

	if klog.V(1).Enabled() {
		klog.Infof("distarray.Sort: redistributed %s records across %d ranks in %s",
			humanize.Comma(int64(total)), size, time.Since(start))
	}
	return nil
}

// splitter describes one boundary of the target layout. Keys strictly below
// value belong before the boundary. Of the keys equal to value, the first
// equalQuota in global tie order (rank order, then local order) belong before
// it; equalBefore is how many of those sit on ranks before the local one.
type splitter struct {
	value       uint64
	equalQuota  int
	equalBefore int
}

// findSplitters computes the size-1 boundary splitters of the target layout.
// Boundary b separates ranks b and b+1 and must have exactly starts[b+1]
// elements before it, so its value is the key of the element at global sorted
// position starts[b+1]: the smallest v whose global count of keys <= v
// exceeds starts[b+1]. All boundaries are bisected in lockstep over the
// uint64 key space, one all-gather of local count vectors per round; every
// rank derives identical bounds from the gathered sums, keeping the rounds
// collective-consistent.
func findSplitters(group comms.Group, keys []uint64, starts []int) ([]splitter, error) {
	size := group.Size()
	numBoundaries := size - 1
	lo := make([]uint64, numBoundaries)
	hi := make([]uint64, numBoundaries)
	for b := range hi {
		hi[b] = math.MaxUint64
	}
	converged := func() bool {
		for b := range lo {
			if lo[b] != hi[b] {
				return false
			}
		}
		return true
	}
	for !converged() {
		mids := make([]uint64, numBoundaries)
		local := make([]int, numBoundaries)
		for b := range mids {
			mids[b] = lo[b] + (hi[b]-lo[b])/2
			local[b] = countLE(keys, mids[b])
		}
		gathered, err := comms.AllGather(group, "sort.splitters", local)
		if err != nil {
			return nil, err
		}
		for b := range mids {
			if lo[b] == hi[b] {
				continue
			}
			global := 0
			for _, rankCounts := range gathered {
				global += rankCounts[b]
			}
			if global > starts[b+1] {
				hi[b] = mids[b]
			} else {
				lo[b] = mids[b] + 1
			}
		}
	}

	// One more exchange resolves ties: how many keys equal to each splitter
	// value exist per rank, and how many sit strictly below it globally.
	local := make([]tieCounts, numBoundaries)
	for b, value := range lo {
		local[b].Less = countLess(keys, value)
		local[b].Equal = countLE(keys, value) - local[b].Less
	}
	gathered, err := comms.AllGather(group, "sort.quotas", local)
	if err != nil {
		return nil, err
	}
	splitters := make([]splitter, numBoundaries)
	for b := range splitters {
		globalLess := 0
		equalBefore := 0
		for r, rankCounts := range gathered {
			globalLess += rankCounts[b].Less
			if r < group.Rank() {
				equalBefore += rankCounts[b].Equal
			}
		}
		splitters[b] = splitter{
			value:       lo[b],
			equalQuota:  starts[b+1] - globalLess,
			equalBefore: equalBefore,
		}
	}
	return splitters, nil
}

// tieCounts is one rank's contribution to tie resolution at one boundary.
type tieCounts struct {
	Less  int
	Equal int
}

// countLE returns how many of the sorted keys are <= v.
func countLE(keys []uint64, v uint64) int {
	return sort.Search(len(keys), func(i int) bool { return keys[i] > v })
}

// countLess returns how many of the sorted keys are < v.
func countLess(keys []uint64, v uint64) int {
	return sort.Search(len(keys), func(i int) bool { return keys[i] >= v })
}
