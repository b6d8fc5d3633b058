package distarray_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gomlx/distarray/pkg/core/comms"
	"github.com/gomlx/distarray/pkg/core/distarray"
)

// queryTopology runs all four topology queries for every rank of the given
// chunk layout and returns the per-rank results.
func queryTopology(t *testing.T, chunks [][]int) (heads, tails [][]distarray.Item[int], prevs, nexts []distarray.Item[int]) {
	t.Helper()
	size := len(chunks)
	heads = make([][]distarray.Item[int], size)
	tails = make([][]distarray.Item[int], size)
	prevs = make([]distarray.Item[int], size)
	nexts = make([]distarray.Item[int], size)
	runRanks(t, size, func(g comms.Group) error {
		topology := distarray.New(chunks[g.Rank()], g).Topology()
		var err error
		if heads[g.Rank()], err = topology.Heads(); err != nil {
			return err
		}
		if tails[g.Rank()], err = topology.Tails(); err != nil {
			return err
		}
		if prevs[g.Rank()], err = topology.Prev(); err != nil {
			return err
		}
		nexts[g.Rank()], err = topology.Next()
		return err
	})
	return
}

func TestLinearTopologyEmptyRanks(t *testing.T) {
	// Layout [0, 2, 0, 3]: prev/next must skip over the empty ranks.
	chunks := [][]int{{}, {10, 20}, {}, {30, 40, 50}}
	heads, tails, prevs, nexts := queryTopology(t, chunks)

	var absent distarray.Item[int]
	wantHeads := []distarray.Item[int]{absent, distarray.ItemOf(10), absent, distarray.ItemOf(30)}
	wantTails := []distarray.Item[int]{absent, distarray.ItemOf(20), absent, distarray.ItemOf(50)}
	for rank := range chunks {
		assert.Equalf(t, wantHeads, heads[rank], "heads on rank %d", rank)
		assert.Equalf(t, wantTails, tails[rank], "tails on rank %d", rank)
	}

	assert.Equal(t, []distarray.Item[int]{absent, absent, distarray.ItemOf(20), distarray.ItemOf(20)}, prevs)
	assert.Equal(t, []distarray.Item[int]{distarray.ItemOf(10), distarray.ItemOf(30), distarray.ItemOf(30), absent}, nexts)
}

func TestLinearTopologySingleRank(t *testing.T) {
	_, _, prevs, nexts := queryTopology(t, [][]int{{1, 2, 3}})
	assert.False(t, prevs[0].Present)
	assert.False(t, nexts[0].Present)
}

func TestLinearTopologySingleNonEmptyRank(t *testing.T) {
	// Only rank 2 holds data; everyone else resolves prev/next to it or to
	// nothing, regardless of distance.
	chunks := [][]int{{}, {}, {7}, {}, {}}
	_, _, prevs, nexts := queryTopology(t, chunks)

	var absent distarray.Item[int]
	assert.Equal(t, []distarray.Item[int]{absent, absent, absent, distarray.ItemOf(7), distarray.ItemOf(7)}, prevs)
	assert.Equal(t, []distarray.Item[int]{distarray.ItemOf(7), distarray.ItemOf(7), absent, absent, absent}, nexts)
}

func TestLinearTopologyAllEmpty(t *testing.T) {
	heads, _, prevs, nexts := queryTopology(t, [][]int{{}, {}, {}})
	for rank := 0; rank < 3; rank++ {
		for _, head := range heads[rank] {
			assert.False(t, head.Present)
		}
		assert.False(t, prevs[rank].Present)
		assert.False(t, nexts[rank].Present)
	}
}
