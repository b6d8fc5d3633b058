package distarray_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gomlx/distarray/pkg/core/comms"
	"github.com/gomlx/distarray/pkg/core/distarray"
)

// uniqueLabels runs UniqueLabels over the given globally sorted chunk layout
// and returns the per-rank label chunks.
func uniqueLabels(t *testing.T, chunks [][]int) [][]int {
	t.Helper()
	labels := make([][]int, len(chunks))
	runRanks(t, len(chunks), func(g comms.Group) error {
		labeled, err := distarray.UniqueLabels(distarray.New(chunks[g.Rank()], g))
		if err != nil {
			return err
		}
		labels[g.Rank()] = labeled.Local()
		return nil
	})
	return labels
}

func TestUniqueLabelsBoundaryContinuity(t *testing.T) {
	// The value 2 spans the rank boundary and must keep the same label on
	// both sides.
	labels := uniqueLabels(t, [][]int{{1, 1, 2}, {2, 2, 3}})
	assert.Equal(t, []int{0, 0, 1}, labels[0])
	assert.Equal(t, []int{1, 1, 2}, labels[1])
}

func TestUniqueLabelsAcrossEmptyRanks(t *testing.T) {
	// A run of equal values interrupted by an empty rank is still one
	// distinct value.
	labels := uniqueLabels(t, [][]int{{}, {1, 1}, {}, {1, 2}})
	assert.Empty(t, labels[0])
	assert.Equal(t, []int{0, 0}, labels[1])
	assert.Empty(t, labels[2])
	assert.Equal(t, []int{0, 1}, labels[3])
}

func TestUniqueLabelsSingleRank(t *testing.T) {
	labels := uniqueLabels(t, [][]int{{4, 4, 7, 9, 9}})
	assert.Equal(t, []int{0, 0, 1, 2, 2}, labels[0])
}

func TestUniqueLabelsDenseMonotonic(t *testing.T) {
	// An uneven split of a sorted sequence with long runs crossing several
	// boundaries; the concatenated labels must form a dense, monotonic
	// labeling of the concatenated values.
	chunks := [][]int{{2, 2, 2}, {2}, {2, 3, 3}, {}, {3, 5, 8, 8}, {8}}
	labels := uniqueLabels(t, chunks)

	var values, flat []int
	for rank := range chunks {
		values = append(values, chunks[rank]...)
		flat = append(flat, labels[rank]...)
	}
	require.Len(t, flat, len(values))
	assert.Equal(t, 0, flat[0])
	for i := 1; i < len(flat); i++ {
		if values[i] == values[i-1] {
			assert.Equalf(t, flat[i-1], flat[i], "position %d: equal values must share a label", i)
		} else {
			assert.Equalf(t, flat[i-1]+1, flat[i], "position %d: a new value must advance the label by one", i)
		}
	}
}
