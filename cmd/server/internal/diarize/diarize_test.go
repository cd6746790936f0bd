package diarize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeSegments(t *testing.T) {
	t.Run("empty input passes through", func(t *testing.T) {
		assert.Empty(t, MergeSegments(nil, 5.0))
	})

	t.Run("single segment passes through", func(t *testing.T) {
		in := []Segment{{Speaker: "A", Start: 1, End: 2}}
		out := MergeSegments(in, 5.0)
		assert.Equal(t, in, out)
	})

	t.Run("merges same speaker below gap threshold", func(t *testing.T) {
		in := []Segment{
			{Speaker: "A", Start: 0, End: 8},
			{Speaker: "A", Start: 8.5, End: 9},
			{Speaker: "B", Start: 9, End: 20},
		}
		out := MergeSegments(in, 5.0)

		require.Len(t, out, 2)
		assert.Equal(t, Segment{Speaker: "A", Start: 0, End: 9}, out[0])
		assert.Equal(t, Segment{Speaker: "B", Start: 9, End: 20}, out[1])
	})

	t.Run("keeps same speaker apart at or above gap threshold", func(t *testing.T) {
		in := []Segment{
			{Speaker: "A", Start: 0, End: 2},
			{Speaker: "A", Start: 7, End: 9},
		}
		out := MergeSegments(in, 5.0)
		require.Len(t, out, 2)
	})

	t.Run("sorts unsorted input by start time", func(t *testing.T) {
		in := []Segment{
			{Speaker: "B", Start: 10, End: 12},
			{Speaker: "A", Start: 0, End: 2},
			{Speaker: "A", Start: 3, End: 5},
		}
		out := MergeSegments(in, 5.0)

		require.Len(t, out, 2)
		assert.Equal(t, Segment{Speaker: "A", Start: 0, End: 5}, out[0])
		assert.Equal(t, Segment{Speaker: "B", Start: 10, End: 12}, out[1])
	})

	t.Run("overlapping segments keep max end", func(t *testing.T) {
		in := []Segment{
			{Speaker: "A", Start: 0, End: 10},
			{Speaker: "A", Start: 2, End: 4},
		}
		out := MergeSegments(in, 5.0)

		require.Len(t, out, 1)
		assert.Equal(t, 10.0, out[0].End)
	})

	t.Run("merge is idempotent", func(t *testing.T) {
		in := []Segment{
			{Speaker: "A", Start: 0, End: 8},
			{Speaker: "A", Start: 8.5, End: 9},
			{Speaker: "B", Start: 9, End: 20},
			{Speaker: "A", Start: 30, End: 31},
		}
		once := MergeSegments(in, 5.0)
		twice := MergeSegments(once, 5.0)
		assert.Equal(t, once, twice)
	})

	t.Run("output is sorted with no mergeable neighbors", func(t *testing.T) {
		in := []Segment{
			{Speaker: "B", Start: 4, End: 6},
			{Speaker: "A", Start: 0, End: 1},
			{Speaker: "A", Start: 1.5, End: 3},
			{Speaker: "B", Start: 6.5, End: 8},
			{Speaker: "A", Start: 20, End: 22},
		}
		out := MergeSegments(in, 5.0)

		for i := 1; i < len(out); i++ {
			assert.LessOrEqual(t, out[i-1].Start, out[i].Start, "output must be sorted by start")
			if out[i-1].Speaker == out[i].Speaker {
				assert.GreaterOrEqual(t, out[i].Start-out[i-1].End, 5.0,
					"adjacent same-speaker segments must be separated by at least the gap threshold")
			}
		}
	})
}
