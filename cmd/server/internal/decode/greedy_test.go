package decode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// peakedMatrix builds one frame per id with nearly all probability mass on
// that id. Id 0 is the blank.
func peakedMatrix(vocabSize int, ids ...int) Matrix {
	m := make(Matrix, len(ids))
	for t, id := range ids {
		frame := make([]float64, vocabSize)
		for i := range frame {
			frame[i] = -12.0
		}
		frame[id] = -0.01
		m[t] = frame
	}
	return m
}

func TestGreedyDecode(t *testing.T) {
	tests := []struct {
		name   string
		frames []int
		want   []int
	}{
		{"repeats collapse", []int{1, 1, 1}, []int{1}},
		{"blank separates repeats", []int{0, 1, 1, 0, 1}, []int{1, 1}},
		{"distinct tokens all emit", []int{1, 2, 3}, []int{1, 2, 3}},
		{"leading and trailing blanks drop", []int{0, 0, 2, 0, 0}, []int{2}},
		{"all blank is empty", []int{0, 0, 0}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GreedyDecode(peakedMatrix(4, tt.frames...)))
		})
	}
}

func TestGreedyDecodeEmptyMatrix(t *testing.T) {
	assert.Empty(t, GreedyDecode(Matrix{}))
}
