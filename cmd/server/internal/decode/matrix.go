// Package decode turns per-frame acoustic log-probabilities into text.
package decode

// Matrix holds per-frame log-probabilities over the vocabulary. Index 0 of
// every row is the CTC blank.
type Matrix [][]float64

// Frames returns the number of time frames.
func (m Matrix) Frames() int { return len(m) }

// VocabSize returns the vocabulary width, or 0 for an empty matrix.
func (m Matrix) VocabSize() int {
	if len(m) == 0 {
		return 0
	}
	return len(m[0])
}
