package decode

// GreedyDecode takes the argmax token of every frame and collapses the CTC
// path: consecutive repeats of a non-blank token emit once, and a blank
// between two identical tokens separates them into two emissions.
func GreedyDecode(m Matrix) []int {
	var out []int
	prev := 0
	for _, frame := range m {
		best := 0
		for i := 1; i < len(frame); i++ {
			if frame[i] > frame[best] {
				best = i
			}
		}
		if best != 0 && best != prev {
			out = append(out, best)
		}
		prev = best
	}
	return out
}
