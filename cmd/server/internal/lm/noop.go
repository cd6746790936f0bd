package lm

import "context"

// NoopScorer rates everything zero. Used when no language model is
// configured so decoding runs on acoustic scores alone.
type NoopScorer struct{}

func (NoopScorer) ScoreComplete(ctx context.Context, text string) (float64, error) {
	return 0, nil
}

func (NoopScorer) Score(ctx context.Context, text string, candidates []string) ([]float64, error) {
	return make([]float64, len(candidates)), nil
}

func (NoopScorer) Name() string { return "noop" }
