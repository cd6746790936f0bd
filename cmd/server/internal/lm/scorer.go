// Package lm scores text fluency with an external generative language model.
package lm

import "context"

// Scorer rates text fluency as a log-probability-like value, higher is more
// fluent.
type Scorer interface {
	// ScoreComplete rates one complete text.
	ScoreComplete(ctx context.Context, text string) (float64, error)

	// Score rates candidate continuations of text, one score per candidate.
	Score(ctx context.Context, text string, candidates []string) ([]float64, error)

	// Name identifies the scorer in logs and metrics.
	Name() string
}
