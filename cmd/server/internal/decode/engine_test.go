package decode

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnspeech/s2t-server/cmd/server/internal/tokenizer"
)

type fakeScorer struct {
	scores []float64
	err    error
}

func (f *fakeScorer) ScoreComplete(ctx context.Context, text string) (float64, error) {
	return 0, f.err
}

func (f *fakeScorer) Score(ctx context.Context, text string, candidates []string) ([]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]float64, len(candidates))
	copy(out, f.scores)
	return out, nil
}

func (f *fakeScorer) Name() string { return "fake" }

func testEngineLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func abTokenizer() tokenizer.Tokenizer {
	return tokenizer.NewInMemoryTokenizer([]string{"<blank>", "▁a", "▁b", "▁c"})
}

func TestEngineStrategyChain(t *testing.T) {
	tok := abTokenizer()
	log := testEngineLogger()

	t.Run("greedy only", func(t *testing.T) {
		e := NewEngine(tok, nil, EngineConfig{BeamSize: 1}, log)
		assert.Equal(t, []string{StrategyGreedy}, e.Strategies())
	})

	t.Run("beam then greedy", func(t *testing.T) {
		e := NewEngine(tok, nil, EngineConfig{BeamSize: 4}, log)
		assert.Equal(t, []string{StrategyBeam, StrategyGreedy}, e.Strategies())
	})

	t.Run("full chain with scorer", func(t *testing.T) {
		e := NewEngine(tok, &fakeScorer{}, EngineConfig{BeamSize: 4}, log)
		assert.Equal(t, []string{StrategyLMRescored, StrategyBeam, StrategyGreedy}, e.Strategies())
	})
}

func TestEngineGreedyDecoding(t *testing.T) {
	e := NewEngine(abTokenizer(), nil, EngineConfig{BeamSize: 1}, testEngineLogger())
	m := peakedMatrix(4, 1, 1, 0, 2)

	assert.Equal(t, "a b", e.Decode(context.Background(), m))
}

// prunedPathMatrix builds a two-frame matrix where token 3 is pruned by a
// width-2 search after frame one but carries the highest total path mass:
// greedy and beam width 2 settle on token 1, a width-4 pool ranks token 3
// first.
func prunedPathMatrix() Matrix {
	negInf := math.Inf(-1)
	return Matrix{
		{negInf, math.Log(0.4), math.Log(0.35), math.Log(0.25)},
		{math.Log(0.55), negInf, negInf, math.Log(0.45)},
	}
}

func TestEngineFallsBackWhenNgramMissing(t *testing.T) {
	tok := abTokenizer()
	log := testEngineLogger()

	t.Run("beam strategy demotes to greedy", func(t *testing.T) {
		m := peakedMatrix(4, 1, 0, 3)
		broken := NewEngine(tok, nil, EngineConfig{
			BeamSize:  4,
			NgramPath: filepath.Join(t.TempDir(), "missing.txt"),
		}, log)
		greedyOnly := NewEngine(tok, nil, EngineConfig{BeamSize: 1}, log)

		assert.Equal(t, greedyOnly.Decode(context.Background(), m), broken.Decode(context.Background(), m))
	})

	t.Run("rescoring is unaffected", func(t *testing.T) {
		e := NewEngine(tok, &fakeScorer{scores: []float64{0, 0}}, EngineConfig{
			BeamSize:  2,
			LMWeight:  0.3,
			NgramPath: filepath.Join(t.TempDir(), "missing.txt"),
		}, log)

		// only the rescored path's wide acoustic search surfaces token 3;
		// greedy on this matrix yields "a"
		assert.Equal(t, "c", e.Decode(context.Background(), prunedPathMatrix()))
	})
}

func TestEngineRescoringPoolIsDoubleWidth(t *testing.T) {
	tok := abTokenizer()
	e := NewEngine(tok, &fakeScorer{scores: []float64{0, 0}}, EngineConfig{
		BeamSize: 2,
		LMWeight: 0.3,
	}, testEngineLogger())

	// a width-2 search never produces the winning hypothesis, so this only
	// passes when the rescored pool is searched at twice the beam size
	assert.Equal(t, "c", e.Decode(context.Background(), prunedPathMatrix()))
}

func TestEngineRescoring(t *testing.T) {
	tok := abTokenizer()
	// token 1 slightly ahead acoustically, token 2 the fluent choice
	m := Matrix{{math.Log(0.02), math.Log(0.55), math.Log(0.43), math.Inf(-1)}}

	t.Run("scorer preference wins under heavy lm weight", func(t *testing.T) {
		scorer := &fakeScorer{scores: []float64{-5, 0}}
		e := NewEngine(tok, scorer, EngineConfig{BeamSize: 2, LMWeight: 0.9}, testEngineLogger())

		assert.Equal(t, "b", e.Decode(context.Background(), m))
	})

	t.Run("zero lm weight keeps the acoustic ranking", func(t *testing.T) {
		scorer := &fakeScorer{scores: []float64{-5, 0}}
		e := NewEngine(tok, scorer, EngineConfig{BeamSize: 2, LMWeight: 0}, testEngineLogger())

		assert.Equal(t, "a", e.Decode(context.Background(), m))
	})

	t.Run("scorer failure ranks on acoustic score alone", func(t *testing.T) {
		scorer := &fakeScorer{err: errors.New("lm service down")}
		e := NewEngine(tok, scorer, EngineConfig{BeamSize: 2, LMWeight: 0.9}, testEngineLogger())

		assert.Equal(t, "a", e.Decode(context.Background(), m))
	})
}

func TestEngineNormalizesOutput(t *testing.T) {
	tok := tokenizer.NewInMemoryTokenizer([]string{"<blank>", "▁XIN", "▁Chào"})
	e := NewEngine(tok, nil, EngineConfig{BeamSize: 1}, testEngineLogger())

	m := peakedMatrix(3, 1, 0, 2)
	assert.Equal(t, "xin chào", e.Decode(context.Background(), m))
}

func TestEngineEmptyMatrix(t *testing.T) {
	e := NewEngine(abTokenizer(), nil, EngineConfig{BeamSize: 4}, testEngineLogger())
	assert.Equal(t, "", e.Decode(context.Background(), Matrix{}))

	require.Equal(t, 0, Matrix{}.Frames())
	require.Equal(t, 0, Matrix{}.VocabSize())
}
