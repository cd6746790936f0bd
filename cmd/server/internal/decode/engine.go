package decode

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vnspeech/s2t-server/cmd/server/internal/lm"
	"github.com/vnspeech/s2t-server/cmd/server/internal/tokenizer"
	"github.com/vnspeech/s2t-server/pkg/metrics"
)

// Decoding strategies, strongest first. Each failed attempt falls through to
// the next one; greedy cannot fail.
const (
	StrategyLMRescored = "lm_rescored"
	StrategyBeam       = "beam"
	StrategyGreedy     = "greedy"
)

// EngineConfig holds the decoding knobs.
type EngineConfig struct {
	BeamSize    int
	Temperature float64
	NgramPath   string
	NgramAlpha  float64
	NgramBeta   float64
	// LMWeight is the shallow-fusion weight lambda; combined score is
	// (1-lambda)*acoustic + lambda*lm.
	LMWeight float64
}

// Engine decodes log-probability matrices into normalized text. The strategy
// chain is fixed at construction; per-call failures demote to the next
// strategy instead of failing the segment.
type Engine struct {
	tok        tokenizer.Tokenizer
	scorer     lm.Scorer
	cfg        EngineConfig
	ngram      *NgramModel
	ngramErr   error
	strategies []string
	log        *slog.Logger
}

// NewEngine wires a decoding engine. scorer may be nil to disable rescoring.
// A configured but unloadable n-gram model is not fatal here; the beam
// strategy reports it per call and decoding degrades to greedy.
func NewEngine(tok tokenizer.Tokenizer, scorer lm.Scorer, cfg EngineConfig, log *slog.Logger) *Engine {
	if cfg.BeamSize < 1 {
		cfg.BeamSize = 1
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 1.0
	}

	e := &Engine{tok: tok, scorer: scorer, cfg: cfg, log: log}

	if cfg.NgramPath != "" {
		e.ngram, e.ngramErr = LoadNgramModel(cfg.NgramPath)
		if e.ngramErr != nil {
			log.Warn("ngram model unavailable, beam search will degrade to greedy",
				slog.String("path", cfg.NgramPath),
				slog.String("error", e.ngramErr.Error()))
		}
	}

	if scorer != nil {
		e.strategies = append(e.strategies, StrategyLMRescored)
	}
	if cfg.BeamSize > 1 {
		e.strategies = append(e.strategies, StrategyBeam)
	}
	e.strategies = append(e.strategies, StrategyGreedy)

	return e
}

// Strategies returns the configured fallback chain, strongest first.
func (e *Engine) Strategies() []string {
	out := make([]string, len(e.strategies))
	copy(out, e.strategies)
	return out
}

// Decode runs the strategy chain on one matrix. It always produces a string;
// an empty matrix or an all-blank path decodes to "".
func (e *Engine) Decode(ctx context.Context, m Matrix) string {
	for i, strategy := range e.strategies {
		text, err := e.attempt(ctx, strategy, m)
		if err != nil {
			if i+1 >= len(e.strategies) {
				e.log.Error("final decode strategy failed",
					slog.String("strategy", strategy),
					slog.String("error", err.Error()))
				return ""
			}
			next := e.strategies[i+1]
			e.log.Warn("decode strategy failed, falling back",
				slog.String("strategy", strategy),
				slog.String("next", next),
				slog.String("error", err.Error()))
			metrics.RecordDecodeFallback(strategy, next)
			continue
		}
		metrics.RecordDecodeStrategy(strategy)
		return normalizeText(text)
	}
	// unreachable: greedy is always last and never errors
	return ""
}

func (e *Engine) attempt(ctx context.Context, strategy string, m Matrix) (string, error) {
	switch strategy {
	case StrategyLMRescored:
		return e.decodeRescored(ctx, m)
	case StrategyBeam:
		return e.decodeBeam(m)
	case StrategyGreedy:
		return e.tok.Decode(GreedyDecode(m)), nil
	default:
		return "", fmt.Errorf("unknown strategy %q", strategy)
	}
}

func (e *Engine) beamOptions(nBest int) (BeamSearchOptions, error) {
	if e.ngramErr != nil {
		return BeamSearchOptions{}, fmt.Errorf("ngram model: %w", e.ngramErr)
	}
	opts := BeamSearchOptions{NBest: nBest, Temperature: e.cfg.Temperature}
	if e.ngram != nil {
		opts.Ngram = e.ngram
		opts.Alpha = e.cfg.NgramAlpha
		opts.Beta = e.cfg.NgramBeta
		opts.TokenText = func(id int) string { return e.tok.Decode([]int{id}) }
	}
	return opts, nil
}

func (e *Engine) decodeBeam(m Matrix) (string, error) {
	opts, err := e.beamOptions(1)
	if err != nil {
		return "", err
	}
	hyps := BeamSearch(m, e.cfg.BeamSize, opts)
	return e.tok.Decode(hyps[0].Tokens), nil
}

// decodeRescored runs an acoustic-only search at double width, producing the
// top 2x beam-size hypothesis pool, then re-ranks the best beam-size entries
// with the external scorer. No n-gram weighting is applied here; the wide
// search stands alone so a missing n-gram file never costs this strategy.
// Scorer errors fall back to acoustic-only ranking rather than failing the
// attempt.
func (e *Engine) decodeRescored(ctx context.Context, m Matrix) (string, error) {
	width := 2 * e.cfg.BeamSize
	hyps := BeamSearch(m, width, BeamSearchOptions{
		NBest:       width,
		Temperature: e.cfg.Temperature,
	})

	keep := e.cfg.BeamSize
	if keep > len(hyps) {
		keep = len(hyps)
	}
	hyps = hyps[:keep]

	texts := make([]string, len(hyps))
	for i, h := range hyps {
		texts[i] = e.tok.Decode(h.Tokens)
	}

	lmScores, err := e.scorer.Score(ctx, "", texts)
	if err != nil || len(lmScores) != len(hyps) {
		if err != nil {
			e.log.Warn("lm rescoring unavailable, ranking on acoustic score",
				slog.String("scorer", e.scorer.Name()),
				slog.String("error", err.Error()))
		}
		return texts[0], nil
	}

	lambda := e.cfg.LMWeight
	bestIdx, bestScore := 0, 0.0
	for i, h := range hyps {
		combined := (1-lambda)*h.Score + lambda*lmScores[i]
		if i == 0 || combined > bestScore {
			bestIdx, bestScore = i, combined
		}
	}
	return texts[bestIdx], nil
}

func normalizeText(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}
