package decode

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// Hypothesis is one candidate token sequence with its path log-probability.
type Hypothesis struct {
	Tokens []int
	Score  float64
}

// prefix tracks the two CTC path classes for one token sequence: paths ending
// in blank and paths ending in the final non-blank token.
type prefix struct {
	tokens []int
	pb     float64
	pnb    float64
	lm     float64
}

func (p *prefix) score() float64 { return logAdd(p.pb, p.pnb) + p.lm }

// BeamSearchOptions configures BeamSearch beyond the beam width.
type BeamSearchOptions struct {
	// NBest caps the number of returned hypotheses. Zero means BeamSize.
	NBest int

	// Temperature rescales frame distributions before the search; 1.0 is a
	// no-op, values above 1 flatten the distribution.
	Temperature float64

	// Ngram, when set, adds Alpha*logprob+Beta to a hypothesis each time it
	// emits a new token. TokenText maps a token id to the text the model is
	// keyed by and must be set alongside Ngram.
	Ngram     *NgramModel
	Alpha     float64
	Beta      float64
	TokenText func(id int) string
}

// BeamSearch runs CTC prefix beam search over the matrix and returns up to
// NBest hypotheses, best first. An empty matrix yields a single empty
// hypothesis.
func BeamSearch(m Matrix, beamSize int, opts BeamSearchOptions) []Hypothesis {
	if beamSize < 1 {
		beamSize = 1
	}
	nBest := opts.NBest
	if nBest < 1 {
		nBest = beamSize
	}
	if opts.Temperature > 0 && opts.Temperature != 1.0 {
		m = applyTemperature(m, opts.Temperature)
	}

	negInf := math.Inf(-1)
	beams := []*prefix{{pb: 0, pnb: negInf}}

	for _, frame := range m {
		next := make(map[string]*prefix, beamSize*len(frame))
		get := func(tokens []int, lm float64) *prefix {
			key := prefixKey(tokens)
			p, ok := next[key]
			if !ok {
				p = &prefix{tokens: tokens, pb: negInf, pnb: negInf, lm: lm}
				next[key] = p
			}
			return p
		}

		for _, b := range beams {
			total := logAdd(b.pb, b.pnb)
			for id, logp := range frame {
				if id == 0 {
					p := get(b.tokens, b.lm)
					p.pb = logAdd(p.pb, total+logp)
					continue
				}
				if n := len(b.tokens); n > 0 && b.tokens[n-1] == id {
					// same token again: no blank in between keeps the
					// collapsed emission, a blank in between starts a new one
					p := get(b.tokens, b.lm)
					p.pnb = logAdd(p.pnb, b.pnb+logp)

					ext := get(extend(b.tokens, id), b.lm+lmBonus(opts, id))
					ext.pnb = logAdd(ext.pnb, b.pb+logp)
					continue
				}
				ext := get(extend(b.tokens, id), b.lm+lmBonus(opts, id))
				ext.pnb = logAdd(ext.pnb, total+logp)
			}
		}

		beams = beams[:0]
		for _, p := range next {
			beams = append(beams, p)
		}
		sort.Slice(beams, func(i, j int) bool { return beams[i].score() > beams[j].score() })
		if len(beams) > beamSize {
			beams = beams[:beamSize]
		}
	}

	if nBest > len(beams) {
		nBest = len(beams)
	}
	out := make([]Hypothesis, 0, nBest)
	for _, b := range beams[:nBest] {
		out = append(out, Hypothesis{Tokens: b.tokens, Score: b.score()})
	}
	if len(out) == 0 {
		out = append(out, Hypothesis{})
	}
	return out
}

func lmBonus(opts BeamSearchOptions, id int) float64 {
	if opts.Ngram == nil || opts.TokenText == nil {
		return 0
	}
	return opts.Alpha*opts.Ngram.LogProb(opts.TokenText(id)) + opts.Beta
}

func extend(tokens []int, id int) []int {
	out := make([]int, len(tokens)+1)
	copy(out, tokens)
	out[len(tokens)] = id
	return out
}

func prefixKey(tokens []int) string {
	var sb strings.Builder
	for i, t := range tokens {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(t))
	}
	return sb.String()
}

// applyTemperature renormalizes every frame as softmax(logp/t) in log space.
func applyTemperature(m Matrix, t float64) Matrix {
	out := make(Matrix, len(m))
	for i, frame := range m {
		scaled := make([]float64, len(frame))
		sum := math.Inf(-1)
		for j, lp := range frame {
			scaled[j] = lp / t
			sum = logAdd(sum, scaled[j])
		}
		for j := range scaled {
			scaled[j] -= sum
		}
		out[i] = scaled
	}
	return out
}

// logAdd computes log(exp(a)+exp(b)) without overflow.
func logAdd(a, b float64) float64 {
	if math.IsInf(a, -1) {
		return b
	}
	if math.IsInf(b, -1) {
		return a
	}
	if a < b {
		a, b = b, a
	}
	return a + math.Log1p(math.Exp(b-a))
}
