package decode

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// unseenLogProb is charged for tokens the model has no entry for.
const unseenLogProb = -10.0

// NgramModel is a lightweight unigram language model used to bias beam search
// toward fluent token sequences. The backing file holds one "token logprob"
// pair per line.
type NgramModel struct {
	logProbs map[string]float64
}

// LoadNgramModel reads a token-logprob file. Blank lines and lines starting
// with '#' are skipped.
func LoadNgramModel(path string) (*NgramModel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ngram model: %w", err)
	}
	defer f.Close()

	probs := make(map[string]float64)
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("ngram model %s:%d: want \"token logprob\", got %q", path, lineNo, line)
		}
		lp, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("ngram model %s:%d: %w", path, lineNo, err)
		}
		probs[fields[0]] = lp
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read ngram model: %w", err)
	}
	if len(probs) == 0 {
		return nil, fmt.Errorf("ngram model %s: no entries", path)
	}
	return &NgramModel{logProbs: probs}, nil
}

// LogProb returns the stored log-probability for token, or the unseen floor.
func (n *NgramModel) LogProb(token string) float64 {
	if lp, ok := n.logProbs[token]; ok {
		return lp
	}
	return unseenLogProb
}
