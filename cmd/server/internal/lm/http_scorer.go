package lm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// failedCompleteScore is returned when rating a whole text fails.
	failedCompleteScore = -10.0
	// failedCandidateScore is assigned to a candidate whose rating fails.
	failedCandidateScore = -100.0
	// defaultRating is used when the model reply contains no number.
	defaultRating = 50.0
)

var numberPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// HTTPScorer rates fluency by prompting a generative model over HTTP. Rating
// failures never propagate as errors; they degrade to fixed penalty scores so
// one flaky LM call cannot sink a transcription.
type HTTPScorer struct {
	baseURL string
	model   string
	client  *http.Client
	log     *slog.Logger
}

// NewHTTPScorer points at a generation endpoint, e.g. http://lm:8000.
func NewHTTPScorer(baseURL, model string, timeout time.Duration, log *slog.Logger) *HTTPScorer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPScorer{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: timeout},
		log:     log,
	}
}

func (s *HTTPScorer) Name() string { return "http" }

// ScoreComplete implements Scorer.
func (s *HTTPScorer) ScoreComplete(ctx context.Context, text string) (float64, error) {
	score, err := s.rate(ctx, text)
	if err != nil {
		s.log.Warn("lm rating failed, using penalty score",
			slog.String("scorer", s.Name()),
			slog.String("error", err.Error()))
		return failedCompleteScore, nil
	}
	return score, nil
}

// Score implements Scorer. Each candidate is rated as text+candidate;
// failures are absorbed per candidate.
func (s *HTTPScorer) Score(ctx context.Context, text string, candidates []string) ([]float64, error) {
	scores := make([]float64, len(candidates))
	for i, cand := range candidates {
		full := strings.TrimSpace(text + " " + cand)
		score, err := s.rate(ctx, full)
		if err != nil {
			s.log.Warn("lm candidate rating failed, using penalty score",
				slog.String("scorer", s.Name()),
				slog.String("error", err.Error()))
			scores[i] = failedCandidateScore
			continue
		}
		scores[i] = score
	}
	return scores, nil
}

type generateRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

type generateResponse struct {
	Text string `json:"text"`
}

// rate asks the model for a 0-100 fluency rating and maps it into log space.
func (s *HTTPScorer) rate(ctx context.Context, text string) (float64, error) {
	prompt := fmt.Sprintf(
		"Đánh giá độ trôi chảy của câu tiếng Việt sau trên thang điểm từ 0 đến 100. Chỉ trả lời bằng một con số.\nCâu: %q\nĐiểm:",
		text)

	body, err := json.Marshal(generateRequest{
		Model:       s.model,
		Prompt:      prompt,
		Temperature: 0,
		MaxTokens:   10,
	})
	if err != nil {
		return 0, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/generate", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("call lm service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return 0, fmt.Errorf("lm service returned status %d", resp.StatusCode)
	}

	var gen generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gen); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}

	rating := parseRating(gen.Text)
	return math.Log((rating + 1) / 101.0), nil
}

// parseRating extracts the first number from the model reply, clamped to
// [0, 100]. Replies without a number rate as neutral.
func parseRating(reply string) float64 {
	reply = strings.TrimSpace(reply)
	rating, err := strconv.ParseFloat(reply, 64)
	if err != nil {
		match := numberPattern.FindString(reply)
		if match == "" {
			return defaultRating
		}
		rating, err = strconv.ParseFloat(match, 64)
		if err != nil {
			return defaultRating
		}
	}
	if rating < 0 {
		return 0
	}
	if rating > 100 {
		return 100
	}
	return rating
}
