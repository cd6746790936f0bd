// Package acoustic produces per-frame log-probability matrices from audio.
package acoustic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/vnspeech/s2t-server/cmd/server/internal/decode"
)

// Model runs acoustic inference on a mono sample buffer.
type Model interface {
	// Infer returns the log-probability matrix for the buffer and the number
	// of valid frames. Frames beyond that count come from padding and must be
	// ignored by the decoder.
	Infer(ctx context.Context, samples []float32, sampleRate int) (decode.Matrix, int, error)

	// Name identifies the model in logs and metrics.
	Name() string
}

// HTTPModel calls an external inference service.
type HTTPModel struct {
	baseURL string
	client  *http.Client
	log     *slog.Logger
}

// NewHTTPModel points at an inference endpoint, e.g. http://acoustic:9000.
func NewHTTPModel(baseURL string, timeout time.Duration, log *slog.Logger) *HTTPModel {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &HTTPModel{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		log:     log,
	}
}

func (m *HTTPModel) Name() string { return "http" }

type inferRequest struct {
	SampleRate int       `json:"sample_rate"`
	Samples    []float32 `json:"samples"`
}

type inferResponse struct {
	LogProbs [][]float64 `json:"log_probs"`
	Frames   int         `json:"frames"`
}

// Infer implements Model.
func (m *HTTPModel) Infer(ctx context.Context, samples []float32, sampleRate int) (decode.Matrix, int, error) {
	body, err := json.Marshal(inferRequest{SampleRate: sampleRate, Samples: samples})
	if err != nil {
		return nil, 0, fmt.Errorf("marshal inference request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/v1/infer", bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("build inference request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("call inference service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, 0, fmt.Errorf("inference service returned status %d", resp.StatusCode)
	}

	var out inferResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, 0, fmt.Errorf("decode inference response: %w", err)
	}
	if len(out.LogProbs) == 0 {
		return nil, 0, fmt.Errorf("inference service returned no frames")
	}
	frames := out.Frames
	if frames <= 0 || frames > len(out.LogProbs) {
		frames = len(out.LogProbs)
	}

	m.log.Debug("acoustic inference done",
		slog.Int("samples", len(samples)),
		slog.Int("frames", frames),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))

	return decode.Matrix(out.LogProbs), frames, nil
}
