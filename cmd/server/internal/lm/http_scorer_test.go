package lm

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ratingServer(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/generate", r.URL.Path)

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.NotEmpty(t, req.Prompt)
		assert.Zero(t, req.Temperature)

		json.NewEncoder(w).Encode(generateResponse{Text: reply})
	}))
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParseRating(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  float64
	}{
		{"bare number", "85", 85},
		{"number with label", "Điểm: 85/100", 85},
		{"decimal", "72.5", 72.5},
		{"no number defaults to neutral", "câu này rất hay", 50},
		{"empty defaults to neutral", "", 50},
		{"clamped high", "150", 100},
		{"clamped low", "-20", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseRating(tt.reply))
		})
	}
}

func TestScoreComplete(t *testing.T) {
	t.Run("maps rating into log space", func(t *testing.T) {
		srv := ratingServer(t, "85")
		defer srv.Close()

		scorer := NewHTTPScorer(srv.URL, "test-model", 0, testLogger())
		score, err := scorer.ScoreComplete(context.Background(), "xin chào các bạn")
		require.NoError(t, err)
		assert.InDelta(t, math.Log(86.0/101.0), score, 1e-9)
	})

	t.Run("transport failure degrades to penalty score", func(t *testing.T) {
		scorer := NewHTTPScorer("http://127.0.0.1:1", "test-model", 0, testLogger())
		score, err := scorer.ScoreComplete(context.Background(), "xin chào")
		require.NoError(t, err)
		assert.Equal(t, failedCompleteScore, score)
	})

	t.Run("server error degrades to penalty score", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		scorer := NewHTTPScorer(srv.URL, "test-model", 0, testLogger())
		score, err := scorer.ScoreComplete(context.Background(), "xin chào")
		require.NoError(t, err)
		assert.Equal(t, failedCompleteScore, score)
	})
}

func TestScore(t *testing.T) {
	t.Run("rates each candidate", func(t *testing.T) {
		srv := ratingServer(t, "60")
		defer srv.Close()

		scorer := NewHTTPScorer(srv.URL, "test-model", 0, testLogger())
		scores, err := scorer.Score(context.Background(), "xin", []string{"chào", "chao"})
		require.NoError(t, err)
		require.Len(t, scores, 2)
		assert.InDelta(t, math.Log(61.0/101.0), scores[0], 1e-9)
		assert.Equal(t, scores[0], scores[1])
	})

	t.Run("failed candidates get the candidate penalty", func(t *testing.T) {
		scorer := NewHTTPScorer("http://127.0.0.1:1", "test-model", 0, testLogger())
		scores, err := scorer.Score(context.Background(), "xin", []string{"chào"})
		require.NoError(t, err)
		require.Len(t, scores, 1)
		assert.Equal(t, failedCandidateScore, scores[0])
	})
}

func TestNoopScorer(t *testing.T) {
	var s NoopScorer
	score, err := s.ScoreComplete(context.Background(), "anything")
	require.NoError(t, err)
	assert.Zero(t, score)

	scores, err := s.Score(context.Background(), "a", []string{"b", "c"})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0}, scores)
	assert.Equal(t, "noop", s.Name())
}
