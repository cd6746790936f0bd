package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkSamples(t *testing.T) {
	t.Run("short buffer is a single chunk", func(t *testing.T) {
		samples := make([]float32, 100)
		chunks := ChunkSamples(samples, 256, 16)
		require.Len(t, chunks, 1)
		assert.Len(t, chunks[0], 100)
	})

	t.Run("windows advance by chunk size minus overlap", func(t *testing.T) {
		samples := make([]float32, 1000)
		for i := range samples {
			samples[i] = float32(i)
		}
		chunks := ChunkSamples(samples, 400, 100)

		require.Len(t, chunks, 3)
		assert.Equal(t, float32(0), chunks[0][0])
		assert.Equal(t, float32(300), chunks[1][0])
		assert.Equal(t, float32(600), chunks[2][0])
		// final chunk reaches the end exactly
		assert.Equal(t, float32(999), chunks[2][len(chunks[2])-1])
	})

	t.Run("round trip reconstructs the original sample count", func(t *testing.T) {
		const (
			maxSamples = 256000
			overlap    = 16000
		)
		samples := make([]float32, maxSamples*5/2) // 2.5x max_samples

		chunks := ChunkSamples(samples, maxSamples, overlap)
		require.Greater(t, len(chunks), 1)

		total := 0
		for _, c := range chunks {
			total += len(c)
		}
		// subtracting the shared overlap regions restores the original count
		assert.Equal(t, len(samples), total-overlap*(len(chunks)-1))
	})
}

func TestPadToMultiple(t *testing.T) {
	t.Run("pads trailing edge with zeros", func(t *testing.T) {
		samples := []float32{1, 2, 3, 4, 5}
		padded := PadToMultiple(samples, 4)

		require.Len(t, padded, 8)
		assert.Equal(t, []float32{1, 2, 3, 4, 5, 0, 0, 0}, padded)
	})

	t.Run("exact multiple is unchanged", func(t *testing.T) {
		samples := []float32{1, 2, 3, 4}
		assert.Len(t, PadToMultiple(samples, 4), 4)
	})

	t.Run("model frame divisor", func(t *testing.T) {
		samples := make([]float32, 16100)
		padded := PadToMultiple(samples, 360)
		assert.Equal(t, 0, len(padded)%360)
		assert.GreaterOrEqual(t, len(padded), len(samples))
		assert.Less(t, len(padded)-len(samples), 360)
	})
}

func TestStitchTexts(t *testing.T) {
	t.Run("space joins in chunk order", func(t *testing.T) {
		assert.Equal(t, "xin chào các bạn", StitchTexts([]string{"xin chào", "các bạn"}))
	})

	t.Run("empty chunk texts are skipped", func(t *testing.T) {
		assert.Equal(t, "a b", StitchTexts([]string{"a", "", "  ", "b"}))
	})

	t.Run("all empty yields empty string", func(t *testing.T) {
		assert.Equal(t, "", StitchTexts([]string{"", ""}))
	})
}
