package audio

import "strings"

// ChunkSamples splits a long buffer into decodable windows of maxSamples with
// a fixed overlap, advancing the window start by maxSamples-overlap each step
// until the final chunk reaches the end exactly. Buffers at or below
// maxSamples come back as a single chunk. Chunks share the backing array of
// samples; callers must not mutate them.
func ChunkSamples(samples []float32, maxSamples, overlap int) [][]float32 {
	if len(samples) <= maxSamples {
		return [][]float32{samples}
	}

	step := maxSamples - overlap
	var chunks [][]float32
	for start := 0; ; start += step {
		end := start + maxSamples
		if end >= len(samples) {
			chunks = append(chunks, samples[start:])
			break
		}
		chunks = append(chunks, samples[start:end])
	}
	return chunks
}

// PadToMultiple zero-pads the trailing edge of the chunk up to the nearest
// multiple of divisor, as required by the acoustic model's frame reduction.
func PadToMultiple(samples []float32, divisor int) []float32 {
	remainder := len(samples) % divisor
	if remainder == 0 {
		return samples
	}
	padded := make([]float32, len(samples)+divisor-remainder)
	copy(padded, samples)
	return padded
}

// StitchTexts rejoins independently decoded chunk transcripts in chunk order,
// space-joined. Text in the overlap region is not de-duplicated; duplicated
// words at chunk boundaries are accepted output.
func StitchTexts(texts []string) string {
	kept := make([]string, 0, len(texts))
	for _, t := range texts {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		kept = append(kept, t)
	}
	return strings.Join(kept, " ")
}
