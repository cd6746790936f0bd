package audio

import (
	"math"

	"github.com/vnspeech/s2t-server/cmd/server/internal/diarize"
)

// Buffer is an extracted mono sample slice tagged with its source speaker turn.
// Samples are owned exclusively by the buffer (copied out of the waveform).
type Buffer struct {
	Speaker string
	Start   float64
	End     float64
	Samples []float32
}

// ExtractSegments slices the mono waveform into one buffer per merged speaker
// turn. Sample indices come from round(time * sampleRate), clamped to the
// waveform bounds. Turns shorter than one second of audio are dropped, that is
// a hard filter rather than an error.
func ExtractSegments(samples []float32, sampleRate int, segments []diarize.Segment) []Buffer {
	buffers := make([]Buffer, 0, len(segments))

	for _, seg := range segments {
		start := int(math.Round(seg.Start * float64(sampleRate)))
		end := int(math.Round(seg.End * float64(sampleRate)))
		if start < 0 {
			start = 0
		}
		if end > len(samples) {
			end = len(samples)
		}
		if end-start < sampleRate {
			continue
		}

		buffers = append(buffers, Buffer{
			Speaker: seg.Speaker,
			Start:   seg.Start,
			End:     seg.End,
			Samples: append([]float32(nil), samples[start:end]...),
		})
	}

	return buffers
}
