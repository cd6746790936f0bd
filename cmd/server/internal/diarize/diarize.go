// Package diarize provides speaker-diarization types, the segment merger, and
// the external diarization collaborator interface.
package diarize

import (
	"context"
	"sort"
)

// Segment represents a speaker-attributed time range.
type Segment struct {
	// Speaker is the diarization speaker label (e.g. "SPEAKER_00").
	Speaker string `json:"speaker"`
	// Start is the segment start time in seconds.
	Start float64 `json:"start"`
	// End is the segment end time in seconds.
	End float64 `json:"end"`
}

// Duration returns the segment length in seconds.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// Diarizer produces raw, possibly unsorted speaker segments for an audio file.
type Diarizer interface {
	// Diarize runs speaker diarization on the audio file at audioPath.
	Diarize(ctx context.Context, audioPath string) ([]Segment, error)

	// Name returns the human-readable identifier of this diarizer backend.
	Name() string
}

// MergeSegments consolidates raw diarization output into speaker turns.
//
// Segments are sorted ascending by start time (stable, so equal starts keep
// input order), then walked once: a segment sharing the running speaker whose
// gap to the running end is below gapThreshold extends the running turn,
// anything else flushes it. 0- or 1-element inputs pass through unchanged.
func MergeSegments(segments []Segment, gapThreshold float64) []Segment {
	if len(segments) <= 1 {
		return append([]Segment(nil), segments...)
	}

	sorted := append([]Segment(nil), segments...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	merged := make([]Segment, 0, len(sorted))
	current := sorted[0]

	for _, seg := range sorted[1:] {
		if seg.Speaker == current.Speaker && seg.Start-current.End < gapThreshold {
			if seg.End > current.End {
				current.End = seg.End
			}
			continue
		}
		merged = append(merged, current)
		current = seg
	}

	return append(merged, current)
}
