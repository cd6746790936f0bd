package diarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// PyannoteDiarizer drives a pretrained pyannote pipeline through a Python
// helper script. The script prints a JSON document with a "segments" array to
// stdout; stderr is passed through for model-loading diagnostics.
type PyannoteDiarizer struct {
	PythonBin  string
	ScriptPath string
	AuthToken  string
}

// NewPyannoteDiarizer creates a script-backed diarizer. Empty pythonBin
// defaults to "python3".
func NewPyannoteDiarizer(pythonBin, scriptPath, authToken string) *PyannoteDiarizer {
	if strings.TrimSpace(pythonBin) == "" {
		pythonBin = "python3"
	}
	return &PyannoteDiarizer{
		PythonBin:  pythonBin,
		ScriptPath: scriptPath,
		AuthToken:  authToken,
	}
}

type scriptOutput struct {
	Segments []Segment `json:"segments"`
}

// Diarize executes the diarization script and parses its JSON output.
// The returned segments are raw: unsorted and unmerged.
func (d *PyannoteDiarizer) Diarize(ctx context.Context, audioPath string) ([]Segment, error) {
	if _, err := os.Stat(d.ScriptPath); err != nil {
		return nil, fmt.Errorf("diarization script %s: %w", d.ScriptPath, err)
	}

	args := []string{d.ScriptPath, "--input", audioPath, "--format", "json"}
	cmd := exec.CommandContext(ctx, d.PythonBin, args...)

	env := os.Environ()
	if d.AuthToken != "" {
		env = append(env, "HUGGINGFACE_ACCESS_TOKEN="+d.AuthToken)
	}
	cmd.Env = env

	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("diarization failed: %w", err)
	}

	var out scriptOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return nil, fmt.Errorf("parse diarization output: %w", err)
	}

	segments := make([]Segment, 0, len(out.Segments))
	for _, seg := range out.Segments {
		if seg.End <= seg.Start {
			continue
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

// Name implements Diarizer.
func (d *PyannoteDiarizer) Name() string { return "pyannote" }
