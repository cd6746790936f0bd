// Package pipeline runs the full transcription flow for one task: diarize,
// merge, extract, decode per speaker turn, persist, notify.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/vnspeech/s2t-server/cmd/server/internal/acoustic"
	"github.com/vnspeech/s2t-server/cmd/server/internal/audio"
	"github.com/vnspeech/s2t-server/cmd/server/internal/decode"
	"github.com/vnspeech/s2t-server/cmd/server/internal/diarize"
	"github.com/vnspeech/s2t-server/cmd/server/internal/taskstore"
	"github.com/vnspeech/s2t-server/pkg/logger"
	"github.com/vnspeech/s2t-server/pkg/metrics"
)

// Config holds the per-task processing knobs.
type Config struct {
	// MergeGapThreshold merges adjacent same-speaker turns closer than this
	// many seconds.
	MergeGapThreshold float64

	// MaxChunkSamples caps the samples handed to the acoustic model at once.
	MaxChunkSamples int

	// ChunkOverlap is the shared sample count between consecutive chunks.
	ChunkOverlap int

	// PadDivisor is the sample-count multiple the model requires.
	PadDivisor int
}

// Orchestrator coordinates one task end to end. Collaborators are interfaces
// so tests can stub the external model services.
type Orchestrator struct {
	cfg      Config
	store    taskstore.Store
	diarizer diarize.Diarizer
	model    acoustic.Model
	engine   *decode.Engine
	notifier *CallbackNotifier
	log      *slog.Logger
}

// NewOrchestrator wires a pipeline. notifier may be nil when callbacks are
// disabled.
func NewOrchestrator(cfg Config, store taskstore.Store, diarizer diarize.Diarizer, model acoustic.Model, engine *decode.Engine, notifier *CallbackNotifier, log *slog.Logger) *Orchestrator {
	if cfg.MaxChunkSamples <= 0 {
		cfg.MaxChunkSamples = 256000
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.MaxChunkSamples {
		cfg.ChunkOverlap = 0
	}
	if cfg.PadDivisor <= 0 {
		cfg.PadDivisor = 1
	}
	return &Orchestrator{
		cfg:      cfg,
		store:    store,
		diarizer: diarizer,
		model:    model,
		engine:   engine,
		notifier: notifier,
		log:      log,
	}
}

// Process runs the task to a terminal state. The uploaded audio file is
// removed when processing ends, whatever the outcome. Errors are absorbed
// into the task record; the returned error only reflects store failures that
// left the task state unknown.
func (o *Orchestrator) Process(ctx context.Context, taskID, audioPath, callbackURL string) error {
	start := time.Now()
	defer func() {
		if err := os.Remove(audioPath); err != nil && !os.IsNotExist(err) {
			o.log.Warn("failed to remove uploaded audio",
				slog.String("task_id", taskID),
				slog.String("path", audioPath),
				slog.String("error", err.Error()))
		}
	}()

	if _, err := os.Stat(audioPath); err != nil {
		return o.fail(ctx, taskID, callbackURL, fmt.Sprintf("audio file unavailable: %v", err))
	}

	if err := o.progress(ctx, taskID, taskstore.StatusProcessing, 10); err != nil {
		return err
	}

	segments, err := o.runDiarize(ctx, taskID, audioPath)
	if err != nil {
		return o.fail(ctx, taskID, callbackURL, fmt.Sprintf("diarization failed: %v", err))
	}
	segments = diarize.MergeSegments(segments, o.cfg.MergeGapThreshold)
	if err := o.progress(ctx, taskID, "", 30); err != nil {
		return err
	}

	samples, sampleRate, err := audio.LoadWAV(audioPath)
	if err != nil {
		return o.fail(ctx, taskID, callbackURL, fmt.Sprintf("audio decode failed: %v", err))
	}
	buffers := audio.ExtractSegments(samples, sampleRate, segments)
	for i := len(buffers); i < len(segments); i++ {
		metrics.RecordSegment("extract", "skipped")
	}
	if err := o.progress(ctx, taskID, "", 40); err != nil {
		return err
	}

	results := o.transcribeBuffers(ctx, taskID, buffers, sampleRate)

	if err := o.store.Update(ctx, taskID, taskstore.Update{
		Status:   taskstore.StatusCompleted,
		Progress: intPtr(100),
		Results:  results,
	}); err != nil {
		return fmt.Errorf("persist results for task %s: %w", taskID, err)
	}
	metrics.RecordTaskFinished(string(taskstore.StatusCompleted))
	logger.LogPipelineStage(o.log, "pipeline", "task_completed", taskID, time.Since(start).Milliseconds(), "")

	o.deliverCallback(ctx, taskID, callbackURL)
	return nil
}

// transcribeBuffers decodes each speaker turn. A failing inference call
// leaves an empty chunk rather than failing the task; turns whose stitched
// text is empty are dropped from the results.
func (o *Orchestrator) transcribeBuffers(ctx context.Context, taskID string, buffers []audio.Buffer, sampleRate int) []taskstore.Result {
	results := make([]taskstore.Result, 0, len(buffers))
	decodeStart := time.Now()

	for i, buf := range buffers {
		chunks := audio.ChunkSamples(buf.Samples, o.cfg.MaxChunkSamples, o.cfg.ChunkOverlap)
		texts := make([]string, 0, len(chunks))
		for _, chunk := range chunks {
			padded := audio.PadToMultiple(chunk, o.cfg.PadDivisor)
			m, frames, err := o.model.Infer(ctx, padded, sampleRate)
			if err != nil {
				o.log.Warn("acoustic inference failed, chunk skipped",
					slog.String("task_id", taskID),
					slog.String("speaker", buf.Speaker),
					slog.String("error", err.Error()))
				texts = append(texts, "")
				continue
			}
			if frames < m.Frames() {
				m = m[:frames]
			}
			texts = append(texts, o.engine.Decode(ctx, m))
		}

		text := audio.StitchTexts(texts)
		if text == "" {
			metrics.RecordSegment("decode", "skipped")
			continue
		}
		metrics.RecordSegment("decode", "success")
		results = append(results, taskstore.Result{
			Speaker:       buf.Speaker,
			StartTime:     buf.Start,
			EndTime:       buf.End,
			Transcription: text,
		})

		pct := 40 + 55*(i+1)/len(buffers)
		if err := o.progress(ctx, taskID, "", pct); err != nil {
			o.log.Warn("progress update failed",
				slog.String("task_id", taskID),
				slog.String("error", err.Error()))
		}
	}

	metrics.RecordStageDuration("decode", time.Since(decodeStart).Seconds())
	return results
}

func (o *Orchestrator) runDiarize(ctx context.Context, taskID, audioPath string) ([]diarize.Segment, error) {
	start := time.Now()
	segments, err := o.diarizer.Diarize(ctx, audioPath)
	metrics.RecordStageDuration("diarize", time.Since(start).Seconds())
	if err != nil {
		metrics.RecordSegment("diarize", "error")
		logger.LogPipelineStage(o.log, o.diarizer.Name(), "diarize", taskID, time.Since(start).Milliseconds(), "DIARIZE_FAILED")
		return nil, err
	}
	for range segments {
		metrics.RecordSegment("diarize", "success")
	}
	logger.LogPipelineStage(o.log, o.diarizer.Name(), "diarize", taskID, time.Since(start).Milliseconds(), "")
	return segments, nil
}

func (o *Orchestrator) progress(ctx context.Context, taskID string, status taskstore.Status, pct int) error {
	return o.store.Update(ctx, taskID, taskstore.Update{Status: status, Progress: intPtr(pct)})
}

// fail marks the task failed and fires the callback. Store errors take
// priority in the return value since they leave the record inconsistent.
func (o *Orchestrator) fail(ctx context.Context, taskID, callbackURL, msg string) error {
	o.log.Error("task failed",
		slog.String("task_id", taskID),
		slog.String("error", msg))

	if err := o.store.Update(ctx, taskID, taskstore.Update{
		Status: taskstore.StatusFailed,
		Error:  &msg,
	}); err != nil {
		return fmt.Errorf("mark task %s failed: %w", taskID, err)
	}
	metrics.RecordTaskFinished(string(taskstore.StatusFailed))
	o.deliverCallback(ctx, taskID, callbackURL)
	return nil
}

func (o *Orchestrator) deliverCallback(ctx context.Context, taskID, callbackURL string) {
	if callbackURL == "" || o.notifier == nil {
		return
	}
	task, err := o.store.Get(ctx, taskID)
	if err != nil {
		o.log.Warn("callback skipped, task record unavailable",
			slog.String("task_id", taskID),
			slog.String("error", err.Error()))
		return
	}

	start := time.Now()
	err = o.notifier.Notify(ctx, callbackURL, task)
	metrics.RecordStageDuration("callback", time.Since(start).Seconds())
	if err != nil {
		o.log.Warn("callback delivery failed",
			slog.String("task_id", taskID),
			slog.String("url", callbackURL),
			slog.String("error", err.Error()))
		return
	}
	o.log.Info("callback delivered",
		slog.String("task_id", taskID),
		slog.String("url", callbackURL))
}

func intPtr(v int) *int { return &v }
