// Package metrics provides Prometheus metrics for monitoring the transcription pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SegmentsTotal 流水线各阶段处理的说话人片段总数计数器
	// Labels: stage (diarize/merge/extract/decode), status (success/error/skipped)
	SegmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "s2t_segments_total",
			Help: "Total number of speaker segments processed by pipeline stage",
		},
		[]string{"stage", "status"},
	)

	// DecodeStrategyTotal 各解码策略产出最终文本的次数计数器
	// Labels: strategy (lm_rescored/beam/greedy)
	DecodeStrategyTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "s2t_decode_strategy_total",
			Help: "Total number of chunks decoded, by winning strategy",
		},
		[]string{"strategy"},
	)

	// DecodeFallbacksTotal 解码策略降级事件计数器
	// Labels: from_strategy, to_strategy
	DecodeFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "s2t_decode_fallbacks_total",
			Help: "Total number of decode strategy fallback events (e.g., lm_rescored -> beam)",
		},
		[]string{"from_strategy", "to_strategy"},
	)

	// TasksFinishedTotal 到达终态的任务总数计数器
	// Labels: status (completed/failed)
	TasksFinishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "s2t_tasks_finished_total",
			Help: "Total number of tasks reaching a terminal state",
		},
		[]string{"status"},
	)

	// StageDuration 流水线阶段耗时直方图（秒）
	// Labels: stage (diarize/extract/decode/callback)
	// Buckets: 0.1s, 0.5s, 1s, 2s, 5s, 10s, 30s, 60s, 120s, 300s
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "s2t_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"stage"},
	)
)

// RecordSegment 记录一个说话人片段的处理结果
func RecordSegment(stage string, status string) {
	SegmentsTotal.WithLabelValues(stage, status).Inc()
}

// RecordDecodeStrategy 记录最终产出文本的解码策略
func RecordDecodeStrategy(strategy string) {
	DecodeStrategyTotal.WithLabelValues(strategy).Inc()
}

// RecordDecodeFallback 记录一次解码策略降级
func RecordDecodeFallback(from, to string) {
	DecodeFallbacksTotal.WithLabelValues(from, to).Inc()
}

// RecordTaskFinished 记录任务终态
func RecordTaskFinished(status string) {
	TasksFinishedTotal.WithLabelValues(status).Inc()
}

// RecordStageDuration 记录流水线阶段耗时（秒）
func RecordStageDuration(stage string, durationSeconds float64) {
	StageDuration.WithLabelValues(stage).Observe(durationSeconds)
}
