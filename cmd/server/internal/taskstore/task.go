// Package taskstore tracks transcription task lifecycle and results.
package taskstore

import (
	"context"
	"errors"
)

// Status is a task lifecycle state. Completed and failed are terminal.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ErrNotFound signals a task that does not exist or whose record expired.
var ErrNotFound = errors.New("task not found")

// Result is one speaker turn of the final transcript.
type Result struct {
	Speaker       string  `json:"speaker"`
	StartTime     float64 `json:"start_time"`
	EndTime       float64 `json:"end_time"`
	Transcription string  `json:"transcription"`
}

// Task is the stored view of one transcription job.
type Task struct {
	TaskID      string   `json:"task_id"`
	Status      Status   `json:"status"`
	Progress    int      `json:"progress"`
	Filename    string   `json:"filename"`
	CallbackURL string   `json:"callback_url,omitempty"`
	CreatedAt   float64  `json:"created_at"`
	CompletedAt float64  `json:"completed_at,omitempty"`
	Error       string   `json:"error,omitempty"`
	Results     []Result `json:"results,omitempty"`
}

// Update is a partial task mutation. Nil fields keep the stored value.
type Update struct {
	Status   Status
	Progress *int
	Results  []Result
	Error    *string
}

// Store persists tasks for the lifetime of their TTL.
type Store interface {
	// Create registers a pending task.
	Create(ctx context.Context, taskID, filename, callbackURL string) error

	// Update merges the non-nil update fields into the task and refreshes its
	// completion timestamp. Returns ErrNotFound for unknown or expired tasks.
	Update(ctx context.Context, taskID string, u Update) error

	// Get returns a copy of the task, or ErrNotFound.
	Get(ctx context.Context, taskID string) (*Task, error)

	// Delete removes the task. Deleting an unknown task is not an error.
	Delete(ctx context.Context, taskID string) error
}
