package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/vnspeech/s2t-server/cmd/server/internal/taskstore"
)

// CallbackNotifier delivers a single terminal-state notification to the
// submitter's callback URL. One attempt only; a failed delivery is logged and
// the task record remains queryable.
type CallbackNotifier struct {
	client *http.Client
	log    *slog.Logger
}

// NewCallbackNotifier builds a notifier with the given per-request timeout.
func NewCallbackNotifier(timeout time.Duration, log *slog.Logger) *CallbackNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &CallbackNotifier{
		client: &http.Client{Timeout: timeout},
		log:    log,
	}
}

type callbackPayload struct {
	TaskID    string             `json:"task_id"`
	Status    taskstore.Status   `json:"status"`
	Timestamp float64            `json:"timestamp"`
	Results   []taskstore.Result `json:"results,omitempty"`
	Error     string             `json:"error,omitempty"`
}

// Notify posts the terminal task state to url. Only HTTP 200 counts as
// delivered.
func (n *CallbackNotifier) Notify(ctx context.Context, url string, task *taskstore.Task) error {
	payload := callbackPayload{
		TaskID:    task.TaskID,
		Status:    task.Status,
		Timestamp: float64(time.Now().UnixNano()) / 1e9,
		Results:   task.Results,
		Error:     task.Error,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal callback payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build callback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver callback: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("callback endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
