package taskstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "s2t:task:"

// RedisStore persists tasks in Redis hashes so task state survives restarts
// and is shared across server instances. Keys expire ttl after creation; the
// expiry is never extended by later updates.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore wraps an already-connected client.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(taskID string) string { return redisKeyPrefix + taskID }

func (s *RedisStore) Create(ctx context.Context, taskID, filename, callbackURL string) error {
	key := redisKey(taskID)
	fields := map[string]interface{}{
		"task_id":      taskID,
		"status":       string(StatusPending),
		"progress":     0,
		"filename":     filename,
		"callback_url": callbackURL,
		"created_at":   float64(time.Now().UnixNano()) / 1e9,
	}
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("create task %s: %w", taskID, err)
	}
	return nil
}

func (s *RedisStore) Update(ctx context.Context, taskID string, u Update) error {
	key := redisKey(taskID)

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("check task %s: %w", taskID, err)
	}
	if exists == 0 {
		return ErrNotFound
	}

	fields := map[string]interface{}{
		"completed_at": float64(time.Now().UnixNano()) / 1e9,
	}
	if u.Status != "" {
		fields["status"] = string(u.Status)
	}
	if u.Progress != nil {
		fields["progress"] = *u.Progress
	}
	if u.Error != nil {
		fields["error"] = *u.Error
	}
	if u.Results != nil {
		blob, err := json.Marshal(u.Results)
		if err != nil {
			return fmt.Errorf("marshal results for task %s: %w", taskID, err)
		}
		fields["results"] = string(blob)
	}

	if err := s.client.HSet(ctx, key, fields).Err(); err != nil {
		return fmt.Errorf("update task %s: %w", taskID, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, taskID string) (*Task, error) {
	fields, err := s.client.HGetAll(ctx, redisKey(taskID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", taskID, err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}

	task := &Task{
		TaskID:      fields["task_id"],
		Status:      Status(fields["status"]),
		Filename:    fields["filename"],
		CallbackURL: fields["callback_url"],
		Error:       fields["error"],
	}
	if v := fields["progress"]; v != "" {
		task.Progress, _ = strconv.Atoi(v)
	}
	if v := fields["created_at"]; v != "" {
		task.CreatedAt, _ = strconv.ParseFloat(v, 64)
	}
	if v := fields["completed_at"]; v != "" {
		task.CompletedAt, _ = strconv.ParseFloat(v, 64)
	}
	if v := fields["results"]; v != "" {
		if err := json.Unmarshal([]byte(v), &task.Results); err != nil {
			return nil, fmt.Errorf("unmarshal results for task %s: %w", taskID, err)
		}
	}
	return task, nil
}

func (s *RedisStore) Delete(ctx context.Context, taskID string) error {
	if err := s.client.Del(ctx, redisKey(taskID)).Err(); err != nil {
		return fmt.Errorf("delete task %s: %w", taskID, err)
	}
	return nil
}
