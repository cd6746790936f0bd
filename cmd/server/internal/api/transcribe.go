package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vnspeech/s2t-server/cmd/server/internal/taskstore"
	"github.com/vnspeech/s2t-server/cmd/server/internal/worker"
)

const (
	// MaxFileSize 上传音频大小上限
	MaxFileSize = 500 * 1024 * 1024 // 500MB
)

// Handler 音频转写相关的 HTTP 处理器
type Handler struct {
	store     taskstore.Store
	pool      *worker.Pool
	uploadDir string
	log       *slog.Logger
}

func NewHandler(store taskstore.Store, pool *worker.Pool, uploadDir string, log *slog.Logger) *Handler {
	return &Handler{store: store, pool: pool, uploadDir: uploadDir, log: log}
}

// RegisterRoutes 注册转写 API 路由
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	v1 := r.Group("/api/v1")
	v1.POST("/audio/transcribe", h.HandleTranscribeSubmit)
	v1.GET("/audio/tasks/:task_id", h.HandleTaskStatus)
	v1.DELETE("/audio/tasks/:task_id", h.HandleTaskDelete)
}

// HandleTranscribeSubmit 接收音频并创建异步转写任务
// POST /api/v1/audio/transcribe
func (h *Handler) HandleTranscribeSubmit(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("missing audio file: %v", err),
		})
		return
	}
	if file.Size > MaxFileSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": "file exceeds 500MB limit",
		})
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext != ".wav" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("unsupported audio format %q, expected .wav", ext),
		})
		return
	}

	callbackURL := c.PostForm("callback_url")
	taskID := uuid.New().String()

	if err := os.MkdirAll(h.uploadDir, 0755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": fmt.Sprintf("prepare upload dir: %v", err),
		})
		return
	}
	savePath := filepath.Join(h.uploadDir, taskID+".wav")
	if err := c.SaveUploadedFile(file, savePath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": fmt.Sprintf("save upload: %v", err),
		})
		return
	}

	if err := h.store.Create(c.Request.Context(), taskID, file.Filename, callbackURL); err != nil {
		os.Remove(savePath)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": fmt.Sprintf("register task: %v", err),
		})
		return
	}

	err = h.pool.Submit(worker.Job{
		TaskID:      taskID,
		AudioPath:   savePath,
		CallbackURL: callbackURL,
	})
	if err != nil {
		h.store.Delete(c.Request.Context(), taskID)
		os.Remove(savePath)
		status := http.StatusInternalServerError
		if errors.Is(err, worker.ErrQueueFull) {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"error": fmt.Sprintf("enqueue task: %v", err),
		})
		return
	}

	h.log.Info("transcription task accepted",
		slog.String("task_id", taskID),
		slog.String("filename", file.Filename),
		slog.Int64("size_bytes", file.Size))

	c.JSON(http.StatusAccepted, gin.H{
		"task_id": taskID,
		"status":  taskstore.StatusPending,
	})
}

// HandleTaskStatus 查询任务状态与结果
// GET /api/v1/audio/tasks/:task_id
func (h *Handler) HandleTaskStatus(c *gin.Context) {
	taskID := c.Param("task_id")

	task, err := h.store.Get(c.Request.Context(), taskID)
	if err != nil {
		if errors.Is(err, taskstore.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "task not found or expired",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": fmt.Sprintf("load task: %v", err),
		})
		return
	}

	c.JSON(http.StatusOK, task)
}

// HandleTaskDelete 删除任务记录
// DELETE /api/v1/audio/tasks/:task_id
func (h *Handler) HandleTaskDelete(c *gin.Context) {
	taskID := c.Param("task_id")

	if err := h.store.Delete(c.Request.Context(), taskID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": fmt.Sprintf("delete task: %v", err),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"task_id": taskID,
		"deleted": true,
	})
}
