package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/vnspeech/s2t-server/cmd/server/internal/acoustic"
	"github.com/vnspeech/s2t-server/cmd/server/internal/api"
	"github.com/vnspeech/s2t-server/cmd/server/internal/config"
	"github.com/vnspeech/s2t-server/cmd/server/internal/decode"
	"github.com/vnspeech/s2t-server/cmd/server/internal/diarize"
	"github.com/vnspeech/s2t-server/cmd/server/internal/lm"
	"github.com/vnspeech/s2t-server/cmd/server/internal/middleware"
	"github.com/vnspeech/s2t-server/cmd/server/internal/pipeline"
	"github.com/vnspeech/s2t-server/cmd/server/internal/taskstore"
	"github.com/vnspeech/s2t-server/cmd/server/internal/tokenizer"
	"github.com/vnspeech/s2t-server/cmd/server/internal/worker"
	"github.com/vnspeech/s2t-server/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server exited: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return err
	}

	log, err := logger.Init(logger.Config{
		Level:       cfg.Log.Level,
		Environment: cfg.Server.Env,
		FilePath:    cfg.Log.FilePath,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	store, err := buildStore(cfg, log)
	if err != nil {
		return err
	}

	tok, err := tokenizer.NewVocabTokenizer(cfg.Decoding.VocabPath)
	if err != nil {
		return fmt.Errorf("load vocabulary: %w", err)
	}

	var scorer lm.Scorer
	if cfg.LM.Type == "http" {
		scorer = lm.NewHTTPScorer(cfg.LM.ServiceURL, cfg.LM.Model, cfg.LM.Timeout, log)
		log.Info("lm rescoring enabled",
			slog.String("service_url", cfg.LM.ServiceURL),
			slog.String("model", cfg.LM.Model))
	}

	engine := decode.NewEngine(tok, scorer, decode.EngineConfig{
		BeamSize:    cfg.Decoding.BeamSize,
		Temperature: cfg.Decoding.Temperature,
		NgramPath:   cfg.Decoding.NgramPath,
		NgramAlpha:  cfg.Decoding.NgramAlpha,
		NgramBeta:   cfg.Decoding.NgramBeta,
		LMWeight:    cfg.LM.Weight,
	}, log)

	diarizer := diarize.NewPyannoteDiarizer(cfg.Diarization.PythonBin, cfg.Diarization.ScriptPath, cfg.Diarization.AuthToken)
	model := acoustic.NewHTTPModel(cfg.Acoustic.ServiceURL, cfg.Acoustic.Timeout, log)
	notifier := pipeline.NewCallbackNotifier(cfg.Pipeline.CallbackTimeout, log)

	orch := pipeline.NewOrchestrator(pipeline.Config{
		MergeGapThreshold: cfg.Pipeline.MergeGapThreshold,
		MaxChunkSamples:   cfg.Decoding.MaxChunkSamples,
		ChunkOverlap:      cfg.Decoding.ChunkOverlap,
		PadDivisor:        cfg.Decoding.PadDivisor,
	}, store, diarizer, model, engine, notifier, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool := worker.NewPool(worker.Config{
		PoolSize:    cfg.Worker.PoolSize,
		QueueSize:   cfg.Worker.QueueSize,
		SoftTimeout: cfg.Worker.SoftTimeout,
		HardTimeout: cfg.Worker.HardTimeout,
	}, orch, log)
	pool.Start(ctx)

	router := buildRouter(cfg, store, pool, log)
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Info("server listening",
			slog.String("port", cfg.Server.Port),
			slog.String("env", cfg.Server.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown incomplete", slog.String("error", err.Error()))
	}
	pool.Stop()
	log.Info("server stopped")
	return nil
}

// buildStore 根据配置选择任务存储后端
func buildStore(cfg *config.Config, log *slog.Logger) (taskstore.Store, error) {
	if !cfg.Redis.Enabled {
		log.Info("task store: in-memory", slog.Duration("ttl", cfg.Pipeline.TaskTTL))
		return taskstore.NewMemoryStore(cfg.Pipeline.TaskTTL), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect redis %s: %w", cfg.Redis.Addr, err)
	}

	log.Info("task store: redis",
		slog.String("addr", cfg.Redis.Addr),
		slog.Int("db", cfg.Redis.DB),
		slog.Duration("ttl", cfg.Pipeline.TaskTTL))
	return taskstore.NewRedisStore(client, cfg.Pipeline.TaskTTL), nil
}

func buildRouter(cfg *config.Config, store taskstore.Store, pool *worker.Pool, log *slog.Logger) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handler := api.NewHandler(store, pool, cfg.Upload.Dir, log)
	handler.RegisterRoutes(router)
	return router
}
