package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 统一配置结构
type Config struct {
	Server      ServerConfig
	Log         LogConfig
	Redis       RedisConfig
	Upload      UploadConfig
	Worker      WorkerConfig
	Pipeline    PipelineConfig
	Decoding    DecodingConfig
	LM          LMConfig
	Diarization DiarizationConfig
	Acoustic    AcousticConfig
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Env  string // dev, staging, production
	Port string
}

// LogConfig 日志配置
type LogConfig struct {
	Level    string // debug, info, warn, error
	FilePath string // 非空时写入轮转文件
}

// RedisConfig 任务存储 Redis 配置，Enabled=false 时使用内存存储
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// UploadConfig 上传文件共享目录配置
type UploadConfig struct {
	Dir string
}

// WorkerConfig 后台任务池配置
type WorkerConfig struct {
	PoolSize    int
	QueueSize   int
	SoftTimeout time.Duration
	HardTimeout time.Duration
}

// PipelineConfig 转写流水线配置
type PipelineConfig struct {
	MergeGapThreshold float64       // 同说话人片段合并阈值（秒）
	TaskTTL           time.Duration // 任务记录过期时间
	CallbackTimeout   time.Duration
}

// DecodingConfig holds the CTC decoding parameters. Values mirror the model's
// training-time decoding section and may be overridden by a YAML file.
type DecodingConfig struct {
	VocabPath       string  `yaml:"vocab_path"`
	BeamSize        int     `yaml:"beam_size"`
	Temperature     float64 `yaml:"temperature"`
	MaxChunkSamples int     `yaml:"max_chunk_samples"`
	ChunkOverlap    int     `yaml:"chunk_overlap"`
	PadDivisor      int     `yaml:"pad_divisor"`
	NgramPath       string  `yaml:"ngram_path"`
	NgramAlpha      float64 `yaml:"ngram_alpha"`
	NgramBeta       float64 `yaml:"ngram_beta"`
}

// LMConfig 外部语言模型重打分配置
// Type 支持 none/http
type LMConfig struct {
	Type       string
	ServiceURL string
	Model      string
	Weight     float64 // shallow fusion λ, [0,1]
	Timeout    time.Duration
}

// DiarizationConfig 说话人分离配置
type DiarizationConfig struct {
	PythonBin  string
	ScriptPath string
	AuthToken  string // HuggingFace token, 传给分离脚本
}

// AcousticConfig 声学模型推理服务配置
type AcousticConfig struct {
	ServiceURL string
	Timeout    time.Duration
}

// GlobalConfig 全局配置实例
var GlobalConfig *Config

// LoadConfig 从环境变量加载配置
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Env:  getEnv("ENV", "dev"),
			Port: getEnv("PORT", "8000"),
		},
		Log: LogConfig{
			Level:    getEnv("LOG_LEVEL", "info"),
			FilePath: getEnv("LOG_FILE_PATH", ""),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", false),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Upload: UploadConfig{
			Dir: getEnv("UPLOAD_DIR", "./uploads"),
		},
		Worker: WorkerConfig{
			PoolSize:    getEnvInt("WORKER_POOL_SIZE", 2),
			QueueSize:   getEnvInt("WORKER_QUEUE_SIZE", 64),
			SoftTimeout: getEnvDuration("JOB_SOFT_TIMEOUT", 300*time.Second),
			HardTimeout: getEnvDuration("JOB_HARD_TIMEOUT", 600*time.Second),
		},
		Pipeline: PipelineConfig{
			MergeGapThreshold: getEnvFloat("MERGE_GAP_THRESHOLD", 5.0),
			TaskTTL:           getEnvDuration("TASK_TTL", time.Hour),
			CallbackTimeout:   getEnvDuration("CALLBACK_TIMEOUT", 10*time.Second),
		},
		Decoding: DecodingConfig{
			VocabPath:       getEnv("VOCAB_PATH", "./configs/vocab.txt"),
			BeamSize:        getEnvInt("BEAM_SIZE", 1),
			Temperature:     getEnvFloat("DECODE_TEMPERATURE", 1.0),
			MaxChunkSamples: getEnvInt("MAX_CHUNK_SAMPLES", 256000),
			ChunkOverlap:    getEnvInt("CHUNK_OVERLAP", 16000),
			PadDivisor:      getEnvInt("PAD_DIVISOR", 360),
			NgramPath:       getEnv("NGRAM_PATH", ""),
			NgramAlpha:      getEnvFloat("NGRAM_ALPHA", 0.5),
			NgramBeta:       getEnvFloat("NGRAM_BETA", 1.0),
		},
		LM: LMConfig{
			Type:       getEnv("LM_TYPE", "none"),
			ServiceURL: getEnv("LM_SERVICE_URL", ""),
			Model:      getEnv("LM_MODEL_NAME", "gemini-1.5-flash-8b"),
			Weight:     getEnvFloat("LM_WEIGHT", 0.3),
			Timeout:    getEnvDuration("LM_TIMEOUT", 30*time.Second),
		},
		Diarization: DiarizationConfig{
			PythonBin:  getEnv("PYTHON_PATH", "python3"),
			ScriptPath: getEnv("DIARIZATION_SCRIPT_PATH", "/app/scripts/pyannote_diarize.py"),
			AuthToken:  getEnv("HUGGINGFACE_TOKEN", ""),
		},
		Acoustic: AcousticConfig{
			ServiceURL: getEnv("ACOUSTIC_SERVICE_URL", "http://acoustic:8082"),
			Timeout:    getEnvDuration("ACOUSTIC_TIMEOUT", 2*time.Minute),
		},
	}

	// 可选的 YAML 解码参数文件覆盖环境变量默认值
	if path := getEnv("DECODING_CONFIG_PATH", ""); path != "" {
		if err := loadDecodingFile(path, &cfg.Decoding); err != nil {
			return nil, fmt.Errorf("load decoding config %s: %w", path, err)
		}
	}

	GlobalConfig = cfg
	return cfg, nil
}

// loadDecodingFile 从 YAML 文件加载解码参数，仅覆盖文件中出现的字段
func loadDecodingFile(path string, dst *DecodingConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, dst)
}

// ValidateConfig 验证配置的有效性
func ValidateConfig(cfg *Config) error {
	var errs []string

	if cfg.Decoding.BeamSize < 1 {
		errs = append(errs, "BEAM_SIZE must be >= 1")
	}
	if cfg.Decoding.Temperature <= 0 {
		errs = append(errs, "DECODE_TEMPERATURE must be > 0")
	}
	if cfg.Decoding.MaxChunkSamples <= 0 {
		errs = append(errs, "MAX_CHUNK_SAMPLES must be > 0")
	}
	if cfg.Decoding.ChunkOverlap < 0 || cfg.Decoding.ChunkOverlap >= cfg.Decoding.MaxChunkSamples {
		errs = append(errs, "CHUNK_OVERLAP must be in [0, MAX_CHUNK_SAMPLES)")
	}
	if cfg.Decoding.PadDivisor <= 0 {
		errs = append(errs, "PAD_DIVISOR must be > 0")
	}
	if cfg.LM.Weight < 0 || cfg.LM.Weight > 1 {
		errs = append(errs, "LM_WEIGHT must be in [0,1]")
	}
	if cfg.LM.Type != "none" && cfg.LM.Type != "http" {
		errs = append(errs, fmt.Sprintf("unknown LM_TYPE %q (expected none or http)", cfg.LM.Type))
	}
	if cfg.LM.Type == "http" && cfg.LM.ServiceURL == "" {
		errs = append(errs, "LM_SERVICE_URL is required when LM_TYPE=http")
	}
	if cfg.Worker.PoolSize < 1 {
		errs = append(errs, "WORKER_POOL_SIZE must be >= 1")
	}
	if cfg.Worker.SoftTimeout > cfg.Worker.HardTimeout {
		errs = append(errs, "JOB_SOFT_TIMEOUT must not exceed JOB_HARD_TIMEOUT")
	}
	if cfg.Pipeline.MergeGapThreshold < 0 {
		errs = append(errs, "MERGE_GAP_THRESHOLD must be >= 0")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// 辅助函数

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := strings.ToLower(os.Getenv(key)); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
