package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds application configuration.
type Config struct {
	Env      string         `yaml:"env" mapstructure:"env"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Objects  ObjectConfig   `yaml:"objects" mapstructure:"objects"`
	LLM      LLMConfig      `yaml:"llm" mapstructure:"llm"`
	Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
	Queue    QueueConfig    `yaml:"queue" mapstructure:"queue"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port             string  `yaml:"port" mapstructure:"port"`
	CORSAllowOrigins string  `yaml:"cors_allow_origins" mapstructure:"cors_allow_origins"`
	RateLimitPerSec  float64 `yaml:"rate_limit_per_sec" mapstructure:"rate_limit_per_sec"`
	RateLimitBurst   int     `yaml:"rate_limit_burst" mapstructure:"rate_limit_burst"`
}

// StoreConfig selects the record store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	AutoMigrate bool   `yaml:"auto_migrate" mapstructure:"auto_migrate"`
}

// ObjectConfig selects where uploads, queued text and raw model output live.
type ObjectConfig struct {
	Type           string `yaml:"type" mapstructure:"type"`
	LocalDir       string `yaml:"local_dir" mapstructure:"local_dir"`
	AWSRegion      string `yaml:"aws_region" mapstructure:"aws_region"`
	S3Bucket       string `yaml:"s3_bucket" mapstructure:"s3_bucket"`
	S3Prefix       string `yaml:"s3_prefix" mapstructure:"s3_prefix"`
	SSEKMSKeyID    string `yaml:"sse_kms_key_id" mapstructure:"sse_kms_key_id"`
	MinioEndpoint  string `yaml:"minio_endpoint" mapstructure:"minio_endpoint"`
	MinioAccessKey string `yaml:"minio_access_key" mapstructure:"minio_access_key"`
	MinioSecretKey string `yaml:"minio_secret_key" mapstructure:"minio_secret_key"`
	MinioBucket    string `yaml:"minio_bucket" mapstructure:"minio_bucket"`
	MinioUseSSL    bool   `yaml:"minio_use_ssl" mapstructure:"minio_use_ssl"`
}

// LLMConfig selects and configures the model gateway.
type LLMConfig struct {
	Provider          string `yaml:"provider" mapstructure:"provider"`
	Model             string `yaml:"model" mapstructure:"model"`
	TimeoutSecs       int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	GeminiAPIKey      string `yaml:"gemini_api_key" mapstructure:"gemini_api_key"`
	GeminiBaseURL     string `yaml:"gemini_base_url" mapstructure:"gemini_base_url"`
	GeminiAccessToken string `yaml:"gemini_access_token" mapstructure:"gemini_access_token"`
	OpenAIAPIKey      string `yaml:"openai_api_key" mapstructure:"openai_api_key"`
	AnthropicAPIKey   string `yaml:"anthropic_api_key" mapstructure:"anthropic_api_key"`
}

// PipelineConfig bounds batch analysis.
type PipelineConfig struct {
	BatchConcurrency int `yaml:"batch_concurrency" mapstructure:"batch_concurrency"`
	ItemTimeoutSecs  int `yaml:"item_timeout_secs" mapstructure:"item_timeout_secs"`
}

// QueueConfig configures the SQS-backed async path.
type QueueConfig struct {
	SQSQueueURL         string `yaml:"sqs_queue_url" mapstructure:"sqs_queue_url"`
	Region              string `yaml:"region" mapstructure:"region"`
	VisibilitySecs      int    `yaml:"visibility_secs" mapstructure:"visibility_secs"`
	WorkerConcurrency   int    `yaml:"worker_concurrency" mapstructure:"worker_concurrency"`
	ShutdownTimeoutSecs int    `yaml:"shutdown_timeout_secs" mapstructure:"shutdown_timeout_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from an optional config.yaml and the environment.
func Load() (Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("LABREPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unprefixed names kept for deployments that already export them.
	bindings := map[string]string{
		"env":                   "ENV",
		"server.port":           "PORT",
		"store.database_url":    "DATABASE_URL",
		"objects.aws_region":    "AWS_REGION",
		"llm.gemini_api_key":    "GEMINI_API_KEY",
		"llm.openai_api_key":    "OPENAI_API_KEY",
		"llm.anthropic_api_key": "ANTHROPIC_API_KEY",
		"queue.sqs_queue_url":   "SQS_QUEUE_URL",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, "LABREPORT_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return Config{}, eris.Wrapf(err, "config: bind %s", key)
		}
	}

	v.SetDefault("env", "dev")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.cors_allow_origins", "http://localhost:5173")
	v.SetDefault("server.rate_limit_per_sec", 5.0)
	v.SetDefault("server.rate_limit_burst", 20)
	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.sqlite_path", "./data/labreport.db")
	v.SetDefault("store.auto_migrate", true)
	v.SetDefault("objects.type", "local")
	v.SetDefault("objects.local_dir", "./data")
	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.timeout_secs", 120)
	v.SetDefault("llm.gemini_base_url", "https://generativelanguage.googleapis.com")
	v.SetDefault("pipeline.batch_concurrency", 4)
	v.SetDefault("pipeline.item_timeout_secs", 180)
	v.SetDefault("queue.region", "us-east-1")
	v.SetDefault("queue.visibility_secs", 1200)
	v.SetDefault("queue.worker_concurrency", 4)
	v.SetDefault("queue.shutdown_timeout_secs", 30)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, eris.Wrap(err, "config: unmarshal")
	}
	cfg.Env = normalizeEnv(cfg.Env)
	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	cfg.Objects.Type = normalizeStoreType(cfg.Objects.Type)
	cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))
	return cfg, nil
}

// Validate rejects unknown backend choices.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case "memory", "sqlite":
	case "postgres":
		if strings.TrimSpace(c.Store.DatabaseURL) == "" {
			return eris.New("config: store.driver=postgres requires DATABASE_URL")
		}
	default:
		return eris.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	switch c.LLM.Provider {
	case "gemini", "openai", "anthropic", "none":
	default:
		return eris.Errorf("config: unknown llm provider %q", c.LLM.Provider)
	}
	if c.Objects.Type == "s3" && strings.TrimSpace(c.Objects.S3Bucket) == "" {
		return eris.New("config: objects.type=s3 requires objects.s3_bucket")
	}
	if c.Objects.Type == "minio" && (strings.TrimSpace(c.Objects.MinioEndpoint) == "" || strings.TrimSpace(c.Objects.MinioBucket) == "") {
		return eris.New("config: objects.type=minio requires minio_endpoint and minio_bucket")
	}
	return nil
}

// CORSOrigins splits the comma-separated allow list.
func (c Config) CORSOrigins() []string {
	return splitAndTrim(c.Server.CORSAllowOrigins)
}

// IsDevLike reports whether the environment tolerates degraded dependencies.
func (c Config) IsDevLike() bool {
	return c.Env == "dev" || c.Env == "local"
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	case "minio":
		return "minio"
	case "none":
		return "none"
	default:
		return "local"
	}
}
