package bootstrap

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/rotisserie/eris"

	"labreport-backend/internal/llm"
	"labreport-backend/internal/llm/anthropic"
	"labreport-backend/internal/llm/gemini"
	"labreport-backend/internal/llm/openai"
	"labreport-backend/internal/queue"
	"labreport-backend/internal/reports"
	"labreport-backend/internal/services/health"
	"labreport-backend/internal/shared/config"
	"labreport-backend/internal/shared/server"
	"labreport-backend/internal/shared/storage/db"
	"labreport-backend/internal/shared/storage/object"
	localstore "labreport-backend/internal/shared/storage/object/local"
	miniostore "labreport-backend/internal/shared/storage/object/minio"
	s3store "labreport-backend/internal/shared/storage/object/s3"
	"labreport-backend/internal/shared/telemetry"
)

const defaultOpenAIModel = "gpt-4o-mini"

// App holds shared dependencies.
type App struct {
	Config         config.Config
	Router         *gin.Engine
	DB             *sqlx.DB
	Store          object.ObjectStore
	Queue          queue.Client
	LLM            llm.Client
	ReportsRepo    reports.Repo
	ReportsService *reports.Service
	ReportsHandler *reports.Handler
	Health         *health.Service
}

// Build prepares shared dependencies and the router.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, err := buildQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}

	llmClient, err := NewLLM(cfg.LLM)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Queue:  queueClient,
		LLM:    llmClient,
	}
	buildServices(app)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:         app.Config,
		ReportsHandler: app.ReportsHandler,
		Health:         app.Health,
	})
	return app, nil
}

// Close releases the database handle, if any.
func (a *App) Close() error {
	if a == nil || a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

func buildDB(ctx context.Context, cfg config.Config) (*sqlx.DB, error) {
	var (
		sqlDB *sqlx.DB
		err   error
	)
	switch cfg.Store.Driver {
	case "memory":
		telemetry.Info("bootstrap.store", map[string]any{"driver": "memory"})
		return nil, nil
	case "sqlite":
		dsn, dsnErr := db.SQLiteDSN(cfg.Store.SQLitePath)
		if dsnErr != nil {
			return nil, dsnErr
		}
		sqlDB, err = db.Connect(ctx, db.DriverSQLite, dsn, db.SQLiteOptions())
	default:
		sqlDB, err = db.Connect(ctx, db.DriverPostgres, cfg.Store.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	}
	if err != nil {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.store_fallback", map[string]any{
				"driver": cfg.Store.Driver,
				"error":  err,
			})
			return nil, nil
		}
		return nil, err
	}

	if cfg.Store.AutoMigrate {
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			sqlDB.Close()
			return nil, err
		}
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	o := cfg.Objects
	switch o.Type {
	case "s3":
		return s3store.New(ctx, o.AWSRegion, o.S3Bucket, o.S3Prefix, o.SSEKMSKeyID)
	case "minio":
		return miniostore.New(ctx, o.MinioEndpoint, o.AWSRegion, o.MinioBucket, o.S3Prefix, o.MinioAccessKey, o.MinioSecretKey, o.MinioUseSSL)
	case "none":
		return nil, nil
	default:
		return localstore.New(o.LocalDir), nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if strings.TrimSpace(cfg.Queue.SQSQueueURL) == "" {
		return nil, nil
	}
	client, err := queue.NewSQSClient(ctx, cfg.Queue.SQSQueueURL, cfg.Queue.Region)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// NewLLM returns the gateway client for the configured provider. Missing
// credentials yield the placeholder client.
func NewLLM(cfg config.LLMConfig) (llm.Client, error) {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	switch cfg.Provider {
	case "gemini":
		if cfg.GeminiAPIKey == "" && cfg.GeminiAccessToken == "" {
			return placeholder(cfg.Provider), nil
		}
		opts := []gemini.Option{gemini.WithBaseURL(cfg.GeminiBaseURL), gemini.WithTimeout(timeout)}
		if cfg.GeminiAccessToken != "" {
			opts = append(opts, gemini.WithAccessToken(cfg.GeminiAccessToken))
		}
		return gemini.NewClient(cfg.GeminiAPIKey, cfg.Model, opts...), nil
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return placeholder(cfg.Provider), nil
		}
		model := cfg.Model
		if model == "" {
			model = defaultOpenAIModel
		}
		client, err := openai.NewClient(cfg.OpenAIAPIKey, model, "", timeout)
		if err != nil {
			return nil, eris.Wrap(err, "bootstrap: openai client")
		}
		return client, nil
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return placeholder(cfg.Provider), nil
		}
		client, err := anthropic.NewClient(cfg.AnthropicAPIKey, cfg.Model, "", timeout)
		if err != nil {
			return nil, eris.Wrap(err, "bootstrap: anthropic client")
		}
		return client, nil
	default:
		return placeholder(cfg.Provider), nil
	}
}

func placeholder(provider string) llm.Client {
	telemetry.Warn("bootstrap.llm_placeholder", map[string]any{
		"provider": provider,
		"reason":   "no credentials configured; classification uses keywords and extraction fails",
	})
	return llm.PlaceholderClient{}
}

func buildServices(app *App) {
	var repo reports.Repo
	if app.DB != nil {
		repo = reports.NewSQLRepo(app.DB)
	} else {
		repo = reports.NewMemoryRepo()
	}

	svc := &reports.Service{
		Repo:       repo,
		LLM:        app.LLM,
		Store:      app.Store,
		Queue:      app.Queue,
		LLMTimeout: time.Duration(app.Config.LLM.TimeoutSecs) * time.Second,
	}
	batch := reports.BatchOptions{
		Concurrency: app.Config.Pipeline.BatchConcurrency,
		ItemTimeout: time.Duration(app.Config.Pipeline.ItemTimeoutSecs) * time.Second,
	}

	app.ReportsRepo = repo
	app.ReportsService = svc
	app.ReportsHandler = reports.NewHandler(svc, batch)
	if app.DB != nil {
		app.Health = health.NewService(app.DB)
	} else {
		app.Health = health.NewService(nil)
	}
}
