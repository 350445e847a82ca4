package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labreport-backend/internal/llm"
	"labreport-backend/internal/llm/anthropic"
	"labreport-backend/internal/llm/gemini"
	"labreport-backend/internal/llm/openai"
	"labreport-backend/internal/reports"
	"labreport-backend/internal/shared/config"
)

func baseConfig(t *testing.T) config.Config {
	dir := t.TempDir()
	return config.Config{
		Env:     "dev",
		Server:  config.ServerConfig{RateLimitPerSec: 5, RateLimitBurst: 20},
		Store:   config.StoreConfig{Driver: "memory"},
		Objects: config.ObjectConfig{Type: "local", LocalDir: dir},
		LLM:     config.LLMConfig{Provider: "none", TimeoutSecs: 5},
		Pipeline: config.PipelineConfig{
			BatchConcurrency: 2,
			ItemTimeoutSecs:  10,
		},
	}
}

func TestBuildWithMemoryStore(t *testing.T) {
	app, err := Build(context.Background(), baseConfig(t))
	require.NoError(t, err)
	defer app.Close()

	assert.Nil(t, app.DB)
	assert.Nil(t, app.Queue)
	assert.IsType(t, &reports.MemoryRepo{}, app.ReportsRepo)
	assert.IsType(t, llm.PlaceholderClient{}, app.LLM)

	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestBuildWithSQLiteStore(t *testing.T) {
	cfg := baseConfig(t)
	cfg.Store = config.StoreConfig{Driver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "reports.db"), AutoMigrate: true}

	app, err := Build(context.Background(), cfg)
	require.NoError(t, err)
	defer app.Close()

	require.NotNil(t, app.DB)
	assert.IsType(t, &reports.SQLRepo{}, app.ReportsRepo)
	assert.True(t, app.Health.Status(context.Background()).OK)
}

func TestBuildRejectsUnknownProvider(t *testing.T) {
	cfg := baseConfig(t)
	cfg.LLM.Provider = "mystery"
	_, err := Build(context.Background(), cfg)
	assert.Error(t, err)
}

func TestBuildLLMSelectsProvider(t *testing.T) {
	client, err := NewLLM(config.LLMConfig{Provider: "gemini", GeminiAPIKey: "key"})
	require.NoError(t, err)
	assert.IsType(t, &gemini.Client{}, client)

	client, err = NewLLM(config.LLMConfig{Provider: "openai", OpenAIAPIKey: "sk"})
	require.NoError(t, err)
	assert.IsType(t, &openai.Client{}, client)

	client, err = NewLLM(config.LLMConfig{Provider: "anthropic", AnthropicAPIKey: "sk-ant"})
	require.NoError(t, err)
	assert.IsType(t, &anthropic.Client{}, client)

	client, err = NewLLM(config.LLMConfig{Provider: "openai"})
	require.NoError(t, err)
	assert.IsType(t, llm.PlaceholderClient{}, client)
}
