package gemini

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labreport-backend/internal/llm"
)

func TestGenerateSendsOptionsAndReturnsFirstPart(t *testing.T) {
	var got generateRequest
	var gotPath, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"is_medical\":true}"},{"text":"ignored"}]}}]}`))
	}))
	defer srv.Close()

	client := NewClient("k-123", "", WithBaseURL(srv.URL))
	text, err := client.Generate(t.Context(), "hello", llm.ClassificationOptions)
	require.NoError(t, err)

	assert.Equal(t, `{"is_medical":true}`, text)
	assert.Equal(t, "/v1beta/models/gemini-1.5-flash:generateContent", gotPath)
	assert.Equal(t, "k-123", gotKey)
	require.Len(t, got.Contents, 1)
	assert.Equal(t, "hello", got.Contents[0].Parts[0].Text)
	assert.Equal(t, 0.3, got.GenerationConfig.Temperature)
	assert.Equal(t, 500, got.GenerationConfig.MaxOutputTokens)
	assert.Equal(t, 40, got.GenerationConfig.TopK)
	assert.Equal(t, 0.95, got.GenerationConfig.TopP)
}

func TestGenerateNon2xxIsGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"quota"}`))
	}))
	defer srv.Close()

	_, err := NewClient("k", "m", WithBaseURL(srv.URL)).Generate(t.Context(), "p", llm.ExtractionOptions)
	require.Error(t, err)

	var gwErr *llm.GatewayError
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, http.StatusTooManyRequests, gwErr.StatusCode)
	assert.Contains(t, gwErr.Reason, "quota")
}

func TestGenerateMissingCandidatesIsGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	_, err := NewClient("k", "m", WithBaseURL(srv.URL)).Generate(t.Context(), "p", llm.NarrativeOptions)
	require.Error(t, err)
	assert.True(t, llm.IsGatewayError(err))
}

func TestAccessTokenUsesBearerHeader(t *testing.T) {
	var auth, key string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		key = r.URL.Query().Get("key")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
	}))
	defer srv.Close()

	client := NewClient("", "gemini-pro", WithBaseURL(srv.URL), WithAccessToken("tok"))
	text, err := client.Generate(t.Context(), "p", llm.NarrativeOptions)
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, "Bearer tok", auth)
	assert.Empty(t, key)
}
