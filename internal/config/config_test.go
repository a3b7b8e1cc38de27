package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads so host settings do not leak into tests.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CONFIG_FILE", "MODEL_PROVIDER", "OPENAI_API_KEY", "OPENAI_MODEL", "OPENAI_EMBEDDING_MODEL",
		"OPENAI_BASE_URL", "OPENAI_ORG", "OPENAI_ORGANIZATION", "OPENAI_PROJECT",
		"OPENAI_DEFAULT_HEADERS", "OPENAI_RATE_LIMIT", "LOCAL_EMBEDDING_MODEL",
		"LOCAL_SUMMARIZATION_MODEL", "LOCAL_KEYWORD_MODEL", "OLLAMA_BASE_URL", "VECTOR_INDEX_DRIVER",
		"VECTOR_DB_PATH", "QDRANT_HOST", "QDRANT_PORT", "DATABASE_URL", "HTTP_ADDR", "CORS_ORIGINS",
		"LOG_LEVEL", "LOG_FORMAT", "AI_CHUNK_SIZE", "AI_CHUNK_OVERLAP", "TAG_COUNT",
		"SUMMARY_MIN_LENGTH", "SUMMARY_MAX_LENGTH", "SUMMARY_MAX_TOKENS", "WORKER_POOL_SIZE",
		"PROVIDER_TIMEOUT",
	} {
		t.Setenv(key, "")
	}
	// OPENAI_USE_RESPONSES is presence-sensitive, so it has to be removed rather than blanked.
	t.Setenv("OPENAI_USE_RESPONSES", "")
	require.NoError(t, os.Unsetenv("OPENAI_USE_RESPONSES"))
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, BackendHosted, cfg.Backend)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.ChatModel)
	assert.Equal(t, "text-embedding-3-small", cfg.OpenAI.EmbeddingModel)
	assert.Equal(t, WireShapeSingleShot, cfg.OpenAI.WireShape)
	assert.Equal(t, "./data/vectors", cfg.Index.Path)
	assert.Equal(t, "sqlite", cfg.Index.Driver)
	assert.Equal(t, 500, cfg.ChunkSize)
	assert.Equal(t, 50, cfg.ChunkOverlap)
	assert.Equal(t, 5, cfg.DefaultTagCount)
	assert.Equal(t, 40, cfg.SummaryMinLength)
	assert.Equal(t, 120, cfg.SummaryMaxLength)
	assert.Equal(t, 256, cfg.SummaryMaxTokens)
	assert.Greater(t, cfg.WorkerPoolSize, 0)
	assert.LessOrEqual(t, cfg.WorkerPoolSize, 32)
	assert.Zero(t, cfg.ProviderTimeout)
}

func TestLoad_HostedWithoutKeyFails(t *testing.T) {
	clearEnv(t)
	t.Setenv("MODEL_PROVIDER", "openai")

	_, err := Load("")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestLoad_LocalWithoutKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("MODEL_PROVIDER", "LOCAL")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, BackendLocal, cfg.Backend)
	assert.Equal(t, "builtin/hashing-384", cfg.Local.EmbeddingModel)
	assert.Equal(t, "builtin/extractive", cfg.Local.SummarizationModel)
}

func TestLoad_UnknownProvider(t *testing.T) {
	clearEnv(t)
	t.Setenv("MODEL_PROVIDER", "anthropic")

	_, err := Load("")
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("MODEL_PROVIDER", "local")
	t.Setenv("AI_CHUNK_SIZE", "200")
	t.Setenv("AI_CHUNK_OVERLAP", "20")
	t.Setenv("TAG_COUNT", "8")
	t.Setenv("WORKER_POOL_SIZE", "2")
	t.Setenv("PROVIDER_TIMEOUT", "15")
	t.Setenv("OPENAI_ORGANIZATION", "org-fallback")
	t.Setenv("OPENAI_DEFAULT_HEADERS", "X-Title: docintel ; HTTP-Referer:http://localhost")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 200, cfg.ChunkSize)
	assert.Equal(t, 20, cfg.ChunkOverlap)
	assert.Equal(t, 8, cfg.DefaultTagCount)
	assert.Equal(t, 2, cfg.WorkerPoolSize)
	assert.Equal(t, 15*time.Second, cfg.ProviderTimeout)
	assert.Equal(t, "org-fallback", cfg.OpenAI.Organization)
	assert.Equal(t, map[string]string{"X-Title": "docintel", "HTTP-Referer": "http://localhost"}, cfg.OpenAI.Headers)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.CORSOrigins)
}

func TestLoad_OrgPrefersShortName(t *testing.T) {
	clearEnv(t)
	t.Setenv("MODEL_PROVIDER", "local")
	t.Setenv("OPENAI_ORG", "org-primary")
	t.Setenv("OPENAI_ORGANIZATION", "org-fallback")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "org-primary", cfg.OpenAI.Organization)
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "docintel.yaml")
	content := `
backend: local
chunk_size: 300
tag_count: 3
openai:
  base_url: https://gateway.example.com/v1
  use_responses: false
index:
  path: /tmp/vectors
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("TAG_COUNT", "7")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, BackendLocal, cfg.Backend)
	assert.Equal(t, 300, cfg.ChunkSize)
	assert.Equal(t, 7, cfg.DefaultTagCount, "env wins over file")
	assert.Equal(t, "/tmp/vectors", cfg.Index.Path)
	assert.Equal(t, WireShapeMultiTurn, cfg.OpenAI.WireShape)
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestLoad_InvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("MODEL_PROVIDER", "local")
	t.Setenv("AI_CHUNK_SIZE", "0")

	_, err := Load("")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.Contains(t, err.Error(), "ChunkSize")
}

func TestLoad_PgvectorNeedsDSN(t *testing.T) {
	clearEnv(t)
	t.Setenv("MODEL_PROVIDER", "local")
	t.Setenv("VECTOR_INDEX_DRIVER", "pgvector")

	_, err := Load("")
	assert.ErrorIs(t, err, ErrConfiguration)

	t.Setenv("DATABASE_URL", "postgres://localhost/docintel")
	_, err = Load("")
	assert.NoError(t, err)
}

func TestLoad_UseResponsesOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("MODEL_PROVIDER", "local")
	t.Setenv("OPENAI_BASE_URL", "https://openrouter.ai/api/v1")
	t.Setenv("OPENAI_USE_RESPONSES", "yes")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, WireShapeSingleShot, cfg.OpenAI.WireShape)
}

func TestResolveWireShape(t *testing.T) {
	yes, no := true, false

	tests := []struct {
		name     string
		baseURL  string
		override *bool
		want     WireShape
	}{
		{"default endpoint", "", nil, WireShapeSingleShot},
		{"plain openai", "https://api.openai.com/v1", nil, WireShapeSingleShot},
		{"openrouter host", "https://openrouter.ai/api/v1", nil, WireShapeMultiTurn},
		{"openrouter mixed case", "https://OpenRouter.ai/api/v1", nil, WireShapeMultiTurn},
		{"override false", "https://api.openai.com/v1", &no, WireShapeMultiTurn},
		{"override true beats openrouter", "https://openrouter.ai/api/v1", &yes, WireShapeSingleShot},
		{"unparseable url", "openrouter", nil, WireShapeMultiTurn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveWireShape(tt.baseURL, tt.override))
		})
	}
}

func TestParseUseResponses(t *testing.T) {
	for _, v := range []string{"0", "false", "FALSE", "no", "No"} {
		assert.False(t, parseUseResponses(v), v)
	}
	for _, v := range []string{"1", "true", "yes", "anything", ""} {
		assert.True(t, parseUseResponses(v), v)
	}
}

func TestParseHeaders(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want map[string]string
	}{
		{"empty", "", nil},
		{"json object", `{"X-Title":"docintel","X-Retries":3}`, map[string]string{"X-Title": "docintel", "X-Retries": "3"}},
		{"json array falls back", `["a:b"]`, map[string]string{`["a`: `b"]`}},
		{"key value pairs", "A: 1;B:2", map[string]string{"A": "1", "B": "2"}},
		{"value keeps later colons", "Referer:http://localhost:3000", map[string]string{"Referer": "http://localhost:3000"}},
		{"segments without colon skipped", "junk;A:1", map[string]string{"A": "1"}},
		{"nothing usable", "junk;more junk", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseHeaders(tt.raw))
		})
	}
}
