// Package config builds the immutable service configuration from defaults,
// an optional YAML file and environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrConfiguration marks a fatal problem with the supplied configuration.
var ErrConfiguration = errors.New("configuration error")

// Backend selects the inference implementation used by the gateway.
type Backend string

const (
	BackendHosted Backend = "hosted"
	BackendLocal  Backend = "local"
)

// WireShape is the request format used against the hosted chat endpoint.
type WireShape int

const (
	// WireShapeSingleShot sends one input string to the Responses API.
	WireShapeSingleShot WireShape = iota
	// WireShapeMultiTurn sends system + user messages to Chat Completions.
	WireShapeMultiTurn
)

func (w WireShape) String() string {
	if w == WireShapeMultiTurn {
		return "multi-turn"
	}
	return "single-shot"
}

// incompatibleGateways lists host substrings of OpenAI-compatible gateways
// that do not implement the Responses API.
var incompatibleGateways = []string{"openrouter"}

// OpenAIConfig holds settings for the hosted backend.
type OpenAIConfig struct {
	APIKey         string            `yaml:"api_key"`
	ChatModel      string            `yaml:"chat_model" validate:"required"`
	EmbeddingModel string            `yaml:"embedding_model" validate:"required"`
	BaseURL        string            `yaml:"base_url" validate:"omitempty,url"`
	Organization   string            `yaml:"organization"`
	Project        string            `yaml:"project"`
	Headers        map[string]string `yaml:"headers"`
	// UseResponses overrides the wire shape when set.
	UseResponses *bool   `yaml:"use_responses"`
	RateLimit    float64 `yaml:"rate_limit" validate:"gte=0"`

	WireShape WireShape `yaml:"-"`
}

// LocalConfig holds model identifiers for the in-process backend.
type LocalConfig struct {
	EmbeddingModel     string `yaml:"embedding_model" validate:"required"`
	SummarizationModel string `yaml:"summarization_model" validate:"required"`
	KeywordModel       string `yaml:"keyword_model"`
	OllamaURL          string `yaml:"ollama_url" validate:"omitempty,url"`
}

// IndexConfig selects and configures the vector index driver.
type IndexConfig struct {
	Driver      string `yaml:"driver" validate:"oneof=sqlite qdrant pgvector"`
	Path        string `yaml:"path" validate:"required"`
	QdrantHost  string `yaml:"qdrant_host"`
	QdrantPort  int    `yaml:"qdrant_port" validate:"gte=0,lte=65535"`
	DatabaseURL string `yaml:"database_url" validate:"required_if=Driver pgvector"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr        string   `yaml:"addr" validate:"required"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json console"`
}

// Config is built once at startup and shared read-only afterwards.
type Config struct {
	Backend Backend      `yaml:"backend" validate:"oneof=hosted local"`
	OpenAI  OpenAIConfig `yaml:"openai"`
	Local   LocalConfig  `yaml:"local"`
	Index   IndexConfig  `yaml:"index"`
	Server  ServerConfig `yaml:"server"`
	Log     LogConfig    `yaml:"log"`

	ChunkSize        int `yaml:"chunk_size" validate:"gt=0"`
	ChunkOverlap     int `yaml:"chunk_overlap" validate:"gte=0"`
	DefaultTagCount  int `yaml:"tag_count" validate:"gt=0"`
	SummaryMinLength int `yaml:"summary_min_length" validate:"gte=0"`
	SummaryMaxLength int `yaml:"summary_max_length" validate:"gtefield=SummaryMinLength"`
	SummaryMaxTokens int `yaml:"summary_max_tokens" validate:"gt=0"`

	WorkerPoolSize  int           `yaml:"worker_pool_size" validate:"gt=0"`
	ProviderTimeout time.Duration `yaml:"provider_timeout" validate:"gte=0"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Backend: BackendHosted,
		OpenAI: OpenAIConfig{
			ChatModel:      "gpt-4o-mini",
			EmbeddingModel: "text-embedding-3-small",
		},
		Local: LocalConfig{
			EmbeddingModel:     "builtin/hashing-384",
			SummarizationModel: "builtin/extractive",
			KeywordModel:       "builtin/hashing-384",
			OllamaURL:          "http://localhost:11434",
		},
		Index: IndexConfig{
			Driver:     "sqlite",
			Path:       "./data/vectors",
			QdrantHost: "localhost",
			QdrantPort: 6334,
		},
		Server: ServerConfig{
			Addr:        ":8000",
			CORSOrigins: []string{"http://localhost:5000", "http://localhost:3000"},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		ChunkSize:        500,
		ChunkOverlap:     50,
		DefaultTagCount:  5,
		SummaryMinLength: 40,
		SummaryMaxLength: 120,
		SummaryMaxTokens: 256,
		WorkerPoolSize:   min(32, runtime.NumCPU()+4),
	}
}

// Load builds a Config. Precedence, lowest first: defaults, the YAML file at
// path (or CONFIG_FILE when path is empty), environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	cfg.OpenAI.WireShape = ResolveWireShape(cfg.OpenAI.BaseURL, cfg.OpenAI.UseResponses)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: read config file %s: %v", ErrConfiguration, path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("%w: parse config file %s: %v", ErrConfiguration, path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := getEnv("MODEL_PROVIDER", ""); v != "" {
		backend, err := ParseBackend(v)
		if err != nil {
			return err
		}
		c.Backend = backend
	}

	c.OpenAI.APIKey = getEnv("OPENAI_API_KEY", c.OpenAI.APIKey)
	c.OpenAI.ChatModel = getEnv("OPENAI_MODEL", c.OpenAI.ChatModel)
	c.OpenAI.EmbeddingModel = getEnv("OPENAI_EMBEDDING_MODEL", c.OpenAI.EmbeddingModel)
	c.OpenAI.BaseURL = getEnv("OPENAI_BASE_URL", c.OpenAI.BaseURL)
	c.OpenAI.Organization = getEnv("OPENAI_ORG", getEnv("OPENAI_ORGANIZATION", c.OpenAI.Organization))
	c.OpenAI.Project = getEnv("OPENAI_PROJECT", c.OpenAI.Project)
	if raw := os.Getenv("OPENAI_DEFAULT_HEADERS"); raw != "" {
		c.OpenAI.Headers = ParseHeaders(raw)
	}
	if raw, ok := os.LookupEnv("OPENAI_USE_RESPONSES"); ok {
		use := parseUseResponses(raw)
		c.OpenAI.UseResponses = &use
	}
	c.OpenAI.RateLimit = getEnvFloat("OPENAI_RATE_LIMIT", c.OpenAI.RateLimit)

	c.Local.EmbeddingModel = getEnv("LOCAL_EMBEDDING_MODEL", c.Local.EmbeddingModel)
	c.Local.SummarizationModel = getEnv("LOCAL_SUMMARIZATION_MODEL", c.Local.SummarizationModel)
	c.Local.KeywordModel = getEnv("LOCAL_KEYWORD_MODEL", c.Local.KeywordModel)
	c.Local.OllamaURL = getEnv("OLLAMA_BASE_URL", c.Local.OllamaURL)

	c.Index.Driver = strings.ToLower(getEnv("VECTOR_INDEX_DRIVER", c.Index.Driver))
	c.Index.Path = getEnv("VECTOR_DB_PATH", c.Index.Path)
	c.Index.QdrantHost = getEnv("QDRANT_HOST", c.Index.QdrantHost)
	c.Index.QdrantPort = getEnvInt("QDRANT_PORT", c.Index.QdrantPort)
	c.Index.DatabaseURL = getEnv("DATABASE_URL", c.Index.DatabaseURL)

	c.Server.Addr = getEnv("HTTP_ADDR", c.Server.Addr)
	if raw := os.Getenv("CORS_ORIGINS"); raw != "" {
		c.Server.CORSOrigins = splitList(raw)
	}
	c.Log.Level = strings.ToLower(getEnv("LOG_LEVEL", c.Log.Level))
	c.Log.Format = strings.ToLower(getEnv("LOG_FORMAT", c.Log.Format))

	c.ChunkSize = getEnvInt("AI_CHUNK_SIZE", c.ChunkSize)
	c.ChunkOverlap = getEnvInt("AI_CHUNK_OVERLAP", c.ChunkOverlap)
	c.DefaultTagCount = getEnvInt("TAG_COUNT", c.DefaultTagCount)
	c.SummaryMinLength = getEnvInt("SUMMARY_MIN_LENGTH", c.SummaryMinLength)
	c.SummaryMaxLength = getEnvInt("SUMMARY_MAX_LENGTH", c.SummaryMaxLength)
	c.SummaryMaxTokens = getEnvInt("SUMMARY_MAX_TOKENS", c.SummaryMaxTokens)
	c.WorkerPoolSize = getEnvInt("WORKER_POOL_SIZE", c.WorkerPoolSize)
	c.ProviderTimeout = getEnvDuration("PROVIDER_TIMEOUT", c.ProviderTimeout)

	return nil
}

// Validate checks field constraints and the hosted credential requirement.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrConfiguration, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	if c.Backend == BackendHosted && c.OpenAI.APIKey == "" {
		return fmt.Errorf("%w: hosted backend selected but OPENAI_API_KEY is missing", ErrConfiguration)
	}
	return nil
}

// ParseBackend maps a MODEL_PROVIDER value onto a Backend. "openai" is
// accepted as an alias for the hosted backend.
func ParseBackend(v string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "openai", "hosted":
		return BackendHosted, nil
	case "local":
		return BackendLocal, nil
	default:
		return "", fmt.Errorf("%w: unknown model provider %q", ErrConfiguration, v)
	}
}

// ResolveWireShape picks the hosted request format. An explicit override
// wins; otherwise known-incompatible gateways get the multi-turn shape.
func ResolveWireShape(baseURL string, useResponses *bool) WireShape {
	if useResponses != nil {
		if *useResponses {
			return WireShapeSingleShot
		}
		return WireShapeMultiTurn
	}

	if baseURL == "" {
		return WireShapeSingleShot
	}
	host := strings.ToLower(baseURL)
	if u, err := url.Parse(baseURL); err == nil && u.Host != "" {
		host = strings.ToLower(u.Host)
	}
	for _, gw := range incompatibleGateways {
		if strings.Contains(host, gw) {
			return WireShapeMultiTurn
		}
	}
	return WireShapeSingleShot
}

func parseUseResponses(raw string) bool {
	switch strings.ToLower(raw) {
	case "0", "false", "no":
		return false
	}
	return true
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
