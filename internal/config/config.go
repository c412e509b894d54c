package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/opsdesk/fncall/internal/model"
)

type Config struct {
	// Server
	Host        string `json:"host"`
	Port        int    `json:"port"`
	Environment string `json:"environment"`
	APIPrefix   string `json:"api_prefix"`
	LogLevel    string `json:"log_level"`

	// CORS
	CORSOrigins []string `json:"cors_origins"`

	// Auth
	APIKeyHeader string   `json:"api_key_header"`
	APIKeys      []string `json:"api_keys"`
	EnableAuth   bool     `json:"enable_auth"`

	// Rate Limiting
	RateLimitPerMinute int `json:"rate_limit_per_minute"`

	// Model
	ModelProvider   string `json:"model_provider"`
	ModelName       string `json:"model_name"`
	ModelBaseURL    string `json:"model_base_url"`
	DashScopeAPIKey string `json:"dashscope_api_key"`
	OpenAIAPIKey    string `json:"openai_api_key"`
	AnthropicAPIKey string `json:"anthropic_api_key"`
	ModelTimeout    int    `json:"model_timeout"` // seconds
	ModelMaxRetries int    `json:"model_max_retries"`
	MaxTokens       int    `json:"max_tokens"`

	// Dispatch
	MaxIterations       int `json:"max_iterations"`
	ToolTimeout         int `json:"tool_timeout"` // seconds
	MaxToolErrorLength  int `json:"max_tool_error_length"`
	ConversationTimeout int `json:"conversation_timeout"` // seconds

	// Transcripts
	DatabaseURL string `json:"database_url"`

	// Security
	MaxPromptLength    int      `json:"max_prompt_length"`
	PIIKeywords        []string `json:"pii_keywords"`
	EnableAuditLogging bool     `json:"enable_audit_logging"`

	// BigQuery
	GCPProjectID                 string `json:"gcp_project_id"`
	GoogleApplicationCredentials string `json:"google_application_credentials"`
	BigQueryLocation             string `json:"bigquery_location"`
	MaxQueryBytesProcessed       int64  `json:"max_query_bytes_processed"`

	// Elasticsearch
	ElasticsearchEnabled     bool     `json:"elasticsearch_enabled"`
	ElasticsearchHost        string   `json:"elasticsearch_host"`
	ElasticsearchPort        int      `json:"elasticsearch_port"`
	ElasticsearchScheme      string   `json:"elasticsearch_scheme"`
	ElasticsearchUser        string   `json:"elasticsearch_user"`
	ElasticsearchPassword    string   `json:"elasticsearch_password"`
	ElasticsearchVerifyCerts bool     `json:"elasticsearch_verify_certs"`
	ElasticsearchMaxRetries  int      `json:"elasticsearch_max_retries"`
	ElasticsearchTimeout     int      `json:"elasticsearch_timeout"`
	ESAllowedPatterns        []string `json:"es_allowed_patterns"`
}

// Default returns the configuration used before any file or environment
// override is applied.
func Default() *Config {
	return &Config{
		Host:                     DefaultHost,
		Port:                     DefaultPort,
		Environment:              DefaultEnvironment,
		APIPrefix:                DefaultAPIPrefix,
		LogLevel:                 DefaultLogLevel,
		CORSOrigins:              DefaultCORSOrigins,
		APIKeyHeader:             "X-API-Key",
		RateLimitPerMinute:       DefaultRateLimitPerMinute,
		ModelProvider:            DefaultModelProvider,
		ModelTimeout:             DefaultModelTimeout,
		ModelMaxRetries:          DefaultModelMaxRetries,
		MaxTokens:                DefaultMaxTokens,
		MaxIterations:            DefaultMaxIterations,
		ToolTimeout:              DefaultToolTimeout,
		MaxToolErrorLength:       DefaultMaxToolErrorLength,
		ConversationTimeout:      DefaultConversationTimeout,
		MaxPromptLength:          DefaultMaxPromptLength,
		PIIKeywords:              DefaultPIIKeywords,
		EnableAuditLogging:       true,
		BigQueryLocation:         DefaultBigQueryLocation,
		MaxQueryBytesProcessed:   DefaultMaxQueryBytesProcessed,
		ElasticsearchPort:        DefaultElasticsearchPort,
		ElasticsearchScheme:      DefaultElasticsearchScheme,
		ElasticsearchVerifyCerts: true,
		ElasticsearchMaxRetries:  DefaultElasticsearchMaxRetries,
		ElasticsearchTimeout:     DefaultElasticsearchTimeout,
		ESAllowedPatterns:        DefaultESAllowedPatterns,
	}
}

func Load() (*Config, error) {
	cfg := Default()

	// Load from JSON config file if specified
	if path := getEnv("FNCALL_CONFIG", ""); path != "" {
		if err := loadJSON(path, cfg); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	}

	// Environment overrides
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadJSON(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, cfg)
}

func applyEnvOverrides(cfg *Config) {
	if v := getEnv("FNCALL_HOST", ""); v != "" {
		cfg.Host = v
	}
	if v := getEnv("FNCALL_PORT", ""); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Port = p
		}
	}
	if v := getEnv("FNCALL_ENV", ""); v != "" {
		cfg.Environment = v
	}
	if v := getEnv("FNCALL_LOG_LEVEL", ""); v != "" {
		cfg.LogLevel = v
	}
	if v := getEnv("FNCALL_API_KEYS", ""); v != "" {
		cfg.APIKeys = strings.Split(v, ",")
	}
	if v := getEnv("ENABLE_AUTH", ""); v != "" {
		cfg.EnableAuth = v == "true" || v == "1"
	}
	if v := getEnv("RATE_LIMIT_PER_MINUTE", ""); v != "" {
		if r, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitPerMinute = r
		}
	}

	if v := getEnv("FNCALL_PROVIDER", ""); v != "" {
		cfg.ModelProvider = v
	}
	if v := getEnv("FNCALL_MODEL", ""); v != "" {
		cfg.ModelName = v
	}
	if v := getEnv("FNCALL_MODEL_BASE_URL", ""); v != "" {
		cfg.ModelBaseURL = v
	}
	if v := getEnv("DASHSCOPE_API_KEY", ""); v != "" {
		cfg.DashScopeAPIKey = v
	}
	if v := getEnv("OPENAI_API_KEY", ""); v != "" {
		cfg.OpenAIAPIKey = v
	}
	if v := getEnv("ANTHROPIC_API_KEY", ""); v != "" {
		cfg.AnthropicAPIKey = v
	}
	if v := getEnv("FNCALL_MAX_ITERATIONS", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxIterations = n
		}
	}
	if v := getEnv("FNCALL_TOOL_TIMEOUT", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ToolTimeout = n
		}
	}

	if v := getEnv("DATABASE_URL", ""); v != "" {
		cfg.DatabaseURL = v
	}

	if v := getEnv("GCP_PROJECT_ID", ""); v != "" {
		cfg.GCPProjectID = v
	}
	if v := getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""); v != "" {
		cfg.GoogleApplicationCredentials = v
	}
	if v := getEnv("MAX_QUERY_BYTES_PROCESSED", ""); v != "" {
		if b, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxQueryBytesProcessed = b
		}
	}
	if v := getEnv("ELASTICSEARCH_ENABLED", ""); v != "" {
		cfg.ElasticsearchEnabled = v == "true" || v == "1"
	}
	if v := getEnv("ELASTICSEARCH_HOST", ""); v != "" {
		cfg.ElasticsearchHost = v
	}
	if v := getEnv("ELASTICSEARCH_PORT", ""); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.ElasticsearchPort = p
		}
	}
	if v := getEnv("ELASTICSEARCH_SCHEME", ""); v != "" {
		cfg.ElasticsearchScheme = v
	}
	if v := getEnv("ELASTICSEARCH_USER", ""); v != "" {
		cfg.ElasticsearchUser = v
	}
	if v := getEnv("ELASTICSEARCH_PASSWORD", ""); v != "" {
		cfg.ElasticsearchPassword = v
	}
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if _, err := model.ParseProvider(c.ModelProvider); err != nil {
		errs = append(errs, err)
	}
	if c.MaxIterations < 1 {
		errs = append(errs, fmt.Errorf("max_iterations must be at least 1, got %d", c.MaxIterations))
	}
	if c.ToolTimeout < 0 || c.ModelTimeout < 0 || c.ConversationTimeout < 0 {
		errs = append(errs, errors.New("timeouts must not be negative"))
	}
	if c.EnableAuth && len(c.APIKeys) == 0 {
		errs = append(errs, errors.New("enable_auth is set but no api_keys are configured"))
	}
	if c.ElasticsearchEnabled && c.ElasticsearchHost == "" {
		errs = append(errs, errors.New("elasticsearch_enabled requires elasticsearch_host"))
	}
	return errors.Join(errs...)
}

// IsProduction reports whether the service runs in production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// ModelConfig resolves the model client configuration for the selected
// provider, picking the matching API key.
func (c *Config) ModelConfig() model.Config {
	provider, _ := model.ParseProvider(c.ModelProvider)
	key := c.DashScopeAPIKey
	switch provider {
	case model.ProviderOpenAI:
		key = c.OpenAIAPIKey
	case model.ProviderAnthropic:
		key = c.AnthropicAPIKey
	}
	return model.Config{
		Provider:   provider,
		APIKey:     key,
		Model:      c.ModelName,
		BaseURL:    c.ModelBaseURL,
		MaxTokens:  c.MaxTokens,
		Timeout:    time.Duration(c.ModelTimeout) * time.Second,
		MaxRetries: c.ModelMaxRetries,
	}
}

// ElasticsearchAddress returns the cluster URL.
func (c *Config) ElasticsearchAddress() string {
	return fmt.Sprintf("%s://%s:%d", c.ElasticsearchScheme, c.ElasticsearchHost, c.ElasticsearchPort)
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
