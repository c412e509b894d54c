package config

const (
	DefaultHost        = "0.0.0.0"
	DefaultPort        = 8000
	DefaultEnvironment = "development"
	DefaultAPIPrefix   = "/api/v1"
	DefaultLogLevel    = "info"

	DefaultRateLimitPerMinute = 60

	DefaultModelProvider   = "dashscope"
	DefaultModelTimeout    = 60 // seconds
	DefaultModelMaxRetries = 2
	DefaultMaxTokens       = 4096

	DefaultMaxIterations       = 5
	DefaultToolTimeout         = 30 // seconds
	DefaultMaxToolErrorLength  = 512
	DefaultConversationTimeout = 300 // seconds

	DefaultBigQueryLocation = "US"

	DefaultMaxQueryBytesProcessed = 10_000_000_000 // 10GB

	DefaultElasticsearchPort       = 9200
	DefaultElasticsearchScheme     = "http"
	DefaultElasticsearchMaxRetries = 3
	DefaultElasticsearchTimeout    = 30

	DefaultMaxPromptLength = 2000
)

var DefaultCORSOrigins = []string{
	"http://localhost:3000",
	"http://localhost:8080",
}

var DefaultPIIKeywords = []string{
	"password", "ssn", "social security", "credit card",
	"bank account", "secret", "private key",
	"access token", "api key",
}

var DefaultESAllowedPatterns = []string{"logs-*", "app-logs-*"}
