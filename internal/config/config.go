// Package config loads service settings from flags, environment variables and an optional
// YAML file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/shpitdev/entity-search-enricher/internal/enrich/gemini"
	"github.com/shpitdev/entity-search-enricher/internal/enrich/groq"
	"github.com/shpitdev/entity-search-enricher/internal/enrich/serpapi"
)

const (
	ProviderGroq   = "groq"
	ProviderGemini = "gemini"
)

// Keys are viper keys. Each is bound to the upper-cased environment variable of the same name.
const (
	KeyListenAddr       = "listen_addr"
	KeySerpAPIKey       = "serpapi_api_key"
	KeySerpAPIBaseURL   = "serpapi_base_url"
	KeySearchNumResults = "search_num_results"
	KeyLLMProvider      = "llm_provider"
	KeyGroqAPIKey       = "groq_api_key"
	KeyGroqModel        = "groq_model"
	KeyGroqBaseURL      = "groq_base_url"
	KeyGeminiAPIKey     = "gemini_api_key"
	KeyGeminiModel      = "gemini_model"
	KeyGeminiBaseURL    = "gemini_base_url"
	KeySheetsBaseURL    = "sheets_base_url"
	KeyRequestTimeout   = "request_timeout"
	KeyRateLimitRPS     = "rate_limit_rps"
	KeyCABundle         = "ca_bundle"
	KeyLogLevel         = "log_level"
	KeyLogFormat        = "log_format"
	KeyConfigFile       = "enricher_config"
)

var allKeys = []string{
	KeyListenAddr, KeySerpAPIKey, KeySerpAPIBaseURL, KeySearchNumResults,
	KeyLLMProvider, KeyGroqAPIKey, KeyGroqModel, KeyGroqBaseURL,
	KeyGeminiAPIKey, KeyGeminiModel, KeyGeminiBaseURL, KeySheetsBaseURL,
	KeyRequestTimeout, KeyRateLimitRPS, KeyCABundle, KeyLogLevel, KeyLogFormat,
	KeyConfigFile,
}

type Config struct {
	ListenAddr string

	SerpAPIKey       string
	SerpAPIBaseURL   string
	SearchNumResults int

	LLMProvider   string
	GroqAPIKey    string
	GroqModel     string
	GroqBaseURL   string
	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string

	SheetsBaseURL string

	RequestTimeout time.Duration
	RateLimitRPS   float64
	CABundle       string

	LogLevel  string
	LogFormat string
}

// NewViper returns a viper instance with defaults and environment bindings in place.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyListenAddr, ":8080")
	v.SetDefault(KeySerpAPIBaseURL, serpapi.DefaultBaseURL)
	v.SetDefault(KeySearchNumResults, serpapi.DefaultNumResults)
	v.SetDefault(KeyLLMProvider, ProviderGroq)
	v.SetDefault(KeyGroqModel, groq.DefaultModel)
	v.SetDefault(KeyGroqBaseURL, groq.DefaultBaseURL)
	v.SetDefault(KeyGeminiModel, gemini.DefaultModel)
	v.SetDefault(KeyRequestTimeout, 30*time.Second)
	v.SetDefault(KeyRateLimitRPS, 0.0)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "console")

	for _, k := range allKeys {
		_ = v.BindEnv(k, strings.ToUpper(k))
	}
	return v
}

// Load reads the optional config file named by ENRICHER_CONFIG (or --config) and returns
// the merged settings. Flags and environment variables win over the file.
func Load(v *viper.Viper) (Config, error) {
	if path := strings.TrimSpace(v.GetString(KeyConfigFile)); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg := Config{
		ListenAddr:       strings.TrimSpace(v.GetString(KeyListenAddr)),
		SerpAPIKey:       strings.TrimSpace(v.GetString(KeySerpAPIKey)),
		SerpAPIBaseURL:   strings.TrimSpace(v.GetString(KeySerpAPIBaseURL)),
		SearchNumResults: v.GetInt(KeySearchNumResults),
		LLMProvider:      strings.ToLower(strings.TrimSpace(v.GetString(KeyLLMProvider))),
		GroqAPIKey:       strings.TrimSpace(v.GetString(KeyGroqAPIKey)),
		GroqModel:        strings.TrimSpace(v.GetString(KeyGroqModel)),
		GroqBaseURL:      strings.TrimSpace(v.GetString(KeyGroqBaseURL)),
		GeminiAPIKey:     strings.TrimSpace(v.GetString(KeyGeminiAPIKey)),
		GeminiModel:      strings.TrimSpace(v.GetString(KeyGeminiModel)),
		GeminiBaseURL:    strings.TrimSpace(v.GetString(KeyGeminiBaseURL)),
		SheetsBaseURL:    strings.TrimSpace(v.GetString(KeySheetsBaseURL)),
		RequestTimeout:   v.GetDuration(KeyRequestTimeout),
		RateLimitRPS:     v.GetFloat64(KeyRateLimitRPS),
		CABundle:         strings.TrimSpace(v.GetString(KeyCABundle)),
		LogLevel:         strings.TrimSpace(v.GetString(KeyLogLevel)),
		LogFormat:        strings.TrimSpace(v.GetString(KeyLogFormat)),
	}
	return cfg, nil
}

// Validate reports every missing or invalid setting at once.
func (c Config) Validate() error {
	var problems []string
	if c.SerpAPIKey == "" {
		problems = append(problems, "SERPAPI_API_KEY is required")
	}
	switch c.LLMProvider {
	case ProviderGroq:
		if c.GroqAPIKey == "" {
			problems = append(problems, "GROQ_API_KEY is required when LLM_PROVIDER=groq")
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			problems = append(problems, "GEMINI_API_KEY is required when LLM_PROVIDER=gemini")
		}
	default:
		problems = append(problems, fmt.Sprintf("LLM_PROVIDER must be groq or gemini (got %q)", c.LLMProvider))
	}
	if c.SearchNumResults < 1 || c.SearchNumResults > 100 {
		problems = append(problems, fmt.Sprintf("SEARCH_NUM_RESULTS must be between 1 and 100 (got %d)", c.SearchNumResults))
	}
	if c.RequestTimeout <= 0 {
		problems = append(problems, "REQUEST_TIMEOUT must be positive")
	}
	if c.RateLimitRPS < 0 {
		problems = append(problems, "RATE_LIMIT_RPS must not be negative")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Model returns the model identifier of the configured provider.
func (c Config) Model() string {
	if c.LLMProvider == ProviderGemini {
		return c.GeminiModel
	}
	return c.GroqModel
}
