package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/anime-shed/snaptune-go/pkg/models"
	"github.com/anime-shed/snaptune-go/pkg/validation"
)

const (
	AnalyzerGemini = "gemini"
	AnalyzerStub   = "stub"

	CustomAudioEndpoint = "endpoint"
	CustomAudioAzure    = "azure"
	CustomAudioNone     = "none"

	DefaultFallbackAudioURL = models.DefaultFallbackAudioURL
)

type Config struct {
	Host               string        `toml:"host"`
	Port               string        `toml:"port"`
	RequestTimeout     time.Duration `toml:"request_timeout"`
	MaxRequestBodySize int64         `toml:"max_request_body_size"`
	LogLevel           string        `toml:"log_level"`

	Analysis    AnalysisConfig    `toml:"analysis"`
	Catalog     CatalogConfig     `toml:"catalog"`
	CustomAudio CustomAudioConfig `toml:"custom_audio"`

	// FallbackAudioURL is served whenever no other audio source yields a clip
	FallbackAudioURL string `toml:"fallback_audio_url"`
}

// AnalysisConfig configures the multimodal analysis service
type AnalysisConfig struct {
	Backend  string        `toml:"backend"`
	Endpoint string        `toml:"endpoint"`
	APIKey   string        `toml:"api_key"`
	Model    string        `toml:"model"`
	Timeout  time.Duration `toml:"timeout"`
}

// CatalogConfig configures the music catalog and its token endpoint
type CatalogConfig struct {
	ClientID     string        `toml:"client_id"`
	ClientSecret string        `toml:"client_secret"`
	TokenURL     string        `toml:"token_url"`
	APIURL       string        `toml:"api_url"`
	TokenCache   bool          `toml:"token_cache"`
	Timeout      time.Duration `toml:"timeout"`

	// PreviewHosts limits which hosts a preview clip may be served from; empty allows any
	PreviewHosts []string `toml:"preview_hosts"`
}

// CustomAudioConfig configures where synthesized snippets come from
type CustomAudioConfig struct {
	Backend        string `toml:"backend"`
	Endpoint       string `toml:"endpoint"`
	AzureAccount   string `toml:"azure_account"`
	AzureKey       string `toml:"azure_key"`
	AzureContainer string `toml:"azure_container"`

	// AzureServiceURL overrides the account endpoint, e.g. for Azurite
	AzureServiceURL string `toml:"azure_service_url"`

	Timeout time.Duration `toml:"timeout"`
}

func (c *Config) ServerAddress() string {
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// CatalogEnabled reports whether catalog credentials are configured
func (c *Config) CatalogEnabled() bool {
	return c.Catalog.ClientID != "" && c.Catalog.ClientSecret != ""
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Host:               "0.0.0.0",
		Port:               "8080",
		RequestTimeout:     30 * time.Second,
		MaxRequestBodySize: 10 * 1024 * 1024, // 10MB
		LogLevel:           "info",
		Analysis: AnalysisConfig{
			Endpoint: "https://generativelanguage.googleapis.com/",
			Model:    "gemini-1.5-flash",
			Timeout:  8 * time.Second,
		},
		Catalog: CatalogConfig{
			TokenURL:   "https://accounts.spotify.com/api/token",
			APIURL:     "https://api.spotify.com/v1",
			TokenCache: true,
			Timeout:    5 * time.Second,
		},
		CustomAudio: CustomAudioConfig{
			AzureContainer: "snippets",
			Timeout:        5 * time.Second,
		},
		FallbackAudioURL: DefaultFallbackAudioURL,
	}
}

func LoadFromEnv() (*Config, error) {
	cfg := Default()
	applyEnv(cfg)
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads a TOML config file; environment variables still take precedence
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	applyEnv(cfg)
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Host = getEnvOrDefault("HOST", cfg.Host)
	cfg.Port = getEnvOrDefault("PORT", cfg.Port)
	cfg.RequestTimeout = parseDurationOrDefault("REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.MaxRequestBodySize = parseIntOrDefault("MAX_REQUEST_BODY_SIZE", cfg.MaxRequestBodySize)
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", cfg.LogLevel)

	cfg.Analysis.Backend = getEnvOrDefault("ANALYZER_BACKEND", cfg.Analysis.Backend)
	cfg.Analysis.Endpoint = getEnvOrDefault("ANALYSIS_ENDPOINT", cfg.Analysis.Endpoint)
	cfg.Analysis.APIKey = getEnvOrDefault("ANALYSIS_API_KEY", cfg.Analysis.APIKey)
	cfg.Analysis.Model = getEnvOrDefault("ANALYSIS_MODEL", cfg.Analysis.Model)
	cfg.Analysis.Timeout = parseDurationOrDefault("ANALYSIS_TIMEOUT", cfg.Analysis.Timeout)

	cfg.Catalog.ClientID = getEnvOrDefault("CATALOG_CLIENT_ID", cfg.Catalog.ClientID)
	cfg.Catalog.ClientSecret = getEnvOrDefault("CATALOG_CLIENT_SECRET", cfg.Catalog.ClientSecret)
	cfg.Catalog.TokenURL = getEnvOrDefault("CATALOG_TOKEN_URL", cfg.Catalog.TokenURL)
	cfg.Catalog.APIURL = getEnvOrDefault("CATALOG_API_URL", cfg.Catalog.APIURL)
	cfg.Catalog.TokenCache = parseBoolOrDefault("CATALOG_TOKEN_CACHE", cfg.Catalog.TokenCache)
	cfg.Catalog.Timeout = parseDurationOrDefault("CATALOG_TIMEOUT", cfg.Catalog.Timeout)
	cfg.Catalog.PreviewHosts = parseListOrDefault("CATALOG_PREVIEW_HOSTS", cfg.Catalog.PreviewHosts)

	cfg.CustomAudio.Backend = getEnvOrDefault("CUSTOM_AUDIO_BACKEND", cfg.CustomAudio.Backend)
	cfg.CustomAudio.Endpoint = getEnvOrDefault("CUSTOM_AUDIO_ENDPOINT", cfg.CustomAudio.Endpoint)
	cfg.CustomAudio.AzureAccount = getEnvOrDefault("AZURE_STORAGE_ACCOUNT", cfg.CustomAudio.AzureAccount)
	cfg.CustomAudio.AzureKey = getEnvOrDefault("AZURE_STORAGE_KEY", cfg.CustomAudio.AzureKey)
	cfg.CustomAudio.AzureContainer = getEnvOrDefault("AZURE_AUDIO_CONTAINER", cfg.CustomAudio.AzureContainer)
	cfg.CustomAudio.AzureServiceURL = getEnvOrDefault("AZURE_STORAGE_SERVICE_URL", cfg.CustomAudio.AzureServiceURL)
	cfg.CustomAudio.Timeout = parseDurationOrDefault("CUSTOM_AUDIO_TIMEOUT", cfg.CustomAudio.Timeout)

	cfg.FallbackAudioURL = getEnvOrDefault("FALLBACK_AUDIO_URL", cfg.FallbackAudioURL)
}

// normalize fills in backends that were left for auto-detection
func (c *Config) normalize() {
	c.Analysis.Backend = strings.ToLower(strings.TrimSpace(c.Analysis.Backend))
	if c.Analysis.Backend == "" {
		if c.Analysis.APIKey != "" {
			c.Analysis.Backend = AnalyzerGemini
		} else {
			c.Analysis.Backend = AnalyzerStub
		}
	}

	c.CustomAudio.Backend = strings.ToLower(strings.TrimSpace(c.CustomAudio.Backend))
	if c.CustomAudio.Backend == "" {
		switch {
		case c.CustomAudio.Endpoint != "":
			c.CustomAudio.Backend = CustomAudioEndpoint
		case c.CustomAudio.AzureAccount != "":
			c.CustomAudio.Backend = CustomAudioAzure
		default:
			c.CustomAudio.Backend = CustomAudioNone
		}
	}
}

// Validate checks ranges, URLs and that each selected backend has what it needs
func (c *Config) Validate() error {
	p, err := strconv.Atoi(strings.TrimSpace(c.Port))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Port)
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", c.MaxRequestBodySize)
	}
	if c.RequestTimeout <= 0 || c.Analysis.Timeout <= 0 || c.Catalog.Timeout <= 0 || c.CustomAudio.Timeout <= 0 {
		return fmt.Errorf("timeouts must be > 0 (got request=%s, analysis=%s, catalog=%s, custom_audio=%s)",
			c.RequestTimeout, c.Analysis.Timeout, c.Catalog.Timeout, c.CustomAudio.Timeout)
	}

	urls := validation.NewURLValidator()
	if err := urls.ValidateURL(c.FallbackAudioURL); err != nil {
		return fmt.Errorf("invalid FALLBACK_AUDIO_URL: %w", err)
	}

	switch c.Analysis.Backend {
	case AnalyzerStub:
	case AnalyzerGemini:
		if c.Analysis.APIKey == "" {
			return fmt.Errorf("ANALYSIS_API_KEY is required for the %s analyzer", AnalyzerGemini)
		}
		if err := urls.ValidateURL(c.Analysis.Endpoint); err != nil {
			return fmt.Errorf("invalid ANALYSIS_ENDPOINT: %w", err)
		}
		if strings.TrimSpace(c.Analysis.Model) == "" {
			return fmt.Errorf("ANALYSIS_MODEL must not be empty")
		}
	default:
		return fmt.Errorf("unsupported ANALYZER_BACKEND: %q", c.Analysis.Backend)
	}

	if c.CatalogEnabled() {
		if err := urls.ValidateURL(c.Catalog.TokenURL); err != nil {
			return fmt.Errorf("invalid CATALOG_TOKEN_URL: %w", err)
		}
		if err := urls.ValidateURL(c.Catalog.APIURL); err != nil {
			return fmt.Errorf("invalid CATALOG_API_URL: %w", err)
		}
	}

	switch c.CustomAudio.Backend {
	case CustomAudioNone:
	case CustomAudioEndpoint:
		if err := urls.ValidateURL(c.CustomAudio.Endpoint); err != nil {
			return fmt.Errorf("invalid CUSTOM_AUDIO_ENDPOINT: %w", err)
		}
	case CustomAudioAzure:
		if c.CustomAudio.AzureAccount == "" || c.CustomAudio.AzureKey == "" || c.CustomAudio.AzureContainer == "" {
			return fmt.Errorf("AZURE_STORAGE_ACCOUNT, AZURE_STORAGE_KEY and AZURE_AUDIO_CONTAINER are required for the %s backend", CustomAudioAzure)
		}
	default:
		return fmt.Errorf("unsupported CUSTOM_AUDIO_BACKEND: %q", c.CustomAudio.Backend)
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// parseListOrDefault splits a comma separated value, dropping blanks
func parseListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return defaultValue
}
