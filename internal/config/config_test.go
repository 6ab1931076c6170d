package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var envKeys = []string{
	"HOST", "PORT", "REQUEST_TIMEOUT", "MAX_REQUEST_BODY_SIZE", "LOG_LEVEL",
	"ANALYZER_BACKEND", "ANALYSIS_ENDPOINT", "ANALYSIS_API_KEY", "ANALYSIS_MODEL", "ANALYSIS_TIMEOUT",
	"CATALOG_CLIENT_ID", "CATALOG_CLIENT_SECRET", "CATALOG_TOKEN_URL", "CATALOG_API_URL",
	"CATALOG_TOKEN_CACHE", "CATALOG_TIMEOUT", "CATALOG_PREVIEW_HOSTS",
	"CUSTOM_AUDIO_BACKEND", "CUSTOM_AUDIO_ENDPOINT", "CUSTOM_AUDIO_TIMEOUT",
	"AZURE_STORAGE_ACCOUNT", "AZURE_STORAGE_KEY", "AZURE_AUDIO_CONTAINER", "AZURE_STORAGE_SERVICE_URL",
	"FALLBACK_AUDIO_URL",
}

// clearEnv blanks every recognised variable; empty values count as unset
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.ServerAddress() != "0.0.0.0:8080" {
		t.Errorf("Expected address 0.0.0.0:8080, got %s", cfg.ServerAddress())
	}
	if cfg.Analysis.Backend != AnalyzerStub {
		t.Errorf("Expected stub analyzer without an API key, got %s", cfg.Analysis.Backend)
	}
	if cfg.CustomAudio.Backend != CustomAudioNone {
		t.Errorf("Expected no custom audio backend, got %s", cfg.CustomAudio.Backend)
	}
	if cfg.FallbackAudioURL != DefaultFallbackAudioURL {
		t.Errorf("Expected default fallback URL, got %s", cfg.FallbackAudioURL)
	}
	if cfg.Analysis.Timeout != 8*time.Second || cfg.Catalog.Timeout != 5*time.Second {
		t.Errorf("Unexpected outbound timeouts: analysis=%s catalog=%s", cfg.Analysis.Timeout, cfg.Catalog.Timeout)
	}
	if cfg.CustomAudio.Timeout != 5*time.Second {
		t.Errorf("Expected 5s custom audio timeout, got %s", cfg.CustomAudio.Timeout)
	}
	if len(cfg.Catalog.PreviewHosts) != 0 {
		t.Errorf("Expected no preview host restriction, got %v", cfg.Catalog.PreviewHosts)
	}
	if !cfg.Catalog.TokenCache {
		t.Error("Expected token cache to be enabled by default")
	}
	if cfg.CatalogEnabled() {
		t.Error("Expected catalog to be disabled without credentials")
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "3000")
	t.Setenv("ANALYSIS_API_KEY", "key")
	t.Setenv("ANALYSIS_TIMEOUT", "3s")
	t.Setenv("CATALOG_CLIENT_ID", "id")
	t.Setenv("CATALOG_CLIENT_SECRET", "secret")
	t.Setenv("CATALOG_TOKEN_CACHE", "false")
	t.Setenv("CUSTOM_AUDIO_ENDPOINT", "https://synth.example.com/render")
	t.Setenv("FALLBACK_AUDIO_URL", "https://cdn.example.com/fallback.mp3")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.Port != "3000" {
		t.Errorf("Expected port 3000, got %s", cfg.Port)
	}
	if cfg.Analysis.Backend != AnalyzerGemini {
		t.Errorf("Expected gemini analyzer when a key is set, got %s", cfg.Analysis.Backend)
	}
	if cfg.Analysis.Timeout != 3*time.Second {
		t.Errorf("Expected analysis timeout 3s, got %s", cfg.Analysis.Timeout)
	}
	if !cfg.CatalogEnabled() {
		t.Error("Expected catalog to be enabled")
	}
	if cfg.Catalog.TokenCache {
		t.Error("Expected token cache to be disabled")
	}
	if cfg.CustomAudio.Backend != CustomAudioEndpoint {
		t.Errorf("Expected endpoint custom audio backend, got %s", cfg.CustomAudio.Backend)
	}
	if cfg.FallbackAudioURL != "https://cdn.example.com/fallback.mp3" {
		t.Errorf("Unexpected fallback URL %s", cfg.FallbackAudioURL)
	}
}

func TestLoadFromEnv_InvalidValuesIgnored(t *testing.T) {
	clearEnv(t)
	t.Setenv("CATALOG_TIMEOUT", "-5s")
	t.Setenv("CATALOG_TOKEN_CACHE", "maybe")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.Catalog.Timeout != 5*time.Second {
		t.Errorf("Expected default catalog timeout, got %s", cfg.Catalog.Timeout)
	}
	if !cfg.Catalog.TokenCache {
		t.Error("Expected unparsable bool to keep the default")
	}
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"bad port", func(c *Config) { c.Port = "http" }, "invalid PORT"},
		{"port out of range", func(c *Config) { c.Port = "70000" }, "invalid PORT"},
		{"zero body size", func(c *Config) { c.MaxRequestBodySize = 0 }, "MAX_REQUEST_BODY_SIZE"},
		{"zero timeout", func(c *Config) { c.Analysis.Timeout = 0 }, "timeouts must be > 0"},
		{"zero custom audio timeout", func(c *Config) { c.CustomAudio.Timeout = 0 }, "custom_audio=0s"},
		{"bad fallback", func(c *Config) { c.FallbackAudioURL = "ftp://x/y.mp3" }, "FALLBACK_AUDIO_URL"},
		{"gemini without key", func(c *Config) { c.Analysis.Backend = AnalyzerGemini }, "ANALYSIS_API_KEY"},
		{"unknown analyzer", func(c *Config) { c.Analysis.Backend = "openai" }, "ANALYZER_BACKEND"},
		{"bad catalog url", func(c *Config) {
			c.Catalog.ClientID, c.Catalog.ClientSecret = "id", "secret"
			c.Catalog.APIURL = "not a url"
		}, "CATALOG_API_URL"},
		{"endpoint backend without endpoint", func(c *Config) { c.CustomAudio.Backend = CustomAudioEndpoint }, "CUSTOM_AUDIO_ENDPOINT"},
		{"azure without key", func(c *Config) {
			c.CustomAudio.Backend = CustomAudioAzure
			c.CustomAudio.AzureAccount = "acct"
		}, "AZURE_STORAGE_KEY"},
		{"unknown custom backend", func(c *Config) { c.CustomAudio.Backend = "s3" }, "CUSTOM_AUDIO_BACKEND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.normalize()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("Expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")

	path := filepath.Join(t.TempDir(), "snaptune.toml")
	content := `host = "127.0.0.1"
port = "8081"
log_level = "debug"
fallback_audio_url = "https://cdn.example.com/quiet.mp3"

[analysis]
backend = "gemini"
api_key = "file-key"
model = "gemini-2.5-flash"
timeout = "4s"

[catalog]
client_id = "file-id"
client_secret = "file-secret"
token_cache = false

[custom_audio]
backend = "azure"
azure_account = "acct"
azure_key = "a2V5"
azure_container = "clips"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Host != "127.0.0.1" {
		t.Errorf("Expected host from file, got %s", cfg.Host)
	}
	if cfg.Port != "9090" {
		t.Errorf("Expected env PORT to override file, got %s", cfg.Port)
	}
	if cfg.Analysis.Model != "gemini-2.5-flash" || cfg.Analysis.Timeout != 4*time.Second {
		t.Errorf("Unexpected analysis config %+v", cfg.Analysis)
	}
	if cfg.Catalog.TokenURL != "https://accounts.spotify.com/api/token" {
		t.Errorf("Expected default token URL to survive, got %s", cfg.Catalog.TokenURL)
	}
	if cfg.Catalog.TokenCache {
		t.Error("Expected token cache disabled from file")
	}
	if cfg.CustomAudio.Backend != CustomAudioAzure || cfg.CustomAudio.AzureContainer != "clips" {
		t.Errorf("Unexpected custom audio config %+v", cfg.CustomAudio)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	clearEnv(t)
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestLoadFromEnv_CustomAudioTimeoutAndPreviewHosts(t *testing.T) {
	clearEnv(t)
	t.Setenv("CUSTOM_AUDIO_TIMEOUT", "1500ms")
	t.Setenv("CATALOG_PREVIEW_HOSTS", " p.scdn.co, ,cdn.example.com ")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.CustomAudio.Timeout != 1500*time.Millisecond {
		t.Errorf("Expected 1.5s custom audio timeout, got %s", cfg.CustomAudio.Timeout)
	}
	want := []string{"p.scdn.co", "cdn.example.com"}
	if strings.Join(cfg.Catalog.PreviewHosts, ",") != strings.Join(want, ",") {
		t.Errorf("Expected preview hosts %v, got %v", want, cfg.Catalog.PreviewHosts)
	}
}
