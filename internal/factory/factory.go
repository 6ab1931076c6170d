package factory

import (
	"context"
	"fmt"
	"net/http"

	"github.com/anime-shed/snaptune-go/internal/analysis"
	"github.com/anime-shed/snaptune-go/internal/config"
	"github.com/anime-shed/snaptune-go/internal/storage"
)

// AnalyzerType represents the analysis backends
type AnalyzerType string

const (
	// GeminiAnalyzer calls the Gemini multimodal API
	GeminiAnalyzer AnalyzerType = config.AnalyzerGemini
	// StubAnalyzer answers locally from a fixed table
	StubAnalyzer AnalyzerType = config.AnalyzerStub
)

// StorageType represents the custom audio backends
type StorageType string

const (
	// EndpointStorage asks an HTTP synthesis service for snippets
	EndpointStorage StorageType = config.CustomAudioEndpoint
	// AzureStorage serves snippets from Azure blob storage
	AzureStorage StorageType = config.CustomAudioAzure
	// NoStorage disables custom audio
	NoStorage StorageType = config.CustomAudioNone
)

// AnalyzerFactory creates analyzers
type AnalyzerFactory interface {
	CreateAnalyzer(ctx context.Context, analyzerType AnalyzerType) (analysis.Analyzer, error)
}

// StorageFactory creates custom audio sources
type StorageFactory interface {
	CreateStorage(storageType StorageType) (storage.AudioSource, error)
}

type analyzerFactory struct {
	cfg    config.AnalysisConfig
	client *http.Client
}

// NewAnalyzerFactory creates a new analyzer factory
func NewAnalyzerFactory(cfg config.AnalysisConfig, client *http.Client) AnalyzerFactory {
	return &analyzerFactory{cfg: cfg, client: client}
}

// CreateAnalyzer creates an analyzer based on the specified type
func (f *analyzerFactory) CreateAnalyzer(ctx context.Context, analyzerType AnalyzerType) (analysis.Analyzer, error) {
	switch analyzerType {
	case GeminiAnalyzer:
		return analysis.NewGeminiAnalyzer(ctx, analysis.GeminiConfig{
			Endpoint:   f.cfg.Endpoint,
			APIKey:     f.cfg.APIKey,
			Timeout:    f.cfg.Timeout,
			HTTPClient: f.client,
		}, analysis.DefaultOptions().WithModel(f.cfg.Model))
	case StubAnalyzer:
		return analysis.NewStubAnalyzer(), nil
	default:
		return nil, fmt.Errorf("unsupported analyzer type: %s", analyzerType)
	}
}

type storageFactory struct {
	cfg    config.CustomAudioConfig
	client *http.Client
}

// NewStorageFactory creates a new storage factory
func NewStorageFactory(cfg config.CustomAudioConfig, client *http.Client) StorageFactory {
	return &storageFactory{cfg: cfg, client: client}
}

// CreateStorage creates a custom audio source. NoStorage yields a nil source.
func (f *storageFactory) CreateStorage(storageType StorageType) (storage.AudioSource, error) {
	switch storageType {
	case EndpointStorage:
		return storage.NewEndpointAudioSource(f.cfg.Endpoint, f.client), nil
	case AzureStorage:
		src, err := storage.NewAzureAudioSource(f.cfg.AzureAccount, f.cfg.AzureKey, f.cfg.AzureContainer, f.cfg.AzureServiceURL)
		if err != nil {
			return nil, err
		}
		return src, nil
	case NoStorage, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

// ComponentFactory combines all factories
type ComponentFactory struct {
	AnalyzerFactory AnalyzerFactory
	StorageFactory  StorageFactory
}

// NewComponentFactory creates a component factory for cfg sharing one outbound client
func NewComponentFactory(cfg *config.Config, client *http.Client) *ComponentFactory {
	return &ComponentFactory{
		AnalyzerFactory: NewAnalyzerFactory(cfg.Analysis, client),
		StorageFactory:  NewStorageFactory(cfg.CustomAudio, client),
	}
}
