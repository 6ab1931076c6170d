package container

import (
	"context"
	"fmt"
	"net/http"

	"github.com/anime-shed/snaptune-go/internal/analysis"
	"github.com/anime-shed/snaptune-go/internal/catalog"
	"github.com/anime-shed/snaptune-go/internal/config"
	"github.com/anime-shed/snaptune-go/internal/factory"
	"github.com/anime-shed/snaptune-go/internal/observer"
	"github.com/anime-shed/snaptune-go/internal/service"
	"github.com/anime-shed/snaptune-go/internal/storage"
	"github.com/anime-shed/snaptune-go/internal/strategy"
	"github.com/anime-shed/snaptune-go/internal/transport"
	"github.com/anime-shed/snaptune-go/pkg/validation"
)

// Container holds all application dependencies
type Container struct {
	config      *config.Config
	httpClient  *http.Client
	analyzer    analysis.Analyzer
	audioSource storage.AudioSource
	catalog     *catalog.Catalog
	resolver    *strategy.Resolver
	events      *observer.EventPublisher
	metrics     *observer.MetricsObserver
	service     service.RecommendationService
	handler     http.Handler
}

// NewContainer builds the dependency graph for cfg
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	httpClient := storage.NewHTTPClient(cfg.RequestTimeout)
	components := factory.NewComponentFactory(cfg, httpClient)

	analyzer, err := components.AnalyzerFactory.CreateAnalyzer(ctx, factory.AnalyzerType(cfg.Analysis.Backend))
	if err != nil {
		return nil, fmt.Errorf("failed to create analyzer: %w", err)
	}

	audioSource, err := components.StorageFactory.CreateStorage(factory.StorageType(cfg.CustomAudio.Backend))
	if err != nil {
		return nil, fmt.Errorf("failed to create custom audio source: %w", err)
	}

	var cat *catalog.Catalog
	var lookup strategy.PreviewLookup
	if cfg.CatalogEnabled() {
		tokens := catalog.NewTokenProvider(
			cfg.Catalog.ClientID,
			cfg.Catalog.ClientSecret,
			cfg.Catalog.TokenURL,
			cfg.Catalog.TokenCache,
			httpClient,
		)
		cat = catalog.NewCatalog(cfg.Catalog.APIURL, tokens, cfg.Catalog.Timeout, httpClient).
			WithPreviewHosts(cfg.Catalog.PreviewHosts...)
		lookup = cat
	}

	resolver := strategy.NewResolver(
		strategy.NewCustomAudioStrategy(audioSource, cfg.CustomAudio.Timeout),
		strategy.NewCatalogStrategy(lookup),
		strategy.NewFallbackStrategy(cfg.FallbackAudioURL),
	)

	metrics := observer.NewMetricsObserver()
	events := observer.NewEventPublisher()
	events.Subscribe(observer.NewLoggingObserver())
	events.Subscribe(metrics)

	svc := service.NewRecommendationService(
		analyzer,
		resolver,
		validation.NewUploadValidator(cfg.MaxRequestBodySize),
		events,
	)
	handler := transport.NewHandler(svc, metrics, cfg)

	return &Container{
		config:      cfg,
		httpClient:  httpClient,
		analyzer:    analyzer,
		audioSource: audioSource,
		catalog:     cat,
		resolver:    resolver,
		events:      events,
		metrics:     metrics,
		service:     svc,
		handler:     handler,
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Service returns the recommendation pipeline, used by the CLI
func (c *Container) Service() service.RecommendationService {
	return c.service
}

// Metrics returns the in-process counters
func (c *Container) Metrics() *observer.MetricsObserver {
	return c.metrics
}

// AnalyzerName reports which analysis backend was wired
func (c *Container) AnalyzerName() string {
	return c.analyzer.Name()
}
