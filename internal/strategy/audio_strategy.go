package strategy

import (
	"context"
	"strings"
	"time"

	"github.com/anime-shed/snaptune-go/internal/logger"
	"github.com/anime-shed/snaptune-go/internal/storage"
	"github.com/anime-shed/snaptune-go/pkg/models"
)

// Source names the audio strategy that produced a URL
type Source string

const (
	SourceCustom   Source = "custom"
	SourceCatalog  Source = "catalog"
	SourceFallback Source = "fallback"
)

// AudioStrategy tries to produce a playable URL for a song
type AudioStrategy interface {
	Resolve(ctx context.Context, rec models.SongRecommendation) (string, bool)
	GetStrategyName() Source
}

// PreviewLookup is the part of the catalog the policy depends on
type PreviewLookup interface {
	Lookup(ctx context.Context, title, artist string) (string, bool)
}

// CustomAudioStrategy asks the custom audio source for a snippet
type CustomAudioStrategy struct {
	source  storage.AudioSource
	timeout time.Duration
}

// NewCustomAudioStrategy creates a custom audio strategy; a nil source never
// yields. A positive timeout bounds each snippet request.
func NewCustomAudioStrategy(source storage.AudioSource, timeout time.Duration) AudioStrategy {
	return &CustomAudioStrategy{source: source, timeout: timeout}
}

func (s *CustomAudioStrategy) Resolve(ctx context.Context, rec models.SongRecommendation) (string, bool) {
	log := logger.FromContext(ctx).WithField("strategy", SourceCustom)
	if s.source == nil {
		log.Debug("No custom audio source configured")
		return "", false
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	url, err := s.source.SnippetURL(ctx, rec.Title, rec.Artist)
	if err != nil {
		log.WithError(err).WithField("backend", s.source.Name()).Warn("Custom audio unavailable")
		return "", false
	}
	return url, url != ""
}

func (s *CustomAudioStrategy) GetStrategyName() Source {
	return SourceCustom
}

// CatalogStrategy looks the song up in the music catalog
type CatalogStrategy struct {
	lookup PreviewLookup
}

// NewCatalogStrategy creates a catalog strategy; a nil lookup never yields
func NewCatalogStrategy(lookup PreviewLookup) AudioStrategy {
	return &CatalogStrategy{lookup: lookup}
}

func (s *CatalogStrategy) Resolve(ctx context.Context, rec models.SongRecommendation) (string, bool) {
	if s.lookup == nil {
		return "", false
	}
	return s.lookup.Lookup(ctx, rec.Title, rec.Artist)
}

func (s *CatalogStrategy) GetStrategyName() Source {
	return SourceCatalog
}

// FallbackStrategy always yields the static clip
type FallbackStrategy struct {
	url string
}

// NewFallbackStrategy creates the terminal strategy; an empty url uses the default clip
func NewFallbackStrategy(url string) AudioStrategy {
	if strings.TrimSpace(url) == "" {
		url = models.DefaultFallbackAudioURL
	}
	return &FallbackStrategy{url: url}
}

func (s *FallbackStrategy) Resolve(context.Context, models.SongRecommendation) (string, bool) {
	return s.url, true
}

func (s *FallbackStrategy) GetStrategyName() Source {
	return SourceFallback
}
