package strategy

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/anime-shed/snaptune-go/internal/logger"
	"github.com/anime-shed/snaptune-go/pkg/models"
)

// Resolution is the chosen clip and where it came from
type Resolution struct {
	URL    string
	Source Source
}

// Resolver picks the audio for a recommendation. The custom path never
// touches the catalog, and every path ends at the fallback clip.
type Resolver struct {
	custom   AudioStrategy
	catalog  AudioStrategy
	fallback AudioStrategy
}

// NewResolver builds the policy from its three strategies
func NewResolver(custom, catalog, fallback AudioStrategy) *Resolver {
	if fallback == nil {
		fallback = NewFallbackStrategy("")
	}
	return &Resolver{custom: custom, catalog: catalog, fallback: fallback}
}

// Chain returns the strategies tried for rec, in order
func (r *Resolver) Chain(rec models.SongRecommendation) []AudioStrategy {
	first := r.catalog
	if rec.UseCustomAudio {
		first = r.custom
	}
	if first == nil {
		return []AudioStrategy{r.fallback}
	}
	return []AudioStrategy{first, r.fallback}
}

// Resolve always returns a non-empty URL
func (r *Resolver) Resolve(ctx context.Context, rec models.SongRecommendation) Resolution {
	log := logger.FromContext(ctx).WithFields(logrus.Fields{
		"title":        rec.Title,
		"artist":       rec.Artist,
		"custom_audio": rec.UseCustomAudio,
	})

	for _, s := range r.Chain(rec) {
		if url, ok := s.Resolve(ctx, rec); ok && url != "" {
			log.WithField("source", s.GetStrategyName()).Debug("Audio resolved")
			return Resolution{URL: url, Source: s.GetStrategyName()}
		}
		log.WithField("source", s.GetStrategyName()).Debug("Audio source yielded nothing")
	}

	// unreachable while the fallback strategy is in the chain
	return Resolution{URL: models.DefaultFallbackAudioURL, Source: SourceFallback}
}
