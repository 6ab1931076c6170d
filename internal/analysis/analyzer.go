// Package analysis talks to the multimodal service that turns a photo into a
// song recommendation and, for feed posts, a caption.
package analysis

import (
	"context"

	"github.com/anime-shed/snaptune-go/pkg/models"
)

// Analyzer infers a song (and optionally a caption) from an uploaded photo.
//
// Implementations return *errors.AppError values: upstream errors when the
// remote call fails, contract violations when the payload has no usable
// title/artist pair. A returned outcome always satisfies Recommendation.Valid.
type Analyzer interface {
	Analyze(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisOutcome, error)
	Name() string
}
