package analysis

import (
	"context"
	"hash/fnv"

	apperrors "github.com/anime-shed/snaptune-go/internal/errors"
	"github.com/anime-shed/snaptune-go/pkg/models"
)

type stubEntry struct {
	title, artist, caption string
	custom                 bool
}

var stubCatalog = []stubEntry{
	{"Here Comes the Sun", "The Beatles", "Sunshine on my mind.", false},
	{"Golden Hour", "JVKE", "Caught the light just right.", false},
	{"Blinding Lights", "The Weeknd", "City nights, bright lights.", false},
	{"Ocean Eyes", "Billie Eilish", "Lost in the blue.", false},
	{"Good as Hell", "Lizzo", "Feeling good today.", false},
	{"Ambient Morning", "Snaptune Studio", "A quiet start.", true},
}

// StubAnalyzer picks a song deterministically from the photo bytes. It is used
// for local runs without an API key and in tests.
type StubAnalyzer struct{}

func NewStubAnalyzer() *StubAnalyzer {
	return &StubAnalyzer{}
}

func (s *StubAnalyzer) Name() string {
	return "stub"
}

func (s *StubAnalyzer) Analyze(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisOutcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewTimeoutError("analysis cancelled", err)
	}

	h := fnv.New32a()
	h.Write(req.Image)
	// salt the hash so a song regeneration usually lands on another entry
	if req.Regenerate == models.RegenerateSong {
		h.Write([]byte{1})
	}
	entry := stubCatalog[h.Sum32()%uint32(len(stubCatalog))]

	outcome := &models.AnalysisOutcome{
		Recommendation: models.SongRecommendation{
			Title:          entry.title,
			Artist:         entry.artist,
			UseCustomAudio: entry.custom,
		},
	}
	if req.Mode.WantsCaption() {
		caption := entry.caption
		outcome.Caption = &caption
	}
	return outcome, nil
}
