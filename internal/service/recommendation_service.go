package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/anime-shed/snaptune-go/internal/analysis"
	apperrors "github.com/anime-shed/snaptune-go/internal/errors"
	"github.com/anime-shed/snaptune-go/internal/logger"
	"github.com/anime-shed/snaptune-go/internal/observer"
	"github.com/anime-shed/snaptune-go/internal/strategy"
	"github.com/anime-shed/snaptune-go/pkg/models"
	"github.com/anime-shed/snaptune-go/pkg/validation"
)

// DefaultCaption is used for posts when the analysis service wrote none
const DefaultCaption = "A beautiful moment captured."

// RecommendationService runs the photo to song pipeline
type RecommendationService interface {
	Recommend(ctx context.Context, req models.AnalysisRequest) (*models.RecommendationResponse, error)
}

// AudioResolver turns a recommendation into a playable clip; it cannot fail
type AudioResolver interface {
	Resolve(ctx context.Context, rec models.SongRecommendation) strategy.Resolution
}

type state string

const (
	stateReceived  state = "received"
	stateValidated state = "validated"
	stateAnalyzed  state = "analyzed"
	stateResolved  state = "resolved"
	stateResponded state = "responded"
	stateErrored   state = "errored"
)

type recommendationService struct {
	analyzer  analysis.Analyzer
	resolver  AudioResolver
	validator *validation.UploadValidator
	events    observer.Subject
}

// NewRecommendationService wires the pipeline. events may be nil.
func NewRecommendationService(
	analyzer analysis.Analyzer,
	resolver AudioResolver,
	validator *validation.UploadValidator,
	events observer.Subject,
) RecommendationService {
	if validator == nil {
		validator = validation.NewUploadValidator(0)
	}
	if events == nil {
		events = observer.NewEventPublisher()
	}
	return &recommendationService{
		analyzer:  analyzer,
		resolver:  resolver,
		validator: validator,
		events:    events,
	}
}

// Recommend validates the upload, asks for a song, resolves its audio and
// assembles the response. Regeneration requests run the same full pipeline.
func (s *recommendationService) Recommend(ctx context.Context, req models.AnalysisRequest) (*models.RecommendationResponse, error) {
	start := time.Now()
	log := logger.FromContext(ctx).WithFields(logrus.Fields{
		"mode":       req.Mode,
		"regenerate": req.Regenerate,
	})
	event := observer.RecommendationEvent{Mode: string(req.Mode), Regenerate: string(req.Regenerate)}

	transition := func(to state) {
		log.WithField("state", to).Debug("Recommendation state changed")
	}
	fail := func(err error) (*models.RecommendationResponse, error) {
		transition(stateErrored)
		ev := event
		ev.EventType = observer.RequestFailed
		ev.ProcessingTime = time.Since(start)
		ev.ErrorCode = apperrors.GetCode(err)
		ev.ErrorMessage = err.Error()
		s.events.NotifyObservers(ctx, ev)
		return nil, err
	}

	transition(stateReceived)
	s.notify(ctx, event, observer.RequestReceived, true)

	mimeType, err := s.validate(&req)
	if err != nil {
		return fail(err)
	}
	req.MIMEType = mimeType
	transition(stateValidated)

	outcome, err := s.analyze(ctx, req)
	if err != nil {
		ev := event
		ev.ErrorCode = apperrors.GetCode(err)
		ev.ErrorMessage = err.Error()
		s.notify(ctx, ev, observer.AnalysisFailed, false)
		return fail(err)
	}
	transition(stateAnalyzed)
	s.notify(ctx, event, observer.AnalysisCompleted, true)

	resolution := s.resolver.Resolve(ctx, outcome.Recommendation)
	outcome.Recommendation.PreviewURL = resolution.URL
	transition(stateResolved)
	ev := event
	ev.AudioSource = string(resolution.Source)
	s.notify(ctx, ev, observer.AudioResolved, true)

	resp := &models.RecommendationResponse{
		RecommendedSong: models.RecommendedSong{
			Title:     outcome.Recommendation.Title,
			Artist:    outcome.Recommendation.Artist,
			ChorusURL: outcome.Recommendation.PreviewURL,
		},
		PostType:    req.Mode,
		AudioSource: string(resolution.Source),
	}
	if req.Mode.WantsCaption() {
		caption := DefaultCaption
		if outcome.Caption != nil && *outcome.Caption != "" {
			caption = *outcome.Caption
		}
		resp.Caption = &caption
	}

	transition(stateResponded)
	ev.ProcessingTime = time.Since(start)
	s.notify(ctx, ev, observer.RequestCompleted, true)

	return resp, nil
}

// validate rejects unusable requests and rewrites Mode and Regenerate in
// their canonical form so later stages can compare them directly
func (s *recommendationService) validate(req *models.AnalysisRequest) (string, error) {
	if len(req.Image) == 0 {
		return "", apperrors.NewValidationError(apperrors.CodeMissingPhoto, "No photo uploaded", apperrors.ErrMissingPhoto)
	}
	mode, err := models.ParsePostMode(string(req.Mode))
	if err != nil {
		return "", apperrors.NewValidationError(apperrors.CodeInvalidPostType, "postType must be \"post\" or \"story\"", err)
	}
	regenerate, err := models.ParseRegenerateTarget(string(req.Regenerate))
	if err != nil {
		return "", apperrors.NewValidationError(apperrors.CodeInvalidRegenerate, "regenerate must be \"song\" or \"caption\"", err)
	}
	req.Mode = mode
	req.Regenerate = regenerate
	return s.validator.Validate(req.Image)
}

// analyze calls the analyzer and makes sure whatever comes back is classified
func (s *recommendationService) analyze(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisOutcome, error) {
	outcome, err := s.analyzer.Analyze(ctx, req)
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperrors.NewTimeoutError("analysis service timed out", err).WithDetails(err.Error())
		}
		return nil, apperrors.NewUpstreamError("analysis service request failed", err).WithDetails(err.Error())
	}
	if outcome == nil || !outcome.Recommendation.Valid() {
		return nil, apperrors.NewContractViolation("analysis outcome is missing song title or artist", nil)
	}
	if !req.Mode.WantsCaption() {
		outcome.Caption = nil
	}
	return outcome, nil
}

func (s *recommendationService) notify(ctx context.Context, ev observer.RecommendationEvent, t observer.EventType, success bool) {
	ev.EventType = t
	ev.Success = success
	s.events.NotifyObservers(ctx, ev)
}
