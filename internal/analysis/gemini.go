package analysis

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/genai"

	apperrors "github.com/anime-shed/snaptune-go/internal/errors"
	"github.com/anime-shed/snaptune-go/internal/logger"
	"github.com/anime-shed/snaptune-go/pkg/models"
)

// GeminiAnalyzer sends the photo inline to the Gemini generateContent API
type GeminiAnalyzer struct {
	client  *genai.Client
	opts    Options
	timeout time.Duration
}

// GeminiConfig holds what is needed to reach the Gemini API
type GeminiConfig struct {
	Endpoint   string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// NewGeminiAnalyzer creates a Gemini-backed analyzer
func NewGeminiAnalyzer(ctx context.Context, cfg GeminiConfig, opts Options) (*GeminiAnalyzer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini analyzer: %w", apperrors.ErrMissingCredentials)
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: cfg.Endpoint,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	if opts.Model == "" {
		opts.Model = DefaultModel
	}

	return &GeminiAnalyzer{client: client, opts: opts, timeout: cfg.Timeout}, nil
}

func (g *GeminiAnalyzer) Name() string {
	return "gemini"
}

// Analyze issues a single generateContent call; there are no retries
func (g *GeminiAnalyzer) Analyze(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisOutcome, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	log := logger.FromContext(ctx).WithFields(logrus.Fields{
		"analyzer":   g.Name(),
		"model":      g.opts.Model,
		"mode":       req.Mode,
		"regenerate": req.Regenerate,
		"image_size": len(req.Image),
	})

	mimeType := req.MIMEType
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(BuildPrompt(req.Mode, req.Regenerate)),
			{InlineData: &genai.Blob{
				MIMEType: mimeType,
				Data:     req.Image,
			}},
		}, genai.RoleUser),
	}

	temperature := g.opts.Temperature
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
		Temperature:       &temperature,
		MaxOutputTokens:   g.opts.MaxOutputTokens,
		ResponseMIMEType:  "application/json",
	}

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.opts.Model, contents, config)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			log.WithError(err).Error("Analysis request timed out")
			return nil, apperrors.NewTimeoutError("analysis service timed out", err).WithDetails(err.Error())
		}
		log.WithError(err).Error("Analysis request failed")
		return nil, apperrors.NewUpstreamError("analysis service request failed", err).WithDetails(err.Error())
	}

	outcome, err := ParseOutcome(resp.Text(), req.Mode)
	if err != nil {
		log.WithError(err).Error("Analysis reply violated the contract")
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"title":       outcome.Recommendation.Title,
		"artist":      outcome.Recommendation.Artist,
		"custom_song": outcome.Recommendation.UseCustomAudio,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Analysis completed")

	return outcome, nil
}
