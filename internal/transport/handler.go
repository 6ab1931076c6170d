package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/anime-shed/snaptune-go/internal/config"
	apperrors "github.com/anime-shed/snaptune-go/internal/errors"
	"github.com/anime-shed/snaptune-go/internal/logger"
	"github.com/anime-shed/snaptune-go/internal/observer"
	"github.com/anime-shed/snaptune-go/internal/service"
	"github.com/anime-shed/snaptune-go/pkg/models"
)

const (
	photoField      = "photo"
	postTypeField   = "postType"
	regenerateField = "regenerate"

	headerRequestID   = "X-Request-ID"
	headerAudioSource = "X-Audio-Source"
)

const version = "1.0.0"

// NewHandler builds the HTTP API. metrics may be nil.
func NewHandler(svc service.RecommendationService, metrics *observer.MetricsObserver, cfg *config.Config) http.Handler {
	r := gin.New()

	r.Use(
		gin.Recovery(),
		requestID(),
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	r.GET("/health", healthCheck)
	r.GET("/metrics", metricsSnapshot(metrics))
	r.POST("/analyze", analyzePhoto(svc, cfg))

	return r
}

func analyzePhoto(svc service.RecommendationService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		log := logger.FromContext(ctx)
		log.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"user_agent": c.Request.UserAgent(),
			"ip":         c.ClientIP(),
		}).Info("Processing analyze request")

		image, err := readPhoto(c, cfg.MaxRequestBodySize)
		if err != nil {
			respondError(c, err)
			return
		}

		mode, err := models.ParsePostMode(c.PostForm(postTypeField))
		if err != nil {
			respondError(c, apperrors.NewValidationError(apperrors.CodeInvalidPostType,
				`postType must be "post" or "story"`, err))
			return
		}

		regenerate, err := models.ParseRegenerateTarget(c.PostForm(regenerateField))
		if err != nil {
			respondError(c, apperrors.NewValidationError(apperrors.CodeInvalidRegenerate,
				`regenerate must be "song" or "caption"`, err))
			return
		}

		resp, err := svc.Recommend(ctx, models.AnalysisRequest{
			Image:      image,
			Mode:       mode,
			Regenerate: regenerate,
		})
		if err != nil {
			respondError(c, err)
			return
		}

		log.WithFields(logrus.Fields{
			"mode":               mode,
			"regenerate":         regenerate,
			"title":              resp.RecommendedSong.Title,
			"artist":             resp.RecommendedSong.Artist,
			"audio_source":       resp.AudioSource,
			"processing_time_ms": time.Since(startTime).Milliseconds(),
		}).Info("Analyze request completed successfully")

		if resp.AudioSource != "" {
			c.Header(headerAudioSource, resp.AudioSource)
		}
		c.JSON(http.StatusOK, resp)
	}
}

// readPhoto returns the uploaded photo bytes or a validation error
func readPhoto(c *gin.Context, maxBytes int64) ([]byte, error) {
	fileHeader, err := c.FormFile(photoField)
	if err != nil {
		if isBodyTooLarge(err) {
			return nil, apperrors.NewValidationError(apperrors.CodeInvalidRequest, "Request body too large", err)
		}
		return nil, apperrors.NewValidationError(apperrors.CodeMissingPhoto, "No photo uploaded", apperrors.ErrMissingPhoto)
	}

	f, err := fileHeader.Open()
	if err != nil {
		return nil, apperrors.NewValidationError(apperrors.CodeInvalidRequest, "Could not read uploaded photo", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return nil, apperrors.NewValidationError(apperrors.CodeInvalidRequest, "Could not read uploaded photo", err)
	}
	if len(data) == 0 {
		return nil, apperrors.NewValidationError(apperrors.CodeMissingPhoto, "No photo uploaded", apperrors.ErrMissingPhoto)
	}
	return data, nil
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large")
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "available",
		"version": version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func metricsSnapshot(metrics *observer.MetricsObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metrics == nil {
			c.JSON(http.StatusOK, gin.H{})
			return
		}
		c.JSON(http.StatusOK, metrics.GetMetrics())
	}
}

// Middleware and helper functions
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(headerRequestID))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Header(headerRequestID, id)

		entry := logger.WithRequest(id)
		c.Request = c.Request.WithContext(logger.IntoContext(c.Request.Context(), entry))
		c.Next()
	}
}

func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			respondError(c, c.Errors.Last().Err)
		}
	}
}

func respondError(c *gin.Context, err error) {
	status := apperrors.GetStatusCode(err)
	body := models.ErrorResponse{
		Error: "request processing failed",
		Code:  apperrors.GetCode(err),
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		body.Error = appErr.Message
		body.Details = appErr.Details
	}

	entry := logger.FromContext(c.Request.Context()).WithError(err).WithFields(logrus.Fields{
		"status_code": status,
		"code":        body.Code,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	})
	if status >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Warn("Request rejected")
	}

	c.AbortWithStatusJSON(status, body)
}
