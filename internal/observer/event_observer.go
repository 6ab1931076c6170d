package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/anime-shed/snaptune-go/internal/logger"
)

// RecommendationEvent describes one step of handling a recommendation request
type RecommendationEvent struct {
	EventType      EventType              `json:"event_type"`
	Timestamp      time.Time              `json:"timestamp"`
	Mode           string                 `json:"mode,omitempty"`
	Regenerate     string                 `json:"regenerate,omitempty"`
	AudioSource    string                 `json:"audio_source,omitempty"`
	ProcessingTime time.Duration          `json:"processing_time"`
	Success        bool                   `json:"success"`
	ErrorCode      string                 `json:"error_code,omitempty"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of recommendation event
type EventType string

const (
	// RequestReceived when a request enters the pipeline
	RequestReceived EventType = "request_received"
	// AnalysisCompleted when the analysis service returned a usable outcome
	AnalysisCompleted EventType = "analysis_completed"
	// AnalysisFailed when the analysis service failed or broke its contract
	AnalysisFailed EventType = "analysis_failed"
	// AudioResolved when a clip URL was chosen
	AudioResolved EventType = "audio_resolved"
	// RequestCompleted when a response was assembled
	RequestCompleted EventType = "request_completed"
	// RequestFailed when the request ended in an error
	RequestFailed EventType = "request_failed"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event RecommendationEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event RecommendationEvent)
}

// LoggingObserver logs events through the request-scoped logger
type LoggingObserver struct{}

func NewLoggingObserver() Observer {
	return &LoggingObserver{}
}

func (o *LoggingObserver) OnEvent(ctx context.Context, event RecommendationEvent) {
	fields := logrus.Fields{
		"event_type": event.EventType,
		"success":    event.Success,
	}
	if event.Mode != "" {
		fields["mode"] = event.Mode
	}
	if event.Regenerate != "" {
		fields["regenerate"] = event.Regenerate
	}
	if event.AudioSource != "" {
		fields["audio_source"] = event.AudioSource
	}
	if event.ProcessingTime > 0 {
		fields["processing_time_ms"] = event.ProcessingTime.Milliseconds()
	}
	if event.ErrorCode != "" {
		fields["error_code"] = event.ErrorCode
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	entry := logger.FromContext(ctx).WithFields(fields)
	switch event.EventType {
	case RequestReceived, AnalysisCompleted, AudioResolved:
		entry.Debug("Recommendation event")
	case RequestCompleted:
		entry.Info("Recommendation completed")
	case AnalysisFailed, RequestFailed:
		entry.Error("Recommendation failed")
	default:
		entry.Info("Recommendation event occurred")
	}
}

func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// MetricsObserver collects counters from recommendation events
type MetricsObserver struct {
	mu                  sync.RWMutex
	totalRequests       int64
	successfulRequests  int64
	failedRequests      int64
	analysisFailures    int64
	failuresByCode      map[string]int64
	audioSources        map[string]int64
	totalProcessingTime time.Duration
}

func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{
		failuresByCode: make(map[string]int64),
		audioSources:   make(map[string]int64),
	}
}

func (o *MetricsObserver) OnEvent(ctx context.Context, event RecommendationEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.EventType {
	case RequestReceived:
		o.totalRequests++
	case AnalysisFailed:
		o.analysisFailures++
	case AudioResolved:
		o.audioSources[event.AudioSource]++
	case RequestCompleted:
		o.successfulRequests++
		o.totalProcessingTime += event.ProcessingTime
	case RequestFailed:
		o.failedRequests++
		o.failuresByCode[event.ErrorCode]++
	}
}

func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// GetMetrics returns a snapshot of the counters
func (o *MetricsObserver) GetMetrics() map[string]interface{} {
	o.mu.RLock()
	defer o.mu.RUnlock()

	avgProcessingTime := time.Duration(0)
	if o.successfulRequests > 0 {
		avgProcessingTime = o.totalProcessingTime / time.Duration(o.successfulRequests)
	}

	sources := make(map[string]int64, len(o.audioSources))
	for k, v := range o.audioSources {
		sources[k] = v
	}
	codes := make(map[string]int64, len(o.failuresByCode))
	for k, v := range o.failuresByCode {
		codes[k] = v
	}

	return map[string]interface{}{
		"total_requests":         o.totalRequests,
		"successful_requests":    o.successfulRequests,
		"failed_requests":        o.failedRequests,
		"analysis_failures":      o.analysisFailures,
		"failures_by_code":       codes,
		"audio_sources":          sources,
		"avg_processing_time_ms": avgProcessingTime.Milliseconds(),
	}
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
}

func NewEventPublisher() *EventPublisher {
	return &EventPublisher{
		observers: make([]Observer, 0),
	}
}

func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers delivers the event to every observer in order. Delivery is
// synchronous so counters are current by the time a response is written.
func (p *EventPublisher) NotifyObservers(ctx context.Context, event RecommendationEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	for _, obs := range observers {
		notify(ctx, obs, event)
	}
}

func notify(ctx context.Context, obs Observer, event RecommendationEvent) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithFields(logrus.Fields{
				"observer": obs.GetObserverName(),
				"panic":    r,
			}).Error("Observer panicked while handling event")
		}
	}()
	obs.OnEvent(ctx, event)
}
