package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// VerificationEvent describes one step of a verification request.
type VerificationEvent struct {
	EventType      EventType              `json:"event_type"`
	Timestamp      time.Time              `json:"timestamp"`
	Source         string                 `json:"source,omitempty"`
	ProcessingTime time.Duration          `json:"processing_time"`
	Success        bool                   `json:"success"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of verification event
type EventType string

const (
	ComparisonStarted   EventType = "comparison_started"
	ComparisonCompleted EventType = "comparison_completed"
	ComparisonFailed    EventType = "comparison_failed"
	// FaceDetected and NoFaceDetected are emitted once per searched image.
	FaceDetected     EventType = "face_detected"
	NoFaceDetected   EventType = "no_face_detected"
	ImageFetched     EventType = "image_fetched"
	ImageFetchFailed EventType = "image_fetch_failed"
	FacePersisted    EventType = "face_persisted"
	Reconciled       EventType = "document_reconciled"
)

// MetadataMatch is the metadata key carrying a comparison's isMatch verdict.
const MetadataMatch = "is_match"

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event VerificationEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event VerificationEvent)
}

// LoggingObserver logs verification events
type LoggingObserver struct {
	logger *logrus.Logger
}

func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

func (o *LoggingObserver) OnEvent(ctx context.Context, event VerificationEvent) {
	fields := logrus.Fields{
		"event_type":      event.EventType,
		"processing_time": event.ProcessingTime,
		"success":         event.Success,
	}
	if event.Source != "" {
		fields["source"] = event.Source
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	entry := o.logger.WithFields(fields)
	switch event.EventType {
	case ComparisonStarted:
		entry.Debug("Face comparison started")
	case ComparisonCompleted:
		entry.Info("Face comparison completed")
	case ComparisonFailed:
		entry.Error("Face comparison failed")
	case FaceDetected:
		entry.Debug("Face detected")
	case NoFaceDetected:
		entry.Warn("No face detected")
	case ImageFetched:
		entry.Debug("Image fetched successfully")
	case ImageFetchFailed:
		entry.Error("Image fetch failed")
	case FacePersisted:
		entry.Info("Face persisted")
	case Reconciled:
		entry.Info("Document reconciled")
	default:
		entry.Info("Verification event occurred")
	}
}

func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// MetricsObserver keeps running counters for the stats endpoint.
type MetricsObserver struct {
	mu                  sync.RWMutex
	totalComparisons    int64
	completed           int64
	failed              int64
	matches             int64
	nonMatches          int64
	noFace              int64
	facesDetected       int64
	fetchFailures       int64
	facesPersisted      int64
	reconciliations     int64
	totalProcessingTime time.Duration
}

func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{}
}

func (o *MetricsObserver) OnEvent(ctx context.Context, event VerificationEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.EventType {
	case ComparisonStarted:
		o.totalComparisons++
	case ComparisonCompleted:
		o.completed++
		o.totalProcessingTime += event.ProcessingTime
		// A completed comparison without a verdict had no face on one side.
		switch match, ok := event.Metadata[MetadataMatch].(bool); {
		case !ok:
		case match:
			o.matches++
		default:
			o.nonMatches++
		}
	case ComparisonFailed:
		o.failed++
	case FaceDetected:
		o.facesDetected++
	case NoFaceDetected:
		o.noFace++
	case ImageFetchFailed:
		o.fetchFailures++
	case FacePersisted:
		o.facesPersisted++
	case Reconciled:
		o.reconciliations++
	}
}

func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// GetMetrics returns a snapshot of the counters.
func (o *MetricsObserver) GetMetrics() map[string]interface{} {
	o.mu.RLock()
	defer o.mu.RUnlock()

	avgProcessingTime := time.Duration(0)
	if o.completed > 0 {
		avgProcessingTime = o.totalProcessingTime / time.Duration(o.completed)
	}

	return map[string]interface{}{
		"total_comparisons":     o.totalComparisons,
		"completed_comparisons": o.completed,
		"failed_comparisons":    o.failed,
		"matches":               o.matches,
		"non_matches":           o.nonMatches,
		"faces_detected":        o.facesDetected,
		"no_face_detected":      o.noFace,
		"image_fetch_failures":  o.fetchFailures,
		"faces_persisted":       o.facesPersisted,
		"reconciliations":       o.reconciliations,
		"avg_processing_time":   avgProcessingTime.String(),
	}
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
}

func NewEventPublisher() Subject {
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

// NotifyObservers delivers event to every observer in subscription order, so
// counters are current by the time the request returns.
func (p *EventPublisher) NotifyObservers(ctx context.Context, event VerificationEvent) {
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

func notify(ctx context.Context, obs Observer, event VerificationEvent) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithField("observer", obs.GetObserverName()).
				WithField("panic", r).
				Error("Observer panicked while handling event")
		}
	}()
	obs.OnEvent(ctx, event)
}
