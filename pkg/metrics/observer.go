package metrics

import "time"

type MetricsEvent struct {
	Name   string
	Time   time.Time
	Value  float64
	Tags   map[string]string
	Fields map[string]any
}

// Stage event names emitted by the pipeline.
const (
	EventStageStart     = "stage_start"
	EventStageDone      = "stage_done"
	EventFallbackFired  = "fallback_fired"
	EventProviderError  = "provider_error"
	EventRequestDone    = "request_done"
	EventNotifyOutcome  = "notify_outcome"
	EventBreakerDenied  = "breaker_denied"
	EventBreakerTripped = "breaker_tripped"
)

type Observer interface {
	RecordEvent(ev MetricsEvent)
}

type Flusher interface {
	Flush() error
}

type NoopObserver struct{}

func (NoopObserver) RecordEvent(MetricsEvent) {}

// StageEvent builds a stage-scoped event tagged with the request id.
func StageEvent(name, stage, requestID string, value float64) MetricsEvent {
	return MetricsEvent{
		Name:  name,
		Time:  time.Now(),
		Value: value,
		Tags: map[string]string{
			"stage":      stage,
			"request_id": requestID,
		},
	}
}
