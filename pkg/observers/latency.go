package observers

import (
	"log/slog"
	"sync"
	"time"

	"github.com/serenehq/serene/pkg/metrics"
)

// LatencyObserver tracks per-request stage timings and logs one summary
// line when the request completes.
type LatencyObserver struct {
	mu     sync.Mutex
	traces map[string]*trace
	log    *slog.Logger
}

type trace struct {
	started map[string]time.Time
	stages  map[string]int64
	first   time.Time
}

func NewLatencyObserver(log *slog.Logger) *LatencyObserver {
	if log == nil {
		log = slog.Default()
	}
	return &LatencyObserver{
		traces: make(map[string]*trace),
		log:    log,
	}
}

func (o *LatencyObserver) RecordEvent(ev metrics.MetricsEvent) {
	requestID := ""
	stage := ""
	if ev.Tags != nil {
		requestID = ev.Tags["request_id"]
		stage = ev.Tags["stage"]
	}
	if requestID == "" {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	t := o.traces[requestID]
	if t == nil {
		t = &trace{
			started: make(map[string]time.Time),
			stages:  make(map[string]int64),
			first:   ev.Time,
		}
		o.traces[requestID] = t
	}
	switch ev.Name {
	case metrics.EventStageStart:
		t.started[stage] = ev.Time
	case metrics.EventStageDone:
		if start, ok := t.started[stage]; ok {
			t.stages[stage] = ev.Time.Sub(start).Milliseconds()
		}
	case metrics.EventRequestDone:
		o.logTraceLocked(requestID, t, ev.Time)
		delete(o.traces, requestID)
	}
}

func (o *LatencyObserver) logTraceLocked(requestID string, t *trace, done time.Time) {
	args := []any{
		"request_id", requestID,
		"total_ms", done.Sub(t.first).Milliseconds(),
	}
	for stage, ms := range t.stages {
		args = append(args, stage+"_ms", ms)
	}
	o.log.Info("latency", args...)
}
