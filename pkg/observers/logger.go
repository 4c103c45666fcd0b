// Package observers holds metrics.Observer implementations that summarize
// events for operators.
package observers

import (
	"context"
	"log/slog"

	"github.com/harunnryd/flowlist/pkg/metrics"
)

// LoggerObserver writes every event as a "metrics" log record. Failures are
// logged at warn, everything else at debug.
type LoggerObserver struct {
	log *slog.Logger
}

func NewLoggerObserver(log *slog.Logger) *LoggerObserver {
	if log == nil {
		log = slog.Default()
	}
	return &LoggerObserver{log: log}
}

func (o *LoggerObserver) RecordEvent(ev metrics.MetricsEvent) {
	attrs := make([]slog.Attr, 0, 3+len(ev.Tags)+len(ev.Fields))
	attrs = append(attrs,
		slog.String("name", ev.Name),
		slog.Time("time", ev.Time),
		slog.Float64("value", ev.Value),
	)
	for k, v := range ev.Tags {
		attrs = append(attrs, slog.String(k, v))
	}
	for k, v := range ev.Fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	o.log.LogAttrs(context.Background(), levelFor(ev), "metrics", attrs...)
}

func levelFor(ev metrics.MetricsEvent) slog.Level {
	switch ev.Name {
	case metrics.EventTurnFailed, metrics.EventRateLimit, metrics.EventBreakerOpen, metrics.EventBreakerDenied:
		return slog.LevelWarn
	}
	if status := ev.Tags["status"]; status != "" && status != "ok" {
		return slog.LevelWarn
	}
	return slog.LevelDebug
}
