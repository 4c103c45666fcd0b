package observers

import (
	"sort"
	"sync"
	"time"

	"github.com/harunnryd/flowlist/pkg/metrics"
)

// StatsObserver keeps running counters of turns, tool calls and token usage
// since the process started.
type StatsObserver struct {
	mu      sync.Mutex
	started time.Time

	turns       int
	failures    map[string]int
	latencyMS   float64
	maxLatency  float64
	totalTokens int64
	rounds      map[string]int
	tools       map[string]map[string]int
	rateLimited int
}

func NewStatsObserver() *StatsObserver {
	return &StatsObserver{
		started:  time.Now(),
		failures: make(map[string]int),
		rounds:   make(map[string]int),
		tools:    make(map[string]map[string]int),
	}
}

func (o *StatsObserver) RecordEvent(ev metrics.MetricsEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch ev.Name {
	case metrics.EventTurnCompleted:
		o.turns++
		o.latencyMS += ev.Value
		if ev.Value > o.maxLatency {
			o.maxLatency = ev.Value
		}
		o.rounds[ev.Tags["rounds"]]++
		o.totalTokens += tokens(ev.Fields["total_tokens"])
	case metrics.EventTurnFailed:
		o.failures[ev.Tags["reason_code"]]++
	case metrics.EventToolResult:
		name := ev.Tags["tool_name"]
		byStatus := o.tools[name]
		if byStatus == nil {
			byStatus = make(map[string]int)
			o.tools[name] = byStatus
		}
		byStatus[ev.Tags["status"]]++
	case metrics.EventRateLimit:
		o.rateLimited++
	}
}

type ToolStats struct {
	Name     string         `json:"name"`
	Calls    int            `json:"calls"`
	ByStatus map[string]int `json:"by_status"`
}

type Stats struct {
	UptimeSeconds  int64          `json:"uptime_seconds"`
	TurnsCompleted int            `json:"turns_completed"`
	TurnsFailed    map[string]int `json:"turns_failed"`
	AvgLatencyMS   float64        `json:"avg_latency_ms"`
	MaxLatencyMS   float64        `json:"max_latency_ms"`
	ByRounds       map[string]int `json:"by_rounds"`
	TotalTokens    int64          `json:"total_tokens"`
	RateLimited    int            `json:"rate_limited"`
	Tools          []ToolStats    `json:"tools"`
}

// Snapshot copies the counters. Tools are sorted by name.
func (o *StatsObserver) Snapshot() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()
	s := Stats{
		UptimeSeconds:  int64(time.Since(o.started).Seconds()),
		TurnsCompleted: o.turns,
		TurnsFailed:    copyCounts(o.failures),
		MaxLatencyMS:   o.maxLatency,
		ByRounds:       copyCounts(o.rounds),
		TotalTokens:    o.totalTokens,
		RateLimited:    o.rateLimited,
		Tools:          make([]ToolStats, 0, len(o.tools)),
	}
	if o.turns > 0 {
		s.AvgLatencyMS = o.latencyMS / float64(o.turns)
	}
	for name, byStatus := range o.tools {
		ts := ToolStats{Name: name, ByStatus: copyCounts(byStatus)}
		for _, n := range byStatus {
			ts.Calls += n
		}
		s.Tools = append(s.Tools, ts)
	}
	sort.Slice(s.Tools, func(i, j int) bool { return s.Tools[i].Name < s.Tools[j].Name })
	return s
}

func copyCounts(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func tokens(v any) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int64:
		return n
	case float64:
		return int64(n)
	default:
		return 0
	}
}
