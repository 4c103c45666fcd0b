package metrics

import (
	"encoding/json"
	"io"
	"sync"
	"time"
)

// JSONLObserver writes one flat JSON object per event. Tags and fields share
// the top level with name, time and value; reserved keys win on collision.
type JSONLObserver struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewJSONLObserver(w io.Writer) *JSONLObserver {
	if w == nil {
		w = io.Discard
	}
	return &JSONLObserver{enc: json.NewEncoder(w)}
}

func (o *JSONLObserver) RecordEvent(ev MetricsEvent) {
	line := make(map[string]any, len(ev.Tags)+len(ev.Fields)+3)
	for k, v := range ev.Fields {
		line[k] = v
	}
	for k, v := range ev.Tags {
		line[k] = v
	}
	line["name"] = ev.Name
	line["time"] = ev.Time.UTC().Format(time.RFC3339Nano)
	line["value"] = ev.Value

	o.mu.Lock()
	defer o.mu.Unlock()
	_ = o.enc.Encode(line)
}
