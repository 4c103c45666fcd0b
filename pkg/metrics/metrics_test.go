package metrics

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsyncObserverDeliversOnClose(t *testing.T) {
	mem := NewMemoryObserver()
	async := NewAsyncObserver(mem, 8)
	for i := 0; i < 5; i++ {
		async.RecordEvent(MetricsEvent{Name: EventToolResult, Time: time.Now()})
	}
	async.Close()

	assert.Len(t, mem.Named(EventToolResult), 5)
	async.RecordEvent(MetricsEvent{Name: EventToolResult})
	assert.Len(t, mem.Named(EventToolResult), 5)
}

func TestJSONLObserverWritesTagsAndFields(t *testing.T) {
	var buf bytes.Buffer
	obs := NewJSONLObserver(&buf)
	obs.RecordEvent(MetricsEvent{
		Name:   EventTurnCompleted,
		Time:   time.Now(),
		Value:  12,
		Tags:   map[string]string{"provider": "mock"},
		Fields: map[string]any{"rounds": 2},
	})

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, EventTurnCompleted, line["name"])
	assert.Equal(t, "mock", line["provider"])
	assert.EqualValues(t, 2, line["rounds"])
}

func TestMultiObserverSkipsNil(t *testing.T) {
	a := NewMemoryObserver()
	b := NewMemoryObserver()
	multi := NewMultiObserver(a, nil, b)
	multi.RecordEvent(MetricsEvent{Name: EventModelRound})
	assert.Len(t, a.Events, 1)
	assert.Len(t, b.Events, 1)
}
