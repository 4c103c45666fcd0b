package tools

import (
	"encoding/json"

	"github.com/harunnryd/flowlist/pkg/errorsx"
)

// Result is the outcome of one tool call. Payload is what the model sees;
// Err is kept for logs and metrics and is nil on success.
type Result struct {
	ToolCallID string `json:"tool_call_id"`
	ToolName   string `json:"name"`
	Payload    any    `json:"payload"`
	Err        error  `json:"-"`
}

// Content is the JSON text placed in the tool message.
func (r Result) Content() string {
	raw, err := json.Marshal(r.Payload)
	if err != nil {
		raw, _ = json.Marshal(map[string]string{"error": "result not serializable"})
	}
	return string(raw)
}

func (r Result) OK() bool { return r.Err == nil }

// Status is "ok" or the failure reason code.
func (r Result) Status() string {
	if r.Err == nil {
		return "ok"
	}
	return string(errorsx.Reason(r.Err))
}

func errorPayload(msg string) map[string]any {
	return map[string]any{"error": msg}
}
