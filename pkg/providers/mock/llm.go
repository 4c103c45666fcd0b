// Package mock is a scripted llm.Adapter for tests and offline runs.
package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/harunnryd/flowlist/pkg/llm"
)

// Step is one scripted model reply.
type Step struct {
	Response llm.Response
	Err      error
	Delay    time.Duration
}

func Text(text string) Step {
	return Step{Response: llm.Response{Text: text, FinishReason: "stop"}}
}

func ToolCalls(calls ...llm.ToolCall) Step {
	return Step{Response: llm.Response{ToolCalls: calls, FinishReason: "tool_calls"}}
}

func Fail(err error) Step {
	return Step{Err: err}
}

// LLMAdapter replays its script one step per Generate call. Once the script is
// exhausted it echoes the last user message.
type LLMAdapter struct {
	mu       sync.Mutex
	script   []Step
	requests []llm.Request
	keyErr   error
	fallback *Step
}

func NewLLMAdapter(script ...Step) *LLMAdapter {
	return &LLMAdapter{script: script}
}

// Repeat answers every call with step. A step without text or tool calls
// echoes the last user message after its delay.
func Repeat(step Step) *LLMAdapter {
	return &LLMAdapter{fallback: &step}
}

func (a *LLMAdapter) Name() string { return "mock_llm" }

// WithCredentialError makes CheckCredentials fail with err.
func (a *LLMAdapter) WithCredentialError(err error) *LLMAdapter {
	a.mu.Lock()
	a.keyErr = err
	a.mu.Unlock()
	return a
}

func (a *LLMAdapter) CheckCredentials() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.keyErr
}

func (a *LLMAdapter) Generate(ctx context.Context, req llm.Request) (llm.Response, error) {
	a.mu.Lock()
	a.requests = append(a.requests, cloneRequest(req))
	var step Step
	scripted := len(a.script) > 0
	if scripted {
		step = a.script[0]
		a.script = a.script[1:]
	} else if a.fallback != nil {
		step = *a.fallback
	}
	a.mu.Unlock()

	if !scripted {
		if step.Err == nil && step.Response.Text == "" && !step.Response.HasToolCalls() {
			step.Response.Text = echo(req.Messages)
			step.Response.FinishReason = "stop"
		}
	}
	if step.Delay > 0 {
		select {
		case <-ctx.Done():
			return llm.Response{}, ctx.Err()
		case <-time.After(step.Delay):
		}
	}
	if err := ctx.Err(); err != nil {
		return llm.Response{}, err
	}
	if step.Err != nil {
		return llm.Response{}, step.Err
	}
	return step.Response, nil
}

// Requests returns every request received so far.
func (a *LLMAdapter) Requests() []llm.Request {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]llm.Request(nil), a.requests...)
}

func (a *LLMAdapter) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.requests)
}

func cloneRequest(req llm.Request) llm.Request {
	req.Messages = llm.CloneMessages(req.Messages)
	req.Tools = append([]llm.Tool(nil), req.Tools...)
	return req
}

func echo(msgs []llm.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == llm.RoleUser {
			return fmt.Sprintf("mock reply to: %s", msgs[i].Content)
		}
	}
	return "mock reply"
}

var _ llm.Adapter = (*LLMAdapter)(nil)
