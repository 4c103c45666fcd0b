package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/harunnryd/flowlist/pkg/metrics"
	"github.com/harunnryd/flowlist/pkg/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAdapter struct {
	calls  int
	err    error
	keyErr error
}

func (s *stubAdapter) Name() string { return "stub" }

func (s *stubAdapter) Generate(context.Context, Request) (Response, error) {
	s.calls++
	if s.err != nil {
		return Response{}, s.err
	}
	return Response{Text: "ok"}, nil
}

func (s *stubAdapter) CheckCredentials() error { return s.keyErr }

func TestLastNKeepsMostRecent(t *testing.T) {
	var msgs []Message
	for i := 0; i < 12; i++ {
		msgs = append(msgs, UserMessage(string(rune('a'+i))))
	}
	got := LastN(msgs, 10)
	require.Len(t, got, 10)
	assert.Equal(t, "c", got[0].Content)
	assert.Equal(t, "l", got[9].Content)

	assert.Len(t, LastN(msgs[:3], 10), 3)
	assert.Len(t, LastN(msgs, 0), 12)
}

func TestLastNDropsOrphanedToolResults(t *testing.T) {
	msgs := []Message{
		UserMessage("add two tasks"),
		AssistantToolCallMessage("", []ToolCall{{ID: "1", Name: "create_task"}, {ID: "2", Name: "create_task"}}),
		ToolMessage("1", "create_task", `{"id":"t1"}`),
		ToolMessage("2", "create_task", `{"id":"t2"}`),
		AssistantMessage("Done."),
		UserMessage("thanks"),
	}
	got := LastN(msgs, 4)
	require.Len(t, got, 2)
	assert.Equal(t, RoleAssistant, got[0].Role)
	assert.Equal(t, "Done.", got[0].Content)

	got = LastN(msgs, 5)
	require.Len(t, got, 5)
	assert.Equal(t, RoleAssistant, got[0].Role)
	assert.Len(t, got[0].ToolCalls, 2)

	untouched := []Message{ToolMessage("1", "create_task", "{}"), UserMessage("hi")}
	assert.Len(t, LastN(untouched, 10), 2)
}

func TestCloneMessagesDoesNotAlias(t *testing.T) {
	in := []Message{AssistantToolCallMessage("", []ToolCall{{ID: "1", Name: "create_task"}})}
	out := CloneMessages(in)
	out[0].ToolCalls[0].Name = "changed"
	assert.Equal(t, "create_task", in[0].ToolCalls[0].Name)
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" Assistant ")
	require.NoError(t, err)
	assert.Equal(t, RoleAssistant, r)
	_, err = ParseRole("narrator")
	assert.Error(t, err)
}

func TestUsageAdd(t *testing.T) {
	u := Usage{PromptTokens: 1, CompletionTokens: 2, TotalTokens: 3}.Add(Usage{PromptTokens: 4, CompletionTokens: 5, TotalTokens: 9})
	assert.Equal(t, Usage{PromptTokens: 5, CompletionTokens: 7, TotalTokens: 12}, u)
}

func TestCheckCredentialsOptional(t *testing.T) {
	assert.ErrorIs(t, CheckCredentials(nil), ErrUnavailable)
	stub := &stubAdapter{keyErr: ErrMissingKey}
	assert.ErrorIs(t, CheckCredentials(stub), ErrMissingKey)
	assert.ErrorIs(t, NewCircuitBreakerAdapter(stub, nil).CheckCredentials(), ErrMissingKey)
}

func TestCircuitBreakerAdapterDeniesWhenOpen(t *testing.T) {
	stub := &stubAdapter{err: resilience.RateLimitError{Provider: "stub"}}
	mem := metrics.NewMemoryObserver()
	cb := NewCircuitBreakerAdapter(stub, resilience.NewCircuitBreaker(1, time.Hour))
	cb.SetObserver(mem)

	_, err := cb.Generate(context.Background(), Request{})
	require.Error(t, err)
	_, err = cb.Generate(context.Background(), Request{})
	assert.True(t, resilience.IsRateLimit(err))
	assert.Equal(t, 1, stub.calls)
	assert.Len(t, mem.Named(metrics.EventRateLimit), 1)
	assert.Len(t, mem.Named(metrics.EventBreakerDenied), 1)
	assert.Len(t, mem.Named(metrics.EventBreakerOpen), 1)
}

func TestCircuitBreakerAdapterPassesThrough(t *testing.T) {
	stub := &stubAdapter{}
	cb := NewCircuitBreakerAdapter(stub, nil)
	resp, err := cb.Generate(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)

	stub.err = errors.New("boom")
	_, err = cb.Generate(context.Background(), Request{})
	assert.EqualError(t, err, "boom")
}

func TestCredentialErrorMatchesMissingKey(t *testing.T) {
	err := error(CredentialError{Message: "GROQ_API_KEY is missing in server environment."})
	assert.ErrorIs(t, err, ErrMissingKey)
	assert.Equal(t, "GROQ_API_KEY is missing in server environment.", err.Error())
	assert.Equal(t, ErrMissingKey.Error(), CredentialError{}.Error())
}
