package flowlist

import (
	"context"
	"testing"

	"github.com/harunnryd/flowlist/pkg/llm"
	"github.com/harunnryd/flowlist/pkg/providers/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildOpenAIWrapsCircuitBreaker(t *testing.T) {
	cfg := Config{Vendors: VendorsConfig{LLM: VendorConfig{Provider: "openai", Settings: map[string]any{"api_key": "k"}}}}
	a, err := DefaultProviders().BuildLLM("OpenAI", cfg)
	require.NoError(t, err)
	_, ok := a.(*llm.CircuitBreakerAdapter)
	assert.True(t, ok)
	assert.NoError(t, llm.CheckCredentials(a))

	cfg.Vendors.LLM.Settings["use_circuit_breaker"] = false
	a, err = DefaultProviders().BuildLLM("openai", cfg)
	require.NoError(t, err)
	assert.Equal(t, "openai", a.Name())
	_, ok = a.(*llm.CircuitBreakerAdapter)
	assert.False(t, ok)
}

func TestBuildOpenAIFallsBackToGroqKey(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")
	a, err := DefaultProviders().BuildLLM("openai", Config{})
	require.NoError(t, err)
	err = llm.CheckCredentials(a)
	require.Error(t, err)
	assert.Equal(t, "GROQ_API_KEY is missing in server environment.", err.Error())

	t.Setenv("GROQ_API_KEY", "gsk_env")
	a, err = DefaultProviders().BuildLLM("openai", Config{})
	require.NoError(t, err)
	assert.NoError(t, llm.CheckCredentials(a))
}

func TestBuildOpenAIRejectsUnknownSettings(t *testing.T) {
	cfg := Config{Vendors: VendorsConfig{LLM: VendorConfig{Settings: map[string]any{"temperature": 0.2}}}}
	_, err := DefaultProviders().BuildLLM("openai", cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown: temperature")
}

func TestBuildMock(t *testing.T) {
	cfg := Config{Vendors: VendorsConfig{LLM: VendorConfig{Settings: map[string]any{"reply": "canned"}}}}
	a, err := DefaultProviders().BuildLLM("mock", cfg)
	require.NoError(t, err)
	resp, err := a.Generate(context.Background(), llm.Request{Messages: []llm.Message{llm.UserMessage("hi")}})
	require.NoError(t, err)
	assert.Equal(t, "canned", resp.Text)

	a, err = DefaultProviders().BuildLLM("mock", Config{})
	require.NoError(t, err)
	resp, err = a.Generate(context.Background(), llm.Request{Messages: []llm.Message{llm.UserMessage("hi")}})
	require.NoError(t, err)
	assert.Equal(t, "mock reply to: hi", resp.Text)
}

func TestBuildUnknownProvider(t *testing.T) {
	_, err := DefaultProviders().BuildLLM("anthropic", Config{})
	assert.EqualError(t, err, "llm provider not registered: anthropic")
}

func TestRegisterCustomProvider(t *testing.T) {
	r := NewProviderRegistry()
	scripted := mock.NewLLMAdapter(mock.Text("x"))
	r.RegisterLLM(" Scripted ", func(Config) (llm.Adapter, error) { return scripted, nil })
	a, err := r.BuildLLM("scripted", Config{})
	require.NoError(t, err)
	assert.Same(t, scripted, a)
}
