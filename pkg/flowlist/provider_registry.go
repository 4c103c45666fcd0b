package flowlist

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/harunnryd/flowlist/pkg/configutil"
	"github.com/harunnryd/flowlist/pkg/llm"
	"github.com/harunnryd/flowlist/pkg/providers/mock"
	"github.com/harunnryd/flowlist/pkg/providers/openai"
	"github.com/harunnryd/flowlist/pkg/resilience"
)

type LLMFactory func(cfg Config) (llm.Adapter, error)

type ProviderRegistry struct {
	llm map[string]LLMFactory
}

func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{llm: make(map[string]LLMFactory)}
}

// DefaultProviders registers the built-in "openai" and "mock" providers.
func DefaultProviders() *ProviderRegistry {
	r := NewProviderRegistry()
	r.RegisterLLM("openai", newOpenAI)
	r.RegisterLLM("mock", newMock)
	return r
}

func (r *ProviderRegistry) RegisterLLM(name string, factory LLMFactory) {
	r.llm[strings.ToLower(strings.TrimSpace(name))] = factory
}

func (r *ProviderRegistry) BuildLLM(provider string, cfg Config) (llm.Adapter, error) {
	fn := r.llm[strings.ToLower(strings.TrimSpace(provider))]
	if fn == nil {
		return nil, fmt.Errorf("llm provider not registered: %s", provider)
	}
	return fn(cfg)
}

var openAISchema = configutil.Schema{
	Optional: []string{
		"api_key", "model", "base_url", "timeout_ms",
		"use_circuit_breaker", "circuit_threshold", "circuit_cooldown_ms",
	},
}

type openAISettings struct {
	APIKey            string `mapstructure:"api_key"`
	Model             string `mapstructure:"model"`
	BaseURL           string `mapstructure:"base_url"`
	TimeoutMS         int    `mapstructure:"timeout_ms"`
	UseCircuitBreaker *bool  `mapstructure:"use_circuit_breaker"`
	CircuitThreshold  *int   `mapstructure:"circuit_threshold"`
	CircuitCooldownMS int    `mapstructure:"circuit_cooldown_ms"`
}

// groqKeyEnv is read when no api_key setting is present.
const groqKeyEnv = "GROQ_API_KEY"

func newOpenAI(cfg Config) (llm.Adapter, error) {
	settings := cfg.Vendors.LLM.Settings
	if err := configutil.ValidateSettings(settings, openAISchema); err != nil {
		return nil, fmt.Errorf("vendors.llm.settings: %w", err)
	}
	var s openAISettings
	if err := configutil.DecodeSettings(settings, &s); err != nil {
		return nil, fmt.Errorf("vendors.llm.settings: %w", err)
	}
	if strings.TrimSpace(s.APIKey) == "" {
		s.APIKey = os.Getenv(groqKeyEnv)
	}
	var adapter llm.Adapter = openai.NewAdapter(openai.Config{
		APIKey:  s.APIKey,
		Model:   s.Model,
		BaseURL: s.BaseURL,
		Timeout: configutil.Millis(s.TimeoutMS, 60*time.Second),
	})
	if configutil.BoolValue(s.UseCircuitBreaker, true) {
		breaker := resilience.NewCircuitBreaker(
			configutil.IntValue(s.CircuitThreshold, 3),
			configutil.Millis(s.CircuitCooldownMS, 30*time.Second),
		)
		adapter = llm.NewCircuitBreakerAdapter(adapter, breaker)
	}
	return adapter, nil
}

var mockSchema = configutil.Schema{Optional: []string{"reply", "delay_ms"}}

type mockSettings struct {
	Reply   string `mapstructure:"reply"`
	DelayMS int    `mapstructure:"delay_ms"`
}

// newMock builds an offline adapter. With a reply setting it answers that text
// every turn; otherwise it echoes the user.
func newMock(cfg Config) (llm.Adapter, error) {
	settings := cfg.Vendors.LLM.Settings
	if err := configutil.ValidateSettings(settings, mockSchema); err != nil {
		return nil, fmt.Errorf("vendors.llm.settings: %w", err)
	}
	var s mockSettings
	if err := configutil.DecodeSettings(settings, &s); err != nil {
		return nil, fmt.Errorf("vendors.llm.settings: %w", err)
	}
	if s.Reply == "" && s.DelayMS <= 0 {
		return mock.NewLLMAdapter(), nil
	}
	return mock.Repeat(mock.Step{
		Response: llm.Response{Text: s.Reply, FinishReason: "stop"},
		Delay:    configutil.Millis(s.DelayMS, 0),
	}), nil
}
