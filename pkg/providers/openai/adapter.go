// Package openai talks to any OpenAI-compatible chat completions endpoint.
// The defaults target Groq.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/harunnryd/flowlist/pkg/llm"
	"github.com/harunnryd/flowlist/pkg/resilience"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

const (
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultModel   = "llama-3.3-70b-versatile"

	missingKeyMessage = "GROQ_API_KEY is missing in server environment."
)

type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

type Adapter struct {
	client openai.Client
	apiKey string
	model  string
}

func NewAdapter(cfg Config) *Adapter {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	opts := []option.RequestOption{
		option.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/") + "/"),
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(cfg.Timeout),
		// one attempt per round
		option.WithMaxRetries(0),
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	return &Adapter{
		client: openai.NewClient(opts...),
		apiKey: strings.TrimSpace(cfg.APIKey),
		model:  cfg.Model,
	}
}

func (a *Adapter) Name() string { return "openai" }

func (a *Adapter) Model() string { return a.model }

// CheckCredentials fails when no API key is configured.
func (a *Adapter) CheckCredentials() error {
	if a.apiKey == "" {
		return llm.CredentialError{Message: missingKeyMessage}
	}
	return nil
}

func (a *Adapter) Generate(ctx context.Context, req llm.Request) (llm.Response, error) {
	params, err := a.buildParams(req)
	if err != nil {
		return llm.Response{}, err
	}
	completion, err := a.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return llm.Response{}, a.mapError(err)
	}
	return fromCompletion(completion)
}

func (a *Adapter) buildParams(req llm.Request) (openai.ChatCompletionNewParams, error) {
	msgs, err := toMessages(req.Messages)
	if err != nil {
		return openai.ChatCompletionNewParams{}, err
	}
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(a.model),
		Messages: msgs,
	}
	// tools are only declared when the round offers them
	if len(req.Tools) > 0 && req.ToolChoice != llm.ToolChoiceNone {
		params.Tools = toTools(req.Tools)
		params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{OfAuto: openai.String(string(llm.ToolChoiceAuto))}
	}
	return params, nil
}

func toTools(tools []llm.Tool) []openai.ChatCompletionToolUnionParam {
	out := make([]openai.ChatCompletionToolUnionParam, 0, len(tools))
	for _, t := range tools {
		out = append(out, openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        t.Name,
			Description: openai.String(t.Description),
			Parameters:  openai.FunctionParameters(t.Schema),
		}))
	}
	return out
}

func toMessages(in []llm.Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(in))
	for _, m := range in {
		switch m.Role {
		case llm.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case llm.RoleUser:
			out = append(out, openai.UserMessage(m.Content))
		case llm.RoleAssistant:
			if len(m.ToolCalls) == 0 {
				out = append(out, openai.AssistantMessage(m.Content))
				continue
			}
			p, err := assistantToolCallParam(m)
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		case llm.RoleTool:
			out = append(out, openai.ToolMessage(m.Content, m.ToolCallID))
		default:
			return nil, fmt.Errorf("unsupported message role %q", m.Role)
		}
	}
	return out, nil
}

type wireToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function wireFunction `json:"function"`
}

type wireFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// assistantToolCallParam rebuilds the model's tool-call message from its wire form
// so the SDK echoes it back exactly as received.
func assistantToolCallParam(m llm.Message) (openai.ChatCompletionMessageParamUnion, error) {
	calls := make([]wireToolCall, len(m.ToolCalls))
	for i, c := range m.ToolCalls {
		args := c.Arguments
		if strings.TrimSpace(args) == "" {
			args = "{}"
		}
		calls[i] = wireToolCall{ID: c.ID, Type: "function", Function: wireFunction{Name: c.Name, Arguments: args}}
	}
	raw, err := json.Marshal(map[string]any{
		"role":       "assistant",
		"content":    m.Content,
		"tool_calls": calls,
	})
	if err != nil {
		return openai.ChatCompletionMessageParamUnion{}, err
	}
	var msg openai.ChatCompletionMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return openai.ChatCompletionMessageParamUnion{}, fmt.Errorf("decode assistant tool calls: %w", err)
	}
	return msg.ToParam(), nil
}

func fromCompletion(c *openai.ChatCompletion) (llm.Response, error) {
	if c == nil || len(c.Choices) == 0 {
		return llm.Response{}, llm.ErrNoChoices
	}
	choice := c.Choices[0]
	resp := llm.Response{
		Text:         choice.Message.Content,
		FinishReason: string(choice.FinishReason),
		Usage: llm.Usage{
			PromptTokens:     int(c.Usage.PromptTokens),
			CompletionTokens: int(c.Usage.CompletionTokens),
			TotalTokens:      int(c.Usage.TotalTokens),
		},
	}
	for _, tc := range choice.Message.ToolCalls {
		resp.ToolCalls = append(resp.ToolCalls, llm.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return resp, nil
}

func (a *Adapter) mapError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests {
			return resilience.RateLimitError{Provider: a.Name(), Message: apiErr.Message}
		}
		msg := apiErr.Message
		if msg == "" {
			msg = http.StatusText(apiErr.StatusCode)
		}
		return fmt.Errorf("%s: status %d: %s", a.Name(), apiErr.StatusCode, msg)
	}
	return err
}

var _ llm.Adapter = (*Adapter)(nil)
