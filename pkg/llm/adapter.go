package llm

import (
	"context"
	"errors"
)

var (
	ErrNoChoices   = errors.New("llm returned no choices")
	ErrMissingKey  = errors.New("llm api key missing")
	ErrUnavailable = errors.New("llm unavailable")
)

// ToolChoice tells the model whether it may call tools in a round.
type ToolChoice string

const (
	ToolChoiceAuto ToolChoice = "auto"
	ToolChoiceNone ToolChoice = "none"
)

// Request is one round-trip to the model.
type Request struct {
	Messages   []Message
	Tools      []Tool
	ToolChoice ToolChoice
}

type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

func (u Usage) Add(other Usage) Usage {
	return Usage{
		PromptTokens:     u.PromptTokens + other.PromptTokens,
		CompletionTokens: u.CompletionTokens + other.CompletionTokens,
		TotalTokens:      u.TotalTokens + other.TotalTokens,
	}
}

type Response struct {
	Text         string
	Usage        Usage
	FinishReason string
	ToolCalls    []ToolCall
}

// HasToolCalls reports whether the model asked for at least one tool invocation.
func (r Response) HasToolCalls() bool { return len(r.ToolCalls) > 0 }

// Adapter is a model provider. Implementations must be safe for concurrent use.
type Adapter interface {
	Generate(ctx context.Context, req Request) (Response, error)
	Name() string
}

// CredentialChecker is implemented by adapters that can tell, without a network
// call, whether their access credential is configured.
type CredentialChecker interface {
	CheckCredentials() error
}

// CheckCredentials runs the adapter's local credential check when it has one.
func CheckCredentials(a Adapter) error {
	if a == nil {
		return ErrUnavailable
	}
	if cc, ok := a.(CredentialChecker); ok {
		return cc.CheckCredentials()
	}
	return nil
}

// CredentialError carries the user-facing explanation of a missing credential.
// It matches ErrMissingKey with errors.Is.
type CredentialError struct {
	Message string
}

func (e CredentialError) Error() string {
	if e.Message == "" {
		return ErrMissingKey.Error()
	}
	return e.Message
}

func (e CredentialError) Is(target error) bool { return target == ErrMissingKey }
