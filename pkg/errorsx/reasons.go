package errorsx

// ReasonCode is a short machine-readable error reason.
type ReasonCode string

const (
	ReasonUnknown ReasonCode = "unknown"

	// Turn-fatal reasons. These end a turn before or during a model round-trip.
	ReasonUnauthorized  ReasonCode = "unauthorized"
	ReasonConfiguration ReasonCode = "configuration"
	ReasonAIService     ReasonCode = "ai_service"

	// Per-tool reasons. These are folded into tool result payloads and never end a turn.
	ReasonUnknownTool        ReasonCode = "unknown_tool"
	ReasonMalformedArguments ReasonCode = "malformed_arguments"
	ReasonToolFailed         ReasonCode = "tool_failed"

	ReasonLLMRateLimit ReasonCode = "llm_rate_limit"
)

// Label returns the user-facing error kind for a reason.
func Label(reason ReasonCode) string {
	switch reason {
	case ReasonUnauthorized:
		return "Unauthorized"
	case ReasonConfiguration:
		return "Configuration Error"
	case ReasonAIService, ReasonLLMRateLimit:
		return "AI Service Error"
	case ReasonUnknownTool:
		return "unknown tool"
	case ReasonMalformedArguments:
		return "malformed arguments"
	case ReasonToolFailed:
		return "tool failed"
	default:
		return "Internal Error"
	}
}

// Fatal reports whether the reason ends a turn.
func Fatal(reason ReasonCode) bool {
	switch reason {
	case ReasonUnauthorized, ReasonConfiguration, ReasonAIService, ReasonLLMRateLimit:
		return true
	default:
		return false
	}
}
