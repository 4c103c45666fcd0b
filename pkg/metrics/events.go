package metrics

const (
	EventTurnCompleted = "turn_completed"
	EventTurnFailed    = "turn_failed"
	EventModelRound    = "model_round"
	EventToolResult    = "tool_result"
	EventRateLimit     = "llm_rate_limit"
	EventBreakerOpen   = "llm_breaker_open"
	EventBreakerClose  = "llm_breaker_close"
	EventBreakerDenied = "llm_breaker_denied"
)
