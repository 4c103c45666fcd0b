package llm

// Tool is a function declaration advertised to the model.
// Schema is a JSON-Schema object with properties, required and enum constraints.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Schema      map[string]any `json:"parameters"`
}

// ToolCall is a model-issued request to invoke a tool. Arguments holds the raw
// JSON text exactly as the model produced it.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}
