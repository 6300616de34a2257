package backend

import "github.com/leofalp/aigw/internal/jsonschema"

// Request is the canonical shape of one generation call as seen by an
// adapter. The gateway builds it from the caller's request; adapters
// translate it to the vendor wire format.
type Request struct {
	Model            string            `json:"model,omitempty"`
	Messages         []Message         `json:"messages"`
	SystemPrompt     string            `json:"system_prompt,omitempty"`
	Tools            []ToolDescription `json:"tools,omitempty"`
	GenerationConfig *GenerationConfig `json:"generation_config,omitempty"`

	// Metadata is an opaque caller-supplied context map, passed through
	// untouched for adapters that support request tagging.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Message is a single conversation entry. The gateway appends assistant and
// tool messages to the request as the tool loop progresses.
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content,omitempty"`

	// Tool calling fields
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`   // role=assistant requesting tools
	ToolCallID string     `json:"tool_call_id,omitempty"` // role=tool, links to the originating call
	Name       string     `json:"name,omitempty"`         // role=tool, name of the tool
}

// MessageRole identifies the author of a message.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleTool      MessageRole = "tool"
)

// GenerationConfig carries the sampling parameters of a request.
type GenerationConfig struct {
	Temperature     float32 `json:"temperature,omitempty"`       // [0..2]; lower => more deterministic
	MaxOutputTokens int     `json:"max_output_tokens,omitempty"` // cap on produced output units
}

// ToolDescription advertises one registered tool to the backend.
type ToolDescription struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Parameters  *jsonschema.Schema `json:"parameters,omitempty"`
}

// ToolCall is a tool invocation requested by the backend mid-generation.
type ToolCall struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON-encoded argument object
}

// Result is the canonical shape of a completed generation as returned by an
// adapter.
type Result struct {
	ID           string     `json:"id,omitempty"`
	Backend      string     `json:"backend,omitempty"`
	Model        string     `json:"model,omitempty"`
	Content      string     `json:"content"`
	ToolCalls    []ToolCall `json:"tool_calls,omitempty"`
	FinishReason string     `json:"finish_reason,omitempty"`

	// RawUsage holds the vendor's usage block with its original field
	// names (values decoded as JSON numbers). The analytics field map is
	// the single place these names are interpreted.
	RawUsage map[string]any `json:"raw_usage,omitempty"`
}

// IsStop reports whether the result is terminal: the backend has produced
// its final content and requests no further tool calls.
func (r *Result) IsStop() bool {
	return len(r.ToolCalls) == 0
}
