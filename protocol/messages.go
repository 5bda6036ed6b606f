// Package protocol decodes the newline-delimited JSON stream emitted by the
// Claude CLI in stream-json output mode into typed records.
package protocol

// MessageType discriminates between record kinds.
type MessageType string

const (
	MessageTypeSystem    MessageType = "system"
	MessageTypeAssistant MessageType = "assistant"
	MessageTypeUser      MessageType = "user"
	MessageTypeResult    MessageType = "result"
	MessageTypeRaw       MessageType = "raw"
)

// SystemSubtypeInit marks the session initialization record.
const SystemSubtypeInit = "init"

// ResultSubtypeSuccess is the subtype of a successful run's result record.
const ResultSubtypeSuccess = "success"

// Message is the interface for all decoded stream records.
type Message interface {
	MsgType() MessageType
}

// RawLine is an undecoded protocol line, emitted when the stream parser runs
// in raw passthrough mode.
type RawLine string

// MsgType returns the message type.
func (RawLine) MsgType() MessageType { return MessageTypeRaw }

// MCPServer represents an MCP server connection reported at init.
type MCPServer struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// SystemInit is the session initialization record, emitted once at the start
// of a run.
type SystemInit struct {
	Type           MessageType `json:"type"`
	Subtype        string      `json:"subtype"`
	CWD            string      `json:"cwd"`
	SessionID      string      `json:"session_id"`
	Tools          []string    `json:"tools"`
	MCPServers     []MCPServer `json:"mcp_servers,omitempty"`
	Model          string      `json:"model"`
	PermissionMode string      `json:"permissionMode"`
	APIKeySource   string      `json:"apiKeySource"`
}

// MsgType returns the message type.
func (m SystemInit) MsgType() MessageType { return MessageTypeSystem }

// Usage tracks token usage for a single assistant message.
type Usage struct {
	InputTokens              int    `json:"input_tokens"`
	CacheCreationInputTokens int    `json:"cache_creation_input_tokens,omitempty"`
	CacheReadInputTokens     int    `json:"cache_read_input_tokens,omitempty"`
	OutputTokens             int    `json:"output_tokens"`
	ServiceTier              string `json:"service_tier,omitempty"`
}

// MessageContent is the inner message object of an assistant record.
type MessageContent struct {
	ID           string        `json:"id"`
	Type         string        `json:"type"`
	Role         string        `json:"role"`
	Model        string        `json:"model"`
	Content      ContentBlocks `json:"content"`
	StopReason   *string       `json:"stop_reason"`
	StopSequence *string       `json:"stop_sequence"`
	Usage        Usage         `json:"usage"`
}

// AssistantMessage is a complete assistant turn. ParentToolUseID links
// nested tool calls (subagents) back to the spawning tool use.
type AssistantMessage struct {
	Type            MessageType    `json:"type"`
	Message         MessageContent `json:"message"`
	ParentToolUseID *string        `json:"parent_tool_use_id"`
	SessionID       string         `json:"session_id"`
}

// MsgType returns the message type.
func (m AssistantMessage) MsgType() MessageType { return MessageTypeAssistant }

// UserMessageContent is the inner message object of a user record. Its
// content carries only tool results; anything else is dropped during decode.
type UserMessageContent struct {
	Role    string           `json:"role"`
	Content ToolResultBlocks `json:"content"`
}

// UserMessage is a user turn carrying tool results echoed back by the CLI.
type UserMessage struct {
	Type            MessageType        `json:"type"`
	Message         UserMessageContent `json:"message"`
	ParentToolUseID *string            `json:"parent_tool_use_id"`
	SessionID       string             `json:"session_id"`
}

// MsgType returns the message type.
func (m UserMessage) MsgType() MessageType { return MessageTypeUser }

// ServerToolUseStats tracks server-side tool usage.
type ServerToolUseStats struct {
	WebSearchRequests int `json:"web_search_requests"`
}

// UsageDetails is the extended usage reported on the result record. Numeric
// fields are zero when absent so downstream arithmetic never needs nil checks.
type UsageDetails struct {
	InputTokens              int                `json:"input_tokens"`
	CacheCreationInputTokens int                `json:"cache_creation_input_tokens,omitempty"`
	CacheReadInputTokens     int                `json:"cache_read_input_tokens,omitempty"`
	OutputTokens             int                `json:"output_tokens"`
	ServiceTier              string             `json:"service_tier,omitempty"`
	ServerToolUse            ServerToolUseStats `json:"server_tool_use,omitempty"`
}

// TotalTokens returns input plus output tokens.
func (u UsageDetails) TotalTokens() int {
	return u.InputTokens + u.OutputTokens
}

// ResultMessage is the terminal record of a run, carrying completion metrics.
type ResultMessage struct {
	Type          MessageType  `json:"type"`
	Subtype       string       `json:"subtype"`
	IsError       bool         `json:"is_error"`
	DurationMs    int64        `json:"duration_ms"`
	DurationAPIMs int64        `json:"duration_api_ms"`
	NumTurns      int          `json:"num_turns"`
	Result        string       `json:"result"`
	SessionID     string       `json:"session_id"`
	TotalCostUSD  float64      `json:"total_cost_usd"`
	Usage         UsageDetails `json:"usage"`
}

// MsgType returns the message type.
func (m ResultMessage) MsgType() MessageType { return MessageTypeResult }
