package protocol

import "strings"

// Response is the cumulative result of decoding a stream: the optional init
// record, assistant and user turns in arrival order, the optional terminal
// result, and the raw line transcript. It is built exclusively by a Decoder;
// callers treat it as read-only.
type Response struct {
	SystemInit *SystemInit
	Assistant  []AssistantMessage
	User       []UserMessage
	Result     *ResultMessage
	Raw        string
}

// Text concatenates all assistant text blocks in arrival order, joined by
// newlines. An empty response yields an empty string.
func (r Response) Text() string {
	var texts []string
	for _, msg := range r.Assistant {
		for _, block := range msg.Message.Content {
			if tb, ok := block.(TextBlock); ok {
				texts = append(texts, tb.Text)
			}
		}
	}
	return strings.Join(texts, "\n")
}

// Thinking returns all reasoning blocks' text in arrival order.
func (r Response) Thinking() []string {
	var thoughts []string
	for _, msg := range r.Assistant {
		for _, block := range msg.Message.Content {
			if tb, ok := block.(ThinkingBlock); ok {
				thoughts = append(thoughts, tb.Thinking)
			}
		}
	}
	return thoughts
}

// ToolUses returns all tool invocations in arrival order.
func (r Response) ToolUses() []ToolUseBlock {
	var uses []ToolUseBlock
	for _, msg := range r.Assistant {
		for _, block := range msg.Message.Content {
			if tb, ok := block.(ToolUseBlock); ok {
				uses = append(uses, tb)
			}
		}
	}
	return uses
}

// ToolResults returns all tool results in arrival order.
func (r Response) ToolResults() []ToolResultBlock {
	var results []ToolResultBlock
	for _, msg := range r.User {
		results = append(results, msg.Message.Content...)
	}
	return results
}

// Cost returns the total run cost in USD. ok is false when no result record
// has been seen.
func (r Response) Cost() (cost float64, ok bool) {
	if r.Result == nil {
		return 0, false
	}
	return r.Result.TotalCostUSD, true
}

// TokenUsage returns the run's token usage, or nil when no result record has
// been seen.
func (r Response) TokenUsage() *UsageDetails {
	if r.Result == nil {
		return nil
	}
	usage := r.Result.Usage
	return &usage
}

// Successful reports whether the run completed successfully: a result record
// is present, its error flag is clear, and its subtype is the success marker.
// A response without a result record is never successful.
func (r Response) Successful() bool {
	return r.Result != nil && !r.Result.IsError && r.Result.Subtype == ResultSubtypeSuccess
}
