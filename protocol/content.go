package protocol

import (
	"encoding/json"
	"log/slog"
	"strings"
)

// ContentBlockType identifies the kind of content block.
type ContentBlockType string

const (
	ContentBlockTypeText       ContentBlockType = "text"
	ContentBlockTypeThinking   ContentBlockType = "thinking"
	ContentBlockTypeToolUse    ContentBlockType = "tool_use"
	ContentBlockTypeToolResult ContentBlockType = "tool_result"
)

// ContentBlock is the interface for content block discrimination.
type ContentBlock interface {
	BlockType() ContentBlockType
}

// TextBlock is plain response text.
type TextBlock struct {
	Type ContentBlockType `json:"type"`
	Text string           `json:"text"`
}

// BlockType returns the content block type.
func (b TextBlock) BlockType() ContentBlockType { return ContentBlockTypeText }

// ThinkingBlock is extended reasoning text.
type ThinkingBlock struct {
	Type      ContentBlockType `json:"type"`
	Thinking  string           `json:"thinking"`
	Signature string           `json:"signature,omitempty"`
}

// BlockType returns the content block type.
func (b ThinkingBlock) BlockType() ContentBlockType { return ContentBlockTypeThinking }

// ToolUseBlock is a tool invocation with its structured input.
type ToolUseBlock struct {
	Type  ContentBlockType       `json:"type"`
	ID    string                 `json:"id"`
	Name  string                 `json:"name"`
	Input map[string]interface{} `json:"input"`
}

// BlockType returns the content block type.
func (b ToolUseBlock) BlockType() ContentBlockType { return ContentBlockTypeToolUse }

// ToolResultBlock is the outcome of a tool invocation, linked back to it by
// ToolUseID. Content is always a single string: the wire format allows either
// a plain string or a list of text objects, and decoding normalizes both.
type ToolResultBlock struct {
	Type      ContentBlockType `json:"type"`
	ToolUseID string           `json:"tool_use_id"`
	Content   string           `json:"content"`
	IsError   bool             `json:"is_error,omitempty"`
}

// BlockType returns the content block type.
func (b ToolResultBlock) BlockType() ContentBlockType { return ContentBlockTypeToolResult }

// UnmarshalJSON normalizes the content field, which arrives either as a
// string or as an array of {"type":"text","text":...} objects.
func (b *ToolResultBlock) UnmarshalJSON(data []byte) error {
	var aux struct {
		Type      ContentBlockType `json:"type"`
		ToolUseID string           `json:"tool_use_id"`
		Content   json.RawMessage  `json:"content"`
		IsError   bool             `json:"is_error"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	b.Type = aux.Type
	b.ToolUseID = aux.ToolUseID
	b.IsError = aux.IsError
	b.Content = flattenToolResultContent(aux.Content)
	return nil
}

// flattenToolResultContent reduces a tool result content payload to a single
// string. Text items in an array payload are concatenated in order; non-text
// items are dropped.
func flattenToolResultContent(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var items []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &items); err == nil {
		var sb strings.Builder
		for _, item := range items {
			if item.Type == "text" {
				sb.WriteString(item.Text)
			}
		}
		return sb.String()
	}
	// Neither string nor text list. Keep the raw JSON so nothing is lost.
	return string(raw)
}

// UnmarshalContentBlock parses a single tagged content block. Unknown tags
// return (nil, nil) so a stream with newer block kinds still decodes.
func UnmarshalContentBlock(data json.RawMessage) (ContentBlock, error) {
	var base struct {
		Type ContentBlockType `json:"type"`
	}
	if err := json.Unmarshal(data, &base); err != nil {
		return nil, err
	}

	switch base.Type {
	case ContentBlockTypeText:
		var b TextBlock
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, err
		}
		return b, nil
	case ContentBlockTypeThinking:
		var b ThinkingBlock
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, err
		}
		return b, nil
	case ContentBlockTypeToolUse:
		var b ToolUseBlock
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, err
		}
		return b, nil
	case ContentBlockTypeToolResult:
		var b ToolResultBlock
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, err
		}
		return b, nil
	default:
		slog.Warn("skipping unknown content block type", "type", base.Type)
		return nil, nil
	}
}

// ContentBlocks is an ordered list of content blocks. Unmarshalling skips
// unknown block types rather than failing the whole message.
type ContentBlocks []ContentBlock

// UnmarshalJSON implements json.Unmarshaler.
func (cb *ContentBlocks) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}

	blocks := make(ContentBlocks, 0, len(raws))
	for _, raw := range raws {
		block, err := UnmarshalContentBlock(raw)
		if err != nil {
			return err
		}
		if block != nil {
			blocks = append(blocks, block)
		}
	}
	*cb = blocks
	return nil
}

// ToolResultBlocks is the content list of a user message. Only tool_result
// blocks are kept; everything else is dropped.
type ToolResultBlocks []ToolResultBlock

// UnmarshalJSON implements json.Unmarshaler.
func (tb *ToolResultBlocks) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}

	blocks := make(ToolResultBlocks, 0, len(raws))
	for _, raw := range raws {
		var base struct {
			Type ContentBlockType `json:"type"`
		}
		if err := json.Unmarshal(raw, &base); err != nil {
			return err
		}
		if base.Type != ContentBlockTypeToolResult {
			continue
		}
		var b ToolResultBlock
		if err := json.Unmarshal(raw, &b); err != nil {
			return err
		}
		blocks = append(blocks, b)
	}
	*tb = blocks
	return nil
}
