package protocol

import "testing"

func assistantWithBlocks(blocks ...ContentBlock) AssistantMessage {
	return AssistantMessage{
		Type: MessageTypeAssistant,
		Message: MessageContent{
			Role:    "assistant",
			Content: ContentBlocks(blocks),
		},
	}
}

func TestResponse_Text(t *testing.T) {
	tests := []struct {
		name string
		resp Response
		want string
	}{
		{
			name: "empty response",
			resp: Response{},
			want: "",
		},
		{
			name: "single block",
			resp: Response{Assistant: []AssistantMessage{
				assistantWithBlocks(TextBlock{Type: ContentBlockTypeText, Text: "one"}),
			}},
			want: "one",
		},
		{
			name: "blocks joined across turns in arrival order",
			resp: Response{Assistant: []AssistantMessage{
				assistantWithBlocks(
					TextBlock{Type: ContentBlockTypeText, Text: "one"},
					ThinkingBlock{Type: ContentBlockTypeThinking, Thinking: "skip me"},
					TextBlock{Type: ContentBlockTypeText, Text: "two"},
				),
				assistantWithBlocks(TextBlock{Type: ContentBlockTypeText, Text: "three"}),
			}},
			want: "one\ntwo\nthree",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.resp.Text(); got != tt.want {
				t.Errorf("Text() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResponse_ToolUsesAndThinking(t *testing.T) {
	resp := Response{Assistant: []AssistantMessage{
		assistantWithBlocks(
			ThinkingBlock{Type: ContentBlockTypeThinking, Thinking: "first"},
			ToolUseBlock{Type: ContentBlockTypeToolUse, ID: "toolu_1", Name: "Bash"},
		),
		assistantWithBlocks(
			ToolUseBlock{Type: ContentBlockTypeToolUse, ID: "toolu_2", Name: "Edit"},
			ThinkingBlock{Type: ContentBlockTypeThinking, Thinking: "second"},
		),
	}}

	uses := resp.ToolUses()
	if len(uses) != 2 {
		t.Fatalf("expected 2 tool uses, got %d", len(uses))
	}
	if uses[0].Name != "Bash" || uses[1].Name != "Edit" {
		t.Errorf("tool uses out of order: %v, %v", uses[0].Name, uses[1].Name)
	}

	thoughts := resp.Thinking()
	if len(thoughts) != 2 || thoughts[0] != "first" || thoughts[1] != "second" {
		t.Errorf("unexpected thinking: %v", thoughts)
	}
}

func TestResponse_ToolResults(t *testing.T) {
	resp := Response{User: []UserMessage{
		{Message: UserMessageContent{Content: ToolResultBlocks{
			{Type: ContentBlockTypeToolResult, ToolUseID: "toolu_1", Content: "a"},
		}}},
		{Message: UserMessageContent{Content: ToolResultBlocks{
			{Type: ContentBlockTypeToolResult, ToolUseID: "toolu_2", Content: "b", IsError: true},
		}}},
	}}

	results := resp.ToolResults()
	if len(results) != 2 {
		t.Fatalf("expected 2 tool results, got %d", len(results))
	}
	if results[1].ToolUseID != "toolu_2" || !results[1].IsError {
		t.Errorf("unexpected second result: %+v", results[1])
	}
}

func TestResponse_CostAndUsageAbsent(t *testing.T) {
	resp := Response{}

	if cost, ok := resp.Cost(); ok || cost != 0 {
		t.Errorf("expected (0,false) for absent result, got (%v,%v)", cost, ok)
	}
	if usage := resp.TokenUsage(); usage != nil {
		t.Errorf("expected nil usage for absent result, got %+v", usage)
	}
}

func TestResponse_Successful(t *testing.T) {
	tests := []struct {
		name   string
		result *ResultMessage
		want   bool
	}{
		{"no result", nil, false},
		{"success", &ResultMessage{Subtype: ResultSubtypeSuccess, IsError: false}, true},
		{"error flag set", &ResultMessage{Subtype: ResultSubtypeSuccess, IsError: true}, false},
		{"wrong subtype", &ResultMessage{Subtype: "error_max_turns", IsError: false}, false},
		{"error flag and wrong subtype", &ResultMessage{Subtype: "unknown", IsError: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := Response{Result: tt.result}
			if got := resp.Successful(); got != tt.want {
				t.Errorf("Successful() = %v, want %v", got, tt.want)
			}
		})
	}
}
