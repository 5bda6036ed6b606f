package claude

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentwrap/claudepipe/protocol"
)

func responseWithResult(text, sessionID string, cost float64, tokens int) protocol.Response {
	return protocol.Response{
		Assistant: []protocol.AssistantMessage{
			assistantText(text),
		},
		Result: &protocol.ResultMessage{
			Type:         protocol.MessageTypeResult,
			Subtype:      protocol.ResultSubtypeSuccess,
			SessionID:    sessionID,
			TotalCostUSD: cost,
			Usage: protocol.UsageDetails{
				InputTokens:  tokens / 2,
				OutputTokens: tokens - tokens/2,
			},
		},
	}
}

func assistantText(text string) protocol.AssistantMessage {
	return protocol.AssistantMessage{
		Type: protocol.MessageTypeAssistant,
		Message: protocol.MessageContent{
			Role: "assistant",
			Content: protocol.ContentBlocks{
				protocol.TextBlock{Type: protocol.ContentBlockTypeText, Text: text},
			},
		},
	}
}

func TestSession_RecordAccumulates(t *testing.T) {
	s := NewSession(10)
	require.NotEmpty(t, s.ID)

	s.Record("first", responseWithResult("hi", "sess-1", 0.01, 100))
	s.Record("second", responseWithResult("again", "sess-1", 0.02, 50))

	assert.Equal(t, "sess-1", s.ID, "session id follows the CLI's")
	assert.Equal(t, 2, s.Turns())
	assert.InDelta(t, 0.03, s.TotalCostUSD, 1e-9)
	assert.Equal(t, 150, s.TotalTokens)
	assert.Equal(t, "first", s.History[0].Prompt)
	assert.Equal(t, "hi", s.History[0].Response)
}

func TestSession_HistoryBounded(t *testing.T) {
	s := NewSession(3)
	for i := 0; i < 5; i++ {
		s.Record(fmt.Sprintf("p%d", i), protocol.Response{})
	}

	require.Equal(t, 3, s.Turns())
	assert.Equal(t, "p2", s.History[0].Prompt, "oldest entries evicted first")
	assert.Equal(t, "p4", s.History[2].Prompt)
}

func TestSession_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")

	s := NewSession(10)
	s.Record("q", responseWithResult("a", "sess-7", 0.005, 42))
	require.NoError(t, s.Save(path))

	loaded, err := LoadSession(path, 10)
	require.NoError(t, err)
	assert.Equal(t, "sess-7", loaded.ID)
	assert.Equal(t, 1, loaded.Turns())
	assert.Equal(t, 42, loaded.TotalTokens)
	assert.InDelta(t, 0.005, loaded.TotalCostUSD, 1e-9)
}

func TestSession_SaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.json")
	require.NoError(t, NewSession(0).Save(path))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "session.json", entries[0].Name())
}

func TestLoadSession_Missing(t *testing.T) {
	_, err := LoadSession(filepath.Join(t.TempDir(), "absent.json"), 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
