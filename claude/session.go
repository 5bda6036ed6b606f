package claude

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/agentwrap/claudepipe/protocol"
)

// HistoryEntry is one recorded exchange: the prompt sent and the text that
// came back.
type HistoryEntry struct {
	Time     time.Time `json:"time"`
	Prompt   string    `json:"prompt"`
	Response string    `json:"response"`
	CostUSD  float64   `json:"cost_usd,omitempty"`
	Tokens   int       `json:"tokens,omitempty"`
}

// Session tracks conversation state across executions. The ID starts as a
// fresh UUID and is replaced by the CLI's session id once an init record
// arrives, so resuming picks up the server-side conversation.
type Session struct {
	ID           string         `json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	LastActivity time.Time      `json:"last_activity"`
	History      []HistoryEntry `json:"history"`
	TotalCostUSD float64        `json:"total_cost_usd"`
	TotalTokens  int            `json:"total_tokens"`

	maxHistory int
}

// NewSession creates an empty session. maxHistory <= 0 means unbounded.
func NewSession(maxHistory int) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:           uuid.NewString(),
		CreatedAt:    now,
		LastActivity: now,
		maxHistory:   maxHistory,
	}
}

// Record appends one exchange and folds its usage into the running totals,
// evicting the oldest entries beyond the history bound.
func (s *Session) Record(prompt string, resp protocol.Response) {
	now := time.Now().UTC()
	entry := HistoryEntry{
		Time:     now,
		Prompt:   prompt,
		Response: resp.Text(),
	}

	if resp.Result != nil {
		if resp.Result.SessionID != "" {
			s.ID = resp.Result.SessionID
		}
		if cost, ok := resp.Cost(); ok {
			entry.CostUSD = cost
			s.TotalCostUSD += cost
		}
		if usage := resp.TokenUsage(); usage != nil {
			entry.Tokens = usage.TotalTokens()
			s.TotalTokens += entry.Tokens
		}
	}
	if resp.SystemInit != nil && resp.SystemInit.SessionID != "" {
		s.ID = resp.SystemInit.SessionID
	}

	s.History = append(s.History, entry)
	if s.maxHistory > 0 && len(s.History) > s.maxHistory {
		s.History = s.History[len(s.History)-s.maxHistory:]
	}
	s.LastActivity = now
}

// Turns returns the number of retained exchanges.
func (s *Session) Turns() int {
	return len(s.History)
}

// Save writes the session as JSON via a temp file and rename, so a crash
// mid-write never leaves a truncated session file behind.
func (s *Session) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*.json")
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close session file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}

// LoadSession reads a previously saved session. The history bound applies
// on the next Record, not retroactively.
func LoadSession(path string, maxHistory int) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse session file: %w", err)
	}
	s.maxHistory = maxHistory
	return &s, nil
}
