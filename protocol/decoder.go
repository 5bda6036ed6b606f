package protocol

import (
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
)

// Decoder turns single protocol lines into typed records and accumulates
// them into a Response. Data-shape problems never surface as errors: bad
// lines are logged and skipped, so one corrupt record cannot abort an
// otherwise-good stream.
//
// A Decoder is not safe for concurrent use; it is driven by the single
// goroutine that owns the stream.
type Decoder struct {
	logger   *slog.Logger
	resp     Response
	rawLines []string
}

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// WithLogger sets the logger used for decode diagnostics.
// Defaults to slog.Default().
func WithLogger(logger *slog.Logger) DecoderOption {
	return func(d *Decoder) {
		d.logger = logger
	}
}

// NewDecoder creates a Decoder with an empty aggregate.
func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{logger: slog.Default()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DecodeLine decodes one protocol line. It returns the decoded record, or
// nil when the line is blank, malformed, or of an unknown kind. Decoded
// records are also appended to the aggregate returned by Response.
func (d *Decoder) DecodeLine(line string) Message {
	if strings.TrimSpace(line) == "" {
		return nil
	}

	var probe struct {
		Type    MessageType `json:"type"`
		Subtype string      `json:"subtype"`
	}
	if err := json.Unmarshal([]byte(line), &probe); err != nil {
		d.logger.Warn("skipping unparseable protocol line", "error", err)
		return nil
	}

	// The line is syntactically valid JSON; keep it in the raw transcript
	// even if the kind turns out to be unknown.
	d.rawLines = append(d.rawLines, line)

	switch probe.Type {
	case MessageTypeSystem:
		if probe.Subtype != SystemSubtypeInit {
			return nil
		}
		var init SystemInit
		if err := json.Unmarshal([]byte(line), &init); err != nil {
			d.logger.Warn("skipping malformed system init record", "error", err)
			return nil
		}
		d.resp.SystemInit = &init
		return init

	case MessageTypeAssistant:
		var msg AssistantMessage
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			d.logger.Warn("skipping malformed assistant record", "error", err)
			return nil
		}
		d.resp.Assistant = append(d.resp.Assistant, msg)
		return msg

	case MessageTypeUser:
		var msg UserMessage
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			d.logger.Warn("skipping malformed user record", "error", err)
			return nil
		}
		d.resp.User = append(d.resp.User, msg)
		return msg

	case MessageTypeResult:
		result := d.decodeResult(line)
		d.resp.Result = &result
		return result

	default:
		d.logger.Debug("ignoring unknown record type", "type", probe.Type)
		return nil
	}
}

// decodeResult attempts a strict decode of a result record. On failure it
// substitutes a minimal error-flagged summary so callers always receive a
// terminal record, preserving subtype, is_error, and session id when present.
func (d *Decoder) decodeResult(line string) ResultMessage {
	var result ResultMessage
	err := json.Unmarshal([]byte(line), &result)
	if err == nil {
		var probe struct {
			Result *string `json:"result"`
		}
		_ = json.Unmarshal([]byte(line), &probe)
		if probe.Result != nil {
			return result
		}
		err = errors.New(`missing "result" field`)
	}
	d.logger.Warn("falling back to minimal result record", "error", err)

	fallback := ResultMessage{
		Type:    MessageTypeResult,
		Subtype: "unknown",
		IsError: true,
	}
	var partial struct {
		Subtype   *string `json:"subtype"`
		IsError   *bool   `json:"is_error"`
		SessionID *string `json:"session_id"`
	}
	if err := json.Unmarshal([]byte(line), &partial); err == nil {
		if partial.Subtype != nil {
			fallback.Subtype = *partial.Subtype
		}
		if partial.IsError != nil {
			fallback.IsError = *partial.IsError
		}
		if partial.SessionID != nil {
			fallback.SessionID = *partial.SessionID
		}
	}
	return fallback
}

// Response returns a snapshot of everything decoded so far. The contained
// slices are append-only views owned by the Decoder and must be treated as
// read-only.
func (d *Decoder) Response() Response {
	resp := d.resp
	resp.Raw = strings.Join(d.rawLines, "\n")
	return resp
}
