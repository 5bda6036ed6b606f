package protocol

import (
	"bytes"
	"log/slog"
	"strings"
)

// StreamParser consumes chunks of arbitrary size and boundary from the CLI's
// stdout and yields decoded records as soon as each line completes. A partial
// trailing line is buffered across Feed calls; Flush drains it after the
// stream ends.
//
// Like the Decoder it wraps, a StreamParser is driven by a single goroutine.
type StreamParser struct {
	dec      *Decoder
	buf      []byte
	rawLines bool
}

// StreamOption configures a StreamParser.
type StreamOption func(*StreamParser)

// WithRawLines makes Feed and Flush yield RawLine values instead of decoded
// records, bypassing the decoder entirely. Useful for forwarding protocol
// text unchanged without paying decode cost.
func WithRawLines() StreamOption {
	return func(p *StreamParser) {
		p.rawLines = true
	}
}

// WithStreamLogger sets the logger used for decode diagnostics.
func WithStreamLogger(logger *slog.Logger) StreamOption {
	return func(p *StreamParser) {
		p.dec = NewDecoder(WithLogger(logger))
	}
}

// NewStreamParser creates a StreamParser with an empty buffer.
func NewStreamParser(opts ...StreamOption) *StreamParser {
	p := &StreamParser{dec: NewDecoder()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Feed appends chunk to the internal buffer and returns the records decoded
// from every complete line now available. Each record is yielded exactly
// once; the trailing partial line (if any) stays buffered for the next call.
func (p *StreamParser) Feed(chunk []byte) []Message {
	p.buf = append(p.buf, chunk...)

	var msgs []Message
	for {
		idx := bytes.IndexByte(p.buf, '\n')
		if idx == -1 {
			break
		}
		line := strings.TrimRight(string(p.buf[:idx]), "\r")
		p.buf = p.buf[idx+1:]

		if msg := p.emit(line); msg != nil {
			msgs = append(msgs, msg)
		}
	}
	return msgs
}

// FeedString is Feed for string chunks.
func (p *StreamParser) FeedString(chunk string) []Message {
	return p.Feed([]byte(chunk))
}

// Flush decodes any residual buffered content as a final unterminated line
// and clears the buffer. Call it once, after the source signals end of
// input, or a final record without a trailing newline is lost.
func (p *StreamParser) Flush() []Message {
	line := strings.TrimRight(string(p.buf), "\r")
	p.buf = nil

	if strings.TrimSpace(line) == "" {
		return nil
	}
	if msg := p.emit(line); msg != nil {
		return []Message{msg}
	}
	return nil
}

func (p *StreamParser) emit(line string) Message {
	if p.rawLines {
		if strings.TrimSpace(line) == "" {
			return nil
		}
		return RawLine(line)
	}
	return p.dec.DecodeLine(line)
}

// Response returns a snapshot of everything decoded so far. Valid at any
// point, including before Flush. In raw mode the response stays empty.
func (p *StreamParser) Response() Response {
	return p.dec.Response()
}

// ParseStream decodes a complete transcript in one call.
func ParseStream(stream string, opts ...StreamOption) Response {
	p := NewStreamParser(opts...)
	p.FeedString(stream)
	p.Flush()
	return p.Response()
}
