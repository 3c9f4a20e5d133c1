// Package stream implements the discussion streaming pipeline: a tolerant
// decoder for the engine's line-oriented event protocol and the relay that
// drives one streaming turn end to end — forwarding chunks to the client,
// accumulating the assistant's reply, and persisting it into the session.
package stream

import (
	"encoding/json"
	"strings"
)

// dataPrefix marks a meaningful protocol line. Anything else is noise.
const dataPrefix = "data: "

// FrameType discriminates decoded protocol frames.
type FrameType string

const (
	FrameChunk FrameType = "chunk"
	FrameEnd   FrameType = "end"
	FrameError FrameType = "error"
)

// Frame is one decoded event from the engine's stream.
type Frame struct {
	Type FrameType `json:"type"`

	// Content carries the incremental fragment for chunk frames.
	Content string `json:"content"`

	// FinalMessage optionally carries the authoritative full text on end
	// frames. When empty, the relay's own accumulation is authoritative.
	FinalMessage string `json:"final_message"`

	// Message carries the failure description for error frames.
	Message string `json:"message"`
}

// DecodeLine parses one raw protocol line into a frame. It returns ok=false
// for lines that carry no event: missing "data: " prefix, empty or
// degenerate payloads, malformed JSON, or an unknown discriminant. A bad
// line is never fatal to the stream; the caller just moves on to the next.
func DecodeLine(line string) (Frame, bool) {
	if !strings.HasPrefix(line, dataPrefix) {
		return Frame{}, false
	}

	payload := strings.TrimSpace(line[len(dataPrefix):])
	if payload == "" || payload == "{}" {
		return Frame{}, false
	}

	var frame Frame
	if err := json.Unmarshal([]byte(payload), &frame); err != nil {
		return Frame{}, false
	}

	switch frame.Type {
	case FrameChunk, FrameEnd, FrameError:
		return frame, true
	default:
		return Frame{}, false
	}
}
