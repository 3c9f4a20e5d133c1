package engine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"
)

// Stream is a lazy sequence of raw protocol lines from the engine's
// streaming discussion endpoint. It is consumed exactly once, in order.
// When the stream's overall deadline expires the sequence simply ends and
// Err reports the cause; no terminal frame is synthesized here.
type Stream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
}

// Next returns the next raw line, blocking while one is in flight.
// ok is false once the stream is exhausted or broken; consult Err to
// distinguish the two.
func (s *Stream) Next() (line string, ok bool) {
	if s.scanner.Scan() {
		return s.scanner.Text(), true
	}
	return "", false
}

// Err returns the error that ended the stream, if any. A nil error after
// Next returns false means the engine closed the connection cleanly.
func (s *Stream) Err() error {
	return s.scanner.Err()
}

// Close releases the underlying connection. Safe to call after exhaustion.
func (s *Stream) Close() error {
	return s.body.Close()
}

// OpenStream starts a streaming discussion call and returns the raw line
// sequence of its response. The stream's total duration is bounded by the
// configured stream timeout.
func (c *Client) OpenStream(ctx context.Context, req StreamRequest) (*Stream, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding stream request: %w", err)
	}

	url := c.target + "/discussion/message/stream"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating stream request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	c.logger.Debug("opening engine stream", zap.String("url", url))

	resp, err := c.streamClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("opening engine stream: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, UpstreamError{Status: resp.StatusCode, Body: string(msg)}
	}

	scanner := bufio.NewScanner(resp.Body)
	// Generated chunks can be large; give the scanner room.
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	return &Stream{
		body:    resp.Body,
		scanner: scanner,
	}, nil
}
