// Package engine provides the HTTP client for the newscuss inference engine,
// the upstream service that extracts article keywords, generates discussion
// topics, and produces AI debate turns. All calls are simple JSON POSTs
// except OpenStream, which consumes a line-oriented event stream.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const defaultStreamTimeout = 120 * time.Second

// Message mirrors one conversation turn on the engine's wire format.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// StreamRequest is the body of the streaming discussion call. The same shape
// is used by the synchronous Reply call.
type StreamRequest struct {
	Topic        string    `json:"topic"`
	UserPosition string    `json:"userPosition"`
	AIPosition   string    `json:"aiPosition"`
	Difficulty   string    `json:"difficulty"`
	Messages     []Message `json:"messages"`
}

// TranscriptRequest is the body of the summary and feedback calls, which
// evaluate a finished or in-progress discussion transcript.
type TranscriptRequest struct {
	Topic        string    `json:"topic"`
	UserPosition string    `json:"userPosition"`
	AIPosition   string    `json:"aiPosition"`
	Messages     []Message `json:"messages"`
}

// ExtractResult is the engine's keyword and summary extraction for a URL.
type ExtractResult struct {
	Keywords []string `json:"keywords"`
	Summary  string   `json:"summary"`
}

// TopicResult is a generated discussion topic with its description.
type TopicResult struct {
	Topic       string `json:"topic"`
	Description string `json:"description"`
}

// Config holds the engine client settings.
type Config struct {
	// Target is the engine base URL, e.g. "http://localhost:8000"
	Target string

	// StreamTimeout bounds the total duration of a streaming call,
	// including reading the body. Defaults to 120s.
	StreamTimeout time.Duration
}

// Client calls the inference engine. One-shot calls share a client with a
// short timeout; streaming calls use a separate client whose timeout covers
// the whole stream.
type Client struct {
	target       string
	httpClient   *http.Client
	streamClient *http.Client
	logger       *zap.Logger
}

// NewClient creates an engine client.
func NewClient(config Config, logger *zap.Logger) *Client {
	streamTimeout := config.StreamTimeout
	if streamTimeout == 0 {
		streamTimeout = defaultStreamTimeout
	}

	return &Client{
		target: config.Target,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		streamClient: &http.Client{
			Timeout: streamTimeout,
		},
		logger: logger,
	}
}

// Extract asks the engine for the keywords and summary of an article URL.
func (c *Client) Extract(ctx context.Context, url string) (ExtractResult, error) {
	var result ExtractResult
	err := c.postJSON(ctx, "/extract", map[string]string{"url": url}, &result)
	return result, err
}

// GenerateTopic asks the engine for a discussion topic based on an article's
// summary and keywords.
func (c *Client) GenerateTopic(ctx context.Context, summary string, keywords []string) (TopicResult, error) {
	body := map[string]any{
		"summary":  summary,
		"keywords": keywords,
	}

	var result TopicResult
	err := c.postJSON(ctx, "/topic", body, &result)
	return result, err
}

// StartDiscussion asks the engine for the AI's opening message.
func (c *Client) StartDiscussion(ctx context.Context, topic, userPosition, aiPosition, difficulty string) (string, error) {
	body := map[string]string{
		"topic":        topic,
		"userPosition": userPosition,
		"aiPosition":   aiPosition,
		"difficulty":   difficulty,
	}

	var result struct {
		Message string `json:"message"`
	}
	if err := c.postJSON(ctx, "/discussion/start", body, &result); err != nil {
		return "", err
	}
	return result.Message, nil
}

// Reply asks the engine for a complete AI response to the conversation so
// far. This is the synchronous counterpart of OpenStream.
func (c *Client) Reply(ctx context.Context, req StreamRequest) (string, error) {
	var result struct {
		Message string `json:"message"`
	}
	if err := c.postJSON(ctx, "/discussion/message", req, &result); err != nil {
		return "", err
	}
	return result.Message, nil
}

// Summary asks the engine to summarize the discussion transcript.
func (c *Client) Summary(ctx context.Context, req TranscriptRequest) (string, error) {
	var result struct {
		Summary string `json:"summary"`
	}
	if err := c.postJSON(ctx, "/discussion/summary", req, &result); err != nil {
		return "", err
	}
	return result.Summary, nil
}

// Feedback asks the engine to grade the user's performance in the
// discussion. The rubric is engine-defined, so the result is left untyped.
func (c *Client) Feedback(ctx context.Context, req TranscriptRequest) (map[string]any, error) {
	var result map[string]any
	if err := c.postJSON(ctx, "/discussion/feedback", req, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// postJSON issues a JSON POST to the engine and decodes a 2xx response body
// into out. Non-2xx responses surface as UpstreamError.
func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding engine request: %w", err)
	}

	url := c.target + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating engine request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("calling engine", zap.String("url", url))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling engine %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return UpstreamError{Status: resp.StatusCode, Body: string(msg)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding engine response from %s: %w", path, err)
	}
	return nil
}
