package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/newscuss/newscuss/pkg/engine"
	"github.com/newscuss/newscuss/pkg/stream"
)

// sseSink pushes relay events to the client as SSE data lines through the
// pipe writer backing the chunked response body. A Send error means the
// client side of the pipe is gone.
type sseSink struct {
	pw *io.PipeWriter
}

func (s *sseSink) Send(ev stream.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding stream event: %w", err)
	}
	_, err = fmt.Fprintf(s.pw, "data: %s\n\n", payload)
	return err
}

func (s *sseSink) Close() error {
	return s.pw.Close()
}

// handleStreamMessage handles a streaming discussion turn over SSE. The
// relay runs on a detached goroutine and pushes events through an io.Pipe
// into the chunked response body.
func (s *Server) handleStreamMessage(c *fiber.Ctx) error {
	var req MessageRequest
	if err := c.BodyParser(&req); err != nil || req.Message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "message is required"})
	}

	// Resolve the session before committing to a streaming response so an
	// unknown id surfaces as a plain 404 and no engine call is made.
	sess, ok := s.session(c, req.SessionID)
	if !ok {
		return nil
	}

	s.logger.Info("starting discussion stream",
		zap.String("session_id", sess.ID()),
	)

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	// io.Pipe gives direct backpressure: the relay's writes block until
	// fasthttp flushes each chunk to the socket, so the client truly
	// receives events as they are decoded.
	pr, pw := io.Pipe()

	relay := stream.New(stream.Config{
		Session: sess,
		Sink:    &sseSink{pw: pw},
		Logger:  s.logger,
		Open: func(ctx context.Context, streamReq engine.StreamRequest) (stream.LineStream, error) {
			return s.engine.OpenStream(ctx, streamReq)
		},
	})

	// Use context.Background() instead of c.Context() because fasthttp
	// recycles its RequestCtx after the handler returns, while the relay
	// keeps running on its own goroutine. The engine client's stream
	// timeout bounds the relay's total duration.
	go relay.Run(context.Background(), req.Message)

	// Unknown size (-1) triggers chunked transfer encoding.
	c.Context().Response.SetBodyStream(pr, -1)

	return nil
}
