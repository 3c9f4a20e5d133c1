package stream

import (
	"context"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/newscuss/newscuss/pkg/engine"
	"github.com/newscuss/newscuss/pkg/session"
	"github.com/newscuss/newscuss/pkg/utils"
)

// Event is one client-facing streaming event. Exactly one terminal event
// (end or error) is sent per stream, after which the sink is closed.
type Event struct {
	Type         FrameType `json:"type"`
	Content      string    `json:"content,omitempty"`
	FinalMessage string    `json:"final_message,omitempty"`
	Message      string    `json:"message,omitempty"`
}

// Sink is the push channel toward the client. Send blocks while the
// transport applies backpressure; a Send error means the consumer is gone.
type Sink interface {
	Send(Event) error
	Close() error
}

// LineStream is a lazy sequence of raw protocol lines. *engine.Stream
// satisfies it.
type LineStream interface {
	Next() (string, bool)
	Err() error
	Close() error
}

// OpenFunc opens the engine stream for a discussion turn.
type OpenFunc func(ctx context.Context, req engine.StreamRequest) (LineStream, error)

// Config wires a Relay's collaborators.
type Config struct {
	Session *session.Session
	Sink    Sink
	Open    OpenFunc
	Logger  *zap.Logger
}

// Relay drives a single streaming discussion turn. It is not reused: one
// relay per client request. The terminal transition is guarded by a one-shot
// flag so that persisting the assistant message, sending the terminal event,
// and closing the sink happen exactly once no matter how the stream ends.
type Relay struct {
	session *session.Session
	sink    Sink
	open    OpenFunc
	logger  *zap.Logger

	// done flips on the first terminal transition; later triggers are no-ops
	done atomic.Bool

	acc strings.Builder
}

// New creates a relay for one streaming turn.
func New(config Config) *Relay {
	return &Relay{
		session: config.Session,
		sink:    config.Sink,
		open:    config.Open,
		logger:  config.Logger,
	}
}

// Run executes the turn: append the user message, open the engine stream,
// forward decoded chunks, and persist the assistant's reply on completion.
// Run is intended to be launched on its own goroutine; all outcomes,
// including failures, are reported through the sink.
func (r *Relay) Run(ctx context.Context, userText string) {
	r.session.AppendMessage(session.RoleUser, userText)

	lines, err := r.open(ctx, streamRequest(r.session.Discussion()))
	if err != nil {
		r.logger.Error("failed to open engine stream",
			zap.String("session_id", r.session.ID()),
			zap.Error(err),
		)
		r.fail("upstream unavailable")
		return
	}
	defer lines.Close()

	for {
		line, ok := lines.Next()
		if !ok {
			break
		}

		frame, ok := DecodeLine(line)
		if !ok {
			r.logger.Debug("skipping undecodable stream line",
				zap.String("session_id", r.session.ID()),
			)
			continue
		}

		switch frame.Type {
		case FrameChunk:
			r.acc.WriteString(frame.Content)
			if err := r.sink.Send(Event{Type: FrameChunk, Content: frame.Content}); err != nil {
				r.logger.Warn("client sink rejected write, abandoning stream",
					zap.String("session_id", r.session.ID()),
					zap.Error(err),
				)
				r.abandon()
				return
			}

		case FrameEnd:
			final := frame.FinalMessage
			if final == "" {
				final = r.acc.String()
			}
			r.complete(final)
			return

		case FrameError:
			r.logger.Error("engine reported stream error",
				zap.String("session_id", r.session.ID()),
				zap.String("message", frame.Message),
			)
			r.fail(frame.Message)
			return
		}
	}

	if err := lines.Err(); err != nil {
		r.logger.Warn("engine stream truncated",
			zap.String("session_id", r.session.ID()),
			zap.Error(err),
		)
	}

	// The stream ended without a terminal frame. Salvage the partial reply
	// when there is one; a half-finished answer beats losing the turn.
	if r.acc.Len() > 0 {
		r.salvage(r.acc.String())
		return
	}
	r.fail("stream ended unexpectedly")
}

// complete persists the assistant message and sends the terminal success
// event. No-op if a terminal transition already happened.
func (r *Relay) complete(final string) {
	if !r.done.CompareAndSwap(false, true) {
		return
	}

	r.session.AppendMessage(session.RoleAI, final)

	if err := r.sink.Send(Event{Type: FrameEnd, FinalMessage: final}); err != nil {
		r.logger.Warn("failed to send completion event", zap.Error(err))
	}
	r.closeSink()

	r.logger.Info("stream completed",
		zap.String("session_id", r.session.ID()),
		zap.Int("final_length", len(final)),
	)
}

// salvage persists the partial accumulation and reports it to the client as
// a synthetic completion.
func (r *Relay) salvage(partial string) {
	if !r.done.CompareAndSwap(false, true) {
		return
	}

	r.session.AppendMessage(session.RoleAI, partial)

	if err := r.sink.Send(Event{Type: FrameEnd, FinalMessage: partial}); err != nil {
		r.logger.Warn("failed to send salvage completion event", zap.Error(err))
	}
	r.closeSink()

	r.logger.Warn("stream salvaged after truncation",
		zap.String("session_id", r.session.ID()),
		zap.String("preview", utils.Truncate(partial, 80)),
	)
}

// fail sends the terminal failure event. Nothing is persisted: an explicit
// engine-reported error drops any accumulated text.
func (r *Relay) fail(message string) {
	if !r.done.CompareAndSwap(false, true) {
		return
	}

	if err := r.sink.Send(Event{Type: FrameError, Message: message}); err != nil {
		r.logger.Warn("failed to send error event", zap.Error(err))
	}
	r.closeSink()
}

// abandon marks the relay terminal without attempting further writes to a
// sink whose consumer is gone.
func (r *Relay) abandon() {
	if !r.done.CompareAndSwap(false, true) {
		return
	}
	r.closeSink()
}

func (r *Relay) closeSink() {
	if err := r.sink.Close(); err != nil {
		r.logger.Debug("closing sink", zap.Error(err))
	}
}

// streamRequest converts session state into the engine's wire request.
func streamRequest(d session.Discussion) engine.StreamRequest {
	messages := make([]engine.Message, len(d.Messages))
	for i, m := range d.Messages {
		messages[i] = engine.Message{
			Role:      string(m.Role),
			Content:   m.Content,
			Timestamp: m.Timestamp,
		}
	}

	return engine.StreamRequest{
		Topic:        d.Topic,
		UserPosition: string(d.UserPosition),
		AIPosition:   string(d.AIPosition),
		Difficulty:   d.Difficulty,
		Messages:     messages,
	}
}
