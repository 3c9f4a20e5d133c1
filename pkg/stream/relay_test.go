package stream

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/newscuss/newscuss/pkg/engine"
	"github.com/newscuss/newscuss/pkg/session"
)

// recordingSink captures events and close calls. failOn makes the Nth Send
// (1-based) return an error, simulating a disconnected client.
type recordingSink struct {
	events []Event
	closes int
	failOn int
	sends  int
}

func (s *recordingSink) Send(ev Event) error {
	s.sends++
	if s.failOn > 0 && s.sends >= s.failOn {
		return errors.New("consumer gone")
	}
	s.events = append(s.events, ev)
	return nil
}

func (s *recordingSink) Close() error {
	s.closes++
	return nil
}

func (s *recordingSink) terminalEvents() []Event {
	var out []Event
	for _, ev := range s.events {
		if ev.Type == FrameEnd || ev.Type == FrameError {
			out = append(out, ev)
		}
	}
	return out
}

// fakeLines replays a fixed line sequence, optionally ending with an error
// to simulate a truncated transport.
type fakeLines struct {
	lines  []string
	pos    int
	err    error
	closed bool
}

func (f *fakeLines) Next() (string, bool) {
	if f.pos >= len(f.lines) {
		return "", false
	}
	line := f.lines[f.pos]
	f.pos++
	return line, true
}

func (f *fakeLines) Err() error   { return f.err }
func (f *fakeLines) Close() error { f.closed = true; return nil }

var _ = Describe("Relay", func() {
	var (
		store *session.Store
		sess  *session.Session
		sink  *recordingSink
		ctx   context.Context
	)

	BeforeEach(func() {
		store = session.NewStore()
		sess = store.Create()
		Expect(sess.StartDiscussion("topic", session.PositionFor, "normal")).To(Succeed())
		sink = &recordingSink{}
		ctx = context.Background()
	})

	run := func(lines *fakeLines, openErr error) *Relay {
		relay := New(Config{
			Session: sess,
			Sink:    sink,
			Logger:  newTestLogger(),
			Open: func(context.Context, engine.StreamRequest) (LineStream, error) {
				if openErr != nil {
					return nil, openErr
				}
				return lines, nil
			},
		})
		relay.Run(ctx, "user point")
		return relay
	}

	Describe("chunk accumulation", func() {
		It("persists the exact concatenation of chunks in arrival order", func() {
			run(&fakeLines{lines: []string{
				`data: {"type":"chunk","content":"A"}`,
				`data: {"type":"chunk","content":"B"}`,
				`data: {"type":"chunk","content":"C"}`,
				`data: {"type":"end"}`,
			}}, nil)

			msgs := sess.Messages()
			Expect(msgs).To(HaveLen(2))
			Expect(msgs[0].Role).To(Equal(session.RoleUser))
			Expect(msgs[0].Content).To(Equal("user point"))
			Expect(msgs[1].Role).To(Equal(session.RoleAI))
			Expect(msgs[1].Content).To(Equal("ABC"))
		})

		It("forwards each chunk verbatim before the terminal event", func() {
			run(&fakeLines{lines: []string{
				`data: {"type":"chunk","content":"A"}`,
				`data: {"type":"chunk","content":"B"}`,
				`data: {"type":"end"}`,
			}}, nil)

			Expect(sink.events).To(HaveLen(3))
			Expect(sink.events[0]).To(Equal(Event{Type: FrameChunk, Content: "A"}))
			Expect(sink.events[1]).To(Equal(Event{Type: FrameChunk, Content: "B"}))
			Expect(sink.events[2].Type).To(Equal(FrameEnd))
			Expect(sink.closes).To(Equal(1))
		})
	})

	Describe("final message precedence", func() {
		It("prefers a non-empty final_message over the accumulation", func() {
			run(&fakeLines{lines: []string{
				`data: {"type":"chunk","content":"partial"}`,
				`data: {"type":"end","final_message":"the full curated answer"}`,
			}}, nil)

			msgs := sess.Messages()
			Expect(msgs[1].Content).To(Equal("the full curated answer"))
			Expect(sink.terminalEvents()).To(HaveLen(1))
			Expect(sink.terminalEvents()[0].FinalMessage).To(Equal("the full curated answer"))
		})
	})

	Describe("malformed line tolerance", func() {
		It("drops garbage lines and keeps streaming", func() {
			run(&fakeLines{lines: []string{
				`data: {garbage`,
				`data: {"type":"chunk","content":"A"}`,
				`data: {"type":"end"}`,
			}}, nil)

			var chunks []Event
			for _, ev := range sink.events {
				if ev.Type == FrameChunk {
					chunks = append(chunks, ev)
				}
			}
			Expect(chunks).To(HaveLen(1))
			Expect(chunks[0].Content).To(Equal("A"))
			Expect(sink.terminalEvents()).To(HaveLen(1))
			Expect(sink.terminalEvents()[0].Type).To(Equal(FrameEnd))
		})
	})

	Describe("abrupt truncation", func() {
		It("salvages the partial reply and sends a synthetic completion", func() {
			run(&fakeLines{lines: []string{
				`data: {"type":"chunk","content":"Hello"}`,
			}, err: errors.New("connection reset")}, nil)

			msgs := sess.Messages()
			Expect(msgs).To(HaveLen(2))
			Expect(msgs[1].Role).To(Equal(session.RoleAI))
			Expect(msgs[1].Content).To(Equal("Hello"))

			terminals := sink.terminalEvents()
			Expect(terminals).To(HaveLen(1))
			Expect(terminals[0].Type).To(Equal(FrameEnd))
			Expect(terminals[0].FinalMessage).To(Equal("Hello"))
			Expect(sink.closes).To(Equal(1))
		})

		It("fails without persisting when nothing accumulated", func() {
			run(&fakeLines{lines: nil}, nil)

			Expect(sess.Messages()).To(HaveLen(1)) // only the user message
			terminals := sink.terminalEvents()
			Expect(terminals).To(HaveLen(1))
			Expect(terminals[0].Type).To(Equal(FrameError))
		})
	})

	Describe("engine-reported errors", func() {
		It("forwards the error and drops accumulated text", func() {
			run(&fakeLines{lines: []string{
				`data: {"type":"chunk","content":"some text"}`,
				`data: {"type":"error","message":"model overloaded"}`,
			}}, nil)

			Expect(sess.Messages()).To(HaveLen(1))
			terminals := sink.terminalEvents()
			Expect(terminals).To(HaveLen(1))
			Expect(terminals[0].Type).To(Equal(FrameError))
			Expect(terminals[0].Message).To(Equal("model overloaded"))
			Expect(sink.closes).To(Equal(1))
		})
	})

	Describe("open failure", func() {
		It("fails with a connectivity error and persists nothing from the engine", func() {
			run(nil, errors.New("dial tcp: connection refused"))

			Expect(sess.Messages()).To(HaveLen(1))
			terminals := sink.terminalEvents()
			Expect(terminals).To(HaveLen(1))
			Expect(terminals[0].Type).To(Equal(FrameError))
			Expect(terminals[0].Message).To(Equal("upstream unavailable"))
		})
	})

	Describe("client disconnect", func() {
		It("abandons the stream without a terminal write", func() {
			lines := &fakeLines{lines: []string{
				`data: {"type":"chunk","content":"A"}`,
				`data: {"type":"chunk","content":"B"}`,
				`data: {"type":"end"}`,
			}}
			sink.failOn = 1
			run(lines, nil)

			Expect(sink.events).To(BeEmpty())
			Expect(sink.closes).To(Equal(1))
			Expect(lines.closed).To(BeTrue())
			// The abandoned turn keeps the user message but no assistant reply.
			Expect(sess.Messages()).To(HaveLen(1))
		})
	})

	Describe("terminal idempotence", func() {
		It("ignores a second terminal trigger", func() {
			relay := run(&fakeLines{lines: []string{
				`data: {"type":"chunk","content":"A"}`,
				`data: {"type":"end"}`,
			}}, nil)

			relay.complete("again")
			relay.fail("again")
			relay.salvage("again")

			Expect(sess.Messages()).To(HaveLen(2))
			Expect(sink.terminalEvents()).To(HaveLen(1))
			Expect(sink.closes).To(Equal(1))
		})
	})

	Describe("engine request", func() {
		It("includes the new user message and discussion parameters", func() {
			var got engine.StreamRequest
			relay := New(Config{
				Session: sess,
				Sink:    sink,
				Logger:  newTestLogger(),
				Open: func(_ context.Context, req engine.StreamRequest) (LineStream, error) {
					got = req
					return &fakeLines{lines: []string{`data: {"type":"end","final_message":"x"}`}}, nil
				},
			})
			relay.Run(ctx, "my argument")

			Expect(got.Topic).To(Equal("topic"))
			Expect(got.UserPosition).To(Equal("for"))
			Expect(got.AIPosition).To(Equal("against"))
			Expect(got.Messages).To(HaveLen(1))
			Expect(got.Messages[0].Role).To(Equal("user"))
			Expect(got.Messages[0].Content).To(Equal("my argument"))
		})
	})
})
