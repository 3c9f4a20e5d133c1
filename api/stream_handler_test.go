package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/newscuss/newscuss/pkg/session"
	"github.com/newscuss/newscuss/pkg/stream"
)

// newStreamingEngine fakes the engine's streaming endpoint with a fixed
// line script.
func newStreamingEngine(lines []string) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/discussion/message/stream", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, line := range lines {
			fmt.Fprint(w, line+"\n")
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}
	})
	return httptest.NewServer(mux)
}

// parseSSE extracts the JSON payloads from an SSE body.
func parseSSE(body string) []stream.Event {
	var events []stream.Event
	for _, line := range strings.Split(body, "\n") {
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev stream.Event
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
			continue
		}
		events = append(events, ev)
	}
	return events
}

var _ = Describe("POST /api/discussion/message/stream", func() {
	var (
		engineServer *httptest.Server
		server       *Server
		store        *session.Store
		sess         *session.Session
	)

	startServer := func(lines []string) {
		engineServer = newStreamingEngine(lines)
		server, store = newTestServer(engineServer.URL)
		sess = store.Create()
		Expect(sess.StartDiscussion("topic", session.PositionFor, "normal")).To(Succeed())
	}

	AfterEach(func() {
		if engineServer != nil {
			engineServer.Close()
			engineServer = nil
		}
	})

	streamRequest := func(sessionID, message string) *http.Response {
		payload, err := json.Marshal(MessageRequest{SessionID: sessionID, Message: message})
		Expect(err).NotTo(HaveOccurred())

		req := httptest.NewRequest(http.MethodPost, "/api/discussion/message/stream", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")

		resp, err := server.app.Test(req, 10000)
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	It("relays chunks and completes with the final message", func() {
		startServer([]string{
			`data: {"type":"chunk","content":"Nuclear "}`,
			``,
			`data: {"type":"chunk","content":"power."}`,
			``,
			`data: {"type":"end"}`,
		})

		resp := streamRequest(sess.ID(), "your move")
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(resp.Header.Get("Content-Type")).To(ContainSubstring("text/event-stream"))

		raw, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()

		events := parseSSE(string(raw))
		Expect(events).To(HaveLen(3))
		Expect(events[0].Content).To(Equal("Nuclear "))
		Expect(events[1].Content).To(Equal("power."))
		Expect(events[2].Type).To(Equal(stream.FrameEnd))
		Expect(events[2].FinalMessage).To(Equal("Nuclear power."))

		// The relay persists the turn into the session.
		Eventually(func() int { return len(sess.Messages()) }, time.Second).Should(Equal(2))
		msgs := sess.Messages()
		Expect(msgs[0].Role).To(Equal(session.RoleUser))
		Expect(msgs[1].Role).To(Equal(session.RoleAI))
		Expect(msgs[1].Content).To(Equal("Nuclear power."))
	})

	It("tolerates malformed lines in the engine stream", func() {
		startServer([]string{
			`data: {garbage`,
			`data: {"type":"chunk","content":"A"}`,
			`data: {"type":"end"}`,
		})

		resp := streamRequest(sess.ID(), "go")
		raw, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()

		events := parseSSE(string(raw))
		Expect(events).To(HaveLen(2))
		Expect(events[0]).To(Equal(stream.Event{Type: stream.FrameChunk, Content: "A"}))
		Expect(events[1].Type).To(Equal(stream.FrameEnd))
	})

	It("salvages a truncated stream as a synthetic completion", func() {
		startServer([]string{
			`data: {"type":"chunk","content":"Hello"}`,
		})

		resp := streamRequest(sess.ID(), "go")
		raw, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()

		events := parseSSE(string(raw))
		Expect(events).To(HaveLen(2))
		Expect(events[1].Type).To(Equal(stream.FrameEnd))
		Expect(events[1].FinalMessage).To(Equal("Hello"))

		Eventually(func() int { return len(sess.Messages()) }, time.Second).Should(Equal(2))
		Expect(sess.Messages()[1].Content).To(Equal("Hello"))
	})

	It("returns 404 before streaming for an unknown session", func() {
		startServer(nil)

		resp := streamRequest("unknown", "hello")
		Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		Expect(decodeBody[ErrorResponse](resp).Error).To(Equal("session not found"))
	})

	It("rejects an empty message", func() {
		startServer(nil)

		resp := streamRequest(sess.ID(), "")
		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
	})
})
