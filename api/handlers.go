package api

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/newscuss/newscuss/pkg/engine"
	"github.com/newscuss/newscuss/pkg/session"
)

// handleProcessURL creates a session for an article URL and returns the
// extracted keywords and summary.
func (s *Server) handleProcessURL(c *fiber.Ctx) error {
	var req URLRequest
	if err := c.BodyParser(&req); err != nil || req.URL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "url is required"})
	}

	s.logger.Info("processing url", zap.String("url", req.URL))

	result, err := s.engine.Extract(c.Context(), req.URL)
	if err != nil {
		return s.engineFailure(c, "extract", err)
	}

	sess := s.store.Create()
	sess.SetArticle(result.Summary, result.Keywords)

	return c.JSON(KeywordSummaryResponse{
		SessionID: sess.ID(),
		Keywords:  result.Keywords,
		Summary:   result.Summary,
	})
}

// handleGenerateTopic generates a discussion topic for the session.
func (s *Server) handleGenerateTopic(c *fiber.Ctx) error {
	var req TopicRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	sess, ok := s.session(c, req.SessionID)
	if !ok {
		return nil
	}

	s.logger.Info("generating topic", zap.String("session_id", sess.ID()))

	result, err := s.engine.GenerateTopic(c.Context(), req.Summary, req.Keywords)
	if err != nil {
		return s.engineFailure(c, "topic", err)
	}

	sess.SetTopic(result.Topic, result.Description)

	return c.JSON(TopicResponse{
		Topic:       result.Topic,
		Description: result.Description,
	})
}

// handleStartDiscussion fixes the positions and difficulty for the session
// and returns the AI's opening message.
func (s *Server) handleStartDiscussion(c *fiber.Ctx) error {
	var req DiscussionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	userPosition, err := session.ParsePosition(req.UserPosition)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}

	sess, ok := s.session(c, req.SessionID)
	if !ok {
		return nil
	}

	if err := sess.StartDiscussion(req.Topic, userPosition, req.Difficulty); err != nil {
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{Error: err.Error()})
	}

	d := sess.Discussion()

	s.logger.Info("starting discussion",
		zap.String("session_id", sess.ID()),
		zap.String("topic", d.Topic),
		zap.String("user_position", string(d.UserPosition)),
		zap.String("difficulty", d.Difficulty),
	)

	opening, err := s.engine.StartDiscussion(c.Context(), d.Topic, string(d.UserPosition), string(d.AIPosition), d.Difficulty)
	if err != nil {
		return s.engineFailure(c, "discussion/start", err)
	}

	sess.AppendMessage(session.RoleAI, opening)

	return c.JSON(DiscussionResponse{
		AIMessage:  opening,
		AIPosition: string(d.AIPosition),
	})
}

// handleSendMessage handles a synchronous discussion turn: append the user
// message, get a complete AI reply, append and return it.
func (s *Server) handleSendMessage(c *fiber.Ctx) error {
	var req MessageRequest
	if err := c.BodyParser(&req); err != nil || req.Message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "message is required"})
	}

	sess, ok := s.session(c, req.SessionID)
	if !ok {
		return nil
	}

	sess.AppendMessage(session.RoleUser, req.Message)

	reply, err := s.engine.Reply(c.Context(), streamRequest(sess.Discussion()))
	if err != nil {
		return s.engineFailure(c, "discussion/message", err)
	}

	sess.AppendMessage(session.RoleAI, reply)

	return c.JSON(MessageResponse{AIMessage: reply})
}

// handleSummary returns the engine's summary of the discussion so far.
func (s *Server) handleSummary(c *fiber.Ctx) error {
	sess, ok := s.session(c, c.Params("sessionId"))
	if !ok {
		return nil
	}

	d := sess.Discussion()
	summary, err := s.engine.Summary(c.Context(), transcriptRequest(d))
	if err != nil {
		return s.engineFailure(c, "discussion/summary", err)
	}

	return c.JSON(SummaryResponse{Summary: summary})
}

// defaultFeedback is returned when the user has participated too little for
// the engine to grade the discussion meaningfully.
func defaultFeedback() map[string]any {
	const comment = "Not enough discussion activity for an accurate evaluation"
	criterion := func() map[string]any {
		return map[string]any{"score": 50, "comment": comment}
	}
	return map[string]any{
		"logical_thinking": criterion(),
		"evidence_use":     criterion(),
		"communication":    criterion(),
		"attitude":         criterion(),
		"creativity":       criterion(),
		"total_score":      50,
		"overall_comment":  "Participate more actively to show the full range of your skills!",
	}
}

// handleFeedback returns the engine's evaluation of the user's performance,
// or a canned default when fewer than two user messages exist.
func (s *Server) handleFeedback(c *fiber.Ctx) error {
	sess, ok := s.session(c, c.Params("sessionId"))
	if !ok {
		return nil
	}

	if sess.UserMessageCount() < 2 {
		s.logger.Warn("insufficient user messages for feedback",
			zap.String("session_id", sess.ID()),
			zap.Int("user_messages", sess.UserMessageCount()),
		)
		return c.JSON(FeedbackResponse{Feedback: defaultFeedback()})
	}

	feedback, err := s.engine.Feedback(c.Context(), transcriptRequest(sess.Discussion()))
	if err != nil {
		return s.engineFailure(c, "discussion/feedback", err)
	}

	return c.JSON(FeedbackResponse{Feedback: feedback})
}

// handleSessionStatus returns a snapshot of all session fields.
func (s *Server) handleSessionStatus(c *fiber.Ctx) error {
	snap, err := s.store.Snapshot(c.Params("sessionId"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "session not found"})
	}
	return c.JSON(snap)
}

// session fetches a session by id, writing the 404 response itself when the
// session is unknown. The boolean reports whether the handler may proceed.
func (s *Server) session(c *fiber.Ctx, id string) (*session.Session, bool) {
	sess, err := s.store.Get(id)
	if err != nil {
		s.logger.Warn("unknown session", zap.String("session_id", id))
		_ = c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "session not found"})
		return nil, false
	}
	return sess, true
}

// engineFailure logs an upstream failure and writes the 502 response. The
// client payload stays opaque; detail goes to the log only.
func (s *Server) engineFailure(c *fiber.Ctx, op string, err error) error {
	s.logger.Error("engine call failed",
		zap.String("op", op),
		zap.Error(err),
	)
	return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{Error: "engine request failed"})
}

// streamRequest converts session state to the engine's conversation request.
func streamRequest(d session.Discussion) engine.StreamRequest {
	return engine.StreamRequest{
		Topic:        d.Topic,
		UserPosition: string(d.UserPosition),
		AIPosition:   string(d.AIPosition),
		Difficulty:   d.Difficulty,
		Messages:     engineMessages(d.Messages),
	}
}

// transcriptRequest converts session state to the engine's transcript request.
func transcriptRequest(d session.Discussion) engine.TranscriptRequest {
	return engine.TranscriptRequest{
		Topic:        d.Topic,
		UserPosition: string(d.UserPosition),
		AIPosition:   string(d.AIPosition),
		Messages:     engineMessages(d.Messages),
	}
}

func engineMessages(msgs []session.Message) []engine.Message {
	out := make([]engine.Message, len(msgs))
	for i, m := range msgs {
		out[i] = engine.Message{
			Role:      string(m.Role),
			Content:   m.Content,
			Timestamp: m.Timestamp,
		}
	}
	return out
}
