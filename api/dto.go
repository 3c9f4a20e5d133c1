package api

// Wire DTOs for the discussion API. Field names follow the frontend's
// camelCase convention.

// URLRequest asks the backend to process a news article URL.
type URLRequest struct {
	URL string `json:"url"`
}

// KeywordSummaryResponse returns the extraction result and the session
// created for the article.
type KeywordSummaryResponse struct {
	SessionID string   `json:"sessionId"`
	Keywords  []string `json:"keywords"`
	Summary   string   `json:"summary"`
}

// TopicRequest asks for a discussion topic for a session.
type TopicRequest struct {
	SessionID string   `json:"sessionId"`
	Summary   string   `json:"summary"`
	Keywords  []string `json:"keywords"`
}

// TopicResponse carries the generated topic.
type TopicResponse struct {
	Topic       string `json:"topic"`
	Description string `json:"description"`
}

// DiscussionRequest starts a discussion on a topic.
type DiscussionRequest struct {
	SessionID    string `json:"sessionId"`
	Topic        string `json:"topic"`
	UserPosition string `json:"userPosition"`
	Difficulty   string `json:"difficulty"`
}

// DiscussionResponse carries the AI's opening message and its stance.
type DiscussionResponse struct {
	AIMessage  string `json:"aiMessage"`
	AIPosition string `json:"aiPosition"`
}

// MessageRequest submits one user turn, for both the synchronous and the
// streaming message endpoints.
type MessageRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

// MessageResponse carries the AI's synchronous reply.
type MessageResponse struct {
	AIMessage string `json:"aiMessage"`
}

// SummaryResponse carries the discussion summary.
type SummaryResponse struct {
	Summary string `json:"summary"`
}

// FeedbackResponse carries the engine's (or the fallback) evaluation of the
// user's debate performance.
type FeedbackResponse struct {
	Feedback map[string]any `json:"feedback"`
}
