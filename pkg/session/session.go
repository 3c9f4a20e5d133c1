// Package session provides the in-memory discussion session model and its
// concurrency-safe store. Sessions live only for the lifetime of the process;
// idle sessions are removed by the Reaper.
package session

import (
	"fmt"
	"sync"
	"time"
)

// Role identifies the author of a message in a discussion.
type Role string

const (
	RoleUser Role = "user"
	RoleAI   Role = "ai"
)

// Position is a debate stance. A session's AI position is always the
// opposite of the user's.
type Position string

const (
	PositionFor     Position = "for"
	PositionAgainst Position = "against"
)

// Opposite returns the complementary position.
func (p Position) Opposite() Position {
	if p == PositionFor {
		return PositionAgainst
	}
	return PositionFor
}

// ParsePosition validates a wire-level position string.
func ParsePosition(s string) (Position, error) {
	switch Position(s) {
	case PositionFor, PositionAgainst:
		return Position(s), nil
	default:
		return "", fmt.Errorf("invalid position %q (want %q or %q)", s, PositionFor, PositionAgainst)
	}
}

// Message is a single turn in a discussion. Immutable once created.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session holds the state of one ongoing discussion. All mutation goes
// through methods that hold the session's own mutex, so two different
// sessions can be mutated fully in parallel.
type Session struct {
	mu sync.Mutex

	id               string
	summary          string
	keywords         []string
	topic            string
	topicDescription string
	userPosition     Position
	aiPosition       Position
	difficulty       string
	messages         []Message

	createdAt      time.Time
	lastAccessedAt time.Time
}

// ID returns the session's opaque identifier.
func (s *Session) ID() string {
	return s.id
}

// touch records activity for TTL accounting.
func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAccessedAt = now
}

// lastActivity returns the effective last-activity time used by Store.Sweep.
func (s *Session) lastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastAccessedAt.IsZero() {
		return s.createdAt
	}
	return s.lastAccessedAt
}

// SetArticle stores the extraction result for the source article.
func (s *Session) SetArticle(summary string, keywords []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary = summary
	s.keywords = append([]string(nil), keywords...)
}

// SetTopic stores the generated discussion topic and its description.
func (s *Session) SetTopic(topic, description string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topic = topic
	s.topicDescription = description
}

// ErrDiscussionStarted is returned when StartDiscussion is called on a
// session whose positions are already fixed.
var ErrDiscussionStarted = fmt.Errorf("discussion already started")

// StartDiscussion fixes the topic, positions and difficulty for the
// discussion and resets the message history. Positions are immutable for
// the life of the session: a second call fails with ErrDiscussionStarted.
func (s *Session) StartDiscussion(topic string, userPosition Position, difficulty string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.userPosition != "" {
		return ErrDiscussionStarted
	}

	s.topic = topic
	s.userPosition = userPosition
	s.aiPosition = userPosition.Opposite()
	s.difficulty = difficulty
	s.messages = nil
	return nil
}

// AppendMessage appends a message with the current timestamp and returns it.
// Messages are strictly append-only and chronologically ordered.
func (s *Session) AppendMessage(role Role, content string) Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
	s.messages = append(s.messages, msg)
	return msg
}

// Messages returns a copy of the message history in chronological order.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.messages...)
}

// UserMessageCount returns the number of user-authored messages.
func (s *Session) UserMessageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, m := range s.messages {
		if m.Role == RoleUser {
			n++
		}
	}
	return n
}

// Discussion is the session state needed to build an upstream engine call.
type Discussion struct {
	Topic        string
	UserPosition Position
	AIPosition   Position
	Difficulty   string
	Messages     []Message
}

// Discussion returns a consistent copy of the discussion parameters and
// message history.
func (s *Session) Discussion() Discussion {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Discussion{
		Topic:        s.topic,
		UserPosition: s.userPosition,
		AIPosition:   s.aiPosition,
		Difficulty:   s.difficulty,
		Messages:     append([]Message(nil), s.messages...),
	}
}

// Snapshot is a read-only serialized view of a session.
type Snapshot struct {
	ID               string    `json:"sessionId"`
	Summary          string    `json:"summary,omitempty"`
	Keywords         []string  `json:"keywords,omitempty"`
	Topic            string    `json:"topic,omitempty"`
	TopicDescription string    `json:"topicDescription,omitempty"`
	UserPosition     Position  `json:"userPosition,omitempty"`
	AIPosition       Position  `json:"aiPosition,omitempty"`
	Difficulty       string    `json:"difficulty,omitempty"`
	Messages         []Message `json:"messages"`
	CreatedAt        time.Time `json:"createdAt"`
	LastAccessedAt   time.Time `json:"lastAccessedAt"`
}

// Snapshot returns a point-in-time copy of all session fields.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		ID:               s.id,
		Summary:          s.summary,
		Keywords:         append([]string(nil), s.keywords...),
		Topic:            s.topic,
		TopicDescription: s.topicDescription,
		UserPosition:     s.userPosition,
		AIPosition:       s.aiPosition,
		Difficulty:       s.difficulty,
		Messages:         append([]Message(nil), s.messages...),
		CreatedAt:        s.createdAt,
		LastAccessedAt:   s.lastAccessedAt,
	}
}
