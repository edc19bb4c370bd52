package chat

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Reserved synthetic sender ids, matching the values clients already key on.
const (
	AISenderID     int64 = -1
	SystemSenderID int64 = -99
)

// Message is an immutable log entry of a room. Only UnreadMarker changes after
// creation: it is decremented toward zero as counterpart readers pass the
// message's seq, and serves as the durable reconciliation source for the fast
// unread cache.
type Message struct {
	ID       string
	RoomCode RoomCode
	// Seq is allocated from one global counter, so before/after comparisons
	// hold across rooms as well as within one.
	Seq        int64
	SenderRole SenderRole
	SenderID   int64
	SenderName string
	Content    string
	// UnreadMarker starts at 1 for human-authored messages and 0 for AI and
	// SYSTEM output, which is never owed a read.
	UnreadMarker int
	SentAt       time.Time
}

// NewMessage validates and builds a human-authored message. The seq must
// already be allocated; no message exists without one.
func NewMessage(code RoomCode, seq int64, sender SenderRole, senderID int64, senderName, content string) (*Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errors.New("chat: message content is required")
	}
	if seq <= 0 {
		return nil, errors.New("chat: message seq is required")
	}
	return &Message{
		ID:           uuid.NewString(),
		RoomCode:     code,
		Seq:          seq,
		SenderRole:   sender,
		SenderID:     senderID,
		SenderName:   senderName,
		Content:      content,
		UnreadMarker: 1,
		SentAt:       time.Now(),
	}, nil
}

// NewAIMessage builds an AI-authored message. AI output never counts as
// unread for the AI's own side.
func NewAIMessage(code RoomCode, seq int64, content string) *Message {
	return &Message{
		ID:         uuid.NewString(),
		RoomCode:   code,
		Seq:        seq,
		SenderRole: SenderAI,
		SenderID:   AISenderID,
		SenderName: "AI Assistant",
		Content:    content,
		SentAt:     time.Now(),
	}
}

// NewSystemMessage builds a system notice (handoff summaries, takeovers).
func NewSystemMessage(code RoomCode, seq int64, content string) *Message {
	return &Message{
		ID:         uuid.NewString(),
		RoomCode:   code,
		Seq:        seq,
		SenderRole: SenderSystem,
		SenderID:   SystemSenderID,
		SenderName: "System",
		Content:    content,
		SentAt:     time.Now(),
	}
}

// UnreadBy reports whether the message is unread from the reader's point of
// view: its seq is past the reader's effective watermark and it was sent by
// the reader's counterpart side.
func (m *Message) UnreadBy(room *Room, reader ReaderRole) bool {
	if m.SenderRole != CounterpartSender(m.RoomCode, reader) {
		return false
	}
	return m.Seq > room.EffectiveWatermark(reader)
}
