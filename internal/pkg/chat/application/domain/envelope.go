package chat

import "time"

// BroadcastType tags a websocket envelope. The set is closed; clients switch
// on it exhaustively.
type BroadcastType string

const (
	BroadcastMessage         BroadcastType = "MESSAGE"
	BroadcastAIMessage       BroadcastType = "AI_MESSAGE"
	BroadcastAdminMessage    BroadcastType = "ADMIN_MESSAGE"
	BroadcastSystemMessage   BroadcastType = "SYSTEM_MESSAGE"
	BroadcastButtonState     BroadcastType = "BUTTON_STATE_UPDATE"
	BroadcastReadStatus      BroadcastType = "READ_STATUS_UPDATE"
	BroadcastUnreadCount     BroadcastType = "UNREAD_COUNT_UPDATE"
	BroadcastAdminAssignment BroadcastType = "ADMIN_ASSIGNMENT_UPDATE"
	BroadcastPlatformHandoff BroadcastType = "PLATFORM_HANDOFF_REQUEST"
	BroadcastAdminReleased   BroadcastType = "ADMIN_RELEASED"
	BroadcastTimeoutTakeover BroadcastType = "AI_TIMEOUT_TAKEOVER"
	BroadcastBadgeCount      BroadcastType = "BADGE_COUNT_UPDATE"
)

// Envelope is the wire frame published to a room topic. Delivery is
// best-effort: subscribers that miss one recover by pulling history.
type Envelope struct {
	Type      BroadcastType  `json:"type"`
	Payload   any            `json:"payload"`
	RoomState *RoomStateInfo `json:"roomState,omitempty"`
}

// MessagePayload carries a persisted message to subscribers.
type MessagePayload struct {
	RoomCode   RoomCode   `json:"roomCode"`
	MessageID  string     `json:"messageId"`
	Seq        int64      `json:"seq"`
	SenderID   int64      `json:"senderId"`
	SenderRole SenderRole `json:"senderRole"`
	SenderName string     `json:"senderName"`
	Content    string     `json:"content"`
	SentAt     time.Time  `json:"sentAt"`
	// AdminCode/AdminDisplayName are set on handoff system messages so the
	// client can label the joining agent.
	AdminCode        string `json:"adminCode,omitempty"`
	AdminDisplayName string `json:"adminDisplayName,omitempty"`
}

// PayloadFor converts a message for broadcast.
func PayloadFor(m *Message) MessagePayload {
	return MessagePayload{
		RoomCode:   m.RoomCode,
		MessageID:  m.ID,
		Seq:        m.Seq,
		SenderID:   m.SenderID,
		SenderRole: m.SenderRole,
		SenderName: m.SenderName,
		Content:    m.Content,
		SentAt:     m.SentAt,
	}
}

// MessageBroadcastType picks the envelope tag matching a sender.
func MessageBroadcastType(sender SenderRole) BroadcastType {
	switch sender {
	case SenderAI:
		return BroadcastAIMessage
	case SenderAdmin, SenderPlatformAdmin:
		return BroadcastAdminMessage
	case SenderSystem:
		return BroadcastSystemMessage
	case SenderUser:
		return BroadcastMessage
	}
	return BroadcastMessage
}

// ButtonStatePayload re-renders the handoff control on state changes.
type ButtonStatePayload struct {
	RoomCode RoomCode `json:"roomId"`
	ButtonDescriptor
}

// ReadStatusPayload announces a watermark advance to the counterpart side.
type ReadStatusPayload struct {
	RoomCode    RoomCode   `json:"roomCode"`
	Reader      ReaderRole `json:"reader"`
	LastReadSeq int64      `json:"lastReadSeq"`
	MemberID    int64      `json:"memberId"`
}

// UnreadCountPayload pushes a viewer's fresh per-room unread count.
type UnreadCountPayload struct {
	RoomCode RoomCode   `json:"roomCode"`
	Reader   ReaderRole `json:"reader"`
	Count    int64      `json:"count"`
}

// BadgeCountPayload pushes a member's cross-room unread total, outside any
// room topic.
type BadgeCountPayload struct {
	MemberID int64 `json:"memberId"`
	Total    int64 `json:"total"`
}

// HandoffRequestPayload alerts platform admins that a user wants a human.
type HandoffRequestPayload struct {
	RoomCode    RoomCode  `json:"roomCode"`
	MemberID    int64     `json:"memberId"`
	MemberName  string    `json:"memberName"`
	RequestedAt time.Time `json:"requestedAt"`
}

// AdminAssignmentPayload announces who now holds the room.
type AdminAssignmentPayload struct {
	RoomCode         RoomCode `json:"roomCode"`
	AdminCode        string   `json:"adminCode"`
	AdminDisplayName string   `json:"adminDisplayName"`
}

// AdminReleasedPayload is the batched expo sweep notification: one envelope
// per exhibition listing every released room.
type AdminReleasedPayload struct {
	ExpoID    int64      `json:"expoId"`
	RoomCodes []RoomCode `json:"roomCodes"`
}
