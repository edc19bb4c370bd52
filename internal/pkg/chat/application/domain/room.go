package chat

import (
	"time"
	"unicode/utf8"
)

const previewLimit = 200

// Room is a persistent conversation between one end user and either the AI
// assistant or a human admin. Rooms are created on first contact and never
// hard-deleted; IsActive marks archival without losing history.
type Room struct {
	RoomCode RoomCode
	MemberID int64
	// MemberName caches the participant display name for previews.
	MemberName string
	// ExpoID is 0 for platform rooms.
	ExpoID int64
	// RoomTitle caches the exhibition title for expo rooms.
	RoomTitle string

	State RoomState

	// AssignedAdmin identifies the admin currently holding the room; empty
	// means no admin. ADMIN_ACTIVE implies non-empty, the other two states
	// imply empty.
	AssignedAdmin       string
	AdminDisplayName    string
	LastAdminActivityAt time.Time
	// HandoffRequestedAt is set only while WAITING_FOR_ADMIN.
	HandoffRequestedAt time.Time

	// Watermarks holds, per reader role, the seq of the last message that
	// role has consumed. Values only grow.
	Watermarks map[ReaderRole]int64

	LastMessagePreview string
	LastMessageAt      time.Time
	IsActive           bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewRoom initializes a room in its first-contact state. Platform rooms start
// with the AI answering; expo rooms have no AI and wait for an admin.
func NewRoom(code RoomCode, memberID int64, memberName string, expoID int64, roomTitle string) *Room {
	state := StateAIActive
	if code.IsExpo() {
		state = StateWaitingForAdmin
	}
	now := time.Now()
	return &Room{
		RoomCode:   code,
		MemberID:   memberID,
		MemberName: memberName,
		ExpoID:     expoID,
		RoomTitle:  roomTitle,
		State:      state,
		Watermarks: make(map[ReaderRole]int64),
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (r *Room) IsPlatform() bool { return r.RoomCode.IsPlatform() }

func (r *Room) HasAssignedAdmin() bool { return r.AssignedAdmin != "" }

// HoldsAssignment reports whether adminCode currently owns the room.
func (r *Room) HoldsAssignment(adminCode string) bool {
	return r.AssignedAdmin != "" && r.AssignedAdmin == adminCode
}

// Watermark returns the reader's raw watermark, 0 when the role has read
// nothing yet.
func (r *Room) Watermark(reader ReaderRole) int64 {
	if r.Watermarks == nil {
		return 0
	}
	return r.Watermarks[reader]
}

// EffectiveWatermark is the watermark unread counting compares against. In
// platform rooms the AI stands in for a human admin, so the admin-side view
// merges both pointers: a user message is read once either side passed it.
func (r *Room) EffectiveWatermark(reader ReaderRole) int64 {
	wm := r.Watermark(reader)
	if reader == ReaderAdmin && r.IsPlatform() {
		if ai := r.Watermark(ReaderAI); ai > wm {
			wm = ai
		}
	}
	return wm
}

// AdvanceWatermark raises the reader's watermark to seq if it is ahead and
// returns the previous value. Watermarks never regress.
func (r *Room) AdvanceWatermark(reader ReaderRole, seq int64) (prev int64) {
	if r.Watermarks == nil {
		r.Watermarks = make(map[ReaderRole]int64)
	}
	prev = r.Watermarks[reader]
	if seq > prev {
		r.Watermarks[reader] = seq
		r.UpdatedAt = time.Now()
	}
	return prev
}

// RecordLastMessage refreshes the room preview after a message lands.
func (r *Room) RecordLastMessage(content string, at time.Time) {
	r.LastMessagePreview = truncatePreview(content)
	r.LastMessageAt = at
	r.UpdatedAt = time.Now()
}

func truncatePreview(content string) string {
	if utf8.RuneCountInString(content) <= previewLimit {
		return content
	}
	runes := []rune(content)
	return string(runes[:previewLimit-3]) + "..."
}

// RoomStateInfo travels with broadcast envelopes so clients can re-render the
// handoff button without a second fetch.
type RoomStateInfo struct {
	State            RoomState        `json:"state"`
	Reason           TransitionReason `json:"transitionReason"`
	OccurredAt       time.Time        `json:"occurredAt"`
	AdminDisplayName string           `json:"adminDisplayName,omitempty"`
}

// StateInfo snapshots the room state for a broadcast.
func (r *Room) StateInfo(reason TransitionReason) RoomStateInfo {
	return RoomStateInfo{
		State:            r.State,
		Reason:           reason,
		OccurredAt:       time.Now(),
		AdminDisplayName: r.AdminDisplayName,
	}
}
