package repository

import (
	"context"
	"time"

	chat "github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/application/domain"
)

// RoomRepository persists rooms. Implementations must resolve the admin
// assignment with a single atomic conditional write; a read-modify-write in
// application memory is not acceptable there.
type RoomRepository interface {
	// FindByCode loads a room, chat.ErrRoomNotFound when absent.
	FindByCode(ctx context.Context, code chat.RoomCode) (*chat.Room, error)

	// Create inserts a first-contact room.
	Create(ctx context.Context, room *chat.Room) error

	// TransitionState moves the room from one state to another only if it is
	// still in the expected state, returning false when the precondition no
	// longer holds. handoffAt sets handoff_requested_at when non-nil and
	// clears it when nil.
	TransitionState(ctx context.Context, code chat.RoomCode, from, to chat.RoomState, handoffAt *time.Time) (bool, error)

	// AssignAdmin atomically takes the room for adminCode: it succeeds only
	// while the room has no admin or the same admin re-asserts (an activity
	// heartbeat). It returns false on collision with a different holder.
	AssignAdmin(ctx context.Context, code chat.RoomCode, adminCode, displayName string) (bool, error)

	// TouchAdminActivity refreshes last_admin_activity_at for the holder.
	TouchAdminActivity(ctx context.Context, code chat.RoomCode, adminCode string) error

	// ReleaseAdmin clears the assignment fields and settles the room in the
	// given state. It always succeeds on an existing room.
	ReleaseAdmin(ctx context.Context, code chat.RoomCode, to chat.RoomState) error

	// AdvanceWatermark raises a reader's watermark to seq if ahead, never
	// lowering it, and returns the previous value.
	AdvanceWatermark(ctx context.Context, code chat.RoomCode, reader chat.ReaderRole, seq int64) (prev int64, err error)

	// RecordLastMessage refreshes the room preview columns.
	RecordLastMessage(ctx context.Context, code chat.RoomCode, preview string, at time.Time) error

	// FindIdleAssigned lists rooms whose assigned admin has been inactive
	// since before the threshold.
	FindIdleAssigned(ctx context.Context, threshold time.Time) ([]*chat.Room, error)

	// FindActiveByMember lists the member's active rooms, most recently
	// messaged first, the durable basis for the cross-room unread total.
	FindActiveByMember(ctx context.Context, memberID int64) ([]*chat.Room, error)

	// SetActive toggles the soft-archive flag, independent of room state.
	SetActive(ctx context.Context, code chat.RoomCode, active bool) error
}

// MessageRepository is the append-only message log keyed by room and seq.
type MessageRepository interface {
	// Insert appends a message. Messages are immutable afterwards except for
	// the unread marker.
	Insert(ctx context.Context, m *chat.Message) error

	// ListByRoom pages messages newest-first and reports the room total.
	ListByRoom(ctx context.Context, code chat.RoomCode, page, size int) ([]chat.Message, int64, error)

	// RecentHistory returns up to limit messages in chronological order,
	// used to build AI summaries.
	RecentHistory(ctx context.Context, code chat.RoomCode, limit int) ([]chat.Message, error)

	// CountBySenderAfter counts messages from one sender category past a seq
	// threshold, the ground truth behind unread counts.
	CountBySenderAfter(ctx context.Context, code chat.RoomCode, sender chat.SenderRole, afterSeq int64) (int64, error)

	// DecrementUnreadMarkers decrements the durable unread marker, toward
	// zero and never below, on messages in (fromSeq, uptoSeq] not authored
	// by readerSender. Returns how many rows changed.
	DecrementUnreadMarkers(ctx context.Context, code chat.RoomCode, readerSender chat.SenderRole, fromSeq, uptoSeq int64) (int64, error)
}

// SequenceAllocator issues the global message ordering key: strictly
// increasing, never reused, durable across restarts. Allocation failure is
// fatal to a send; no message exists without a seq.
type SequenceAllocator interface {
	Next(ctx context.Context) (int64, error)
}
