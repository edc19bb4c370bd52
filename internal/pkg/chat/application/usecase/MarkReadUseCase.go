package usecase

import (
	"context"
	"fmt"
	"log"

	chat "github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/application/domain"
	repository "github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/persistence/repository/port"

	cache "github.com/MYCE-Refactoring/myce-chat/internal/infrastructure/cache/port"
)

// MarkReadInput advances the viewer's read position in a room.
type MarkReadInput struct {
	RoomCode string
	Viewer   chat.Viewer
	// UptoSeq is the highest seq the client has rendered.
	UptoSeq int64
}

// MarkReadOutput reports the watermark move.
type MarkReadOutput struct {
	Reader      chat.ReaderRole
	PreviousSeq int64
	LastReadSeq int64
	// Advanced is false when the watermark already covered UptoSeq; the
	// call then changed nothing.
	Advanced bool
}

// MarkReadUseCase moves a read watermark forward and settles the durable
// unread markers behind it. Replays and out-of-order calls are no-ops, so the
// decrement runs at most once per message and reader side.
type MarkReadUseCase struct {
	Rooms     repository.RoomRepository
	Messages  repository.MessageRepository
	Cache     cache.CounterCache
	Broadcast Broadcaster
}

func NewMarkReadUseCase(rooms repository.RoomRepository, messages repository.MessageRepository, counters cache.CounterCache, broadcast Broadcaster) *MarkReadUseCase {
	return &MarkReadUseCase{Rooms: rooms, Messages: messages, Cache: counters, Broadcast: broadcast}
}

// Execute marks everything up to UptoSeq as read for the viewer's side.
func (uc *MarkReadUseCase) Execute(ctx context.Context, in MarkReadInput) (*MarkReadOutput, error) {
	code, _, memberID, err := chat.ParseRoomCode(in.RoomCode)
	if err != nil {
		return nil, err
	}
	if in.UptoSeq <= 0 {
		return nil, fmt.Errorf("lastReadSeq must be positive")
	}
	if in.Viewer.MemberID != memberID && !in.Viewer.Role.IsAdminRole() {
		return nil, fmt.Errorf("%w: room %s belongs to another member", chat.ErrAccessDenied, code)
	}

	reader := chat.ReaderRoleFor(code, in.Viewer)

	prev, err := uc.Rooms.AdvanceWatermark(ctx, code, reader, in.UptoSeq)
	if err != nil {
		return nil, err
	}

	out := &MarkReadOutput{Reader: reader, PreviousSeq: prev, LastReadSeq: in.UptoSeq, Advanced: in.UptoSeq > prev}
	if !out.Advanced {
		out.LastReadSeq = prev
		return out, nil
	}

	if _, err := uc.Messages.DecrementUnreadMarkers(ctx, code, chat.ReaderSenderRole(code, reader), prev, in.UptoSeq); err != nil {
		log.Printf("[chat] settle unread markers for %s: %v", code, err)
	}

	if reader == chat.ReaderAdmin {
		if err := uc.Rooms.TouchAdminActivity(ctx, code, in.Viewer.AdminCode); err != nil {
			log.Printf("[chat] touch admin activity for %s: %v", code, err)
		}
	}

	viewerID := in.Viewer.MemberID
	if reader == chat.ReaderAdmin {
		viewerID = cache.AdminGroupViewerID
	}
	uc.refreshCounters(ctx, code, viewerID)

	uc.Broadcast.Publish(code, chat.Envelope{
		Type: chat.BroadcastReadStatus,
		Payload: chat.ReadStatusPayload{
			RoomCode:    code,
			Reader:      reader,
			LastReadSeq: in.UptoSeq,
			MemberID:    in.Viewer.MemberID,
		},
	})
	uc.Broadcast.Publish(code, chat.Envelope{
		Type: chat.BroadcastUnreadCount,
		Payload: chat.UnreadCountPayload{
			RoomCode: code,
			Reader:   reader,
			Count:    0,
		},
	})
	return out, nil
}

// refreshCounters zeroes the room counter and rebuilds the cross-room badge.
// All advisory; failures only leave stale numbers until the next rebuild.
func (uc *MarkReadUseCase) refreshCounters(ctx context.Context, code chat.RoomCode, viewerID int64) {
	roomCode := string(code)
	if err := uc.Cache.ResetUnread(ctx, roomCode, viewerID); err != nil {
		log.Printf("[chat] reset unread for %s viewer %d: %v", roomCode, viewerID, err)
		return
	}
	rooms, err := uc.Cache.ActiveRooms(ctx, viewerID)
	if err != nil {
		log.Printf("[chat] list active rooms for viewer %d: %v", viewerID, err)
		return
	}
	if _, err := uc.Cache.RecalculateBadge(ctx, viewerID, rooms); err != nil {
		log.Printf("[chat] rebuild badge for viewer %d: %v", viewerID, err)
	}
}
