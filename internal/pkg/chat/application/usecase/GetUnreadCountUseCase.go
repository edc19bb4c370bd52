package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"

	chat "github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/application/domain"
	repository "github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/persistence/repository/port"

	cache "github.com/MYCE-Refactoring/myce-chat/internal/infrastructure/cache/port"
)

// GetUnreadCountInput asks for the viewer's unread count in one room.
type GetUnreadCountInput struct {
	RoomCode string
	Viewer   chat.Viewer
}

// GetUnreadCountUseCase serves unread counts cache-first. A miss or a cache
// transport failure falls through to the durable count, which then repopulates
// the cache.
type GetUnreadCountUseCase struct {
	Rooms    repository.RoomRepository
	Messages repository.MessageRepository
	Cache    cache.CounterCache
}

func NewGetUnreadCountUseCase(rooms repository.RoomRepository, messages repository.MessageRepository, counters cache.CounterCache) *GetUnreadCountUseCase {
	return &GetUnreadCountUseCase{Rooms: rooms, Messages: messages, Cache: counters}
}

// Execute returns how many counterpart messages the viewer has not read.
func (uc *GetUnreadCountUseCase) Execute(ctx context.Context, in GetUnreadCountInput) (int64, error) {
	code, _, memberID, err := chat.ParseRoomCode(in.RoomCode)
	if err != nil {
		return 0, err
	}
	if in.Viewer.MemberID != memberID && !in.Viewer.Role.IsAdminRole() {
		return 0, fmt.Errorf("%w: room %s belongs to another member", chat.ErrAccessDenied, code)
	}

	reader := chat.ReaderRoleFor(code, in.Viewer)
	viewerID := in.Viewer.MemberID
	if reader == chat.ReaderAdmin {
		viewerID = cache.AdminGroupViewerID
	}

	count, err := uc.Cache.GetUnread(ctx, string(code), viewerID)
	if err == nil {
		return count, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		log.Printf("[chat] read unread cache for %s viewer %d: %v", code, viewerID, err)
	}

	room, err := uc.Rooms.FindByCode(ctx, code)
	if err != nil {
		return 0, err
	}
	count, err = uc.Messages.CountBySenderAfter(ctx, code, chat.CounterpartSender(code, reader), room.EffectiveWatermark(reader))
	if err != nil {
		return 0, err
	}

	if err := uc.Cache.SetUnread(ctx, string(code), viewerID, count); err != nil {
		log.Printf("[chat] repopulate unread cache for %s viewer %d: %v", code, viewerID, err)
	}
	return count, nil
}
