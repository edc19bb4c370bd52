package usecase

import (
	"context"
	"errors"
	"log"

	chat "github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/application/domain"
	repository "github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/persistence/repository/port"

	cache "github.com/MYCE-Refactoring/myce-chat/internal/infrastructure/cache/port"
)

// GetBadgeCountInput asks for the viewer's cross-room unread total.
type GetBadgeCountInput struct {
	Viewer chat.Viewer
}

// GetBadgeCountOutput is the badge total plus the per-room breakdown behind it.
type GetBadgeCountOutput struct {
	Total      int64            `json:"total"`
	RoomCounts map[string]int64 `json:"roomCounts,omitempty"`
}

// GetBadgeCountUseCase serves the member's badge: the unread total across all
// of their active rooms. The cached aggregate answers first; a miss or outage
// falls through to the durable per-room counts, which then rebuild the cache.
type GetBadgeCountUseCase struct {
	Rooms    repository.RoomRepository
	Messages repository.MessageRepository
	Cache    cache.CounterCache
}

func NewGetBadgeCountUseCase(rooms repository.RoomRepository, messages repository.MessageRepository, counters cache.CounterCache) *GetBadgeCountUseCase {
	return &GetBadgeCountUseCase{Rooms: rooms, Messages: messages, Cache: counters}
}

// Execute returns the viewer's unread total over the rooms they participate in.
func (uc *GetBadgeCountUseCase) Execute(ctx context.Context, in GetBadgeCountInput) (*GetBadgeCountOutput, error) {
	viewerID := in.Viewer.MemberID

	badge, badgeErr := uc.Cache.GetBadge(ctx, viewerID)
	if badgeErr == nil && badge == 0 {
		return &GetBadgeCountOutput{}, nil
	}
	if badgeErr != nil && !errors.Is(badgeErr, cache.ErrMiss) {
		log.Printf("[chat] read badge cache for viewer %d: %v", viewerID, badgeErr)
	}

	rooms, err := uc.Rooms.FindActiveByMember(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	if len(rooms) == 0 {
		return &GetBadgeCountOutput{}, nil
	}

	out := &GetBadgeCountOutput{RoomCounts: make(map[string]int64, len(rooms))}
	codes := make([]string, 0, len(rooms))
	for _, room := range rooms {
		codes = append(codes, string(room.RoomCode))
		count, err := uc.Cache.GetUnread(ctx, string(room.RoomCode), viewerID)
		if err != nil {
			if !errors.Is(err, cache.ErrMiss) {
				log.Printf("[chat] read unread cache for %s viewer %d: %v", room.RoomCode, viewerID, err)
			}
			count, err = uc.Messages.CountBySenderAfter(ctx, room.RoomCode,
				chat.CounterpartSender(room.RoomCode, chat.ReaderUser),
				room.EffectiveWatermark(chat.ReaderUser))
			if err != nil {
				return nil, err
			}
			if err := uc.Cache.SetUnread(ctx, string(room.RoomCode), viewerID, count); err != nil {
				log.Printf("[chat] repopulate unread cache for %s viewer %d: %v", room.RoomCode, viewerID, err)
			}
		}
		out.RoomCounts[string(room.RoomCode)] = count
		out.Total += count
	}

	if badgeErr == nil {
		// Serve the cached aggregate; the breakdown is advisory detail.
		out.Total = badge
		return out, nil
	}
	if _, err := uc.Cache.RecalculateBadge(ctx, viewerID, codes); err != nil {
		log.Printf("[chat] rebuild badge for viewer %d: %v", viewerID, err)
	}
	return out, nil
}
