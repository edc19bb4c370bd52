package usecase

import (
	"context"
	"log"
	"time"

	chat "github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/application/domain"
	repository "github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/persistence/repository/port"
)

// SweepIdleAdminsUseCase reclaims rooms whose assigned admin went quiet.
// Platform rooms fall back to the assistant with an audible takeover notice;
// expo rooms re-queue silently for the next admin, batched into one
// notification per exhibition.
//
// The sweep is idempotent: a room released by one pass no longer matches the
// idle query, so overlapping runs converge instead of double-releasing.
type SweepIdleAdminsUseCase struct {
	Rooms     repository.RoomRepository
	Messages  repository.MessageRepository
	Seq       repository.SequenceAllocator
	Broadcast Broadcaster
	// IdleAfter is how long an assigned admin may stay inactive before the
	// room is reclaimed.
	IdleAfter time.Duration
}

func NewSweepIdleAdminsUseCase(rooms repository.RoomRepository, messages repository.MessageRepository, seq repository.SequenceAllocator, broadcast Broadcaster, idleAfter time.Duration) *SweepIdleAdminsUseCase {
	return &SweepIdleAdminsUseCase{Rooms: rooms, Messages: messages, Seq: seq, Broadcast: broadcast, IdleAfter: idleAfter}
}

// Execute runs one sweep pass and returns how many rooms were released.
// Per-room failures are logged and skipped; one bad room never stalls the
// batch.
func (uc *SweepIdleAdminsUseCase) Execute(ctx context.Context) (released int, err error) {
	threshold := time.Now().Add(-uc.IdleAfter)
	rooms, err := uc.Rooms.FindIdleAssigned(ctx, threshold)
	if err != nil {
		return 0, err
	}

	releasedByExpo := make(map[int64][]chat.RoomCode)
	for _, room := range rooms {
		if room.IsPlatform() {
			if uc.reclaimForAssistant(ctx, room) {
				released++
			}
			continue
		}
		if uc.requeueExpoRoom(ctx, room) {
			releasedByExpo[room.ExpoID] = append(releasedByExpo[room.ExpoID], room.RoomCode)
			released++
		}
	}

	for expoID, codes := range releasedByExpo {
		uc.Broadcast.NotifyAdmins(chat.Envelope{
			Type:    chat.BroadcastAdminReleased,
			Payload: chat.AdminReleasedPayload{ExpoID: expoID, RoomCodes: codes},
		})
	}
	return released, nil
}

func (uc *SweepIdleAdminsUseCase) reclaimForAssistant(ctx context.Context, room *chat.Room) bool {
	displayName := room.AdminDisplayName
	if err := uc.Rooms.ReleaseAdmin(ctx, room.RoomCode, chat.StateAIActive); err != nil {
		log.Printf("[sweep] release %s: %v", room.RoomCode, err)
		return false
	}
	room.State = chat.StateAIActive
	room.AssignedAdmin = ""
	room.AdminDisplayName = ""

	info := room.StateInfo(chat.ReasonAdminTimeout)

	seq, err := uc.Seq.Next(ctx)
	if err != nil {
		log.Printf("[sweep] allocate seq for takeover notice in %s: %v", room.RoomCode, err)
	} else {
		notice := chat.NewAIMessage(room.RoomCode, seq, textTimeoutTakeover(displayName))
		if err := uc.Messages.Insert(ctx, notice); err != nil {
			log.Printf("[sweep] persist takeover notice for %s: %v", room.RoomCode, err)
		} else {
			uc.Broadcast.Publish(room.RoomCode, chat.Envelope{
				Type:      chat.BroadcastTimeoutTakeover,
				Payload:   chat.PayloadFor(notice),
				RoomState: &info,
			})
		}
	}

	uc.Broadcast.Publish(room.RoomCode, chat.Envelope{
		Type:      chat.BroadcastButtonState,
		Payload:   chat.ButtonStatePayload{RoomCode: room.RoomCode, ButtonDescriptor: chat.ButtonFor(room.State)},
		RoomState: &info,
	})
	return true
}

func (uc *SweepIdleAdminsUseCase) requeueExpoRoom(ctx context.Context, room *chat.Room) bool {
	if err := uc.Rooms.ReleaseAdmin(ctx, room.RoomCode, chat.StateWaitingForAdmin); err != nil {
		log.Printf("[sweep] release %s: %v", room.RoomCode, err)
		return false
	}
	room.State = chat.StateWaitingForAdmin
	room.AssignedAdmin = ""
	room.AdminDisplayName = ""

	info := room.StateInfo(chat.ReasonAdminTimeout)
	uc.Broadcast.Publish(room.RoomCode, chat.Envelope{
		Type:      chat.BroadcastButtonState,
		Payload:   chat.ButtonStatePayload{RoomCode: room.RoomCode, ButtonDescriptor: chat.ButtonFor(room.State)},
		RoomState: &info,
	})
	return true
}
