package usecase

import (
	"context"
	"fmt"
	"log"
	"time"

	chat "github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/application/domain"
	repository "github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/persistence/repository/port"
)

// RequestHandoffInput asks for a human agent in the viewer's own room.
type RequestHandoffInput struct {
	RoomCode string
	Viewer   chat.Viewer
}

// RequestHandoffUseCase moves an assistant-owned room into the waiting queue
// and alerts the platform admin feed.
type RequestHandoffUseCase struct {
	Rooms     repository.RoomRepository
	Messages  repository.MessageRepository
	Seq       repository.SequenceAllocator
	Broadcast Broadcaster
}

func NewRequestHandoffUseCase(rooms repository.RoomRepository, messages repository.MessageRepository, seq repository.SequenceAllocator, broadcast Broadcaster) *RequestHandoffUseCase {
	return &RequestHandoffUseCase{Rooms: rooms, Messages: messages, Seq: seq, Broadcast: broadcast}
}

// Execute requests the handoff. Only the room participant may ask, and only
// while the assistant owns the room.
func (uc *RequestHandoffUseCase) Execute(ctx context.Context, in RequestHandoffInput) (*chat.RoomStateInfo, error) {
	code, _, memberID, err := chat.ParseRoomCode(in.RoomCode)
	if err != nil {
		return nil, err
	}
	if in.Viewer.MemberID != memberID {
		return nil, fmt.Errorf("%w: only the room participant can request a handoff", chat.ErrAccessDenied)
	}

	room, err := uc.Rooms.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	to, err := chat.NextState(room.State, chat.EventRequestHandoff)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot request a handoff from %s", chat.ErrInvalidState, room.State)
	}

	now := time.Now()
	moved, err := uc.Rooms.TransitionState(ctx, code, room.State, to, &now)
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, fmt.Errorf("%w: room %s changed state concurrently", chat.ErrInvalidState, code)
	}
	room.State = to
	room.HandoffRequestedAt = now

	uc.announceInvite(ctx, room)

	if room.IsPlatform() {
		uc.Broadcast.NotifyAdmins(chat.Envelope{
			Type: chat.BroadcastPlatformHandoff,
			Payload: chat.HandoffRequestPayload{
				RoomCode:    code,
				MemberID:    room.MemberID,
				MemberName:  room.MemberName,
				RequestedAt: now,
			},
		})
	}

	info := room.StateInfo(chat.ReasonHandoffRequest)
	uc.Broadcast.Publish(code, chat.Envelope{
		Type:      chat.BroadcastButtonState,
		Payload:   chat.ButtonStatePayload{RoomCode: code, ButtonDescriptor: chat.ButtonFor(room.State)},
		RoomState: &info,
	})
	return &info, nil
}

// announceInvite drops the assistant's "an agent is on the way" line into the
// room. The transition already happened; a failure here only loses the notice.
func (uc *RequestHandoffUseCase) announceInvite(ctx context.Context, room *chat.Room) {
	seq, err := uc.Seq.Next(ctx)
	if err != nil {
		log.Printf("[chat] allocate seq for handoff notice in %s: %v", room.RoomCode, err)
		return
	}
	notice := chat.NewAIMessage(room.RoomCode, seq, textHandoffInvite)
	if err := uc.Messages.Insert(ctx, notice); err != nil {
		log.Printf("[chat] persist handoff notice for %s: %v", room.RoomCode, err)
		return
	}
	uc.Broadcast.Publish(room.RoomCode, chat.Envelope{
		Type:    chat.BroadcastAIMessage,
		Payload: chat.PayloadFor(notice),
	})
}
