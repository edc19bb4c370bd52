package usecase

import (
	"context"
	"fmt"
	"log"

	chat "github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/application/domain"
	repository "github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/persistence/repository/port"
)

// CancelHandoffInput withdraws a pending handoff request.
type CancelHandoffInput struct {
	RoomCode string
	Viewer   chat.Viewer
}

// CancelHandoffUseCase returns a waiting room to the assistant before any
// admin has accepted it.
type CancelHandoffUseCase struct {
	Rooms     repository.RoomRepository
	Messages  repository.MessageRepository
	Seq       repository.SequenceAllocator
	Broadcast Broadcaster
}

func NewCancelHandoffUseCase(rooms repository.RoomRepository, messages repository.MessageRepository, seq repository.SequenceAllocator, broadcast Broadcaster) *CancelHandoffUseCase {
	return &CancelHandoffUseCase{Rooms: rooms, Messages: messages, Seq: seq, Broadcast: broadcast}
}

// Execute cancels the pending request. An admin who accepted in the meantime
// wins: the cancel then fails with ErrInvalidState and changes nothing.
func (uc *CancelHandoffUseCase) Execute(ctx context.Context, in CancelHandoffInput) (*chat.RoomStateInfo, error) {
	code, _, memberID, err := chat.ParseRoomCode(in.RoomCode)
	if err != nil {
		return nil, err
	}
	if in.Viewer.MemberID != memberID {
		return nil, fmt.Errorf("%w: only the room participant can cancel a handoff", chat.ErrAccessDenied)
	}

	room, err := uc.Rooms.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	to, err := chat.NextState(room.State, chat.EventCancelHandoff)
	if err != nil {
		return nil, fmt.Errorf("%w: no pending handoff to cancel in %s", chat.ErrInvalidState, room.State)
	}

	moved, err := uc.Rooms.TransitionState(ctx, code, room.State, to, nil)
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, fmt.Errorf("%w: room %s changed state concurrently", chat.ErrInvalidState, code)
	}
	room.State = to

	uc.announceCancelled(ctx, room)

	info := room.StateInfo(chat.ReasonHandoffCancelled)
	uc.Broadcast.Publish(code, chat.Envelope{
		Type:      chat.BroadcastButtonState,
		Payload:   chat.ButtonStatePayload{RoomCode: code, ButtonDescriptor: chat.ButtonFor(room.State)},
		RoomState: &info,
	})
	return &info, nil
}

func (uc *CancelHandoffUseCase) announceCancelled(ctx context.Context, room *chat.Room) {
	seq, err := uc.Seq.Next(ctx)
	if err != nil {
		log.Printf("[chat] allocate seq for cancel notice in %s: %v", room.RoomCode, err)
		return
	}
	notice := chat.NewAIMessage(room.RoomCode, seq, textHandoffCancelled)
	if err := uc.Messages.Insert(ctx, notice); err != nil {
		log.Printf("[chat] persist cancel notice for %s: %v", room.RoomCode, err)
		return
	}
	uc.Broadcast.Publish(room.RoomCode, chat.Envelope{
		Type:    chat.BroadcastAIMessage,
		Payload: chat.PayloadFor(notice),
	})
}
