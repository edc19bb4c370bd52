package usecase

import (
	"context"
	"fmt"
	"log"

	chat "github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/application/domain"
	repository "github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/persistence/repository/port"
)

// ReturnToAIInput hands an admin's room back to the assistant.
type ReturnToAIInput struct {
	RoomCode string
	Viewer   chat.Viewer
}

// ReturnToAIUseCase releases an admin-held room back to the assistant. Only
// the holder can hand back; any other admin gets ErrAccessDenied.
type ReturnToAIUseCase struct {
	Rooms     repository.RoomRepository
	Messages  repository.MessageRepository
	Seq       repository.SequenceAllocator
	Broadcast Broadcaster
}

func NewReturnToAIUseCase(rooms repository.RoomRepository, messages repository.MessageRepository, seq repository.SequenceAllocator, broadcast Broadcaster) *ReturnToAIUseCase {
	return &ReturnToAIUseCase{Rooms: rooms, Messages: messages, Seq: seq, Broadcast: broadcast}
}

// Execute hands the room back.
func (uc *ReturnToAIUseCase) Execute(ctx context.Context, in ReturnToAIInput) (*chat.RoomStateInfo, error) {
	code, _, _, err := chat.ParseRoomCode(in.RoomCode)
	if err != nil {
		return nil, err
	}

	room, err := uc.Rooms.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	to, err := chat.NextState(room.State, chat.EventReturnToAI)
	if err != nil {
		return nil, fmt.Errorf("%w: room %s has no admin to hand back from", chat.ErrInvalidState, code)
	}
	if room.RoomCode.IsExpo() {
		// No assistant in expo rooms: a handback re-queues the room.
		to = chat.StateWaitingForAdmin
	}
	if !room.HoldsAssignment(in.Viewer.AdminCode) {
		return nil, fmt.Errorf("%w: room %s is held by a different admin", chat.ErrAccessDenied, code)
	}

	displayName := room.AdminDisplayName
	if err := uc.Rooms.ReleaseAdmin(ctx, code, to); err != nil {
		return nil, err
	}
	room.State = to
	room.AssignedAdmin = ""
	room.AdminDisplayName = ""

	uc.announceHandback(ctx, room, displayName)

	info := room.StateInfo(chat.ReasonHandoffToAI)
	uc.Broadcast.Publish(code, chat.Envelope{
		Type:      chat.BroadcastButtonState,
		Payload:   chat.ButtonStatePayload{RoomCode: code, ButtonDescriptor: chat.ButtonFor(room.State)},
		RoomState: &info,
	})
	return &info, nil
}

// announceHandback drops the departure notice and the assistant's resume line.
func (uc *ReturnToAIUseCase) announceHandback(ctx context.Context, room *chat.Room, displayName string) {
	seq, err := uc.Seq.Next(ctx)
	if err != nil {
		log.Printf("[chat] allocate seq for handback notice in %s: %v", room.RoomCode, err)
		return
	}
	left := chat.NewSystemMessage(room.RoomCode, seq, textAdminLeft(displayName))
	if err := uc.Messages.Insert(ctx, left); err != nil {
		log.Printf("[chat] persist handback notice for %s: %v", room.RoomCode, err)
		return
	}
	uc.Broadcast.Publish(room.RoomCode, chat.Envelope{
		Type:    chat.BroadcastSystemMessage,
		Payload: chat.PayloadFor(left),
	})

	if !room.IsPlatform() {
		return
	}
	seq, err = uc.Seq.Next(ctx)
	if err != nil {
		log.Printf("[chat] allocate seq for resume notice in %s: %v", room.RoomCode, err)
		return
	}
	resume := chat.NewAIMessage(room.RoomCode, seq, textAIResumed)
	if err := uc.Messages.Insert(ctx, resume); err != nil {
		log.Printf("[chat] persist resume notice for %s: %v", room.RoomCode, err)
		return
	}
	uc.Broadcast.Publish(room.RoomCode, chat.Envelope{
		Type:    chat.BroadcastAIMessage,
		Payload: chat.PayloadFor(resume),
	})
}
