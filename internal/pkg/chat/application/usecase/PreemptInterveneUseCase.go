package usecase

import (
	"context"
	"fmt"
	"log"

	chat "github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/application/domain"
	repository "github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/persistence/repository/port"
	directory "github.com/MYCE-Refactoring/myce-chat/internal/pkg/directory/port"

	cache "github.com/MYCE-Refactoring/myce-chat/internal/infrastructure/cache/port"
)

// PreemptInterveneInput is an admin stepping into an assistant-owned room
// without a pending handoff request.
type PreemptInterveneInput struct {
	RoomCode string
	Viewer   chat.Viewer
}

// PreemptInterveneUseCase lets an admin take over a room the assistant still
// owns. The same atomic assignment protects it: two admins preempting at once
// resolve to one winner.
type PreemptInterveneUseCase struct {
	Rooms     repository.RoomRepository
	Messages  repository.MessageRepository
	Seq       repository.SequenceAllocator
	Cache     cache.CounterCache
	Broadcast Broadcaster
	Directory directory.Directory
}

func NewPreemptInterveneUseCase(
	rooms repository.RoomRepository,
	messages repository.MessageRepository,
	seq repository.SequenceAllocator,
	counters cache.CounterCache,
	broadcast Broadcaster,
	dir directory.Directory,
) *PreemptInterveneUseCase {
	return &PreemptInterveneUseCase{
		Rooms:     rooms,
		Messages:  messages,
		Seq:       seq,
		Cache:     counters,
		Broadcast: broadcast,
		Directory: dir,
	}
}

// Execute takes the room for the intervening admin.
func (uc *PreemptInterveneUseCase) Execute(ctx context.Context, in PreemptInterveneInput) (*chat.RoomStateInfo, error) {
	code, _, _, err := chat.ParseRoomCode(in.RoomCode)
	if err != nil {
		return nil, err
	}
	if !in.Viewer.Role.IsAdminRole() || in.Viewer.AdminCode == "" {
		return nil, fmt.Errorf("%w: only admins can intervene", chat.ErrAccessDenied)
	}
	if code.IsPlatform() && in.Viewer.Role != chat.RolePlatformAdmin {
		return nil, fmt.Errorf("%w: platform rooms are handled by platform admins", chat.ErrAccessDenied)
	}

	room, err := uc.Rooms.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	to, err := chat.NextState(room.State, chat.EventPreemptAdmin)
	if err != nil {
		return nil, fmt.Errorf("%w: room %s is not owned by the assistant", chat.ErrInvalidState, code)
	}

	displayName := in.Viewer.DisplayName
	if displayName == "" {
		if displayName, err = uc.Directory.AdminDisplayName(ctx, in.Viewer.AdminCode); err != nil {
			return nil, err
		}
	}

	won, err := uc.Rooms.AssignAdmin(ctx, code, in.Viewer.AdminCode, displayName)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, fmt.Errorf("%w: room %s is already held by another admin", chat.ErrAccessDenied, code)
	}

	moved, err := uc.Rooms.TransitionState(ctx, code, room.State, to, nil)
	if err == nil && !moved {
		err = fmt.Errorf("%w: room %s changed state concurrently", chat.ErrInvalidState, code)
	}
	if err != nil {
		if relErr := uc.Rooms.ReleaseAdmin(ctx, code, room.State); relErr != nil {
			log.Printf("[chat] roll back assignment for %s: %v", code, relErr)
		}
		return nil, err
	}
	room.State = to
	room.AssignedAdmin = in.Viewer.AdminCode
	room.AdminDisplayName = displayName

	if err := uc.Cache.InvalidateRoom(ctx, string(code)); err != nil {
		log.Printf("[chat] invalidate cache for %s: %v", code, err)
	}

	uc.announceJoin(ctx, room, in.Viewer.AdminCode, displayName)

	info := room.StateInfo(chat.ReasonPreempt)
	uc.Broadcast.Publish(code, chat.Envelope{
		Type: chat.BroadcastAdminAssignment,
		Payload: chat.AdminAssignmentPayload{
			RoomCode:         code,
			AdminCode:        in.Viewer.AdminCode,
			AdminDisplayName: displayName,
		},
		RoomState: &info,
	})
	uc.Broadcast.Publish(code, chat.Envelope{
		Type:      chat.BroadcastButtonState,
		Payload:   chat.ButtonStatePayload{RoomCode: code, ButtonDescriptor: chat.ButtonFor(room.State)},
		RoomState: &info,
	})
	return &info, nil
}

func (uc *PreemptInterveneUseCase) announceJoin(ctx context.Context, room *chat.Room, adminCode, displayName string) {
	seq, err := uc.Seq.Next(ctx)
	if err != nil {
		log.Printf("[chat] allocate seq for join notice in %s: %v", room.RoomCode, err)
		return
	}
	notice := chat.NewSystemMessage(room.RoomCode, seq, textAdminJoined(displayName))
	if err := uc.Messages.Insert(ctx, notice); err != nil {
		log.Printf("[chat] persist join notice for %s: %v", room.RoomCode, err)
		return
	}

	payload := chat.PayloadFor(notice)
	payload.AdminCode = adminCode
	payload.AdminDisplayName = displayName
	uc.Broadcast.Publish(room.RoomCode, chat.Envelope{
		Type:    chat.BroadcastSystemMessage,
		Payload: payload,
	})
}
