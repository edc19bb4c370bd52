package usecase

import (
	"context"
	"fmt"
	"log"
	"time"

	ai "github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/application/ai/port"
	chat "github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/application/domain"
	repository "github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/persistence/repository/port"
	directory "github.com/MYCE-Refactoring/myce-chat/internal/pkg/directory/port"

	cache "github.com/MYCE-Refactoring/myce-chat/internal/infrastructure/cache/port"
)

const summaryHistoryLimit = 20

// AcceptHandoffInput is an admin taking a waiting room.
type AcceptHandoffInput struct {
	RoomCode string
	Viewer   chat.Viewer
}

// AcceptHandoffUseCase resolves the race for a waiting room. Exactly one
// accepting admin can win: the assignment is one atomic conditional write and
// every loser gets ErrAccessDenied with the room untouched.
//
// The slow assistant summary runs strictly after the assignment and state flip
// are committed, so a hung summary call can never wedge the room in
// WAITING_FOR_ADMIN.
type AcceptHandoffUseCase struct {
	Rooms     repository.RoomRepository
	Messages  repository.MessageRepository
	Seq       repository.SequenceAllocator
	Cache     cache.CounterCache
	Broadcast Broadcaster
	AI        ai.TextService
	Directory directory.Directory
}

func NewAcceptHandoffUseCase(
	rooms repository.RoomRepository,
	messages repository.MessageRepository,
	seq repository.SequenceAllocator,
	counters cache.CounterCache,
	broadcast Broadcaster,
	assistant ai.TextService,
	dir directory.Directory,
) *AcceptHandoffUseCase {
	return &AcceptHandoffUseCase{
		Rooms:     rooms,
		Messages:  messages,
		Seq:       seq,
		Cache:     counters,
		Broadcast: broadcast,
		AI:        assistant,
		Directory: dir,
	}
}

// Execute takes the room for the accepting admin.
func (uc *AcceptHandoffUseCase) Execute(ctx context.Context, in AcceptHandoffInput) (*chat.RoomStateInfo, error) {
	code, _, _, err := chat.ParseRoomCode(in.RoomCode)
	if err != nil {
		return nil, err
	}
	if !in.Viewer.Role.IsAdminRole() || in.Viewer.AdminCode == "" {
		return nil, fmt.Errorf("%w: only admins can accept a handoff", chat.ErrAccessDenied)
	}
	if code.IsPlatform() && in.Viewer.Role != chat.RolePlatformAdmin {
		return nil, fmt.Errorf("%w: platform rooms are handled by platform admins", chat.ErrAccessDenied)
	}

	room, err := uc.Rooms.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	to, err := chat.NextState(room.State, chat.EventAcceptHandoff)
	if err != nil {
		return nil, fmt.Errorf("%w: room %s is not waiting for an admin", chat.ErrInvalidState, code)
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
	room.HandoffRequestedAt = time.Time{}

	if err := uc.Cache.InvalidateRoom(ctx, string(code)); err != nil {
		log.Printf("[chat] invalidate cache for %s: %v", code, err)
	}

	// The join notice goes out first so subscribers see the agent introduce
	// themselves before the assignment and button flip.
	uc.announceJoin(ctx, room, in.Viewer.AdminCode, displayName)

	info := room.StateInfo(chat.ReasonHandoffAccepted)
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

// announceJoin persists the join notice with an assistant-built summary of
// the conversation so far. Summary failure degrades to a fixed line; the
// takeover itself already happened.
func (uc *AcceptHandoffUseCase) announceJoin(ctx context.Context, room *chat.Room, adminCode, displayName string) {
	summary := textSummaryMissing
	history, err := uc.Messages.RecentHistory(ctx, room.RoomCode, summaryHistoryLimit)
	if err != nil {
		log.Printf("[chat] load history for %s summary: %v", room.RoomCode, err)
	} else if len(history) > 0 {
		if text, err := uc.AI.Summarize(ctx, history); err != nil {
			log.Printf("[chat] summarize %s: %v", room.RoomCode, err)
		} else {
			summary = textSummaryHeader + text
		}
	}

	seq, err := uc.Seq.Next(ctx)
	if err != nil {
		log.Printf("[chat] allocate seq for join notice in %s: %v", room.RoomCode, err)
		return
	}
	notice := chat.NewSystemMessage(room.RoomCode, seq, textAdminJoined(displayName)+" "+summary)
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
