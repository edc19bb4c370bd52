package usecase

import (
	"context"
	"fmt"

	chat "github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/application/domain"
	repository "github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/persistence/repository/port"
)

const (
	defaultPageSize = 30
	maxPageSize     = 100
)

// GetMessagesInput pages through a room's history, newest first.
type GetMessagesInput struct {
	RoomCode string
	Viewer   chat.Viewer
	Page     int
	Size     int
}

// GetMessagesOutput is one page of history plus the room total.
type GetMessagesOutput struct {
	Messages []chat.Message
	Total    int64
	Page     int
	Size     int
}

// GetMessagesUseCase serves paged room history to both sides of the room.
type GetMessagesUseCase struct {
	Rooms    repository.RoomRepository
	Messages repository.MessageRepository
}

func NewGetMessagesUseCase(rooms repository.RoomRepository, messages repository.MessageRepository) *GetMessagesUseCase {
	return &GetMessagesUseCase{Rooms: rooms, Messages: messages}
}

// Execute returns the requested page. Only the participant and admins may
// read a room's history.
func (uc *GetMessagesUseCase) Execute(ctx context.Context, in GetMessagesInput) (*GetMessagesOutput, error) {
	code, _, memberID, err := chat.ParseRoomCode(in.RoomCode)
	if err != nil {
		return nil, err
	}
	if in.Viewer.MemberID != memberID && !in.Viewer.Role.IsAdminRole() {
		return nil, fmt.Errorf("%w: room %s belongs to another member", chat.ErrAccessDenied, code)
	}

	if _, err := uc.Rooms.FindByCode(ctx, code); err != nil {
		return nil, err
	}

	page := in.Page
	if page < 0 {
		page = 0
	}
	size := in.Size
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	msgs, total, err := uc.Messages.ListByRoom(ctx, code, page, size)
	if err != nil {
		return nil, err
	}
	return &GetMessagesOutput{Messages: msgs, Total: total, Page: page, Size: size}, nil
}
