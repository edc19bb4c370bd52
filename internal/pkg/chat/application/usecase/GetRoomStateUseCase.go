package usecase

import (
	"context"
	"fmt"

	chat "github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/application/domain"
	repository "github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/persistence/repository/port"
)

// GetRoomStateInput asks for a room's lifecycle snapshot.
type GetRoomStateInput struct {
	RoomCode string
	Viewer   chat.Viewer
}

// GetRoomStateOutput is what a client needs to render the room header and
// handoff control.
type GetRoomStateOutput struct {
	RoomCode         chat.RoomCode         `json:"roomCode"`
	State            chat.RoomState        `json:"state"`
	Button           chat.ButtonDescriptor `json:"button"`
	AssignedAdmin    string                `json:"assignedAdmin,omitempty"`
	AdminDisplayName string                `json:"adminDisplayName,omitempty"`
	RoomTitle        string                `json:"roomTitle,omitempty"`
	IsActive         bool                  `json:"isActive"`
}

// GetRoomStateUseCase reads the current lifecycle state of a room.
type GetRoomStateUseCase struct {
	Rooms repository.RoomRepository
}

func NewGetRoomStateUseCase(rooms repository.RoomRepository) *GetRoomStateUseCase {
	return &GetRoomStateUseCase{Rooms: rooms}
}

func (uc *GetRoomStateUseCase) Execute(ctx context.Context, in GetRoomStateInput) (*GetRoomStateOutput, error) {
	code, _, memberID, err := chat.ParseRoomCode(in.RoomCode)
	if err != nil {
		return nil, err
	}
	if in.Viewer.MemberID != memberID && !in.Viewer.Role.IsAdminRole() {
		return nil, fmt.Errorf("%w: room %s belongs to another member", chat.ErrAccessDenied, code)
	}

	room, err := uc.Rooms.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return &GetRoomStateOutput{
		RoomCode:         room.RoomCode,
		State:            room.State,
		Button:           chat.ButtonFor(room.State),
		AssignedAdmin:    room.AssignedAdmin,
		AdminDisplayName: room.AdminDisplayName,
		RoomTitle:        room.RoomTitle,
		IsActive:         room.IsActive,
	}, nil
}
