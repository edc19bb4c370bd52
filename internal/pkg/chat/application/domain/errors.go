package chat

import "errors"

// Error taxonomy of the chat core. Callers classify with errors.Is; the HTTP
// layer maps each to a status code.
var (
	// ErrRoomNotFound signals a room (or message) that does not exist.
	ErrRoomNotFound = errors.New("chat: room not found")

	// ErrAccessDenied signals a failed permission check, including an admin
	// assignment collision where another admin already holds the room.
	ErrAccessDenied = errors.New("chat: access denied")

	// ErrInvalidState signals an operation that is not legal for the room's
	// current lifecycle state. The room is left unchanged.
	ErrInvalidState = errors.New("chat: invalid room state")

	// ErrDependency signals a failed storage or AI collaborator call.
	ErrDependency = errors.New("chat: external dependency failure")

	// ErrInvalidRoomCode signals a malformed room code, which is an input
	// error rather than a state error.
	ErrInvalidRoomCode = errors.New("chat: invalid room code")
)
