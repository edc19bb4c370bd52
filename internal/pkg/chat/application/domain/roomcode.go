package chat

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	platformRoomPrefix = "platform-"
	expoRoomPrefix     = "admin-"
	roomCodeDelimiter  = "-"
)

// RoomCode is the business key of a room and the address of its broadcast
// topic. Two families exist: "platform-{memberId}" for platform-level support
// and "admin-{expoId}-{memberId}" for exhibition-scoped support.
type RoomCode string

// PlatformRoomCode builds the room code for platform-level support of a member.
func PlatformRoomCode(memberID int64) RoomCode {
	return RoomCode(platformRoomPrefix + strconv.FormatInt(memberID, 10))
}

// ExpoRoomCode builds the room code for exhibition-scoped support.
func ExpoRoomCode(expoID, memberID int64) RoomCode {
	return RoomCode(expoRoomPrefix + strconv.FormatInt(expoID, 10) + roomCodeDelimiter + strconv.FormatInt(memberID, 10))
}

func (c RoomCode) IsPlatform() bool {
	return strings.HasPrefix(string(c), platformRoomPrefix)
}

func (c RoomCode) IsExpo() bool {
	return strings.HasPrefix(string(c), expoRoomPrefix)
}

// ParseRoomCode validates the code format and extracts its identifiers.
// A malformed code is an input error, reported as ErrInvalidRoomCode; it never
// maps to a runtime state error.
func ParseRoomCode(raw string) (code RoomCode, expoID, memberID int64, err error) {
	parts := strings.Split(raw, roomCodeDelimiter)
	switch {
	case strings.HasPrefix(raw, platformRoomPrefix) && len(parts) == 2:
		memberID, err = strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return "", 0, 0, fmt.Errorf("%w: %q", ErrInvalidRoomCode, raw)
		}
		return RoomCode(raw), 0, memberID, nil
	case strings.HasPrefix(raw, expoRoomPrefix) && len(parts) == 3:
		expoID, err = strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return "", 0, 0, fmt.Errorf("%w: %q", ErrInvalidRoomCode, raw)
		}
		memberID, err = strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			return "", 0, 0, fmt.Errorf("%w: %q", ErrInvalidRoomCode, raw)
		}
		return RoomCode(raw), expoID, memberID, nil
	default:
		return "", 0, 0, fmt.Errorf("%w: %q", ErrInvalidRoomCode, raw)
	}
}

// MemberID extracts the participant member id. The code must be well-formed;
// use ParseRoomCode on untrusted input.
func (c RoomCode) MemberID() int64 {
	parts := strings.Split(string(c), roomCodeDelimiter)
	id, _ := strconv.ParseInt(parts[len(parts)-1], 10, 64)
	return id
}

// ExpoID extracts the exhibition id, or 0 for platform rooms.
func (c RoomCode) ExpoID() int64 {
	if !c.IsExpo() {
		return 0
	}
	parts := strings.Split(string(c), roomCodeDelimiter)
	if len(parts) != 3 {
		return 0
	}
	id, _ := strconv.ParseInt(parts[1], 10, 64)
	return id
}
