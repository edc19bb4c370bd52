package chat

// SenderRole identifies who authored a message. The set is closed; persistence
// round-trips through the string form.
type SenderRole string

const (
	SenderUser          SenderRole = "USER"
	SenderAdmin         SenderRole = "ADMIN"
	SenderPlatformAdmin SenderRole = "PLATFORM_ADMIN"
	SenderAI            SenderRole = "AI"
	SenderSystem        SenderRole = "SYSTEM"
)

// ReaderRole identifies a reading side of a room. Each role keeps one watermark
// per room: the seq of the last message it has consumed.
type ReaderRole string

const (
	ReaderUser  ReaderRole = "USER"
	ReaderAdmin ReaderRole = "ADMIN"
	ReaderAI    ReaderRole = "AI"
)

// Role is the platform-level role of an authenticated viewer, propagated by
// the API layer. Authorization beyond room scoping happens outside the core.
type Role string

const (
	RoleUser          Role = "USER"
	RoleExpoAdmin     Role = "EXPO_ADMIN"
	RoleExpoSuper     Role = "EXPO_SUPER_ADMIN"
	RolePlatformAdmin Role = "PLATFORM_ADMIN"
)

// Viewer is the acting identity of an operation: who is calling, with which
// role, and how they should be displayed.
type Viewer struct {
	MemberID    int64
	Role        Role
	DisplayName string
	// AdminCode is the exhibition admin code for ADMIN_CODE logins, resolved
	// by the directory; empty otherwise.
	AdminCode string
}

// IsAdminRole reports whether the role belongs to the admin side.
func (r Role) IsAdminRole() bool {
	switch r {
	case RoleExpoAdmin, RoleExpoSuper, RolePlatformAdmin:
		return true
	case RoleUser:
		return false
	}
	return false
}

// ReaderRoleFor resolves which watermark a viewer advances in the given room.
// The room participant always reads as USER, regardless of their platform
// role. On the admin side, platform rooms grant the ADMIN watermark only to
// platform admins; expo admin roles there read as USER-side. Expo rooms grant
// it to every admin role.
func ReaderRoleFor(code RoomCode, v Viewer) ReaderRole {
	if code.MemberID() == v.MemberID {
		return ReaderUser
	}
	if code.IsPlatform() {
		if v.Role == RolePlatformAdmin {
			return ReaderAdmin
		}
		return ReaderUser
	}
	if v.Role.IsAdminRole() {
		return ReaderAdmin
	}
	return ReaderUser
}

// SenderRoleFor resolves the sender category a viewer writes as in the room.
func SenderRoleFor(code RoomCode, v Viewer) SenderRole {
	if ReaderRoleFor(code, v) == ReaderUser {
		return SenderUser
	}
	if code.IsPlatform() && v.Role == RolePlatformAdmin {
		return SenderPlatformAdmin
	}
	return SenderAdmin
}

// CounterpartSender is the sender category whose messages count as unread for
// the given reader. A sender never owes itself a read: users only count the
// admin side of their room, and the admin side only counts the user.
func CounterpartSender(code RoomCode, reader ReaderRole) SenderRole {
	switch reader {
	case ReaderUser:
		if code.IsPlatform() {
			return SenderPlatformAdmin
		}
		return SenderAdmin
	case ReaderAdmin, ReaderAI:
		return SenderUser
	}
	return SenderUser
}

// ReaderSenderRole maps a reader to the sender category it writes as, used
// when decrementing durable unread markers ("everything I did not send").
func ReaderSenderRole(code RoomCode, reader ReaderRole) SenderRole {
	switch reader {
	case ReaderUser:
		return SenderUser
	case ReaderAI:
		return SenderAI
	case ReaderAdmin:
		if code.IsPlatform() {
			return SenderPlatformAdmin
		}
		return SenderAdmin
	}
	return SenderUser
}
