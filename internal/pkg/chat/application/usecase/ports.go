package usecase

import (
	chat "github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/application/domain"
)

// Broadcaster fans envelopes out to room subscribers, to the platform admin
// notification feed, and to a single member's session. Delivery is
// best-effort; use cases never fail an operation because a broadcast did not
// land.
type Broadcaster interface {
	Publish(code chat.RoomCode, env chat.Envelope)
	NotifyAdmins(env chat.Envelope)
	NotifyMember(memberID int64, env chat.Envelope) bool
}
