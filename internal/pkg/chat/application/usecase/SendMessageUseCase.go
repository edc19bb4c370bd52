package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"

	ai "github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/application/ai/port"
	chat "github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/application/domain"
	repository "github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/persistence/repository/port"
	directory "github.com/MYCE-Refactoring/myce-chat/internal/pkg/directory/port"

	cache "github.com/MYCE-Refactoring/myce-chat/internal/infrastructure/cache/port"
)

// SendMessageInput carries a message submission from either side of a room.
type SendMessageInput struct {
	RoomCode string
	Viewer   chat.Viewer
	Content  string
}

// SendMessageOutput returns what was persisted: the sender's message and, for
// platform rooms answered by the assistant, the generated reply.
type SendMessageOutput struct {
	Message *chat.Message
	AIReply *chat.Message
}

// SendMessageUseCase persists a message, refreshes unread accounting, fans the
// message out, and lets the assistant answer when it owns the room.
//
// Order matters: seq allocation and the insert are the durable core and any
// failure there aborts the send. Everything after the insert (cache counters,
// broadcast, assistant reply) is best-effort and can only degrade, never
// unsend.
type SendMessageUseCase struct {
	Rooms     repository.RoomRepository
	Messages  repository.MessageRepository
	Seq       repository.SequenceAllocator
	Cache     cache.CounterCache
	Broadcast Broadcaster
	AI        ai.TextService
	Directory directory.Directory
}

func NewSendMessageUseCase(
	rooms repository.RoomRepository,
	messages repository.MessageRepository,
	seq repository.SequenceAllocator,
	counters cache.CounterCache,
	broadcast Broadcaster,
	assistant ai.TextService,
	dir directory.Directory,
) *SendMessageUseCase {
	return &SendMessageUseCase{
		Rooms:     rooms,
		Messages:  messages,
		Seq:       seq,
		Cache:     counters,
		Broadcast: broadcast,
		AI:        assistant,
		Directory: dir,
	}
}

// Execute sends a message into the room, creating the room on the
// participant's first contact.
func (uc *SendMessageUseCase) Execute(ctx context.Context, in SendMessageInput) (*SendMessageOutput, error) {
	code, expoID, memberID, err := chat.ParseRoomCode(in.RoomCode)
	if err != nil {
		return nil, err
	}

	room, err := uc.Rooms.FindByCode(ctx, code)
	if errors.Is(err, chat.ErrRoomNotFound) {
		room, err = uc.createFirstContactRoom(ctx, code, expoID, memberID, in.Viewer)
	}
	if err != nil {
		return nil, err
	}

	sender := chat.SenderRoleFor(code, in.Viewer)
	if sender == chat.SenderUser {
		if in.Viewer.MemberID != room.MemberID {
			return nil, fmt.Errorf("%w: room %s belongs to another member", chat.ErrAccessDenied, code)
		}
	} else {
		if room.State != chat.StateAdminActive || !room.HoldsAssignment(in.Viewer.AdminCode) {
			return nil, fmt.Errorf("%w: room %s is not held by %q", chat.ErrAccessDenied, code, in.Viewer.AdminCode)
		}
		if err := uc.Rooms.TouchAdminActivity(ctx, code, in.Viewer.AdminCode); err != nil {
			log.Printf("[chat] touch admin activity for %s: %v", code, err)
		}
	}

	if !room.IsActive {
		if err := uc.Rooms.SetActive(ctx, code, true); err != nil {
			log.Printf("[chat] reactivate %s: %v", code, err)
		} else {
			room.IsActive = true
		}
	}

	msg, err := uc.persistMessage(ctx, room, sender, in.Viewer, in.Content)
	if err != nil {
		return nil, err
	}

	uc.bumpCounters(ctx, room, sender)
	uc.Broadcast.Publish(code, chat.Envelope{
		Type:    chat.MessageBroadcastType(sender),
		Payload: chat.PayloadFor(msg),
	})

	out := &SendMessageOutput{Message: msg}
	if room.IsPlatform() && room.State == chat.StateAIActive && sender == chat.SenderUser {
		out.AIReply = uc.answerWithAssistant(ctx, room, msg)
	}
	return out, nil
}

func (uc *SendMessageUseCase) createFirstContactRoom(ctx context.Context, code chat.RoomCode, expoID, memberID int64, v chat.Viewer) (*chat.Room, error) {
	if v.MemberID != memberID {
		return nil, fmt.Errorf("%w: room %s does not exist", chat.ErrRoomNotFound, code)
	}

	memberName, err := uc.Directory.MemberName(ctx, memberID)
	if err != nil {
		return nil, err
	}
	var roomTitle string
	if code.IsExpo() {
		if roomTitle, err = uc.Directory.ExpoTitle(ctx, expoID); err != nil {
			return nil, err
		}
	}

	room := chat.NewRoom(code, memberID, memberName, expoID, roomTitle)
	if err := uc.Rooms.Create(ctx, room); err != nil {
		// Lost a create race: the other sender's room wins.
		if existing, findErr := uc.Rooms.FindByCode(ctx, code); findErr == nil {
			return existing, nil
		}
		return nil, err
	}
	return room, nil
}

func (uc *SendMessageUseCase) persistMessage(ctx context.Context, room *chat.Room, sender chat.SenderRole, v chat.Viewer, content string) (*chat.Message, error) {
	seq, err := uc.Seq.Next(ctx)
	if err != nil {
		return nil, err
	}
	msg, err := chat.NewMessage(room.RoomCode, seq, sender, v.MemberID, v.DisplayName, content)
	if err != nil {
		return nil, err
	}
	if err := uc.Messages.Insert(ctx, msg); err != nil {
		return nil, err
	}

	room.RecordLastMessage(msg.Content, msg.SentAt)
	if err := uc.Rooms.RecordLastMessage(ctx, room.RoomCode, room.LastMessagePreview, msg.SentAt); err != nil {
		log.Printf("[chat] refresh preview for %s: %v", room.RoomCode, err)
	}
	return msg, nil
}

// bumpCounters advances the advisory unread counters for the receiving side.
// Failures are logged and dropped; the durable markers stay correct.
func (uc *SendMessageUseCase) bumpCounters(ctx context.Context, room *chat.Room, sender chat.SenderRole) {
	receiverID := room.MemberID
	if sender == chat.SenderUser {
		receiverID = cache.AdminGroupViewerID
	}
	roomCode := string(room.RoomCode)

	if _, err := uc.Cache.IncrementUnread(ctx, roomCode, receiverID, 1); err != nil {
		log.Printf("[chat] bump unread for %s viewer %d: %v", roomCode, receiverID, err)
		return
	}
	total, err := uc.Cache.IncrementBadge(ctx, receiverID)
	if err != nil {
		log.Printf("[chat] bump badge for viewer %d: %v", receiverID, err)
	} else if receiverID != cache.AdminGroupViewerID {
		// Push the fresh cross-room total to the member's session, if any.
		uc.Broadcast.NotifyMember(receiverID, chat.Envelope{
			Type:    chat.BroadcastBadgeCount,
			Payload: chat.BadgeCountPayload{MemberID: receiverID, Total: total},
		})
	}
	if err := uc.Cache.AddActiveRoom(ctx, receiverID, roomCode); err != nil {
		log.Printf("[chat] track active room %s for viewer %d: %v", roomCode, receiverID, err)
	}
}

// answerWithAssistant generates and persists the assistant's reply. The user
// message is already committed, so every failure here degrades to "no reply".
func (uc *SendMessageUseCase) answerWithAssistant(ctx context.Context, room *chat.Room, userMsg *chat.Message) *chat.Message {
	replyText, err := uc.AI.Generate(ctx, userMsg.Content)
	if err != nil {
		log.Printf("[chat] assistant reply for %s: %v", room.RoomCode, err)
		return nil
	}

	seq, err := uc.Seq.Next(ctx)
	if err != nil {
		log.Printf("[chat] allocate seq for assistant reply in %s: %v", room.RoomCode, err)
		return nil
	}
	reply := chat.NewAIMessage(room.RoomCode, seq, replyText)
	if err := uc.Messages.Insert(ctx, reply); err != nil {
		log.Printf("[chat] persist assistant reply for %s: %v", room.RoomCode, err)
		return nil
	}

	room.RecordLastMessage(reply.Content, reply.SentAt)
	if err := uc.Rooms.RecordLastMessage(ctx, room.RoomCode, room.LastMessagePreview, reply.SentAt); err != nil {
		log.Printf("[chat] refresh preview for %s: %v", room.RoomCode, err)
	}

	// The assistant has consumed the user's message: advance its watermark
	// and settle the durable markers, then clear the shared admin counter,
	// which counts against the merged admin/assistant watermark.
	prev, err := uc.Rooms.AdvanceWatermark(ctx, room.RoomCode, chat.ReaderAI, userMsg.Seq)
	if err != nil {
		log.Printf("[chat] advance assistant watermark for %s: %v", room.RoomCode, err)
	} else if userMsg.Seq > prev {
		if _, err := uc.Messages.DecrementUnreadMarkers(ctx, room.RoomCode, chat.SenderAI, prev, userMsg.Seq); err != nil {
			log.Printf("[chat] settle unread markers for %s: %v", room.RoomCode, err)
		}
		if err := uc.Cache.ResetUnread(ctx, string(room.RoomCode), cache.AdminGroupViewerID); err != nil {
			log.Printf("[chat] reset admin unread for %s: %v", room.RoomCode, err)
		}
	}

	uc.Broadcast.Publish(room.RoomCode, chat.Envelope{
		Type:    chat.BroadcastAIMessage,
		Payload: chat.PayloadFor(reply),
	})
	return reply
}
