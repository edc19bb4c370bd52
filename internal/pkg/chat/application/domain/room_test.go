package chat_test

import (
	"strings"
	"testing"
	"time"

	chat "github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/application/domain"
)

func TestNewRoomInitialState(t *testing.T) {
	platform := chat.NewRoom(chat.PlatformRoomCode(42), 42, "Kim", 0, "")
	if platform.State != chat.StateAIActive {
		t.Fatalf("platform room starts in %s, want AI_ACTIVE", platform.State)
	}
	expo := chat.NewRoom(chat.ExpoRoomCode(7, 42), 42, "Kim", 7, "Tech Expo")
	if expo.State != chat.StateWaitingForAdmin {
		t.Fatalf("expo room starts in %s, want WAITING_FOR_ADMIN", expo.State)
	}
	if !platform.IsActive || !expo.IsActive {
		t.Fatal("new rooms must be active")
	}
}

func TestAdvanceWatermarkNeverRegresses(t *testing.T) {
	room := chat.NewRoom(chat.PlatformRoomCode(42), 42, "Kim", 0, "")

	if prev := room.AdvanceWatermark(chat.ReaderUser, 10); prev != 0 {
		t.Fatalf("first advance returned prev=%d, want 0", prev)
	}
	if prev := room.AdvanceWatermark(chat.ReaderUser, 5); prev != 10 {
		t.Fatalf("stale advance returned prev=%d, want 10", prev)
	}
	if got := room.Watermark(chat.ReaderUser); got != 10 {
		t.Fatalf("watermark regressed to %d", got)
	}
	if prev := room.AdvanceWatermark(chat.ReaderUser, 12); prev != 10 {
		t.Fatalf("advance returned prev=%d, want 10", prev)
	}
}

func TestEffectiveWatermarkMergesAssistantForPlatformAdmins(t *testing.T) {
	room := chat.NewRoom(chat.PlatformRoomCode(42), 42, "Kim", 0, "")
	room.AdvanceWatermark(chat.ReaderAdmin, 3)
	room.AdvanceWatermark(chat.ReaderAI, 8)

	if got := room.EffectiveWatermark(chat.ReaderAdmin); got != 8 {
		t.Fatalf("platform admin effective watermark = %d, want 8", got)
	}
	if got := room.EffectiveWatermark(chat.ReaderAI); got != 8 {
		t.Fatalf("assistant effective watermark = %d, want 8", got)
	}
	if got := room.EffectiveWatermark(chat.ReaderUser); got != 0 {
		t.Fatalf("user effective watermark = %d, want 0", got)
	}

	expo := chat.NewRoom(chat.ExpoRoomCode(7, 42), 42, "Kim", 7, "Tech Expo")
	expo.AdvanceWatermark(chat.ReaderAI, 8)
	if got := expo.EffectiveWatermark(chat.ReaderAdmin); got != 0 {
		t.Fatalf("expo admin watermark must ignore the assistant pointer, got %d", got)
	}
}

func TestRecordLastMessageTruncatesPreview(t *testing.T) {
	room := chat.NewRoom(chat.PlatformRoomCode(42), 42, "Kim", 0, "")
	long := strings.Repeat("안", 300)
	room.RecordLastMessage(long, time.Now())

	runes := []rune(room.LastMessagePreview)
	if len(runes) != 200 {
		t.Fatalf("preview length = %d runes, want 200", len(runes))
	}
	if !strings.HasSuffix(room.LastMessagePreview, "...") {
		t.Fatalf("truncated preview must end in ellipsis, got %q", room.LastMessagePreview[len(room.LastMessagePreview)-9:])
	}

	room.RecordLastMessage("short", time.Now())
	if room.LastMessagePreview != "short" {
		t.Fatalf("short preview altered: %q", room.LastMessagePreview)
	}
}

func TestUnreadByCountsOnlyCounterpartMessages(t *testing.T) {
	code := chat.PlatformRoomCode(42)
	room := chat.NewRoom(code, 42, "Kim", 0, "")

	userMsg, err := chat.NewMessage(code, 5, chat.SenderUser, 42, "Kim", "hello")
	if err != nil {
		t.Fatalf("NewMessage: %v", err)
	}
	if !userMsg.UnreadBy(room, chat.ReaderAdmin) {
		t.Fatal("fresh user message must be unread for the admin side")
	}
	if userMsg.UnreadBy(room, chat.ReaderUser) {
		t.Fatal("a sender is never owed a read of its own message")
	}

	aiMsg := chat.NewAIMessage(code, 6, "hi there")
	if aiMsg.UnreadMarker != 0 {
		t.Fatalf("assistant message marker = %d, want 0", aiMsg.UnreadMarker)
	}
	if aiMsg.UnreadBy(room, chat.ReaderAdmin) {
		t.Fatal("assistant output must not count as unread for the admin side")
	}

	// Once the assistant has consumed the user's message, the merged
	// watermark covers it for admins too.
	room.AdvanceWatermark(chat.ReaderAI, 5)
	if userMsg.UnreadBy(room, chat.ReaderAdmin) {
		t.Fatal("message behind the merged watermark must read as seen")
	}
}

func TestNewMessageValidation(t *testing.T) {
	code := chat.PlatformRoomCode(42)
	if _, err := chat.NewMessage(code, 1, chat.SenderUser, 42, "Kim", "   "); err == nil {
		t.Fatal("blank content must be rejected")
	}
	if _, err := chat.NewMessage(code, 0, chat.SenderUser, 42, "Kim", "hi"); err == nil {
		t.Fatal("missing seq must be rejected")
	}
	msg, err := chat.NewMessage(code, 1, chat.SenderUser, 42, "Kim", "  hi  ")
	if err != nil {
		t.Fatalf("NewMessage: %v", err)
	}
	if msg.Content != "hi" {
		t.Fatalf("content not trimmed: %q", msg.Content)
	}
	if msg.UnreadMarker != 1 {
		t.Fatalf("human message marker = %d, want 1", msg.UnreadMarker)
	}
}
