package usecase_test

import (
	"context"
	"errors"
	"testing"

	chat "github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/application/domain"
	"github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/application/usecase"
)

// seedBadgeRooms builds two rooms for member 42 with three unseen admin-side
// messages in total: two in the platform room, one in the expo room.
func seedBadgeRooms(t *testing.T) (*memRooms, *memMessages) {
	t.Helper()
	platform := chat.NewRoom(chat.PlatformRoomCode(42), 42, "Kim", 0, "")
	expo := chat.NewRoom(chat.ExpoRoomCode(7, 42), 42, "Kim", 7, "Tech Expo")
	rooms := newMemRooms(platform, expo)

	messages := &memMessages{}
	ctx := context.Background()
	for seq, content := range map[int64]string{1: "hello", 2: "are you there?"} {
		msg, err := chat.NewMessage(platform.RoomCode, seq, chat.SenderPlatformAdmin, 9, "Agent Park", content)
		if err != nil {
			t.Fatalf("build message: %v", err)
		}
		if err := messages.Insert(ctx, msg); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	msg, err := chat.NewMessage(expo.RoomCode, 3, chat.SenderAdmin, 9, "Agent Lee", "booth update")
	if err != nil {
		t.Fatalf("build message: %v", err)
	}
	if err := messages.Insert(ctx, msg); err != nil {
		t.Fatalf("insert: %v", err)
	}
	return rooms, messages
}

func TestGetBadgeCountServesCachedAggregate(t *testing.T) {
	rooms, messages := seedBadgeRooms(t)
	counters := newMemCache()
	ctx := context.Background()
	if _, err := counters.IncrementUnread(ctx, "platform-42", 42, 2); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	if _, err := counters.IncrementUnread(ctx, "admin-7-42", 42, 1); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := counters.IncrementBadge(ctx, 42); err != nil {
			t.Fatalf("seed badge: %v", err)
		}
	}

	uc := usecase.NewGetBadgeCountUseCase(rooms, messages, counters)
	out, err := uc.Execute(ctx, usecase.GetBadgeCountInput{Viewer: chat.Viewer{MemberID: 42, Role: chat.RoleUser}})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out.Total != 3 {
		t.Fatalf("total = %d, want cached 3", out.Total)
	}
	if out.RoomCounts["platform-42"] != 2 || out.RoomCounts["admin-7-42"] != 1 {
		t.Fatalf("room counts = %v", out.RoomCounts)
	}
}

func TestGetBadgeCountRebuildsOnCacheMiss(t *testing.T) {
	rooms, messages := seedBadgeRooms(t)
	counters := newMemCache()
	ctx := context.Background()

	uc := usecase.NewGetBadgeCountUseCase(rooms, messages, counters)
	out, err := uc.Execute(ctx, usecase.GetBadgeCountInput{Viewer: chat.Viewer{MemberID: 42, Role: chat.RoleUser}})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out.Total != 3 {
		t.Fatalf("total = %d, want durable 3", out.Total)
	}

	// The aggregate and the per-room counters are repopulated.
	if badge, err := counters.GetBadge(ctx, 42); err != nil || badge != 3 {
		t.Fatalf("rebuilt badge = %d (err %v), want 3", badge, err)
	}
	if n, err := counters.GetUnread(ctx, "platform-42", 42); err != nil || n != 2 {
		t.Fatalf("rebuilt room counter = %d (err %v), want 2", n, err)
	}
}

func TestGetBadgeCountSurvivesCacheOutage(t *testing.T) {
	rooms, messages := seedBadgeRooms(t)
	counters := newMemCache()
	counters.failAll = errors.New("redis down")

	uc := usecase.NewGetBadgeCountUseCase(rooms, messages, counters)
	out, err := uc.Execute(context.Background(), usecase.GetBadgeCountInput{Viewer: chat.Viewer{MemberID: 42, Role: chat.RoleUser}})
	if err != nil {
		t.Fatalf("cache outage must not fail the read: %v", err)
	}
	if out.Total != 3 {
		t.Fatalf("total = %d, want durable 3", out.Total)
	}
}

func TestGetBadgeCountSkipsInactiveRooms(t *testing.T) {
	rooms, messages := seedBadgeRooms(t)
	if err := rooms.SetActive(context.Background(), "platform-42", false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	uc := usecase.NewGetBadgeCountUseCase(rooms, messages, newMemCache())
	out, err := uc.Execute(context.Background(), usecase.GetBadgeCountInput{Viewer: chat.Viewer{MemberID: 42, Role: chat.RoleUser}})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out.Total != 1 {
		t.Fatalf("total = %d, want 1 from the active room only", out.Total)
	}
	if _, ok := out.RoomCounts["platform-42"]; ok {
		t.Fatal("dormant room must not contribute to the badge")
	}
}
