package usecase_test

import (
	"context"
	"errors"
	"testing"

	chat "github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/application/domain"
	"github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/application/usecase"

	cache "github.com/MYCE-Refactoring/myce-chat/internal/infrastructure/cache/port"
)

func seedConversation(t *testing.T) (*memRooms, *memMessages) {
	t.Helper()
	room := chat.NewRoom(chat.PlatformRoomCode(42), 42, "Kim", 0, "")
	rooms := newMemRooms(room)
	messages := &memMessages{}

	for seq := int64(1); seq <= 3; seq++ {
		msg, err := chat.NewMessage("platform-42", seq, chat.SenderUser, 42, "Kim", "user line")
		if err != nil {
			t.Fatalf("seed message: %v", err)
		}
		if err := messages.Insert(context.Background(), msg); err != nil {
			t.Fatalf("seed insert: %v", err)
		}
	}
	return rooms, messages
}

func TestMarkReadAdvancesWatermarkAndSettlesMarkers(t *testing.T) {
	rooms, messages := seedConversation(t)
	counters := newMemCache()
	broadcast := &memBroadcast{}
	uc := usecase.NewMarkReadUseCase(rooms, messages, counters, broadcast)

	admin := chat.Viewer{MemberID: 9, Role: chat.RolePlatformAdmin, AdminCode: "HQ-1"}
	out, err := uc.Execute(context.Background(), usecase.MarkReadInput{RoomCode: "platform-42", Viewer: admin, UptoSeq: 2})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !out.Advanced || out.PreviousSeq != 0 || out.LastReadSeq != 2 {
		t.Fatalf("out = %+v", out)
	}

	if wm := rooms.get("platform-42").Watermark(chat.ReaderAdmin); wm != 2 {
		t.Fatalf("admin watermark = %d, want 2", wm)
	}
	for _, msg := range messages.all("platform-42") {
		want := 0
		if msg.Seq > 2 {
			want = 1
		}
		if msg.UnreadMarker != want {
			t.Fatalf("seq %d marker = %d, want %d", msg.Seq, msg.UnreadMarker, want)
		}
	}

	types := broadcast.types("platform-42")
	if len(types) != 2 || types[0] != chat.BroadcastReadStatus || types[1] != chat.BroadcastUnreadCount {
		t.Fatalf("broadcast types = %v", types)
	}
}

func TestMarkReadReplayIsANoOp(t *testing.T) {
	rooms, messages := seedConversation(t)
	counters := newMemCache()
	broadcast := &memBroadcast{}
	uc := usecase.NewMarkReadUseCase(rooms, messages, counters, broadcast)

	admin := chat.Viewer{MemberID: 9, Role: chat.RolePlatformAdmin, AdminCode: "HQ-1"}
	if _, err := uc.Execute(context.Background(), usecase.MarkReadInput{RoomCode: "platform-42", Viewer: admin, UptoSeq: 3}); err != nil {
		t.Fatalf("first mark: %v", err)
	}

	// Replay with an older position: no marker moves twice, no broadcast.
	before := len(broadcast.types("platform-42"))
	out, err := uc.Execute(context.Background(), usecase.MarkReadInput{RoomCode: "platform-42", Viewer: admin, UptoSeq: 2})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if out.Advanced {
		t.Fatal("stale replay must not advance")
	}
	if out.LastReadSeq != 3 {
		t.Fatalf("replay reports lastReadSeq=%d, want the standing 3", out.LastReadSeq)
	}
	for _, msg := range messages.all("platform-42") {
		if msg.UnreadMarker != 0 {
			t.Fatalf("seq %d marker = %d after replay, want 0", msg.Seq, msg.UnreadMarker)
		}
	}
	if after := len(broadcast.types("platform-42")); after != before {
		t.Fatal("replay must not broadcast")
	}
}

func TestMarkReadByParticipantUsesOwnCounter(t *testing.T) {
	room := chat.NewRoom(chat.PlatformRoomCode(42), 42, "Kim", 0, "")
	rooms := newMemRooms(room)
	messages := &memMessages{}
	msg, _ := chat.NewMessage("platform-42", 1, chat.SenderPlatformAdmin, 9, "Agent Park", "hello from support")
	_ = messages.Insert(context.Background(), msg)

	counters := newMemCache()
	_, _ = counters.IncrementUnread(context.Background(), "platform-42", 42, 1)
	_ = counters.AddActiveRoom(context.Background(), 42, "platform-42")

	uc := usecase.NewMarkReadUseCase(rooms, messages, counters, &memBroadcast{})
	if _, err := uc.Execute(context.Background(), usecase.MarkReadInput{
		RoomCode: "platform-42",
		Viewer:   chat.Viewer{MemberID: 42, Role: chat.RoleUser},
		UptoSeq:  1,
	}); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if n, err := counters.GetUnread(context.Background(), "platform-42", 42); err != nil || n != 0 {
		t.Fatalf("participant counter = %d (err %v), want 0", n, err)
	}
	if n, err := counters.GetBadge(context.Background(), 42); err != nil || n != 0 {
		t.Fatalf("participant badge = %d (err %v), want 0", n, err)
	}
}

func TestMarkReadDeniesStrangers(t *testing.T) {
	rooms, messages := seedConversation(t)
	uc := usecase.NewMarkReadUseCase(rooms, messages, newMemCache(), &memBroadcast{})

	_, err := uc.Execute(context.Background(), usecase.MarkReadInput{
		RoomCode: "platform-42",
		Viewer:   chat.Viewer{MemberID: 77, Role: chat.RoleUser},
		UptoSeq:  1,
	})
	if !errors.Is(err, chat.ErrAccessDenied) {
		t.Fatalf("error = %v, want ErrAccessDenied", err)
	}
}

func TestGetUnreadCountServesCacheThenFallsBack(t *testing.T) {
	rooms, messages := seedConversation(t)
	counters := newMemCache()
	uc := usecase.NewGetUnreadCountUseCase(rooms, messages, counters)

	admin := chat.Viewer{MemberID: 9, Role: chat.RolePlatformAdmin, AdminCode: "HQ-1"}

	// Miss: computed from the durable store against the merged watermark,
	// then cached.
	count, err := uc.Execute(context.Background(), usecase.GetUnreadCountInput{RoomCode: "platform-42", Viewer: admin})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}
	if n, err := counters.GetUnread(context.Background(), "platform-42", cache.AdminGroupViewerID); err != nil || n != 3 {
		t.Fatalf("cache not repopulated: %d (err %v)", n, err)
	}

	// Hit: the cached value is served even when it disagrees.
	_ = counters.SetUnread(context.Background(), "platform-42", cache.AdminGroupViewerID, 7)
	count, err = uc.Execute(context.Background(), usecase.GetUnreadCountInput{RoomCode: "platform-42", Viewer: admin})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if count != 7 {
		t.Fatalf("count = %d, want cached 7", count)
	}
}

func TestGetUnreadCountHonorsMergedWatermark(t *testing.T) {
	rooms, messages := seedConversation(t)
	// The assistant already consumed up to seq 2.
	if _, err := rooms.AdvanceWatermark(context.Background(), "platform-42", chat.ReaderAI, 2); err != nil {
		t.Fatalf("advance: %v", err)
	}

	uc := usecase.NewGetUnreadCountUseCase(rooms, messages, newMemCache())
	count, err := uc.Execute(context.Background(), usecase.GetUnreadCountInput{
		RoomCode: "platform-42",
		Viewer:   chat.Viewer{MemberID: 9, Role: chat.RolePlatformAdmin, AdminCode: "HQ-1"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1 past the assistant's pointer", count)
	}
}

func TestGetUnreadCountSurvivesCacheOutage(t *testing.T) {
	rooms, messages := seedConversation(t)
	counters := newMemCache()
	counters.failAll = errors.New("redis down")

	uc := usecase.NewGetUnreadCountUseCase(rooms, messages, counters)
	count, err := uc.Execute(context.Background(), usecase.GetUnreadCountInput{
		RoomCode: "platform-42",
		Viewer:   chat.Viewer{MemberID: 9, Role: chat.RolePlatformAdmin, AdminCode: "HQ-1"},
	})
	if err != nil {
		t.Fatalf("cache outage must fall back to the durable count: %v", err)
	}
	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}
}
