package usecase_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	chat "github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/application/domain"
	"github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/application/usecase"
)

func TestRequestHandoffMovesRoomAndAlertsAdmins(t *testing.T) {
	rooms := newMemRooms(chat.NewRoom(chat.PlatformRoomCode(42), 42, "Kim", 0, ""))
	messages := &memMessages{}
	broadcast := &memBroadcast{}
	uc := usecase.NewRequestHandoffUseCase(rooms, messages, &memSeq{}, broadcast)

	info, err := uc.Execute(context.Background(), usecase.RequestHandoffInput{
		RoomCode: "platform-42",
		Viewer:   chat.Viewer{MemberID: 42, Role: chat.RoleUser},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if info.State != chat.StateWaitingForAdmin {
		t.Fatalf("state = %s, want WAITING_FOR_ADMIN", info.State)
	}

	room := rooms.get("platform-42")
	if room.State != chat.StateWaitingForAdmin || room.HandoffRequestedAt.IsZero() {
		t.Fatalf("room not queued: state=%s requestedAt=%v", room.State, room.HandoffRequestedAt)
	}

	persisted := messages.all("platform-42")
	if len(persisted) != 1 || persisted[0].SenderID != chat.AISenderID {
		t.Fatalf("expected one assistant notice, got %d messages", len(persisted))
	}

	admin := broadcast.adminEvents()
	if len(admin) != 1 || admin[0].Type != chat.BroadcastPlatformHandoff {
		t.Fatalf("admin feed events = %v", admin)
	}
}

func TestRequestHandoffRejectsOtherViewersAndWrongStates(t *testing.T) {
	room := chat.NewRoom(chat.PlatformRoomCode(42), 42, "Kim", 0, "")
	rooms := newMemRooms(room)
	uc := usecase.NewRequestHandoffUseCase(rooms, &memMessages{}, &memSeq{}, &memBroadcast{})

	_, err := uc.Execute(context.Background(), usecase.RequestHandoffInput{
		RoomCode: "platform-42",
		Viewer:   chat.Viewer{MemberID: 9, Role: chat.RolePlatformAdmin},
	})
	if !errors.Is(err, chat.ErrAccessDenied) {
		t.Fatalf("non-participant error = %v, want ErrAccessDenied", err)
	}

	room.State = chat.StateAdminActive
	_, err = uc.Execute(context.Background(), usecase.RequestHandoffInput{
		RoomCode: "platform-42",
		Viewer:   chat.Viewer{MemberID: 42, Role: chat.RoleUser},
	})
	if !errors.Is(err, chat.ErrInvalidState) {
		t.Fatalf("wrong state error = %v, want ErrInvalidState", err)
	}
}

func TestCancelHandoffIsIdempotentAgainstReplay(t *testing.T) {
	room := chat.NewRoom(chat.PlatformRoomCode(42), 42, "Kim", 0, "")
	room.State = chat.StateWaitingForAdmin
	rooms := newMemRooms(room)
	uc := usecase.NewCancelHandoffUseCase(rooms, &memMessages{}, &memSeq{}, &memBroadcast{})

	in := usecase.CancelHandoffInput{RoomCode: "platform-42", Viewer: chat.Viewer{MemberID: 42, Role: chat.RoleUser}}
	if _, err := uc.Execute(context.Background(), in); err != nil {
		t.Fatalf("first cancel: %v", err)
	}
	if rooms.get("platform-42").State != chat.StateAIActive {
		t.Fatal("cancel must settle the room back with the assistant")
	}

	// A replayed cancel finds no pending request and changes nothing.
	if _, err := uc.Execute(context.Background(), in); !errors.Is(err, chat.ErrInvalidState) {
		t.Fatalf("replayed cancel error = %v, want ErrInvalidState", err)
	}
	if rooms.get("platform-42").State != chat.StateAIActive {
		t.Fatal("replayed cancel must leave the room untouched")
	}
}

func TestAcceptHandoffCommitsTakeoverBeforeSummarizing(t *testing.T) {
	room := chat.NewRoom(chat.PlatformRoomCode(42), 42, "Kim", 0, "")
	room.State = chat.StateWaitingForAdmin
	rooms := newMemRooms(room)
	messages := &memMessages{}
	_ = messages.Insert(context.Background(), chat.NewAIMessage("platform-42", 1, "hello"))

	assistant := &stubAssistant{summary: "user needs a refund"}
	var stateAtSummary chat.RoomState
	var holderAtSummary string
	assistant.onSummarize = func() {
		r := rooms.get("platform-42")
		stateAtSummary = r.State
		holderAtSummary = r.AssignedAdmin
	}

	broadcast := &memBroadcast{}
	uc := usecase.NewAcceptHandoffUseCase(rooms, messages, seqFrom(1), newMemCache(), broadcast, assistant, stubDirectory{})

	info, err := uc.Execute(context.Background(), usecase.AcceptHandoffInput{
		RoomCode: "platform-42",
		Viewer:   chat.Viewer{MemberID: 9, Role: chat.RolePlatformAdmin, DisplayName: "Agent Park", AdminCode: "HQ-1"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if info.State != chat.StateAdminActive {
		t.Fatalf("state = %s, want ADMIN_ACTIVE", info.State)
	}

	// The slow summary ran strictly after the takeover was durable.
	if stateAtSummary != chat.StateAdminActive || holderAtSummary != "HQ-1" {
		t.Fatalf("summary observed state=%s holder=%q, want committed takeover", stateAtSummary, holderAtSummary)
	}

	persisted := messages.all("platform-42")
	last := persisted[len(persisted)-1]
	if last.SenderID != chat.SystemSenderID || !strings.Contains(last.Content, "user needs a refund") {
		t.Fatalf("join notice = %+v", last)
	}

	// Subscribers see the join notice before the assignment and button flip.
	types := broadcast.types("platform-42")
	want := []chat.BroadcastType{chat.BroadcastSystemMessage, chat.BroadcastAdminAssignment, chat.BroadcastButtonState}
	if len(types) != len(want) {
		t.Fatalf("broadcasts = %v", types)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("broadcast[%d] = %s, want %s", i, types[i], want[i])
		}
	}
}

func TestAcceptHandoffPlatformRoomsNeedPlatformAdmins(t *testing.T) {
	room := chat.NewRoom(chat.PlatformRoomCode(42), 42, "Kim", 0, "")
	room.State = chat.StateWaitingForAdmin
	rooms := newMemRooms(room)
	uc := usecase.NewAcceptHandoffUseCase(rooms, &memMessages{}, &memSeq{}, newMemCache(), &memBroadcast{}, &stubAssistant{}, stubDirectory{})

	_, err := uc.Execute(context.Background(), usecase.AcceptHandoffInput{
		RoomCode: "platform-42",
		Viewer:   chat.Viewer{MemberID: 9, Role: chat.RoleExpoAdmin, AdminCode: "EXPO7-A"},
	})
	if !errors.Is(err, chat.ErrAccessDenied) {
		t.Fatalf("expo admin accept error = %v, want ErrAccessDenied", err)
	}
	if got := rooms.get("platform-42"); got.State != chat.StateWaitingForAdmin || got.AssignedAdmin != "" {
		t.Fatalf("room must stay queued: %+v", got)
	}
}

func TestAcceptHandoffSummaryFailureDegrades(t *testing.T) {
	room := chat.NewRoom(chat.PlatformRoomCode(42), 42, "Kim", 0, "")
	room.State = chat.StateWaitingForAdmin
	rooms := newMemRooms(room)
	messages := &memMessages{}
	_ = messages.Insert(context.Background(), chat.NewAIMessage("platform-42", 1, "hello"))

	uc := usecase.NewAcceptHandoffUseCase(rooms, messages, seqFrom(1), newMemCache(), &memBroadcast{},
		&stubAssistant{summarizeErr: errors.New("model down")}, stubDirectory{})

	if _, err := uc.Execute(context.Background(), usecase.AcceptHandoffInput{
		RoomCode: "platform-42",
		Viewer:   chat.Viewer{MemberID: 9, Role: chat.RolePlatformAdmin, DisplayName: "Agent Park", AdminCode: "HQ-1"},
	}); err != nil {
		t.Fatalf("summary failure must not fail the accept: %v", err)
	}

	if got := rooms.get("platform-42"); got.State != chat.StateAdminActive || got.AssignedAdmin != "HQ-1" {
		t.Fatalf("takeover not committed: %+v", got)
	}
	persisted := messages.all("platform-42")
	last := persisted[len(persisted)-1]
	if last.SenderID != chat.SystemSenderID || !strings.Contains(last.Content, "not available") {
		t.Fatalf("degraded join notice = %q", last.Content)
	}
}

func TestAcceptHandoffExactlyOneWinner(t *testing.T) {
	room := chat.NewRoom(chat.PlatformRoomCode(42), 42, "Kim", 0, "")
	room.State = chat.StateWaitingForAdmin
	rooms := newMemRooms(room)
	uc := usecase.NewAcceptHandoffUseCase(rooms, &memMessages{}, &memSeq{}, newMemCache(), &memBroadcast{}, &stubAssistant{}, stubDirectory{})

	const contenders = 8
	var wg sync.WaitGroup
	errs := make([]error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = uc.Execute(context.Background(), usecase.AcceptHandoffInput{
				RoomCode: "platform-42",
				Viewer: chat.Viewer{
					MemberID:    int64(100 + i),
					Role:        chat.RolePlatformAdmin,
					DisplayName: "Agent",
					AdminCode:   "HQ-" + string(rune('A'+i)),
				},
			})
		}(i)
	}
	wg.Wait()

	var wins, denials int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, chat.ErrAccessDenied) || errors.Is(err, chat.ErrInvalidState):
			denials++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("winners = %d, want exactly 1", wins)
	}
	if denials != contenders-1 {
		t.Fatalf("denials = %d, want %d", denials, contenders-1)
	}

	got := rooms.get("platform-42")
	if got.State != chat.StateAdminActive || got.AssignedAdmin == "" {
		t.Fatalf("room after race: state=%s holder=%q", got.State, got.AssignedAdmin)
	}
}

func TestPreemptInterveneTakesAssistantRoom(t *testing.T) {
	rooms := newMemRooms(chat.NewRoom(chat.PlatformRoomCode(42), 42, "Kim", 0, ""))
	messages := &memMessages{}
	broadcast := &memBroadcast{}
	uc := usecase.NewPreemptInterveneUseCase(rooms, messages, &memSeq{}, newMemCache(), broadcast, stubDirectory{})

	info, err := uc.Execute(context.Background(), usecase.PreemptInterveneInput{
		RoomCode: "platform-42",
		Viewer:   chat.Viewer{MemberID: 9, Role: chat.RolePlatformAdmin, DisplayName: "Agent Park", AdminCode: "HQ-1"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if info.State != chat.StateAdminActive {
		t.Fatalf("state = %s, want ADMIN_ACTIVE", info.State)
	}

	room := rooms.get("platform-42")
	room.State = chat.StateAdminActive
	if _, err := uc.Execute(context.Background(), usecase.PreemptInterveneInput{
		RoomCode: "platform-42",
		Viewer:   chat.Viewer{MemberID: 10, Role: chat.RolePlatformAdmin, AdminCode: "HQ-2"},
	}); !errors.Is(err, chat.ErrInvalidState) {
		t.Fatalf("second intervention error = %v, want ErrInvalidState", err)
	}
}

func TestReturnToAIOnlyHolderReleases(t *testing.T) {
	room := chat.NewRoom(chat.PlatformRoomCode(42), 42, "Kim", 0, "")
	room.State = chat.StateAdminActive
	room.AssignedAdmin = "HQ-1"
	room.AdminDisplayName = "Agent Park"
	rooms := newMemRooms(room)
	messages := &memMessages{}
	uc := usecase.NewReturnToAIUseCase(rooms, messages, &memSeq{}, &memBroadcast{})

	_, err := uc.Execute(context.Background(), usecase.ReturnToAIInput{
		RoomCode: "platform-42",
		Viewer:   chat.Viewer{MemberID: 10, Role: chat.RolePlatformAdmin, AdminCode: "HQ-2"},
	})
	if !errors.Is(err, chat.ErrAccessDenied) {
		t.Fatalf("non-holder error = %v, want ErrAccessDenied", err)
	}

	info, err := uc.Execute(context.Background(), usecase.ReturnToAIInput{
		RoomCode: "platform-42",
		Viewer:   chat.Viewer{MemberID: 9, Role: chat.RolePlatformAdmin, AdminCode: "HQ-1"},
	})
	if err != nil {
		t.Fatalf("holder handback: %v", err)
	}
	if info.State != chat.StateAIActive {
		t.Fatalf("state = %s, want AI_ACTIVE", info.State)
	}

	// Departure notice plus the assistant's resume line.
	persisted := messages.all("platform-42")
	if len(persisted) != 2 || persisted[0].SenderID != chat.SystemSenderID || persisted[1].SenderID != chat.AISenderID {
		t.Fatalf("handback notices = %d messages", len(persisted))
	}
}

func TestReturnToAIRequeuesExpoRooms(t *testing.T) {
	room := chat.NewRoom(chat.ExpoRoomCode(7, 42), 42, "Kim", 7, "Tech Expo")
	room.State = chat.StateAdminActive
	room.AssignedAdmin = "EXPO7-A"
	room.AdminDisplayName = "Agent Lee"
	rooms := newMemRooms(room)
	uc := usecase.NewReturnToAIUseCase(rooms, &memMessages{}, &memSeq{}, &memBroadcast{})

	info, err := uc.Execute(context.Background(), usecase.ReturnToAIInput{
		RoomCode: "admin-7-42",
		Viewer:   chat.Viewer{MemberID: 9, Role: chat.RoleExpoAdmin, AdminCode: "EXPO7-A"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if info.State != chat.StateWaitingForAdmin {
		t.Fatalf("expo handback state = %s, want WAITING_FOR_ADMIN", info.State)
	}
}

// seqFrom seeds an allocator so the next allocation returns n+1.
func seqFrom(n int64) *memSeq {
	s := &memSeq{}
	s.last.Store(n)
	return s
}
