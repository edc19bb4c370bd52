package http

import (
	"github.com/gin-gonic/gin"

	"github.com/MYCE-Refactoring/myce-chat/internal/infrastructure/realtime"
	"github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/application/usecase"
	"github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/presentation/controller"
)

// UseCases bundles the wired application services the chat endpoints serve.
// Composition happens once in main; the HTTP layer only binds routes.
type UseCases struct {
	SendMessage    *usecase.SendMessageUseCase
	RequestHandoff *usecase.RequestHandoffUseCase
	CancelHandoff  *usecase.CancelHandoffUseCase
	AcceptHandoff  *usecase.AcceptHandoffUseCase
	Preempt        *usecase.PreemptInterveneUseCase
	ReturnToAI     *usecase.ReturnToAIUseCase
	MarkRead       *usecase.MarkReadUseCase
	UnreadCount    *usecase.GetUnreadCountUseCase
	BadgeCount     *usecase.GetBadgeCountUseCase
	Messages       *usecase.GetMessagesUseCase
	RoomState      *usecase.GetRoomStateUseCase
}

// RegisterRoutes registers chat-related HTTP endpoints under the given router
// group. It constructs per-endpoint controllers and binds them directly to
// routes.
func RegisterRoutes(g *gin.RouterGroup, ucs UseCases, hub *realtime.Hub) {
	sendCtl := controller.NewSendMessageController(ucs.SendMessage)
	requestCtl := controller.NewRequestHandoffController(ucs.RequestHandoff)
	cancelCtl := controller.NewCancelHandoffController(ucs.CancelHandoff)
	acceptCtl := controller.NewAcceptHandoffController(ucs.AcceptHandoff)
	preemptCtl := controller.NewPreemptInterveneController(ucs.Preempt)
	returnCtl := controller.NewReturnToAIController(ucs.ReturnToAI)
	readCtl := controller.NewMarkReadController(ucs.MarkRead)
	unreadCtl := controller.NewGetUnreadCountController(ucs.UnreadCount)
	badgeCtl := controller.NewGetBadgeCountController(ucs.BadgeCount)
	historyCtl := controller.NewGetMessagesController(ucs.Messages)
	stateCtl := controller.NewGetRoomStateController(ucs.RoomState)
	socketCtl := controller.NewChatSocketController(hub, ucs.SendMessage, ucs.MarkRead, ucs.RoomState)

	// POST /api/v1/chat/rooms/:roomCode/messages -> send a message
	g.POST("/chat/rooms/:roomCode/messages", sendCtl.Handle())

	// GET /api/v1/chat/rooms/:roomCode/messages -> paged history, newest first
	g.GET("/chat/rooms/:roomCode/messages", historyCtl.Handle())

	// GET /api/v1/chat/rooms/:roomCode -> lifecycle state and handoff button
	g.GET("/chat/rooms/:roomCode", stateCtl.Handle())

	// POST /api/v1/chat/rooms/:roomCode/handoff -> user requests a human agent
	g.POST("/chat/rooms/:roomCode/handoff", requestCtl.Handle())

	// DELETE /api/v1/chat/rooms/:roomCode/handoff -> user cancels the request
	g.DELETE("/chat/rooms/:roomCode/handoff", cancelCtl.Handle())

	// POST /api/v1/chat/rooms/:roomCode/handoff/accept -> admin takes the room
	g.POST("/chat/rooms/:roomCode/handoff/accept", acceptCtl.Handle())

	// POST /api/v1/chat/rooms/:roomCode/intervene -> admin preempts the assistant
	g.POST("/chat/rooms/:roomCode/intervene", preemptCtl.Handle())

	// POST /api/v1/chat/rooms/:roomCode/handback -> admin returns the room
	g.POST("/chat/rooms/:roomCode/handback", returnCtl.Handle())

	// POST /api/v1/chat/rooms/:roomCode/read -> advance the read watermark
	g.POST("/chat/rooms/:roomCode/read", readCtl.Handle())

	// GET /api/v1/chat/rooms/:roomCode/unread -> unread count for the caller
	g.GET("/chat/rooms/:roomCode/unread", unreadCtl.Handle())

	// GET /api/v1/chat/unread -> caller's unread total across their rooms
	g.GET("/chat/unread", badgeCtl.Handle())

	// GET /api/v1/chat/ws -> websocket endpoint for realtime chat
	g.GET("/chat/ws", socketCtl.Handle())
}
