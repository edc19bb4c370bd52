package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/MYCE-Refactoring/myce-chat/internal/infrastructure/realtime"
	chat "github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/application/domain"
	"github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/application/usecase"
)

// ChatSocketController handles the websocket endpoint for realtime chat traffic.
type ChatSocketController struct {
	hub             *realtime.Hub
	sendMessageUC   *usecase.SendMessageUseCase
	markReadUC      *usecase.MarkReadUseCase
	roomStateUC     *usecase.GetRoomStateUseCase
	inflightTimeout time.Duration
}

func NewChatSocketController(hub *realtime.Hub, send *usecase.SendMessageUseCase, markRead *usecase.MarkReadUseCase, roomState *usecase.GetRoomStateUseCase) *ChatSocketController {
	return &ChatSocketController{
		hub:             hub,
		sendMessageUC:   send,
		markReadUC:      markRead,
		roomStateUC:     roomState,
		inflightTimeout: 30 * time.Second,
	}
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The edge gateway terminates origin checks before traffic gets here.
		return true
	},
}

type inboundFrame struct {
	Type        string `json:"type"`
	RoomCode    string `json:"roomCode,omitempty"`
	Content     string `json:"content,omitempty"`
	LastReadSeq int64  `json:"lastReadSeq,omitempty"`
}

type errorFrame struct {
	Type  string `json:"type"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

type ackFrame struct {
	Type     string `json:"type"`
	RoomCode string `json:"roomCode,omitempty"`
}

const defaultReadTimeout = 60 * time.Second

// Handle upgrades HTTP connections to websocket and processes frames until
// the client disconnects. Browsers cannot set headers on the upgrade request,
// so the identity arrives as query parameters instead.
func (ctl *ChatSocketController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		viewer, ok := viewerFromQuery(c)
		if !ok {
			return
		}

		ws, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the response; just return.
			return
		}

		conn := realtime.NewConnection(viewer.MemberID, viewer.Role.IsAdminRole(), ws)
		ctl.hub.Attach(conn)
		defer func() {
			ctl.hub.Detach(conn)
			conn.Close(websocket.CloseNormalClosure, "session closed")
		}()

		ws.SetReadLimit(1 << 20) // 1MB payload cap
		_ = ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
		})

		if payload, err := json.Marshal(ackFrame{Type: "connected"}); err == nil {
			_ = conn.Send(payload)
		}

		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) ||
					errors.Is(err, websocket.ErrCloseSent) {
					return
				}
				ctl.replyError(conn, "read_error", err.Error())
				return
			}

			var frame inboundFrame
			if err := json.Unmarshal(data, &frame); err != nil {
				ctl.replyError(conn, "bad_request", "invalid payload")
				continue
			}

			switch frame.Type {
			case "join":
				ctl.handleJoin(c, conn, viewer, frame)
			case "leave":
				ctl.handleLeave(conn, frame)
			case "message":
				ctl.handleMessage(c, conn, viewer, frame)
			case "read":
				ctl.handleRead(c, conn, viewer, frame)
			case "admin_feed":
				ctl.handleAdminFeed(conn)
			default:
				ctl.replyError(conn, "unsupported_type", "unknown frame type")
			}
		}
	}
}

// viewerFromQuery is the websocket variant of viewerFrom.
func viewerFromQuery(c *gin.Context) (chat.Viewer, bool) {
	memberID, err := strconv.ParseInt(c.Query("memberId"), 10, 64)
	if err != nil || memberID <= 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid member identity"})
		return chat.Viewer{}, false
	}
	role := chat.Role(c.Query("role"))
	switch role {
	case chat.RoleUser, chat.RoleExpoAdmin, chat.RoleExpoSuper, chat.RolePlatformAdmin:
	case "":
		role = chat.RoleUser
	default:
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown member role"})
		return chat.Viewer{}, false
	}
	return chat.Viewer{
		MemberID:    memberID,
		Role:        role,
		DisplayName: c.Query("displayName"),
		AdminCode:   c.Query("adminCode"),
	}, true
}

func (ctl *ChatSocketController) handleJoin(c *gin.Context, conn *realtime.Connection, viewer chat.Viewer, frame inboundFrame) {
	if frame.RoomCode == "" {
		ctl.replyError(conn, "bad_request", "roomCode is required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ctl.inflightTimeout)
	defer cancel()

	// Room-state read doubles as the access check for the topic.
	if _, err := ctl.roomStateUC.Execute(ctx, usecase.GetRoomStateInput{RoomCode: frame.RoomCode, Viewer: viewer}); err != nil {
		if errors.Is(err, chat.ErrRoomNotFound) && viewer.MemberID == chat.RoomCode(frame.RoomCode).MemberID() {
			// First contact: the room appears with the first message, but
			// the participant may already listen on its topic.
		} else {
			ctl.handleUseCaseError(conn, err)
			return
		}
	}

	ctl.hub.Join(chat.RoomCode(frame.RoomCode), conn)
	if payload, err := json.Marshal(ackFrame{Type: "joined", RoomCode: frame.RoomCode}); err == nil {
		_ = conn.Send(payload)
	}
}

func (ctl *ChatSocketController) handleLeave(conn *realtime.Connection, frame inboundFrame) {
	if frame.RoomCode == "" {
		ctl.replyError(conn, "bad_request", "roomCode is required")
		return
	}
	ctl.hub.Leave(chat.RoomCode(frame.RoomCode), conn)
	if payload, err := json.Marshal(ackFrame{Type: "left", RoomCode: frame.RoomCode}); err == nil {
		_ = conn.Send(payload)
	}
}

func (ctl *ChatSocketController) handleMessage(c *gin.Context, conn *realtime.Connection, viewer chat.Viewer, frame inboundFrame) {
	if frame.RoomCode == "" {
		ctl.replyError(conn, "bad_request", "roomCode is required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ctl.inflightTimeout)
	defer cancel()

	// The use case broadcasts to the room topic itself; nothing to fan out
	// here beyond the error path.
	if _, err := ctl.sendMessageUC.Execute(ctx, usecase.SendMessageInput{
		RoomCode: frame.RoomCode,
		Viewer:   viewer,
		Content:  frame.Content,
	}); err != nil {
		ctl.handleUseCaseError(conn, err)
	}
}

func (ctl *ChatSocketController) handleRead(c *gin.Context, conn *realtime.Connection, viewer chat.Viewer, frame inboundFrame) {
	if frame.RoomCode == "" || frame.LastReadSeq <= 0 {
		ctl.replyError(conn, "bad_request", "roomCode and lastReadSeq are required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ctl.inflightTimeout)
	defer cancel()

	if _, err := ctl.markReadUC.Execute(ctx, usecase.MarkReadInput{
		RoomCode: frame.RoomCode,
		Viewer:   viewer,
		UptoSeq:  frame.LastReadSeq,
	}); err != nil {
		ctl.handleUseCaseError(conn, err)
	}
}

func (ctl *ChatSocketController) handleAdminFeed(conn *realtime.Connection) {
	if !conn.AdminSide {
		ctl.replyError(conn, "forbidden", "admin feed requires an admin session")
		return
	}
	ctl.hub.SubscribeAdminFeed(conn)
	if payload, err := json.Marshal(ackFrame{Type: "admin_feed_subscribed"}); err == nil {
		_ = conn.Send(payload)
	}
}

func (ctl *ChatSocketController) handleUseCaseError(conn *realtime.Connection, err error) {
	switch {
	case errors.Is(err, chat.ErrRoomNotFound):
		ctl.replyError(conn, "not_found", err.Error())
	case errors.Is(err, chat.ErrAccessDenied):
		ctl.replyError(conn, "forbidden", err.Error())
	case errors.Is(err, chat.ErrInvalidState):
		ctl.replyError(conn, "conflict", err.Error())
	case errors.Is(err, chat.ErrDependency):
		ctl.replyError(conn, "internal_error", "a backing service is unavailable")
	default:
		ctl.replyError(conn, "bad_request", err.Error())
	}
}

func (ctl *ChatSocketController) replyError(conn *realtime.Connection, code string, message string) {
	frame := errorFrame{Type: "error", Code: code, Error: message}
	if payload, err := json.Marshal(frame); err == nil {
		_ = conn.Send(payload)
	}
}
