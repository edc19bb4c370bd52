package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	chat "github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/application/domain"
	"github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/application/usecase"
)

// SendMessageController handles the send-message endpoint only (one controller per endpoint)
type SendMessageController struct {
	uc *usecase.SendMessageUseCase
}

func NewSendMessageController(uc *usecase.SendMessageUseCase) *SendMessageController {
	return &SendMessageController{uc: uc}
}

type sendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

type sendMessageResponse struct {
	Message messageView  `json:"message"`
	AIReply *messageView `json:"aiReply,omitempty"`
}

type messageView struct {
	MessageID  string          `json:"messageId"`
	RoomCode   chat.RoomCode   `json:"roomCode"`
	Seq        int64           `json:"seq"`
	SenderID   int64           `json:"senderId"`
	SenderRole chat.SenderRole `json:"senderRole"`
	SenderName string          `json:"senderName"`
	Content    string          `json:"content"`
	SentAt     time.Time       `json:"sentAt"`
}

func toMessageView(m *chat.Message) messageView {
	return messageView{
		MessageID:  m.ID,
		RoomCode:   m.RoomCode,
		Seq:        m.Seq,
		SenderID:   m.SenderID,
		SenderRole: m.SenderRole,
		SenderName: m.SenderName,
		Content:    m.Content,
		SentAt:     m.SentAt,
	}
}

// Handle accepts a message for the room and returns what was persisted,
// including the assistant reply when one was generated synchronously.
func (ctl *SendMessageController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		viewer, ok := viewerFrom(c)
		if !ok {
			return
		}

		var req sendMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()

		out, err := ctl.uc.Execute(ctx, usecase.SendMessageInput{
			RoomCode: c.Param("roomCode"),
			Viewer:   viewer,
			Content:  req.Content,
		})
		if err != nil {
			writeError(c, err)
			return
		}

		resp := sendMessageResponse{Message: toMessageView(out.Message)}
		if out.AIReply != nil {
			v := toMessageView(out.AIReply)
			resp.AIReply = &v
		}
		c.JSON(http.StatusCreated, resp)
	}
}
