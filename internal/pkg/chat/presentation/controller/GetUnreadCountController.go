package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/application/usecase"
)

// GetUnreadCountController handles the unread-count endpoint only.
type GetUnreadCountController struct {
	uc *usecase.GetUnreadCountUseCase
}

func NewGetUnreadCountController(uc *usecase.GetUnreadCountUseCase) *GetUnreadCountController {
	return &GetUnreadCountController{uc: uc}
}

func (ctl *GetUnreadCountController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		viewer, ok := viewerFrom(c)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		count, err := ctl.uc.Execute(ctx, usecase.GetUnreadCountInput{
			RoomCode: c.Param("roomCode"),
			Viewer:   viewer,
		})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"roomCode":    c.Param("roomCode"),
			"unreadCount": count,
		})
	}
}
