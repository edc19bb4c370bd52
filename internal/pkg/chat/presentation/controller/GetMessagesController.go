package controller

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/application/usecase"
)

// GetMessagesController handles the history endpoint only.
type GetMessagesController struct {
	uc *usecase.GetMessagesUseCase
}

func NewGetMessagesController(uc *usecase.GetMessagesUseCase) *GetMessagesController {
	return &GetMessagesController{uc: uc}
}

// Handle serves one page of room history, newest first.
func (ctl *GetMessagesController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		viewer, ok := viewerFrom(c)
		if !ok {
			return
		}

		page, _ := strconv.Atoi(c.DefaultQuery("page", "0"))
		size, _ := strconv.Atoi(c.DefaultQuery("size", "30"))

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		out, err := ctl.uc.Execute(ctx, usecase.GetMessagesInput{
			RoomCode: c.Param("roomCode"),
			Viewer:   viewer,
			Page:     page,
			Size:     size,
		})
		if err != nil {
			writeError(c, err)
			return
		}

		views := make([]messageView, 0, len(out.Messages))
		for i := range out.Messages {
			views = append(views, toMessageView(&out.Messages[i]))
		}
		c.JSON(http.StatusOK, gin.H{
			"messages": views,
			"total":    out.Total,
			"page":     out.Page,
			"size":     out.Size,
		})
	}
}
