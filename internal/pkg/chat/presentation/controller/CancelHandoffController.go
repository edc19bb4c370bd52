package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/application/usecase"
)

// CancelHandoffController handles the handoff-cancel endpoint only.
type CancelHandoffController struct {
	uc *usecase.CancelHandoffUseCase
}

func NewCancelHandoffController(uc *usecase.CancelHandoffUseCase) *CancelHandoffController {
	return &CancelHandoffController{uc: uc}
}

func (ctl *CancelHandoffController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		viewer, ok := viewerFrom(c)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		info, err := ctl.uc.Execute(ctx, usecase.CancelHandoffInput{
			RoomCode: c.Param("roomCode"),
			Viewer:   viewer,
		})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, info)
	}
}
