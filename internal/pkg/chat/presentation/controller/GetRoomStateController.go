package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/application/usecase"
)

// GetRoomStateController handles the room-state endpoint only.
type GetRoomStateController struct {
	uc *usecase.GetRoomStateUseCase
}

func NewGetRoomStateController(uc *usecase.GetRoomStateUseCase) *GetRoomStateController {
	return &GetRoomStateController{uc: uc}
}

func (ctl *GetRoomStateController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		viewer, ok := viewerFrom(c)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		out, err := ctl.uc.Execute(ctx, usecase.GetRoomStateInput{
			RoomCode: c.Param("roomCode"),
			Viewer:   viewer,
		})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}
