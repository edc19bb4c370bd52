package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/application/usecase"
)

// AcceptHandoffController handles the handoff-accept endpoint only.
type AcceptHandoffController struct {
	uc *usecase.AcceptHandoffUseCase
}

func NewAcceptHandoffController(uc *usecase.AcceptHandoffUseCase) *AcceptHandoffController {
	return &AcceptHandoffController{uc: uc}
}

// Handle takes the waiting room for the calling admin. The budget is generous
// because the assistant summary runs inside this request after the takeover
// is already committed.
func (ctl *AcceptHandoffController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		viewer, ok := viewerFrom(c)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()

		info, err := ctl.uc.Execute(ctx, usecase.AcceptHandoffInput{
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
