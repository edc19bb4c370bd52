package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/application/usecase"
)

// PreemptInterveneController handles the admin-intervention endpoint only.
type PreemptInterveneController struct {
	uc *usecase.PreemptInterveneUseCase
}

func NewPreemptInterveneController(uc *usecase.PreemptInterveneUseCase) *PreemptInterveneController {
	return &PreemptInterveneController{uc: uc}
}

func (ctl *PreemptInterveneController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		viewer, ok := viewerFrom(c)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		info, err := ctl.uc.Execute(ctx, usecase.PreemptInterveneInput{
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
