package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/application/usecase"
)

// RequestHandoffController handles the handoff-request endpoint only.
type RequestHandoffController struct {
	uc *usecase.RequestHandoffUseCase
}

func NewRequestHandoffController(uc *usecase.RequestHandoffUseCase) *RequestHandoffController {
	return &RequestHandoffController{uc: uc}
}

func (ctl *RequestHandoffController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		viewer, ok := viewerFrom(c)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		info, err := ctl.uc.Execute(ctx, usecase.RequestHandoffInput{
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
