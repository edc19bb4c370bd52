package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/application/usecase"
)

// ReturnToAIController handles the handback endpoint only.
type ReturnToAIController struct {
	uc *usecase.ReturnToAIUseCase
}

func NewReturnToAIController(uc *usecase.ReturnToAIUseCase) *ReturnToAIController {
	return &ReturnToAIController{uc: uc}
}

func (ctl *ReturnToAIController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		viewer, ok := viewerFrom(c)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		info, err := ctl.uc.Execute(ctx, usecase.ReturnToAIInput{
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
