package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/application/usecase"
)

// GetBadgeCountController serves the caller's cross-room unread total.
type GetBadgeCountController struct {
	uc *usecase.GetBadgeCountUseCase
}

func NewGetBadgeCountController(uc *usecase.GetBadgeCountUseCase) *GetBadgeCountController {
	return &GetBadgeCountController{uc: uc}
}

func (ctl *GetBadgeCountController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		viewer, ok := viewerFrom(c)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		out, err := ctl.uc.Execute(ctx, usecase.GetBadgeCountInput{Viewer: viewer})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}
