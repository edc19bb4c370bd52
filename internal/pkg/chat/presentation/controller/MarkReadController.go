package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/application/usecase"
)

// MarkReadController handles the mark-read endpoint only.
type MarkReadController struct {
	uc *usecase.MarkReadUseCase
}

func NewMarkReadController(uc *usecase.MarkReadUseCase) *MarkReadController {
	return &MarkReadController{uc: uc}
}

type markReadRequest struct {
	LastReadSeq int64 `json:"lastReadSeq" binding:"required"`
}

func (ctl *MarkReadController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		viewer, ok := viewerFrom(c)
		if !ok {
			return
		}

		var req markReadRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		out, err := ctl.uc.Execute(ctx, usecase.MarkReadInput{
			RoomCode: c.Param("roomCode"),
			Viewer:   viewer,
			UptoSeq:  req.LastReadSeq,
		})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"reader":      out.Reader,
			"lastReadSeq": out.LastReadSeq,
			"advanced":    out.Advanced,
		})
	}
}
