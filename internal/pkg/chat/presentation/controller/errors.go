package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	chat "github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/application/domain"
)

// writeError maps the domain error taxonomy onto HTTP statuses. Anything
// unclassified is treated as a bad request so internals never leak as 500s
// for caller mistakes.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, chat.ErrInvalidRoomCode):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, chat.ErrRoomNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, chat.ErrAccessDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, chat.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, chat.ErrDependency):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "a backing service is unavailable"})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}
