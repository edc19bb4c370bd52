package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/MYCE-Refactoring/myce-chat/internal/infrastructure/realtime"
	httpHandler "github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/presentation/http"
)

// RegisterRoutes mounts all version 1 API routes under /api/v1
func RegisterRoutes(r *gin.Engine, ucs httpHandler.UseCases, hub *realtime.Hub) {
	v1 := r.Group("/api/v1")
	httpHandler.RegisterRoutes(v1, ucs, hub)
}
