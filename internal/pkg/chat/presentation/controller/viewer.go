package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	chat "github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/application/domain"
)

// Identity headers set by the edge gateway after authentication. This service
// trusts them as-is; it is not reachable without passing the gateway.
const (
	headerMemberID    = "X-Member-Id"
	headerMemberRole  = "X-Member-Role"
	headerDisplayName = "X-Display-Name"
	headerAdminCode   = "X-Admin-Code"
)

// viewerFrom builds the acting identity from the gateway headers. It writes
// the 401 response itself and returns ok=false when the identity is unusable.
func viewerFrom(c *gin.Context) (chat.Viewer, bool) {
	memberID, err := strconv.ParseInt(c.GetHeader(headerMemberID), 10, 64)
	if err != nil || memberID <= 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid member identity"})
		return chat.Viewer{}, false
	}

	role := chat.Role(c.GetHeader(headerMemberRole))
	switch role {
	case chat.RoleUser, chat.RoleExpoAdmin, chat.RoleExpoSuper, chat.RolePlatformAdmin:
	case "":
		role = chat.RoleUser
	default:
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown member role"})
		return chat.Viewer{}, false
	}

	return chat.Viewer{
		MemberID:    memberID,
		Role:        role,
		DisplayName: c.GetHeader(headerDisplayName),
		AdminCode:   c.GetHeader(headerAdminCode),
	}, true
}
