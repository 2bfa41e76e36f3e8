package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Srujan0798/Rest-iN-U-sub003/internal/middleware"
	"github.com/Srujan0798/Rest-iN-U-sub003/internal/service"
)

// MessageHandler serves conversation history: the catch-up path for
// recipients who were offline when a message arrived.
type MessageHandler struct {
	messaging *service.MessagingService
}

func NewMessageHandler(messaging *service.MessagingService) *MessageHandler {
	if messaging == nil {
		panic("MessagingService cannot be nil for MessageHandler")
	}
	return &MessageHandler{messaging: messaging}
}

func (h *MessageHandler) GetConversation(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}
	peer := c.Param("peer")
	if peer == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Peer identity is required"})
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 200 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = parsed
	}

	msgs, err := h.messaging.History(c.Request.Context(), identity, peer, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load conversation"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}
