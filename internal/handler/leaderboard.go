package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"mathbubble-server/internal/game"
)

// LeaderboardHandler exposes the durable leaderboard over REST, for clients
// that want the standings without opening a socket.
type LeaderboardHandler struct {
	Game *game.Coordinator
}

func (h *LeaderboardHandler) Get(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = parsed
	}

	profiles, err := h.Game.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Leaderboard unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"profiles": profiles})
}
