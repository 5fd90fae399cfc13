package server

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"mathbubble-server/internal/game"
	"mathbubble-server/internal/handler"
	"mathbubble-server/internal/middleware"
	"mathbubble-server/internal/socketio"
)

type Deps struct {
	Game   *game.Coordinator
	Logger *slog.Logger
}

func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	leaderboardLimiter := middleware.NewRateLimiter(30, time.Minute)
	leaderboardHandler := &handler.LeaderboardHandler{Game: deps.Game}
	r.GET("/v1/leaderboard", middleware.RateLimitMiddleware(leaderboardLimiter), leaderboardHandler.Get)

	sio := socketio.NewServer(socketio.Deps{Game: deps.Game, Logger: deps.Logger})
	r.GET("/socket.io/", gin.WrapH(sio))

	return r
}
