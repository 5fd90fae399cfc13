package main

import (
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"

	"mathbubble-server/internal/config"
	"mathbubble-server/internal/game"
	"mathbubble-server/internal/registry"
	"mathbubble-server/internal/server"
	"mathbubble-server/internal/store"
	"mathbubble-server/internal/store/memory"
	redisstore "mathbubble-server/internal/store/redis"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	gin.SetMode(cfg.GinMode)

	var profiles store.ProfileStore
	switch cfg.Storage {
	case config.StorageRedis:
		redisCfg := redisstore.DefaultConfig()
		redisCfg.URL = cfg.RedisURL
		profiles, err = redisstore.New(redisCfg)
		if err != nil {
			logger.Error("redis connection failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	default:
		profiles = memory.New()
	}
	defer profiles.Close()

	coordinator := game.New(game.Deps{
		Store:            profiles,
		Registry:         registry.New(),
		Logger:           logger,
		LeaderboardLimit: cfg.LeaderboardLimit,
	})

	router := server.NewRouter(server.Deps{Game: coordinator, Logger: logger})

	logger.Info("listening",
		slog.Int("port", cfg.Port),
		slog.String("storage", cfg.Storage))
	if err := server.Run(cfg, router); err != nil {
		logger.Error("server stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
