package main

import (
	"context"

	"github.com/rs/zerolog/log"

	"sessionboard-backend/internal/cache"
	"sessionboard-backend/internal/config"
	"sessionboard-backend/internal/database"
	"sessionboard-backend/internal/logging"
	"sessionboard-backend/internal/server"
)

func main() {
	// 설정 로드
	cfg := config.Load()
	logger := logging.Setup(cfg.Log)

	// 저장소 연결 (postgres | memory)
	st, err := database.OpenStore(cfg.Database, logger)
	if err != nil {
		log.Fatal().Err(err).Msg("❌ Database connection failed")
	}
	defer st.Close()

	// Ping 테스트
	if err := st.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("❌ Database ping failed")
	}

	// Redis 연결 (선택적, 실패 시 단일 인스턴스로 동작)
	var redisClient *cache.RedisClient
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedisClient(cfg.Redis, logger)
		if err != nil {
			log.Warn().Err(err).Msg("⚠️ Redis connection failed, continuing without multi-instance fan-out")
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	// 서버 생성 및 설정
	srv := server.New(context.Background(), cfg, st, redisClient, logger)
	srv.SetupMiddleware()
	srv.SetupRoutes()

	// 서버 시작
	if err := srv.Start(); err != nil {
		log.Fatal().Err(err).Msg("Server failed to start")
	}
}
