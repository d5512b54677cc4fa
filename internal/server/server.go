package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"sessionboard-backend/internal/auth"
	"sessionboard-backend/internal/cache"
	"sessionboard-backend/internal/config"
	"sessionboard-backend/internal/handler"
	"sessionboard-backend/internal/logging"
	"sessionboard-backend/internal/middleware"
	"sessionboard-backend/internal/presence"
	"sessionboard-backend/internal/realtime"
	"sessionboard-backend/internal/service"
	"sessionboard-backend/internal/store"
)

// Server Fiber 서버 래퍼
type Server struct {
	app    *fiber.App
	cfg    *config.Config
	store  store.Store
	redis  *cache.RedisClient
	log    zerolog.Logger
	cancel context.CancelFunc

	board      *service.Board
	hub        *realtime.Hub
	tracker    *presence.Tracker
	jwtManager *auth.JWTManager

	sessionMiddleware  *middleware.SessionMiddleware
	healthHandler      *handler.HealthHandler
	sessionHandler     *handler.SessionHandler
	canvasHandler      *handler.CanvasHandler
	chatHandler        *handler.ChatHandler
	questionHandler    *handler.QuestionHandler
	ideaHandler        *handler.IdeaHandler
	facilitatorHandler *handler.FacilitatorHandler
	activityHandler    *handler.ActivityHandler
	presenceHandler    *handler.PresenceHandler
	boardWSHandler     *handler.BoardWSHandler
}

// authorizeFor 허브 구독 시 세션 접근 게이트 재확인
func authorizeFor(board *service.Board) realtime.AuthorizeFunc {
	return func(ctx context.Context, sessionID string, userID int64) (realtime.Grant, error) {
		access, state, err := board.Authorize(ctx, sessionID, userID)
		if err != nil {
			return realtime.Grant{}, err
		}
		return realtime.Grant{
			CanWrite:    access.CanWrite(),
			Facilitator: access.Facilitator,
			Locked:      state.Locked,
		}, nil
	}
}

// New 새 서버 인스턴스 생성
//
// 허브는 여기서 시작되므로 라우트가 마운트되기 전에 항상 실행 중이다.
// redisClient가 nil이면 단일 인스턴스(메모리 접속자 저장소, 릴레이 없음)로 동작한다.
func New(ctx context.Context, cfg *config.Config, st store.Store, redisClient *cache.RedisClient, log zerolog.Logger) *Server {
	ctx, cancel := context.WithCancel(ctx)

	app := fiber.New(fiber.Config{
		AppName:               "Session Board Realtime Backend",
		ServerHeader:          "Fiber",
		StrictRouting:         true,
		CaseSensitive:         true,
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		IdleTimeout:           cfg.Server.IdleTimeout,
		Prefork:               false, // WebSocket과 호환성 문제로 비활성화
		ReadBufferSize:        16384,
		WriteBufferSize:       16384,
		BodyLimit:             cfg.Server.BodyLimit,
		DisableStartupMessage: true,
	})

	// 실시간 허브 (보드보다 먼저 시작)
	board := service.NewBoard(st, service.WithLogger(log))
	hub := realtime.NewHub(authorizeFor(board),
		realtime.WithQueueSize(cfg.Sync.HubQueueSize),
		realtime.WithInstanceID(cfg.Server.InstanceID),
		realtime.WithLogger(log),
	)
	hub.Start(ctx)
	board.SetPublisher(hub)

	// 접속자 저장소: Redis 사용 시 인스턴스 간 공유
	var presenceStore presence.Store = presence.NewMemoryStore(clock.New(), cfg.Sync.PresenceTTL)
	var redisHealth handler.RedisPinger
	if redisClient != nil {
		presenceStore = presence.NewRedisStore(redisClient, cfg.Sync.PresenceTTL)
		redisHealth = redisClient

		relay := realtime.NewRedisRelay(redisClient, cfg.Server.InstanceID, log)
		hub.SetRelay(relay)
		go func() {
			if err := relay.Listen(ctx, hub); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("❌ Redis relay stopped")
			}
		}()
		log.Info().Msg("✅ Redis relay enabled (multi-instance fan-out)")
	} else {
		log.Info().Msg("ℹ️ Redis not configured (single instance mode)")
	}
	tracker := presence.NewTracker(presenceStore, hub, log)
	sweepEvery := cfg.Sync.PresenceSweepGap
	if sweepEvery <= 0 {
		sweepEvery = 30 * time.Second
	}
	go tracker.RunSweeper(ctx, clock.New(), sweepEvery)

	return &Server{
		app:        app,
		cfg:        cfg,
		store:      st,
		redis:      redisClient,
		log:        logging.Component(log, "Server"),
		cancel:     cancel,
		board:      board,
		hub:        hub,
		tracker:    tracker,
		jwtManager: auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenExpiry),

		sessionMiddleware:  middleware.NewSessionMiddleware(board),
		healthHandler:      handler.NewHealthHandler(st, redisHealth),
		sessionHandler:     handler.NewSessionHandler(board),
		canvasHandler:      handler.NewCanvasHandler(board),
		chatHandler:        handler.NewChatHandler(board),
		questionHandler:    handler.NewQuestionHandler(board),
		ideaHandler:        handler.NewIdeaHandler(board),
		facilitatorHandler: handler.NewFacilitatorHandler(board),
		activityHandler:    handler.NewActivityHandler(board),
		presenceHandler:    handler.NewPresenceHandler(tracker),
		boardWSHandler:     handler.NewBoardWSHandler(hub, tracker, cfg.WebSocket.WriteTimeout, log),
	}
}

// App Fiber 앱 (테스트용)
func (s *Server) App() *fiber.App {
	return s.app
}

// SetupMiddleware 미들웨어 설정
func (s *Server) SetupMiddleware() {
	// 패닉 복구
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	// 로깅
	s.app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${ip} | ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "UTC",
	}))

	// CORS
	s.app.Use(cors.New(cors.Config{
		AllowOrigins:     s.cfg.CORS.AllowOrigins,
		AllowHeaders:     s.cfg.CORS.AllowHeaders,
		AllowMethods:     "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		AllowCredentials: s.cfg.CORS.AllowOrigins != "*",
	}))
}

// SetupRoutes 라우트 설정
func (s *Server) SetupRoutes() {
	// 헬스체크 엔드포인트
	s.app.Get("/health", s.healthHandler.Check)
	s.app.Get("/health/live", s.healthHandler.Liveness)
	s.app.Get("/health/ready", s.healthHandler.Readiness)

	// Rate Limiter 설정 (세션 참가용 - 비밀번호 Brute Force 방지)
	joinLimiter := limiter.New(limiter.Config{
		Max:        s.cfg.Auth.JoinRateLimit,
		Expiration: s.cfg.Auth.JoinRateWindow,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "|" + c.Params("id") // IP + 세션 기반 제한
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"error":   "too many requests, please try again later",
			})
		},
	})

	authRequired := auth.AuthMiddleware(s.jwtManager)

	// Session 라우트 그룹 (인증 필요)
	sessions := s.app.Group("/api/sessions", authRequired)
	sessions.Post("", s.sessionHandler.CreateSession)
	sessions.Get("", s.sessionHandler.ListSessions)
	sessions.Get("/:id", s.sessionHandler.GetSession)
	sessions.Patch("/:id", s.sessionHandler.UpdateSession)
	sessions.Delete("/:id", s.sessionHandler.DeleteSession)
	sessions.Post("/:id/start", s.sessionHandler.StartSession)
	sessions.Post("/:id/end", s.sessionHandler.EndSession)
	sessions.Post("/:id/join", joinLimiter, s.sessionHandler.JoinSession)
	sessions.Post("/:id/leave", s.sessionHandler.LeaveSession)

	// Canvas 라우트 (세션 하위)
	sessions.Get("/:id/elements", s.canvasHandler.ListElements)
	sessions.Post("/:id/elements", s.canvasHandler.CreateElement)
	sessions.Delete("/:id/elements", s.canvasHandler.DeleteAllElements)
	sessions.Patch("/:id/elements/:elementId", s.canvasHandler.UpdateElement)
	sessions.Delete("/:id/elements/:elementId", s.canvasHandler.DeleteElement)
	sessions.Post("/:id/elements/:elementId/vote", s.canvasHandler.VoteElement)
	sessions.Delete("/:id/elements/:elementId/vote", s.canvasHandler.RetractVote)
	sessions.Put("/:id/elements/:elementId/zone", s.canvasHandler.AssignZone)
	sessions.Put("/:id/elements/:elementId/lock", s.canvasHandler.SetElementLock)

	// Chat 라우트
	sessions.Get("/:id/messages", s.chatHandler.ListMessages)
	sessions.Post("/:id/messages", s.chatHandler.PostMessage)
	sessions.Patch("/:id/messages/:messageId", s.chatHandler.EditMessage)
	sessions.Delete("/:id/messages/:messageId", s.chatHandler.DeleteMessage)
	sessions.Post("/:id/messages/:messageId/reactions", s.chatHandler.ReactMessage)

	// Q&A 라우트
	sessions.Get("/:id/questions", s.questionHandler.ListQuestions)
	sessions.Post("/:id/questions", s.questionHandler.AskQuestion)
	sessions.Post("/:id/questions/:questionId/answer", s.questionHandler.AnswerQuestion)
	sessions.Post("/:id/questions/:questionId/vote", s.questionHandler.VoteQuestion)
	sessions.Post("/:id/questions/:questionId/archive", s.questionHandler.ArchiveQuestion)

	// Idea, Zone 라우트
	sessions.Get("/:id/ideas", s.ideaHandler.ListIdeas)
	sessions.Post("/:id/ideas", s.ideaHandler.AddIdea)
	sessions.Get("/:id/zones", s.ideaHandler.ListZones)
	sessions.Post("/:id/zones", s.ideaHandler.AddZone)
	sessions.Delete("/:id/zones/:zoneId", s.ideaHandler.RemoveZone)

	// Facilitator 라우트 (진행자 전용)
	requireFacilitator := s.sessionMiddleware.RequireFacilitator()
	sessions.Post("/:id/facilitator/lock", requireFacilitator, s.facilitatorHandler.LockBoard)
	sessions.Post("/:id/facilitator/unlock", requireFacilitator, s.facilitatorHandler.UnlockBoard)
	sessions.Post("/:id/facilitator/timer/start", requireFacilitator, s.facilitatorHandler.StartTimer)
	sessions.Post("/:id/facilitator/timer/stop", requireFacilitator, s.facilitatorHandler.StopTimer)

	// Activity, Presence 라우트
	sessions.Get("/:id/activities", s.activityHandler.Timeline)
	sessions.Get("/:id/activities/users/:userId", s.activityHandler.UserSummary)
	sessions.Get("/:id/presence", s.sessionMiddleware.RequireRead(), s.presenceHandler.GetPresence)

	// WebSocket 업그레이드 체크 미들웨어
	s.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// WebSocket 보드 엔드포인트 (토큰: 쿼리, 헤더, 쿠키)
	s.app.Get("/ws/board", authRequired, websocket.New(s.boardWSHandler.HandleWebSocket, websocket.Config{
		HandshakeTimeout: s.cfg.WebSocket.HandshakeTimeout,
		ReadBufferSize:   s.cfg.WebSocket.ReadBufferSize,
		WriteBufferSize:  s.cfg.WebSocket.WriteBufferSize,
	}))
}

// Start 서버 시작 (Graceful Shutdown 지원)
func (s *Server) Start() error {
	// Graceful Shutdown 설정
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		s.log.Info().Msg("🛑 Shutting down server...")
		if err := s.Shutdown(); err != nil {
			s.log.Error().Err(err).Msg("server shutdown error")
		}
	}()

	s.log.Info().Str("port", s.cfg.Server.Port).Str("instance", s.cfg.Server.InstanceID).Msg("🚀 Session board backend starting")
	s.log.Info().Msgf("📡 WebSocket endpoint: ws://localhost%s/ws/board", s.cfg.Server.Port)

	return s.app.Listen(s.cfg.Server.Port)
}

// Shutdown 서버 종료 (허브, 스위퍼, 릴레이 정지)
func (s *Server) Shutdown() error {
	err := s.app.ShutdownWithTimeout(30 * time.Second)
	s.cancel()
	return err
}
