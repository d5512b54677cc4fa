package database

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"sessionboard-backend/internal/config"
	"sessionboard-backend/internal/store"
)

// gormWriter GORM 로그를 zerolog로 전달
type gormWriter struct {
	log zerolog.Logger
}

func (w gormWriter) Printf(format string, args ...interface{}) {
	w.log.Warn().Msgf(format, args...)
}

// NewGormLogger zerolog 기반 GORM 로거
func NewGormLogger(log zerolog.Logger) logger.Interface {
	return logger.New(
		gormWriter{log: log.With().Str("component", "DB").Logger()},
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

// ConnectDB 데이터베이스 연결 수립 및 스키마 마이그레이션
func ConnectDB(cfg config.DatabaseConfig, log zerolog.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:         NewGormLogger(log),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// 커넥션 풀 설정
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	if err := db.AutoMigrate(store.Models()...); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return db, nil
}

// OpenStore 설정의 드라이버에 맞는 저장소 생성 (postgres | memory)
func OpenStore(cfg config.DatabaseConfig, log zerolog.Logger) (store.Store, error) {
	switch cfg.Driver {
	case "memory":
		log.Warn().Msg("⚠️ Using in-memory store, data is lost on restart")
		return store.NewMemoryStore(), nil
	case "postgres", "":
		db, err := ConnectDB(cfg, log)
		if err != nil {
			return nil, err
		}
		log.Info().Str("host", cfg.Host).Str("db", cfg.DBName).Msg("✅ Database connected successfully")
		return store.NewGormStore(db), nil
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.Driver)
	}
}
