package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"sessionboard-backend/internal/config"
)

// New 설정에 맞는 zerolog 로거 생성
func New(cfg config.LogConfig, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stdout
	}
	if cfg.Pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.DateTime}
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// Setup 전역 로거 교체 (config.Load 이전 로그는 기본 로거로 출력됨)
func Setup(cfg config.LogConfig) zerolog.Logger {
	logger := New(cfg, os.Stdout)
	log.Logger = logger
	return logger
}

// Component 컴포넌트 태그가 붙은 하위 로거
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}

// Nop 테스트용 무출력 로거
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
