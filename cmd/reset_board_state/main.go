package main

import (
	"log"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"sessionboard-backend/internal/config"
	"sessionboard-backend/internal/database"
	"sessionboard-backend/internal/model"
)

// 종료되었거나 보관된 세션에 남은 보드 잠금과 타이머를 해제한다.
func main() {
	cfg := config.Load()

	db, err := database.ConnectDB(cfg.Database, zerolog.Nop())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	log.Println("Database connected. Starting board state reset...")

	var cleared int64
	err = db.Transaction(func(tx *gorm.DB) error {
		// 1. 잠금 또는 타이머가 남아 있는 종료 세션
		var sessions []model.Session
		if err := tx.Where("status IN ?", []model.SessionStatus{model.SessionStatusCompleted, model.SessionStatusArchived}).
			Find(&sessions).Error; err != nil {
			return err
		}

		// 2. 보드 상태 초기화
		for _, s := range sessions {
			if !s.Board.Locked && !s.Board.TimerRunning {
				continue
			}
			log.Printf("Clearing board state of session %s (%s)\n", s.ID, s.Title)
			if err := tx.Model(&model.Session{ID: s.ID}).
				Select("board").
				Updates(&model.Session{Board: model.BoardState{}}).Error; err != nil {
				return err
			}
			cleared++
		}

		return nil
	})

	if err != nil {
		log.Fatalf("Failed to reset board state: %v", err)
	}

	log.Printf("Board state reset in %d sessions.\n", cleared)
}
