package main

import (
	"log"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"sessionboard-backend/internal/config"
	"sessionboard-backend/internal/database"
	"sessionboard-backend/internal/model"
)

// 진행자 목록과 참가자 역할이 어긋난 세션을 바로잡는다.
// 생성자가 참가자 목록에 없으면 facilitator로 추가한다.
func main() {
	cfg := config.Load()

	db, err := database.ConnectDB(cfg.Database, zerolog.Nop())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	log.Println("Database connected. Starting participant role fix...")

	var fixed int
	err = db.Transaction(func(tx *gorm.DB) error {
		var sessions []model.Session
		if err := tx.Find(&sessions).Error; err != nil {
			return err
		}

		log.Printf("Checking %d sessions.\n", len(sessions))

		for i := range sessions {
			s := &sessions[i]
			changed := s.AddParticipant(s.CreatorID, model.RoleFacilitator, time.Now().UTC())
			if changed {
				log.Printf("Adding creator %d to session %s\n", s.CreatorID, s.ID)
			}

			for j := range s.Participants {
				p := &s.Participants[j]
				want := p.Role
				switch {
				case s.IsFacilitator(p.UserID):
					want = model.RoleFacilitator
				case p.Role == model.RoleFacilitator:
					want = model.RoleParticipant
				}
				if want != p.Role {
					log.Printf("Session %s: user %d %s -> %s\n", s.ID, p.UserID, p.Role, want)
					p.Role = want
					changed = true
				}
			}

			if !changed {
				continue
			}
			if err := tx.Model(&model.Session{ID: s.ID}).
				Select("participants").
				Updates(&model.Session{Participants: s.Participants}).Error; err != nil {
				return err
			}
			fixed++
		}

		return nil
	})

	if err != nil {
		log.Fatalf("Failed to fix participant roles: %v", err)
	}

	log.Printf("Participant roles updated in %d sessions.\n", fixed)
}
