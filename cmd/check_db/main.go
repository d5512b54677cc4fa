package main

import (
	"fmt"
	"log"

	"github.com/rs/zerolog"
	"gorm.io/gorm/schema"

	"sessionboard-backend/internal/config"
	"sessionboard-backend/internal/database"
	"sessionboard-backend/internal/store"
)

func main() {
	cfg := config.Load()

	// 연결 시 스키마 마이그레이션까지 수행됨
	db, err := database.ConnectDB(cfg.Database, zerolog.Nop())
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	fmt.Println("✅ Connected to database")
	fmt.Println()

	// 테이블별 행 수
	fmt.Println("📊 Table Row Counts:")
	for _, m := range store.Models() {
		table := m.(schema.Tabler).TableName()
		var count int64
		if err := db.Table(table).Count(&count).Error; err != nil {
			log.Fatalf("Failed to count %s: %v", table, err)
		}
		fmt.Printf("  - %s: %d\n", table, count)
	}
	fmt.Println()

	// jsonb 컬럼 확인
	type ColumnInfo struct {
		TableName  string
		ColumnName string
		DataType   string
	}
	var columns []ColumnInfo
	query := `
		SELECT table_name, column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = current_schema()
		AND data_type = 'jsonb'
		ORDER BY table_name, column_name
	`
	if err := db.Raw(query).Scan(&columns).Error; err != nil {
		log.Fatal("Failed to get column info:", err)
	}

	fmt.Println("📋 JSONB Columns:")
	for _, c := range columns {
		fmt.Printf("  - %s.%s\n", c.TableName, c.ColumnName)
	}
	fmt.Println()

	// 세션 상태 통계
	type StatusStats struct {
		Total     int64
		Draft     int64
		Active    int64
		Paused    int64
		Completed int64
		Locked    int64
	}
	var stats StatusStats
	query = `
		SELECT
			COUNT(*) as total,
			COUNT(CASE WHEN status = 'draft' THEN 1 END) as draft,
			COUNT(CASE WHEN status = 'active' THEN 1 END) as active,
			COUNT(CASE WHEN status = 'paused' THEN 1 END) as paused,
			COUNT(CASE WHEN status = 'completed' THEN 1 END) as completed,
			COUNT(CASE WHEN (board->>'locked')::boolean THEN 1 END) as locked
		FROM sessions
	`
	if err := db.Raw(query).Scan(&stats).Error; err != nil {
		log.Fatal("Failed to get statistics:", err)
	}

	fmt.Println("📈 Session Status Statistics:")
	fmt.Printf("  - Total sessions: %d\n", stats.Total)
	fmt.Printf("  - draft: %d\n", stats.Draft)
	fmt.Printf("  - active: %d\n", stats.Active)
	fmt.Printf("  - paused: %d\n", stats.Paused)
	fmt.Printf("  - completed: %d\n", stats.Completed)
	fmt.Printf("  - board locked: %d\n", stats.Locked)
	fmt.Println()

	// 최근 세션
	type SessionInfo struct {
		ID        string
		Title     string
		Privacy   string
		Status    string
		CreatorID int64
	}
	var sessions []SessionInfo
	query = `
		SELECT id, title, privacy, status, creator_id
		FROM sessions
		ORDER BY created_at DESC
		LIMIT 10
	`
	if err := db.Raw(query).Scan(&sessions).Error; err != nil {
		log.Fatal("Failed to get recent sessions:", err)
	}

	fmt.Println("🗂️ Recent Sessions (last 10):")
	for _, s := range sessions {
		fmt.Printf("  - %s %q privacy=%s status=%s creator=%d\n",
			s.ID, s.Title, s.Privacy, s.Status, s.CreatorID)
	}
}
