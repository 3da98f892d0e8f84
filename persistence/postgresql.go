// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	// PostgreSQL 驱动
	_ "github.com/lib/pq"

	"github.com/wfunc/pongserver/models"
)

// PostgreSQL 数据库实现（database/sql 版本）
type PostgreSQL struct {
	db *sql.DB
}

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := initTables(db); err != nil {
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

// initTables 初始化数据库表结构
func initTables(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS round_summaries (
            id SERIAL PRIMARY KEY,
            room_id VARCHAR(255) NOT NULL,
            round INT NOT NULL,
            left_score INT NOT NULL,
            right_score INT NOT NULL,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
        CREATE TABLE IF NOT EXISTS match_records (
            id SERIAL PRIMARY KEY,
            room_id VARCHAR(255) UNIQUE NOT NULL,
            winner VARCHAR(16) NOT NULL,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
        CREATE INDEX IF NOT EXISTS idx_round_summaries_room_id ON round_summaries(room_id)
    `)
	return err
}

// SaveRoundSummary 保存回合结果
func (p *PostgreSQL) SaveRoundSummary(summary *models.RoundSummary) error {
	_, err := p.db.Exec(`
        INSERT INTO round_summaries (room_id, round, left_score, right_score)
        VALUES ($1, $2, $3, $4)`,
		summary.RoomID, summary.Round, summary.LeftScore, summary.RightScore,
	)
	return err
}

// SaveMatchRecord 保存比赛记录
func (p *PostgreSQL) SaveMatchRecord(record *models.MatchRecord) error {
	_, err := p.db.Exec(`
        INSERT INTO match_records (room_id, winner)
        VALUES ($1, $2)
        ON CONFLICT (room_id) DO UPDATE SET winner = EXCLUDED.winner`,
		record.RoomID, record.Winner,
	)
	return err
}

// GetRoomSummaries 查询某房间的全部回合结果
func (p *PostgreSQL) GetRoomSummaries(roomID string) ([]models.RoundSummary, error) {
	rows, err := p.db.Query(`
        SELECT room_id, round, left_score, right_score, created_at
        FROM round_summaries WHERE room_id = $1 ORDER BY round ASC`,
		roomID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []models.RoundSummary
	for rows.Next() {
		var s models.RoundSummary
		if err := rows.Scan(&s.RoomID, &s.Round, &s.LeftScore, &s.RightScore, &s.CreatedAt); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// GetMatchRecord 查询比赛记录
func (p *PostgreSQL) GetMatchRecord(roomID string) (*models.MatchRecord, error) {
	record := &models.MatchRecord{}
	err := p.db.QueryRow(`
        SELECT room_id, winner, created_at FROM match_records WHERE room_id = $1`,
		roomID,
	).Scan(&record.RoomID, &record.Winner, &record.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}

	record.Rounds, err = p.GetRoomSummaries(roomID)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// Close 关闭数据库连接
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
