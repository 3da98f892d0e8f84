// persistence/gorm_postgresql.go
package persistence

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wfunc/pongserver/models"
)

// GormPostgreSQL 使用GORM的PostgreSQL实现
type GormPostgreSQL struct {
	db *gorm.DB
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: time.Second,
			LogLevel:      logger.Silent,
			Colorful:      false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&models.GormRoundSummary{}, &models.GormMatchRecord{}); err != nil {
		return nil, err
	}

	return &GormPostgreSQL{db: db}, nil
}

// SaveRoundSummary 保存回合结果
func (p *GormPostgreSQL) SaveRoundSummary(summary *models.RoundSummary) error {
	row := models.GormRoundSummary{
		RoomID:     summary.RoomID,
		Round:      summary.Round,
		LeftScore:  summary.LeftScore,
		RightScore: summary.RightScore,
	}
	return p.db.Create(&row).Error
}

// SaveMatchRecord 保存比赛记录
func (p *GormPostgreSQL) SaveMatchRecord(record *models.MatchRecord) error {
	return p.db.Transaction(func(tx *gorm.DB) error {
		row := models.GormMatchRecord{
			RoomID: record.RoomID,
			Winner: record.Winner,
		}
		return tx.Create(&row).Error
	})
}

// GetRoomSummaries 查询某房间的全部回合结果
func (p *GormPostgreSQL) GetRoomSummaries(roomID string) ([]models.RoundSummary, error) {
	var rows []models.GormRoundSummary
	if err := p.db.Where("room_id = ?", roomID).Order("round asc").Find(&rows).Error; err != nil {
		return nil, err
	}

	summaries := make([]models.RoundSummary, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, models.RoundSummary{
			RoomID:     row.RoomID,
			Round:      row.Round,
			LeftScore:  row.LeftScore,
			RightScore: row.RightScore,
			CreatedAt:  row.CreatedAt,
		})
	}
	return summaries, nil
}

// GetMatchRecord 查询比赛记录
func (p *GormPostgreSQL) GetMatchRecord(roomID string) (*models.MatchRecord, error) {
	var row models.GormMatchRecord
	if err := p.db.Where("room_id = ?", roomID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}

	rounds, err := p.GetRoomSummaries(roomID)
	if err != nil {
		return nil, err
	}

	return &models.MatchRecord{
		RoomID:    row.RoomID,
		Winner:    row.Winner,
		Rounds:    rounds,
		CreatedAt: row.CreatedAt,
	}, nil
}

// Close 关闭数据库连接
func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
