// models/gorm_models.go
package models

import (
	"gorm.io/gorm"
)

// GormRoundSummary 回合结果模型
type GormRoundSummary struct {
	gorm.Model
	RoomID     string `gorm:"index;not null"`
	Round      int    `gorm:"not null"`
	LeftScore  int    `gorm:"not null"`
	RightScore int    `gorm:"not null"`
}

// GormMatchRecord 比赛记录模型
type GormMatchRecord struct {
	gorm.Model
	RoomID string `gorm:"uniqueIndex;not null"`
	Winner string `gorm:"not null"`
}
