// models/models.go
package models

import (
	"time"
)

// RoundSummary 回合结果记录
type RoundSummary struct {
	RoomID     string    `json:"room_id"`
	Round      int       `json:"round"`
	LeftScore  int       `json:"left_score"`
	RightScore int       `json:"right_score"`
	CreatedAt  time.Time `json:"created_at"`
}

// MatchRecord 整场比赛记录
type MatchRecord struct {
	RoomID    string         `json:"room_id"`
	Winner    string         `json:"winner"` // left/right/draw
	Rounds    []RoundSummary `json:"rounds"`
	CreatedAt time.Time      `json:"created_at"`
}
