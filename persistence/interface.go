package persistence

import (
	"errors"

	"github.com/wfunc/pongserver/models"
)

// ErrRecordNotFound is returned when a query matches nothing.
var ErrRecordNotFound = errors.New("record not found")

// Database stores the round summaries the simulation emits. The simulation
// core never calls this directly; the summary service does, on its own
// goroutine, so a slow database can never delay a tick.
type Database interface {
	SaveRoundSummary(summary *models.RoundSummary) error
	SaveMatchRecord(record *models.MatchRecord) error
	GetRoomSummaries(roomID string) ([]models.RoundSummary, error)
	GetMatchRecord(roomID string) (*models.MatchRecord, error)
	Close() error
}
