// services/summary_service.go
package services

import (
	"sync"
	"time"

	"github.com/wfunc/pongserver/game"
	"github.com/wfunc/pongserver/logger"
	"github.com/wfunc/pongserver/models"
	"github.com/wfunc/pongserver/persistence"
)

// SummaryService persists the round and match summaries the simulation
// emits. Writes go through a buffered queue drained by one worker goroutine,
// so recording from inside a tick never blocks on the database. When the
// queue is full the write is dropped and logged; a lost summary is cheaper
// than a late tick.
type SummaryService struct {
	db    persistence.Database
	queue chan func()
	done  chan struct{}

	mu     sync.Mutex
	closed bool
}

func NewSummaryService(db persistence.Database) *SummaryService {
	s := &SummaryService{
		db:    db,
		queue: make(chan func(), 256),
		done:  make(chan struct{}),
	}
	go s.worker()
	return s
}

func (s *SummaryService) worker() {
	defer close(s.done)
	for job := range s.queue {
		job()
	}
}

// RecordRound implements room.RoundRecorder.
func (s *SummaryService) RecordRound(roomID string, result game.RoundResult) {
	s.enqueue(func() {
		summary := &models.RoundSummary{
			RoomID:     roomID,
			Round:      result.Round,
			LeftScore:  result.LeftScore,
			RightScore: result.RightScore,
			CreatedAt:  time.Now(),
		}
		if err := s.db.SaveRoundSummary(summary); err != nil {
			logger.Log.Errorf("Failed to save round summary for room %s: %v", roomID, err)
		}
	})
}

// RecordMatch implements room.RoundRecorder.
func (s *SummaryService) RecordMatch(roomID string, summary game.MatchSummary) {
	s.enqueue(func() {
		record := &models.MatchRecord{
			RoomID:    roomID,
			Winner:    string(summary.Winner),
			CreatedAt: time.Now(),
		}
		if err := s.db.SaveMatchRecord(record); err != nil {
			logger.Log.Errorf("Failed to save match record for room %s: %v", roomID, err)
		}
	})
}

// enqueue hands a write to the worker. A tick racing shutdown drops its
// write instead of sending on the closed queue.
func (s *SummaryService) enqueue(job func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		logger.Log.Warn("Summary service closed, dropping write")
		return
	}
	select {
	case s.queue <- job:
	default:
		logger.Log.Warn("Summary queue full, dropping write")
	}
}

// GetRoomSummaries returns the persisted rounds for a room.
func (s *SummaryService) GetRoomSummaries(roomID string) ([]models.RoundSummary, error) {
	return s.db.GetRoomSummaries(roomID)
}

// GetMatchRecord returns the persisted record for a finished match.
func (s *SummaryService) GetMatchRecord(roomID string) (*models.MatchRecord, error) {
	return s.db.GetMatchRecord(roomID)
}

// Close drains pending writes and stops the worker. Idempotent.
func (s *SummaryService) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	select {
	case <-s.done:
	case <-time.After(5 * time.Second):
		logger.Log.Warn("Summary worker did not drain in time")
	}
}
