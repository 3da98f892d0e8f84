package services

import (
	"os"
	"sync"
	"testing"
	"time"

	"github.com/wfunc/pongserver/game"
	"github.com/wfunc/pongserver/logger"
	"github.com/wfunc/pongserver/models"
	"github.com/wfunc/pongserver/persistence"
)

func TestMain(m *testing.M) {
	logger.InitDevelopment()
	os.Exit(m.Run())
}

// mockDatabase is a test double for the persistence.Database interface.
type mockDatabase struct {
	mu      sync.Mutex
	rounds  []models.RoundSummary
	matches []models.MatchRecord
}

func (d *mockDatabase) SaveRoundSummary(summary *models.RoundSummary) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rounds = append(d.rounds, *summary)
	return nil
}

func (d *mockDatabase) SaveMatchRecord(record *models.MatchRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.matches = append(d.matches, *record)
	return nil
}

func (d *mockDatabase) GetRoomSummaries(roomID string) ([]models.RoundSummary, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []models.RoundSummary
	for _, r := range d.rounds {
		if r.RoomID == roomID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (d *mockDatabase) GetMatchRecord(roomID string) (*models.MatchRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, m := range d.matches {
		if m.RoomID == roomID {
			rec := m
			return &rec, nil
		}
	}
	return nil, persistence.ErrRecordNotFound
}

func (d *mockDatabase) Close() error { return nil }

func (d *mockDatabase) roundCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.rounds)
}

func TestSummaryService_RecordAndDrain(t *testing.T) {
	db := &mockDatabase{}
	s := NewSummaryService(db)

	s.RecordRound("room-1", game.RoundResult{Round: 1, LeftScore: 3, RightScore: 2})
	s.RecordMatch("room-1", game.MatchSummary{Winner: game.WinnerLeft})

	// Close drains the queue before returning.
	s.Close()

	if db.roundCount() != 1 {
		t.Fatalf("Expected 1 saved round, got %d", db.roundCount())
	}
	rounds, err := db.GetRoomSummaries("room-1")
	if err != nil || len(rounds) != 1 {
		t.Fatalf("GetRoomSummaries returned (%v, %v)", rounds, err)
	}
	if rounds[0].LeftScore != 3 || rounds[0].RightScore != 2 {
		t.Errorf("Unexpected round summary: %+v", rounds[0])
	}
	record, err := db.GetMatchRecord("room-1")
	if err != nil {
		t.Fatalf("GetMatchRecord failed: %v", err)
	}
	if record.Winner != string(game.WinnerLeft) {
		t.Errorf("Expected left winner, got %q", record.Winner)
	}
}

func TestSummaryService_RecordAfterCloseIsDropped(t *testing.T) {
	db := &mockDatabase{}
	s := NewSummaryService(db)
	s.Close()

	// A tick racing shutdown must drop its write, never panic.
	s.RecordRound("room-1", game.RoundResult{Round: 1})
	s.RecordMatch("room-1", game.MatchSummary{Winner: game.WinnerDraw})

	if db.roundCount() != 0 {
		t.Errorf("Expected no saved rounds after close, got %d", db.roundCount())
	}

	// Close is idempotent.
	s.Close()
}

func TestSummaryService_ConcurrentRecordAndClose(t *testing.T) {
	db := &mockDatabase{}
	s := NewSummaryService(db)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				s.RecordRound("room-1", game.RoundResult{Round: i})
			}
		}()
	}

	time.Sleep(time.Millisecond)
	s.Close()
	wg.Wait()
}
