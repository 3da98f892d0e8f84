package room

import (
	"os"
	"sync"
	"testing"

	"github.com/wfunc/pongserver/game"
	"github.com/wfunc/pongserver/logger"
	"github.com/wfunc/pongserver/network"
	"github.com/wfunc/pongserver/state"
)

func TestMain(m *testing.M) {
	logger.InitDevelopment()
	os.Exit(m.Run())
}

// mockBroadcaster 记录每次广播，供断言使用
type mockBroadcaster struct {
	mu       sync.Mutex
	messages []broadcastCall
}

type broadcastCall struct {
	roomID string
	msgID  uint16
	data   []byte
}

func (b *mockBroadcaster) BroadcastToRoom(roomID string, msgID uint16, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, broadcastCall{roomID: roomID, msgID: msgID, data: data})
	return nil
}

func (b *mockBroadcaster) calls(msgID uint16) []broadcastCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []broadcastCall
	for _, c := range b.messages {
		if c.msgID == msgID {
			out = append(out, c)
		}
	}
	return out
}

// mockRecorder 记录关闭的回合与比赛结果
type mockRecorder struct {
	mu      sync.Mutex
	rounds  []game.RoundResult
	matches []game.MatchSummary
}

func (r *mockRecorder) RecordRound(roomID string, result game.RoundResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rounds = append(r.rounds, result)
}

func (r *mockRecorder) RecordMatch(roomID string, summary game.MatchSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.matches = append(r.matches, summary)
}

func newTestManager() (*Manager, *mockBroadcaster) {
	b := &mockBroadcaster{}
	return NewManager(b), b
}

func seedRoom(r *Room) {
	r.Engine().SetInitialState(game.InitialState{
		Ball:        game.Ball{X: 50, Y: 50, SpeedX: 1, SpeedY: 1, Radius: 1, MaxBallSpeed: 5},
		LeftPaddle:  game.Paddle{X: 1, Y: 40, Width: 2, Height: 20},
		RightPaddle: game.Paddle{X: 97, Y: 40, Width: 2, Height: 20},
	})
}

func TestCreateRoom(t *testing.T) {
	m, _ := newTestManager()

	room, err := m.CreateRoom("owner-1", game.Config{Rounds: 1, MatchesPerRound: 1})
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	if room.ID == "" {
		t.Error("expected a generated room id")
	}
	if room.GetStatus() != StatusWaitingForGuest {
		t.Errorf("expected StatusWaitingForGuest, got %v", room.GetStatus())
	}
	if room.OccupantCount() != 1 {
		t.Errorf("expected 1 occupant, got %d", room.OccupantCount())
	}
	if !room.IsOwner("owner-1") {
		t.Error("creator should be the owner")
	}
	if got, ok := m.RoomForSession("owner-1"); !ok || got.ID != room.ID {
		t.Error("RoomForSession should resolve the owner's room")
	}
	if m.Count() != 1 {
		t.Errorf("expected 1 room, got %d", m.Count())
	}
}

func TestCreateRoomWhileOccupied(t *testing.T) {
	m, _ := newTestManager()

	if _, err := m.CreateRoom("owner-1", game.Config{}); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	if _, err := m.CreateRoom("owner-1", game.Config{}); err != ErrAlreadyInRoom {
		t.Errorf("expected ErrAlreadyInRoom, got %v", err)
	}
}

func TestJoinRoom(t *testing.T) {
	m, _ := newTestManager()

	created, _ := m.CreateRoom("owner-1", game.Config{})
	room, err := m.JoinRoom(created.ID, "guest-1")
	if err != nil {
		t.Fatalf("JoinRoom failed: %v", err)
	}
	if room.GetStatus() != StatusActive {
		t.Errorf("expected StatusActive after join, got %v", room.GetStatus())
	}
	if room.OccupantCount() != 2 {
		t.Errorf("expected 2 occupants, got %d", room.OccupantCount())
	}

	if side, ok := room.SideOf("owner-1"); !ok || side != game.SideLeft {
		t.Errorf("owner should control the left paddle, got (%v, %v)", side, ok)
	}
	if side, ok := room.SideOf("guest-1"); !ok || side != game.SideRight {
		t.Errorf("guest should control the right paddle, got (%v, %v)", side, ok)
	}
	if _, ok := room.SideOf("stranger"); ok {
		t.Error("a stranger controls no paddle")
	}
}

func TestJoinRoomErrors(t *testing.T) {
	m, _ := newTestManager()

	if _, err := m.JoinRoom("no-such-room", "guest-1"); err != ErrRoomNotFound {
		t.Errorf("expected ErrRoomNotFound, got %v", err)
	}

	created, _ := m.CreateRoom("owner-1", game.Config{})
	if _, err := m.JoinRoom(created.ID, "guest-1"); err != nil {
		t.Fatalf("JoinRoom failed: %v", err)
	}
	if _, err := m.JoinRoom(created.ID, "guest-2"); err != ErrRoomFull {
		t.Errorf("expected ErrRoomFull, got %v", err)
	}
	if _, err := m.JoinRoom(created.ID, "guest-1"); err != ErrAlreadyInRoom {
		t.Errorf("expected ErrAlreadyInRoom, got %v", err)
	}
}

func TestLeaveRoomLastOccupant(t *testing.T) {
	m, b := newTestManager()

	tornDown := make(chan string, 1)
	m.SetTeardownHook(func(roomID string) { tornDown <- roomID })

	created, _ := m.CreateRoom("owner-1", game.Config{})
	if err := m.LeaveRoom(created.ID, "owner-1"); err != nil {
		t.Fatalf("LeaveRoom failed: %v", err)
	}

	if m.Count() != 0 {
		t.Errorf("empty room should be deleted, %d rooms remain", m.Count())
	}
	if _, ok := m.RoomForSession("owner-1"); ok {
		t.Error("session mapping should be cleared")
	}
	if created.GetStatus() != StatusEnded {
		t.Errorf("expected StatusEnded, got %v", created.GetStatus())
	}
	if !created.Engine().Ended() {
		t.Error("engine should be finished when the room closes")
	}
	if got := b.calls(network.MsgTypeRoomClosed); len(got) != 1 {
		t.Errorf("expected 1 room-closed broadcast, got %d", len(got))
	}
	if got := <-tornDown; got != created.ID {
		t.Errorf("teardown hook fired for %q, want %q", got, created.ID)
	}

	// A torn-down room swallows further updates.
	created.Update(1)
}

func TestLeaveRoomRemainingOccupantPauses(t *testing.T) {
	m, b := newTestManager()

	created, _ := m.CreateRoom("owner-1", game.Config{Rounds: 3, MatchesPerRound: 5})
	if _, err := m.JoinRoom(created.ID, "guest-1"); err != nil {
		t.Fatalf("JoinRoom failed: %v", err)
	}
	seedRoom(created)
	created.Update(1) // waiting -> playing
	if created.StateMachine.GetCurrentState().GetID() != state.StatePlaying {
		t.Fatalf("room should be playing, in %q", created.StateMachine.GetCurrentState().GetID())
	}

	if err := m.LeaveRoom(created.ID, "guest-1"); err != nil {
		t.Fatalf("LeaveRoom failed: %v", err)
	}

	if m.Count() != 1 {
		t.Error("room with a remaining occupant must survive")
	}
	if created.GetStatus() != StatusPaused {
		t.Errorf("expected StatusPaused, got %v", created.GetStatus())
	}
	if !created.Engine().Paused() {
		t.Error("engine should be paused after the opponent left")
	}
	if got := b.calls(network.MsgTypeMemberLeft); len(got) != 1 {
		t.Errorf("expected 1 member-left broadcast, got %d", len(got))
	}
	if _, ok := m.RoomForSession("guest-1"); ok {
		t.Error("leaver's session mapping should be cleared")
	}
	if _, ok := m.RoomForSession("owner-1"); !ok {
		t.Error("remaining occupant keeps the room")
	}
}

func TestLeaveRoomNotAMember(t *testing.T) {
	m, _ := newTestManager()

	created, _ := m.CreateRoom("owner-1", game.Config{})
	if err := m.LeaveRoom(created.ID, "stranger"); err != ErrNotInRoom {
		t.Errorf("expected ErrNotInRoom, got %v", err)
	}
	if err := m.LeaveRoom("no-such-room", "owner-1"); err != ErrRoomNotFound {
		t.Errorf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestRemoveRoomFreesSessions(t *testing.T) {
	m, b := newTestManager()

	created, _ := m.CreateRoom("owner-1", game.Config{})
	if _, err := m.JoinRoom(created.ID, "guest-1"); err != nil {
		t.Fatalf("JoinRoom failed: %v", err)
	}

	m.RemoveRoom(created.ID, "ended_by_client")

	if m.Count() != 0 {
		t.Errorf("expected 0 rooms, got %d", m.Count())
	}
	if got := b.calls(network.MsgTypeRoomClosed); len(got) != 1 {
		t.Errorf("expected 1 room-closed broadcast, got %d", len(got))
	}
	// Both former occupants may open fresh rooms.
	if _, err := m.CreateRoom("owner-1", game.Config{}); err != nil {
		t.Errorf("former owner should create freely, got %v", err)
	}
	if _, err := m.CreateRoom("guest-1", game.Config{}); err != nil {
		t.Errorf("former guest should create freely, got %v", err)
	}
}

func TestUpdateBroadcastsSnapshots(t *testing.T) {
	m, b := newTestManager()
	rec := &mockRecorder{}
	m.SetRecorder(rec)

	created, _ := m.CreateRoom("owner-1", game.Config{Rounds: 3, MatchesPerRound: 5})

	// Ticks before the room is full or seeded do nothing.
	created.Update(1)
	if got := b.calls(network.MsgTypeGameData); len(got) != 0 {
		t.Fatalf("waiting room must not broadcast, got %d messages", len(got))
	}

	if _, err := m.JoinRoom(created.ID, "guest-1"); err != nil {
		t.Fatalf("JoinRoom failed: %v", err)
	}
	seedRoom(created)

	created.Update(1) // waiting -> playing
	created.Update(1) // first simulated tick

	if got := b.calls(network.MsgTypeGameData); len(got) != 1 {
		t.Errorf("expected 1 snapshot broadcast, got %d", len(got))
	}
}

func TestPauseResume(t *testing.T) {
	m, b := newTestManager()

	created, _ := m.CreateRoom("owner-1", game.Config{Rounds: 3, MatchesPerRound: 5})
	if _, err := m.JoinRoom(created.ID, "guest-1"); err != nil {
		t.Fatalf("JoinRoom failed: %v", err)
	}
	seedRoom(created)
	created.Update(1) // waiting -> playing

	created.Pause()
	if created.StateMachine.GetCurrentState().GetID() != state.StatePaused {
		t.Fatal("room should be paused")
	}
	before := created.Engine().Snapshot()
	created.Update(1)
	created.Update(1)
	if created.Engine().Snapshot() != before {
		t.Error("no simulation time may accrue while paused")
	}

	created.Resume()
	if created.StateMachine.GetCurrentState().GetID() != state.StatePlaying {
		t.Fatal("room should be playing again")
	}
	created.Update(1)
	if created.Engine().Snapshot() == before {
		t.Error("resume should continue the simulation")
	}
	if got := b.calls(network.MsgTypeGameData); len(got) == 0 {
		t.Error("resumed room should broadcast snapshots again")
	}

	// Redundant transitions are ignored.
	created.Resume()
	if created.StateMachine.GetCurrentState().GetID() != state.StatePlaying {
		t.Error("resume while playing must be a no-op")
	}
}

func TestPauseBeforePlayingIsNoop(t *testing.T) {
	m, _ := newTestManager()

	created, _ := m.CreateRoom("owner-1", game.Config{})
	created.Pause()
	if created.StateMachine.GetCurrentState().GetID() != state.StateWaiting {
		t.Error("pausing a waiting room must not change its state")
	}
}
