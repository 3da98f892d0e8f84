// room/room.go
package room

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wfunc/pongserver/game"
	"github.com/wfunc/pongserver/logger"
	"github.com/wfunc/pongserver/network"
	"github.com/wfunc/pongserver/state"
)

var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrRoomFull      = errors.New("room is full")
	ErrAlreadyInRoom = errors.New("session already occupies a room")
	ErrNotInRoom     = errors.New("session is not in this room")
)

// RoomStatus 表示房间的业务状态
type RoomStatus int

const (
	StatusWaitingForGuest RoomStatus = iota
	StatusActive
	StatusPaused
	StatusEnded
)

// Room is one Pong match between at most two participants. The owner drives
// the left paddle, the guest the right one. The room exclusively owns its
// simulation engine; network handlers never touch engine state directly.
type Room struct {
	ID             string
	OwnerSessionID string
	GuestSessionID string
	Status         RoomStatus
	CreatedAt      time.Time

	StateMachine state.StateMachine

	engine      *game.Engine
	broadcaster Broadcaster
	recorder    RoundRecorder
	teardown    func(roomID string)

	statusMutex sync.RWMutex
	memberMutex sync.RWMutex
	endOnce     sync.Once
}

// NewRoom 创建一个新房间
func NewRoom(id, ownerSessionID string, cfg game.Config, broadcaster Broadcaster) *Room {
	room := &Room{
		ID:             id,
		OwnerSessionID: ownerSessionID,
		Status:         StatusWaitingForGuest,
		CreatedAt:      time.Now(),
		engine:         game.NewEngine(cfg),
		broadcaster:    broadcaster,
	}
	room.StateMachine = state.NewBaseStateMachine(state.NewWaitingState(room))
	return room
}

// --- state.RoomContext ---

func (r *Room) GetID() string {
	return r.ID
}

// Engine returns the room's simulation engine.
func (r *Room) Engine() *game.Engine {
	return r.engine
}

// OccupantCount returns how many of the two seats are taken.
func (r *Room) OccupantCount() int {
	r.memberMutex.RLock()
	defer r.memberMutex.RUnlock()
	count := 0
	if r.OwnerSessionID != "" {
		count++
	}
	if r.GuestSessionID != "" {
		count++
	}
	return count
}

// ChangeState 改变房间的状态机状态
func (r *Room) ChangeState(newState state.State) error {
	return r.StateMachine.ChangeState(newState)
}

// Broadcast sends a message to all occupants of the room.
func (r *Room) Broadcast(msgID uint16, data []byte) error {
	return r.broadcaster.BroadcastToRoom(r.ID, msgID, data)
}

// RecordRound hands a closed round to the summary recorder.
func (r *Room) RecordRound(result game.RoundResult) {
	if r.recorder != nil {
		r.recorder.RecordRound(r.ID, result)
	}
}

// RecordMatch hands the finished match to the summary recorder.
func (r *Room) RecordMatch(summary game.MatchSummary) {
	if r.recorder != nil {
		r.recorder.RecordMatch(r.ID, summary)
	}
}

// RequestTeardown asks the registry to drop this room. Runs asynchronously:
// it is called from inside a tick and must not block it.
func (r *Room) RequestTeardown() {
	r.SetStatus(StatusEnded)
	if r.teardown != nil {
		go r.teardown(r.ID)
	}
}

// --- 房间核心逻辑 ---

// OccupantSessionIDs returns the session ids of the current occupants.
func (r *Room) OccupantSessionIDs() []string {
	r.memberMutex.RLock()
	defer r.memberMutex.RUnlock()
	ids := make([]string, 0, 2)
	if r.OwnerSessionID != "" {
		ids = append(ids, r.OwnerSessionID)
	}
	if r.GuestSessionID != "" {
		ids = append(ids, r.GuestSessionID)
	}
	return ids
}

// SideOf maps a session to the paddle it controls.
func (r *Room) SideOf(sessionID string) (game.Side, bool) {
	r.memberMutex.RLock()
	defer r.memberMutex.RUnlock()
	switch sessionID {
	case r.OwnerSessionID:
		return game.SideLeft, r.OwnerSessionID != ""
	case r.GuestSessionID:
		return game.SideRight, r.GuestSessionID != ""
	}
	return 0, false
}

// IsOwner reports whether the session created the room.
func (r *Room) IsOwner(sessionID string) bool {
	r.memberMutex.RLock()
	defer r.memberMutex.RUnlock()
	return sessionID != "" && sessionID == r.OwnerSessionID
}

// seatGuest fills the guest seat. Fails with ErrRoomFull when taken.
func (r *Room) seatGuest(sessionID string) error {
	r.memberMutex.Lock()
	defer r.memberMutex.Unlock()
	if r.GuestSessionID != "" {
		return ErrRoomFull
	}
	r.GuestSessionID = sessionID
	return nil
}

// vacate clears the seat held by sessionID and returns the remaining
// occupant count.
func (r *Room) vacate(sessionID string) (int, error) {
	r.memberMutex.Lock()
	defer r.memberMutex.Unlock()
	switch sessionID {
	case r.OwnerSessionID:
		r.OwnerSessionID = ""
	case r.GuestSessionID:
		r.GuestSessionID = ""
	default:
		return 0, ErrNotInRoom
	}
	count := 0
	if r.OwnerSessionID != "" {
		count++
	}
	if r.GuestSessionID != "" {
		count++
	}
	return count, nil
}

// SetStatus 设置房间的业务状态
func (r *Room) SetStatus(status RoomStatus) {
	r.statusMutex.Lock()
	defer r.statusMutex.Unlock()
	r.Status = status
}

// GetStatus 获取房间的业务状态
func (r *Room) GetStatus() RoomStatus {
	r.statusMutex.RLock()
	defer r.statusMutex.RUnlock()
	return r.Status
}

// Update 由调度器的周期任务调用，驱动状态机
func (r *Room) Update(dt float64) {
	if r.StateMachine == nil {
		return
	}
	if currentState := r.StateMachine.GetCurrentState(); currentState != nil {
		currentState.OnUpdate(dt)
	}
}

// Pause suspends the simulation. Only meaningful while playing.
func (r *Room) Pause() {
	if r.StateMachine.GetCurrentState().GetID() != state.StatePlaying {
		return
	}
	r.SetStatus(StatusPaused)
	if err := r.ChangeState(state.NewPausedState(r)); err != nil {
		logger.Log.Warnf("Room %s pause rejected: %v", r.ID, err)
	}
}

// Resume continues play exactly where it stopped.
func (r *Room) Resume() {
	if r.StateMachine.GetCurrentState().GetID() != state.StatePaused {
		return
	}
	r.SetStatus(StatusActive)
	if err := r.ChangeState(state.NewPlayingState(r)); err != nil {
		logger.Log.Warnf("Room %s resume rejected: %v", r.ID, err)
	}
}

// close marks the room ended and tells the occupants. Idempotent.
func (r *Room) close(reason string) {
	r.endOnce.Do(func() {
		r.SetStatus(StatusEnded)
		r.engine.Finish()
		payload, _ := json.Marshal(map[string]string{"roomId": r.ID, "reason": reason})
		if err := r.Broadcast(network.MsgTypeRoomClosed, payload); err != nil {
			logger.Log.Debugf("Room %s close notification failed: %v", r.ID, err)
		}
	})
}

// --- 房间管理器 ---

// Manager is the room registry: the only structure shared by every connection
// handler. Lookups are concurrent; inserts and deletes serialize on the write
// lock so two join attempts can never both take the last seat.
type Manager struct {
	rooms     map[string]*Room
	bySession map[string]string // sessionID -> roomID
	mutex     sync.RWMutex

	broadcaster  Broadcaster
	recorder     RoundRecorder
	teardownHook func(roomID string)
}

// NewManager 创建一个新的房间管理器
func NewManager(broadcaster Broadcaster) *Manager {
	return &Manager{
		rooms:       make(map[string]*Room),
		bySession:   make(map[string]string),
		broadcaster: broadcaster,
	}
}

// SetBroadcaster installs the fan-out used by new rooms. Must be called
// before the first CreateRoom; the registry and the broadcaster are built in
// two steps because each needs the other.
func (m *Manager) SetBroadcaster(broadcaster Broadcaster) {
	m.broadcaster = broadcaster
}

// SetRecorder installs the round-summary recorder handed to new rooms.
func (m *Manager) SetRecorder(recorder RoundRecorder) {
	m.recorder = recorder
}

// SetTeardownHook installs the callback a room fires when its match ends on
// its own (scheduler stop + registry removal live with the server).
func (m *Manager) SetTeardownHook(fn func(roomID string)) {
	m.teardownHook = fn
}

// CreateRoom allocates a room owned by ownerSessionID. A session may occupy
// at most one room at a time.
func (m *Manager) CreateRoom(ownerSessionID string, cfg game.Config) (*Room, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.bySession[ownerSessionID]; exists {
		return nil, ErrAlreadyInRoom
	}

	room := NewRoom(uuid.New().String(), ownerSessionID, cfg, m.broadcaster)
	room.recorder = m.recorder
	room.teardown = func(roomID string) {
		if m.teardownHook != nil {
			m.teardownHook(roomID)
		}
	}
	m.rooms[room.ID] = room
	m.bySession[ownerSessionID] = room.ID
	return room, nil
}

// JoinRoom seats guestSessionID in the room and transitions it to Active.
func (m *Manager) JoinRoom(roomID, guestSessionID string) (*Room, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	room, exists := m.rooms[roomID]
	if !exists {
		return nil, ErrRoomNotFound
	}
	if _, inRoom := m.bySession[guestSessionID]; inRoom {
		return nil, ErrAlreadyInRoom
	}
	if err := room.seatGuest(guestSessionID); err != nil {
		return nil, err
	}
	m.bySession[guestSessionID] = roomID
	room.SetStatus(StatusActive)
	return room, nil
}

// LeaveRoom removes the session from the room. The room is deleted only once
// it has zero occupants; a remaining occupant keeps it, paused, and is told
// the opponent left.
func (m *Manager) LeaveRoom(roomID, sessionID string) error {
	m.mutex.Lock()
	room, exists := m.rooms[roomID]
	if !exists {
		m.mutex.Unlock()
		return ErrRoomNotFound
	}

	remaining, err := room.vacate(sessionID)
	if err != nil {
		m.mutex.Unlock()
		return err
	}
	delete(m.bySession, sessionID)

	if remaining == 0 {
		delete(m.rooms, roomID)
		m.mutex.Unlock()

		room.close("empty")
		if room.teardown != nil {
			room.teardown(roomID)
		}
		return nil
	}
	m.mutex.Unlock()

	room.Pause()
	payload, _ := json.Marshal(map[string]string{"roomId": roomID, "sessionId": sessionID})
	if err := room.Broadcast(network.MsgTypeMemberLeft, payload); err != nil {
		logger.Log.Debugf("Room %s member-left notification failed: %v", roomID, err)
	}
	return nil
}

// RemoveRoom tears a room down regardless of occupancy (endGame, tick panic).
// The occupants are notified while the room id still resolves, then the
// registry slot is released.
func (m *Manager) RemoveRoom(roomID, reason string) {
	m.mutex.RLock()
	room, exists := m.rooms[roomID]
	m.mutex.RUnlock()
	if !exists {
		return
	}

	room.close(reason)

	m.mutex.Lock()
	delete(m.rooms, roomID)
	for _, sid := range room.OccupantSessionIDs() {
		delete(m.bySession, sid)
	}
	m.mutex.Unlock()
}

// GetRoom 从管理器中获取一个房间
func (m *Manager) GetRoom(roomID string) (*Room, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	room, exists := m.rooms[roomID]
	return room, exists
}

// RoomForSession returns the room a session currently occupies.
func (m *Manager) RoomForSession(sessionID string) (*Room, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	roomID, ok := m.bySession[sessionID]
	if !ok {
		return nil, false
	}
	room, exists := m.rooms[roomID]
	return room, exists
}

// Count returns the number of live rooms.
func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms)
}

// RoomIDs returns the ids of all live rooms.
func (m *Manager) RoomIDs() []string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	ids := make([]string, 0, len(m.rooms))
	for id := range m.rooms {
		ids = append(ids, id)
	}
	return ids
}
