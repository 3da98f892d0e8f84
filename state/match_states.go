// state/match_states.go
package state

import (
	"encoding/json"

	"github.com/wfunc/pongserver/game"
	"github.com/wfunc/pongserver/logger"
	"github.com/wfunc/pongserver/network"
)

const (
	StateWaiting = "waiting"
	StatePlaying = "playing"
	StatePaused  = "paused"
	StateEnded   = "ended"
)

// NewWaitingState creates the state a room starts in: the guest seat may
// still be empty and the starting snapshot has not arrived yet.
func NewWaitingState(room RoomContext) *WaitingState {
	return &WaitingState{
		RoomStateBase: RoomStateBase{
			ID:   StateWaiting,
			Room: room,
		},
	}
}

// 等待状态：房间未满或初始快照未到
type WaitingState struct {
	RoomStateBase
}

func (s *WaitingState) OnUpdate(dt float64) {
	// Play begins once both seats are taken and a client has seeded the
	// engine. Ticks before that are no-ops.
	if s.Room.OccupantCount() < 2 || !s.Room.Engine().Seeded() {
		return
	}
	if err := s.Room.ChangeState(NewPlayingState(s.Room)); err != nil {
		logger.Log.Errorf("Room %s failed to start playing: %v", s.Room.GetID(), err)
	}
}

// NewPlayingState creates the active simulation state.
func NewPlayingState(room RoomContext) *PlayingState {
	return &PlayingState{
		RoomStateBase: RoomStateBase{
			ID:   StatePlaying,
			Room: room,
		},
	}
}

// PlayingState 游戏进行状态：每个 tick 推进物理并广播快照
type PlayingState struct {
	RoomStateBase
}

func (s *PlayingState) OnEnter() {
	logger.Log.Infof("Room %s entered playing state", s.Room.GetID())
	s.Room.Engine().SetPaused(false)
}

func (s *PlayingState) OnUpdate(dt float64) {
	engine := s.Room.Engine()

	report := engine.Tick(dt)
	if !report.Changed {
		return
	}

	data, err := json.Marshal(report.Snapshot)
	if err != nil {
		logger.Log.Errorf("Room %s failed to marshal snapshot: %v", s.Room.GetID(), err)
		return
	}
	if err := s.Room.Broadcast(network.MsgTypeGameData, data); err != nil {
		logger.Log.Warnf("Room %s broadcast failed: %v", s.Room.GetID(), err)
	}

	for _, round := range report.ClosedRounds {
		s.Room.RecordRound(round)
	}

	if report.MatchOver {
		s.finishMatch(engine)
	}
}

func (s *PlayingState) finishMatch(engine *game.Engine) {
	summary := engine.Summary()
	s.Room.RecordMatch(summary)

	data, err := json.Marshal(summary)
	if err == nil {
		if err := s.Room.Broadcast(network.MsgTypeMatchSummary, data); err != nil {
			logger.Log.Warnf("Room %s match summary broadcast failed: %v", s.Room.GetID(), err)
		}
	}

	if err := s.Room.ChangeState(NewEndedState(s.Room)); err != nil {
		logger.Log.Errorf("Room %s failed to end: %v", s.Room.GetID(), err)
	}
}

// NewPausedState creates the paused state. No simulation time accrues while
// the room sits here; resuming continues exactly where play left off.
func NewPausedState(room RoomContext) *PausedState {
	return &PausedState{
		RoomStateBase: RoomStateBase{
			ID:   StatePaused,
			Room: room,
		},
	}
}

// 暂停状态
type PausedState struct {
	RoomStateBase
}

func (s *PausedState) OnEnter() {
	s.Room.Engine().SetPaused(true)
}

func (s *PausedState) OnExit() {
	s.Room.Engine().SetPaused(false)
}

// NewEndedState creates the terminal state; entering it requests teardown.
func NewEndedState(room RoomContext) *EndedState {
	return &EndedState{
		RoomStateBase: RoomStateBase{
			ID:   StateEnded,
			Room: room,
		},
	}
}

// 结束状态
type EndedState struct {
	RoomStateBase
}

func (s *EndedState) OnEnter() {
	logger.Log.Infof("Room %s match ended", s.Room.GetID())
	s.Room.Engine().Finish()
	s.Room.RequestTeardown()
}
