// state/interfaces.go
package state

import "github.com/wfunc/pongserver/game"

// RoomContext defines the interface a Room must implement to be driven by the
// match state machine. Declared here to break the import cycle between room
// and state.
type RoomContext interface {
	GetID() string
	Engine() *game.Engine
	OccupantCount() int
	ChangeState(newState State) error
	Broadcast(msgID uint16, data []byte) error
	// RecordRound and RecordMatch hand finished results to the summary
	// recorder; both must return quickly and never block the tick.
	RecordRound(result game.RoundResult)
	RecordMatch(summary game.MatchSummary)
	// RequestTeardown asks the owner of the room to stop its tick and drop it
	// from the registry.
	RequestTeardown()
}
