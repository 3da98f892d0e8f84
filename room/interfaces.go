package room

import "github.com/wfunc/pongserver/game"

// Broadcaster defines the interface for delivering messages to a room's
// occupants. This is defined here to break the import cycle between room and
// broadcast.
type Broadcaster interface {
	BroadcastToRoom(roomID string, msgID uint16, data []byte) error
}

// RoundRecorder receives finished round and match results. Implementations
// must not block; persistence runs on its own goroutine.
type RoundRecorder interface {
	RecordRound(roomID string, result game.RoundResult)
	RecordMatch(roomID string, summary game.MatchSummary)
}
