// game/engine.go
package game

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// Config carries the per-room match rules.
type Config struct {
	Rounds          int // total rounds in a match
	MatchesPerRound int // points played before a round closes
}

// RoundResult is the summary appended when a round closes.
type RoundResult struct {
	Round      int `json:"round"`
	LeftScore  int `json:"leftScore"`
	RightScore int `json:"rightScore"`
}

// Winner of a finished match.
type Winner string

const (
	WinnerLeft  Winner = "left"
	WinnerRight Winner = "right"
	WinnerDraw  Winner = "draw"
)

// MatchSummary is broadcast and persisted when a match ends.
type MatchSummary struct {
	Rounds []RoundResult `json:"rounds"`
	Winner Winner        `json:"winner"`
}

// TickReport is what one simulation step produced.
type TickReport struct {
	Snapshot     Snapshot
	ClosedRounds []RoundResult // rounds that closed during this tick
	MatchOver    bool
	Changed      bool // false when the tick was a no-op (paused, unseeded, ended)
}

// Engine owns one room's simulation state. Every operation serializes on one
// mutex, so an inbound control event and the periodic tick never touch the
// state at the same time. Engines of different rooms share nothing.
//
// The server is authoritative for the ball; paddle positions are
// client-authoritative (each side reports only its own paddle) and are
// clamped on the way in.
type Engine struct {
	mu sync.Mutex

	ball        Ball
	leftPaddle  Paddle
	rightPaddle Paddle

	leftScore        int
	rightScore       int
	roundNumber      int
	matchesRemaining int

	rounds          int
	matchesPerRound int

	// serve speed captured at seed time, reapplied on every center reset
	serveSpeedX float64
	serveSpeedY float64

	seeded bool
	paused bool
	ended  bool

	results []RoundResult
	winner  Winner

	rng *rand.Rand
}

// NewEngine creates an engine with default placement; real geometry arrives
// with SetInitialState once both players are seated.
func NewEngine(cfg Config) *Engine {
	if cfg.Rounds <= 0 {
		cfg.Rounds = 1
	}
	if cfg.MatchesPerRound <= 0 {
		cfg.MatchesPerRound = 1
	}
	return &Engine{
		ball:             Ball{X: FieldExtent / 2, Y: FieldExtent / 2},
		rounds:           cfg.Rounds,
		matchesPerRound:  cfg.MatchesPerRound,
		roundNumber:      1,
		matchesRemaining: cfg.MatchesPerRound,
		rng:              rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetInitialState stores the inbound normalized geometry as the starting
// snapshot. Only the first call takes effect; later calls and calls after the
// match ended are no-ops.
func (e *Engine) SetInitialState(init InitialState) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.seeded || e.ended {
		return
	}

	e.ball = init.Ball
	// The speed cap holds from the first tick, not just after a paddle hit.
	e.ball.SpeedX = clampMagnitude(e.ball.SpeedX, init.Ball.MaxBallSpeed)
	e.ball.SpeedY = clampMagnitude(e.ball.SpeedY, init.Ball.MaxBallSpeed)
	e.leftPaddle = init.LeftPaddle
	e.rightPaddle = init.RightPaddle
	e.leftPaddle.Y = clampPaddleY(e.leftPaddle.Y, e.leftPaddle.Height)
	e.rightPaddle.Y = clampPaddleY(e.rightPaddle.Y, e.rightPaddle.Height)

	e.serveSpeedX = math.Abs(e.ball.SpeedX)
	e.serveSpeedY = math.Abs(e.ball.SpeedY)
	e.seeded = true
}

// Seeded reports whether the starting snapshot has arrived.
func (e *Engine) Seeded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.seeded
}

// UpdatePaddle overwrites one paddle from its controlling client. Last write
// wins; the position is clamped to the playfield. No-op after the match ends.
func (e *Engine) UpdatePaddle(side Side, p Paddle) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ended {
		return
	}

	p.Y = clampPaddleY(p.Y, p.Height)
	if side == SideLeft {
		e.leftPaddle = p
	} else {
		e.rightPaddle = p
	}
}

// SetPaused toggles the pause flag. While paused, Tick is skipped entirely so
// no simulation time accrues.
func (e *Engine) SetPaused(paused bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ended {
		return
	}
	e.paused = paused
}

// Paused returns the pause flag.
func (e *Engine) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// Tick advances the simulation by dt tick units and returns the resulting
// public state. A paused, unseeded or ended engine reports Changed=false and
// leaves the state untouched.
func (e *Engine) Tick(dt float64) TickReport {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.seeded || e.paused || e.ended {
		return TickReport{Snapshot: e.snapshotLocked()}
	}

	advanceBall(&e.ball, dt)
	reflectWalls(&e.ball)
	collidePaddles(&e.ball, &e.leftPaddle, &e.rightPaddle, e.ball.MaxBallSpeed)

	report := TickReport{Changed: true}

	if scorer, scored := goal(&e.ball); scored {
		if scorer == SideLeft {
			e.leftScore++
		} else {
			e.rightScore++
		}
		e.matchesRemaining--
		e.resetBallLocked()

		if closed, over := e.evaluateRoundAndMatchEndLocked(); closed != nil {
			report.ClosedRounds = append(report.ClosedRounds, *closed)
			report.MatchOver = over
		}
	}

	report.Snapshot = e.snapshotLocked()
	return report
}

// resetBallLocked recenters the ball and serves in a fresh random direction
// at the initial speed magnitude.
func (e *Engine) resetBallLocked() {
	e.ball.X = FieldExtent / 2
	e.ball.Y = FieldExtent / 2
	e.ball.SpeedX = e.serveSpeedX
	e.ball.SpeedY = e.serveSpeedY
	if e.rng.Intn(2) == 0 {
		e.ball.SpeedX = -e.ball.SpeedX
	}
	if e.rng.Intn(2) == 0 {
		e.ball.SpeedY = -e.ball.SpeedY
	}
}

// evaluateRoundAndMatchEndLocked closes the current round when its match
// budget is exhausted, and the whole match when the last round closed. The
// winner is decided by strict score comparison; equal totals are a draw.
func (e *Engine) evaluateRoundAndMatchEndLocked() (*RoundResult, bool) {
	if e.matchesRemaining > 0 {
		return nil, false
	}

	result := RoundResult{
		Round:      e.roundNumber,
		LeftScore:  e.leftScore,
		RightScore: e.rightScore,
	}
	e.results = append(e.results, result)

	if e.roundNumber >= e.rounds {
		e.winner = decideWinner(e.leftScore, e.rightScore)
		e.ended = true
		return &result, true
	}

	e.roundNumber++
	e.leftScore = 0
	e.rightScore = 0
	e.matchesRemaining = e.matchesPerRound
	return &result, false
}

func decideWinner(left, right int) Winner {
	switch {
	case left > right:
		return WinnerLeft
	case right > left:
		return WinnerRight
	default:
		return WinnerDraw
	}
}

// Finish marks the engine ended. Every later operation becomes a no-op; a
// trailing tick racing an end request is expected, not an error.
func (e *Engine) Finish() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ended = true
}

// Ended reports whether the match is over.
func (e *Engine) Ended() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ended
}

// Snapshot returns the current public state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() Snapshot {
	ball := e.ball
	ball.MaxBallSpeed = 0 // seed-only field, not part of the tick payload
	return Snapshot{
		Ball:             ball,
		LeftScore:        e.leftScore,
		RightScore:       e.rightScore,
		RoundNumber:      e.roundNumber,
		MatchesRemaining: e.matchesRemaining,
	}
}

// Paddles returns both paddle positions.
func (e *Engine) Paddles() (left, right Paddle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.leftPaddle, e.rightPaddle
}

// Summary returns the per-round results and, once the match ended, the winner.
func (e *Engine) Summary() MatchSummary {
	e.mu.Lock()
	defer e.mu.Unlock()
	rounds := make([]RoundResult, len(e.results))
	copy(rounds, e.results)
	return MatchSummary{Rounds: rounds, Winner: e.winner}
}
