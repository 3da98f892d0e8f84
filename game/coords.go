// game/coords.go
package game

// All simulation state lives in a resolution-independent 0-100 space so that
// clients with different canvas sizes decode the same wire values. Positions
// and sizes scale against the matching axis extent; the ball radius scales
// against the larger of the two axes, mirroring how clients encode it.

// FieldExtent is the size of the normalized playfield on each axis.
const FieldExtent = 100.0

// Encode converts a pixel value into normalized space.
func Encode(pixel, axisExtent float64) float64 {
	return pixel * FieldExtent / axisExtent
}

// Decode converts a normalized value back into pixel space.
func Decode(normalized, axisExtent float64) float64 {
	return normalized * axisExtent / FieldExtent
}

// Ball is the wire representation of the ball in normalized space.
// MaxBallSpeed is only present on the initial seed payload.
type Ball struct {
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	SpeedX       float64 `json:"speedX"`
	SpeedY       float64 `json:"speedY"`
	Radius       float64 `json:"radius"`
	MaxBallSpeed float64 `json:"maxBallSpeed,omitempty"`
}

// Paddle is the wire representation of a paddle in normalized space.
type Paddle struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// InitialState is the seed payload a client sends once both players are
// seated (the original initCanvasData shape).
type InitialState struct {
	Ball        Ball   `json:"ball"`
	LeftPaddle  Paddle `json:"leftPaddle"`
	RightPaddle Paddle `json:"rightPaddle"`
}

// CanvasData carries paddle positions on the update channel.
type CanvasData struct {
	LeftPaddle  Paddle `json:"leftPaddle"`
	RightPaddle Paddle `json:"rightPaddle"`
}

// Snapshot is the public per-tick state broadcast to the room.
type Snapshot struct {
	Ball             Ball `json:"ball"`
	LeftScore        int  `json:"leftScore"`
	RightScore       int  `json:"rightScore"`
	RoundNumber      int  `json:"roundNumber"`
	MatchesRemaining int  `json:"matchesRemaining"`
}
