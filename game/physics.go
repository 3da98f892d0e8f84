// game/physics.go
package game

import "math"

// Pure ball/paddle kinematics. No shared state; the engine calls these under
// its own lock.

// speedRampFactor is applied to the ball velocity on every paddle hit.
const speedRampFactor = 1.05

// Side identifies a paddle / player slot. The room owner drives the left
// paddle, the guest the right one.
type Side int

const (
	SideLeft Side = iota
	SideRight
)

func (s Side) String() string {
	if s == SideLeft {
		return "left"
	}
	return "right"
}

// advanceBall moves the ball by velocity scaled with elapsed time, where dt
// is measured in tick units (1.0 = one nominal tick).
func advanceBall(b *Ball, dt float64) {
	b.X += b.SpeedX * dt
	b.Y += b.SpeedY * dt
}

// reflectWalls bounces the ball off the top and bottom edges. Returns true
// if a bounce happened.
func reflectWalls(b *Ball) bool {
	if b.Y-b.Radius <= 0 {
		b.Y = b.Radius
		b.SpeedY = math.Abs(b.SpeedY)
		return true
	}
	if b.Y+b.Radius >= FieldExtent {
		b.Y = FieldExtent - b.Radius
		b.SpeedY = -math.Abs(b.SpeedY)
		return true
	}
	return false
}

// paddleOverlapsY reports whether the ball's vertical span touches the paddle.
func paddleOverlapsY(b *Ball, p *Paddle) bool {
	return b.Y+b.Radius >= p.Y && b.Y-b.Radius <= p.Y+p.Height
}

// collidePaddles reflects the ball off whichever paddle it is entering and
// ramps its speed. Returns true on a hit.
func collidePaddles(b *Ball, left, right *Paddle, maxSpeed float64) bool {
	if b.SpeedX < 0 && b.X-b.Radius <= left.X+left.Width && b.X+b.Radius >= left.X && paddleOverlapsY(b, left) {
		b.X = left.X + left.Width + b.Radius
		b.SpeedX = math.Abs(b.SpeedX)
		rampSpeed(b, maxSpeed)
		return true
	}
	if b.SpeedX > 0 && b.X+b.Radius >= right.X && b.X-b.Radius <= right.X+right.Width && paddleOverlapsY(b, right) {
		b.X = right.X - b.Radius
		b.SpeedX = -math.Abs(b.SpeedX)
		rampSpeed(b, maxSpeed)
		return true
	}
	return false
}

// rampSpeed scales both velocity components, clamping each to maxSpeed.
func rampSpeed(b *Ball, maxSpeed float64) {
	b.SpeedX = clampMagnitude(b.SpeedX*speedRampFactor, maxSpeed)
	b.SpeedY = clampMagnitude(b.SpeedY*speedRampFactor, maxSpeed)
}

func clampMagnitude(v, limit float64) float64 {
	if limit <= 0 {
		return v
	}
	if v > limit {
		return limit
	}
	if v < -limit {
		return -limit
	}
	return v
}

// goal reports which side scored, if the ball crossed a goal line. Crossing
// x=0 is a point for the right player, x=FieldExtent for the left.
func goal(b *Ball) (Side, bool) {
	if b.X-b.Radius <= 0 {
		return SideRight, true
	}
	if b.X+b.Radius >= FieldExtent {
		return SideLeft, true
	}
	return 0, false
}

// clampPaddleY keeps a paddle inside the playfield.
func clampPaddleY(y, height float64) float64 {
	if y < 0 {
		return 0
	}
	if y > FieldExtent-height {
		return FieldExtent - height
	}
	return y
}
