package game

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdvanceBall(t *testing.T) {
	b := Ball{X: 50, Y: 50, SpeedX: 2, SpeedY: -1}
	advanceBall(&b, 1)
	assert.InDelta(t, 52.0, b.X, 1e-9)
	assert.InDelta(t, 49.0, b.Y, 1e-9)

	// Fractional dt scales the step.
	advanceBall(&b, 0.5)
	assert.InDelta(t, 53.0, b.X, 1e-9)
	assert.InDelta(t, 48.5, b.Y, 1e-9)
}

func TestReflectWalls(t *testing.T) {
	tests := []struct {
		name       string
		ball       Ball
		wantBounce bool
		wantSpeedY float64
	}{
		{
			name:       "top wall reflects downward",
			ball:       Ball{X: 50, Y: 1, Radius: 2, SpeedY: -1.5},
			wantBounce: true,
			wantSpeedY: 1.5,
		},
		{
			name:       "bottom wall reflects upward",
			ball:       Ball{X: 50, Y: 99, Radius: 2, SpeedY: 1.5},
			wantBounce: true,
			wantSpeedY: -1.5,
		},
		{
			name:       "mid-field untouched",
			ball:       Ball{X: 50, Y: 50, Radius: 2, SpeedY: 1.5},
			wantBounce: false,
			wantSpeedY: 1.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := tt.ball
			got := reflectWalls(&b)
			assert.Equal(t, tt.wantBounce, got)
			assert.InDelta(t, tt.wantSpeedY, b.SpeedY, 1e-9)
			// The ball is always pushed back inside the field.
			assert.GreaterOrEqual(t, b.Y-b.Radius, 0.0)
			assert.LessOrEqual(t, b.Y+b.Radius, FieldExtent)
		})
	}
}

func TestCollidePaddles_ReflectsAndRamps(t *testing.T) {
	left := Paddle{X: 1, Y: 40, Width: 2, Height: 20}
	right := Paddle{X: 97, Y: 40, Width: 2, Height: 20}

	b := Ball{X: 4, Y: 50, Radius: 1, SpeedX: -2, SpeedY: 1}
	hit := collidePaddles(&b, &left, &right, 10)
	assert.True(t, hit)
	assert.Greater(t, b.SpeedX, 0.0, "ball reflects off the left paddle")
	assert.InDelta(t, 2*speedRampFactor, b.SpeedX, 1e-9)
	assert.InDelta(t, 1*speedRampFactor, b.SpeedY, 1e-9)

	b = Ball{X: 96, Y: 50, Radius: 1, SpeedX: 2, SpeedY: 1}
	hit = collidePaddles(&b, &left, &right, 10)
	assert.True(t, hit)
	assert.Less(t, b.SpeedX, 0.0, "ball reflects off the right paddle")
}

func TestCollidePaddles_MissesOutsidePaddleSpan(t *testing.T) {
	left := Paddle{X: 1, Y: 40, Width: 2, Height: 20}
	right := Paddle{X: 97, Y: 40, Width: 2, Height: 20}

	// Same x-band as the left paddle but far above it.
	b := Ball{X: 3, Y: 10, Radius: 1, SpeedX: -2, SpeedY: 0}
	assert.False(t, collidePaddles(&b, &left, &right, 10))
	assert.InDelta(t, -2.0, b.SpeedX, 1e-9)
}

func TestRampSpeed_CappedAtMax(t *testing.T) {
	b := Ball{SpeedX: 9.9, SpeedY: -9.9}
	for i := 0; i < 50; i++ {
		rampSpeed(&b, 10)
	}
	assert.LessOrEqual(t, math.Abs(b.SpeedX), 10.0)
	assert.LessOrEqual(t, math.Abs(b.SpeedY), 10.0)
	assert.InDelta(t, 10.0, b.SpeedX, 1e-9)
	assert.InDelta(t, -10.0, b.SpeedY, 1e-9)
}

func TestGoal(t *testing.T) {
	side, scored := goal(&Ball{X: 0.5, Radius: 1})
	assert.True(t, scored)
	assert.Equal(t, SideRight, side, "crossing x=0 is a point for the right player")

	side, scored = goal(&Ball{X: 99.5, Radius: 1})
	assert.True(t, scored)
	assert.Equal(t, SideLeft, side, "crossing x=extent is a point for the left player")

	_, scored = goal(&Ball{X: 50, Radius: 1})
	assert.False(t, scored)
}

func TestClampPaddleY(t *testing.T) {
	assert.Equal(t, 0.0, clampPaddleY(-5, 20))
	assert.Equal(t, 80.0, clampPaddleY(95, 20))
	assert.Equal(t, 30.0, clampPaddleY(30, 20))
}
