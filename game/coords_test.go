package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	extents := []float64{1, 480, 800, 1080, 1920, 2560.5}
	values := []float64{0, 0.001, 1, 42.42, 100, 379.25, 799, 1919.999}

	for _, extent := range extents {
		for _, v := range values {
			got := Decode(Encode(v, extent), extent)
			assert.InDelta(t, v, got, 1e-9, "round trip for value %v at extent %v", v, extent)
		}
	}
}

func TestEncode_KnownValues(t *testing.T) {
	// Half the canvas is always 50 in normalized space.
	assert.InDelta(t, 50.0, Encode(400, 800), 1e-9)
	assert.InDelta(t, 50.0, Encode(960, 1920), 1e-9)
	// Decoding 100 recovers the full extent.
	assert.InDelta(t, 800.0, Decode(100, 800), 1e-9)
}

func TestEncode_NegativeAndOutOfRange(t *testing.T) {
	// The transform is linear; values outside the canvas still round-trip.
	for _, v := range []float64{-50, -1, 101, 5000} {
		got := Decode(Encode(v, 1024), 1024)
		assert.InDelta(t, v, got, 1e-9)
	}
}
