package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFixedClock(t *testing.T) {
	at := time.Date(2025, 1, 1, 12, 0, 0, 0, time.FixedZone("EAT", 3*60*60))
	clk := NewFixed(at)

	assert.Equal(t, at.UTC(), clk.Now())
	assert.Equal(t, time.UTC, clk.Now().Location())
}

func TestManualClock(t *testing.T) {
	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	clk := NewManual(start)

	assert.Equal(t, start, clk.Now())

	clk.Advance(30 * time.Minute)
	assert.Equal(t, start.Add(30*time.Minute), clk.Now())

	clk.Set(start)
	assert.Equal(t, start, clk.Now())
}

func TestSystemClockIsUTC(t *testing.T) {
	assert.Equal(t, time.UTC, NewSystem().Now().Location())
}
