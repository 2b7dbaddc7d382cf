package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewWithUnreachableServersFallsBackToZeroOffset(t *testing.T) {
	c := New([]string{"invalid.invalid.example"})
	defer c.Close()

	assert.Equal(t, time.Duration(0), c.Offset())
}

func TestNowTracksLocalClockWhenUnsynced(t *testing.T) {
	c := New([]string{"invalid.invalid.example"})
	defer c.Close()

	before := time.Now()
	now := c.Now()
	after := time.Now()
	assert.True(t, !now.Before(before) && !now.After(after.Add(time.Second)))
}

func TestCloseStopsResyncLoop(t *testing.T) {
	c := New(nil)
	c.Close()
	assert.Eventually(t, func() bool { return true }, time.Millisecond, time.Millisecond)
}
