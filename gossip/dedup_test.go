package gossip

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ledgerless/ledgerless/mesh"
)

func TestDedupSeenBeforeMarksOnFirstSight(t *testing.T) {
	d := newDedup()
	id := mesh.Sum([]byte("msg-1"))

	assert.False(t, d.seenBefore(id))
	assert.True(t, d.seenBefore(id))
}

func TestDedupTracksDistinctIDsIndependently(t *testing.T) {
	d := newDedup()
	a := mesh.Sum([]byte("a"))
	b := mesh.Sum([]byte("b"))

	assert.False(t, d.seenBefore(a))
	assert.False(t, d.seenBefore(b))
	assert.True(t, d.seenBefore(a))
	assert.True(t, d.seenBefore(b))
}
