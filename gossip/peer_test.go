package gossip

import (
	"testing"

	"github.com/ethereum/go-ethereum/p2p/enode"
	"github.com/stretchr/testify/assert"
)

func TestScoreTableAdjustAccumulates(t *testing.T) {
	tab := newScoreTable()
	var id enode.ID
	id[0] = 1

	tab.adjust(id, scoreGoodMessage)
	tab.adjust(id, scoreGoodMessage)
	assert.Equal(t, int64(2*scoreGoodMessage), tab.score(id))
}

func TestScoreTableBannedBelowThreshold(t *testing.T) {
	tab := newScoreTable()
	var id enode.ID
	id[0] = 2

	assert.False(t, tab.banned(id))
	for i := 0; i < 13; i++ {
		tab.adjust(id, scoreBadMessage)
	}
	assert.True(t, tab.banned(id))
}

func TestScoreTableSnapshotIsIndependentCopy(t *testing.T) {
	tab := newScoreTable()
	var id enode.ID
	id[0] = 3
	tab.adjust(id, scoreGoodMessage)

	snap := tab.snapshot()
	assert.Equal(t, int64(scoreGoodMessage), snap[id])

	tab.adjust(id, scoreGoodMessage)
	assert.Equal(t, int64(scoreGoodMessage), snap[id], "snapshot must not observe later mutations")
}

func TestScoreTableUnknownPeerScoresZero(t *testing.T) {
	tab := newScoreTable()
	var id enode.ID
	id[0] = 9
	assert.Equal(t, int64(0), tab.score(id))
	assert.False(t, tab.banned(id))
}
