package engine

import "github.com/ledgerless/ledgerless/mesh"

// Score weights. Fixed, not configurable: the spec's conflict score is
// a last-writer-deterministic tie-breaker, not a tunable consensus
// parameter — every node must compute the same score from the same
// state or fork resolution itself becomes a source of divergence.
const (
	weightNonEmptyAccounts = 3
	weightSumNonces        = 1
	weightSumBalances      = 1
)

// Score is a candidate committed state's consensus score, used only to
// pick a winner between two roots seen after a brief partition. It is
// advisory: see the state engine's conflict-score design note.
type Score struct {
	Root  mesh.Hash
	Value uint64
}

func computeScore(root mesh.Hash, agg aggregate) Score {
	v := weightNonEmptyAccounts*agg.NonEmptyAccounts +
		weightSumNonces*agg.SumNonces +
		weightSumBalances*agg.SumBalancesModM
	return Score{Root: root, Value: v}
}

// Beats reports whether s should replace other as the preferred state:
// higher score wins; ties broken by lexicographically smaller root.
func (s Score) Beats(other Score) bool {
	if s.Value != other.Value {
		return s.Value > other.Value
	}
	return lessHash(s.Root, other.Root)
}

func lessHash(a, b mesh.Hash) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
