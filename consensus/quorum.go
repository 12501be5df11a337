// Package consensus tallies the three-flag quorum spec.md §4.3 requires
// before a block moves MINED -> VALIDATED (or MINED -> NEW on rejection),
// generalizing the teacher's istanbul commit/prepare tallying
// (consensus/istanbul/core/commit.go's 2*F+1 threshold check) to this
// system's two independent three-vote tallies.
package consensus

import "github.com/driftchain/driftchain/ledger/types"

// Outcome describes what a just-added validation flag triggered.
type Outcome int

const (
	None Outcome = iota
	AcceptQuorumReached
	RejectQuorumReached
)

// Tally inspects a block immediately after a flag was added to it and
// reports whether that flag was the one tipping the block into
// VALIDATED (third accept) or into rejection (third reject). Only the
// flag that crosses the threshold triggers an Outcome; earlier flags of
// the same polarity report None.
func Tally(b *types.Block) Outcome {
	switch {
	case b.AcceptCount() == types.RequiredFlags:
		return AcceptQuorumReached
	case b.RejectCount() == types.RequiredFlags:
		return RejectQuorumReached
	default:
		return None
	}
}
