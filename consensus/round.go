// Package consensus implements the YAC voting protocol: per-round vote
// storage with supermajority detection, the consensus gate state
// machine, and the cluster ordering shared with the ordering fabric.
package consensus

import "fmt"

// Round identifies one consensus attempt. BlockRound advances on
// commit; RejectRound advances on reject or missing proposal and
// resets on commit.
type Round struct {
	BlockRound  uint64
	RejectRound uint64
}

func (r Round) String() string {
	return fmt.Sprintf("round{%d, %d}", r.BlockRound, r.RejectRound)
}

// Less orders rounds by block round, then reject round.
func (r Round) Less(o Round) bool {
	if r.BlockRound != o.BlockRound {
		return r.BlockRound < o.BlockRound
	}
	return r.RejectRound < o.RejectRound
}
