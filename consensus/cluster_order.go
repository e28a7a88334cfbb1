package consensus

import (
	"errors"

	"github.com/ryjones/iroha/ledgerpb"
)

// ClusterOrdering is the ordered peer list of a round. The leader
// rotates through it when rounds fail to settle.
type ClusterOrdering struct {
	peers []*ledgerpb.Peer
	index int
}

var ErrEmptyCluster = errors.New("peer list is empty")

// NewClusterOrdering validates and wraps the ordered peer list.
func NewClusterOrdering(peers []*ledgerpb.Peer) (*ClusterOrdering, error) {
	if len(peers) == 0 {
		return nil, ErrEmptyCluster
	}
	return &ClusterOrdering{peers: peers}, nil
}

// CurrentLeader is the peer the current attempt waits on.
func (c *ClusterOrdering) CurrentLeader() *ledgerpb.Peer {
	return c.peers[c.index]
}

// SwitchOnNext rotates to the next peer.
func (c *ClusterOrdering) SwitchOnNext() {
	c.index = (c.index + 1) % len(c.peers)
}

// Peers returns the full ordered list.
func (c *ClusterOrdering) Peers() []*ledgerpb.Peer {
	return c.peers
}

// Size is the cluster size.
func (c *ClusterOrdering) Size() int {
	return len(c.peers)
}
