package node

import (
	"time"

	"github.com/driftchain/driftchain/gossip"
)

// StartupSync implements spec.md §4.6's startup sync: wait briefly for
// listeners to initialize, broadcast an empty NodeSyncRequest, collect
// peer summaries until every configured peer has answered or a deadline
// elapses, then catch up on blocks, usernames, and txs from the most
// advanced peer. Received objects flow back through the normal inbox path
// (applyBlock etc.) and so receive full validation.
func (n *Node) StartupSync() {
	time.Sleep(gossip.StartupWindow())

	n.mu.Lock()
	self := n.selfAddr
	peers := append([]string(nil), n.cfg.Peers...)
	n.mu.Unlock()

	gossip.Broadcast(peers, self, gossip.SyncReqEnvelope(&gossip.NodeSyncRequest{PeerAddr: self}))

	deadline := time.Now().Add(gossip.StartupWindow())
	for time.Now().Before(deadline) {
		n.mu.Lock()
		heard := len(n.peerSummaries)
		n.mu.Unlock()
		if heard >= len(peers) {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	n.mu.Lock()
	var best *gossip.NodeSummary
	for _, s := range n.peerSummaries {
		if best == nil || s.HeadID > best.HeadID {
			best = s
		}
	}
	ownHead := n.chain.Head().ID
	knownUsernames := make(map[string]bool)
	for _, u := range n.accounts.Usernames() {
		knownUsernames[u] = true
	}
	n.mu.Unlock()

	if best == nil {
		return
	}

	for id := ownHead; id < best.HeadID; id++ {
		blockID := id
		gossip.Broadcast([]string{best.PeerAddr}, self, gossip.SyncReqEnvelope(&gossip.NodeSyncRequest{BlockID: &blockID, PeerAddr: self}))
	}
	// spec.md §4.6(c)/(d) allows requesting from "the first peer that
	// reports each"; this only asks best, the most-advanced peer, since
	// its summary is a superset of every other peer's in the common case
	// and it keeps the catch-up fan-out to one destination.
	for _, uname := range best.Usernames {
		if knownUsernames[uname] {
			continue
		}
		name := uname
		gossip.Broadcast([]string{best.PeerAddr}, self, gossip.SyncReqEnvelope(&gossip.NodeSyncRequest{Username: &name, PeerAddr: self}))
	}
	for _, h := range best.PoolTxHashes {
		hash := h
		if _, ok := n.pool.Get(hash); ok {
			continue
		}
		gossip.Broadcast([]string{best.PeerAddr}, self, gossip.SyncReqEnvelope(&gossip.NodeSyncRequest{TxHash: &hash, PeerAddr: self}))
	}
}
