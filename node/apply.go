package node

import (
	"github.com/driftchain/driftchain/accounts"
	"github.com/driftchain/driftchain/common"
	"github.com/driftchain/driftchain/consensus"
	"github.com/driftchain/driftchain/gossip"
	"github.com/driftchain/driftchain/ledger/types"
)

// apply is the inbox dispatch of spec.md §4.6: a tagged variant with one
// arm per object type, called by consumeInbox with the writer lock held.
func (n *Node) apply(env gossip.Envelope) {
	switch env.Kind {
	case gossip.KindUser:
		n.applyUser(env.User)
	case gossip.KindTx:
		n.applyTx(env.Tx)
	case gossip.KindBlock:
		n.applyBlock(env.Block)
	case gossip.KindValidationFlag:
		n.applyFlag(env.Flag)
	case gossip.KindNodeSummary:
		n.applySummary(env.Summary)
	case gossip.KindNodeSyncRequest:
		n.applySyncRequest(env.SyncReq)
	default:
		logger.Warn("dropping object of unknown kind", "kind", env.Kind)
	}
}

// applyUser: accept if username unseen, otherwise drop (spec.md §4.6).
func (n *Node) applyUser(u *accounts.User) {
	if u == nil {
		return
	}
	if err := n.accounts.Adopt(u); err != nil {
		logger.Debug("dropping duplicate user", "username", u.Username)
	}
}

// applyTx applies the NORMAL/REWARD tx apply rules of spec.md §4.6.
func (n *Node) applyTx(tx *types.Tx) {
	if tx == nil || !tx.IsValid() {
		return
	}
	switch tx.Kind {
	case types.NORMAL:
		w := n.wallet(tx.SenderPK)
		if w.Available < tx.Input {
			logger.Debug("dropping tx: insufficient sender balance", "hash", tx.Hash)
			return
		}
		_ = n.pool.Add(tx)
	case types.REWARD:
		_ = n.pool.Add(tx)
		n.autoFillRewardsLocked()
	}
}

// applyBlock applies the Block apply rule of spec.md §4.6: chain.add_mined_block,
// removing its txs from the pool on acceptance.
func (n *Node) applyBlock(b *types.Block) {
	if b == nil {
		return
	}
	before := n.chain.Head()
	if err := n.chain.AddMinedBlock(b); err != nil {
		logger.Debug("dropping block", "id", b.ID, "err", err)
		return
	}
	if n.chain.Head() == before {
		return // raced and lost; nothing to reconcile
	}
	for h := range b.Txs {
		n.pool.Pop(h)
	}
}

// applyFlag locates the referenced block and records the flag; a flag that
// tips the reject quorum resets the block locally (the accept-quorum
// reward is only ever issued by the validator whose own call locally tips
// the count, per spec.md §5's ordering note).
func (n *Node) applyFlag(f *gossip.ValidationFlag) {
	if f == nil {
		return
	}
	b, ok := n.chain.GetByID(f.BlockID)
	if !ok {
		return
	}
	if err := b.AddValidationFlag(f.ValidatorPK, f.Signature, f.Accept); err != nil {
		return
	}
	if consensus.Tally(b) == consensus.RejectQuorumReached {
		n.rejectBlockLocked(b)
	}
}

func (n *Node) applySummary(s *gossip.NodeSummary) {
	if s == nil {
		return
	}
	if n.peerSummaries == nil {
		n.peerSummaries = make(map[string]*gossip.NodeSummary)
	}
	n.peerSummaries[s.PeerAddr] = s
}

// applySyncRequest replies either with this node's own summary (an empty
// request) or with the specific requested object (spec.md §4.6).
func (n *Node) applySyncRequest(r *gossip.NodeSyncRequest) {
	if r == nil {
		return
	}
	if r.IsEmpty() {
		gossip.Broadcast([]string{r.PeerAddr}, n.selfAddr, gossip.SummaryEnvelope(n.ownSummary()))
		return
	}
	if r.BlockID != nil {
		if b, ok := n.chain.GetByID(*r.BlockID); ok {
			gossip.Broadcast([]string{r.PeerAddr}, n.selfAddr, gossip.BlockEnvelope(b))
		}
	}
	if r.Username != nil {
		if u, ok := n.accounts.Get(*r.Username); ok {
			gossip.Broadcast([]string{r.PeerAddr}, n.selfAddr, gossip.UserEnvelope(u))
		}
	}
	if r.TxHash != nil {
		if tx, ok := n.pool.Get(*r.TxHash); ok {
			gossip.Broadcast([]string{r.PeerAddr}, n.selfAddr, gossip.TxEnvelope(tx))
		}
	}
}

func (n *Node) ownSummary() *gossip.NodeSummary {
	snap := n.pool.Snapshot()
	hashes := make([]common.Hash, 0, len(snap))
	for h := range snap {
		hashes = append(hashes, h)
	}
	return &gossip.NodeSummary{
		HeadID:       n.chain.Head().ID,
		PoolTxHashes: hashes,
		Usernames:    n.accounts.Usernames(),
		PeerAddr:     n.selfAddr,
	}
}
