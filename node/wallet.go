package node

import (
	"github.com/driftchain/driftchain/common"
	"github.com/driftchain/driftchain/ledger/types"
)

// Wallet is the computed balance view for a user (spec.md §4.5).
type Wallet struct {
	Processed []*types.Tx
	Pending   []*types.Tx

	Incoming common.Amount
	Outgoing common.Amount
	Reserved common.Amount
	Fees     common.Amount
	Available common.Amount
}

// wallet computes the Wallet view for pk without requiring an open
// session, so it can also serve gossip-driven rebuilds.
func (n *Node) wallet(pk []byte) Wallet {
	var w Wallet

	for _, tx := range n.chain.AllTxs() {
		if !tx.InvolvesKey(pk) {
			continue
		}
		w.Processed = append(w.Processed, tx)
		if string(tx.ReceiverPK) == string(pk) {
			w.Incoming = w.Incoming.Add(tx.Output)
		}
		if tx.Kind == types.NORMAL && string(tx.SenderPK) == string(pk) {
			w.Outgoing = w.Outgoing.Add(tx.Input)
		}
	}

	for _, tx := range n.pool.ByAccount(pk) {
		w.Pending = append(w.Pending, tx)
		if tx.Kind == types.NORMAL && string(tx.SenderPK) == string(pk) {
			w.Reserved = w.Reserved.Add(tx.Input)
		}
	}
	for _, tx := range n.chain.Head().Txs {
		if !tx.InvolvesKey(pk) {
			continue
		}
		w.Pending = append(w.Pending, tx)
		if tx.Kind == types.NORMAL && string(tx.SenderPK) == string(pk) {
			w.Reserved = w.Reserved.Add(tx.Input)
		}
	}

	for _, b := range n.chain.Blocks() {
		if string(b.MinedBy) != string(pk) {
			continue
		}
		if b.State() != types.VALIDATED {
			continue
		}
		for _, tx := range b.Txs {
			w.Fees = w.Fees.Add(tx.Fee)
		}
	}

	w.Available = w.Incoming.Sub(w.Outgoing).Sub(w.Reserved).Add(w.Fees)
	return w
}
