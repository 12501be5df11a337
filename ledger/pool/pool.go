// Package pool holds the unordered set of pending transactions not yet in
// any block (spec.md §4.2). It is mutated only by the Node engine's single
// writer, the same single-writer discipline the teacher's inbox consumer
// follows for chain state — no internal locking is needed here.
package pool

import (
	"github.com/driftchain/driftchain/common"
	"github.com/driftchain/driftchain/ledger/types"
	glog "github.com/driftchain/driftchain/log"
)

var logger = glog.NewModuleLogger(glog.Pool)

// Pool is a mapping tx-hash -> Tx of pending transactions.
type Pool struct {
	txs     map[common.Hash]*types.Tx
	invalid map[common.Hash]bool // flagged by the rejection protocol (spec.md §4.3(b))
}

func New() *Pool {
	return &Pool{
		txs:     make(map[common.Hash]*types.Tx),
		invalid: make(map[common.Hash]bool),
	}
}

// Add is idempotent by tx.Hash; it fails with ErrInvalidTx if the tx does
// not validate on its own terms.
func (p *Pool) Add(tx *types.Tx) error {
	if !tx.IsValid() {
		return types.ErrInvalidTx
	}
	p.txs[tx.Hash] = tx
	return nil
}

func (p *Pool) Get(hash common.Hash) (*types.Tx, bool) {
	tx, ok := p.txs[hash]
	return tx, ok
}

// Pop removes and returns a tx, used when moving it into a block under
// construction.
func (p *Pool) Pop(hash common.Hash) (*types.Tx, bool) {
	tx, ok := p.txs[hash]
	if ok {
		delete(p.txs, hash)
	}
	return tx, ok
}

// Put returns a tx to the pool, the inverse of Pop, used on block
// rejection (spec.md §4.3(a)).
func (p *Pool) Put(tx *types.Tx) {
	p.txs[tx.Hash] = tx
}

// Cancel removes a tx only if pk is entitled to cancel it.
func (p *Pool) Cancel(hash common.Hash, pk []byte) error {
	tx, ok := p.txs[hash]
	if !ok {
		return types.ErrInvalidTx
	}
	if !tx.CancellableBy(pk) {
		return types.ErrUnauthorized
	}
	delete(p.txs, hash)
	return nil
}

// FlagInvalid marks a tx hash as invalid-flagged so its originator cancels
// it on next login (spec.md §4.3(b)); the tx itself may or may not still be
// present in the pool at the time this is called.
func (p *Pool) FlagInvalid(hash common.Hash) {
	p.invalid[hash] = true
	logger.Warn("tx flagged invalid by rejection protocol", "hash", hash)
}

func (p *Pool) IsFlaggedInvalid(hash common.Hash) bool {
	return p.invalid[hash]
}

// ByAccount returns every pooled tx referencing pk as sender or receiver.
func (p *Pool) ByAccount(pk []byte) []*types.Tx {
	var out []*types.Tx
	for _, tx := range p.txs {
		if tx.InvolvesKey(pk) {
			out = append(out, tx)
		}
	}
	return out
}

// Snapshot returns a shallow copy of the full pending mapping.
func (p *Pool) Snapshot() map[common.Hash]*types.Tx {
	out := make(map[common.Hash]*types.Tx, len(p.txs))
	for h, tx := range p.txs {
		out[h] = tx
	}
	return out
}

func (p *Pool) Len() int { return len(p.txs) }

// Snapshot is a gob-friendly export of the Pool's full state for
// persistence (spec.md §4.7).
type Snapshot struct {
	Txs     map[common.Hash]*types.Tx
	Invalid map[common.Hash]bool
}

func (p *Pool) Export() Snapshot {
	return Snapshot{Txs: p.Snapshot(), Invalid: p.invalid}
}

func Import(s Snapshot) *Pool {
	if s.Txs == nil {
		s.Txs = make(map[common.Hash]*types.Tx)
	}
	if s.Invalid == nil {
		s.Invalid = make(map[common.Hash]bool)
	}
	return &Pool{txs: s.Txs, invalid: s.Invalid}
}
