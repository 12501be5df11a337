// Package node is the Node engine of spec.md §4.5: it glues Accounts,
// Chain, and Pool, exposes the user-facing operations, and enforces every
// protocol invariant. It is the exclusive owner of its Chain/Pool/Accounts
// in memory (spec.md §3, "Ownership") — the mutex below is the "shared
// mutex around the writer's call sites" option spec.md §5 explicitly
// sanctions as an alternative to routing every call through the inbox
// consumer goroutine.
package node

import (
	"crypto/ecdsa"
	"fmt"
	"sort"
	"time"

	"github.com/driftchain/driftchain/accounts"
	"github.com/driftchain/driftchain/common"
	"github.com/driftchain/driftchain/consensus"
	"github.com/driftchain/driftchain/crypto"
	"github.com/driftchain/driftchain/gossip"
	"github.com/driftchain/driftchain/ledger/chain"
	"github.com/driftchain/driftchain/ledger/pool"
	"github.com/driftchain/driftchain/ledger/types"
	glog "github.com/driftchain/driftchain/log"
	"github.com/driftchain/driftchain/metrics"
	"github.com/driftchain/driftchain/storage/persistence"
	"github.com/driftchain/driftchain/work"

	"sync"
)

var logger = glog.NewModuleLogger(glog.Node)

type session struct {
	username string
	pk       []byte
	sk       *ecdsa.PrivateKey
}

// Node is the single process-wide mutable state holder spec.md §9 calls
// for ("process-wide mutable state... represent them as fields of a single
// Node value passed explicitly to every operation").
type Node struct {
	mu sync.Mutex

	cfg      Config
	accounts *accounts.Accounts
	chain    *chain.Chain
	pool     *pool.Pool
	store    *persistence.Store

	listener *gossip.Listener
	selfAddr string

	sess *session

	peerSummaries map[string]*gossip.NodeSummary
	notifications []string

	minerResults chan *work.Result
	agent        *work.CpuAgent
}

// New constructs a Node with fresh in-memory state, loading a prior
// snapshot from cfg.DataDir if one exists and passes tamper detection.
func New(cfg Config) *Node {
	store := persistence.New(cfg.DataDir)
	n := &Node{
		cfg:          cfg,
		store:        store,
		minerResults: make(chan *work.Result, 1),
	}
	n.agent = work.NewCpuAgent(n.minerResults)
	n.agent.Start()
	metrics.PeersKnown.Set(float64(len(cfg.Peers)))

	if snap, ok := store.Load(); ok && len(snap.Ledger) > 0 {
		n.accounts = accounts.Import(snap.Accounts)
		n.chain = chain.Import(snap.Ledger)
		n.pool = pool.Import(snap.Pool)
		logger.Info("loaded persisted state", "blocks", len(snap.Ledger))
	} else {
		n.accounts = accounts.New()
		n.chain = chain.New()
		n.pool = pool.New()
	}
	return n
}

// Listen starts the gossip listener and the background result/inbox
// consumer goroutines.
func (n *Node) Listen() error {
	addr := gossip.FormatAddr(n.cfg.ListenHost, n.cfg.ListenPort)
	ln, err := gossip.NewListener(addr, n.cfg.InboxSize)
	if err != nil {
		return err
	}
	n.listener = ln
	n.selfAddr = ln.Addr()
	go n.consumeInbox()
	return nil
}

func (n *Node) consumeInbox() {
	for env := range n.listener.Inbox {
		n.mu.Lock()
		n.apply(env)
		n.mu.Unlock()
	}
}

func (n *Node) notify(line string) {
	n.notifications = append(n.notifications, line)
	logger.Info(line)
}

// Notifications returns every notification produced so far this session
// (SPEC_FULL.md §5: the supplemented notification stream).
func (n *Node) Notifications() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.notifications))
	copy(out, n.notifications)
	return out
}

func (n *Node) snapshotLocked() {
	if n.store == nil {
		return
	}
	snap := persistence.Snapshot{
		Accounts: n.accounts.Export(),
		Ledger:   n.chain.Export(),
		Pool:     n.pool.Export(),
	}
	if err := n.store.Save(snap); err != nil {
		logger.Error("snapshot failed", "err", err)
	}
	metrics.PoolSize.Set(float64(n.pool.Len()))
	metrics.ChainHeight.Set(float64(n.chain.Len()))
}

func (n *Node) broadcast(env gossip.Envelope) {
	gossip.Broadcast(n.cfg.Peers, n.selfAddr, env)
}

// Register implements spec.md §4.5 register.
func (n *Node) Register(username, password string) Result {
	n.mu.Lock()
	defer n.mu.Unlock()

	user, sk, err := n.accounts.Register(username, password)
	if err != nil {
		return classify(err)
	}
	reward := types.New(types.REWARD, types.RewardValue, types.RewardValue, 0, user.PubKey, user.PubKey, time.Now())
	if err := reward.Sign(sk); err != nil {
		return FAIL
	}
	if err := n.pool.Add(reward); err != nil {
		return FAIL
	}
	n.notify("registered user " + username)
	n.autoFillRewardsLocked()
	n.snapshotLocked()
	n.broadcast(gossip.UserEnvelope(user))
	n.broadcast(gossip.TxEnvelope(reward))
	return SUCCESS
}

// Login implements spec.md §4.5 login, including the supplemented
// backward validation walk (SPEC_FULL.md §5).
func (n *Node) Login(username, password string) Result {
	n.mu.Lock()
	defer n.mu.Unlock()

	user, sk, err := n.accounts.Authenticate(username, password)
	if err != nil {
		return classify(err)
	}
	n.sess = &session{username: username, pk: user.PubKey, sk: sk}
	n.notify("logged in as " + username)

	for _, b := range n.chain.Blocks() {
		if b.State() != types.MINED {
			continue
		}
		if string(b.MinedBy) == string(user.PubKey) {
			continue
		}
		if n.alreadyFlagged(b, user.PubKey) {
			continue
		}
		n.validateLocked(b, sk, user.PubKey, b.IsValid())
	}
	return SUCCESS
}

func (n *Node) alreadyFlagged(b *types.Block, pk []byte) bool {
	for _, f := range b.ValidationFlags {
		if string(f.ValidatorPK) == string(pk) {
			return true
		}
	}
	return false
}

// Logout clears the session.
func (n *Node) Logout() Result {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sess = nil
	return SUCCESS
}

// CreateTx implements spec.md §4.5 create_tx.
func (n *Node) CreateTx(input, output, fee common.Amount, password string, receiverPK []byte) Result {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.sess == nil {
		return INVALID
	}
	user, sk, err := n.accounts.Authenticate(n.sess.username, password)
	if err != nil {
		return classify(err)
	}
	if !input.ApproxEqual(output.Add(fee)) {
		return INVALID
	}
	w := n.wallet(user.PubKey)
	if w.Available < input {
		return INVALID
	}
	tx := types.New(types.NORMAL, input, output, fee, user.PubKey, receiverPK, time.Now())
	if err := tx.Sign(sk); err != nil {
		return FAIL
	}
	if err := n.pool.Add(tx); err != nil {
		return classify(err)
	}
	n.notify("created tx " + tx.Hash.String())
	n.snapshotLocked()
	n.broadcast(gossip.TxEnvelope(tx))
	return SUCCESS
}

// CancelTx implements spec.md §4.5 cancel_tx.
func (n *Node) CancelTx(hash common.Hash) Result {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.sess == nil {
		return INVALID
	}
	if err := n.pool.Cancel(hash, n.sess.pk); err != nil {
		return classify(err)
	}
	n.notify("cancelled tx " + hash.String())
	n.snapshotLocked()
	return SUCCESS
}

// Mine implements spec.md §4.3/§4.5 mine. The multi-second search itself
// runs without holding the writer lock so the inbox consumer stays
// responsive; only setup and the final commit are serialized.
func (n *Node) Mine(password string) Result {
	n.mu.Lock()
	if n.sess == nil {
		n.mu.Unlock()
		return INVALID
	}
	user, sk, err := n.accounts.Authenticate(n.sess.username, password)
	if err != nil {
		n.mu.Unlock()
		return classify(err)
	}
	head := n.chain.Head()
	if head.State() != types.READY {
		n.mu.Unlock()
		return INVALID
	}
	n.mu.Unlock()

	metrics.DifficultyBump.Set(float64(head.DifficultyBump))
	n.agent.Work() <- &work.Task{Block: head, SK: sk, PK: user.PubKey}
	result := <-n.minerResults
	if result.Err != nil {
		return FAIL
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.chain.AddBlock(head); err != nil {
		return classify(err)
	}
	n.notify("mined block " + head.Hash.String())
	n.snapshotLocked()
	n.broadcast(gossip.BlockEnvelope(head))
	return SUCCESS
}

// Validate implements spec.md §4.3's validation path as exposed through
// the Node engine (spec.md §4.5 validate).
func (n *Node) Validate(password string, blockID uint64, accept bool) Result {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.sess == nil {
		return INVALID
	}
	_, sk, err := n.accounts.Authenticate(n.sess.username, password)
	if err != nil {
		return classify(err)
	}
	b, ok := n.chain.GetByID(blockID)
	if !ok {
		return INVALID
	}
	return classify(n.validateLocked(b, sk, n.sess.pk, accept))
}

// validateLocked performs the signature + flag + quorum-consequence
// sequence of spec.md §4.3, reused by both the explicit Validate operation
// and Login's backward validation walk.
func (n *Node) validateLocked(b *types.Block, sk *ecdsa.PrivateKey, pk []byte, accept bool) error {
	if b.Hash == nil {
		return types.ErrPreconditionUnmet
	}
	sig, err := crypto.Sign(*b.Hash, sk)
	if err != nil {
		return err
	}
	if err := b.AddValidationFlag(pk, sig, accept); err != nil {
		return err
	}
	n.broadcast(gossip.FlagEnvelope(&gossip.ValidationFlag{BlockID: b.ID, ValidatorPK: pk, Signature: sig, Accept: accept}))

	switch consensus.Tally(b) {
	case consensus.AcceptQuorumReached:
		n.issueRewardLocked(b, sk, pk)
	case consensus.RejectQuorumReached:
		n.rejectBlockLocked(b)
	}
	n.snapshotLocked()
	return nil
}

// issueRewardLocked is the third validator's obligation: synthesize and
// pool a REWARD tx to the miner (spec.md §4.3).
func (n *Node) issueRewardLocked(b *types.Block, sk *ecdsa.PrivateKey, validatorPK []byte) {
	reward := types.New(types.REWARD, types.RewardValue, types.RewardValue, 0, validatorPK, b.MinedBy, time.Now())
	if err := reward.Sign(sk); err != nil {
		logger.Error("failed to sign reward tx", "err", err)
		return
	}
	if err := n.pool.Add(reward); err != nil {
		logger.Error("failed to pool reward tx", "err", err)
		return
	}
	n.notify("quorum reached, rewarding miner of block " + b.Hash.String())
	n.broadcast(gossip.TxEnvelope(reward))
}

// rejectBlockLocked implements spec.md §4.3's rejection protocol: every
// contained tx returns to the Pool, txs that fail IsValid are flagged
// invalid, and the block resets to NEW.
func (n *Node) rejectBlockLocked(b *types.Block) {
	for _, tx := range b.Txs {
		if !tx.IsValid() {
			n.pool.FlagInvalid(tx.Hash)
		}
		n.pool.Put(tx)
		delete(b.Txs, tx.Hash)
	}
	b.ResetToNew()
	n.notify(fmt.Sprintf("block %d rejected by quorum, reset to NEW", b.ID))
}

// autoFillRewardsLocked moves pending REWARD txs into the current NEW head
// (spec.md §4.5 auto_fill_rewards), honoring the fair-selection ordering.
func (n *Node) autoFillRewardsLocked() {
	n.fillLocked(types.REWARD)
}

// AutoFillRewards is the public entry point; gossip's REWARD-tx apply rule
// also triggers this internally (spec.md §4.6).
func (n *Node) AutoFillRewards() Result {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.autoFillRewardsLocked()
	n.snapshotLocked()
	return SUCCESS
}

// AutoFillBlock moves pending txs into the current NEW head, rewards
// first then NORMAL (spec.md §4.5 auto_fill_block; also
// original_source/src/Node.py's auto_fill_block, which interleaves
// rewards then payments in a single pass).
func (n *Node) AutoFillBlock() Result {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.fillLocked(types.REWARD)
	n.fillLocked(types.NORMAL)
	n.snapshotLocked()
	return SUCCESS
}

// fillLocked implements the fair-selection rule of spec.md §4.5: over the
// whole pool snapshot, order by (fee descending, arrival-time ascending),
// never by sender identity, so no sender is starved.
func (n *Node) fillLocked(kind types.Kind) {
	head := n.chain.Head()
	if len(head.Txs) >= types.TxMax {
		return
	}
	snap := n.pool.Snapshot()
	candidates := make([]*types.Tx, 0, len(snap))
	for _, tx := range snap {
		if tx.Kind == kind {
			candidates = append(candidates, tx)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Fee != candidates[j].Fee {
			return candidates[i].Fee > candidates[j].Fee
		}
		ti, _ := time.Parse(time.RFC3339Nano, candidates[i].CreatedAt)
		tj, _ := time.Parse(time.RFC3339Nano, candidates[j].CreatedAt)
		return ti.Before(tj)
	})
	for _, tx := range candidates {
		if len(head.Txs) >= types.TxMax {
			break
		}
		if _, ok := n.pool.Pop(tx.Hash); ok {
			head.Txs[tx.Hash] = tx
		}
	}
}

// PoolLen and ChainHeight are small introspection helpers used by tests and
// callers wanting a cheaper view than Wallet.
func (n *Node) PoolLen() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.pool.Len()
}

func (n *Node) ChainHeight() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.chain.Len()
}

// Wallet returns the wallet view for username (spec.md §4.5). It only
// needs username's public key, so it goes through the cached
// accounts.PubKeyOf lookup rather than fetching the whole User record.
func (n *Node) Wallet(username string) (Wallet, Result) {
	n.mu.Lock()
	defer n.mu.Unlock()
	pk, ok := n.accounts.PubKeyOf(username)
	if !ok {
		return Wallet{}, INVALID
	}
	return n.wallet(pk), SUCCESS
}

// Shutdown flushes a final snapshot and stops the listener, the
// cooperative shutdown of spec.md §5.
func (n *Node) Shutdown() {
	n.mu.Lock()
	n.snapshotLocked()
	n.mu.Unlock()
	n.agent.Stop()
	if n.listener != nil {
		n.listener.Close()
	}
}
