package node

import (
	"io/ioutil"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/driftchain/driftchain/common"
	"github.com/driftchain/driftchain/ledger/types"
)

func newTestNode(t *testing.T) *Node {
	dir, err := ioutil.TempDir("", "driftchain-node")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	cfg := DefaultConfig()
	cfg.DataDir = dir
	cfg.Peers = nil
	n := New(cfg)
	t.Cleanup(n.Shutdown)
	return n
}

// registerFiveUsers registers five distinct accounts, each producing a
// self-signed REWARD tx, satisfying the block's TxMin floor trivially.
func registerFiveUsers(t *testing.T, n *Node) {
	for _, u := range []string{"alice", "bob", "carol", "dave", "erin"} {
		require.Equal(t, SUCCESS, n.Register(u, "pw_"+u+"_long"))
	}
}

// TestRegisterMineValidateRewardFlow exercises spec.md §8 scenarios 1-3 end
// to end: signup reward, a 10-20s mine, and a three-validator quorum that
// pays the miner a reward tx.
func TestRegisterMineValidateRewardFlow(t *testing.T) {
	n := newTestNode(t)

	require.Equal(t, SUCCESS, n.Register("alice", "pw_alice_long"))
	require.Equal(t, 0, n.PoolLen())
	require.Equal(t, 1, len(n.chain.Head().Txs))

	for _, u := range []string{"bob", "carol", "dave", "erin"} {
		require.Equal(t, SUCCESS, n.Register(u, "pw_"+u+"_long"))
	}
	require.Equal(t, 0, n.PoolLen())
	require.Equal(t, 5, len(n.chain.Head().Txs))

	require.Equal(t, SUCCESS, n.AutoFillRewards())
	require.Equal(t, 0, n.PoolLen())

	require.Equal(t, SUCCESS, n.Login("alice", "pw_alice_long"))
	require.Equal(t, SUCCESS, n.Mine("pw_alice_long"))
	require.Equal(t, 2, n.ChainHeight())

	w, res := n.Wallet("alice")
	require.Equal(t, SUCCESS, res)
	require.True(t, w.Available.ApproxEqual(common.AmountFromFloat(50)), "got %s", w.Available)

	// Each non-miner login auto-casts an accepting flag via the backward
	// validation walk; the third distinct one reaches quorum.
	require.Equal(t, SUCCESS, n.Login("bob", "pw_bob_long"))
	require.Equal(t, SUCCESS, n.Login("carol", "pw_carol_long"))
	poolBeforeThird := n.PoolLen()
	require.Equal(t, SUCCESS, n.Login("dave", "pw_dave_long"))
	require.Equal(t, poolBeforeThird+1, n.PoolLen(), "quorum should have pooled a reward tx for the miner")

	b, ok := n.chain.GetByID(1)
	require.True(t, ok)
	require.Equal(t, types.VALIDATED, b.State())
}

// TestMineFailsPreconditionUnmetBeforeMaturity covers the first half of
// spec.md §8 scenario 4: mining a second block before the previous block's
// maturity window has elapsed fails with PreconditionUnmet.
func TestMineFailsPreconditionUnmetBeforeMaturity(t *testing.T) {
	n := newTestNode(t)
	registerFiveUsers(t, n)
	require.Equal(t, SUCCESS, n.AutoFillRewards())
	require.Equal(t, SUCCESS, n.Login("alice", "pw_alice_long"))
	require.Equal(t, SUCCESS, n.Mine("pw_alice_long"))
	require.Equal(t, SUCCESS, n.Login("bob", "pw_bob_long"))
	require.Equal(t, SUCCESS, n.Login("carol", "pw_carol_long"))
	require.Equal(t, SUCCESS, n.Login("dave", "pw_dave_long"))

	first, ok := n.chain.GetByID(1)
	require.True(t, ok)
	require.Equal(t, types.VALIDATED, first.State())

	for _, u := range []string{"frank", "grace", "heidi", "ivan", "judy"} {
		require.Equal(t, SUCCESS, n.Register(u, "pw_"+u+"_long"))
	}
	require.Equal(t, SUCCESS, n.AutoFillRewards())

	require.Equal(t, SUCCESS, n.Login("alice", "pw_alice_long"))
	require.Equal(t, INVALID, n.Mine("pw_alice_long"))
}

// TestMineSucceedsAfterMaturityElapsed covers the second half of scenario
// 4: once the previous block's mined_at is far enough in the past, mining
// the next block succeeds.
func TestMineSucceedsAfterMaturityElapsed(t *testing.T) {
	n := newTestNode(t)
	registerFiveUsers(t, n)
	require.Equal(t, SUCCESS, n.AutoFillRewards())
	require.Equal(t, SUCCESS, n.Login("alice", "pw_alice_long"))
	require.Equal(t, SUCCESS, n.Mine("pw_alice_long"))
	require.Equal(t, SUCCESS, n.Login("bob", "pw_bob_long"))
	require.Equal(t, SUCCESS, n.Login("carol", "pw_carol_long"))
	require.Equal(t, SUCCESS, n.Login("dave", "pw_dave_long"))

	first, ok := n.chain.GetByID(1)
	require.True(t, ok)
	require.Equal(t, types.VALIDATED, first.State())

	for _, u := range []string{"frank", "grace", "heidi", "ivan", "judy"} {
		require.Equal(t, SUCCESS, n.Register(u, "pw_"+u+"_long"))
	}
	require.Equal(t, SUCCESS, n.AutoFillRewards())

	first.MinedAt = time.Now().Add(-2 * types.MaturityTime)

	require.Equal(t, SUCCESS, n.Login("alice", "pw_alice_long"))
	require.Equal(t, SUCCESS, n.Mine("pw_alice_long"))
	require.Equal(t, 3, n.ChainHeight())
}

// TestCreateTxAndCancelTx exercises the create_tx/cancel_tx operations and
// their effect on the wallet's reserved/available split.
func TestCreateTxAndCancelTx(t *testing.T) {
	n := newTestNode(t)
	registerFiveUsers(t, n)
	require.Equal(t, SUCCESS, n.AutoFillRewards())
	require.Equal(t, SUCCESS, n.Login("alice", "pw_alice_long"))
	require.Equal(t, SUCCESS, n.Mine("pw_alice_long"))

	bobUser, ok := n.accounts.Get("bob")
	require.True(t, ok)

	require.Equal(t, SUCCESS, n.Login("alice", "pw_alice_long"))
	res := n.CreateTx(common.AmountFromFloat(10), common.AmountFromFloat(9.5), common.AmountFromFloat(0.5), "pw_alice_long", bobUser.PubKey)
	require.Equal(t, SUCCESS, res)

	w, res := n.Wallet("alice")
	require.Equal(t, SUCCESS, res)
	require.Equal(t, 1, len(w.Pending))
	require.True(t, w.Reserved.ApproxEqual(common.AmountFromFloat(10)))

	var hash common.Hash
	for _, tx := range w.Pending {
		hash = tx.Hash
	}
	require.Equal(t, SUCCESS, n.CancelTx(hash))

	w, res = n.Wallet("alice")
	require.Equal(t, SUCCESS, res)
	require.Equal(t, 0, len(w.Pending))
	require.Equal(t, common.Amount(0), w.Reserved)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	n := newTestNode(t)
	require.Equal(t, SUCCESS, n.Register("alice", "pw_alice_long"))
	require.Equal(t, INVALID, n.Login("alice", "wrong-password"))
}

func TestWalletUnknownUserIsInvalid(t *testing.T) {
	n := newTestNode(t)
	_, res := n.Wallet("nobody")
	require.Equal(t, INVALID, res)
}

// TestTwoNodeGossipReplicatesUser is a light-weight stand-in for spec.md §8
// scenario 5: it checks the gossip wiring a competing-block race depends
// on, without driving two independent miners to an actual race.
func TestTwoNodeGossipReplicatesUser(t *testing.T) {
	dirB, err := ioutil.TempDir("", "driftchain-node-b")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dirB) })
	cfgB := DefaultConfig()
	cfgB.DataDir = dirB
	cfgB.ListenHost = "127.0.0.1"
	cfgB.ListenPort = 0
	nodeB := New(cfgB)
	t.Cleanup(nodeB.Shutdown)
	require.NoError(t, nodeB.Listen())

	dirA, err := ioutil.TempDir("", "driftchain-node-a")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dirA) })
	cfgA := DefaultConfig()
	cfgA.DataDir = dirA
	cfgA.ListenHost = "127.0.0.1"
	cfgA.ListenPort = 0
	cfgA.Peers = []string{nodeB.selfAddr}
	nodeA := New(cfgA)
	t.Cleanup(nodeA.Shutdown)
	require.NoError(t, nodeA.Listen())

	require.Equal(t, SUCCESS, nodeA.Register("alice", "pw_alice_long"))

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if _, res := nodeB.Wallet("alice"); res == SUCCESS {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("peer B never observed alice's registration via gossip")
}
