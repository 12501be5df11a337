package types

import (
	"crypto/ecdsa"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/driftchain/driftchain/common"
	"github.com/driftchain/driftchain/crypto"
)

type keypair struct {
	sk *ecdsa.PrivateKey
	pk []byte
}

func newKeypair(t *testing.T) keypair {
	sk, err := crypto.GenerateKey()
	require.NoError(t, err)
	pk, err := crypto.MarshalPublicKeyPEM(&sk.PublicKey)
	require.NoError(t, err)
	return keypair{sk: sk, pk: pk}
}

// readyBlockWithTxs builds a block containing 5 signed NORMAL txs plus one
// REWARD tx, satisfying the 5-10 tx and conservation invariants of spec.md
// §4.3, atop a genesis block.
func readyBlockWithTxs(t *testing.T) (*Block, keypair) {
	genesis := NewGenesis()
	genesis.SealGenesis()

	miner := newKeypair(t)
	b := NewSuccessor(genesis)

	for i := 0; i < 5; i++ {
		sender := newKeypair(t)
		tx := New(NORMAL, common.AmountFromFloat(1.1), common.AmountFromFloat(1.0), common.AmountFromFloat(0.1), sender.pk, miner.pk, time.Now())
		require.NoError(t, tx.Sign(sender.sk))
		b.Txs[tx.Hash] = tx
	}
	reward := New(REWARD, RewardValue, RewardValue, 0, miner.pk, miner.pk, time.Now())
	require.NoError(t, reward.Sign(miner.sk))
	b.Txs[reward.Hash] = reward

	return b, miner
}

func TestBlockReadyState(t *testing.T) {
	b, _ := readyBlockWithTxs(t)
	require.Equal(t, READY, b.State())
}

func TestBlockMineProducesGoodHash(t *testing.T) {
	b, miner := readyBlockWithTxs(t)
	successor, err := b.Mine(miner.sk, miner.pk, nil)
	require.NoError(t, err)
	require.NotNil(t, successor)

	require.Equal(t, MINED, b.State())
	require.True(t, b.Hash.HasLeadingZeroBytes(LeadingZeroes))
	require.LessOrEqual(t, int(b.Hash[LeadingZeroes]), b.DifficultyBump)
	require.Equal(t, b.ID+1, successor.ID)
	require.Equal(t, *b.Hash, *successor.PreviousHash)
}

func TestBlockQuorumReachesValidated(t *testing.T) {
	b, miner := readyBlockWithTxs(t)
	_, err := b.Mine(miner.sk, miner.pk, nil)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		v := newKeypair(t)
		sig, err := crypto.Sign(*b.Hash, v.sk)
		require.NoError(t, err)
		require.NoError(t, b.AddValidationFlag(v.pk, sig, true))
	}
	require.Equal(t, VALIDATED, b.State())
}

func TestBlockRejectQuorumResetsToNew(t *testing.T) {
	b, miner := readyBlockWithTxs(t)
	_, err := b.Mine(miner.sk, miner.pk, nil)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		v := newKeypair(t)
		sig, err := crypto.Sign(*b.Hash, v.sk)
		require.NoError(t, err)
		require.NoError(t, b.AddValidationFlag(v.pk, sig, false))
	}
	require.Equal(t, 3, b.RejectCount())
	b.ResetToNew()
	require.Equal(t, NEW, b.State())
	require.Nil(t, b.Hash)
}

func TestMinerCannotValidateOwnBlock(t *testing.T) {
	b, miner := readyBlockWithTxs(t)
	_, err := b.Mine(miner.sk, miner.pk, nil)
	require.NoError(t, err)

	sig, err := crypto.Sign(*b.Hash, miner.sk)
	require.NoError(t, err)
	require.Error(t, b.AddValidationFlag(miner.pk, sig, true))
}
