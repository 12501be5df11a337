package chain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/driftchain/driftchain/common"
	"github.com/driftchain/driftchain/crypto"
	"github.com/driftchain/driftchain/ledger/types"
)

// fillWithNormalTxs pools 5 signed NORMAL txs paying minerPK into head,
// bringing it to READY.
func fillWithNormalTxs(t *testing.T, head *types.Block, minerPK []byte) {
	for i := 0; i < 5; i++ {
		senderSK, err := crypto.GenerateKey()
		require.NoError(t, err)
		senderPK, err := crypto.MarshalPublicKeyPEM(&senderSK.PublicKey)
		require.NoError(t, err)
		tx := types.New(types.NORMAL, common.AmountFromFloat(1.1), common.AmountFromFloat(1.0), common.AmountFromFloat(0.1), senderPK, minerPK, time.Now())
		require.NoError(t, tx.Sign(senderSK))
		head.Txs[tx.Hash] = tx
	}
}

func TestChainGenesisAndHead(t *testing.T) {
	c := New()
	require.Equal(t, uint64(0), c.Genesis().ID)
	require.Equal(t, uint64(1), c.Head().ID)
	require.Equal(t, 1, c.Len())
}

func TestChainAddBlockExtendsHead(t *testing.T) {
	c := New()
	head := c.Head()

	minerSK, err := crypto.GenerateKey()
	require.NoError(t, err)
	minerPK, err := crypto.MarshalPublicKeyPEM(&minerSK.PublicKey)
	require.NoError(t, err)

	fillWithNormalTxs(t, head, minerPK)
	require.Equal(t, types.READY, head.State())

	successor, err := head.Mine(minerSK, minerPK, nil)
	require.NoError(t, err)
	require.NotNil(t, successor)

	require.NoError(t, c.AddBlock(head))
	require.Equal(t, 2, c.Len())
	require.Equal(t, head.ID+1, c.Head().ID)
}

func TestChainAllTxsAccumulatesAcrossBlocks(t *testing.T) {
	c := New()
	head := c.Head()

	minerSK, err := crypto.GenerateKey()
	require.NoError(t, err)
	minerPK, err := crypto.MarshalPublicKeyPEM(&minerSK.PublicKey)
	require.NoError(t, err)

	fillWithNormalTxs(t, head, minerPK)
	var hashes []common.Hash
	for h := range head.Txs {
		hashes = append(hashes, h)
	}

	_, err = head.Mine(minerSK, minerPK, nil)
	require.NoError(t, err)
	require.NoError(t, c.AddBlock(head))

	all := c.AllTxs()
	for _, h := range hashes {
		_, ok := all[h]
		require.True(t, ok, "expected tx %s in AllTxs", h)
	}
}

func TestChainExportImportRoundTrip(t *testing.T) {
	c := New()
	blocks := c.Export()
	require.Len(t, blocks, 1)

	c2 := Import(blocks)
	require.Equal(t, c.Genesis().ID, c2.Genesis().ID)
	require.Equal(t, c.Head().ID, c2.Head().ID)
}
