package pool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/driftchain/driftchain/common"
	"github.com/driftchain/driftchain/crypto"
	"github.com/driftchain/driftchain/ledger/types"
)

func signedNormalTx(t *testing.T) *types.Tx {
	sk, err := crypto.GenerateKey()
	require.NoError(t, err)
	pk, err := crypto.MarshalPublicKeyPEM(&sk.PublicKey)
	require.NoError(t, err)
	rk, err := crypto.GenerateKey()
	require.NoError(t, err)
	rpk, err := crypto.MarshalPublicKeyPEM(&rk.PublicKey)
	require.NoError(t, err)

	tx := types.New(types.NORMAL, common.AmountFromFloat(2), common.AmountFromFloat(1.9), common.AmountFromFloat(0.1), pk, rpk, time.Now())
	require.NoError(t, tx.Sign(sk))
	return tx
}

func TestPoolAddIdempotent(t *testing.T) {
	p := New()
	tx := signedNormalTx(t)
	require.NoError(t, p.Add(tx))
	require.NoError(t, p.Add(tx))
	require.Equal(t, 1, p.Len())
}

func TestPoolAddRejectsInvalidTx(t *testing.T) {
	p := New()
	tx := signedNormalTx(t)
	tx.Input = common.AmountFromFloat(999)
	require.ErrorIs(t, p.Add(tx), types.ErrInvalidTx)
}

func TestPoolCancelRequiresSenderKey(t *testing.T) {
	p := New()
	tx := signedNormalTx(t)
	require.NoError(t, p.Add(tx))

	other, err := crypto.GenerateKey()
	require.NoError(t, err)
	otherPK, err := crypto.MarshalPublicKeyPEM(&other.PublicKey)
	require.NoError(t, err)

	require.ErrorIs(t, p.Cancel(tx.Hash, otherPK), types.ErrUnauthorized)
	require.NoError(t, p.Cancel(tx.Hash, tx.SenderPK))
	_, ok := p.Get(tx.Hash)
	require.False(t, ok)
}

func TestPoolByAccount(t *testing.T) {
	p := New()
	tx := signedNormalTx(t)
	require.NoError(t, p.Add(tx))

	require.Len(t, p.ByAccount(tx.SenderPK), 1)
	require.Len(t, p.ByAccount(tx.ReceiverPK), 1)

	unrelated, err := crypto.GenerateKey()
	require.NoError(t, err)
	unrelatedPK, err := crypto.MarshalPublicKeyPEM(&unrelated.PublicKey)
	require.NoError(t, err)
	require.Len(t, p.ByAccount(unrelatedPK), 0)
}
