package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/driftchain/driftchain/common"
	"github.com/driftchain/driftchain/crypto"
)

func TestTxSignAndIsValid(t *testing.T) {
	sk, err := crypto.GenerateKey()
	require.NoError(t, err)
	senderPK, err := crypto.MarshalPublicKeyPEM(&sk.PublicKey)
	require.NoError(t, err)

	rk, err := crypto.GenerateKey()
	require.NoError(t, err)
	receiverPK, err := crypto.MarshalPublicKeyPEM(&rk.PublicKey)
	require.NoError(t, err)

	tx := New(NORMAL, common.AmountFromFloat(1.1), common.AmountFromFloat(1.0), common.AmountFromFloat(0.1), senderPK, receiverPK, time.Now())
	require.False(t, tx.IsValid(), "unsigned tx must not validate")

	require.NoError(t, tx.Sign(sk))
	require.True(t, tx.IsValid())

	require.True(t, tx.CancellableBy(senderPK))
	require.False(t, tx.CancellableBy(receiverPK))
}

func TestTxMutationInvalidatesSignature(t *testing.T) {
	sk, err := crypto.GenerateKey()
	require.NoError(t, err)
	pk, err := crypto.MarshalPublicKeyPEM(&sk.PublicKey)
	require.NoError(t, err)

	tx := New(NORMAL, common.AmountFromFloat(2), common.AmountFromFloat(1.9), common.AmountFromFloat(0.1), pk, pk, time.Now())
	require.NoError(t, tx.Sign(sk))
	require.True(t, tx.IsValid())

	tx.Input = common.AmountFromFloat(999)
	require.False(t, tx.IsValid())
}

func TestRewardTxInvariant(t *testing.T) {
	sk, err := crypto.GenerateKey()
	require.NoError(t, err)
	pk, err := crypto.MarshalPublicKeyPEM(&sk.PublicKey)
	require.NoError(t, err)

	reward := New(REWARD, RewardValue, RewardValue, 0, pk, pk, time.Now())
	require.NoError(t, reward.Sign(sk))
	require.True(t, reward.IsValid())
	require.False(t, reward.CancellableBy(pk), "rewards are never cancellable")
}

func TestNormalTxAmountRuleRejectsImbalance(t *testing.T) {
	sk, err := crypto.GenerateKey()
	require.NoError(t, err)
	pk, err := crypto.MarshalPublicKeyPEM(&sk.PublicKey)
	require.NoError(t, err)

	tx := New(NORMAL, common.AmountFromFloat(1), common.AmountFromFloat(1), common.AmountFromFloat(0.5), pk, pk, time.Now())
	require.NoError(t, tx.Sign(sk))
	require.False(t, tx.IsValid(), "output+fee must ≈ input")
}
