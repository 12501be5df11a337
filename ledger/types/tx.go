package types

import (
	"crypto/ecdsa"
	"encoding/binary"
	"time"

	"github.com/driftchain/driftchain/common"
	"github.com/driftchain/driftchain/crypto"
)

// Kind distinguishes a user payment from a protocol-issued reward.
type Kind uint8

const (
	NORMAL Kind = iota
	REWARD
)

func (k Kind) String() string {
	if k == REWARD {
		return "REWARD"
	}
	return "NORMAL"
}

// RewardValue is the fixed amount of a REWARD tx (spec.md §6 REWARD_VALUE).
const RewardValue = common.Amount(50 * 1_000_000)

// Tx is a content-addressed signed payment or reward record (spec.md §3).
type Tx struct {
	Kind       Kind
	Input      common.Amount
	Output     common.Amount
	Fee        common.Amount
	SenderPK   []byte // PEM
	ReceiverPK []byte // PEM
	CreatedAt  string // ISO-like timestamp, set at construction

	Hash common.Hash
	Sig  []byte
}

// New builds an unsigned Tx; CreatedAt is stamped at construction so the
// hash is fixed before Sign is called.
func New(kind Kind, input, output, fee common.Amount, senderPK, receiverPK []byte, createdAt time.Time) *Tx {
	return &Tx{
		Kind:       kind,
		Input:      input,
		Output:     output,
		Fee:        fee,
		SenderPK:   senderPK,
		ReceiverPK: receiverPK,
		CreatedAt:  createdAt.UTC().Format(time.RFC3339Nano),
	}
}

// canonicalBytes is the exact byte concatenation spec.md §3 hashes over:
// (kind, input, output, fee, sender_pk, receiver_pk, created_at).
func (tx *Tx) canonicalBytes() []byte {
	var amounts [24]byte
	binary.BigEndian.PutUint64(amounts[0:8], uint64(tx.Input))
	binary.BigEndian.PutUint64(amounts[8:16], uint64(tx.Output))
	binary.BigEndian.PutUint64(amounts[16:24], uint64(tx.Fee))

	buf := make([]byte, 0, 1+24+len(tx.SenderPK)+len(tx.ReceiverPK)+len(tx.CreatedAt))
	buf = append(buf, byte(tx.Kind))
	buf = append(buf, amounts[:]...)
	buf = append(buf, tx.SenderPK...)
	buf = append(buf, tx.ReceiverPK...)
	buf = append(buf, []byte(tx.CreatedAt)...)
	return buf
}

func (tx *Tx) computeHash() common.Hash {
	return crypto.Hash256(tx.canonicalBytes())
}

// Sign finalizes Hash then Sig, the only place either field is set.
func (tx *Tx) Sign(sk *ecdsa.PrivateKey) error {
	tx.Hash = tx.computeHash()
	sig, err := crypto.Sign(tx.Hash, sk)
	if err != nil {
		return err
	}
	tx.Sig = sig
	return nil
}

// amountRuleValid checks the kind-specific invariant from spec.md §3.
func (tx *Tx) amountRuleValid() bool {
	switch tx.Kind {
	case NORMAL:
		return tx.Input > 0 && tx.Output > 0 && tx.Fee >= 0 && tx.Input.ApproxEqual(tx.Output.Add(tx.Fee))
	case REWARD:
		if tx.Input != RewardValue || tx.Output != RewardValue || tx.Fee != 0 {
			return false
		}
		return true
	default:
		return false
	}
}

// IsValid reports whether the hash recomputes, the signature verifies, and
// the kind-specific amount rule holds.
func (tx *Tx) IsValid() bool {
	if tx.Sig == nil || tx.SenderPK == nil || tx.ReceiverPK == nil {
		return false
	}
	if !tx.amountRuleValid() {
		return false
	}
	if tx.computeHash() != tx.Hash {
		return false
	}
	return crypto.Verify(tx.Hash, tx.Sig, tx.SenderPK)
}

// CancellableBy reports whether pk may cancel this tx (spec.md §4.1).
func (tx *Tx) CancellableBy(pk []byte) bool {
	if tx.Kind != NORMAL {
		return false
	}
	if string(tx.SenderPK) != string(pk) {
		return false
	}
	return crypto.Verify(tx.Hash, tx.Sig, tx.SenderPK)
}

// InvolvesKey reports whether pk is the sender or receiver of this tx, the
// predicate the wallet view and Pool.ByAccount both filter on.
func (tx *Tx) InvolvesKey(pk []byte) bool {
	return string(tx.SenderPK) == string(pk) || string(tx.ReceiverPK) == string(pk)
}
