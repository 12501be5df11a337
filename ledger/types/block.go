package types

import (
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/binary"
	"sort"
	"time"

	"github.com/driftchain/driftchain/common"
	"github.com/driftchain/driftchain/crypto"
)

// State is the block-acceptance lifecycle stage (spec.md §3).
type State int

const (
	NEW State = iota
	READY
	MINED
	VALIDATED
)

func (s State) String() string {
	switch s {
	case NEW:
		return "NEW"
	case READY:
		return "READY"
	case MINED:
		return "MINED"
	case VALIDATED:
		return "VALIDATED"
	default:
		return "UNKNOWN"
	}
}

const (
	TxMin          = 5
	TxMax          = 10
	MaturityTime   = 180 * time.Second
	LeadingZeroes  = 2
	DifficultyStep = 16
	RequiredFlags  = 3
)

// ValidationFlag is a validator's accept-or-reject vote on a MINED block's
// hash (spec.md §4.3; Accept is the reject-polarity extension this repo
// adds on top of the source's accept-only scheme — see SPEC_FULL.md §5).
type ValidationFlag struct {
	ValidatorPK []byte
	Signature   []byte
	Accept      bool
}

// Block is an ordered container of transactions with a PoW hash, miner
// signature, and validator flags (spec.md §3).
type Block struct {
	ID             uint64
	PreviousHash   *common.Hash
	Previous       *Block // in-process back-pointer; absent across a restart
	Txs            map[common.Hash]*Tx
	Nonce          [32]byte
	DifficultyBump int
	MintedAt       time.Time
	MinedAt        time.Time
	MinedBy        []byte // PEM, nil pre-mining
	Hash           *common.Hash
	Signature      []byte
	ValidationFlags []ValidationFlag
}

// NewGenesis creates the chain's root block: no previous, no transactions.
func NewGenesis() *Block {
	return &Block{
		ID:             0,
		Txs:            make(map[common.Hash]*Tx),
		DifficultyBump: DifficultyStep,
		MintedAt:       time.Now().UTC(),
	}
}

// NewSuccessor builds a fresh NEW head on top of a just-accepted block, the
// construction the engine performs every time a block is added (spec.md §3,
// "the engine always constructs a fresh NEW head").
func NewSuccessor(previous *Block) *Block {
	ph := *previous.Hash
	return &Block{
		ID:             previous.ID + 1,
		PreviousHash:   &ph,
		Previous:       previous,
		Txs:            make(map[common.Hash]*Tx),
		DifficultyBump: DifficultyStep,
		MintedAt:       time.Now().UTC(),
	}
}

// State computes the block's current lifecycle stage from its fields.
func (b *Block) State() State {
	if b.ID == 0 {
		// Genesis carries an identity hash but is never mined or
		// validated by a quorum; it is the trusted root every chain
		// starts from, so it behaves as VALIDATED once sealed.
		if b.Hash != nil {
			return VALIDATED
		}
		return NEW
	}
	if b.Hash == nil {
		if b.IsReady() {
			return READY
		}
		return NEW
	}
	if b.quorumState() {
		return VALIDATED
	}
	return MINED
}

func (b *Block) quorumState() bool {
	accepts, _ := b.countFlags()
	return accepts >= RequiredFlags
}

// countFlags tallies verifying, distinct-signer accept/reject flags,
// pruning any flag whose signature fails to verify (spec.md §4.3, "a flag
// whose signature fails to verify is pruned on read").
func (b *Block) countFlags() (accepts int, rejects int) {
	seen := make(map[string]bool)
	for _, f := range b.ValidationFlags {
		if b.Hash == nil || !crypto.Verify(*b.Hash, f.Signature, f.ValidatorPK) {
			continue
		}
		key := string(f.ValidatorPK)
		if seen[key] {
			continue
		}
		seen[key] = true
		if f.Accept {
			accepts++
		} else {
			rejects++
		}
	}
	return
}

// IsReady evaluates the mine-readiness predicate of spec.md §4.3.
func (b *Block) IsReady() bool {
	if b.Hash != nil {
		return false
	}
	if len(b.Txs) < TxMin || len(b.Txs) > TxMax {
		return false
	}
	if b.Previous != nil {
		if b.Previous.State() != VALIDATED {
			return false
		}
		if time.Since(b.Previous.MinedAt) < MaturityTime {
			return false
		}
	}
	return b.IsValid()
}

// IsValid checks conservation, per-tx validity, and chain linkage, and once
// a hash is set also that it recomputes and, for non-genesis blocks, that
// the miner's signature verifies and the PoW predicate holds.
func (b *Block) IsValid() bool {
	if b.Previous != nil {
		if b.Previous.Hash == nil || b.PreviousHash == nil || *b.PreviousHash != *b.Previous.Hash {
			return false
		}
	}
	var totalIn, totalOut common.Amount
	for _, tx := range b.Txs {
		if !tx.IsValid() {
			return false
		}
		totalIn = totalIn.Add(tx.Input)
		totalOut = totalOut.Add(tx.Output.Add(tx.Fee))
	}
	if !totalIn.ApproxEqual(totalOut) {
		return false
	}
	if b.Hash != nil {
		if b.computeHash() != *b.Hash {
			return false
		}
		if b.ID == 0 {
			return true // genesis carries an identity hash but is never mined or signed
		}
		if b.Signature == nil || b.MinedBy == nil || !crypto.Verify(*b.Hash, b.Signature, b.MinedBy) {
			return false
		}
		if !goodNonce(*b.Hash, b.DifficultyBump) {
			return false
		}
	}
	return true
}

// SealGenesis assigns the genesis block its deterministic identity hash.
// Genesis is never mined or signed, so this bypasses the PoW/signature path
// entirely; it exists purely so non-genesis blocks have a real previous_hash
// to link against.
func (b *Block) SealGenesis() {
	h := b.computeHash()
	b.Hash = &h
}

// sortedTxHashes gives a deterministic iteration order over the Txs map for
// hashing, since Go map iteration order is randomized.
func (b *Block) sortedTxHashes() []common.Hash {
	hashes := make([]common.Hash, 0, len(b.Txs))
	for h := range b.Txs {
		hashes = append(hashes, h)
	}
	sort.Slice(hashes, func(i, j int) bool {
		return hashes[i].String() < hashes[j].String()
	})
	return hashes
}

func (b *Block) canonicalBytes() []byte {
	buf := make([]byte, 0, 128)
	var idBuf [8]byte
	binary.BigEndian.PutUint64(idBuf[:], b.ID)
	buf = append(buf, idBuf[:]...)
	if b.PreviousHash != nil {
		buf = append(buf, b.PreviousHash.Bytes()...)
	}
	for _, h := range b.sortedTxHashes() {
		buf = append(buf, h.Bytes()...)
	}
	buf = append(buf, b.Nonce[:]...)
	var dbBuf [8]byte
	binary.BigEndian.PutUint64(dbBuf[:], uint64(b.DifficultyBump))
	buf = append(buf, dbBuf[:]...)
	buf = append(buf, []byte(b.MintedAt.UTC().Format(time.RFC3339Nano))...)
	buf = append(buf, []byte(b.MinedAt.UTC().Format(time.RFC3339Nano))...)
	buf = append(buf, b.MinedBy...)
	return buf
}

func (b *Block) computeHash() common.Hash {
	return crypto.Hash256(b.canonicalBytes())
}

// goodNonce is the raw-byte PoW predicate of spec.md §4.3: the digest's
// first LeadingZeroes bytes are the ASCII character '0' (0x30), and the
// byte immediately after is at most difficultyBump.
func goodNonce(h common.Hash, difficultyBump int) bool {
	if !h.HasLeadingZeroBytes(LeadingZeroes) {
		return false
	}
	return int(h[LeadingZeroes]) <= difficultyBump
}

// Mine runs the proof-of-work loop of spec.md §4.3: draw a fresh nonce,
// recompute mined_at and the candidate digest, and widen difficultyBump by
// DifficultyStep every 2 seconds of unsuccessful search — never sleeping —
// until a good digest is found or stop is closed. On success it commits
// hash and signature on the receiver and returns the fresh successor head.
func (b *Block) Mine(sk *ecdsa.PrivateKey, pk []byte, stop <-chan struct{}) (*Block, error) {
	if b.State() != READY {
		return nil, ErrPreconditionUnmet
	}
	b.MinedBy = pk
	start := time.Now()
	lastWiden := start
	for {
		select {
		case <-stop:
			return nil, nil
		default:
		}
		if _, err := rand.Read(b.Nonce[:]); err != nil {
			return nil, err
		}
		b.MinedAt = time.Now()
		candidate := b.computeHash()
		if goodNonce(candidate, b.DifficultyBump) {
			b.Hash = &candidate
			sig, err := crypto.Sign(candidate, sk)
			if err != nil {
				b.Hash = nil
				return nil, err
			}
			b.Signature = sig
			return NewSuccessor(b), nil
		}
		if time.Since(lastWiden) >= 2*time.Second {
			b.DifficultyBump += DifficultyStep
			lastWiden = time.Now()
		}
	}
}

// AddValidationFlag records a validator's vote (spec.md §4.3). It rejects a
// self-flag by the miner, a flag on a block that isn't MINED, and a repeat
// flag from the same validator.
func (b *Block) AddValidationFlag(pk []byte, sig []byte, accept bool) error {
	if b.Hash == nil || b.State() != MINED {
		return ErrPreconditionUnmet
	}
	if string(pk) == string(b.MinedBy) {
		return ErrUnauthorized
	}
	for _, f := range b.ValidationFlags {
		if string(f.ValidatorPK) == string(pk) {
			return ErrPreconditionUnmet
		}
	}
	if !crypto.Verify(*b.Hash, sig, pk) {
		return ErrUnauthorized
	}
	b.ValidationFlags = append(b.ValidationFlags, ValidationFlag{ValidatorPK: pk, Signature: sig, Accept: accept})
	return nil
}

// AcceptCount and RejectCount expose the current tally for the quorum
// package and the node engine's tipping-flag detection.
func (b *Block) AcceptCount() int { a, _ := b.countFlags(); return a }
func (b *Block) RejectCount() int { _, r := b.countFlags(); return r }

// ResetToNew implements the MINED -> NEW rejection transition of spec.md
// §4.3: the hash, signature, flags, and transactions are cleared so the
// block can be refilled and re-mined; callers return its txs to the pool
// before calling this.
func (b *Block) ResetToNew() {
	b.Txs = make(map[common.Hash]*Tx)
	b.Hash = nil
	b.Signature = nil
	b.MinedBy = nil
	b.ValidationFlags = nil
	b.Nonce = [32]byte{}
}
