package gossip

import (
	"github.com/driftchain/driftchain/accounts"
	"github.com/driftchain/driftchain/common"
	"github.com/driftchain/driftchain/ledger/types"
)

// ObjectKind tags which field of Envelope is populated; the inbox dispatch
// models this as a tagged variant with an explicit arm per type (spec.md
// §9, "dynamic object dispatch on the inbox").
type ObjectKind int

const (
	KindUser ObjectKind = iota
	KindTx
	KindBlock
	KindValidationFlag
	KindNodeSummary
	KindNodeSyncRequest
)

// ValidationFlag is the wire form of a validator's vote on a block
// (spec.md §4.6).
type ValidationFlag struct {
	BlockID     uint64
	ValidatorPK []byte
	Signature   []byte
	Accept      bool
}

// NodeSummary is a peer's self-description, exchanged at startup and on
// request (spec.md §4.6).
type NodeSummary struct {
	HeadID       uint64
	PoolTxHashes []common.Hash
	Usernames    []string
	PeerAddr     string
}

// NodeSyncRequest asks a peer for a specific object, or — when every field
// is the zero value — for the peer's own NodeSummary (spec.md §4.6).
type NodeSyncRequest struct {
	BlockID  *uint64
	Username *string
	TxHash   *common.Hash
	PeerAddr string
}

// IsEmpty reports whether this is the "send me your summary" request.
func (r *NodeSyncRequest) IsEmpty() bool {
	return r.BlockID == nil && r.Username == nil && r.TxHash == nil
}

// Envelope is the single wire type every gossiped object travels as, with
// exactly one of the typed fields populated per Kind — this is the fixed
// set of object types spec.md §4.6 names, and nothing outside that set is
// representable on the wire.
type Envelope struct {
	Kind    ObjectKind
	User    *accounts.User
	Tx      *types.Tx
	Block   *types.Block
	Flag    *ValidationFlag
	Summary *NodeSummary
	SyncReq *NodeSyncRequest
}

func UserEnvelope(u *accounts.User) Envelope      { return Envelope{Kind: KindUser, User: u} }
func TxEnvelope(tx *types.Tx) Envelope             { return Envelope{Kind: KindTx, Tx: tx} }
func BlockEnvelope(b *types.Block) Envelope        { return Envelope{Kind: KindBlock, Block: b} }
func FlagEnvelope(f *ValidationFlag) Envelope      { return Envelope{Kind: KindValidationFlag, Flag: f} }
func SummaryEnvelope(s *NodeSummary) Envelope      { return Envelope{Kind: KindNodeSummary, Summary: s} }
func SyncReqEnvelope(r *NodeSyncRequest) Envelope  { return Envelope{Kind: KindNodeSyncRequest, SyncReq: r} }
