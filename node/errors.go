package node

import (
	"errors"

	"github.com/driftchain/driftchain/gossip"
	"github.com/driftchain/driftchain/ledger/types"
)

type kind int

const (
	kindInvalid kind = iota
	kindFail
)

// errorKind classifies a sentinel error into the two buckets the public
// Result contract collapses everything down to (spec.md §7).
func errorKind(err error) kind {
	switch {
	case errors.Is(err, types.ErrInvalidTx),
		errors.Is(err, types.ErrInvalidBlock),
		errors.Is(err, types.ErrUnauthorized),
		errors.Is(err, types.ErrPreconditionUnmet),
		errors.Is(err, types.ErrDuplicateUser),
		errors.Is(err, types.ErrUnknownUser):
		return kindInvalid
	case errors.Is(err, types.ErrTamperDetected), errors.Is(err, gossip.ErrNetworkError):
		return kindFail
	default:
		return kindFail
	}
}
