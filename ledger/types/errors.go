package types

import "github.com/pkg/errors"

// Sentinel error kinds named in spec.md §7. Wrapped with github.com/pkg/errors
// so a FAIL-class Result can still log a cause chain without leaking it
// across the Node engine's tri-valued return boundary.
var (
	ErrInvalidTx         = errors.New("invalid tx")
	ErrInvalidBlock      = errors.New("invalid block")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrPreconditionUnmet = errors.New("precondition unmet")
	ErrTamperDetected    = errors.New("tamper detected")
	ErrDuplicateUser     = errors.New("duplicate user")
	ErrUnknownUser       = errors.New("unknown user")
)
