package accounts

import "github.com/driftchain/driftchain/ledger/types"

// Re-exported so callers only need to import accounts for user-directory
// operations; the underlying sentinel kinds are shared with ledger/types
// per spec.md §7's single error-kind taxonomy.
var (
	ErrDuplicateUser = types.ErrDuplicateUser
	ErrUnknownUser   = types.ErrUnknownUser
	ErrUnauthorized  = types.ErrUnauthorized
)
