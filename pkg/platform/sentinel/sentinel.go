package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, the artifact storage, and
// the notification client return these (optionally wrapped) so services can
// translate them into domain errors.
//
//   - ErrNotFound: row or file does not exist
//   - ErrConflict: a uniqueness rule rejected the write (one active sale per credential)
//   - ErrInvalidState: the row was not in the state a conditional write required
//   - ErrAlreadyUsed: the secret was already cleared
//   - ErrUnavailable: a collaborator is temporarily unreachable; safe to retry
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
