package reorder

import (
	"errors"
	"fmt"
)

// Sentinel errors for the reorder state machine - use with errors.Is()
var (
	ErrReorderPending  = errors.New("a reorder is waiting for confirmation")
	ErrNoPending       = errors.New("no reorder is pending")
	ErrConfirmInFlight = errors.New("reorder is being saved")
	ErrSelectMode      = errors.New("reordering is disabled while selecting")
	ErrItemLocked      = errors.New("expanded items cannot be reordered")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrCrossCollection = errors.New("items can only be reordered within their own list")
	ErrNoDrag          = errors.New("no drag in progress")
	ErrNotLoaded       = errors.New("collection not loaded")
)

// ValidationError is a local failure detected before any network call.
type ValidationError struct {
	Key     Key
	ItemID  string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// PersistError wraps a failed store update. The message of the underlying
// error is surfaced to the user as is.
type PersistError struct {
	Key    Key
	ItemID string
	Err    error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("reorder of %s in %s failed: %v", e.ItemID, e.Key, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }
