package model

import "errors"

var (
	// ErrNotFound marks logical misses (session, cell, digest). Callers must
	// never see a storage failure dressed up as this.
	ErrNotFound = errors.New("not found")

	// ErrStorageUnavailable propagates backing-store connection or timeout
	// failures. The only hard failure core methods emit.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrSessionInactive rejects mutations against an ended session.
	ErrSessionInactive = errors.New("session inactive")

	// ErrNoPendingUpdate means a sync request found nothing recorded for the cell.
	ErrNoPendingUpdate = errors.New("no pending update")

	// ErrSyncNotAllowed means a record exists but the publisher has withheld it.
	ErrSyncNotAllowed = errors.New("sync not allowed")

	// ErrValidation marks malformed input caught at the boundary.
	ErrValidation = errors.New("validation error")
)
