package rmap

import "errors"

var (
	// ErrInvalidArgument is returned for empty keys. It is always detected before any remote call.
	ErrInvalidArgument = errors.New("rmap: invalid argument")

	// ErrClosed is returned by every operation on a handle after Close
	ErrClosed = errors.New("rmap: handle is closed")

	// ErrScanNotTerminated is returned if a scan exceeds ScanOptions.MaxPages
	ErrScanNotTerminated = errors.New("rmap: scan did not terminate")

	// ErrNoCurrentEntry is returned by Iterator.Remove before Next or after the entry was removed
	ErrNoCurrentEntry = errors.New("rmap: iterator has no current entry")

	// ErrTransaction is returned if an operation inside a transaction failed on the store
	ErrTransaction = errors.New("rmap: transaction failed")
)
