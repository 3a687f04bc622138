// Copyright (c) 2021-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package indexdb

import (
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	ldberrors "github.com/syndtr/goleveldb/leveldb/errors"
)

// ErrorKind identifies a kind of error.  It has full support for errors.Is
// and errors.As, so the caller can directly check against an error kind when
// determining the reason for an error.
type ErrorKind string

// These constants are used to identify a specific ErrorKind.
const (
	// ErrStore indicates an error in the underlying leveldb database that
	// is not covered by a more specific kind.
	ErrStore = ErrorKind("ErrStore")

	// ErrStoreCorruption indicates leveldb reported corruption of the
	// database files.
	ErrStoreCorruption = ErrorKind("ErrStoreCorruption")

	// ErrStoreNotOpen indicates an operation was attempted on a store that
	// has been closed.
	ErrStoreNotOpen = ErrorKind("ErrStoreNotOpen")

	// ErrWrongNetwork indicates the store was created for a different
	// network than the one it is being opened for.
	ErrWrongNetwork = ErrorKind("ErrWrongNetwork")

	// ErrEntryNotFound indicates there is no stored entry for a block hash.
	ErrEntryNotFound = ErrorKind("ErrEntryNotFound")

	// ErrBestChainNotFound indicates the store has no best chain record.
	ErrBestChainNotFound = ErrorKind("ErrBestChainNotFound")

	// ErrCorruptEntry indicates a stored value could not be decoded or does
	// not agree with the key it is stored under.
	ErrCorruptEntry = ErrorKind("ErrCorruptEntry")

	// ErrBadEntry indicates an entry was rejected before being stored.
	ErrBadEntry = ErrorKind("ErrBadEntry")
)

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}

// ContextError wraps an error with additional context.  It has full support
// for errors.Is and errors.As, so the caller can ascertain the specific wrapped
// error.
//
// RawErr contains the original error in the case where an error has been
// converted.
type ContextError struct {
	Err         error
	Description string
	RawErr      error
}

// Error satisfies the error interface and prints human-readable errors.
func (e ContextError) Error() string {
	return e.Description
}

// Unwrap returns the underlying wrapped error.
func (e ContextError) Unwrap() error {
	return e.Err
}

// contextError creates a ContextError given a set of arguments.
func contextError(kind ErrorKind, desc string) ContextError {
	return ContextError{Err: kind, Description: desc}
}

// convertLdbErr converts the passed leveldb error into a context error with an
// equivalent error kind and the passed description.
func convertLdbErr(ldbErr error, desc string) ContextError {
	var kind = ErrStore
	switch {
	case ldberrors.IsCorrupted(ldbErr):
		kind = ErrStoreCorruption
	case errors.Is(ldbErr, leveldb.ErrClosed):
		kind = ErrStoreNotOpen
	}

	err := contextError(kind, fmt.Sprintf("%s: %v", desc, ldbErr))
	err.RawErr = ldbErr
	return err
}
