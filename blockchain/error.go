// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"
)

// AssertError identifies an error that indicates an internal code consistency
// issue and should be treated as a critical and unrecoverable error.
type AssertError string

// Error returns the assertion error as a human-readable string and satisfies
// the error interface.
func (e AssertError) Error() string {
	return "assertion failed: " + string(e)
}

// ErrorKind identifies a kind of error.  It has full support for errors.Is and
// errors.As, so the caller can directly check against an error kind when
// determining the reason for an error.
type ErrorKind string

// These constants are used to identify a specific ErrorKind.
const (
	// ErrMissingParent indicates a header does not connect to any node in
	// the block index.
	ErrMissingParent = ErrorKind("ErrMissingParent")

	// ErrGenesisMismatch indicates a header without a parent that is not the
	// genesis header of the network.
	ErrGenesisMismatch = ErrorKind("ErrGenesisMismatch")

	// ErrBadEntryHeight indicates a stored index entry claims a height that
	// does not follow from its parent.
	ErrBadEntryHeight = ErrorKind("ErrBadEntryHeight")

	// ErrUnknownBlock indicates a requested block does not exist in the block
	// index.
	ErrUnknownBlock = ErrorKind("ErrUnknownBlock")

	// ErrInvalidateGenesisBlock indicates an attempt to mark the genesis
	// block as failed, which is not allowed.
	ErrInvalidateGenesisBlock = ErrorKind("ErrInvalidateGenesisBlock")

	// ErrBadSkipLink indicates a node whose skip pointer does not point at the
	// ancestor its height dictates.
	ErrBadSkipLink = ErrorKind("ErrBadSkipLink")

	// ErrBadChainWork indicates a node whose cumulative work does not equal
	// its parent's plus its own proof.
	ErrBadChainWork = ErrorKind("ErrBadChainWork")

	// ErrBadTimeMax indicates a node whose maximum time does not follow from
	// its parent and its own timestamp.
	ErrBadTimeMax = ErrorKind("ErrBadTimeMax")

	// ErrBadLinkage indicates a node whose height or parent hash does not
	// agree with its parent.
	ErrBadLinkage = ErrorKind("ErrBadLinkage")
)

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}

// RuleError identifies a rule violation.  It has full support for errors.Is
// and errors.As, so the caller can ascertain the specific reason for the error
// by checking the underlying error.
type RuleError struct {
	Err         error
	Description string
}

// Error satisfies the error interface and prints human-readable errors.
func (e RuleError) Error() string {
	return e.Description
}

// Unwrap returns the underlying wrapped error.
func (e RuleError) Unwrap() error {
	return e.Err
}

// ruleError creates a RuleError given a set of arguments.
func ruleError(kind ErrorKind, desc string) RuleError {
	return RuleError{Err: kind, Description: desc}
}

// panicf logs the provided message at critical level and then panics with an
// AssertError carrying it.  It is used for internal consistency violations
// that leave the block index in an unusable state.
func panicf(format string, args ...interface{}) {
	str := fmt.Sprintf(format, args...)
	log.Critical(str)
	panic(AssertError(str))
}
