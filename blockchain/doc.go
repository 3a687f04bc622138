// Copyright (c) 2013-2014 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package blockchain implements the in-memory block index and the flat views of
the active chain built on top of it.

The block index is a tree of BlockNode values, one per known block header,
linked through their parents and a deterministic skip list that makes ancestor
lookups logarithmic in the height.  Every node tracks the cumulative work of its
branch, the running maximum block time, and its validation status on the full
and partial validity ladders.

# Chain views

Several views flatten a single branch of the tree into a height indexed array:

  - Chain tracks a branch from the genesis block to its tip and is typically
    used for the active chain
  - PartialChain tracks a branch from a fixed height upward for header-first
    synchronization
  - CloneChain is a speculative copy of the upper part of a Chain that can be
    reorganized without affecting the chain it was made from

All of them implement the ChainView interface and can produce block locators
under either the witness or the legacy hash scheme.

# Errors

Errors returned by this package are of type blockchain.RuleError.  Callers can
programmatically determine the specific reason with errors.Is against the
ErrorKind constants.  Violations of internal invariants panic with an
AssertError.
*/
package blockchain
