// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/wire"
)

// HashScheme identifies which of the two block identities a locator carries.
type HashScheme uint8

const (
	// HashSchemeWitness selects the block hash, which covers the witness
	// header fields once a block carries them.
	HashSchemeWitness HashScheme = iota

	// HashSchemeLegacy selects the hash of the header without any witness
	// fields, as understood by legacy peers.
	HashSchemeLegacy
)

// String returns the HashScheme as a human-readable name.
func (s HashScheme) String() string {
	switch s {
	case HashSchemeWitness:
		return "witness"
	case HashSchemeLegacy:
		return "legacy"
	}
	return fmt.Sprintf("Unknown HashScheme (%d)", uint8(s))
}

// hashOf returns the identity of the node under the scheme.
func (s HashScheme) hashOf(node *BlockNode) chainhash.Hash {
	if s == HashSchemeLegacy {
		return node.legacyHash
	}
	return node.hash
}

// BlockLocator is used to help locate a specific block.  The algorithm for
// building the block locator is to add the hashes in reverse order until
// the genesis block is reached.  In order to keep the list of locator hashes
// to a reasonable number of entries, first the most recent previous 12 block
// hashes are added, then the step is doubled each loop iteration to
// exponentially decrease the number of hashes as a function of the distance
// from the block being located.
//
// For example, assume a block chain with a side chain as depicted below:
//
//	genesis -> 1 -> 2 -> ... -> 15 -> 16  -> 17  -> 18
//	                              \-> 16a -> 17a
//
// The block locator for block 17a would be the hashes of blocks:
// [17a 16a 15 14 13 12 11 10 9 8 7 6 4 genesis]
//
// Locators built from a PartialChain end at the first height of the partial
// chain instead of the genesis block.
type BlockLocator []*chainhash.Hash

// buildLocator returns the locator for the passed node walking down to the
// floor height.  Nodes the view contains are resolved through the view and all
// others through the skip list.
//
// This function MUST be called with the view mutex locked (for reads).
func buildLocator(c chainAccessor, node *BlockNode, floor int64, scheme HashScheme) BlockLocator {
	if node == nil {
		return nil
	}

	step := int64(1)
	locator := make(BlockLocator, 0, 32)
	for node != nil {
		hash := scheme.hashOf(node)
		locator = append(locator, &hash)

		// Stop once the floor has been added.
		if node.height <= floor {
			break
		}

		height := node.height - step
		if height < floor {
			height = floor
		}
		if c.contains(node) {
			node = c.nodeByHeight(height)
		} else {
			node = node.Ancestor(height)
		}

		// Double the distance between included hashes once the most recent
		// blocks are covered.
		if len(locator) > 10 {
			step *= 2
		}
	}
	return locator
}

// NewMsgGetHeaders returns a getheaders message requesting the headers after
// the locator up to the provided stop hash.  A nil stop hash requests as many
// headers as the peer is willing to send.
func (l BlockLocator) NewMsgGetHeaders(hashStop *chainhash.Hash) (*wire.MsgGetHeaders, error) {
	msg := wire.NewMsgGetHeaders()
	for _, hash := range l {
		if err := msg.AddBlockLocatorHash(hash); err != nil {
			return nil, err
		}
	}
	if hashStop != nil {
		msg.HashStop = *hashStop
	}
	return msg, nil
}

// NewMsgGetBlocks returns a getblocks message requesting the inventory after
// the locator up to the provided stop hash.
func (l BlockLocator) NewMsgGetBlocks(hashStop *chainhash.Hash) (*wire.MsgGetBlocks, error) {
	if hashStop == nil {
		hashStop = zeroHash
	}
	msg := wire.NewMsgGetBlocks(hashStop)
	for _, hash := range l {
		if err := msg.AddBlockLocatorHash(hash); err != nil {
			return nil, err
		}
	}
	return msg, nil
}
