// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"github.com/centure/chainindex/primitives"
	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/wire"
)

// findForkInChain returns the most recent block in the locator that is part of
// the passed view.  A locator entry that descends from the tip of the view
// yields the tip.  The lowest node of the view is returned when no entry is
// known.
//
// This function MUST be called with the block index lock held (for reads).
func (bi *BlockIndex) findForkInChain(chain ChainView, locator BlockLocator, scheme HashScheme) *BlockNode {
	tip := chain.Tip()
	for _, hash := range locator {
		node := bi.lookupNodeByScheme(hash, scheme)
		if node == nil {
			continue
		}
		if chain.Contains(node) {
			return node
		}
		if tip != nil && node.Ancestor(tip.height) == tip {
			return tip
		}
	}
	return chain.Genesis()
}

// FindForkInChain returns the most recent block in the locator that is part of
// the passed view.  The hashes in the locator are interpreted according to the
// provided scheme.
//
// There are two special cases:
//
//   - When a locator entry is a descendant of the tip of the view, the tip is
//     returned
//   - When none of the locator entries are known, the lowest node of the view
//     is returned
//
// This function is safe for concurrent access.
func (bi *BlockIndex) FindForkInChain(chain ChainView, locator BlockLocator, scheme HashScheme) *BlockNode {
	bi.RLock()
	fork := bi.findForkInChain(chain, locator, scheme)
	bi.RUnlock()
	return fork
}

// locateInventory returns the node of the block after the first known block in
// the locator along with the number of subsequent nodes needed to either reach
// the provided stop hash or the provided max number of entries.
//
// In addition, there are two special cases:
//
//   - When no locators are provided, the stop hash is treated as a request for
//     that block, so it will either return the node associated with the stop
//     hash if it is known, or nil if it is unknown
//   - When locators are provided, but none of them are known, nodes starting
//     after the lowest node of the view will be returned
//
// This is primarily a helper function for the locateBlocks and locateHeaders
// functions.
//
// This function MUST be called with the block index lock held (for reads).
func (bi *BlockIndex) locateInventory(chain ChainView, locator BlockLocator, scheme HashScheme, hashStop *chainhash.Hash, maxEntries uint32) (*BlockNode, uint32) {
	// There are no block locators so a specific block is being requested
	// as identified by the stop hash.
	var stopNode *BlockNode
	if hashStop != nil {
		stopNode = bi.lookupNodeByScheme(hashStop, scheme)
	}
	if len(locator) == 0 {
		if stopNode == nil {
			// No blocks with the stop hash were found so there is
			// nothing to do.
			return nil, 0
		}
		return stopNode, 1
	}

	// Start at the block after the most recently known block.  When there
	// is no next block it means the most recently known block is the tip of
	// the view, so there is nothing more to do.
	startNode := bi.findForkInChain(chain, locator, scheme)
	if startNode == nil {
		return nil, 0
	}
	startNode = chain.NodeByHeight(startNode.height + 1)
	if startNode == nil {
		return nil, 0
	}

	// Calculate how many entries are needed.
	total := uint32((chain.Height() - startNode.height) + 1)
	if stopNode != nil && chain.Contains(stopNode) &&
		stopNode.height >= startNode.height {

		total = uint32((stopNode.height - startNode.height) + 1)
	}
	if total > maxEntries {
		total = maxEntries
	}

	return startNode, total
}

// LocateBlocks returns the hashes of the blocks after the first known block in
// the locator until the provided stop hash is reached, or up to the provided
// max number of block hashes.  Both the locator and the returned hashes use the
// provided hash scheme.
//
// In addition, there are two special cases:
//
//   - When no locators are provided, the stop hash is treated as a request for
//     that block, so it will either return the stop hash itself if it is known,
//     or nil if it is unknown
//   - When locators are provided, but none of them are known, hashes starting
//     after the lowest node of the view will be returned
//
// This function is safe for concurrent access.
func (bi *BlockIndex) LocateBlocks(chain ChainView, locator BlockLocator, scheme HashScheme, hashStop *chainhash.Hash, maxHashes uint32) []chainhash.Hash {
	bi.RLock()
	defer bi.RUnlock()

	node, total := bi.locateInventory(chain, locator, scheme, hashStop, maxHashes)
	if total == 0 {
		return nil
	}

	hashes := make([]chainhash.Hash, 0, total)
	for i := uint32(0); i < total && node != nil; i++ {
		hashes = append(hashes, scheme.hashOf(node))
		node = chain.NodeByHeight(node.height + 1)
	}
	return hashes
}

// LocateHeaders returns the headers of the blocks after the first known block
// in the locator until the provided stop hash is reached, or up to a max of
// wire.MaxBlockHeadersPerMsg headers.
//
// See LocateBlocks for details on the special cases.
//
// This function is safe for concurrent access.
func (bi *BlockIndex) LocateHeaders(chain ChainView, locator BlockLocator, scheme HashScheme, hashStop *chainhash.Hash) []primitives.BlockHeader {
	bi.RLock()
	defer bi.RUnlock()

	node, total := bi.locateInventory(chain, locator, scheme, hashStop,
		wire.MaxBlockHeadersPerMsg)
	if total == 0 {
		return nil
	}

	headers := make([]primitives.BlockHeader, 0, total)
	for i := uint32(0); i < total && node != nil; i++ {
		headers = append(headers, node.Header())
		node = chain.NodeByHeight(node.height + 1)
	}
	return headers
}
