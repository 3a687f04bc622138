// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"
	"sort"
	"sync"

	"github.com/centure/chainindex/chaincfg"
	"github.com/centure/chainindex/primitives"
	"github.com/decred/dcrd/chaincfg/chainhash"
)

// compareHashesAsUint256LE compares two raw hashes treated as if they were
// little-endian uint256s in a way that is more efficient than converting them
// to big integers first.  It returns 1 when a > b, -1 when a < b, and 0 when a
// == b.
func compareHashesAsUint256LE(a, b *chainhash.Hash) int {
	// Find the index of the first byte that differs.
	index := len(a) - 1
	for ; index >= 0 && a[index] == b[index]; index-- {
		// Nothing to do.
	}
	if index < 0 {
		return 0
	}
	if a[index] > b[index] {
		return 1
	}
	return -1
}

// workSorterLess returns whether node 'a' is a worse candidate than 'b' for the
// purposes of best chain selection.
//
// The criteria for determining what constitutes a worse candidate, in order of
// priority, is as follows:
//
// 1. Less total cumulative work
// 2. Not having block data available
// 3. Receiving data later
// 4. Hash that represents less work (larger value as a little-endian uint256)
//
// This function MUST be called with the block index lock held (for reads).
func workSorterLess(a, b *BlockNode) bool {
	// First, sort by the total cumulative work.
	if workCmp := a.workSum.Cmp(&b.workSum); workCmp != 0 {
		return workCmp < 0
	}

	// Then sort according to block data availability.
	if aHasData := a.status.HaveData; aHasData != b.status.HaveData {
		return !aHasData
	}

	// Then sort according to blocks that received their data first.  The
	// sequence id is zero for both when neither has data in this session.
	if a.sequenceID != b.sequenceID {
		return a.sequenceID > b.sequenceID
	}

	// Finally, fall back to the hash.  Larger values represent less work and
	// are therefore worse candidates.
	return compareHashesAsUint256LE(&a.hash, &b.hash) > 0
}

// IndexEntry is the persisted form of a block node.
type IndexEntry struct {
	Header primitives.BlockHeader
	Height int64
	Status BlockStatus
}

// IndexWriter stores block index entries.
type IndexWriter interface {
	PutEntries(entries []IndexEntry) error
}

// chainTipEntry defines an entry used to track the chain tips and is structured
// such that there is a single statically-allocated field to house a tip, and a
// dynamically-allocated slice for the rare case when there are multiple
// tips at the same height.
type chainTipEntry struct {
	tip       *BlockNode
	otherTips []*BlockNode
}

// BlockIndex provides facilities for keeping track of an in-memory index of the
// block tree.  Every node is reachable by its block hash and by its legacy
// hash.  The index is the sole owner of the nodes it creates, which live for
// as long as the index does.
type BlockIndex struct {
	// The following fields are set when the instance is created and can't
	// be changed afterwards, so there is no need to protect them with a
	// separate mutex.
	params  *chaincfg.Params
	genesis *BlockNode

	// These following fields are protected by the embedded mutex.
	//
	// index and legacyIndex contain an entry for every known block keyed by
	// its block hash and legacy hash respectively.
	//
	// modified contains an entry for all nodes that have been modified
	// since the last time the index was flushed.
	//
	// chainTips contains an entry with the tip of all known side chains.
	//
	// totalTips tracks the total number of all known chain tips.
	sync.RWMutex
	index       map[chainhash.Hash]*BlockNode
	legacyIndex map[chainhash.Hash]*BlockNode
	modified    map[*BlockNode]struct{}
	chainTips   map[int64]chainTipEntry
	totalTips   uint64

	// bestHeader tracks the highest work block node in the index that is not
	// known to be invalid.
	//
	// bestInvalid tracks the highest work block node that was found to be
	// invalid.
	//
	// nextSequenceID is assigned to block nodes and incremented each time
	// block data is received.
	bestHeader     *BlockNode
	bestInvalid    *BlockNode
	nextSequenceID int32
}

// NewBlockIndex returns a new block index that contains only the genesis block
// of the passed network.
func NewBlockIndex(params *chaincfg.Params) *BlockIndex {
	genesis := NewBlockNode(params.GenesisHeader, nil)
	genesis.status = BlockStatus{
		Validity: ValidityScripts,
		HaveData: true,
	}

	// The next sequence id starts at one since all entries loaded from
	// storage have zero.
	bi := &BlockIndex{
		params:         params,
		genesis:        genesis,
		index:          make(map[chainhash.Hash]*BlockNode),
		legacyIndex:    make(map[chainhash.Hash]*BlockNode),
		modified:       make(map[*BlockNode]struct{}),
		chainTips:      make(map[int64]chainTipEntry),
		bestHeader:     genesis,
		nextSequenceID: 1,
	}
	bi.addNode(genesis)
	bi.modified[genesis] = struct{}{}
	return bi
}

// Params returns the network parameters of the index.
func (bi *BlockIndex) Params() *chaincfg.Params {
	return bi.params
}

// Genesis returns the genesis block node.
func (bi *BlockIndex) Genesis() *BlockNode {
	return bi.genesis
}

// HaveBlock returns whether or not the block index contains the provided hash
// and the block data is available.
//
// This function is safe for concurrent access.
func (bi *BlockIndex) HaveBlock(hash *chainhash.Hash) bool {
	bi.RLock()
	node := bi.lookupNode(hash)
	hasBlock := node != nil && node.status.HaveData
	bi.RUnlock()
	return hasBlock
}

// addNode adds the provided node to the block index.  Duplicate entries are not
// checked so it is up to caller to avoid adding them.
//
// This function MUST be called with the block index lock held (for writes).
func (bi *BlockIndex) addNode(node *BlockNode) {
	bi.index[node.hash] = node

	// A witness header shares its legacy hash with the same header without
	// the witness fields.  The first node added keeps the legacy identity.
	if _, ok := bi.legacyIndex[node.legacyHash]; !ok {
		bi.legacyIndex[node.legacyHash] = node
	}

	// All new nodes are a new chain tip.  When the node extends a chain, its
	// parent is no longer a tip.
	bi.addChainTip(node)
	if node.parent != nil {
		bi.removeChainTip(node.parent)
	}

	if !node.status.KnownInvalid() && workSorterLess(bi.bestHeader, node) {
		bi.bestHeader = node
	}
	if node.status.KnownInvalid() {
		bi.maybeUpdateBestInvalid(node)
	}
}

// AddHeader creates a node for the passed header and adds it to the index.  The
// header must connect to a block that is already in the index.  The node is
// raised to ValidityHeader, and to ValidityTree or PartialValidityTree when
// its parent is.  Descendants of blocks known to be invalid are marked as
// such.  Adding a header that is already known returns the existing node.
//
// This function is safe for concurrent access.
func (bi *BlockIndex) AddHeader(header *primitives.BlockHeader) (*BlockNode, error) {
	hash := header.BlockHash()

	bi.Lock()
	defer bi.Unlock()

	if node := bi.index[hash]; node != nil {
		return node, nil
	}
	parent := bi.index[header.PrevBlock]
	if parent == nil {
		if header.PrevBlock == *zeroHash {
			str := fmt.Sprintf("block %v is not the genesis block %v", hash,
				bi.params.GenesisHash)
			return nil, ruleError(ErrGenesisMismatch, str)
		}
		str := fmt.Sprintf("previous block %v of block %v is unknown",
			header.PrevBlock, hash)
		return nil, ruleError(ErrMissingParent, str)
	}

	node := NewBlockNode(header, parent)
	node.RaiseValidity(ValidityHeader)
	switch {
	case parent.status.KnownInvalid():
		node.status.FailedChild = true
	default:
		if parent.IsValid(ValidityTree) {
			node.RaiseValidity(ValidityTree)
		}
		if parent.IsPartialValid(PartialValidityTree) {
			node.RaisePartialValidity(PartialValidityTree)
		}
	}

	bi.addNode(node)
	bi.modified[node] = struct{}{}
	log.Debugf("Added header %v at height %d", node.hash, node.height)
	return node, nil
}

// AddEntry adds a node for a stored index entry.  Entries must be added in an
// order where parents precede their children, such as by height.  The stored
// status is restored as is and the node is not marked as modified.  The entry
// of the genesis block updates the status of the existing genesis node.
//
// This function is safe for concurrent access.
func (bi *BlockIndex) AddEntry(entry *IndexEntry) (*BlockNode, error) {
	hash := entry.Header.BlockHash()

	bi.Lock()
	defer bi.Unlock()

	if hash == bi.genesis.hash {
		if entry.Height != 0 {
			str := fmt.Sprintf("genesis block entry has height %d",
				entry.Height)
			return nil, ruleError(ErrBadEntryHeight, str)
		}
		bi.genesis.status = entry.Status
		delete(bi.modified, bi.genesis)
		return bi.genesis, nil
	}
	if node := bi.index[hash]; node != nil {
		return node, nil
	}

	parent := bi.index[entry.Header.PrevBlock]
	if parent == nil {
		str := fmt.Sprintf("previous block %v of stored block %v is unknown",
			entry.Header.PrevBlock, hash)
		return nil, ruleError(ErrMissingParent, str)
	}
	node := NewBlockNode(&entry.Header, parent)
	if node.height != entry.Height {
		str := fmt.Sprintf("stored block %v has height %d, but its parent "+
			"is at height %d", hash, entry.Height, parent.height)
		return nil, ruleError(ErrBadEntryHeight, str)
	}
	node.status = entry.Status
	bi.addNode(node)
	return node, nil
}

// addChainTip adds the passed block node as a new chain tip.
//
// This function MUST be called with the block index lock held (for writes).
func (bi *BlockIndex) addChainTip(tip *BlockNode) {
	bi.totalTips++

	// When an entry does not already exist for the given tip height, add an
	// entry to the map with the tip stored in the statically-allocated field.
	entry, ok := bi.chainTips[tip.height]
	if !ok {
		bi.chainTips[tip.height] = chainTipEntry{tip: tip}
		return
	}

	// Otherwise, an entry already exists for the given tip height, so store the
	// tip in the dynamically-allocated slice.
	entry.otherTips = append(entry.otherTips, tip)
	bi.chainTips[tip.height] = entry
}

// removeChainTip removes the passed block node from the available chain tips.
//
// This function MUST be called with the block index lock held (for writes).
func (bi *BlockIndex) removeChainTip(tip *BlockNode) {
	// Nothing to do if no tips exist at the given height.
	entry, ok := bi.chainTips[tip.height]
	if !ok {
		return
	}

	// The most common case is a single tip at the given height, so handle the
	// case where the tip that is being removed is the tip that is stored in the
	// statically-allocated field first.
	if entry.tip == tip {
		bi.totalTips--
		entry.tip = nil

		// Remove the map entry altogether if there are no more tips left.
		if len(entry.otherTips) == 0 {
			delete(bi.chainTips, tip.height)
			return
		}

		// Move the first of the remaining tips to the statically-allocated
		// field.
		entry.tip = entry.otherTips[0]
		entry.otherTips = entry.otherTips[1:]
		if len(entry.otherTips) == 0 {
			entry.otherTips = nil
		}
		bi.chainTips[tip.height] = entry
		return
	}

	// The tip being removed is not the tip stored in the statically-allocated
	// field, so attempt to remove it from the dynamically-allocated slice.
	for i, n := range entry.otherTips {
		if n == tip {
			bi.totalTips--

			copy(entry.otherTips[i:], entry.otherTips[i+1:])
			entry.otherTips[len(entry.otherTips)-1] = nil
			entry.otherTips = entry.otherTips[:len(entry.otherTips)-1]
			if len(entry.otherTips) == 0 {
				entry.otherTips = nil
			}
			bi.chainTips[tip.height] = entry
			return
		}
	}
}

// forEachChainTip calls the provided function with each chain tip known to the
// block index.  Returning an error from the provided function will stop the
// iteration early and return said error from this function.
//
// This function MUST be called with the block index lock held (for reads).
func (bi *BlockIndex) forEachChainTip(f func(tip *BlockNode) error) error {
	for _, tipEntry := range bi.chainTips {
		if err := f(tipEntry.tip); err != nil {
			return err
		}
		for _, tip := range tipEntry.otherTips {
			if err := f(tip); err != nil {
				return err
			}
		}
	}
	return nil
}

// ChainTips returns all known chain tips ordered from the best to the worst
// candidate.
//
// This function is safe for concurrent access.
func (bi *BlockIndex) ChainTips() []*BlockNode {
	bi.RLock()
	tips := make([]*BlockNode, 0, bi.totalTips)
	bi.forEachChainTip(func(tip *BlockNode) error {
		tips = append(tips, tip)
		return nil
	})
	sort.Slice(tips, func(i, j int) bool {
		return workSorterLess(tips[j], tips[i])
	})
	bi.RUnlock()
	return tips
}

// lookupNode returns the block node identified by the provided hash.  It will
// return nil if there is no entry for the hash.
//
// This function MUST be called with the block index lock held (for reads).
func (bi *BlockIndex) lookupNode(hash *chainhash.Hash) *BlockNode {
	return bi.index[*hash]
}

// LookupNode returns the block node identified by the provided block hash.  It
// will return nil if there is no entry for the hash.
//
// This function is safe for concurrent access.
func (bi *BlockIndex) LookupNode(hash *chainhash.Hash) *BlockNode {
	bi.RLock()
	node := bi.lookupNode(hash)
	bi.RUnlock()
	return node
}

// lookupNodeByScheme returns the block node identified by the provided hash
// under the passed hash scheme.
//
// This function MUST be called with the block index lock held (for reads).
func (bi *BlockIndex) lookupNodeByScheme(hash *chainhash.Hash, scheme HashScheme) *BlockNode {
	if scheme == HashSchemeLegacy {
		return bi.legacyIndex[*hash]
	}
	return bi.index[*hash]
}

// LookupNodeByScheme returns the block node identified by the provided hash
// under the passed hash scheme.  It will return nil if there is no entry for
// the hash.  When several blocks share a legacy hash, the one added to the
// index first is returned.
//
// This function is safe for concurrent access.
func (bi *BlockIndex) LookupNodeByScheme(hash *chainhash.Hash, scheme HashScheme) *BlockNode {
	bi.RLock()
	node := bi.lookupNodeByScheme(hash, scheme)
	bi.RUnlock()
	return node
}

// Count returns the number of nodes in the index.
//
// This function is safe for concurrent access.
func (bi *BlockIndex) Count() int {
	bi.RLock()
	count := len(bi.index)
	bi.RUnlock()
	return count
}

// NodeStatus returns the status associated with the provided node.
//
// This function is safe for concurrent access.
func (bi *BlockIndex) NodeStatus(node *BlockNode) BlockStatus {
	bi.RLock()
	status := node.status
	bi.RUnlock()
	return status
}

// RaiseValidity raises the full validity level of the passed node and marks it
// modified when the level changed.
//
// This function is safe for concurrent access.
func (bi *BlockIndex) RaiseValidity(node *BlockNode, upTo FullValidity) bool {
	bi.Lock()
	changed := node.RaiseValidity(upTo)
	if changed {
		bi.modified[node] = struct{}{}
	}
	bi.Unlock()
	return changed
}

// RaisePartialValidity raises the partial validity level of the passed node and
// marks it modified when the level changed.
//
// This function is safe for concurrent access.
func (bi *BlockIndex) RaisePartialValidity(node *BlockNode, upTo PartialValidity) bool {
	bi.Lock()
	changed := node.RaisePartialValidity(upTo)
	if changed {
		bi.modified[node] = struct{}{}
	}
	bi.Unlock()
	return changed
}

// AcceptBlockData records that the block data for the passed node is available
// and assigns the node the next sequence id.  Nodes that already have data
// keep their sequence id.
//
// This function is safe for concurrent access.
func (bi *BlockIndex) AcceptBlockData(node *BlockNode) {
	bi.Lock()
	if !node.status.HaveData {
		node.status.HaveData = true
		node.sequenceID = bi.nextSequenceID
		bi.nextSequenceID++
		bi.modified[node] = struct{}{}

		if !node.status.KnownInvalid() && workSorterLess(bi.bestHeader, node) {
			bi.bestHeader = node
		}
	}
	bi.Unlock()
}

// BestHeader returns the header with the most cumulative work that is NOT
// known to be invalid.
//
// This function is safe for concurrent access.
func (bi *BlockIndex) BestHeader() *BlockNode {
	bi.RLock()
	bestHeader := bi.bestHeader
	bi.RUnlock()
	return bestHeader
}

// BestInvalid returns the block with the most cumulative work that is known to
// be invalid or nil when there is none.
//
// This function is safe for concurrent access.
func (bi *BlockIndex) BestInvalid() *BlockNode {
	bi.RLock()
	bestInvalid := bi.bestInvalid
	bi.RUnlock()
	return bestInvalid
}

// maybeUpdateBestInvalid potentially updates the best known invalid block, as
// determined by having the most cumulative work, by comparing the passed block
// node, which must have already been determined to be invalid, against the
// current one.
//
// This function MUST be called with the block index lock held (for writes).
func (bi *BlockIndex) maybeUpdateBestInvalid(invalidNode *BlockNode) {
	if bi.bestInvalid == nil || workSorterLess(bi.bestInvalid, invalidNode) {
		bi.bestInvalid = invalidNode
	}
}

// maybeUpdateBestHeaderForTip potentially updates the best known header that is
// not known to be invalid, as determined by having the most cumulative work.
// It works by walking backwards from the provided tip so long as those headers
// have more work than the current best header and selecting the first one that
// is not known to be invalid.
//
// This function MUST be called with the block index lock held (for writes).
func (bi *BlockIndex) maybeUpdateBestHeaderForTip(tip *BlockNode) {
	for n := tip; n != nil && workSorterLess(bi.bestHeader, n); n = n.parent {
		if !n.status.KnownInvalid() {
			bi.bestHeader = n
			return
		}
	}
}

// MarkBlockFailedValidation marks the passed node as having failed validation
// and then marks all of its descendants (if any) as having a failed ancestor.
// The genesis block can't be marked, and neither can nodes that are not part
// of the index, such as the copies owned by a clone chain.
//
// This function is safe for concurrent access.
func (bi *BlockIndex) MarkBlockFailedValidation(node *BlockNode) error {
	if node.parent == nil {
		str := fmt.Sprintf("block %v is the genesis block", node.hash)
		return ruleError(ErrInvalidateGenesisBlock, str)
	}

	bi.Lock()
	defer bi.Unlock()

	if bi.index[node.hash] != node {
		str := fmt.Sprintf("block %v is not in the block index", node.hash)
		return ruleError(ErrUnknownBlock, str)
	}

	node.status.Failed = true
	bi.modified[node] = struct{}{}
	bi.maybeUpdateBestInvalid(node)

	// Mark all descendants of the failed block as having a failed ancestor.
	//
	// Every descendant lies between the failed block and a chain tip that has
	// the failed block as an ancestor, so walk back from each such tip.  Blocks
	// that already have a failed ancestor are skipped, but the walk continues
	// past them since an earlier block may have been marked first.
	bi.forEachChainTip(func(tip *BlockNode) error {
		if tip.height <= node.height || tip.Ancestor(node.height) != node {
			return nil
		}

		bi.maybeUpdateBestInvalid(tip)
		for n := tip; n != node; n = n.parent {
			if n.status.FailedChild {
				continue
			}
			n.status.FailedChild = true
			bi.modified[n] = struct{}{}
		}
		return nil
	})

	// Update the best header if the current one is now invalid which will be
	// the case when the best header is a descendant of the failed block.
	if bi.bestHeader.status.KnownInvalid() {
		// Use the first ancestor of the failed block that is not known to be
		// invalid as the lower bound for the best header.
		n := node.parent
		for n != nil && n.status.KnownInvalid() {
			n = n.parent
		}
		bi.bestHeader = n

		// All chain tips must be considered since lower heights may have more
		// work.
		bi.forEachChainTip(func(tip *BlockNode) error {
			if tip.Ancestor(node.height) == node {
				return nil
			}
			bi.maybeUpdateBestHeaderForTip(tip)
			return nil
		})
	}

	log.Infof("Marked block %v (height %d) as failed", node.hash, node.height)
	return nil
}

// Flush writes all of the modified block nodes to the passed writer, ordered
// by height, and clears the set of modified nodes if it succeeds.
//
// This function is safe for concurrent access.
func (bi *BlockIndex) Flush(w IndexWriter) error {
	bi.Lock()
	defer bi.Unlock()

	// Nothing to flush if there are no modified nodes.
	if len(bi.modified) == 0 {
		return nil
	}

	entries := make([]IndexEntry, 0, len(bi.modified))
	for node := range bi.modified {
		entries = append(entries, IndexEntry{
			Header: node.Header(),
			Height: node.height,
			Status: node.status,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Height < entries[j].Height
	})
	if err := w.PutEntries(entries); err != nil {
		return err
	}

	log.Debugf("Flushed %d block index entries", len(entries))
	bi.modified = make(map[*BlockNode]struct{})
	return nil
}
