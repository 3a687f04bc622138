// Copyright (c) 2018-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"sort"
	"sync"
)

// BlockFilterRange is an inclusive range of block heights.
type BlockFilterRange struct {
	Start uint64
	End   uint64
}

// PartialChain is a chain view that only tracks heights from a fixed offset
// upward.  It is used for header-first synchronization where only a recent
// suffix of the chain is of interest.  Entry i of the view is the node at
// height offset+i.
type PartialChain struct {
	mtx          sync.RWMutex
	nodes        []*BlockNode
	heightOffset int64

	// filterMtx protects filterRanges independently of the view.
	filterMtx    sync.Mutex
	filterRanges []BlockFilterRange
}

// NewPartialChain returns an empty partial chain starting at the provided
// height.
func NewPartialChain(heightOffset int64) *PartialChain {
	return &PartialChain{heightOffset: heightOffset}
}

// SetHeightOffset changes the first height tracked by the view.  It is only
// allowed while the view is empty.
//
// This function is safe for concurrent access.
func (c *PartialChain) SetHeightOffset(offset int64) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if len(c.nodes) != 0 {
		panicf("height offset of a non-empty partial chain changed from %d "+
			"to %d", c.heightOffset, offset)
	}
	c.heightOffset = offset
}

// HeightOffset returns the first height tracked by the view.
//
// This function is safe for concurrent access.
func (c *PartialChain) HeightOffset() int64 {
	c.mtx.RLock()
	offset := c.heightOffset
	c.mtx.RUnlock()
	return offset
}

// Length returns the number of nodes in the view.
//
// This function is safe for concurrent access.
func (c *PartialChain) Length() int {
	c.mtx.RLock()
	length := len(c.nodes)
	c.mtx.RUnlock()
	return length
}

// height returns the height of the tip of the view, which is one less than
// the offset when the view is empty.
//
// This function MUST be called with the view mutex locked (for reads).
func (c *PartialChain) height() int64 {
	return c.heightOffset + int64(len(c.nodes)) - 1
}

// Height returns the height of the tip of the view, which is one less than the
// offset when the view is empty.
//
// This function is safe for concurrent access.
func (c *PartialChain) Height() int64 {
	c.mtx.RLock()
	height := c.height()
	c.mtx.RUnlock()
	return height
}

// nodeByHeight returns the node at the provided height or nil when the height
// is below the offset or above the tip.
//
// This function MUST be called with the view mutex locked (for reads).
func (c *PartialChain) nodeByHeight(height int64) *BlockNode {
	if height < c.heightOffset || height > c.height() {
		return nil
	}
	return c.nodes[height-c.heightOffset]
}

// NodeByHeight returns the node at the provided height or nil when the height
// is below the offset or above the tip.
//
// This function is safe for concurrent access.
func (c *PartialChain) NodeByHeight(height int64) *BlockNode {
	c.mtx.RLock()
	node := c.nodeByHeight(height)
	c.mtx.RUnlock()
	return node
}

// contains returns whether the view contains the passed node.
//
// This function MUST be called with the view mutex locked (for reads).
func (c *PartialChain) contains(node *BlockNode) bool {
	return node != nil && c.nodeByHeight(node.height) == node
}

// Contains returns whether the view contains the passed node.
//
// This function is safe for concurrent access.
func (c *PartialChain) Contains(node *BlockNode) bool {
	c.mtx.RLock()
	contains := c.contains(node)
	c.mtx.RUnlock()
	return contains
}

// Genesis returns the node at the offset height or nil when the view is empty.
//
// This function is safe for concurrent access.
func (c *PartialChain) Genesis() *BlockNode {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	if len(c.nodes) == 0 {
		return nil
	}
	return c.nodes[0]
}

// Tip returns the highest node of the view or nil when it is empty.
//
// This function is safe for concurrent access.
func (c *PartialChain) Tip() *BlockNode {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	if len(c.nodes) == 0 {
		return nil
	}
	return c.nodes[len(c.nodes)-1]
}

// SetTip makes the branch ending at the provided node the view.  Only the part
// of the branch at or above the offset is tracked.  Passing nil empties the
// view and passing a node below the offset is not allowed.
//
// This function is safe for concurrent access.
func (c *PartialChain) SetTip(node *BlockNode) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if node == nil {
		c.nodes = nil
		return
	}
	if node.height < c.heightOffset {
		panicf("partial chain tip %v is below the height offset %d", node,
			c.heightOffset)
	}

	needed := node.height - c.heightOffset + 1
	if int64(cap(c.nodes)) < needed {
		nodes := make([]*BlockNode, needed, needed+approxNodesPerWeek)
		copy(nodes, c.nodes)
		c.nodes = nodes
	} else {
		prevLen := int64(len(c.nodes))
		c.nodes = c.nodes[0:needed]
		for i := prevLen; i < needed; i++ {
			c.nodes[i] = nil
		}
	}

	for node != nil && node.height >= c.heightOffset &&
		c.nodes[node.height-c.heightOffset] != node {

		c.nodes[node.height-c.heightOffset] = node
		node = node.parent
	}
}

// FindFork returns the final common block between the provided node and the
// view.  It returns nil when the branch of the node leaves the view below its
// offset.
//
// This function is safe for concurrent access.
func (c *PartialChain) FindFork(node *BlockNode) *BlockNode {
	c.mtx.RLock()
	fork := findFork(c, node)
	c.mtx.RUnlock()
	return fork
}

// BlockLocator returns a block locator for the passed block node, or the tip
// when it is nil.  The locator ends at the offset height rather than at the
// genesis block.
//
// This function is safe for concurrent access.
func (c *PartialChain) BlockLocator(node *BlockNode, scheme HashScheme) BlockLocator {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	if node == nil {
		if len(c.nodes) == 0 {
			return nil
		}
		node = c.nodes[len(c.nodes)-1]
	}
	return buildLocator(c, node, c.heightOffset, scheme)
}

// LowerBound returns the height of the first node in [beginHeight, endHeight)
// for which the provided function returns false, or -1 when it returns true
// for every node in the range.  The function must be true for a prefix of the
// range and false for the rest.  Both heights must be tracked by the view,
// with endHeight allowed to be one past the tip.
//
// This function is safe for concurrent access.
func (c *PartialChain) LowerBound(beginHeight, endHeight int64, before func(node *BlockNode) bool) int64 {
	c.mtx.RLock()
	defer c.mtx.RUnlock()

	if beginHeight < c.heightOffset || endHeight > c.height()+1 ||
		beginHeight > endHeight {

		panicf("lower bound range [%d, %d) is outside of the partial chain "+
			"[%d, %d]", beginHeight, endHeight, c.heightOffset, c.height())
	}

	nodes := c.nodes[beginHeight-c.heightOffset : endHeight-c.heightOffset]
	i := sort.Search(len(nodes), func(i int) bool {
		return !before(nodes[i])
	})
	if i == len(nodes) {
		return -1
	}
	return nodes[i].height
}

// SetBlockFilterRanges replaces the block filter ranges of interest.
//
// This function is safe for concurrent access.
func (c *PartialChain) SetBlockFilterRanges(ranges []BlockFilterRange) {
	c.filterMtx.Lock()
	c.filterRanges = append([]BlockFilterRange(nil), ranges...)
	c.filterMtx.Unlock()
}

// AddBlockFilterRange appends a block filter range of interest.
//
// This function is safe for concurrent access.
func (c *PartialChain) AddBlockFilterRange(r BlockFilterRange) {
	c.filterMtx.Lock()
	c.filterRanges = append(c.filterRanges, r)
	c.filterMtx.Unlock()
}

// BlockFilterRanges returns a copy of the block filter ranges of interest.
//
// This function is safe for concurrent access.
func (c *PartialChain) BlockFilterRanges() []BlockFilterRange {
	c.filterMtx.Lock()
	ranges := append([]BlockFilterRange(nil), c.filterRanges...)
	c.filterMtx.Unlock()
	return ranges
}
