// Copyright (c) 2017 The btcsuite developers
// Copyright (c) 2018-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"sort"
	"sync"
)

// approxNodesPerWeek is an approximation of the number of new blocks there are
// in a week on average.
const approxNodesPerWeek = 24 * 24 * 7

// ChainView is implemented by the flat views of a single branch of the block
// tree: Chain, PartialChain and CloneChain.
type ChainView interface {
	// Genesis returns the lowest node of the view.
	Genesis() *BlockNode

	// Tip returns the highest node of the view.
	Tip() *BlockNode

	// Height returns the height of the tip.
	Height() int64

	// NodeByHeight returns the node at the provided height or nil.
	NodeByHeight(height int64) *BlockNode

	// Contains returns whether the node is part of the view.
	Contains(node *BlockNode) bool

	// SetTip makes the branch ending at the provided node the view.
	SetTip(node *BlockNode)

	// FindFork returns the last node the view shares with the branch ending
	// at the provided node.
	FindFork(node *BlockNode) *BlockNode

	// BlockLocator returns a locator for the provided node.
	BlockLocator(node *BlockNode, scheme HashScheme) BlockLocator
}

// chainAccessor provides the height indexed access the algorithms shared by
// every view need.  Implementations are called with the view lock held.
type chainAccessor interface {
	nodeByHeight(height int64) *BlockNode
	contains(node *BlockNode) bool
	height() int64
}

// findFork returns the final common block between the provided node and the
// passed view.  It will return nil if there is no common block.
func findFork(c chainAccessor, node *BlockNode) *BlockNode {
	// No fork point for node that doesn't exist.
	if node == nil {
		return nil
	}

	// The common node can't be past the end of the view, so skip straight to
	// the ancestor at the tip height.
	chainHeight := c.height()
	if node.height > chainHeight {
		node = node.Ancestor(chainHeight)
	}

	// Walk backwards as long as the view does not contain the node.
	for node != nil && !c.contains(node) {
		node = node.parent
	}
	return node
}

// Chain provides a flat view of a specific branch of the block tree from its
// tip back to the genesis block and provides various convenience functions for
// comparing chains.  Entry i is the node at height i.
//
// For example, assume a block chain with a side chain as depicted below:
//
//	genesis -> 1 -> 2 -> 3 -> 4  -> 5 ->  6  -> 7  -> 8
//	                      \-> 4a -> 5a -> 6a
//
// The chain view for the branch ending in 6a consists of:
//
//	genesis -> 1 -> 2 -> 3 -> 4a -> 5a -> 6a
type Chain struct {
	mtx   sync.RWMutex
	nodes []*BlockNode
}

// NewChain returns a new chain view for the given tip block node.  Passing nil
// as the tip will result in a chain view that is not initialized.  The tip can
// be updated at any time via SetTip.
func NewChain(tip *BlockNode) *Chain {
	var c Chain
	c.setTip(tip)
	return &c
}

// genesis returns the genesis block for the chain view.
//
// This function MUST be called with the view mutex locked (for reads).
func (c *Chain) genesis() *BlockNode {
	if len(c.nodes) == 0 {
		return nil
	}
	return c.nodes[0]
}

// Genesis returns the genesis block for the chain view.
//
// This function is safe for concurrent access.
func (c *Chain) Genesis() *BlockNode {
	c.mtx.RLock()
	genesis := c.genesis()
	c.mtx.RUnlock()
	return genesis
}

// tip returns the current tip block node for the chain view.  It will return
// nil if there is no tip.
//
// This function MUST be called with the view mutex locked (for reads).
func (c *Chain) tip() *BlockNode {
	if len(c.nodes) == 0 {
		return nil
	}
	return c.nodes[len(c.nodes)-1]
}

// Tip returns the current tip block node for the chain view.  It will return
// nil if there is no tip.
//
// This function is safe for concurrent access.
func (c *Chain) Tip() *BlockNode {
	c.mtx.RLock()
	tip := c.tip()
	c.mtx.RUnlock()
	return tip
}

// TipPrev returns the parent of the current tip or nil when the view holds
// fewer than two nodes.
//
// This function is safe for concurrent access.
func (c *Chain) TipPrev() *BlockNode {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	if len(c.nodes) < 2 {
		return nil
	}
	return c.nodes[len(c.nodes)-2]
}

// setTip sets the chain view to use the provided block node as the current tip
// and ensures the view is consistent by populating it with the nodes obtained
// by walking backwards all the way to genesis block as necessary.  Further
// calls will only perform the minimum work needed, so switching between chain
// tips is efficient.
//
// This function MUST be called with the view mutex locked (for writes).
func (c *Chain) setTip(node *BlockNode) {
	if node == nil {
		// Keep the backing array around for potential future use.
		c.nodes = c.nodes[:0]
		return
	}

	// Resize the slice to the provided tip height.  New arrays are created
	// with additional capacity so that extending the chain only reallocates
	// about once a week.
	needed := node.height + 1
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

	for node != nil && c.nodes[node.height] != node {
		c.nodes[node.height] = node
		node = node.parent
	}
}

// SetTip sets the chain view to use the provided block node as the current tip
// and ensures the view is consistent by populating it with the nodes obtained
// by walking backwards all the way to genesis block as necessary.  Further
// calls will only perform the minimum work needed, so switching between chain
// tips is efficient.
//
// This function is safe for concurrent access.
func (c *Chain) SetTip(node *BlockNode) {
	c.mtx.Lock()
	c.setTip(node)
	c.mtx.Unlock()
}

// height returns the height of the tip of the chain view.  It will return -1 if
// there is no tip.
//
// This function MUST be called with the view mutex locked (for reads).
func (c *Chain) height() int64 {
	return int64(len(c.nodes) - 1)
}

// Height returns the height of the tip of the chain view.  It will return -1 if
// there is no tip (which only happens if the chain view has not been
// initialized).
//
// This function is safe for concurrent access.
func (c *Chain) Height() int64 {
	c.mtx.RLock()
	height := c.height()
	c.mtx.RUnlock()
	return height
}

// nodeByHeight returns the block node at the specified height.  Nil will be
// returned if the height does not exist.
//
// This function MUST be called with the view mutex locked (for reads).
func (c *Chain) nodeByHeight(height int64) *BlockNode {
	if height < 0 || height >= int64(len(c.nodes)) {
		return nil
	}
	return c.nodes[height]
}

// NodeByHeight returns the block node at the specified height.  Nil will be
// returned if the height does not exist.
//
// This function is safe for concurrent access.
func (c *Chain) NodeByHeight(height int64) *BlockNode {
	c.mtx.RLock()
	node := c.nodeByHeight(height)
	c.mtx.RUnlock()
	return node
}

// Equals returns whether or not two chain views are the same.  Uninitialized
// views (tip set to nil) are considered equal.
//
// This function is safe for concurrent access.
func (c *Chain) Equals(other *Chain) bool {
	if c == other {
		return true
	}

	c.mtx.RLock()
	other.mtx.RLock()
	equals := len(c.nodes) == len(other.nodes) && c.tip() == other.tip()
	other.mtx.RUnlock()
	c.mtx.RUnlock()
	return equals
}

// contains returns whether or not the chain view contains the passed block
// node.
//
// This function MUST be called with the view mutex locked (for reads).
func (c *Chain) contains(node *BlockNode) bool {
	return node != nil && c.nodeByHeight(node.height) == node
}

// Contains returns whether or not the chain view contains the passed block
// node.
//
// This function is safe for concurrent access.
func (c *Chain) Contains(node *BlockNode) bool {
	c.mtx.RLock()
	contains := c.contains(node)
	c.mtx.RUnlock()
	return contains
}

// Next returns the successor to the provided node for the chain view.  It will
// return nil if there is no successor or the provided node is not part of the
// view.
//
// This function is safe for concurrent access.
func (c *Chain) Next(node *BlockNode) *BlockNode {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	if !c.contains(node) {
		return nil
	}
	return c.nodeByHeight(node.height + 1)
}

// Prev returns the predecessor of the provided node for the chain view.  It
// will return nil if the node is the genesis block or is not part of the view.
//
// This function is safe for concurrent access.
func (c *Chain) Prev(node *BlockNode) *BlockNode {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	if !c.contains(node) {
		return nil
	}
	return c.nodeByHeight(node.height - 1)
}

// FindFork returns the final common block between the provided node and the
// the chain view.  It will return nil if there is no common block.
//
// For example, assume a block chain with a side chain as depicted below:
//
//	genesis -> 1 -> 2 -> ... -> 5 -> 6  -> 7  -> 8
//	                             \-> 6a -> 7a
//
// Further, assume the view is for the longer chain depicted above.  Invoking
// this function with block node 7a would return block node 5 while invoking it
// with block node 7 would return itself since it is already part of the branch
// formed by the view.
//
// This function is safe for concurrent access.
func (c *Chain) FindFork(node *BlockNode) *BlockNode {
	c.mtx.RLock()
	fork := findFork(c, node)
	c.mtx.RUnlock()
	return fork
}

// BlockLocator returns a block locator for the passed block node using the
// requested hash scheme.  The passed node can be nil in which case the block
// locator for the current tip associated with the view will be returned.
//
// See the BlockLocator type for details on the algorithm used to create a
// block locator.
//
// This function is safe for concurrent access.
func (c *Chain) BlockLocator(node *BlockNode, scheme HashScheme) BlockLocator {
	c.mtx.RLock()
	if node == nil {
		node = c.tip()
	}
	locator := buildLocator(c, node, 0, scheme)
	c.mtx.RUnlock()
	return locator
}

// FindEarliestAtLeast returns the first node of the view whose maximum time,
// which is the highest block time of it and all of its ancestors, is at or
// after the provided unix time.  It returns nil when no such node exists.
//
// This function is safe for concurrent access.
func (c *Chain) FindEarliestAtLeast(timestamp int64) *BlockNode {
	c.mtx.RLock()
	defer c.mtx.RUnlock()

	i := sort.Search(len(c.nodes), func(i int) bool {
		return c.nodes[i].timeMax >= timestamp
	})
	if i == len(c.nodes) {
		return nil
	}
	return c.nodes[i]
}

// FindYoungest returns the highest node of the view for which the provided
// function returns true.  The function must be monotonic along the view: false
// for every node above some height and true for every node at or below it.
// It returns nil when the function is false for every node.
//
// This function is safe for concurrent access.
func (c *Chain) FindYoungest(match func(node *BlockNode) bool) *BlockNode {
	c.mtx.RLock()
	defer c.mtx.RUnlock()

	// Search the view from the tip down.
	n := len(c.nodes)
	i := sort.Search(n, func(i int) bool {
		return match(c.nodes[n-1-i])
	})
	if i == n {
		return nil
	}
	return c.nodes[n-1-i]
}
