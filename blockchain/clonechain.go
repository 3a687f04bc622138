// Copyright (c) 2018-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"sync"
)

// CloneChain is a speculative copy of the upper part of a Chain.  Every node
// from the clone height up to the tip of the origin is copied so that the
// clone can be reorganized, and the copies mutated, without affecting the
// origin.  Heights below the clone height are served by the origin and the
// nodes there are shared, never modified.
//
// A clone can only be made of a Chain.  Cloning a clone is not supported.
type CloneChain struct {
	mtx       sync.RWMutex
	origin    *Chain
	cloneFrom int64
	nodes     []*BlockNode
	owned     map[*BlockNode]struct{}
	released  bool
}

// NewCloneChain returns a clone of the passed chain from the provided height
// up to its tip.
//
// When retain is not nil, the second return value is the node of the clone
// that corresponds to it:
//
//   - the copy of retain when it is part of the copied range of the origin
//   - retain itself when it is part of the origin below the clone height
//   - otherwise a copy of retain whose predecessors are copied until they join
//     the clone, which allows the clone tip to be moved to it with SetTip
//
// The clone height must be within the origin.
func NewCloneChain(origin *Chain, cloneFrom int64, retain *BlockNode) (*CloneChain, *BlockNode) {
	origin.mtx.RLock()
	defer origin.mtx.RUnlock()

	originHeight := origin.height()
	if cloneFrom < 0 || cloneFrom > originHeight {
		panicf("clone height %d is outside of the origin chain [0, %d]",
			cloneFrom, originHeight)
	}

	c := &CloneChain{
		origin:    origin,
		cloneFrom: cloneFrom,
		nodes:     make([]*BlockNode, 0, originHeight+1-cloneFrom),
		owned:     make(map[*BlockNode]struct{}, originHeight+1-cloneFrom),
	}

	// Copy the nodes and link each copy to the previous one.  The first copy
	// keeps the parent it shares with the origin.
	var retainOut, prev *BlockNode
	for height := cloneFrom; height <= originHeight; height++ {
		original := origin.nodes[height]
		n := original.clone()
		if prev != nil {
			n.parent = prev
		}
		n.skip = nil
		n.BuildSkip()
		c.nodes = append(c.nodes, n)
		c.owned[n] = struct{}{}
		prev = n

		if original == retain {
			retainOut = n
		}
	}

	// The retained node is shared when it is part of the origin below the
	// copied range.
	if retainOut == nil && origin.contains(retain) {
		retainOut = retain
	}
	if retain != nil && retainOut == nil {
		retainOut = c.cloneBranch(retain)
	}

	log.Tracef("Cloned chain at height %d from %d (%d nodes)", originHeight,
		cloneFrom, len(c.nodes))
	return c, retainOut
}

// cloneBranch copies the passed node along with the predecessors that are not
// part of the clone and links the copies to the clone.
//
// This function MUST be called with the origin mutex locked (for reads).
func (c *CloneChain) cloneBranch(node *BlockNode) *BlockNode {
	tipHeight := c.cloneFrom + int64(len(c.nodes)) - 1

	first := node.clone()
	c.owned[first] = struct{}{}
	branch := []*BlockNode{first}
	for n := first; ; {
		parent := n.parent
		if parent == nil {
			panicf("retained block %v does not connect to the cloned chain",
				node)
		}

		// Join the clone at the first predecessor with the same content as
		// the clone at its height.  Below the clone height the nodes are
		// shared with the origin.
		if parent.height < c.cloneFrom {
			if c.origin.contains(parent) {
				break
			}
		} else if parent.height <= tipHeight {
			joined := c.nodes[parent.height-c.cloneFrom]
			if joined.hash == parent.hash {
				n.parent = joined
				break
			}
		}

		parentCopy := parent.clone()
		c.owned[parentCopy] = struct{}{}
		n.parent = parentCopy
		branch = append(branch, parentCopy)
		n = parentCopy
	}

	// Rebuild the skip links of the copies from the lowest one up so they
	// resolve through the clone.
	for i := len(branch) - 1; i >= 0; i-- {
		branch[i].skip = nil
		branch[i].BuildSkip()
	}
	return first
}

// Origin returns the chain the clone was made from.
func (c *CloneChain) Origin() *Chain {
	return c.origin
}

// CloneFrom returns the lowest height that was copied.
func (c *CloneChain) CloneFrom() int64 {
	return c.cloneFrom
}

// height returns the height of the clone tip.
//
// This function MUST be called with the clone mutex locked (for reads).
func (c *CloneChain) height() int64 {
	return c.cloneFrom + int64(len(c.nodes)) - 1
}

// Height returns the height of the clone tip.
//
// This function is safe for concurrent access.
func (c *CloneChain) Height() int64 {
	c.mtx.RLock()
	height := c.height()
	c.mtx.RUnlock()
	return height
}

// nodeByHeight returns the node of the clone at the provided height.  Heights
// below the clone height are served by the origin.
//
// This function MUST be called with the clone mutex locked (for reads).
func (c *CloneChain) nodeByHeight(height int64) *BlockNode {
	if height < c.cloneFrom {
		return c.origin.NodeByHeight(height)
	}
	if height > c.height() {
		return nil
	}
	return c.nodes[height-c.cloneFrom]
}

// NodeByHeight returns the node of the clone at the provided height.  Heights
// below the clone height are served by the origin.
//
// This function is safe for concurrent access.
func (c *CloneChain) NodeByHeight(height int64) *BlockNode {
	c.mtx.RLock()
	node := c.nodeByHeight(height)
	c.mtx.RUnlock()
	return node
}

// contains returns whether the clone contains the passed node.
//
// This function MUST be called with the clone mutex locked (for reads).
func (c *CloneChain) contains(node *BlockNode) bool {
	return node != nil && c.nodeByHeight(node.height) == node
}

// Contains returns whether the clone contains the passed node.
//
// This function is safe for concurrent access.
func (c *CloneChain) Contains(node *BlockNode) bool {
	c.mtx.RLock()
	contains := c.contains(node)
	c.mtx.RUnlock()
	return contains
}

// Owns returns whether the passed node is a copy owned by the clone.
//
// This function is safe for concurrent access.
func (c *CloneChain) Owns(node *BlockNode) bool {
	c.mtx.RLock()
	_, ok := c.owned[node]
	c.mtx.RUnlock()
	return ok
}

// Genesis returns the genesis block of the origin.
//
// This function is safe for concurrent access.
func (c *CloneChain) Genesis() *BlockNode {
	c.mtx.RLock()
	genesis := c.nodeByHeight(0)
	c.mtx.RUnlock()
	return genesis
}

// Tip returns the clone tip.
//
// This function is safe for concurrent access.
func (c *CloneChain) Tip() *BlockNode {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	if c.released {
		return nil
	}
	return c.nodeByHeight(c.height())
}

// SetTip makes the branch ending at the provided node the clone.  Only heights
// at or above the clone height are changed, so the node must not be below it
// and its branch must join the origin right below the clone height.
//
// This function is safe for concurrent access.
func (c *CloneChain) SetTip(node *BlockNode) {
	if node == nil || node.height < c.cloneFrom {
		panicf("clone chain tip must be at or above the clone height %d",
			c.cloneFrom)
	}
	if c.cloneFrom > 0 {
		base := node.Ancestor(c.cloneFrom - 1)
		if base == nil || c.origin.NodeByHeight(c.cloneFrom-1) != base {
			panicf("clone chain tip %v forks from the origin below the "+
				"clone height %d", node, c.cloneFrom)
		}
	}

	c.mtx.Lock()
	needed := node.height - c.cloneFrom + 1
	if int64(cap(c.nodes)) < needed {
		nodes := make([]*BlockNode, needed)
		copy(nodes, c.nodes)
		c.nodes = nodes
	} else {
		prevLen := int64(len(c.nodes))
		c.nodes = c.nodes[0:needed]
		for i := prevLen; i < needed; i++ {
			c.nodes[i] = nil
		}
	}

	for node != nil && node.height >= c.cloneFrom &&
		c.nodes[node.height-c.cloneFrom] != node {

		c.nodes[node.height-c.cloneFrom] = node
		node = node.parent
	}
	c.released = false
	c.mtx.Unlock()
}

// FindFork returns the final common block between the provided node and the
// clone.
//
// This function is safe for concurrent access.
func (c *CloneChain) FindFork(node *BlockNode) *BlockNode {
	c.mtx.RLock()
	fork := findFork(c, node)
	c.mtx.RUnlock()
	return fork
}

// BlockLocator returns a block locator for the passed block node, or the clone
// tip when it is nil.
//
// This function is safe for concurrent access.
func (c *CloneChain) BlockLocator(node *BlockNode, scheme HashScheme) BlockLocator {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	if node == nil {
		if c.released {
			return nil
		}
		node = c.nodeByHeight(c.height())
	}
	return buildLocator(c, node, 0, scheme)
}

// Release drops every node owned by the clone and empties it.  Nodes shared
// with the origin are left untouched.  Owned nodes, including a retained copy
// returned by NewCloneChain, must not be used afterwards.  A released clone
// has no tip and an empty locator, while heights below the clone height are
// still served by the origin.
//
// This function is safe for concurrent access.
func (c *CloneChain) Release() {
	c.mtx.Lock()
	for node := range c.owned {
		node.parent = nil
		node.skip = nil
	}
	c.owned = make(map[*BlockNode]struct{})
	c.nodes = nil
	c.released = true
	c.mtx.Unlock()
}
