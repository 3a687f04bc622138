// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"math"

	"github.com/centure/chainindex/chaincfg"
	"github.com/centure/chainindex/primitives"
	"github.com/decred/dcrd/math/uint256"
)

// CalcBlockProof returns the amount of work a block with the provided
// difficulty bits represents.  It is zero for bits that encode a negative,
// overflowing or zero target.
func CalcBlockProof(bits uint32) uint256.Uint256 {
	return primitives.CalcWork(bits)
}

// BlockProof returns the amount of work the block of the passed node
// represents on its own.
func BlockProof(node *BlockNode) uint256.Uint256 {
	return primitives.CalcWork(node.bits)
}

// BlockProofEquivalentTime returns the time, in seconds, it would take to
// produce the work difference between the to and from nodes at the difficulty
// of the tip node and the target block spacing.  The result is negative when
// from has more work than to and saturates at the int64 limits.  A tip whose
// bits encode no work yields the saturated value.
func BlockProofEquivalentTime(to, from, tip *BlockNode, params *chaincfg.Params) int64 {
	var r uint256.Uint256
	sign := int64(1)
	if to.workSum.Gt(&from.workSum) {
		r.Set(&to.workSum).Sub(&from.workSum)
	} else {
		r.Set(&from.workSum).Sub(&to.workSum)
		sign = -1
	}
	if r.IsZero() {
		return 0
	}

	tipProof := BlockProof(tip)
	if tipProof.IsZero() {
		return sign * math.MaxInt64
	}

	spacing := uint64(params.TargetTimePerBlock.Seconds())
	r.MulUint64(spacing).Div(&tipProof)
	if r.BitLen() > 63 {
		return sign * math.MaxInt64
	}
	return sign * int64(r.Uint64())
}

// LastCommonAncestor returns the most recent node that is an ancestor of, or
// equal to, both passed nodes.  Every branch of the block tree meets at the
// genesis block, so nodes that never meet indicate a corrupt tree.
func LastCommonAncestor(a, b *BlockNode) *BlockNode {
	if a.height > b.height {
		a = a.Ancestor(b.height)
	} else if b.height > a.height {
		b = b.Ancestor(a.height)
	}

	for a != b && a != nil && b != nil {
		a = a.parent
		b = b.parent
	}
	if a != b || a == nil {
		panicf("blocks do not share a common ancestor")
	}
	return a
}
