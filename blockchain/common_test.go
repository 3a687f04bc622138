// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	mrand "math/rand"

	"github.com/centure/chainindex/chaincfg"
	"github.com/centure/chainindex/primitives"
	"github.com/decred/dcrd/chaincfg/chainhash"
)

// testNoncePrng provides a deterministic prng for the nonce in generated fake
// nodes.  The ensures that the nodes have unique hashes.
var testNoncePrng = mrand.New(mrand.NewSource(0))

// testGenesisTime is the timestamp given to fake nodes without a parent.
const testGenesisTime = 1538524800

// mustParseHash converts the passed big-endian hex string into a
// chainhash.Hash and will panic if there is an error.  It only differs from the
// one available in chainhash in that it will panic so errors in the source code
// be detected.  It will only (and must only) be called with hard-coded, and
// therefore known good, hashes.
func mustParseHash(s string) *chainhash.Hash {
	hash, err := chainhash.NewHashFromStr(s)
	if err != nil {
		panic("invalid hash in source file: " + s)
	}
	return hash
}

// newFakeHeader returns a header that connects to the passed parent, which can
// be nil, with the provided fields populated and fake values for the others.
func newFakeHeader(parent *BlockNode, bits uint32, timestamp int64) *primitives.BlockHeader {
	var prevHash chainhash.Hash
	if parent != nil {
		prevHash = parent.hash
	}
	return &primitives.BlockHeader{
		Version:   1,
		PrevBlock: prevHash,
		Timestamp: uint32(timestamp),
		Bits:      bits,
		Nonce:     testNoncePrng.Uint32(),
	}
}

// newFakeNode creates a block node connected to the passed parent with the
// provided fields populated and fake values for the other fields.
func newFakeNode(parent *BlockNode, bits uint32, timestamp int64) *BlockNode {
	node := NewBlockNode(newFakeHeader(parent, bits, timestamp), parent)
	node.status = BlockStatus{Validity: ValidityScripts, HaveData: true}
	return node
}

// chainedFakeNodes returns the specified number of nodes constructed such that
// each subsequent node points to the previous one to create a chain.  The first
// node will point to the passed parent which can be nil if desired.
func chainedFakeNodes(parent *BlockNode, numNodes int) []*BlockNode {
	nodes := make([]*BlockNode, numNodes)
	tip := parent
	blockTime := int64(testGenesisTime)
	if tip != nil {
		blockTime = tip.timestamp
	}
	for i := 0; i < numNodes; i++ {
		blockTime++
		node := newFakeNode(tip, 0x207fffff, blockTime)
		tip = node

		nodes[i] = node
	}
	return nodes
}

// chainedFakeSkipListNodes returns the specified number of nodes populated with
// only the fields specifically needed to test the skip list functionality and
// constructed such that each subsequent node points to the previous one to
// create a chain.  The first node will point to the passed parent which can be
// nil if desired.
//
// This is used over the chainedFakeNodes function for skip list testing because
// the skip list tests involve large numbers of nodes which take much longer to
// create with all of the other fields populated by said function.
func chainedFakeSkipListNodes(parent *BlockNode, numNodes int) []*BlockNode {
	nodes := make([]*BlockNode, numNodes)
	for i := 0; i < numNodes; i++ {
		node := &BlockNode{parent: parent, height: int64(i)}
		if parent != nil {
			node.skip = nodes[SkipHeight(int64(i))]
		}
		parent = node

		nodes[i] = node
	}
	return nodes
}

// branchTip is a convenience function to grab the tip of a chain of block nodes
// created via chainedFakeNodes.
func branchTip(nodes []*BlockNode) *BlockNode {
	return nodes[len(nodes)-1]
}

// newTestIndex returns a block index for the regression test network along
// with the headers of a chain of the passed length added to it.  The returned
// slice includes the genesis node at index 0.
func newTestIndex(numNodes int) (*BlockIndex, []*BlockNode) {
	params := chaincfg.RegNetParams()
	bi := NewBlockIndex(params)
	nodes := []*BlockNode{bi.Genesis()}
	nodes = append(nodes, addFakeBranch(bi, bi.Genesis(), numNodes)...)
	return bi, nodes
}

// addFakeBranch adds the specified number of headers on top of the passed
// parent to the block index and returns the resulting nodes.  It panics on
// failure since the headers are known to connect.
func addFakeBranch(bi *BlockIndex, parent *BlockNode, numNodes int) []*BlockNode {
	nodes := make([]*BlockNode, 0, numNodes)
	for i := 0; i < numNodes; i++ {
		header := newFakeHeader(parent, parent.bits, parent.timestamp+1)
		node, err := bi.AddHeader(header)
		if err != nil {
			panic(err)
		}
		nodes = append(nodes, node)
		parent = node
	}
	return nodes
}
