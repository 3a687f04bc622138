// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"math/rand"

	"github.com/centure/chainindex/blockchain"
	"github.com/centure/chainindex/primitives"
	"github.com/decred/dcrd/chaincfg/chainhash"
)

// generateOptions control the shape of generated header chains.
type generateOptions struct {
	count        uint32
	forkEvery    uint32
	forkLength   uint32
	witnessEvery uint32
	seed         int64
}

// headerGenerator creates synthetic headers that connect to nodes of a block
// index.  The headers carry the proof of work limit of the network, so they
// are only meaningful for the block index itself.
type headerGenerator struct {
	bi   *blockchain.BlockIndex
	rng  *rand.Rand
	opts generateOptions
}

// nextHeader returns a header that connects to the passed parent.  The header
// is co-signed by a witness when requested.
func (g *headerGenerator) nextHeader(parent *blockchain.BlockNode, witness bool) *primitives.BlockHeader {
	params := g.bi.Params()
	spacing := int64(params.TargetTimePerBlock.Seconds())
	if spacing < 1 {
		spacing = 1
	}

	header := &primitives.BlockHeader{
		Version:   1,
		PrevBlock: parent.Hash(),
		Timestamp: uint32(parent.Timestamp() + spacing),
		Bits:      params.PowLimitBits,
		Nonce:     g.rng.Uint32(),
	}
	var merkleRoot [chainhash.HashSize]byte
	g.rng.Read(merkleRoot[:])
	header.MerkleRoot = chainhash.HashH(merkleRoot[:])
	if witness {
		header.WitnessVersion = 1
		header.WitnessTimestamp = header.Timestamp + uint32(g.rng.Intn(int(spacing)+1))
		header.WitnessMerkleRoot = chainhash.HashH(header.MerkleRoot[:])
		g.rng.Read(header.WitnessSig[:])
	}
	return header
}

// addSideBranch adds a branch of headers that forks from the passed node.  The
// branch only has headers and never becomes part of the active chain.
func (g *headerGenerator) addSideBranch(forkPoint *blockchain.BlockNode) error {
	parent := forkPoint
	for i := uint32(0); i < g.opts.forkLength; i++ {
		node, err := g.bi.AddHeader(g.nextHeader(parent, false))
		if err != nil {
			return err
		}
		parent = node
	}
	return nil
}

// generateHeaders extends the active chain with the requested number of
// blocks.  Blocks added to the active chain have their data accepted and are
// fully validated.  It returns the number of blocks added to the active chain,
// which is less than requested when the context is canceled.
func generateHeaders(ctx context.Context, bi *blockchain.BlockIndex, chain *blockchain.Chain, opts generateOptions) (uint32, error) {
	g := &headerGenerator{
		bi:   bi,
		rng:  rand.New(rand.NewSource(opts.seed)),
		opts: opts,
	}

	tip := chain.Tip()
	var added uint32
	for added < opts.count {
		if shutdownRequested(ctx) {
			break
		}

		height := tip.Height() + 1
		witness := opts.witnessEvery != 0 && height%int64(opts.witnessEvery) == 0
		node, err := bi.AddHeader(g.nextHeader(tip, witness))
		if err != nil {
			return added, err
		}
		bi.AcceptBlockData(node)
		bi.RaiseValidity(node, blockchain.ValidityScripts)
		chain.SetTip(node)

		if opts.forkEvery != 0 && height%int64(opts.forkEvery) == 0 {
			if err := g.addSideBranch(tip); err != nil {
				return added, err
			}
		}

		tip = node
		added++
	}

	cidxLog.Debugf("Generated %d blocks, chain tip %v (height %d)", added,
		tip.Hash(), tip.Height())
	return added, nil
}
