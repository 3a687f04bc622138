// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// verifyNode checks the derived fields of a single node against its parent.
//
// This function MUST be called with the block index lock held (for reads).
func (bi *BlockIndex) verifyNode(node *BlockNode) error {
	if bi.index[node.hash] != node {
		str := fmt.Sprintf("block %v is not indexed by its hash", node.hash)
		return ruleError(ErrBadLinkage, str)
	}
	if legacy := bi.legacyIndex[node.legacyHash]; legacy == nil ||
		legacy.legacyHash != node.legacyHash {

		str := fmt.Sprintf("block %v is not indexed by its legacy hash %v",
			node.hash, node.legacyHash)
		return ruleError(ErrBadLinkage, str)
	}

	parent := node.parent
	if parent == nil {
		if node != bi.genesis || node.height != 0 {
			str := fmt.Sprintf("block %v has no parent", node)
			return ruleError(ErrBadLinkage, str)
		}
		return nil
	}
	if node.height != parent.height+1 || bi.index[parent.hash] != parent {
		str := fmt.Sprintf("block %v does not follow its parent %v", node,
			parent)
		return ruleError(ErrBadLinkage, str)
	}

	if want := parent.Ancestor(SkipHeight(node.height)); node.skip != want {
		str := fmt.Sprintf("block %v skips to %v instead of %v", node,
			node.skip, want)
		return ruleError(ErrBadSkipLink, str)
	}

	wantWork := BlockProof(node)
	wantWork.Add(&parent.workSum)
	if !node.workSum.Eq(&wantWork) {
		str := fmt.Sprintf("block %v has cumulative work %v instead of %v",
			node, &node.workSum, &wantWork)
		return ruleError(ErrBadChainWork, str)
	}

	wantTimeMax := parent.timeMax
	if node.timestamp > wantTimeMax {
		wantTimeMax = node.timestamp
	}
	if node.timeMax != wantTimeMax {
		str := fmt.Sprintf("block %v has maximum time %d instead of %d",
			node, node.timeMax, wantTimeMax)
		return ruleError(ErrBadTimeMax, str)
	}
	return nil
}

// VerifyIntegrity checks every node in the index for consistent linkage, skip
// links, cumulative work and maximum time.  The nodes are checked concurrently
// and the first failure is returned.
//
// This function is safe for concurrent access.
func (bi *BlockIndex) VerifyIntegrity(ctx context.Context) error {
	bi.RLock()
	defer bi.RUnlock()

	nodes := make([]*BlockNode, 0, len(bi.index))
	for _, node := range bi.index {
		nodes = append(nodes, node)
	}

	numWorkers := runtime.NumCPU()
	batchSize := (len(nodes) + numWorkers - 1) / numWorkers
	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < len(nodes); start += batchSize {
		end := start + batchSize
		if end > len(nodes) {
			end = len(nodes)
		}
		batch := nodes[start:end]
		g.Go(func() error {
			for i, node := range batch {
				if i%1024 == 0 {
					select {
					case <-gctx.Done():
						return gctx.Err()
					default:
					}
				}
				if err := bi.verifyNode(node); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	log.Debugf("Verified %d block index nodes", len(nodes))
	return nil
}
