// Copyright (c) 2021-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package indexdb

import (
	"context"
	"errors"
	"fmt"

	"github.com/centure/chainindex/blockchain"
	"github.com/centure/chainindex/chaincfg"
	"github.com/centure/chainindex/internal/progresslog"
)

// LoadBlockIndex rebuilds the block index from every entry in the store and
// returns it along with the active chain ending at the stored best chain tip.
// The active chain only holds the genesis block when no best chain has been
// stored yet.
func LoadBlockIndex(ctx context.Context, s *Store, params *chaincfg.Params) (*blockchain.BlockIndex, *blockchain.Chain, error) {
	bi := blockchain.NewBlockIndex(params)

	log.Info("Loading block index...")
	progress := progresslog.New("Loaded", log)
	var lastEntry *blockchain.IndexEntry
	err := s.ForEachEntry(ctx, func(entry *blockchain.IndexEntry) error {
		if _, err := bi.AddEntry(entry); err != nil {
			return err
		}
		progress.LogProgress(entry, false)
		lastEntry = entry
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if lastEntry != nil {
		progress.LogProgress(lastEntry, true)
	}

	tip := bi.Genesis()
	hash, height, err := s.FetchBestChain()
	switch {
	case errors.Is(err, ErrBestChainNotFound):
		log.Debug("No best chain stored, starting from the genesis block")

	case err != nil:
		return nil, nil, err

	default:
		tip = bi.LookupNode(&hash)
		if tip == nil {
			str := fmt.Sprintf("best chain tip %v is not in the block index",
				hash)
			return nil, nil, contextError(ErrCorruptEntry, str)
		}
		if tip.Height() != height {
			str := fmt.Sprintf("best chain tip %v is at height %d instead "+
				"of the stored height %d", hash, tip.Height(), height)
			return nil, nil, contextError(ErrCorruptEntry, str)
		}
	}

	chain := blockchain.NewChain(tip)
	log.Infof("Block index loaded with %d blocks, chain tip %v (height %d)",
		bi.Count(), tip.Hash(), tip.Height())
	return bi, chain, nil
}

// FlushBlockIndex writes the modified nodes of the block index along with the
// tip of the passed active chain to the store.
func FlushBlockIndex(s *Store, bi *blockchain.BlockIndex, chain *blockchain.Chain) error {
	if err := bi.Flush(s); err != nil {
		return err
	}
	tip := chain.Tip()
	hash := tip.Hash()
	return s.PutBestChain(&hash, tip.Height())
}
