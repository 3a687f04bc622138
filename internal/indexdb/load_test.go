// Copyright (c) 2021-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package indexdb

import (
	"context"
	"testing"

	"github.com/centure/chainindex/blockchain"
	"github.com/centure/chainindex/chaincfg"
	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"
)

// TestLoadBlockIndex ensures a flushed block index and active chain are
// rebuilt with the same nodes, statuses and tip.
func TestLoadBlockIndex(t *testing.T) {
	params := chaincfg.RegNetParams()
	s, _ := openTestStore(t, params)
	ctx := context.Background()

	// An empty store loads to the genesis block.
	bi, chain, err := LoadBlockIndex(ctx, s, params)
	require.NoError(t, err)
	require.Equal(t, 1, bi.Count())
	require.Equal(t, int64(0), chain.Height())
	require.Equal(t, params.GenesisHash, chain.Tip().Hash())

	bi = blockchain.NewBlockIndex(params)
	main := extendIndex(t, bi, bi.Genesis(), 25, true)
	side := extendIndex(t, bi, main[19], 2, false)
	for _, node := range main[:20] {
		bi.AcceptBlockData(node)
		bi.RaiseValidity(node, blockchain.ValidityScripts)
	}
	require.NoError(t, bi.MarkBlockFailedValidation(side[0]))
	chain = blockchain.NewChain(main[19])
	require.NoError(t, FlushBlockIndex(s, bi, chain))

	loadedIndex, loadedChain, err := LoadBlockIndex(ctx, s, params)
	require.NoError(t, err)
	require.Equal(t, bi.Count(), loadedIndex.Count())
	require.Equal(t, main[19].Hash(), loadedChain.Tip().Hash())
	require.Equal(t, int64(20), loadedChain.Height())

	for _, node := range append(main, side...) {
		hash := node.Hash()
		loaded := loadedIndex.LookupNode(&hash)
		require.NotNil(t, loaded, "block %v", hash)
		require.Equal(t, node.Height(), loaded.Height())
		require.Equal(t, node.Status(), loaded.Status())
		require.Equal(t, node.WorkSum(), loaded.WorkSum())

		legacyHash := node.LegacyHash()
		require.Equal(t, loaded, loadedIndex.LookupNodeByScheme(&legacyHash,
			blockchain.HashSchemeLegacy))
	}
	require.Equal(t, main[24].Hash(), loadedIndex.BestHeader().Hash())
	require.Equal(t, side[1].Hash(), loadedIndex.BestInvalid().Hash())
	require.NoError(t, loadedIndex.VerifyIntegrity(ctx))

	// Flushing the loaded index writes nothing new, so it loads the same.
	require.NoError(t, FlushBlockIndex(s, loadedIndex, loadedChain))
	_, reloadedChain, err := LoadBlockIndex(ctx, s, params)
	require.NoError(t, err)
	require.True(t, reloadedChain.Tip().Hash() == loadedChain.Tip().Hash())
}

// TestLoadBlockIndexErrors ensures stores with a best chain that does not match
// the stored entries fail to load.
func TestLoadBlockIndexErrors(t *testing.T) {
	params := chaincfg.RegNetParams()
	ctx := context.Background()

	s, _ := openTestStore(t, params)
	bi := blockchain.NewBlockIndex(params)
	nodes := extendIndex(t, bi, bi.Genesis(), 5, false)
	require.NoError(t, bi.Flush(s))

	unknown := chainhash.HashH([]byte("unknown"))
	require.NoError(t, s.PutBestChain(&unknown, 5))
	_, _, err := LoadBlockIndex(ctx, s, params)
	require.ErrorIs(t, err, ErrCorruptEntry)

	hash := nodes[4].Hash()
	require.NoError(t, s.PutBestChain(&hash, 4))
	_, _, err = LoadBlockIndex(ctx, s, params)
	require.ErrorIs(t, err, ErrCorruptEntry)

	require.NoError(t, s.PutBestChain(&hash, 5))
	_, chain, err := LoadBlockIndex(ctx, s, params)
	require.NoError(t, err)
	require.Equal(t, hash, chain.Tip().Hash())

	// Entries whose parent was never stored can't be linked.
	orphanStore, _ := openTestStore(t, params)
	require.NoError(t, orphanStore.PutEntries([]blockchain.IndexEntry{{
		Header: nodes[2].Header(),
		Height: 3,
	}}))
	_, _, err = LoadBlockIndex(ctx, orphanStore, params)
	require.ErrorIs(t, err, blockchain.ErrMissingParent)

	// A canceled context stops the load.
	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, _, err = LoadBlockIndex(canceled, s, params)
	require.ErrorIs(t, err, context.Canceled)
}
