// Copyright (c) 2021-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package indexdb

import (
	"context"
	"errors"
	"testing"

	"github.com/centure/chainindex/blockchain"
	"github.com/centure/chainindex/chaincfg"
	"github.com/centure/chainindex/primitives"
	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"
	"github.com/syndtr/goleveldb/leveldb"
)

// openTestStore opens a store for the provided network in a temporary
// directory that is removed when the test finishes.
func openTestStore(t *testing.T, params *chaincfg.Params) (*Store, string) {
	t.Helper()

	dbPath := t.TempDir()
	s, err := Open(dbPath, params)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, dbPath
}

// extendIndex adds the specified number of headers to the block index on top
// of the passed parent and returns the resulting nodes.  The witness flag
// makes every other header carry a witness.
func extendIndex(t *testing.T, bi *blockchain.BlockIndex, parent *blockchain.BlockNode, numNodes int, witness bool) []*blockchain.BlockNode {
	t.Helper()

	nodes := make([]*blockchain.BlockNode, 0, numNodes)
	for i := 0; i < numNodes; i++ {
		header := primitives.BlockHeader{
			Version:   1,
			PrevBlock: parent.Hash(),
			Timestamp: uint32(parent.Timestamp() + 300),
			Bits:      parent.Bits(),
			Nonce:     uint32(i),
		}
		if witness && i%2 == 1 {
			header.WitnessVersion = 1
			header.WitnessTimestamp = header.Timestamp + 10
			header.WitnessMerkleRoot = chainhash.HashH([]byte{byte(i)})
			header.WitnessSig[0] = byte(i)
		}
		node, err := bi.AddHeader(&header)
		require.NoError(t, err)
		nodes = append(nodes, node)
		parent = node
	}
	return nodes
}

// TestEntrySerialization ensures entries, including ones with a witness
// header, survive a round trip through the stored format and that malformed
// values are rejected as corrupt.
func TestEntrySerialization(t *testing.T) {
	entry := blockchain.IndexEntry{
		Header: primitives.BlockHeader{
			WitnessVersion:   2,
			WitnessTimestamp: 1700000010,
			Version:          7,
			Timestamp:        1700000000,
			Bits:             0x1d00ffff,
			Nonce:            12345,
		},
		Height: 512,
		Status: blockchain.BlockStatus{
			Validity: blockchain.ValidityChain,
			Partial:  blockchain.PartialValidityTree,
			HaveData: true,
		},
	}
	entry.Header.WitnessSig[64] = 0xaa

	serialized := serializeEntry(&entry)
	decoded, err := deserializeEntry(serialized, entry.Height)
	require.NoError(t, err)
	require.Equal(t, entry, *decoded)

	_, err = deserializeEntry(serialized[:len(serialized)-1], entry.Height)
	require.ErrorIs(t, err, ErrCorruptEntry)

	_, err = deserializeEntry(append(serialized, 0x00), entry.Height)
	require.ErrorIs(t, err, ErrCorruptEntry)

	_, err = deserializeEntry(nil, entry.Height)
	require.ErrorIs(t, err, ErrCorruptEntry)
}

// TestStoreEntries ensures entries can be stored, fetched by hash and visited
// in height order.
func TestStoreEntries(t *testing.T) {
	params := chaincfg.RegNetParams()
	s, _ := openTestStore(t, params)

	bi := blockchain.NewBlockIndex(params)
	main := extendIndex(t, bi, bi.Genesis(), 10, true)
	side := extendIndex(t, bi, main[3], 3, false)
	require.NoError(t, bi.Flush(s))

	// Every node, including the genesis block, must be fetchable.
	for _, node := range append(append([]*blockchain.BlockNode{bi.Genesis()},
		main...), side...) {

		hash := node.Hash()
		entry, err := s.FetchEntry(&hash)
		require.NoError(t, err)
		require.Equal(t, node.Height(), entry.Height)
		require.Equal(t, node.Header(), entry.Header)
		require.Equal(t, node.Status(), entry.Status)
	}

	// Fetching from a fresh cache goes to the database.
	s.cache.Clear()
	hash := side[2].Hash()
	entry, err := s.FetchEntry(&hash)
	require.NoError(t, err)
	require.Equal(t, side[2].Header(), entry.Header)

	unknown := chainhash.HashH([]byte("unknown"))
	_, err = s.FetchEntry(&unknown)
	require.ErrorIs(t, err, ErrEntryNotFound)

	var heights []int64
	err = s.ForEachEntry(context.Background(), func(entry *blockchain.IndexEntry) error {
		heights = append(heights, entry.Height)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, heights, 1+len(main)+len(side))
	for i := 1; i < len(heights); i++ {
		require.LessOrEqual(t, heights[i-1], heights[i])
	}

	// Errors returned by the callback stop the iteration.
	errStop := errors.New("stop")
	var visited int
	err = s.ForEachEntry(context.Background(), func(entry *blockchain.IndexEntry) error {
		visited++
		return errStop
	})
	require.ErrorIs(t, err, errStop)
	require.Equal(t, 1, visited)
}

// TestStoreBadEntries ensures entries that can't be stored are rejected.
func TestStoreBadEntries(t *testing.T) {
	s, _ := openTestStore(t, chaincfg.RegNetParams())

	err := s.PutEntries([]blockchain.IndexEntry{{Height: -1}})
	require.ErrorIs(t, err, ErrBadEntry)

	err = s.PutEntries([]blockchain.IndexEntry{{Height: 1 << 33}})
	require.ErrorIs(t, err, ErrBadEntry)

	var hash chainhash.Hash
	require.ErrorIs(t, s.PutBestChain(&hash, -5), ErrBadEntry)
}

// TestStoreBestChain ensures the best chain record is stored and loaded.
func TestStoreBestChain(t *testing.T) {
	s, _ := openTestStore(t, chaincfg.RegNetParams())

	_, _, err := s.FetchBestChain()
	require.ErrorIs(t, err, ErrBestChainNotFound)

	want := chainhash.HashH([]byte("tip"))
	require.NoError(t, s.PutBestChain(&want, 4242))
	hash, height, err := s.FetchBestChain()
	require.NoError(t, err)
	require.Equal(t, want, hash)
	require.Equal(t, int64(4242), height)
}

// TestStoreNetwork ensures a store can only be reopened for the network it was
// created for.
func TestStoreNetwork(t *testing.T) {
	dbPath := t.TempDir()
	s, err := Open(dbPath, chaincfg.RegNetParams())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(dbPath, chaincfg.RegNetParams())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(dbPath, chaincfg.TestNetParams())
	require.ErrorIs(t, err, ErrWrongNetwork)
	var cErr ContextError
	require.True(t, errors.As(err, &cErr))
}

// TestClosedStore ensures operations on a closed store report it is not open.
func TestClosedStore(t *testing.T) {
	s, err := Open(t.TempDir(), chaincfg.RegNetParams())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	var hash chainhash.Hash
	err = s.PutBestChain(&hash, 1)
	require.ErrorIs(t, err, ErrStoreNotOpen)

	var cErr ContextError
	require.True(t, errors.As(err, &cErr))
	require.ErrorIs(t, cErr.RawErr, leveldb.ErrClosed)
}
