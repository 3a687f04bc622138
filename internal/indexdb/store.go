// Copyright (c) 2021-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package indexdb

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/centure/chainindex/blockchain"
	"github.com/centure/chainindex/chaincfg"
	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/container/lru"
	"github.com/decred/dcrd/wire"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

const (
	// currentVersion is the version of the on-disk layout.
	currentVersion = 1

	// entryCacheSize is the maximum number of decoded entries kept in
	// memory by a store.
	entryCacheSize = 2048

	// entryKeySize is the size of an entry key: the prefix, the big endian
	// height and the block hash.
	entryKeySize = 1 + 4 + chainhash.HashSize

	// bestChainSize is the size of the serialized best chain record.
	bestChainSize = chainhash.HashSize + 4

	// cancelCheckInterval is the number of entries visited between checks
	// for cancellation while iterating.
	cancelCheckInterval = 1000
)

var (
	// entryPrefix is the key prefix of block index entries.
	entryPrefix = []byte{'e'}

	// hashIndexPrefix is the key prefix of the block hash to height index.
	hashIndexPrefix = []byte{'h'}

	// netKey holds the network the store was created for.
	netKey = []byte("net")

	// versionKey holds the version of the on-disk layout.
	versionKey = []byte("version")

	// bestChainKey holds the hash and height of the active chain tip.
	bestChainKey = []byte("bestchain")
)

// Store is a leveldb backed store of block index entries.
type Store struct {
	db    *leveldb.DB
	net   wire.CurrencyNet
	cache *lru.Map[chainhash.Hash, blockchain.IndexEntry]
}

// Ensure Store implements the blockchain.IndexWriter interface.
var _ blockchain.IndexWriter = (*Store)(nil)

// Open opens the store at the provided path, creating it when needed, for the
// network described by the passed parameters.  Opening a store that was
// created for another network fails with ErrWrongNetwork.
func Open(dbPath string, params *chaincfg.Params) (*Store, error) {
	log.Infof("Loading block index database from '%s'", dbPath)
	opts := opt.Options{
		Strict:      opt.DefaultStrict,
		Compression: opt.NoCompression,
		Filter:      filter.NewBloomFilter(10),
	}
	db, err := leveldb.OpenFile(dbPath, &opts)
	if err != nil {
		return nil, convertLdbErr(err, "failed to open block index database")
	}

	s := &Store{
		db:    db,
		net:   params.Net,
		cache: lru.NewMap[chainhash.Hash, blockchain.IndexEntry](entryCacheSize),
	}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// initialize writes the network and version of a new store or checks them for
// an existing one.
func (s *Store) initialize() error {
	serialized, err := s.db.Get(netKey, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		var buf [8]byte
		binary.LittleEndian.PutUint32(buf[0:4], uint32(s.net))
		binary.LittleEndian.PutUint32(buf[4:8], currentVersion)

		batch := new(leveldb.Batch)
		batch.Put(netKey, buf[0:4])
		batch.Put(versionKey, buf[4:8])
		if err := s.db.Write(batch, nil); err != nil {
			return convertLdbErr(err, "failed to initialize block index "+
				"database")
		}
		log.Debugf("Created block index database for %v", s.net)
		return nil
	}
	if err != nil {
		return convertLdbErr(err, "failed to load network")
	}
	if len(serialized) != 4 {
		str := fmt.Sprintf("malformed network record of %d bytes",
			len(serialized))
		return contextError(ErrCorruptEntry, str)
	}
	if net := wire.CurrencyNet(binary.LittleEndian.Uint32(serialized)); net != s.net {
		str := fmt.Sprintf("block index database is for network %v instead "+
			"of %v", net, s.net)
		return contextError(ErrWrongNetwork, str)
	}

	serialized, err = s.db.Get(versionKey, nil)
	if err != nil {
		return convertLdbErr(err, "failed to load database version")
	}
	if len(serialized) != 4 {
		str := fmt.Sprintf("malformed version record of %d bytes",
			len(serialized))
		return contextError(ErrCorruptEntry, str)
	}
	if version := binary.LittleEndian.Uint32(serialized); version > currentVersion {
		str := fmt.Sprintf("block index database version %d is newer than "+
			"the supported version %d", version, currentVersion)
		return contextError(ErrStore, str)
	}
	return nil
}

// Close closes the store.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return convertLdbErr(err, "failed to close block index database")
	}
	return nil
}

// entryKey returns the key of the entry for the block with the provided
// height and hash.
func entryKey(height uint32, hash *chainhash.Hash) []byte {
	key := make([]byte, entryKeySize)
	copy(key, entryPrefix)
	binary.BigEndian.PutUint32(key[1:5], height)
	copy(key[5:], hash[:])
	return key
}

// hashIndexKey returns the key of the height of the block with the provided
// hash.
func hashIndexKey(hash *chainhash.Hash) []byte {
	key := make([]byte, 1+chainhash.HashSize)
	copy(key, hashIndexPrefix)
	copy(key[1:], hash[:])
	return key
}

// serializeEntry returns the stored value of the passed entry: the status bits
// as a variable length integer followed by the header.
func serializeEntry(entry *blockchain.IndexEntry) []byte {
	bits := uint64(entry.Status.Bits())
	var buf bytes.Buffer
	buf.Grow(wire.VarIntSerializeSize(bits) + entry.Header.SerializeSize())

	// Writes to a bytes.Buffer never fail.
	_ = wire.WriteVarInt(&buf, 0, bits)
	_ = entry.Header.Serialize(&buf)
	return buf.Bytes()
}

// deserializeEntry decodes a stored value for the block at the provided
// height.
func deserializeEntry(serialized []byte, height int64) (*blockchain.IndexEntry, error) {
	r := bytes.NewReader(serialized)
	bits, err := wire.ReadVarInt(r, 0)
	if err != nil {
		str := fmt.Sprintf("unable to decode status of entry at height %d: %v",
			height, err)
		return nil, contextError(ErrCorruptEntry, str)
	}
	if bits > math.MaxUint32 {
		str := fmt.Sprintf("status %x of entry at height %d is out of range",
			bits, height)
		return nil, contextError(ErrCorruptEntry, str)
	}

	entry := &blockchain.IndexEntry{
		Height: height,
		Status: blockchain.StatusFromBits(uint32(bits)),
	}
	if err := entry.Header.Deserialize(r); err != nil {
		str := fmt.Sprintf("unable to decode header of entry at height %d: %v",
			height, err)
		return nil, contextError(ErrCorruptEntry, str)
	}
	if r.Len() != 0 {
		str := fmt.Sprintf("entry at height %d has %d trailing bytes",
			height, r.Len())
		return nil, contextError(ErrCorruptEntry, str)
	}
	return entry, nil
}

// PutEntries stores the passed entries atomically.  An entry that is already
// stored is overwritten.
//
// This is part of the blockchain.IndexWriter interface.
func (s *Store) PutEntries(entries []blockchain.IndexEntry) error {
	batch := new(leveldb.Batch)
	hashes := make([]chainhash.Hash, 0, len(entries))
	for i := range entries {
		entry := &entries[i]
		if entry.Height < 0 || entry.Height > math.MaxUint32 {
			str := fmt.Sprintf("entry height %d is out of range",
				entry.Height)
			return contextError(ErrBadEntry, str)
		}

		hash := entry.Header.BlockHash()
		var height [4]byte
		binary.BigEndian.PutUint32(height[:], uint32(entry.Height))
		batch.Put(entryKey(uint32(entry.Height), &hash), serializeEntry(entry))
		batch.Put(hashIndexKey(&hash), height[:])
		hashes = append(hashes, hash)
	}
	if err := s.db.Write(batch, nil); err != nil {
		return convertLdbErr(err, "failed to store block index entries")
	}

	for i := range entries {
		s.cache.Put(hashes[i], entries[i])
	}
	log.Tracef("Stored %d block index entries", len(entries))
	return nil
}

// FetchEntry returns the stored entry of the block with the provided hash.  It
// fails with ErrEntryNotFound when there is none.
func (s *Store) FetchEntry(hash *chainhash.Hash) (*blockchain.IndexEntry, error) {
	if entry, ok := s.cache.Get(*hash); ok {
		return &entry, nil
	}

	serializedHeight, err := s.db.Get(hashIndexKey(hash), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		str := fmt.Sprintf("no stored entry for block %v", hash)
		return nil, contextError(ErrEntryNotFound, str)
	}
	if err != nil {
		return nil, convertLdbErr(err, "failed to load block height")
	}
	if len(serializedHeight) != 4 {
		str := fmt.Sprintf("malformed height of block %v", hash)
		return nil, contextError(ErrCorruptEntry, str)
	}

	height := binary.BigEndian.Uint32(serializedHeight)
	serialized, err := s.db.Get(entryKey(height, hash), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		str := fmt.Sprintf("missing entry for block %v at height %d", hash,
			height)
		return nil, contextError(ErrCorruptEntry, str)
	}
	if err != nil {
		return nil, convertLdbErr(err, "failed to load block index entry")
	}
	entry, err := deserializeEntry(serialized, int64(height))
	if err != nil {
		return nil, err
	}
	s.cache.Put(*hash, *entry)
	return entry, nil
}

// ForEachEntry calls the provided function with every stored entry in order of
// increasing height.  Iteration stops at the first error returned by the
// function, which is returned as is, or when the context is canceled.
func (s *Store) ForEachEntry(ctx context.Context, fn func(entry *blockchain.IndexEntry) error) error {
	iter := s.db.NewIterator(util.BytesPrefix(entryPrefix), nil)
	defer iter.Release()

	var visited uint64
	for iter.Next() {
		visited++
		if visited%cancelCheckInterval == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}

		key := iter.Key()
		if len(key) != entryKeySize {
			str := fmt.Sprintf("malformed entry key %x", key)
			return contextError(ErrCorruptEntry, str)
		}
		height := int64(binary.BigEndian.Uint32(key[1:5]))
		entry, err := deserializeEntry(iter.Value(), height)
		if err != nil {
			return err
		}
		if hash := entry.Header.BlockHash(); !bytes.Equal(hash[:], key[5:]) {
			str := fmt.Sprintf("entry at height %d hashes to %v instead of "+
				"%x", height, hash, key[5:])
			return contextError(ErrCorruptEntry, str)
		}
		if err := fn(entry); err != nil {
			return err
		}
	}
	if err := iter.Error(); err != nil {
		return convertLdbErr(err, "failed to iterate block index entries")
	}
	return ctx.Err()
}

// PutBestChain stores the hash and height of the active chain tip.
func (s *Store) PutBestChain(hash *chainhash.Hash, height int64) error {
	if height < 0 || height > math.MaxUint32 {
		str := fmt.Sprintf("best chain height %d is out of range", height)
		return contextError(ErrBadEntry, str)
	}

	var serialized [bestChainSize]byte
	copy(serialized[:], hash[:])
	binary.LittleEndian.PutUint32(serialized[chainhash.HashSize:],
		uint32(height))
	if err := s.db.Put(bestChainKey, serialized[:], nil); err != nil {
		return convertLdbErr(err, "failed to store best chain")
	}
	return nil
}

// FetchBestChain returns the stored hash and height of the active chain tip.
// It fails with ErrBestChainNotFound when none was stored.
func (s *Store) FetchBestChain() (chainhash.Hash, int64, error) {
	serialized, err := s.db.Get(bestChainKey, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return chainhash.Hash{}, 0, contextError(ErrBestChainNotFound,
			"no best chain is stored")
	}
	if err != nil {
		return chainhash.Hash{}, 0, convertLdbErr(err,
			"failed to load best chain")
	}
	if len(serialized) != bestChainSize {
		str := fmt.Sprintf("malformed best chain record of %d bytes",
			len(serialized))
		return chainhash.Hash{}, 0, contextError(ErrCorruptEntry, str)
	}

	var hash chainhash.Hash
	copy(hash[:], serialized[:chainhash.HashSize])
	height := binary.LittleEndian.Uint32(serialized[chainhash.HashSize:])
	return hash, int64(height), nil
}
