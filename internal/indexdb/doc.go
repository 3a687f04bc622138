// Copyright (c) 2021-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package indexdb persists block index entries in a leveldb database and rebuilds
the in-memory block index and active chain from them.

Entries are keyed by height followed by block hash, so iterating the entry
keyspace visits parents before their children.  Each value is the status bits
of the block, encoded as a variable length integer, followed by the serialized
header.  A secondary key maps a block hash to its height and a single record
holds the hash and height of the active chain tip.

A Store satisfies blockchain.IndexWriter so modified nodes are persisted with
BlockIndex.Flush.
*/
package indexdb
