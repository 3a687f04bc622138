// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package primitives provides the block header and proof-of-work primitives
shared by the block index and the tooling around it.

Block headers carry two identities.  The legacy hash covers only the classic
proof-of-work fields, while the block hash additionally covers the witness
version, time and merkle root once a witness has co-signed the block.  Parent
links always use the block hash.
*/
package primitives
