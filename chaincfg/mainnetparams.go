// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"time"

	"github.com/centure/chainindex/primitives"
	"github.com/decred/dcrd/chaincfg/chainhash"
)

// MainNetParams returns the network parameters for the main network.
func MainNetParams() *Params {
	genesisHeader := primitives.BlockHeader{
		Version:    1,
		PrevBlock:  chainhash.Hash{}, // All zero.
		MerkleRoot: chainhash.Hash{0x41, 0x5b, 0x2c, 0x9e, 0x7a, 0x10, 0xd3, 0x66},
		Timestamp:  1476016896, // 2016-10-09 12:41:36 +0000 UTC
		Bits:       0x1e0fffff,
		Nonce:      2084793,
	}

	return newParams(&Params{
		Name:                    "mainnet",
		Net:                     mainNetMagic,
		GenesisHeader:           &genesisHeader,
		PowLimitBits:            0x1e0fffff,
		TargetTimePerBlock:      time.Second * 150,
		MedianTimeBlocks:        11,
		ReducedMedianTimeBlocks: 3,
		ReducedMedianTimeHeight: 437500,
		WitnessMedianTimeHeight: 20,
	})
}
