// Copyright (c) 2018-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"math"
	"time"

	"github.com/centure/chainindex/primitives"
	"github.com/decred/dcrd/chaincfg/chainhash"
)

// RegNetParams returns the network parameters for the regression test
// network.  It is primarily intended for unit tests and synthetic chains, so
// its values are subject to change.
func RegNetParams() *Params {
	genesisHeader := primitives.BlockHeader{
		Version:    1,
		PrevBlock:  chainhash.Hash{}, // All zero.
		MerkleRoot: chainhash.Hash{}, // All zero.
		Timestamp:  1538524800, // 2018-10-03 00:00:00 +0000 UTC
		Bits:       0x207fffff,
		Nonce:      0,
	}

	return newParams(&Params{
		Name:                    "regnet",
		Net:                     regNetMagic,
		GenesisHeader:           &genesisHeader,
		PowLimitBits:            0x207fffff,
		TargetTimePerBlock:      time.Second,
		MedianTimeBlocks:        11,
		ReducedMedianTimeBlocks: 3,
		ReducedMedianTimeHeight: math.MaxInt64,
		WitnessMedianTimeHeight: 20,
	})
}
