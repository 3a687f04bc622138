// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"math"
	"time"

	"github.com/centure/chainindex/primitives"
	"github.com/decred/dcrd/chaincfg/chainhash"
)

// TestNetParams returns the network parameters for the test network.  The
// reduced median time window applies at every height.
func TestNetParams() *Params {
	genesisHeader := primitives.BlockHeader{
		Version:    1,
		PrevBlock:  chainhash.Hash{}, // All zero.
		MerkleRoot: chainhash.Hash{0x9c, 0x37, 0x04, 0xe1, 0x52, 0xaf, 0x68, 0x0b},
		Timestamp:  1530698400, // 2018-07-04 10:00:00 +0000 UTC
		Bits:       0x1f00ffff,
		Nonce:      27201,
	}

	return newParams(&Params{
		Name:                    "testnet",
		Net:                     testNetMagic,
		GenesisHeader:           &genesisHeader,
		PowLimitBits:            0x1f00ffff,
		TargetTimePerBlock:      time.Second * 150,
		MedianTimeBlocks:        11,
		ReducedMedianTimeBlocks: 3,
		ReducedMedianTimeHeight: math.MaxInt64,
		ReducedMedianTime:       true,
		WitnessMedianTimeHeight: 20,
	})
}
