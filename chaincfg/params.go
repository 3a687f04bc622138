// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/centure/chainindex/primitives"
	"github.com/decred/dcrd/blockchain/standalone/v2"
	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/wire"
)

const (
	// mainNetMagic, testNetMagic and regNetMagic identify the networks on the
	// wire.
	mainNetMagic wire.CurrencyNet = 0x91c4fdd5
	testNetMagic wire.CurrencyNet = 0xa3c1e8b7
	regNetMagic  wire.CurrencyNet = 0xc07b3e5d
)

// ErrUnknownNetwork is returned by ParamsByName when no network with the
// requested name exists.
var ErrUnknownNetwork = errors.New("unknown network")

// Params defines the parameters of a network that the block index needs in
// order to interpret headers.
type Params struct {
	// Name defines a human-readable identifier for the network.
	Name string

	// Net defines the magic bytes used to identify the network.
	Net wire.CurrencyNet

	// GenesisHeader defines the first block of the chain.
	GenesisHeader *primitives.BlockHeader

	// GenesisHash is the block hash of the genesis header.
	GenesisHash chainhash.Hash

	// PowLimit defines the highest allowed proof of work value for a block
	// as a uint256.
	PowLimit *big.Int

	// PowLimitBits defines the highest allowed proof of work value for a
	// block in compact form.
	PowLimitBits uint32

	// TargetTimePerBlock is the desired amount of time to generate each
	// block.  It is the spacing used to convert work into time.
	TargetTimePerBlock time.Duration

	// MedianTimeBlocks is the number of previous blocks, including the
	// block itself, used to calculate the median time past.
	MedianTimeBlocks int

	// ReducedMedianTimeBlocks is the number of blocks used for the median
	// time past once the reduced window is active.
	ReducedMedianTimeBlocks int

	// ReducedMedianTimeHeight is the height after which the reduced window
	// applies.
	ReducedMedianTimeHeight int64

	// ReducedMedianTime forces the reduced window at every height.
	ReducedMedianTime bool

	// WitnessMedianTimeHeight is the height after which blocks that carry a
	// witness time use the combined witness median time past.
	WitnessMedianTimeHeight int64
}

// newParams fills in the derived fields of the passed parameters.
func newParams(p *Params) *Params {
	p.GenesisHash = p.GenesisHeader.BlockHash()
	p.PowLimit = standalone.CompactToBig(p.PowLimitBits)
	return p
}

// ParamsByName returns the parameters for the network with the given name.
// The lookup is case insensitive.
func ParamsByName(name string) (*Params, error) {
	for _, params := range []*Params{MainNetParams(), TestNetParams(),
		RegNetParams()} {

		if strings.EqualFold(params.Name, name) {
			return params, nil
		}
	}
	return nil, ErrUnknownNetwork
}
