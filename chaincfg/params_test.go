// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"errors"
	"testing"

	"github.com/decred/dcrd/blockchain/standalone/v2"
	"github.com/decred/dcrd/wire"
)

// TestParams ensures the derived fields of every network agree with the
// values they are derived from.
func TestParams(t *testing.T) {
	t.Parallel()

	seenNets := make(map[wire.CurrencyNet]struct{})
	for _, params := range []*Params{MainNetParams(), TestNetParams(),
		RegNetParams()} {

		if params.GenesisHash != params.GenesisHeader.BlockHash() {
			t.Errorf("%s: genesis hash does not match genesis header",
				params.Name)
		}
		if params.GenesisHeader.Bits != params.PowLimitBits {
			t.Errorf("%s: genesis bits %08x are not the pow limit %08x",
				params.Name, params.GenesisHeader.Bits, params.PowLimitBits)
		}
		if got := standalone.BigToCompact(params.PowLimit); got != params.PowLimitBits {
			t.Errorf("%s: pow limit round trip -- got %08x, want %08x",
				params.Name, got, params.PowLimitBits)
		}
		if params.MedianTimeBlocks%2 != 1 || params.ReducedMedianTimeBlocks%2 != 1 {
			t.Errorf("%s: median time windows must be odd", params.Name)
		}
		if _, ok := seenNets[params.Net]; ok {
			t.Errorf("%s: duplicate network magic %v", params.Name, params.Net)
		}
		seenNets[params.Net] = struct{}{}
	}
}

// TestParamsByName ensures networks are looked up by name.
func TestParamsByName(t *testing.T) {
	t.Parallel()

	params, err := ParamsByName("TestNet")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if params.Name != "testnet" || !params.ReducedMedianTime {
		t.Fatalf("unexpected params for testnet: %s", params.Name)
	}
	if _, err := ParamsByName("simnet"); !errors.Is(err, ErrUnknownNetwork) {
		t.Fatalf("unexpected error for unknown network: %v", err)
	}
}
