// Copyright (c) 2017 The btcsuite developers
// Copyright (c) 2018-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"reflect"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/decred/dcrd/chaincfg/chainhash"
)

// hashesAtHeights returns a locator made from the hashes, under the passed
// scheme, of the nodes in the passed branch at the provided heights.
func hashesAtHeights(branch []*BlockNode, scheme HashScheme, heights ...int64) BlockLocator {
	locator := make(BlockLocator, 0, len(heights))
	for _, height := range heights {
		hash := scheme.hashOf(branch[height])
		locator = append(locator, &hash)
	}
	return locator
}

// locatorsEqual returns whether the two locators hold the same hashes.
func locatorsEqual(a, b BlockLocator) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if *a[i] != *b[i] {
			return false
		}
	}
	return true
}

// TestChainViewLocator ensures block locators built from chain views contain
// the expected hashes.
func TestChainViewLocator(t *testing.T) {
	main, side := testForkedBranches()
	mainView := NewChain(branchTip(main))
	sideView := NewChain(branchTip(side))
	long := chainedFakeNodes(nil, 101)
	longView := NewChain(branchTip(long))

	// The side branch with the fork point and the nodes before it.
	sideBranch := append(append([]*BlockNode(nil), main[:16]...), side...)

	tests := []struct {
		name string
		view *Chain
		node *BlockNode
		want BlockLocator
	}{{
		name: "side tip from side view",
		view: sideView,
		node: branchTip(side),
		want: hashesAtHeights(sideBranch, HashSchemeWitness, 17, 16, 15, 14,
			13, 12, 11, 10, 9, 8, 7, 6, 4, 0),
	}, {
		name: "side tip from main view",
		view: mainView,
		node: branchTip(side),
		want: hashesAtHeights(sideBranch, HashSchemeWitness, 17, 16, 15, 14,
			13, 12, 11, 10, 9, 8, 7, 6, 4, 0),
	}, {
		name: "main tip from nil node",
		view: mainView,
		node: nil,
		want: hashesAtHeights(main, HashSchemeWitness, 18, 17, 16, 15, 14,
			13, 12, 11, 10, 9, 8, 7, 5, 1, 0),
	}, {
		name: "genesis",
		view: mainView,
		node: main[0],
		want: hashesAtHeights(main, HashSchemeWitness, 0),
	}, {
		name: "long chain",
		view: longView,
		node: nil,
		want: hashesAtHeights(long, HashSchemeWitness, 100, 99, 98, 97, 96,
			95, 94, 93, 92, 91, 90, 89, 87, 83, 75, 59, 27, 0),
	}}

	for _, test := range tests {
		got := test.view.BlockLocator(test.node, HashSchemeWitness)
		if !locatorsEqual(got, test.want) {
			t.Errorf("%s: unexpected locator -- got %v, want %v", test.name,
				spew.Sdump(got), spew.Sdump(test.want))
		}
	}

	if got := NewChain(nil).BlockLocator(nil, HashSchemeWitness); got != nil {
		t.Errorf("unexpected locator for uninitialized view: %v", got)
	}
}

// TestLocatorHashSchemes ensures the hash scheme selects which identity of the
// nodes makes up the locator.
func TestLocatorHashSchemes(t *testing.T) {
	// Create a chain where every block after the genesis block carries
	// witness fields so the two identities differ.
	var nodes []*BlockNode
	var parent *BlockNode
	for i := 0; i < 30; i++ {
		header := newFakeHeader(parent, 0x207fffff, testGenesisTime+int64(i))
		if parent != nil {
			header.WitnessVersion = 1
			header.WitnessTimestamp = header.Timestamp + 1
		}
		parent = NewBlockNode(header, parent)
		nodes = append(nodes, parent)
	}
	view := NewChain(branchTip(nodes))

	heights := []int64{29, 28, 27, 26, 25, 24, 23, 22, 21, 20, 19, 18, 16,
		12, 4, 0}
	for _, scheme := range []HashScheme{HashSchemeWitness, HashSchemeLegacy} {
		got := view.BlockLocator(nil, scheme)
		want := hashesAtHeights(nodes, scheme, heights...)
		if !locatorsEqual(got, want) {
			t.Errorf("%v: unexpected locator -- got %v, want %v", scheme,
				spew.Sdump(got), spew.Sdump(want))
		}
	}

	legacy := view.BlockLocator(nil, HashSchemeLegacy)
	witness := view.BlockLocator(nil, HashSchemeWitness)
	if *legacy[0] == *witness[0] {
		t.Fatal("legacy and witness locators share the tip hash")
	}
	if *legacy[len(legacy)-1] != *witness[len(witness)-1] {
		t.Fatal("legacy and witness locators differ at the genesis block")
	}
}

// TestLocatorMessages ensures locators convert into the expected wire
// messages.
func TestLocatorMessages(t *testing.T) {
	nodes := chainedFakeNodes(nil, 20)
	locator := NewChain(branchTip(nodes)).BlockLocator(nil, HashSchemeWitness)
	hashStop := nodes[19].hash

	getHeaders, err := locator.NewMsgGetHeaders(&hashStop)
	if err != nil {
		t.Fatalf("NewMsgGetHeaders: unexpected error: %v", err)
	}
	if !reflect.DeepEqual(getHeaders.BlockLocatorHashes, []*chainhash.Hash(locator)) {
		t.Fatalf("NewMsgGetHeaders: unexpected locator hashes %v",
			spew.Sdump(getHeaders.BlockLocatorHashes))
	}
	if getHeaders.HashStop != hashStop {
		t.Fatalf("NewMsgGetHeaders: unexpected stop hash %v",
			getHeaders.HashStop)
	}

	getBlocks, err := locator.NewMsgGetBlocks(nil)
	if err != nil {
		t.Fatalf("NewMsgGetBlocks: unexpected error: %v", err)
	}
	if !reflect.DeepEqual(getBlocks.BlockLocatorHashes, []*chainhash.Hash(locator)) {
		t.Fatalf("NewMsgGetBlocks: unexpected locator hashes %v",
			spew.Sdump(getBlocks.BlockLocatorHashes))
	}
	if getBlocks.HashStop != *zeroHash {
		t.Fatalf("NewMsgGetBlocks: unexpected stop hash %v",
			getBlocks.HashStop)
	}
}

// TestHashSchemeStringer tests the stringized output for the HashScheme type.
func TestHashSchemeStringer(t *testing.T) {
	tests := []struct {
		in   HashScheme
		want string
	}{
		{HashSchemeWitness, "witness"},
		{HashSchemeLegacy, "legacy"},
		{0xff, "Unknown HashScheme (255)"},
	}

	for i, test := range tests {
		result := test.in.String()
		if result != test.want {
			t.Errorf("String #%d\n got: %s want: %s", i, result, test.want)
			continue
		}
	}
}
