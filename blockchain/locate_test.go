// Copyright (c) 2018-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"testing"

	"github.com/decred/dcrd/chaincfg/chainhash"
)

// TestFindForkInChain ensures the fork point of a locator and a view is found.
func TestFindForkInChain(t *testing.T) {
	bi, main := newTestIndex(18)
	side := addFakeBranch(bi, main[15], 2)
	mainView := NewChain(branchTip(main))
	shortView := NewChain(main[10])
	partial := NewPartialChain(12)
	partial.SetTip(branchTip(main))

	sideLocator := NewChain(branchTip(side)).BlockLocator(nil, HashSchemeWitness)
	mainLocator := mainView.BlockLocator(nil, HashSchemeWitness)
	legacyLocator := NewChain(branchTip(side)).BlockLocator(nil, HashSchemeLegacy)
	unknown := BlockLocator{mustParseHash("0123456789")}

	tests := []struct {
		name    string
		view    ChainView
		locator BlockLocator
		scheme  HashScheme
		want    *BlockNode
	}{{
		name:    "side branch locator",
		view:    mainView,
		locator: sideLocator,
		scheme:  HashSchemeWitness,
		want:    main[15],
	}, {
		name:    "side branch legacy locator",
		view:    mainView,
		locator: legacyLocator,
		scheme:  HashSchemeLegacy,
		want:    main[15],
	}, {
		name:    "same chain",
		view:    mainView,
		locator: mainLocator,
		scheme:  HashSchemeWitness,
		want:    branchTip(main),
	}, {
		name:    "locator ahead of view",
		view:    shortView,
		locator: mainLocator,
		scheme:  HashSchemeWitness,
		want:    main[10],
	}, {
		name:    "unknown hashes",
		view:    mainView,
		locator: unknown,
		scheme:  HashSchemeWitness,
		want:    main[0],
	}, {
		name:    "empty locator",
		view:    mainView,
		locator: nil,
		scheme:  HashSchemeWitness,
		want:    main[0],
	}, {
		name:    "unknown hashes in partial chain",
		view:    partial,
		locator: unknown,
		scheme:  HashSchemeWitness,
		want:    main[12],
	}, {
		name:    "side branch locator in partial chain",
		view:    partial,
		locator: sideLocator,
		scheme:  HashSchemeWitness,
		want:    main[15],
	}}

	for _, test := range tests {
		got := bi.FindForkInChain(test.view, test.locator, test.scheme)
		if got != test.want {
			t.Errorf("%s: unexpected fork -- got %v, want %v", test.name,
				got, test.want)
		}
	}
}

// TestLocateBlocks ensures the hashes after a locator are returned with
// respect to the stop hash and the maximum number of hashes.
func TestLocateBlocks(t *testing.T) {
	bi, main := newTestIndex(18)
	side := addFakeBranch(bi, main[15], 2)
	view := NewChain(branchTip(main))
	sideLocator := NewChain(branchTip(side)).BlockLocator(nil, HashSchemeWitness)
	tipLocator := view.BlockLocator(nil, HashSchemeWitness)
	unknown := BlockLocator{mustParseHash("0123456789")}

	hashesOf := func(nodes ...*BlockNode) []chainhash.Hash {
		hashes := make([]chainhash.Hash, 0, len(nodes))
		for _, node := range nodes {
			hashes = append(hashes, node.hash)
		}
		return hashes
	}

	tests := []struct {
		name     string
		locator  BlockLocator
		hashStop *chainhash.Hash
		max      uint32
		want     []chainhash.Hash
	}{{
		name:    "after fork",
		locator: sideLocator,
		max:     500,
		want:    hashesOf(main[16:]...),
	}, {
		name:     "after fork with stop",
		locator:  sideLocator,
		hashStop: &main[17].hash,
		max:      500,
		want:     hashesOf(main[16], main[17]),
	}, {
		name:     "stop before start",
		locator:  sideLocator,
		hashStop: &main[3].hash,
		max:      500,
		want:     hashesOf(main[16:]...),
	}, {
		name:    "after fork limited",
		locator: sideLocator,
		max:     1,
		want:    hashesOf(main[16]),
	}, {
		name:     "no locator with known stop",
		hashStop: &main[5].hash,
		max:      500,
		want:     hashesOf(main[5]),
	}, {
		name:     "no locator with unknown stop",
		hashStop: unknown[0],
		max:      500,
		want:     nil,
	}, {
		name:    "locator at tip",
		locator: tipLocator,
		max:     500,
		want:    nil,
	}, {
		name:    "unknown locator",
		locator: unknown,
		max:     500,
		want:    hashesOf(main[1:]...),
	}}

	for _, test := range tests {
		got := bi.LocateBlocks(view, test.locator, HashSchemeWitness,
			test.hashStop, test.max)
		if len(got) != len(test.want) {
			t.Errorf("%s: unexpected number of hashes -- got %d, want %d",
				test.name, len(got), len(test.want))
			continue
		}
		for i := range got {
			if got[i] != test.want[i] {
				t.Errorf("%s: unexpected hash %d -- got %v, want %v",
					test.name, i, got[i], test.want[i])
			}
		}
	}
}

// TestLocateHeaders ensures the headers after a locator are returned.
func TestLocateHeaders(t *testing.T) {
	bi, main := newTestIndex(18)
	side := addFakeBranch(bi, main[15], 2)
	view := NewChain(branchTip(main))
	sideLocator := NewChain(branchTip(side)).BlockLocator(nil, HashSchemeLegacy)

	headers := bi.LocateHeaders(view, sideLocator, HashSchemeLegacy, nil)
	if len(headers) != 3 {
		t.Fatalf("unexpected number of headers %d", len(headers))
	}
	for i, header := range headers {
		node := main[16+i]
		if header.LegacyHash() != node.legacyHash {
			t.Fatalf("unexpected header %d: %v", i, header.LegacyHash())
		}
		if header.PrevBlock != node.parent.hash {
			t.Fatalf("header %d does not connect", i)
		}
	}

	// A request for a single header by its stop hash.
	headers = bi.LocateHeaders(view, nil, HashSchemeWitness, &side[0].hash)
	if len(headers) != 1 || headers[0].BlockHash() != side[0].hash {
		t.Fatalf("unexpected headers for stop hash %v", headers)
	}
}
