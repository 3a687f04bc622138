// Copyright (c) 2018-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"reflect"
	"sync"
	"testing"
)

// assertPanics ensures the passed function panics with an AssertError.
func assertPanics(t *testing.T, name string, f func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("%s: did not panic", name)
		}
		if _, ok := r.(AssertError); !ok {
			t.Fatalf("%s: unexpected panic value %T: %v", name, r, r)
		}
	}()
	f()
}

// TestPartialChain ensures the basic functionality of partial chains works as
// intended.
func TestPartialChain(t *testing.T) {
	nodes := chainedFakeNodes(nil, 101)
	view := NewPartialChain(50)

	// Ensure an empty view reports no nodes.
	if view.Length() != 0 || view.Height() != 49 {
		t.Fatalf("unexpected empty view: length %d, height %d",
			view.Length(), view.Height())
	}
	if view.Tip() != nil || view.Genesis() != nil {
		t.Fatal("unexpected nodes in empty view")
	}
	if got := view.BlockLocator(nil, HashSchemeWitness); got != nil {
		t.Fatalf("unexpected locator for empty view: %v", got)
	}

	// The offset may change while the view is empty.
	view.SetHeightOffset(40)
	view.SetHeightOffset(50)
	if view.HeightOffset() != 50 {
		t.Fatalf("unexpected height offset %d", view.HeightOffset())
	}

	view.SetTip(branchTip(nodes))
	if view.Length() != 51 || view.Height() != 100 {
		t.Fatalf("unexpected view: length %d, height %d", view.Length(),
			view.Height())
	}
	if view.Genesis() != nodes[50] || view.Tip() != nodes[100] {
		t.Fatalf("unexpected view bounds: %v -> %v", view.Genesis(),
			view.Tip())
	}

	tests := []struct {
		height   int64
		want     *BlockNode
		contains bool
	}{
		{height: 0, want: nil, contains: false},
		{height: 49, want: nil, contains: false},
		{height: 50, want: nodes[50], contains: true},
		{height: 77, want: nodes[77], contains: true},
		{height: 100, want: nodes[100], contains: true},
		{height: 101, want: nil, contains: false},
	}
	for _, test := range tests {
		if got := view.NodeByHeight(test.height); got != test.want {
			t.Errorf("NodeByHeight(%d): unexpected node -- got %v, want %v",
				test.height, got, test.want)
		}
		if test.height <= 100 {
			node := nodes[test.height]
			if got := view.Contains(node); got != test.contains {
				t.Errorf("Contains(%d): unexpected result -- got %v, "+
					"want %v", test.height, got, test.contains)
			}
		}
	}

	// Moving the tip back keeps the offset.
	view.SetTip(nodes[60])
	if view.Length() != 11 || view.Tip() != nodes[60] {
		t.Fatalf("unexpected view after rewinding: length %d, tip %v",
			view.Length(), view.Tip())
	}

	// Ensure the offset can't be changed and the tip can't be set below it
	// while the view is populated.
	assertPanics(t, "SetHeightOffset", func() { view.SetHeightOffset(10) })
	assertPanics(t, "SetTip", func() { view.SetTip(nodes[49]) })

	// Clearing the view allows a new offset.
	view.SetTip(nil)
	if view.Length() != 0 {
		t.Fatalf("unexpected length %d after clearing", view.Length())
	}
	view.SetHeightOffset(10)
	view.SetTip(nodes[20])
	if view.Genesis() != nodes[10] || view.Length() != 11 {
		t.Fatalf("unexpected view after changing offset: %v, length %d",
			view.Genesis(), view.Length())
	}
}

// TestPartialChainFindFork ensures fork points are only found above the offset
// of the view.
func TestPartialChainFindFork(t *testing.T) {
	nodes := chainedFakeNodes(nil, 101)
	highFork := chainedFakeNodes(nodes[70], 10)
	lowFork := chainedFakeNodes(nodes[30], 10)

	view := NewPartialChain(50)
	view.SetTip(branchTip(nodes))

	tests := []struct {
		name string
		node *BlockNode
		want *BlockNode
	}{
		{name: "fork above offset", node: branchTip(highFork), want: nodes[70]},
		{name: "fork below offset", node: branchTip(lowFork), want: nil},
		{name: "node in view", node: nodes[90], want: nodes[90]},
		{name: "node below offset", node: nodes[20], want: nil},
	}

	for _, test := range tests {
		if got := view.FindFork(test.node); got != test.want {
			t.Errorf("%s: unexpected fork -- got %v, want %v", test.name,
				got, test.want)
		}
	}
}

// TestPartialChainLocator ensures locators built from partial chains end at the
// offset.
func TestPartialChainLocator(t *testing.T) {
	nodes := chainedFakeNodes(nil, 101)
	view := NewPartialChain(50)
	view.SetTip(branchTip(nodes))

	got := view.BlockLocator(nil, HashSchemeWitness)
	want := hashesAtHeights(nodes, HashSchemeWitness, 100, 99, 98, 97, 96,
		95, 94, 93, 92, 91, 90, 89, 87, 83, 75, 59, 50)
	if !locatorsEqual(got, want) {
		t.Fatalf("unexpected locator -- got %d entries, want %d entries",
			len(got), len(want))
	}

	// The locator of a node at the offset is just that node.
	got = view.BlockLocator(nodes[50], HashSchemeWitness)
	if !locatorsEqual(got, hashesAtHeights(nodes, HashSchemeWitness, 50)) {
		t.Fatalf("unexpected locator at offset: %v", got)
	}
}

// TestPartialChainLowerBound ensures the lower bound search returns the
// expected heights.
func TestPartialChainLowerBound(t *testing.T) {
	nodes := chainedFakeNodes(nil, 101)
	view := NewPartialChain(50)
	view.SetTip(branchTip(nodes))

	heightBefore := func(height int64) func(*BlockNode) bool {
		return func(n *BlockNode) bool { return n.height < height }
	}

	tests := []struct {
		name   string
		begin  int64
		end    int64
		before func(*BlockNode) bool
		want   int64
	}{{
		name:   "middle of view",
		begin:  50,
		end:    101,
		before: heightBefore(75),
		want:   75,
	}, {
		name:   "first node",
		begin:  50,
		end:    101,
		before: heightBefore(0),
		want:   50,
	}, {
		name:   "true for every node",
		begin:  50,
		end:    101,
		before: heightBefore(1000),
		want:   -1,
	}, {
		name:   "bound before range",
		begin:  80,
		end:    90,
		before: heightBefore(75),
		want:   80,
	}, {
		name:   "bound after range",
		begin:  60,
		end:    70,
		before: heightBefore(75),
		want:   -1,
	}, {
		name:   "empty range",
		begin:  60,
		end:    60,
		before: heightBefore(75),
		want:   -1,
	}}

	for _, test := range tests {
		got := view.LowerBound(test.begin, test.end, test.before)
		if got != test.want {
			t.Errorf("%s: unexpected lower bound -- got %d, want %d",
				test.name, got, test.want)
		}
	}

	assertPanics(t, "below offset", func() {
		view.LowerBound(49, 60, heightBefore(75))
	})
	assertPanics(t, "past tip", func() {
		view.LowerBound(50, 102, heightBefore(75))
	})
	assertPanics(t, "reversed", func() {
		view.LowerBound(70, 60, heightBefore(75))
	})
}

// TestPartialChainFilterRanges ensures the block filter ranges are tracked and
// copied independently of the view.
func TestPartialChainFilterRanges(t *testing.T) {
	view := NewPartialChain(0)
	if got := view.BlockFilterRanges(); len(got) != 0 {
		t.Fatalf("unexpected initial ranges %v", got)
	}

	view.SetBlockFilterRanges([]BlockFilterRange{{Start: 1, End: 10}})

	var wg sync.WaitGroup
	for i := uint64(0); i < 8; i++ {
		wg.Add(1)
		go func(i uint64) {
			defer wg.Done()
			view.AddBlockFilterRange(BlockFilterRange{Start: 100 + i,
				End: 100 + i})
		}(i)
	}
	wg.Wait()

	ranges := view.BlockFilterRanges()
	if len(ranges) != 9 || ranges[0] != (BlockFilterRange{Start: 1, End: 10}) {
		t.Fatalf("unexpected ranges %v", ranges)
	}

	// Mutating the returned copy must not affect the view.
	ranges[0].End = 0
	if got := view.BlockFilterRanges(); got[0].End != 10 {
		t.Fatalf("returned ranges alias the view: %v", got)
	}

	want := []BlockFilterRange{{Start: 5, End: 6}}
	view.SetBlockFilterRanges(want)
	if got := view.BlockFilterRanges(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected ranges -- got %v, want %v", got, want)
	}
}
