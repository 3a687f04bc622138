// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"sort"

	"github.com/centure/chainindex/chaincfg"
)

// timeSorter implements sort.Interface to allow a slice of timestamps to
// be sorted.
type timeSorter []int64

// Len returns the number of timestamps in the slice.  It is part of the
// sort.Interface implementation.
func (s timeSorter) Len() int {
	return len(s)
}

// Swap swaps the timestamps at the passed indices.  It is part of the
// sort.Interface implementation.
func (s timeSorter) Swap(i, j int) {
	s[i], s[j] = s[j], s[i]
}

// Less returns whether the timestamp with index i should sort before the
// timestamp with index j.  It is part of the sort.Interface implementation.
func (s timeSorter) Less(i, j int) bool {
	return s[i] < s[j]
}

// medianTimeBlocks returns the number of blocks, including the node itself,
// that take part in the median time past of the node.
func (node *BlockNode) medianTimeBlocks(params *chaincfg.Params) int {
	if node.height > params.ReducedMedianTimeHeight || params.ReducedMedianTime {
		return params.ReducedMedianTimeBlocks
	}
	return params.MedianTimeBlocks
}

// witnessTimeOrBlockTime returns the witness time of the node when it has one
// and the block time otherwise.
func (node *BlockNode) witnessTimeOrBlockTime() int64 {
	if node.witnessTimestamp != 0 {
		return node.witnessTimestamp
	}
	return node.timestamp
}

// collectTimes gathers up to numBlocks values produced by the passed function
// for the node and its ancestors.
func (node *BlockNode) collectTimes(numBlocks int, timeOf func(*BlockNode) int64) []int64 {
	timestamps := make([]int64, 0, numBlocks)
	for n := node; n != nil && len(timestamps) < numBlocks; n = n.parent {
		timestamps = append(timestamps, timeOf(n))
	}
	return timestamps
}

// medianOf sorts the passed timestamps and returns the element in the middle.
//
// NOTE: This does not average the middle elements of an even sized set.  The
// window is odd, so an even count only happens near the start of the chain.
func medianOf(timestamps []int64) int64 {
	sort.Sort(timeSorter(timestamps))
	return timestamps[len(timestamps)/2]
}

// CalcPastMedianTimeLegacy calculates the median of the block times of the
// previous few blocks prior to, and including, the block node.  Witness times
// are ignored.
func (node *BlockNode) CalcPastMedianTimeLegacy(params *chaincfg.Params) int64 {
	numBlocks := node.medianTimeBlocks(params)
	return medianOf(node.collectTimes(numBlocks, func(n *BlockNode) int64 {
		return n.timestamp
	}))
}

// CalcPastMedianTimeWitness calculates the median of the witness times of the
// previous few blocks prior to, and including, the block node.  Blocks without
// a witness time contribute their block time.
func (node *BlockNode) CalcPastMedianTimeWitness(params *chaincfg.Params) int64 {
	numBlocks := node.medianTimeBlocks(params)
	return medianOf(node.collectTimes(numBlocks,
		(*BlockNode).witnessTimeOrBlockTime))
}

// CalcPastMedianTime calculates the median time past of the block node.
//
// Once a block carries a witness time beyond the witness median height, every
// block in the window contributes two values, its witness time (or block time
// when it has none) and its block time, and the median is the average of the
// two middle values of the combined set.  Otherwise it is the same as
// CalcPastMedianTimeLegacy.
func (node *BlockNode) CalcPastMedianTime(params *chaincfg.Params) int64 {
	numBlocks := node.medianTimeBlocks(params)
	if node.witnessTimestamp == 0 || node.height <= params.WitnessMedianTimeHeight {
		return node.CalcPastMedianTimeLegacy(params)
	}

	timestamps := make([]int64, 0, numBlocks*2)
	for n := node; n != nil && len(timestamps) < numBlocks*2; n = n.parent {
		timestamps = append(timestamps, n.witnessTimeOrBlockTime(), n.timestamp)
	}
	sort.Sort(timeSorter(timestamps))
	mid := len(timestamps) / 2
	return (timestamps[mid-1] + timestamps[mid]) / 2
}
