// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"
	"time"

	"github.com/centure/chainindex/primitives"
	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/math/uint256"
)

// zeroHash is the zero value for a chainhash.Hash and is defined as a package
// level variable to avoid the need to create a new instance every time a check
// is needed.
var zeroHash = &chainhash.Hash{}

// FullValidity is the validation level a block has reached on the full
// validation ladder.  Levels are cumulative: a block at a given level also
// passed every lower level.
type FullValidity uint8

const (
	// ValidityUnknown is the level of a block nothing is known about yet.
	ValidityUnknown FullValidity = iota

	// ValidityHeader means the header parsed and its proof of work and
	// timestamp checks passed.
	ValidityHeader

	// ValidityTree means every parent is available and at least at
	// ValidityTree, so the block is part of the connected block tree.
	ValidityTree

	// ValidityTransactions means the transactions are valid on their own and
	// the block and every ancestor has data available.
	ValidityTransactions

	// ValidityChain means spends and other chain level rules were checked.
	ValidityChain

	// ValidityScripts means scripts and signatures were checked.
	ValidityScripts
)

// validityStrings is a map of full validity levels back to their constant
// names for pretty printing.
var validityStrings = map[FullValidity]string{
	ValidityUnknown:      "ValidityUnknown",
	ValidityHeader:       "ValidityHeader",
	ValidityTree:         "ValidityTree",
	ValidityTransactions: "ValidityTransactions",
	ValidityChain:        "ValidityChain",
	ValidityScripts:      "ValidityScripts",
}

// String returns the FullValidity as a human-readable name.
func (v FullValidity) String() string {
	if s, ok := validityStrings[v]; ok {
		return s
	}
	return fmt.Sprintf("Unknown FullValidity (%d)", uint8(v))
}

// PartialValidity is the validation level a block has reached on the partial
// ladder used for the header-first partial chain.
type PartialValidity uint8

const (
	// PartialValidityUnknown is the level of a block with no partial
	// validation.
	PartialValidityUnknown PartialValidity = iota

	// PartialValidityTree means the block and every parent are in the partial
	// tree.
	PartialValidityTree

	// PartialValidityTransactions is the partial analog of
	// ValidityTransactions.
	PartialValidityTransactions

	// PartialValidityReserved1 and PartialValidityReserved2 claim levels for
	// future partial validation stages.
	PartialValidityReserved1
	PartialValidityReserved2
)

// These constants define the packed representation of a BlockStatus.  The
// layout is the one used by the on-disk block index and must not change.
const (
	statusValidityMask     uint32 = 0x07
	statusHaveData         uint32 = 8
	statusHaveUndo         uint32 = 16
	statusFailedValid      uint32 = 32
	statusFailedChild      uint32 = 64
	statusOptWitness       uint32 = 128
	statusPartialTree      uint32 = 256
	statusPartialTxns      uint32 = 512
	statusPartialReserved1 uint32 = 1024
	statusPartialReserved2 uint32 = 2048
	statusPartialMask      uint32 = statusPartialTree | statusPartialTxns |
		statusPartialReserved1 | statusPartialReserved2
)

// partialValidityBits maps partial validity levels to their packed bit.
var partialValidityBits = [...]uint32{
	PartialValidityUnknown:      0,
	PartialValidityTree:         statusPartialTree,
	PartialValidityTransactions: statusPartialTxns,
	PartialValidityReserved1:    statusPartialReserved1,
	PartialValidityReserved2:    statusPartialReserved2,
}

// BlockStatus houses the validation state and data availability of a block.
type BlockStatus struct {
	Validity    FullValidity
	Partial     PartialValidity
	Failed      bool
	FailedChild bool
	HaveData    bool
	HaveUndo    bool
	OptWitness  bool
}

// KnownInvalid returns whether the block, or one of its ancestors, is known
// to have failed validation.
func (s BlockStatus) KnownInvalid() bool {
	return s.Failed || s.FailedChild
}

// IsValid returns whether the block reached at least the provided level on the
// full ladder and is not known to be invalid.
func (s BlockStatus) IsValid(upTo FullValidity) bool {
	return !s.KnownInvalid() && s.Validity >= upTo
}

// IsPartialValid returns whether the block reached at least the provided level
// on the partial ladder and is not known to be invalid.
func (s BlockStatus) IsPartialValid(upTo PartialValidity) bool {
	return !s.KnownInvalid() && s.Partial >= upTo
}

// Bits returns the packed representation of the status.
func (s BlockStatus) Bits() uint32 {
	bits := uint32(s.Validity) & statusValidityMask
	if int(s.Partial) < len(partialValidityBits) {
		bits |= partialValidityBits[s.Partial]
	}
	if s.HaveData {
		bits |= statusHaveData
	}
	if s.HaveUndo {
		bits |= statusHaveUndo
	}
	if s.Failed {
		bits |= statusFailedValid
	}
	if s.FailedChild {
		bits |= statusFailedChild
	}
	if s.OptWitness {
		bits |= statusOptWitness
	}
	return bits
}

// StatusFromBits decodes a packed status as produced by BlockStatus.Bits.
func StatusFromBits(bits uint32) BlockStatus {
	s := BlockStatus{
		Validity:    FullValidity(bits & statusValidityMask),
		HaveData:    bits&statusHaveData != 0,
		HaveUndo:    bits&statusHaveUndo != 0,
		Failed:      bits&statusFailedValid != 0,
		FailedChild: bits&statusFailedChild != 0,
		OptWitness:  bits&statusOptWitness != 0,
	}
	if s.Validity > ValidityScripts {
		s.Validity = ValidityScripts
	}
	partial := bits & statusPartialMask
	for level := len(partialValidityBits) - 1; level > 0; level-- {
		if partial >= partialValidityBits[level] {
			s.Partial = PartialValidity(level)
			break
		}
	}
	return s
}

// BlockNode represents a block within the block tree.  Nodes form a tree
// through their parent links and every node is reachable from the genesis
// block.  The skip link provides a deterministic single level skip list that
// makes ancestor lookups logarithmic.
type BlockNode struct {
	// parent is the parent block for this node.
	parent *BlockNode

	// skip points at the ancestor at SkipHeight(height).
	skip *BlockNode

	// hash is the block hash of the block this node represents and
	// legacyHash the hash of its header without witness fields.
	hash       chainhash.Hash
	legacyHash chainhash.Hash

	// workSum is the total amount of work in the chain up to and including
	// this node.
	workSum uint256.Uint256

	// Fields from the block header.  These must be treated as immutable.
	height            int64
	timestamp         int64
	witnessTimestamp  int64
	timeMax           int64
	version           int32
	witnessVersion    int32
	bits              uint32
	nonce             uint32
	merkleRoot        chainhash.Hash
	witnessMerkleRoot chainhash.Hash
	witnessSig        [primitives.WitnessSigSize]byte

	// status is the validation state of the block.  Once the node is part
	// of a BlockIndex it must only be updated through the index.
	status BlockStatus

	// sequenceID is the order in which block data was received.  It is only
	// kept in memory.
	sequenceID int32
}

// clearLowestOneBit clears the lowest set bit in the passed value.
func clearLowestOneBit(n int64) int64 {
	return n & (n - 1)
}

// SkipHeight returns the height of the ancestor the skip link of a node at the
// provided height points at.  Odd heights jump further back than the
// neighbouring even heights which keeps lookups logarithmic in both the number
// of skips and the number of single steps.  The result is always less than
// the provided height for heights of two or more.
func SkipHeight(height int64) int64 {
	if height < 2 {
		return 0
	}

	if height&1 != 0 {
		return clearLowestOneBit(clearLowestOneBit(height-1)) + 1
	}
	return clearLowestOneBit(height)
}

// NewBlockNode returns a new block node for the given block header and parent
// node.  The height, skip link, cumulative work and maximum time are derived
// from the parent, which is nil for the genesis block.  The status starts out
// unknown.
func NewBlockNode(header *primitives.BlockHeader, parent *BlockNode) *BlockNode {
	node := &BlockNode{
		hash:              header.BlockHash(),
		legacyHash:        header.LegacyHash(),
		workSum:           primitives.CalcWork(header.Bits),
		timestamp:         int64(header.Timestamp),
		witnessTimestamp:  int64(header.WitnessTimestamp),
		version:           header.Version,
		witnessVersion:    header.WitnessVersion,
		bits:              header.Bits,
		nonce:             header.Nonce,
		merkleRoot:        header.MerkleRoot,
		witnessMerkleRoot: header.WitnessMerkleRoot,
		witnessSig:        header.WitnessSig,
	}
	node.timeMax = node.timestamp
	if parent != nil {
		node.parent = parent
		node.height = parent.height + 1
		node.workSum.Add(&parent.workSum)
		if parent.timeMax > node.timeMax {
			node.timeMax = parent.timeMax
		}
		node.BuildSkip()
	}
	return node
}

// Hash returns the block hash of the node.
func (node *BlockNode) Hash() chainhash.Hash {
	return node.hash
}

// LegacyHash returns the hash of the header without witness fields.
func (node *BlockNode) LegacyHash() chainhash.Hash {
	return node.legacyHash
}

// Height returns the height of the node.
func (node *BlockNode) Height() int64 {
	return node.height
}

// Parent returns the parent of the node or nil for the genesis block.
func (node *BlockNode) Parent() *BlockNode {
	return node.parent
}

// WorkSum returns the cumulative work of the chain ending at the node.
func (node *BlockNode) WorkSum() uint256.Uint256 {
	return node.workSum
}

// Bits returns the difficulty bits of the block.
func (node *BlockNode) Bits() uint32 {
	return node.bits
}

// Timestamp returns the block time in unix seconds.
func (node *BlockNode) Timestamp() int64 {
	return node.timestamp
}

// WitnessTimestamp returns the witness time in unix seconds or zero when the
// block carries no witness time.
func (node *BlockNode) WitnessTimestamp() int64 {
	return node.witnessTimestamp
}

// TimeMax returns the maximum block time of the node and all of its
// ancestors.  It is non-decreasing along every path from genesis.
func (node *BlockNode) TimeMax() int64 {
	return node.timeMax
}

// Status returns the validation state of the node.
func (node *BlockNode) Status() BlockStatus {
	return node.status
}

// SequenceID returns the order in which the block data of the node was
// received, or zero when it was not received in this session.
func (node *BlockNode) SequenceID() int32 {
	return node.sequenceID
}

// IsValid is shorthand for Status().IsValid.
func (node *BlockNode) IsValid(upTo FullValidity) bool {
	return node.status.IsValid(upTo)
}

// IsPartialValid is shorthand for Status().IsPartialValid.
func (node *BlockNode) IsPartialValid(upTo PartialValidity) bool {
	return node.status.IsPartialValid(upTo)
}

// RaiseValidity raises the full validity level of the node to the provided
// level.  It returns whether the level changed.  Nodes known to be invalid are
// never raised.
func (node *BlockNode) RaiseValidity(upTo FullValidity) bool {
	if upTo > ValidityScripts {
		panicf("invalid full validity level %d", upTo)
	}
	if node.status.KnownInvalid() || node.status.Validity >= upTo {
		return false
	}
	node.status.Validity = upTo
	return true
}

// RaisePartialValidity raises the partial validity level of the node to the
// provided level.  It returns whether the level changed.  Nodes known to be
// invalid are never raised.
func (node *BlockNode) RaisePartialValidity(upTo PartialValidity) bool {
	if upTo > PartialValidityReserved2 {
		panicf("invalid partial validity level %d", upTo)
	}
	if node.status.KnownInvalid() || node.status.Partial >= upTo {
		return false
	}
	node.status.Partial = upTo
	return true
}

// Header constructs a block header from the node and returns it.
func (node *BlockNode) Header() primitives.BlockHeader {
	prevHash := zeroHash
	if node.parent != nil {
		prevHash = &node.parent.hash
	}
	return primitives.BlockHeader{
		WitnessVersion:    node.witnessVersion,
		WitnessTimestamp:  uint32(node.witnessTimestamp),
		WitnessMerkleRoot: node.witnessMerkleRoot,
		WitnessSig:        node.witnessSig,
		Version:           node.version,
		PrevBlock:         *prevHash,
		MerkleRoot:        node.merkleRoot,
		Timestamp:         uint32(node.timestamp),
		Bits:              node.bits,
		Nonce:             node.nonce,
	}
}

// Time returns the block time as a time.Time.
func (node *BlockNode) Time() time.Time {
	return time.Unix(node.timestamp, 0)
}

// String returns a short description of the node.
func (node *BlockNode) String() string {
	return fmt.Sprintf("%v (height %d)", node.hash, node.height)
}

// BuildSkip links the node to the ancestor at SkipHeight of its height.  The
// parent chain must already be linked.
func (node *BlockNode) BuildSkip() {
	if node.parent != nil {
		node.skip = node.parent.Ancestor(SkipHeight(node.height))
	}
}

// Ancestor returns the ancestor block node at the provided height by following
// the chain backwards from this node.  The returned block will be nil when a
// height is requested that is after the height of the passed node or is less
// than zero, or when the path is not linked back far enough.
func (node *BlockNode) Ancestor(height int64) *BlockNode {
	if height < 0 || height > node.height {
		return nil
	}

	n := node
	heightWalk := node.height
	for heightWalk > height {
		heightSkip := SkipHeight(heightWalk)
		heightSkipPrev := SkipHeight(heightWalk - 1)

		// Only follow the skip link when the parent's skip link would not be
		// a better choice.
		if n.skip != nil && (heightSkip == height || (heightSkip > height &&
			!(heightSkipPrev < heightSkip-2 && heightSkipPrev >= height))) {

			n = n.skip
			heightWalk = heightSkip
			continue
		}

		if n.parent == nil {
			return nil
		}
		n = n.parent
		heightWalk--
	}
	return n
}

// RelativeAncestor returns the ancestor block node a relative 'distance' blocks
// before this node.  This is equivalent to calling Ancestor with the node's
// height minus provided distance.
func (node *BlockNode) RelativeAncestor(distance int64) *BlockNode {
	return node.Ancestor(node.height - distance)
}

// clone returns a copy of the node that shares its parent and skip links.
func (node *BlockNode) clone() *BlockNode {
	n := *node
	return &n
}
