// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package primitives

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"
)

const (
	// WitnessSigSize is the size of the compact signature carried by headers
	// that were co-signed by a witness.
	WitnessSigSize = 65

	// LegacyHeaderSize is the number of bytes in a header serialized without
	// any of the witness fields.
	//
	// Version 4 bytes + PrevBlock 32 bytes + MerkleRoot 32 bytes + Timestamp
	// 4 bytes + Bits 4 bytes + Nonce 4 bytes.
	LegacyHeaderSize = 80

	// witnessPrefixSize is the number of bytes the witness version, time and
	// merkle root add in front of the legacy fields.
	witnessPrefixSize = 4 + 4 + chainhash.HashSize

	// MaxHeaderSize is the maximum number of bytes a fully serialized header
	// can occupy.
	MaxHeaderSize = witnessPrefixSize + LegacyHeaderSize + WitnessSigSize
)

// byteOrder is the preferred byte order used for serializing header fields.
var byteOrder = binary.LittleEndian

// BlockHeader defines information about a block.  It consists of the classic
// proof-of-work fields along with the optional witness fields that are present
// once a witness co-signs the block.  A header without a witness has both
// WitnessVersion and WitnessTimestamp set to zero.
type BlockHeader struct {
	// Witness version.  Zero when the block carries no witness header.
	WitnessVersion int32

	// Time the witness signed the block (unix seconds).  Zero when unset.
	WitnessTimestamp uint32

	// Merkle tree reference to the hash of all witness transactions.
	WitnessMerkleRoot chainhash.Hash

	// Witness signature over the witness form of the header.  Only present
	// on the wire when WitnessVersion is non-zero.
	WitnessSig [WitnessSigSize]byte

	// Version of the block.  This is not the same as the protocol version.
	Version int32

	// Witness form hash of the previous block in the block chain.
	PrevBlock chainhash.Hash

	// Merkle tree reference to hash of all transactions for the block.
	MerkleRoot chainhash.Hash

	// Time the block was created (unix seconds).
	Timestamp uint32

	// Difficulty target for the block.
	Bits uint32

	// Nonce used to generate the block.
	Nonce uint32
}

// HasWitness returns whether or not the header carries a witness header that
// takes part in the block identity.
func (h *BlockHeader) HasWitness() bool {
	return h.WitnessVersion != 0 && h.WitnessTimestamp != 0
}

// Time returns the block timestamp as a time.Time.
func (h *BlockHeader) Time() time.Time {
	return time.Unix(int64(h.Timestamp), 0)
}

// writeLegacy writes the proof-of-work fields of the header.
func (h *BlockHeader) writeLegacy(w io.Writer) error {
	var buf [LegacyHeaderSize]byte
	byteOrder.PutUint32(buf[0:4], uint32(h.Version))
	copy(buf[4:36], h.PrevBlock[:])
	copy(buf[36:68], h.MerkleRoot[:])
	byteOrder.PutUint32(buf[68:72], h.Timestamp)
	byteOrder.PutUint32(buf[72:76], h.Bits)
	byteOrder.PutUint32(buf[76:80], h.Nonce)
	_, err := w.Write(buf[:])
	return err
}

// writeWitnessPrefix writes the witness version, time and merkle root that
// precede the proof-of-work fields.
func (h *BlockHeader) writeWitnessPrefix(w io.Writer) error {
	var buf [witnessPrefixSize]byte
	byteOrder.PutUint32(buf[0:4], uint32(h.WitnessVersion))
	byteOrder.PutUint32(buf[4:8], h.WitnessTimestamp)
	copy(buf[8:], h.WitnessMerkleRoot[:])
	_, err := w.Write(buf[:])
	return err
}

// Serialize encodes the full header, including the witness signature when the
// witness version is set, to w.
func (h *BlockHeader) Serialize(w io.Writer) error {
	if err := h.writeWitnessPrefix(w); err != nil {
		return err
	}
	if err := h.writeLegacy(w); err != nil {
		return err
	}
	if h.WitnessVersion != 0 {
		if _, err := w.Write(h.WitnessSig[:]); err != nil {
			return err
		}
	}
	return nil
}

// Bytes returns the full serialization of the header.
func (h *BlockHeader) Bytes() []byte {
	buf := bytes.NewBuffer(make([]byte, 0, h.SerializeSize()))
	// Writes to a bytes.Buffer never fail.
	_ = h.Serialize(buf)
	return buf.Bytes()
}

// SerializeSize returns the number of bytes Serialize will produce.
func (h *BlockHeader) SerializeSize() int {
	if h.WitnessVersion != 0 {
		return MaxHeaderSize
	}
	return witnessPrefixSize + LegacyHeaderSize
}

// Deserialize decodes a header that was encoded with Serialize from r into
// the receiver.
func (h *BlockHeader) Deserialize(r io.Reader) error {
	var prefix [witnessPrefixSize]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return err
	}
	h.WitnessVersion = int32(byteOrder.Uint32(prefix[0:4]))
	h.WitnessTimestamp = byteOrder.Uint32(prefix[4:8])
	copy(h.WitnessMerkleRoot[:], prefix[8:])

	var buf [LegacyHeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return err
	}
	h.Version = int32(byteOrder.Uint32(buf[0:4]))
	copy(h.PrevBlock[:], buf[4:36])
	copy(h.MerkleRoot[:], buf[36:68])
	h.Timestamp = byteOrder.Uint32(buf[68:72])
	h.Bits = byteOrder.Uint32(buf[72:76])
	h.Nonce = byteOrder.Uint32(buf[76:80])

	h.WitnessSig = [WitnessSigSize]byte{}
	if h.WitnessVersion != 0 {
		if _, err := io.ReadFull(r, h.WitnessSig[:]); err != nil {
			return fmt.Errorf("unable to read witness signature: %w", err)
		}
	}
	return nil
}

// FromBytes deserializes a header from the passed byte slice.
func (h *BlockHeader) FromBytes(b []byte) error {
	return h.Deserialize(bytes.NewReader(b))
}

// LegacyHash returns the hash of the header serialized without any of the
// witness fields.  This is the identity legacy peers use for the block.
func (h *BlockHeader) LegacyHash() chainhash.Hash {
	var buf bytes.Buffer
	buf.Grow(LegacyHeaderSize)
	_ = h.writeLegacy(&buf)
	return chainhash.HashH(buf.Bytes())
}

// BlockHash returns the witness form hash of the header, which is the primary
// identity of a block.  The witness version, time and merkle root take part
// in it when the header carries a witness.  The witness signature never does.
// Headers without a witness hash to the same value as LegacyHash.
func (h *BlockHeader) BlockHash() chainhash.Hash {
	if !h.HasWitness() {
		return h.LegacyHash()
	}

	var buf bytes.Buffer
	buf.Grow(witnessPrefixSize + LegacyHeaderSize)
	_ = h.writeWitnessPrefix(&buf)
	_ = h.writeLegacy(&buf)
	return chainhash.HashH(buf.Bytes())
}
