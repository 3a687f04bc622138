// Copyright (c) 2021-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package primitives

import (
	"github.com/decred/dcrd/math/uint256"
)

// DiffBitsToUint256 converts the compact representation used to encode
// difficulty targets to an unsigned 256-bit integer.
//
// The most significant 8 bits are an unsigned base 256 exponent, bit 23 is the
// sign bit and the least significant 23 bits are the mantissa:
//
//	N = (-1^sign) * mantissa * 256^(exponent-3)
//
// The encoding can represent negative numbers as well as numbers larger than
// the maximum uint256.  Rather than producing a big integer, flags are
// returned to report both conditions.
func DiffBitsToUint256(bits uint32) (n uint256.Uint256, isNegative bool, overflows bool) {
	mantissa := bits & 0x007fffff
	isSignBitSet := bits&0x00800000 != 0
	exponent := bits >> 24

	// A zero mantissa is zero regardless of the exponent and sign.
	if mantissa == 0 {
		return n, false, false
	}

	if exponent <= 3 {
		n.SetUint64(uint64(mantissa >> (8 * (3 - exponent))))
		return n, isSignBitSet, false
	}

	// An encoded exponent of 35 or more always needs more than 256 bits.  At
	// 34 there is room for 8 mantissa bits and at 33 for 16.
	overflows = exponent >= 35 || (exponent >= 34 && mantissa > 0xff) ||
		(exponent >= 33 && mantissa > 0xffff)
	if overflows {
		return n, isSignBitSet, true
	}
	n.SetUint64(uint64(mantissa))
	n.Lsh(8 * (exponent - 3))
	return n, isSignBitSet, false
}

// uint256ToDiffBits converts a uint256 to its compact representation.  The
// isNegative flag sets the sign bit, which is only ever useful for tests since
// targets are unsigned.
func uint256ToDiffBits(n *uint256.Uint256, isNegative bool) uint32 {
	if n.IsZero() {
		return 0
	}

	// The exponent is the number of bytes needed to represent the value.
	var mantissa uint32
	exponent := uint32((n.BitLen() + 7) / 8)
	if exponent <= 3 {
		mantissa = n.Uint32() << (8 * (3 - exponent))
	} else {
		mantissa = new(uint256.Uint256).RshVal(n, 8*(exponent-3)).Uint32()
	}

	// The mantissa must not occupy the sign bit.
	if mantissa&0x00800000 != 0 {
		mantissa >>= 8
		exponent++
	}

	bits := exponent<<24 | mantissa
	if isNegative {
		bits |= 0x00800000
	}
	return bits
}

// Uint256ToDiffBits converts a uint256 to the compact representation used for
// difficulty targets.  Only the 23 most significant bits of precision are
// kept.  See DiffBitsToUint256 for details.
func Uint256ToDiffBits(n *uint256.Uint256) uint32 {
	return uint256ToDiffBits(n, false)
}

// CalcWork calculates the amount of work a block with the provided difficulty
// bits represents, which is the expected number of hashes needed to find a
// hash at or below the target:
//
//	work = 2^256 / (target+1)
//
// The result is zero when the bits encode a negative, overflowing or zero
// target.  Such bits never appear in valid headers.
func CalcWork(diffBits uint32) uint256.Uint256 {
	target, isNegative, overflows := DiffBitsToUint256(diffBits)
	if isNegative || overflows || target.IsZero() {
		return uint256.Uint256{}
	}

	// 2^256 does not fit in a uint256, so use the equivalent form:
	//
	//	2^256 / (target+1) = ((2^256-target-1) / (target+1)) + 1
	//
	// where 2^256-target-1 is the bitwise not of the target.  A target of
	// 2^256-1 cannot be encoded in compact form, so the divisor never wraps
	// to zero.
	divisor := new(uint256.Uint256).SetUint64(1).Add(&target)
	return *target.Not().Div(divisor).AddUint64(1)
}
