// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package bloom builds the BIP 37 bloom filter the wallet loads onto
// each peer connection so it receives only transactions and merkle
// blocks touching its own public-key hashes (spec.md Section 2 item
// 5, Section 4.7 filterload).
package bloom

import (
	"math"

	"github.com/coinlantern/spvwallet/waltterr"
)

const (
	maxFilterBits     = 36000 * 8
	maxHashFuncs      = 50
	ln2Squared        = math.Ln2 * math.Ln2
	bloomUpdateNone   = 0
	filterTweakConst  = 0xfba4c795
)

// Filter is a BIP 37 bloom filter: a bit array tested with HashFuncs
// independent hash functions, each seeded by its index and a random
// per-filter tweak so two wallets never produce identical filters for
// the same element set.
type Filter struct {
	bits      []byte
	hashFuncs uint32
	tweak     uint32
}

// New sizes a filter for up to n elements at false-positive rate p,
// following BIP 37's formulas for bit-array size and hash-function
// count, each clamped to the protocol maximum.
func New(n uint32, p float64, tweak uint32) *Filter {
	bitCount := uint32(-1 / ln2Squared * float64(n) * math.Log(p))
	if bitCount > maxFilterBits {
		bitCount = maxFilterBits
	}
	if bitCount < 8 {
		bitCount = 8
	}
	byteCount := (bitCount + 7) / 8

	hashFuncs := uint32(float64(byteCount*8) / float64(n) * math.Ln2)
	if hashFuncs > maxHashFuncs {
		hashFuncs = maxHashFuncs
	}
	if hashFuncs < 1 {
		hashFuncs = 1
	}

	return &Filter{
		bits:      make([]byte, byteCount),
		hashFuncs: hashFuncs,
		tweak:     tweak,
	}
}

// Add inserts data's membership into the filter.
func (f *Filter) Add(data []byte) {
	for i := uint32(0); i < f.hashFuncs; i++ {
		idx := f.hash(i, data) % uint32(len(f.bits)*8)
		f.bits[idx/8] |= 1 << (idx % 8)
	}
}

// Matches reports whether data may be a member: false means
// definitely not a member, true means possibly a member.
func (f *Filter) Matches(data []byte) bool {
	for i := uint32(0); i < f.hashFuncs; i++ {
		idx := f.hash(i, data) % uint32(len(f.bits)*8)
		if f.bits[idx/8]&(1<<(idx%8)) == 0 {
			return false
		}
	}
	return true
}

// hash computes the BIP 37 per-element, per-round murmur3 hash: the
// seed is the round index scaled by a fixed constant plus the
// filter's tweak.
func (f *Filter) hash(hashNum uint32, data []byte) uint32 {
	seed := hashNum*filterTweakConst + f.tweak
	return murmur3(seed, data)
}

// MsgFilterLoad returns the wire parameters needed to install this
// filter on a peer connection: the raw bit array, the hash-function
// count, and the tweak, each as spec.md Section 4.7's filterload
// message requires.
func (f *Filter) MsgFilterLoad() (bits []byte, hashFuncs, tweak uint32) {
	out := make([]byte, len(f.bits))
	copy(out, f.bits)
	return out, f.hashFuncs, f.tweak
}

// Load reconstructs a Filter from a received filterload message,
// rejecting a filter that exceeds BIP 37's size or hash-function caps.
func Load(bits []byte, hashFuncs, tweak uint32) (*Filter, error) {
	if len(bits)*8 > maxFilterBits {
		return nil, waltterr.New(waltterr.Malformed, "bloom filter too large")
	}
	if hashFuncs > maxHashFuncs {
		return nil, waltterr.New(waltterr.Malformed, "too many bloom hash functions")
	}
	out := make([]byte, len(bits))
	copy(out, bits)
	return &Filter{bits: out, hashFuncs: hashFuncs, tweak: tweak}, nil
}

// murmur3 implements the 32-bit murmur3 hash used by BIP 37. It is
// hand-rolled rather than imported: no library in the retrieved
// example set implements this exact variant, and the algorithm is a
// short, fully specified function.
func murmur3(seed uint32, data []byte) uint32 {
	const (
		c1 = 0xcc9e2d51
		c2 = 0x1b873593
	)

	h := seed
	nblocks := len(data) / 4
	for i := 0; i < nblocks; i++ {
		k := uint32(data[i*4]) | uint32(data[i*4+1])<<8 | uint32(data[i*4+2])<<16 | uint32(data[i*4+3])<<24
		k *= c1
		k = (k << 15) | (k >> 17)
		k *= c2

		h ^= k
		h = (h << 13) | (h >> 19)
		h = h*5 + 0xe6546b64
	}

	var k1 uint32
	tail := data[nblocks*4:]
	switch len(tail) {
	case 3:
		k1 ^= uint32(tail[2]) << 16
		fallthrough
	case 2:
		k1 ^= uint32(tail[1]) << 8
		fallthrough
	case 1:
		k1 ^= uint32(tail[0])
		k1 *= c1
		k1 = (k1 << 15) | (k1 >> 17)
		k1 *= c2
		h ^= k1
	}

	h ^= uint32(len(data))
	h ^= h >> 16
	h *= 0x85ebca6b
	h ^= h >> 13
	h *= 0xc2b2ae35
	h ^= h >> 16

	return h
}
