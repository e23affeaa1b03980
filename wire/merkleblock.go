// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/coinlantern/spvwallet/waltterr"
)

// treeHeight returns the number of levels above the leaves in a
// Merkle tree over n transactions (BIP 37 partial tree convention).
func treeHeight(n uint32) uint32 {
	var h uint32
	for treeWidth(h, n) > 1 {
		h++
	}
	return h
}

// treeWidth returns the number of nodes at the given height (0 =
// leaves) of a Merkle tree over n transactions.
func treeWidth(height, n uint32) uint32 {
	return (n + (1 << height) - 1) >> height
}

// partialTreeExtractor walks a BIP 37 partial Merkle tree, consuming
// flag bits and hashes in depth-first pre-order to recompute the
// Merkle root and collect the hashes the submitting peer flagged as
// matching its bloom filter.
type partialTreeExtractor struct {
	numTx    uint32
	hashes   []chainhash.Hash
	flags    []byte
	bitsUsed int
	hashUsed int
	matched  []chainhash.Hash
}

func (p *partialTreeExtractor) bit() (bool, error) {
	idx := p.bitsUsed / 8
	if idx >= len(p.flags) {
		return false, waltterr.New(waltterr.Verification, "partial merkle tree ran out of flag bits")
	}
	b := (p.flags[idx] >> uint(p.bitsUsed%8)) & 1
	p.bitsUsed++
	return b == 1, nil
}

func (p *partialTreeExtractor) nextHash() (chainhash.Hash, error) {
	if p.hashUsed >= len(p.hashes) {
		return chainhash.Hash{}, waltterr.New(waltterr.Verification, "partial merkle tree ran out of hashes")
	}
	h := p.hashes[p.hashUsed]
	p.hashUsed++
	return h, nil
}

func (p *partialTreeExtractor) recurse(height, pos uint32) (chainhash.Hash, error) {
	parentOfMatch, err := p.bit()
	if err != nil {
		return chainhash.Hash{}, err
	}

	if height == 0 || !parentOfMatch {
		h, err := p.nextHash()
		if err != nil {
			return chainhash.Hash{}, err
		}
		if height == 0 && parentOfMatch {
			p.matched = append(p.matched, h)
		}
		return h, nil
	}

	left, err := p.recurse(height-1, pos*2)
	if err != nil {
		return chainhash.Hash{}, err
	}
	right := left
	if pos*2+1 < treeWidth(height-1, p.numTx) {
		right, err = p.recurse(height-1, pos*2+1)
		if err != nil {
			return chainhash.Hash{}, err
		}
	}

	var buf [64]byte
	copy(buf[:32], left[:])
	copy(buf[32:], right[:])
	return chainhash.DoubleHashH(buf[:]), nil
}

// ExtractMatches reconstructs the Merkle root committed to by m's
// partial tree and returns the transaction hashes flagged as matches.
// The caller must additionally compare the returned root against
// m.Header.MerkleRoot (spec.md Section 4.7 merkleblock handling).
func (m *MsgMerkleBlock) ExtractMatches() (root chainhash.Hash, matched []chainhash.Hash, err error) {
	if m.Transactions == 0 {
		return chainhash.Hash{}, nil, waltterr.New(waltterr.Verification, "merkleblock claims zero transactions")
	}
	if len(m.Hashes) > int(MaxTxInPerMessage) {
		return chainhash.Hash{}, nil, waltterr.New(waltterr.Malformed, "too many hashes in merkleblock")
	}

	p := &partialTreeExtractor{numTx: m.Transactions, hashes: m.Hashes, flags: m.Flags}
	root, err = p.recurse(treeHeight(m.Transactions), 0)
	if err != nil {
		return chainhash.Hash{}, nil, err
	}
	return root, p.matched, nil
}
