// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"io"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// BlockHeaderLen is the fixed wire size of a block header: the six
// fields below, with no transaction count (spec.md Section 4.8 treats
// headers as an 80-byte record).
const BlockHeaderLen = 80

// BlockHeader is the 80-byte commitment every block makes to its
// predecessor and its transaction set. The chain engine stores these,
// never full blocks (spec.md Section 3 BlockHeader).
type BlockHeader struct {
	Version    int32
	PrevBlock  chainhash.Hash
	MerkleRoot chainhash.Hash
	Timestamp  time.Time
	Bits       uint32
	Nonce      uint32
}

func writeBlockHeader(w io.Writer, h *BlockHeader) error {
	if err := writeInt32(w, h.Version); err != nil {
		return err
	}
	if err := writeHash(w, &h.PrevBlock); err != nil {
		return err
	}
	if err := writeHash(w, &h.MerkleRoot); err != nil {
		return err
	}
	if err := writeTimestamp4(w, h.Timestamp); err != nil {
		return err
	}
	if err := writeUint32(w, h.Bits); err != nil {
		return err
	}
	return writeUint32(w, h.Nonce)
}

func readBlockHeader(r io.Reader) (*BlockHeader, error) {
	h := &BlockHeader{}
	v, err := readInt32(r)
	if err != nil {
		return nil, err
	}
	h.Version = v

	prev, err := readHash(r)
	if err != nil {
		return nil, err
	}
	h.PrevBlock = prev

	merkle, err := readHash(r)
	if err != nil {
		return nil, err
	}
	h.MerkleRoot = merkle

	ts, err := readTimestamp4(r)
	if err != nil {
		return nil, err
	}
	h.Timestamp = ts

	bits, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	h.Bits = bits

	nonce, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	h.Nonce = nonce

	return h, nil
}

// BlockHash computes the double-SHA-256 of the fixed 80-byte header,
// the identity used throughout the chain engine and wire protocol.
func (h *BlockHeader) BlockHash() chainhash.Hash {
	var buf bytes.Buffer
	buf.Grow(BlockHeaderLen)
	_ = writeBlockHeader(&buf, h)
	return chainhash.DoubleHashH(buf.Bytes())
}

// Serialize writes the fixed 80-byte header encoding.
func (h *BlockHeader) Serialize(w io.Writer) error {
	return writeBlockHeader(w, h)
}

// Deserialize reads a fixed 80-byte header encoding.
func (h *BlockHeader) Deserialize(r io.Reader) error {
	decoded, err := readBlockHeader(r)
	if err != nil {
		return err
	}
	*h = *decoded
	return nil
}
