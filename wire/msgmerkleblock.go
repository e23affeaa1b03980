// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/coinlantern/spvwallet/waltterr"
)

// maxFlagsPerMerkleBlock bounds the flag-bit bitmap of a merkleblock,
// matching the input bound: one flag bit can never need more bytes
// than there are leaves in the partial tree.
const maxFlagsPerMerkleBlock = MaxTxInPerMessage / 8

// MsgMerkleBlock is a block header plus a partial Merkle tree proving
// inclusion of the Hashes that matched the peer's bloom filter
// (BIP 37; spec.md Section 4.1 filtered-block proof).
type MsgMerkleBlock struct {
	Header       BlockHeader
	Transactions uint32
	Hashes       []chainhash.Hash
	Flags        []byte
}

func (m *MsgMerkleBlock) Command() string { return CmdMerkleBlock }

func (m *MsgMerkleBlock) BtcEncode(w io.Writer, pver uint32) error {
	if err := writeBlockHeader(w, &m.Header); err != nil {
		return err
	}
	if err := writeUint32(w, m.Transactions); err != nil {
		return err
	}
	if err := WriteVarInt(w, uint64(len(m.Hashes))); err != nil {
		return err
	}
	for _, h := range m.Hashes {
		hh := h
		if err := writeHash(w, &hh); err != nil {
			return err
		}
	}
	return WriteVarBytes(w, m.Flags)
}

func (m *MsgMerkleBlock) BtcDecode(r io.Reader, pver uint32) error {
	hdr, err := readBlockHeader(r)
	if err != nil {
		return err
	}
	m.Header = *hdr

	txCount, err := readUint32(r)
	if err != nil {
		return err
	}
	m.Transactions = txCount

	hashCount, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if hashCount > MaxTxInPerMessage {
		return waltterr.New(waltterr.Malformed, "merkleblock hash list too long")
	}
	m.Hashes = make([]chainhash.Hash, 0, hashCount)
	for i := uint64(0); i < hashCount; i++ {
		h, err := readHash(r)
		if err != nil {
			return err
		}
		m.Hashes = append(m.Hashes, h)
	}

	flags, err := ReadVarBytes(r, maxFlagsPerMerkleBlock, "merkleblock flags")
	if err != nil {
		return err
	}
	m.Flags = flags
	return nil
}
