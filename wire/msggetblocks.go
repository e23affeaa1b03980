// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/coinlantern/spvwallet/waltterr"
)

// MaxBlockLocatorsPerMsg bounds the number of hashes a decoded locator
// may carry; the wallet's own getblocks locator holds only its
// chain-head hash.
const MaxBlockLocatorsPerMsg = 500

func writeLocator(w io.Writer, locator []chainhash.Hash, hashStop chainhash.Hash) error {
	if err := WriteVarInt(w, uint64(len(locator))); err != nil {
		return err
	}
	for _, h := range locator {
		hh := h
		if err := writeHash(w, &hh); err != nil {
			return err
		}
	}
	return writeHash(w, &hashStop)
}

func readLocator(r io.Reader) (locator []chainhash.Hash, hashStop chainhash.Hash, err error) {
	count, err := ReadVarInt(r)
	if err != nil {
		return nil, hashStop, err
	}
	if count > MaxBlockLocatorsPerMsg {
		return nil, hashStop, waltterr.New(waltterr.Malformed, "block locator too long")
	}
	locator = make([]chainhash.Hash, 0, count)
	for i := uint64(0); i < count; i++ {
		h, err := readHash(r)
		if err != nil {
			return nil, hashStop, err
		}
		locator = append(locator, h)
	}
	hashStop, err = readHash(r)
	if err != nil {
		return nil, hashStop, err
	}
	return locator, hashStop, nil
}

// MsgGetBlocks requests inv announcements for blocks following the
// locator. The message handler sends one, with the chain head as its
// locator, once a handshake completes with a peer reporting a greater
// height.
type MsgGetBlocks struct {
	ProtocolVersion    uint32
	BlockLocatorHashes []chainhash.Hash
	HashStop           chainhash.Hash
}

func (m *MsgGetBlocks) Command() string { return CmdGetBlocks }

func (m *MsgGetBlocks) BtcEncode(w io.Writer, pver uint32) error {
	if err := writeUint32(w, m.ProtocolVersion); err != nil {
		return err
	}
	return writeLocator(w, m.BlockLocatorHashes, m.HashStop)
}

func (m *MsgGetBlocks) BtcDecode(r io.Reader, pver uint32) error {
	v, err := readUint32(r)
	if err != nil {
		return err
	}
	m.ProtocolVersion = v
	locator, stop, err := readLocator(r)
	if err != nil {
		return err
	}
	m.BlockLocatorHashes = locator
	m.HashStop = stop
	return nil
}

// MsgGetHeaders requests up to MaxHeadersPerMsg headers following the
// locator. The wallet does not send it; the message handler answers a
// peer's getheaders with an empty headers message.
type MsgGetHeaders struct {
	ProtocolVersion    uint32
	BlockLocatorHashes []chainhash.Hash
	HashStop           chainhash.Hash
}

func (m *MsgGetHeaders) Command() string { return CmdGetHeaders }

func (m *MsgGetHeaders) BtcEncode(w io.Writer, pver uint32) error {
	if err := writeUint32(w, m.ProtocolVersion); err != nil {
		return err
	}
	return writeLocator(w, m.BlockLocatorHashes, m.HashStop)
}

func (m *MsgGetHeaders) BtcDecode(r io.Reader, pver uint32) error {
	v, err := readUint32(r)
	if err != nil {
		return err
	}
	m.ProtocolVersion = v
	locator, stop, err := readLocator(r)
	if err != nil {
		return err
	}
	m.BlockLocatorHashes = locator
	m.HashStop = stop
	return nil
}
