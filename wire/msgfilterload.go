// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"

	"github.com/coinlantern/spvwallet/waltterr"
)

// maxFilterLoadSize is BIP 37's cap on a bloom filter's byte length.
const maxFilterLoadSize = 36000

// maxFilterLoadHashFuncs is BIP 37's cap on the number of hash
// functions a filter may specify.
const maxFilterLoadHashFuncs = 50

// BloomUpdateFlag controls how a matched output updates the filter on
// the peer side (BIP 37).
type BloomUpdateFlag uint8

const (
	BloomUpdateNone         BloomUpdateFlag = 0
	BloomUpdateAll          BloomUpdateFlag = 1
	BloomUpdateP2PubkeyOnly BloomUpdateFlag = 2
)

// MsgFilterLoad installs a bloom filter on the connection so the peer
// sends only matching transactions and merkleblocks (spec.md Section
// 4.1, BIP 37).
type MsgFilterLoad struct {
	Filter    []byte
	HashFuncs uint32
	Tweak     uint32
	Flags     BloomUpdateFlag
}

func (m *MsgFilterLoad) Command() string { return CmdFilterLoad }

func (m *MsgFilterLoad) BtcEncode(w io.Writer, pver uint32) error {
	if err := WriteVarBytes(w, m.Filter); err != nil {
		return err
	}
	if err := writeUint32(w, m.HashFuncs); err != nil {
		return err
	}
	if err := writeUint32(w, m.Tweak); err != nil {
		return err
	}
	_, err := w.Write([]byte{byte(m.Flags)})
	return err
}

func (m *MsgFilterLoad) BtcDecode(r io.Reader, pver uint32) error {
	filter, err := ReadVarBytes(r, maxFilterLoadSize, "filter")
	if err != nil {
		return err
	}
	m.Filter = filter

	hashFuncs, err := readUint32(r)
	if err != nil {
		return err
	}
	if hashFuncs > maxFilterLoadHashFuncs {
		return waltterr.New(waltterr.Malformed, "too many filter hash functions")
	}
	m.HashFuncs = hashFuncs

	tweak, err := readUint32(r)
	if err != nil {
		return err
	}
	m.Tweak = tweak

	var flagByte [1]byte
	if _, err := io.ReadFull(r, flagByte[:]); err != nil {
		return waltterr.Wrap(waltterr.Malformed, "read filter flags", err)
	}
	m.Flags = BloomUpdateFlag(flagByte[0])
	return nil
}
