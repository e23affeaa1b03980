// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"

	"github.com/coinlantern/spvwallet/waltterr"
)

// MaxInvPerMsg bounds the number of inventory vectors a single
// inv/getdata/notfound message may carry.
const MaxInvPerMsg = 50000

func writeInvList(w io.Writer, invList []*InvVect) error {
	if err := WriteVarInt(w, uint64(len(invList))); err != nil {
		return err
	}
	for _, iv := range invList {
		if err := writeInvVect(w, iv); err != nil {
			return err
		}
	}
	return nil
}

func readInvList(r io.Reader) ([]*InvVect, error) {
	count, err := ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	if count > MaxInvPerMsg {
		return nil, waltterr.New(waltterr.Malformed, "inventory list too long")
	}
	invList := make([]*InvVect, 0, count)
	for i := uint64(0); i < count; i++ {
		iv, err := readInvVect(r)
		if err != nil {
			return nil, err
		}
		invList = append(invList, &iv)
	}
	return invList, nil
}

// MsgInv announces available transactions or blocks. The wallet learns
// of new transactions and blocks from it and uses it to announce its
// own transactions; it never relays on a peer's behalf (spec.md
// Section 4.6 Inventory Scheduler).
type MsgInv struct {
	InvList []*InvVect
}

func (m *MsgInv) Command() string                         { return CmdInv }
func (m *MsgInv) BtcEncode(w io.Writer, pver uint32) error { return writeInvList(w, m.InvList) }
func (m *MsgInv) BtcDecode(r io.Reader, pver uint32) error {
	invList, err := readInvList(r)
	if err != nil {
		return err
	}
	m.InvList = invList
	return nil
}

// MsgGetData requests the full objects named by InvList: transactions
// by hash, or a filtered merkleblock when the hash names a block and
// a bloom filter is loaded.
type MsgGetData struct {
	InvList []*InvVect
}

func (m *MsgGetData) Command() string                         { return CmdGetData }
func (m *MsgGetData) BtcEncode(w io.Writer, pver uint32) error { return writeInvList(w, m.InvList) }
func (m *MsgGetData) BtcDecode(r io.Reader, pver uint32) error {
	invList, err := readInvList(r)
	if err != nil {
		return err
	}
	m.InvList = invList
	return nil
}

// MsgNotFound is a peer's response to a getdata it could not satisfy,
// naming which requested objects it does not have.
type MsgNotFound struct {
	InvList []*InvVect
}

func (m *MsgNotFound) Command() string                         { return CmdNotFound }
func (m *MsgNotFound) BtcEncode(w io.Writer, pver uint32) error { return writeInvList(w, m.InvList) }
func (m *MsgNotFound) BtcDecode(r io.Reader, pver uint32) error {
	invList, err := readInvList(r)
	if err != nil {
		return err
	}
	m.InvList = invList
	return nil
}
