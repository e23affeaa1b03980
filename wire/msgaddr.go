// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"

	"github.com/coinlantern/spvwallet/waltterr"
)

// MaxAddrPerMsg bounds the number of entries a single addr message may
// carry, guarding the decoder against a hostile length prefix.
const MaxAddrPerMsg = 1000

// MsgAddr carries peer addresses, gossiped in response to getaddr or
// unsolicited during normal operation (spec.md Section 4.5 address
// manager bootstrap).
type MsgAddr struct {
	AddrList []*NetAddress
}

func (m *MsgAddr) Command() string { return CmdAddr }

func (m *MsgAddr) BtcEncode(w io.Writer, pver uint32) error {
	if err := WriteVarInt(w, uint64(len(m.AddrList))); err != nil {
		return err
	}
	for _, na := range m.AddrList {
		if err := writeNetAddress(w, na, true); err != nil {
			return err
		}
	}
	return nil
}

func (m *MsgAddr) BtcDecode(r io.Reader, pver uint32) error {
	count, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if count > MaxAddrPerMsg {
		return waltterr.New(waltterr.Malformed, "addr list too long")
	}
	m.AddrList = make([]*NetAddress, 0, count)
	for i := uint64(0); i < count; i++ {
		na, err := readNetAddress(r, true)
		if err != nil {
			return err
		}
		m.AddrList = append(m.AddrList, na)
	}
	return nil
}
