// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import "io"

// MsgPing carries a nonce the peer must echo back in a MsgPong,
// letting the reactor detect a dead connection (spec.md Section 4.5
// housekeeping timers).
type MsgPing struct {
	Nonce uint64
}

func (m *MsgPing) Command() string                           { return CmdPing }
func (m *MsgPing) BtcEncode(w io.Writer, pver uint32) error { return writeUint64(w, m.Nonce) }
func (m *MsgPing) BtcDecode(r io.Reader, pver uint32) error {
	n, err := readUint64(r)
	if err != nil {
		return err
	}
	m.Nonce = n
	return nil
}

// MsgPong answers a MsgPing by echoing its nonce.
type MsgPong struct {
	Nonce uint64
}

func (m *MsgPong) Command() string                           { return CmdPong }
func (m *MsgPong) BtcEncode(w io.Writer, pver uint32) error { return writeUint64(w, m.Nonce) }
func (m *MsgPong) BtcDecode(r io.Reader, pver uint32) error {
	n, err := readUint64(r)
	if err != nil {
		return err
	}
	m.Nonce = n
	return nil
}
