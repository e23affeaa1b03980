// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// MsgReject explains why a peer dropped a previously sent message. The
// message handler logs it and adds to the sending peer's ban score for
// the checkpoint, obsolete and invalid codes.
type MsgReject struct {
	Cmd    string
	Code   RejectCode
	Reason string
	Hash   chainhash.Hash
}

func (m *MsgReject) Command() string { return CmdReject }

func (m *MsgReject) BtcEncode(w io.Writer, pver uint32) error {
	if err := WriteVarString(w, m.Cmd); err != nil {
		return err
	}
	if _, err := w.Write([]byte{byte(m.Code)}); err != nil {
		return err
	}
	if err := WriteVarString(w, m.Reason); err != nil {
		return err
	}
	if m.Cmd == CmdTx || m.Cmd == CmdBlock {
		return writeHash(w, &m.Hash)
	}
	return nil
}

func (m *MsgReject) BtcDecode(r io.Reader, pver uint32) error {
	cmd, err := ReadVarString(r)
	if err != nil {
		return err
	}
	m.Cmd = cmd

	var codeByte [1]byte
	if _, err := io.ReadFull(r, codeByte[:]); err != nil {
		return err
	}
	m.Code = RejectCode(codeByte[0])

	reason, err := ReadVarString(r)
	if err != nil {
		return err
	}
	m.Reason = reason

	if m.Cmd == CmdTx || m.Cmd == CmdBlock {
		h, err := readHash(r)
		if err != nil {
			return err
		}
		m.Hash = h
	}
	return nil
}
