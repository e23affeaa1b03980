// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"
	"time"

	"github.com/coinlantern/spvwallet/waltterr"
)

// MsgVersion is the first message exchanged on a new connection: each
// side advertises its protocol version, services, and chain tip
// (spec.md Section 4.4 handshake).
type MsgVersion struct {
	ProtocolVersion int32
	Services        ServiceFlag
	Timestamp       time.Time
	AddrRecv        NetAddress
	AddrFrom        NetAddress
	Nonce           uint64
	UserAgent       string
	LastBlock       int32
	Relay           bool
}

func (m *MsgVersion) Command() string { return CmdVersion }

func (m *MsgVersion) BtcEncode(w io.Writer, pver uint32) error {
	if err := writeInt32(w, m.ProtocolVersion); err != nil {
		return err
	}
	if err := writeUint64(w, uint64(m.Services)); err != nil {
		return err
	}
	if err := writeInt64(w, m.Timestamp.Unix()); err != nil {
		return err
	}
	if err := writeNetAddress(w, &m.AddrRecv, false); err != nil {
		return err
	}
	if err := writeNetAddress(w, &m.AddrFrom, false); err != nil {
		return err
	}
	if err := writeUint64(w, m.Nonce); err != nil {
		return err
	}
	if err := WriteVarString(w, m.UserAgent); err != nil {
		return err
	}
	if err := writeInt32(w, m.LastBlock); err != nil {
		return err
	}
	_, err := w.Write([]byte{boolByte(m.Relay)})
	return err
}

func (m *MsgVersion) BtcDecode(r io.Reader, pver uint32) error {
	v, err := readInt32(r)
	if err != nil {
		return err
	}
	m.ProtocolVersion = v

	services, err := readUint64(r)
	if err != nil {
		return err
	}
	m.Services = ServiceFlag(services)

	ts, err := readInt64(r)
	if err != nil {
		return err
	}
	m.Timestamp = time.Unix(ts, 0)

	addrRecv, err := readNetAddress(r, false)
	if err != nil {
		return err
	}
	m.AddrRecv = *addrRecv

	addrFrom, err := readNetAddress(r, false)
	if err != nil {
		return err
	}
	m.AddrFrom = *addrFrom

	nonce, err := readUint64(r)
	if err != nil {
		return err
	}
	m.Nonce = nonce

	ua, err := ReadVarString(r)
	if err != nil {
		return err
	}
	m.UserAgent = ua

	lastBlock, err := readInt32(r)
	if err != nil {
		return err
	}
	m.LastBlock = lastBlock

	// Relay is absent on very old peers; a short read here is benign
	// and defaults to true so filterless peers keep working.
	var relayByte [1]byte
	if _, err := io.ReadFull(r, relayByte[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			m.Relay = true
			return nil
		}
		return waltterr.Wrap(waltterr.Malformed, "read version relay flag", err)
	}
	m.Relay = relayByte[0] != 0
	return nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
