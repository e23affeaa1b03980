// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"

	"github.com/coinlantern/spvwallet/waltterr"
)

// MaxHeadersPerMsg is the protocol's cap on headers-message size; the
// decoder rejects a longer list. The wallet syncs through getblocks
// and merkleblock, and the message handler ignores headers messages.
const MaxHeadersPerMsg = 2000

// MsgHeaders carries block headers requested with MsgGetHeaders. Each
// header is followed by a transaction-count VarInt that is always
// zero on the wire for a headers-only reply; the wallet ignores it.
type MsgHeaders struct {
	Headers []*BlockHeader
}

func (m *MsgHeaders) Command() string { return CmdHeaders }

func (m *MsgHeaders) BtcEncode(w io.Writer, pver uint32) error {
	if err := WriteVarInt(w, uint64(len(m.Headers))); err != nil {
		return err
	}
	for _, h := range m.Headers {
		if err := writeBlockHeader(w, h); err != nil {
			return err
		}
		if err := WriteVarInt(w, 0); err != nil {
			return err
		}
	}
	return nil
}

func (m *MsgHeaders) BtcDecode(r io.Reader, pver uint32) error {
	count, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if count > MaxHeadersPerMsg {
		return waltterr.New(waltterr.Malformed, "headers list too long")
	}
	m.Headers = make([]*BlockHeader, 0, count)
	for i := uint64(0); i < count; i++ {
		h, err := readBlockHeader(r)
		if err != nil {
			return err
		}
		if _, err := ReadVarInt(r); err != nil {
			return err
		}
		m.Headers = append(m.Headers, h)
	}
	return nil
}
