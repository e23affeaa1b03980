// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import "io"

// MsgGetAddr requests a peer's known-address table, used by the
// address manager to bootstrap beyond its DNS seeds (spec.md
// Section 4.5).
type MsgGetAddr struct{}

func (m *MsgGetAddr) Command() string                         { return CmdGetAddr }
func (m *MsgGetAddr) BtcEncode(w io.Writer, pver uint32) error { return nil }
func (m *MsgGetAddr) BtcDecode(r io.Reader, pver uint32) error { return nil }
