// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import "io"

// MsgVerAck acknowledges a received MsgVersion. It carries no payload.
type MsgVerAck struct{}

func (m *MsgVerAck) Command() string                       { return CmdVerAck }
func (m *MsgVerAck) BtcEncode(w io.Writer, pver uint32) error { return nil }
func (m *MsgVerAck) BtcDecode(r io.Reader, pver uint32) error { return nil }
