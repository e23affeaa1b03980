// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import "io"

// maxAlertPayload bounds the two opaque byte strings an alert carries.
const maxAlertPayload = 4096

// MsgAlert is the deprecated network alert system. The wallet parses
// it only so the framing stays in sync with the stream; the payload
// is never acted on (spec.md Section 4.3 calls this out explicitly as
// parse-then-ignore).
type MsgAlert struct {
	Payload   []byte
	Signature []byte
}

func (m *MsgAlert) Command() string { return CmdAlert }

func (m *MsgAlert) BtcEncode(w io.Writer, pver uint32) error {
	if err := WriteVarBytes(w, m.Payload); err != nil {
		return err
	}
	return WriteVarBytes(w, m.Signature)
}

func (m *MsgAlert) BtcDecode(r io.Reader, pver uint32) error {
	payload, err := ReadVarBytes(r, maxAlertPayload, "alert payload")
	if err != nil {
		return err
	}
	m.Payload = payload

	sig, err := ReadVarBytes(r, maxAlertPayload, "alert signature")
	if err != nil {
		return err
	}
	m.Signature = sig
	return nil
}
