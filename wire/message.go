// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"strings"

	"github.com/coinlantern/spvwallet/chaincfg"
	"github.com/coinlantern/spvwallet/waltterr"
)

// Message is implemented by every message kind this wallet speaks.
// BtcEncode/BtcDecode operate on the payload only; framing is handled
// by WriteMessage/ReadMessage.
type Message interface {
	BtcDecode(r io.Reader, pver uint32) error
	BtcEncode(w io.Writer, pver uint32) error
	Command() string
}

// MsgUnknown stands in for any message whose command this package
// does not recognize. spec.md Section 4.3 calls this OBSOLETE: the
// length is sane so the frame is fully consumed, but the handler
// silently skips it rather than treating it as an error.
type MsgUnknown struct {
	RawCommand string
	Payload    []byte
}

func (m *MsgUnknown) Command() string { return m.RawCommand }
func (m *MsgUnknown) BtcDecode(r io.Reader, pver uint32) error {
	buf, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.Payload = buf
	return nil
}
func (m *MsgUnknown) BtcEncode(w io.Writer, pver uint32) error {
	_, err := w.Write(m.Payload)
	return err
}

// makeEmptyMessage constructs the zero value for a command string, or
// nil if the command is not recognized.
func makeEmptyMessage(command string) Message {
	switch command {
	case CmdVersion:
		return &MsgVersion{}
	case CmdVerAck:
		return &MsgVerAck{}
	case CmdAddr:
		return &MsgAddr{}
	case CmdInv:
		return &MsgInv{}
	case CmdGetData:
		return &MsgGetData{}
	case CmdNotFound:
		return &MsgNotFound{}
	case CmdGetBlocks:
		return &MsgGetBlocks{}
	case CmdGetHeaders:
		return &MsgGetHeaders{}
	case CmdHeaders:
		return &MsgHeaders{}
	case CmdTx:
		return &MsgTx{}
	case CmdMerkleBlock:
		return &MsgMerkleBlock{}
	case CmdPing:
		return &MsgPing{}
	case CmdPong:
		return &MsgPong{}
	case CmdReject:
		return &MsgReject{}
	case CmdFilterLoad:
		return &MsgFilterLoad{}
	case CmdGetAddr:
		return &MsgGetAddr{}
	case CmdAlert:
		return &MsgAlert{}
	default:
		return nil
	}
}

func commandBytes(command string) [CommandSize]byte {
	var buf [CommandSize]byte
	copy(buf[:], command)
	return buf
}

func checksum(payload []byte) [4]byte {
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	var c [4]byte
	copy(c[:], second[:4])
	return c
}

// WriteMessage serializes msg behind the framing envelope: magic(4),
// command(12), length(4), checksum(4), payload (spec.md Section 4.3).
func WriteMessage(w io.Writer, msg Message, pver uint32, net chaincfg.BitcoinNet) error {
	var payload bytes.Buffer
	if err := msg.BtcEncode(&payload, pver); err != nil {
		return waltterr.Wrap(waltterr.Malformed, "encode "+msg.Command(), err)
	}
	if payload.Len() > MaxMessagePayload {
		return waltterr.New(waltterr.Malformed, fmt.Sprintf("payload exceeds max size: %d", payload.Len()))
	}

	var header bytes.Buffer
	header.Grow(24)
	if err := writeUint32(&header, uint32(net)); err != nil {
		return err
	}
	cmd := commandBytes(msg.Command())
	header.Write(cmd[:])
	if err := writeUint32(&header, uint32(payload.Len())); err != nil {
		return err
	}
	cksum := checksum(payload.Bytes())
	header.Write(cksum[:])

	if _, err := w.Write(header.Bytes()); err != nil {
		return err
	}
	_, err := w.Write(payload.Bytes())
	return err
}

// ReadMessage parses the framing envelope and dispatches to the
// matching decoder. An unrecognized-but-well-formed command returns a
// *MsgUnknown with a nil error, letting the handler skip it silently
// as spec.md Section 4.3 requires.
func ReadMessage(r io.Reader, pver uint32, net chaincfg.BitcoinNet) (Message, error) {
	var hdr [24]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, waltterr.Wrap(waltterr.Network, "read message header", err)
	}

	gotMagic := uint32(hdr[0]) | uint32(hdr[1])<<8 | uint32(hdr[2])<<16 | uint32(hdr[3])<<24
	if chaincfg.BitcoinNet(gotMagic) != net {
		return nil, waltterr.New(waltterr.Malformed, fmt.Sprintf("unexpected network magic 0x%08x", gotMagic))
	}

	command := strings.TrimRight(string(hdr[4:16]), "\x00")

	length := uint32(hdr[16]) | uint32(hdr[17])<<8 | uint32(hdr[18])<<16 | uint32(hdr[19])<<24
	if length > MaxMessagePayload {
		return nil, waltterr.New(waltterr.Malformed, fmt.Sprintf("payload too large: %d", length))
	}
	var wantChecksum [4]byte
	copy(wantChecksum[:], hdr[20:24])

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, waltterr.Wrap(waltterr.Network, "read message payload", err)
	}

	gotChecksum := checksum(payload)
	if gotChecksum != wantChecksum {
		return nil, waltterr.New(waltterr.Malformed, "checksum mismatch")
	}

	msg := makeEmptyMessage(command)
	if msg == nil {
		return &MsgUnknown{RawCommand: command, Payload: payload}, nil
	}
	if err := msg.BtcDecode(bytes.NewReader(payload), pver); err != nil {
		return nil, waltterr.Wrap(waltterr.Malformed, "decode "+command, err)
	}
	return msg, nil
}
